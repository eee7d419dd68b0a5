package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"codegalaxy/db"
	"codegalaxy/models"
	"codegalaxy/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	ActionApprove = "approve"
	ActionReject  = "reject"
	ActionRespond = "respond"
)

type ReviewInput struct {
	Rating   int    `json:"rating"`
	Title    string `json:"title"`
	Comment  string `json:"comment"`
	Category string `json:"category"`
}

type ModerationInput struct {
	Action   string `json:"action"`
	Reason   string `json:"reason"`
	Response string `json:"response"`
}

// ReviewService handles submission, community display and moderation.
type ReviewService struct {
	store    db.Store
	notifier *Notifier
	audit    auditor
	log      *zap.Logger
	now      func() time.Time
}

func NewReviewService(store db.Store, notifier *Notifier, feed ActivityPublisher, log *zap.Logger) *ReviewService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReviewService{
		store:    store,
		notifier: notifier,
		audit:    newAuditor(store, feed, log),
		log:      log,
		now:      time.Now,
	}
}

// Submit stores a pending review.
func (s *ReviewService) Submit(ctx context.Context, actor Actor, in ReviewInput) (*models.Review, error) {
	title := utils.SanitizeInput(in.Title)
	comment := utils.SanitizeInput(in.Comment)

	var msgs []string
	if title == "" || comment == "" {
		msgs = append(msgs, "Title and comment are required")
	}
	if in.Rating < 1 || in.Rating > 5 {
		msgs = append(msgs, "Rating must be between 1 and 5")
	}
	if utf8.RuneCountInString(title) > 100 {
		msgs = append(msgs, "Title must be at most 100 characters")
	}
	if utf8.RuneCountInString(comment) > 500 {
		msgs = append(msgs, "Comment must be at most 500 characters")
	}
	if in.Category == "" {
		in.Category = models.ReviewCategories[0]
	}
	if !contains(models.ReviewCategories, in.Category) {
		msgs = append(msgs, "Invalid category")
	}
	if len(msgs) > 0 {
		return nil, invalid(msgs...)
	}

	review := &models.Review{
		UserID:        actor.ID,
		UserName:      actor.Name,
		Rating:        in.Rating,
		Title:         title,
		Comment:       comment,
		Category:      in.Category,
		Status:        models.ReviewPending,
		HelpfulVoters: []primitive.ObjectID{},
		CreatedAt:     s.now(),
	}
	if err := s.store.CreateReview(ctx, review); err != nil {
		return nil, fmt.Errorf("failed to submit review: %w", err)
	}

	s.audit.userAction(ctx, actor.ID, "review_submitted",
		map[string]interface{}{"review_id": review.ID.Hex(), "rating": in.Rating}, actor.Client)
	s.audit.publish(models.ActivityReviewSubmitted, actor.ID, actor.Name, actor.Name+" shared feedback", nil)
	return review, nil
}

// Community returns approved reviews, newest first.
func (s *ReviewService) Community(ctx context.Context, limit int) []models.Review {
	if limit <= 0 {
		limit = 20
	}
	reviews, err := s.store.ListReviews(ctx, db.ReviewFilter{Status: models.ReviewApproved, Limit: limit})
	if err != nil {
		s.log.Error("failed to list approved reviews", zap.Error(err))
		return []models.Review{}
	}
	return reviews
}

// Mine returns the caller's own reviews in any status.
func (s *ReviewService) Mine(ctx context.Context, userID primitive.ObjectID) []models.Review {
	reviews, err := s.store.ListReviews(ctx, db.ReviewFilter{UserID: userID})
	if err != nil {
		s.log.Error("failed to list user reviews", zap.Error(err))
		return []models.Review{}
	}
	return reviews
}

// List is the admin view filtered by status.
func (s *ReviewService) List(ctx context.Context, status string, limit int) ([]models.Review, error) {
	reviews, err := s.store.ListReviews(ctx, db.ReviewFilter{Status: status, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return reviews, nil
}

// VoteHelpful counts one vote per user per review.
func (s *ReviewService) VoteHelpful(ctx context.Context, reviewID, voterID primitive.ObjectID) error {
	review, err := s.store.GetReview(ctx, reviewID)
	if err != nil {
		return err
	}
	if review.Status != models.ReviewApproved {
		return db.ErrNotFound
	}
	return s.store.VoteHelpful(ctx, reviewID, voterID)
}

// Moderate applies approve, reject or respond. Approve and reject only
// work on pending reviews; respond works in any status.
func (s *ReviewService) Moderate(ctx context.Context, adminID, reviewID primitive.ObjectID, in ModerationInput) (*models.Review, error) {
	now := s.now()
	var err error
	switch in.Action {
	case ActionApprove:
		err = s.store.ModerateReview(ctx, reviewID, models.ReviewApproved, adminID, "", now)
	case ActionReject:
		err = s.store.ModerateReview(ctx, reviewID, models.ReviewRejected, adminID, strings.TrimSpace(in.Reason), now)
	case ActionRespond:
		response := strings.TrimSpace(in.Response)
		if response == "" {
			return nil, invalid("Response text is required")
		}
		err = s.store.RespondToReview(ctx, reviewID, response, adminID, now)
	default:
		return nil, invalid("Unknown moderation action: " + in.Action)
	}
	if err != nil {
		if errors.Is(err, db.ErrNotFound) || errors.Is(err, db.ErrInvalidTransition) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to moderate review: %w", err)
	}

	review, err := s.store.GetReview(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload review: %w", err)
	}

	switch in.Action {
	case ActionRespond:
		s.notifyAuthor(ctx, review)
	case ActionApprove:
		s.audit.publish(models.ActivityReviewApproved, review.UserID, review.UserName, "A new community review was approved", nil)
	}
	s.audit.adminAction(ctx, adminID, "review_"+in.Action,
		map[string]interface{}{"review_id": reviewID.Hex(), "action": in.Action})
	return review, nil
}

// notifyAuthor is fire-and-forget: a failed email keeps the response.
func (s *ReviewService) notifyAuthor(ctx context.Context, review *models.Review) {
	if s.notifier == nil {
		return
	}
	user, err := s.store.GetUserByID(ctx, review.UserID)
	if err != nil {
		s.log.Warn("review author not found", zap.String("reviewId", review.ID.Hex()), zap.Error(err))
		return
	}
	if err := s.notifier.SendReviewResponse(ctx, user.Email, user.Name, review.Title, review.AdminResponse); err != nil {
		s.log.Warn("failed to email review response", zap.String("reviewId", review.ID.Hex()), zap.Error(err))
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

package services

import (
	"context"
	"strings"

	"codegalaxy/db"
	"codegalaxy/models"
	"codegalaxy/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const searchResultLimit = 10

// SearchResults groups matches by source
type SearchResults struct {
	Query   string                 `json:"query"`
	Codes   []models.GeneratedCode `json:"codes"`
	Reviews []models.Review        `json:"reviews"`
}

// SearchService searches the caller's code history and approved reviews.
type SearchService struct {
	store db.Store
	log   *zap.Logger
}

func NewSearchService(store db.Store, log *zap.Logger) *SearchService {
	if log == nil {
		log = zap.NewNop()
	}
	return &SearchService{store: store, log: log}
}

// Search does a substring match over the user's codes and a fuzzy match
// over the 100 most recent approved reviews.
func (s *SearchService) Search(ctx context.Context, userID primitive.ObjectID, query string) SearchResults {
	query = strings.TrimSpace(query)
	results := SearchResults{
		Query:   query,
		Codes:   []models.GeneratedCode{},
		Reviews: []models.Review{},
	}
	if query == "" {
		return results
	}

	if !userID.IsZero() {
		codes, err := s.store.ListCodes(ctx, db.CodeFilter{UserID: userID, Search: query, Limit: searchResultLimit})
		if err != nil {
			s.log.Error("code search failed", zap.Error(err))
		} else {
			results.Codes = codes
		}
	}

	reviews, err := s.store.ListReviews(ctx, db.ReviewFilter{Status: models.ReviewApproved, Limit: 100})
	if err != nil {
		s.log.Error("review search failed", zap.Error(err))
		return results
	}
	for _, r := range reviews {
		if utils.FuzzyMatch(query, r.Title, utils.DefaultFuzzyThreshold) ||
			utils.FuzzyMatch(query, r.Comment, utils.DefaultFuzzyThreshold) {
			results.Reviews = append(results.Reviews, r)
			if len(results.Reviews) == searchResultLimit {
				break
			}
		}
	}
	return results
}

package services

import (
	"context"
	"sort"

	"codegalaxy/db"
	"codegalaxy/models"
	"codegalaxy/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const defaultLeaderboardSize = 100

// LeaderboardEntry is one ranked user
type LeaderboardEntry struct {
	Rank        int                `json:"rank"`
	UserID      primitive.ObjectID `json:"userId"`
	Name        string             `json:"name"`
	AvatarURL   string             `json:"avatarUrl,omitempty"`
	Score       float64            `json:"score"`
	Detail      map[string]int64   `json:"detail,omitempty"`
	CurrentUser bool               `json:"currentUser"`
}

// Leaderboard holds the three rankings plus the caller's coder rank
type Leaderboard struct {
	TopCoders       []LeaderboardEntry `json:"topCoders"`
	TopContributors []LeaderboardEntry `json:"topContributors"`
	ModelMasters    []LeaderboardEntry `json:"modelMasters"`
	MyRank          int                `json:"myRank"`
}

// LeaderboardService recomputes every ranking from the full history on
// each call.
type LeaderboardService struct {
	store db.Store
	size  int
	log   *zap.Logger
}

func NewLeaderboardService(store db.Store, log *zap.Logger) *LeaderboardService {
	if log == nil {
		log = zap.NewNop()
	}
	return &LeaderboardService{store: store, size: defaultLeaderboardSize, log: log}
}

type scored struct {
	userID primitive.ObjectID
	score  float64
	detail map[string]int64
}

func (s *LeaderboardService) Get(ctx context.Context, currentUser primitive.ObjectID) Leaderboard {
	board := Leaderboard{
		TopCoders:       []LeaderboardEntry{},
		TopContributors: []LeaderboardEntry{},
		ModelMasters:    []LeaderboardEntry{},
	}

	coders := s.topCoders(ctx)
	contributors := s.topContributors(ctx)
	masters := s.modelMasters(ctx)

	ids := map[primitive.ObjectID]struct{}{}
	for _, list := range [][]scored{coders, contributors, masters} {
		for _, e := range list {
			ids[e.userID] = struct{}{}
		}
	}
	idList := make([]primitive.ObjectID, 0, len(ids))
	for id := range ids {
		idList = append(idList, id)
	}
	users, err := s.store.GetUsersByIDs(ctx, idList)
	if err != nil {
		s.log.Error("failed to load leaderboard users", zap.Error(err))
		users = map[primitive.ObjectID]models.User{}
	}

	board.TopCoders = s.entries(coders, users, currentUser)
	board.TopContributors = s.entries(contributors, users, currentUser)
	board.ModelMasters = s.entries(masters, users, currentUser)
	for _, e := range board.TopCoders {
		if e.CurrentUser {
			board.MyRank = e.Rank
			break
		}
	}
	return board
}

// Ranks maps each ranked coder to their position.
func (s *LeaderboardService) Ranks(ctx context.Context) map[primitive.ObjectID]int {
	coders := s.topCoders(ctx)
	ranks := make(map[primitive.ObjectID]int, len(coders))
	for i, e := range coders {
		ranks[e.userID] = i + 1
	}
	return ranks
}

func (s *LeaderboardService) entries(list []scored, users map[primitive.ObjectID]models.User, currentUser primitive.ObjectID) []LeaderboardEntry {
	out := make([]LeaderboardEntry, 0, len(list))
	for i, e := range list {
		u := users[e.userID]
		name := u.Name
		if name == "" {
			name = "Unknown"
		}
		out = append(out, LeaderboardEntry{
			Rank:        i + 1,
			UserID:      e.userID,
			Name:        name,
			AvatarURL:   u.AvatarURL,
			Score:       e.score,
			Detail:      e.detail,
			CurrentUser: e.userID == currentUser,
		})
	}
	return out
}

func (s *LeaderboardService) topCoders(ctx context.Context) []scored {
	counts, err := s.store.TopCoders(ctx, s.size)
	if err != nil {
		s.log.Error("failed to aggregate top coders", zap.Error(err))
		return nil
	}
	out := make([]scored, 0, len(counts))
	for _, c := range counts {
		out = append(out, scored{
			userID: c.UserID,
			score:  float64(c.Count),
			detail: map[string]int64{"codes": c.Count},
		})
	}
	return out
}

func (s *LeaderboardService) topContributors(ctx context.Context) []scored {
	stats, err := s.store.TopContributors(ctx)
	if err != nil {
		s.log.Error("failed to aggregate top contributors", zap.Error(err))
		return nil
	}
	out := make([]scored, 0, len(stats))
	for _, st := range stats {
		out = append(out, scored{
			userID: st.UserID,
			score:  float64(utils.ContributorScore(st.ApprovedReviews, st.HelpfulVotes)),
			detail: map[string]int64{"approvedReviews": st.ApprovedReviews, "helpfulVotes": st.HelpfulVotes},
		})
	}
	return s.cut(out)
}

func (s *LeaderboardService) modelMasters(ctx context.Context) []scored {
	usage, err := s.store.ModelUsageByUser(ctx)
	if err != nil {
		s.log.Error("failed to aggregate model usage", zap.Error(err))
		return nil
	}
	out := make([]scored, 0, len(usage))
	for _, u := range usage {
		out = append(out, scored{
			userID: u.UserID,
			score:  utils.DiversityScore(u.Counts),
			detail: u.Counts,
		})
	}
	return s.cut(out)
}

// cut sorts by score, breaking ties by user id, and keeps the top entries.
func (s *LeaderboardService) cut(list []scored) []scored {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].score != list[j].score {
			return list[i].score > list[j].score
		}
		return list[i].userID.Hex() < list[j].userID.Hex()
	})
	if len(list) > s.size {
		list = list[:s.size]
	}
	return list
}

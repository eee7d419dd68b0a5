package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ChallengeDifficulties = []string{"Easy", "Medium", "Hard"}
	ChallengeLanguages    = []string{"Python", "JavaScript", "Java"}
	ChallengeTopics       = []string{"Arrays", "Strings", "Functions", "Algorithms", "Data Structures"}
)

// DailyChallenge is the single challenge for one UTC day
type DailyChallenge struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Date        string             `bson:"date" json:"date" validate:"required,datetime=2006-01-02"`
	Difficulty  string             `bson:"difficulty" json:"difficulty" validate:"oneof=Easy Medium Hard"`
	Topic       string             `bson:"topic" json:"topic" validate:"required"`
	Language    string             `bson:"language" json:"language" validate:"required"`
	Description string             `bson:"description" json:"description"`
	Hint        string             `bson:"hint" json:"hint"`
	Solution    string             `bson:"solution" json:"solution"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}

// ChallengeCompletion marks that a user finished a day's challenge
type ChallengeCompletion struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID      primitive.ObjectID `bson:"userId" json:"userId" validate:"required"`
	Date        string             `bson:"date" json:"date" validate:"required,datetime=2006-01-02"`
	CompletedAt time.Time          `bson:"completedAt" json:"completedAt"`
}

// ChallengeStats summarises a user's completions
type ChallengeStats struct {
	TotalCompleted int  `json:"totalCompleted"`
	CurrentStreak  int  `json:"currentStreak"`
	CompletedToday bool `json:"completedToday"`
}

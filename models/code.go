package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	TaskGenerate = "generate"
	TaskExplain  = "explain"
	TaskImprove  = "improve"
)

// CodeMetadata records how a generated snippet was produced
type CodeMetadata struct {
	Tokens       int     `bson:"tokens" json:"tokens"`
	ResponseTime float64 `bson:"responseTime" json:"responseTime"`
	Success      bool    `bson:"success" json:"success"`
	Temperature  float64 `bson:"temperature,omitempty" json:"temperature,omitempty"`
	Focus        string  `bson:"focus,omitempty" json:"focus,omitempty"`
}

// GeneratedCode is a persisted AI gateway result
type GeneratedCode struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID     primitive.ObjectID `bson:"userId" json:"userId" validate:"required"`
	ModelName  string             `bson:"modelName" json:"modelName" validate:"required"`
	TaskType   string             `bson:"taskType" json:"taskType" validate:"oneof=generate explain improve"`
	Language   string             `bson:"language" json:"language" validate:"required"`
	Prompt     string             `bson:"prompt" json:"prompt"`
	CodeOutput string             `bson:"codeOutput" json:"codeOutput"`
	Metadata   CodeMetadata       `bson:"metadata" json:"metadata"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
}

// CodeStats summarises one user's history
type CodeStats struct {
	TotalCodes       int64  `json:"totalCodes"`
	FavoriteModel    string `json:"favoriteModel"`
	FavoriteLanguage string `json:"favoriteLanguage"`
}

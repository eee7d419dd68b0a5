package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DateLayout keys per-day documents (usage rows, daily challenges).
const DateLayout = "2006-01-02"

// DayKey returns the UTC calendar day of t.
func DayKey(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// ModelUsageStat aggregates one model's calls for one UTC day
type ModelUsageStat struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	ModelName           string             `bson:"modelName" json:"modelName"`
	Date                string             `bson:"date" json:"date"`
	TotalUses           int64              `bson:"totalUses" json:"totalUses"`
	SuccessfulUses      int64              `bson:"successfulUses" json:"successfulUses"`
	FailedUses          int64              `bson:"failedUses" json:"failedUses"`
	TotalResponseTime   float64            `bson:"totalResponseTime" json:"totalResponseTime"`
	AverageResponseTime float64            `bson:"averageResponseTime" json:"averageResponseTime"`
	Languages           map[string]int64   `bson:"languages" json:"languages"`
	UpdatedAt           time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// UsageSample is one accounted gateway call
type UsageSample struct {
	ModelName    string  `validate:"required"`
	Language     string
	ResponseTime float64 `validate:"min=0"`
	Success      bool
	At           time.Time
}

// ModelStats is a trailing-window summary of ModelUsageStat rows
type ModelStats struct {
	ModelName           string  `json:"modelName"`
	Days                int     `json:"days"`
	TotalUses           int64   `json:"totalUses"`
	SuccessfulUses      int64   `json:"successfulUses"`
	FailedUses          int64   `json:"failedUses"`
	SuccessRate         float64 `json:"successRate"`
	AverageResponseTime float64 `json:"averageResponseTime"`
}

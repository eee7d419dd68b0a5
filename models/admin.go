package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	LogUserAction    = "user_action"
	LogAdminAction   = "admin_action"
	LogSystemEvent   = "system_event"
	LogSecurityEvent = "security_event"

	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// LogEntry is an append-only audit record
type LogEntry struct {
	ID        primitive.ObjectID     `bson:"_id,omitempty" json:"id,omitempty"`
	Type      string                 `bson:"type" json:"type" validate:"oneof=user_action admin_action system_event security_event"`
	Action    string                 `bson:"action" json:"action" validate:"required"`
	Severity  string                 `bson:"severity" json:"severity" validate:"oneof=info warning error critical"`
	UserID    primitive.ObjectID     `bson:"userId,omitempty" json:"userId,omitempty"`
	AdminID   primitive.ObjectID     `bson:"adminId,omitempty" json:"adminId,omitempty"`
	IPAddress string                 `bson:"ipAddress,omitempty" json:"ipAddress,omitempty"`
	Details   map[string]interface{} `bson:"details,omitempty" json:"details,omitempty"`
	CreatedAt time.Time              `bson:"createdAt" json:"createdAt"`
}

// PlatformStats feeds the admin dashboard header
type PlatformStats struct {
	TotalUsers     int64 `json:"totalUsers"`
	TotalCodes     int64 `json:"totalCodes"`
	ActiveToday    int64 `json:"activeToday"`
	PendingReviews int64 `json:"pendingReviews"`
}

// DailyCount is the number of records created on one day
type DailyCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

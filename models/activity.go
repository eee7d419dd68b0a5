package models

import "time"

const (
	ActivityCodeGenerated      = "code_generated"
	ActivityReviewSubmitted    = "review_submitted"
	ActivityReviewApproved     = "review_approved"
	ActivityChallengeCompleted = "challenge_completed"
	ActivityUserJoined         = "user_joined"
)

// ActivityEvent is pushed to connected activity-feed clients
type ActivityEvent struct {
	Type      string                 `json:"type"`
	UserID    string                 `json:"userId,omitempty"`
	UserName  string                 `json:"userName,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

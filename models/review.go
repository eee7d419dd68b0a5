package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ReviewPending  = "pending"
	ReviewApproved = "approved"
	ReviewRejected = "rejected"
)

// ReviewCategories lists the accepted review categories
var ReviewCategories = []string{"General Feedback", "Feature Request", "Bug Report"}

// Review is user feedback awaiting or past moderation
type Review struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty" json:"id,omitempty"`
	UserID          primitive.ObjectID   `bson:"userId" json:"userId" validate:"required"`
	UserName        string               `bson:"userName" json:"userName"`
	Rating          int                  `bson:"rating" json:"rating" validate:"min=1,max=5"`
	Title           string               `bson:"title" json:"title" validate:"required,max=100"`
	Comment         string               `bson:"comment" json:"comment" validate:"required,max=500"`
	Category        string               `bson:"category" json:"category" validate:"oneof='General Feedback' 'Feature Request' 'Bug Report'"`
	Status          string               `bson:"status" json:"status" validate:"oneof=pending approved rejected"`
	AdminResponse   string               `bson:"adminResponse,omitempty" json:"adminResponse,omitempty"`
	RespondedAt     *time.Time           `bson:"respondedAt,omitempty" json:"respondedAt,omitempty"`
	RespondedBy     primitive.ObjectID   `bson:"respondedBy,omitempty" json:"respondedBy,omitempty"`
	ModeratedBy     primitive.ObjectID   `bson:"moderatedBy,omitempty" json:"moderatedBy,omitempty"`
	ModeratedAt     *time.Time           `bson:"moderatedAt,omitempty" json:"moderatedAt,omitempty"`
	RejectionReason string               `bson:"rejectionReason,omitempty" json:"rejectionReason,omitempty"`
	HelpfulCount    int                  `bson:"helpfulCount" json:"helpfulCount" validate:"min=0"`
	HelpfulVoters   []primitive.ObjectID `bson:"helpfulVoters" json:"-"`
	CreatedAt       time.Time            `bson:"createdAt" json:"createdAt"`
}

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	OTPSignup        = "signup"
	OTPPasswordReset = "password_reset"
	OTPLogin         = "login"

	OTPLength = 6
	OTPTTL    = 10 * time.Minute
)

// OTP is a single-use verification code
type OTP struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Email     string             `bson:"email" json:"email" validate:"required,email"`
	Purpose   string             `bson:"purpose" json:"purpose" validate:"oneof=signup password_reset login"`
	Code      string             `bson:"code" json:"-" validate:"len=6,numeric"`
	ExpiresAt time.Time          `bson:"expiresAt" json:"expiresAt"`
	Used      bool               `bson:"used" json:"used"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

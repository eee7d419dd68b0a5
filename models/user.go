package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	StatusActive    = "active"
	StatusSuspended = "suspended"
	StatusDeleted   = "deleted"

	ProviderEmail   = "email"
	ProviderCognito = "cognito"

	// MaxLoginHistory bounds User.LoginHistory; older entries are dropped.
	MaxLoginHistory = 10
)

// LoginRecord is one entry of a user's login history
type LoginRecord struct {
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	IPAddress string    `bson:"ipAddress" json:"ipAddress"`
	Device    string    `bson:"device" json:"device"`
	Browser   string    `bson:"browser" json:"browser"`
}

// User defines a user entity
type User struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name               string             `bson:"name" json:"name" validate:"required,max=100"`
	Email              string             `bson:"email" json:"email" validate:"required,email"`
	Role               string             `bson:"role" json:"role" validate:"oneof=user admin"`
	Status             string             `bson:"status" json:"status" validate:"oneof=active suspended deleted"`
	AuthProvider       string             `bson:"authProvider" json:"authProvider" validate:"oneof=email cognito"`
	ProviderUID        string             `bson:"providerUid,omitempty" json:"-"`
	Password           string             `bson:"password,omitempty" json:"-"`
	EmailVerified      bool               `bson:"emailVerified" json:"emailVerified"`
	AvatarURL          string             `bson:"avatarUrl,omitempty" json:"avatarUrl,omitempty" validate:"omitempty,url"`
	Bio                string             `bson:"bio" json:"bio" validate:"max=500"`
	ThemePreference    string             `bson:"themePreference" json:"themePreference" validate:"omitempty,oneof=light dark auto"`
	EmailNotifications bool               `bson:"emailNotifications" json:"emailNotifications"`
	SignupDate         time.Time          `bson:"signupDate" json:"signupDate"`
	LastLogin          *time.Time         `bson:"lastLogin,omitempty" json:"lastLogin,omitempty"`
	UpdatedAt          time.Time          `bson:"updatedAt" json:"updatedAt"`
	LoginHistory       []LoginRecord      `bson:"loginHistory" json:"loginHistory" validate:"max=10"`
}

// UserPatch carries a partial user update. Nil fields are left untouched.
type UserPatch struct {
	Name               *string `validate:"omitempty,min=1,max=100"`
	Bio                *string `validate:"omitempty,max=500"`
	AvatarURL          *string `validate:"omitempty,url"`
	ThemePreference    *string `validate:"omitempty,oneof=light dark auto"`
	EmailNotifications *bool
	Password           *string
	EmailVerified      *bool
	Status             *string `validate:"omitempty,oneof=active suspended deleted"`
	Role               *string `validate:"omitempty,oneof=user admin"`
}

// Apply copies the non-nil fields of p onto u.
func (p UserPatch) Apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	if p.AvatarURL != nil {
		u.AvatarURL = *p.AvatarURL
	}
	if p.ThemePreference != nil {
		u.ThemePreference = *p.ThemePreference
	}
	if p.EmailNotifications != nil {
		u.EmailNotifications = *p.EmailNotifications
	}
	if p.Password != nil {
		u.Password = *p.Password
	}
	if p.EmailVerified != nil {
		u.EmailVerified = *p.EmailVerified
	}
	if p.Status != nil {
		u.Status = *p.Status
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
}

// Fields returns the bson field names and values of the non-nil fields.
func (p UserPatch) Fields() map[string]interface{} {
	set := map[string]interface{}{}
	if p.Name != nil {
		set["name"] = *p.Name
	}
	if p.Bio != nil {
		set["bio"] = *p.Bio
	}
	if p.AvatarURL != nil {
		set["avatarUrl"] = *p.AvatarURL
	}
	if p.ThemePreference != nil {
		set["themePreference"] = *p.ThemePreference
	}
	if p.EmailNotifications != nil {
		set["emailNotifications"] = *p.EmailNotifications
	}
	if p.Password != nil {
		set["password"] = *p.Password
	}
	if p.EmailVerified != nil {
		set["emailVerified"] = *p.EmailVerified
	}
	if p.Status != nil {
		set["status"] = *p.Status
	}
	if p.Role != nil {
		set["role"] = *p.Role
	}
	return set
}

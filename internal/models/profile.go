package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile visibility settings.
const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
	VisibilityFriends = "friends"
)

// ValidVisibility reports whether v is a known profile visibility.
func ValidVisibility(v string) bool {
	switch v {
	case VisibilityPublic, VisibilityPrivate, VisibilityFriends:
		return true
	}
	return false
}

// UserProfile is the 1:1 preference extension of a User. It is created
// lazily on first access.
type UserProfile struct {
	UserID    uuid.UUID `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Company  string `json:"company,omitempty"`
	JobTitle string `json:"job_title,omitempty"`
	Website  string `json:"website,omitempty"`

	PreferredLanguage string `json:"preferred_language"`
	Timezone          string `json:"timezone"`

	EmailNotifications bool `json:"email_notifications"`
	PushNotifications  bool `json:"push_notifications"`

	ProfileVisibility string `json:"profile_visibility"`
}

// NewUserProfile returns a profile with the default preferences.
func NewUserProfile(userID uuid.UUID, now time.Time) *UserProfile {
	return &UserProfile{
		UserID:             userID,
		CreatedAt:          now,
		UpdatedAt:          now,
		PreferredLanguage:  "en",
		Timezone:           "UTC",
		EmailNotifications: true,
		PushNotifications:  true,
		ProfileVisibility:  VisibilityPublic,
	}
}

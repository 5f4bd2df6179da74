package domain

import "time"

// UserProfile represents the user_profiles table. Identity is issued by an
// external collaborator; this core only mirrors what the handshake supplies.
type UserProfile struct {
	ID          string
	DisplayName string
	Email       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (UserProfile) TableName() string {
	return "user_profiles"
}

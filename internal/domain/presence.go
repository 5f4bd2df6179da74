package domain

import "time"

// PresenceRecord represents the presence_records table, one row per user.
// IsActive is true while the user has at least one live connection;
// ConnectionTag holds the id of the most recent connection.
type PresenceRecord struct {
	UserID        string `gorm:"primaryKey"`
	ConnectionTag string
	LastSeen      time.Time
	IsActive      bool
}

// OnlineUser is a PresenceRecord joined with the user's profile.
type OnlineUser struct {
	UserID      string
	DisplayName string
	Email       string
	LastSeen    time.Time
}

func (PresenceRecord) TableName() string {
	return "presence_records"
}

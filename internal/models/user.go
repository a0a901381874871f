package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PresenceStatus is the durable presence value shown to friends.
type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusAway    PresenceStatus = "away"
	StatusOffline PresenceStatus = "offline"
)

// Valid reports whether s is one of the known presence values.
func (s PresenceStatus) Valid() bool {
	switch s {
	case StatusOnline, StatusAway, StatusOffline:
		return true
	}
	return false
}

// rank orders statuses for friend lists: online first, offline last.
func (s PresenceStatus) rank() int {
	switch s {
	case StatusOnline:
		return 0
	case StatusAway:
		return 1
	default:
		return 2
	}
}

// User is an account. Only Status and LastSeen change at runtime.
type User struct {
	ID           string         `gorm:"primaryKey;size:36" json:"id"`
	Username     string         `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Email        string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string         `gorm:"not null" json:"-"`
	Avatar       string         `json:"avatar,omitempty"`
	Status       PresenceStatus `gorm:"size:16;default:offline;index" json:"status"`
	LastSeen     time.Time      `json:"last_seen"`
	CreatedAt    time.Time      `json:"created_at"`
}

// BeforeCreate is a GORM hook that assigns a UUID when ID is empty.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.Status == "" {
		u.Status = StatusOffline
	}
	return
}

// Profile is the public part of a User.
type Profile struct {
	ID       string         `json:"id"`
	Username string         `json:"username"`
	Email    string         `json:"email"`
	Avatar   string         `json:"avatar,omitempty"`
	Status   PresenceStatus `json:"status"`
	LastSeen time.Time      `json:"last_seen"`
}

func (u User) Profile() Profile {
	return Profile{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Avatar:   u.Avatar,
		Status:   u.Status,
		LastSeen: u.LastSeen,
	}
}

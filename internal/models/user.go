package models

import "time"

// User is the owner of expenses and report snapshots.
type User struct {
	Base
	Name         string     `gorm:"not null" json:"name"`
	Email        string     `gorm:"uniqueIndex;not null" json:"email"`
	Password     string     `gorm:"not null" json:"-"`
	Organization string     `gorm:"not null" json:"organization"`
	Phone        string     `json:"phone"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

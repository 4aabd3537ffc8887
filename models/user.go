package models

import (
	"gorm.io/gorm"
)

// User represents an account that owns clients, messages and mailings.
type User struct {
	gorm.Model

	// Authentication fields
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`

	// Email confirmation: new accounts stay inactive until the token
	// from the confirmation link is presented. Cleared after use so a
	// token is never valid twice.
	ConfirmToken *string `gorm:"index" json:"-"`

	// Profile information
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Country     string `json:"country,omitempty"`

	// Account status and roles
	IsActive  bool `gorm:"default:false" json:"is_active"`
	IsAdmin   bool `gorm:"default:false" json:"is_admin"`
	IsManager bool `gorm:"default:false" json:"is_manager"` // read-only across all owners

	// Relations
	Clients  []Client  `gorm:"foreignKey:OwnerID" json:"clients,omitempty"`
	Messages []Message `gorm:"foreignKey:OwnerID" json:"messages,omitempty"`
	Mailings []Mailing `gorm:"foreignKey:OwnerID" json:"mailings,omitempty"`
}

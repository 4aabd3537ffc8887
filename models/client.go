package models

import (
	"gorm.io/gorm"
)

// Client is a mailing recipient. The email address is unique across the
// whole system, not just within one owner's address book.
type Client struct {
	gorm.Model

	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	FullName string `gorm:"not null" json:"full_name"`
	Comment  string `gorm:"size:3000" json:"comment"`

	OwnerID uint `gorm:"not null;index" json:"owner_id"`
	Owner   User `json:"-"`
}

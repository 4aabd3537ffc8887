package models

import (
	"gorm.io/gorm"
)

// Message is reusable mail content a mailing points at.
type Message struct {
	gorm.Model

	Subject string `gorm:"size:255;not null" json:"subject"`
	Body    string `gorm:"size:4000;not null" json:"body"`

	OwnerID uint `gorm:"not null;index" json:"owner_id"`
	Owner   User `json:"-"`
}

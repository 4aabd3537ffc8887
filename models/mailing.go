package models

import (
	"time"

	"gorm.io/gorm"
)

// Mailing statuses. A mailing only ever moves forward:
// created -> started -> completed.
const (
	MailingStatusCreated   = "created"
	MailingStatusStarted   = "started"
	MailingStatusCompleted = "completed"
)

// Attempt outcomes.
const (
	AttemptStatusSuccess = "success"
	AttemptStatusFailure = "failure"
)

// Mailing binds one message to a set of clients under one owner and
// tracks the lifecycle of its dispatch.
type Mailing struct {
	gorm.Model

	Status    string     `gorm:"size:20;default:'created'" json:"status"`
	StartTime *time.Time `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`

	MessageID uint     `gorm:"not null;index" json:"message_id"`
	Message   Message  `json:"message,omitempty"`
	Clients   []Client `gorm:"many2many:mailing_clients" json:"clients,omitempty"`

	OwnerID uint `gorm:"not null;index" json:"owner_id"`
	Owner   User `json:"-"`

	Attempts []MailingAttempt `gorm:"foreignKey:MailingID" json:"attempts,omitempty"`
}

// MailingAttempt records one delivery outcome for one recipient within
// one mailing. The ledger is append-only: rows are written only by the
// dispatcher and never updated or upserted, so re-dispatching a mailing
// (by externally resetting its status to started) intentionally produces
// additional rows rather than replacing the old ones.
type MailingAttempt struct {
	gorm.Model

	// Recipient is a snapshot of the client's email at send time, not a
	// foreign key, so the ledger stays accurate if the client is edited.
	Recipient      string    `gorm:"not null" json:"recipient"`
	AttemptTime    time.Time `gorm:"not null;index" json:"attempt_time"`
	Status         string    `gorm:"size:20;not null" json:"status"`
	ServerResponse string    `json:"server_response"`

	MailingID uint     `gorm:"not null;index" json:"mailing_id"`
	Mailing   *Mailing `json:"mailing,omitempty"`
}

package utils

import (
	"errors"

	"gorm.io/gorm"
	"mailery/models"
)

// Action is an operation an account may attempt against an owned entity.
type Action int

const (
	ActionView Action = iota
	ActionCreate
	ActionUpdate
	ActionDelete
	ActionDispatch
)

var (
	// ErrManagersReadOnly is returned for any mutation or dispatch
	// attempted by a manager-role account.
	ErrManagersReadOnly = errors.New("managers may only view")

	// ErrNotOwner is returned when an account touches an entity that
	// belongs to somebody else.
	ErrNotOwner = errors.New("not the owner")
)

// Evaluate decides whether actor may perform action on an entity owned by
// ownerID. All role handling lives here so handlers stay thin:
//
//   - managers may view everything and mutate nothing
//   - admins may view everything, dispatch any mailing, and mutate only
//     their own rows
//   - everyone else is confined to rows they own
func Evaluate(actor *models.User, action Action, ownerID uint) error {
	if action == ActionView {
		if actor.IsManager || actor.IsAdmin || actor.ID == ownerID {
			return nil
		}
		return ErrNotOwner
	}

	if actor.IsManager {
		return ErrManagersReadOnly
	}

	if action == ActionDispatch && actor.IsAdmin {
		return nil
	}

	if actor.ID != ownerID {
		return ErrNotOwner
	}
	return nil
}

// Scope returns the implicit list filter for actor: managers and admins
// see every owner's rows, everyone else only their own.
func Scope(actor *models.User) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if actor.IsManager || actor.IsAdmin {
			return db
		}
		return db.Where("owner_id = ?", actor.ID)
	}
}

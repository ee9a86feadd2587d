package entity

import (
	"github.com/oksasatya/user-account-service/internal/domain/apperr"
)

// State is the lifecycle state of a user account.
type State int

const (
	StateActive State = iota
	StateFrozen
	StateDeleted
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateFrozen:
		return "frozen"
	case StateDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// ParseState decodes a persisted state token.
func ParseState(token string) (State, error) {
	switch token {
	case "active":
		return StateActive, nil
	case "frozen":
		return StateFrozen, nil
	case "deleted":
		return StateDeleted, nil
	default:
		return 0, apperr.InvalidData("unknown user state %q", token)
	}
}

// Status is the authorization role of a user account.
type Status int

const (
	StatusUser Status = iota
	StatusAdmin
)

func (s Status) String() string {
	switch s {
	case StatusUser:
		return "user"
	case StatusAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// ParseStatus decodes a persisted status token.
func ParseStatus(token string) (Status, error) {
	switch token {
	case "user":
		return StatusUser, nil
	case "admin":
		return StatusAdmin, nil
	default:
		return 0, apperr.InvalidData("unknown user status %q", token)
	}
}

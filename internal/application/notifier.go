package application

import (
	"context"

	"github.com/google/uuid"
)

// AccountEvent describes a persisted change to an account. Fields lists the names of
// the changed fields, never their values.
type AccountEvent struct {
	UserID        uuid.UUID
	Email         string
	PreviousEmail string
	Fields        []string
}

// AccountNotifier tells account owners about changes. Delivery is best effort: errors
// are logged by the caller and never undo the change.
type AccountNotifier interface {
	AccountRegistered(ctx context.Context, ev AccountEvent) error
	AccountChanged(ctx context.Context, ev AccountEvent) error
}

type noopNotifier struct{}

func (noopNotifier) AccountRegistered(context.Context, AccountEvent) error { return nil }
func (noopNotifier) AccountChanged(context.Context, AccountEvent) error    { return nil }

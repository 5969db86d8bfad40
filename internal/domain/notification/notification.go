// Package notification holds the per-user message records surfaced in the
// storefront UI and pushed over the realtime channel.
package notification

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a notification does not exist or does not
// belong to the requesting user.
var ErrNotFound = errors.New("notification not found")

// Notification is one message addressed to a user.
type Notification struct {
	ID        string
	UserID    string
	Message   string
	Kind      string
	Read      bool
	CreatedAt time.Time
}

// Repository defines persistence operations for notifications. MarkRead is
// scoped to the owning user so one user cannot touch another's records.
type Repository interface {
	Create(ctx context.Context, n *Notification) error
	ListByUser(ctx context.Context, userID string, limit int) ([]Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
}

// Package activity records the admin-facing audit trail. Writing an entry is
// always best-effort: callers log failures and move on.
package activity

import (
	"context"
	"time"
)

// Entry is one audit record.
type Entry struct {
	ID          string
	Action      string
	Description string
	ActorID     string
	ActorName   string
	IP          string
	Meta        map[string]string
	CreatedAt   time.Time
}

// Sink accepts audit entries.
type Sink interface {
	Record(ctx context.Context, e *Entry) error
}

// List provides paginated read access for the admin dashboard.
type List interface {
	ListRecent(ctx context.Context, limit int) ([]Entry, error)
}

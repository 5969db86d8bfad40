package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dukahub/storefront/internal/domain/activity"
)

const (
	recordActivitySQL = `INSERT INTO activity_logs (id, action, description, actor_id, actor_name, ip, meta, created_at)
		VALUES ($1, $2, $3, NULLIF($4, '')::uuid, $5, $6, $7, $8)`

	listActivitySQL = `SELECT id, action, description, COALESCE(actor_id::text, ''), actor_name, ip, meta, created_at
		FROM activity_logs ORDER BY created_at DESC LIMIT $1`
)

var (
	_ activity.Sink = (*ActivityRepository)(nil)
	_ activity.List = (*ActivityRepository)(nil)
)

// ActivityRepository persists the admin audit trail in PostgreSQL.
type ActivityRepository struct {
	pool *pgxpool.Pool
}

// NewActivityRepository returns an ActivityRepository that uses the given pool.
func NewActivityRepository(pool *pgxpool.Pool) *ActivityRepository {
	return &ActivityRepository{pool: pool}
}

// Record inserts one audit entry.
func (r *ActivityRepository) Record(ctx context.Context, e *activity.Entry) error {
	meta, err := json.Marshal(e.Meta)
	if err != nil {
		return fmt.Errorf("marshaling activity meta: %w", err)
	}

	_, err = r.pool.Exec(ctx, recordActivitySQL,
		e.ID, e.Action, e.Description, e.ActorID, e.ActorName, e.IP, meta, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("recording activity %q: %w", e.Action, err)
	}
	return nil
}

// ListRecent returns the newest audit entries.
func (r *ActivityRepository) ListRecent(ctx context.Context, limit int) ([]activity.Entry, error) {
	rows, err := r.pool.Query(ctx, listActivitySQL, limit)
	if err != nil {
		return nil, fmt.Errorf("listing activity: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (activity.Entry, error) {
		var (
			e    activity.Entry
			meta []byte
		)
		if err := row.Scan(&e.ID, &e.Action, &e.Description, &e.ActorID, &e.ActorName, &e.IP, &meta, &e.CreatedAt); err != nil {
			return e, err
		}
		if err := json.Unmarshal(meta, &e.Meta); err != nil {
			return e, fmt.Errorf("unmarshaling activity meta: %w", err)
		}
		return e, nil
	})
}

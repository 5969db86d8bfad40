package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dukahub/storefront/internal/domain/notification"
)

const (
	createNotificationSQL = `INSERT INTO notifications (id, user_id, message, kind, read, created_at)
		VALUES ($1, $2, $3, $4, FALSE, $5)`

	listNotificationsSQL = `SELECT id, user_id, message, kind, read, created_at
		FROM notifications WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`

	markNotificationReadSQL = `UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`
)

var _ notification.Repository = (*NotificationRepository)(nil)

// NotificationRepository persists per-user notifications in PostgreSQL.
type NotificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository returns a NotificationRepository that uses the given pool.
func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

// Create inserts one notification.
func (r *NotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	_, err := r.pool.Exec(ctx, createNotificationSQL, n.ID, n.UserID, n.Message, n.Kind, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating notification for user %q: %w", n.UserID, err)
	}
	return nil
}

// ListByUser returns a user's newest notifications.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]notification.Notification, error) {
	rows, err := r.pool.Query(ctx, listNotificationsSQL, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing notifications for user %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (notification.Notification, error) {
		var n notification.Notification
		err := row.Scan(&n.ID, &n.UserID, &n.Message, &n.Kind, &n.Read, &n.CreatedAt)
		return n, err
	})
}

// MarkRead flags one of the user's notifications as read. Zero rows affected
// means the notification is absent or owned by someone else; both report
// notification.ErrNotFound.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string) error {
	tag, err := r.pool.Exec(ctx, markNotificationReadSQL, id, userID)
	if err != nil {
		return fmt.Errorf("marking notification %q read: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return notification.ErrNotFound
	}
	return nil
}

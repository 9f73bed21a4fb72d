package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"botwatch/internal/core/domain"
	"botwatch/internal/infra/storage"
)

// NotificationRepo implements storage.NotificationRepository using PostgreSQL.
type NotificationRepo struct {
	db *DB
}

// NewNotificationRepo creates a new PostgreSQL notification repository.
func NewNotificationRepo(db *DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

type notificationRow struct {
	ID        string    `db:"id"`
	Type      string    `db:"type"`
	Title     string    `db:"title"`
	Message   string    `db:"message"`
	Wallet    string    `db:"wallet"`
	TxID      string    `db:"tx_id"`
	IsRead    bool      `db:"is_read"`
	CreatedAt time.Time `db:"created_at"`
}

func (n *notificationRow) toDomain() *domain.Notification {
	return &domain.Notification{
		ID:        n.ID,
		Type:      domain.NotificationType(n.Type),
		Title:     n.Title,
		Message:   n.Message,
		Wallet:    n.Wallet,
		TxID:      n.TxID,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}

const notificationColumns = `id, type, title, message, wallet, tx_id, is_read, created_at`

// Create appends a notification.
func (r *NotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	query := `
		INSERT INTO notifications (id, type, title, message, wallet, tx_id, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	createdAt := n.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, query,
		n.ID, string(n.Type), n.Title, n.Message,
		n.Wallet, n.TxID, n.IsRead, createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// GetByID retrieves a notification by id.
func (r *NotificationRepo) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`

	var row notificationRow
	err := r.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotificationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return row.toDomain(), nil
}

// List retrieves notifications, newest first.
func (r *NotificationRepo) List(ctx context.Context, onlyUnread bool, limit int) ([]*domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications`
	var args []any
	if onlyUnread {
		query += ` WHERE NOT is_read`
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	var rows []notificationRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	ns := make([]*domain.Notification, 0, len(rows))
	for i := range rows {
		ns = append(ns, rows[i].toDomain())
	}
	return ns, nil
}

// MarkRead flags one notification as read.
func (r *NotificationRepo) MarkRead(ctx context.Context, id string) error {
	query := `UPDATE notifications SET is_read = true WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotificationNotFound
	}
	return nil
}

// MarkAllRead flags every unread notification as read.
func (r *NotificationRepo) MarkAllRead(ctx context.Context) (int64, error) {
	query := `UPDATE notifications SET is_read = true WHERE NOT is_read`
	res, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return res.RowsAffected()
}

// UnreadCount returns the number of unread notifications.
func (r *NotificationRepo) UnreadCount(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM notifications WHERE NOT is_read`
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// DeleteOlderThan removes read notifications created before cutoff.
func (r *NotificationRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM notifications WHERE is_read AND created_at < $1`
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune notifications: %w", err)
	}
	return res.RowsAffected()
}

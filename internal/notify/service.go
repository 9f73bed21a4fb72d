package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"botwatch/internal/core/domain"
	"botwatch/internal/infra/storage"
	"botwatch/internal/metrics"
)

// Service appends notifications to the store and fans them out to live
// subscribers. The append is the source of truth: fanout is best-effort
// and a failing sink never rolls the stored notification back.
type Service struct {
	repo    storage.NotificationRepository
	emitter Emitter
}

// NewService creates a notification service. emitter may be nil when no
// live subscribers are wired.
func NewService(repo storage.NotificationRepository, emitter Emitter) *Service {
	return &Service{
		repo:    repo,
		emitter: emitter,
	}
}

// Append persists a notification and pushes it to subscribers. The id and
// creation time are assigned here; the type defaults to info.
func (s *Service) Append(ctx context.Context, n *domain.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Type == "" {
		n.Type = domain.NotifyInfo
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	if err := s.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("failed to append notification: %w", err)
	}
	metrics.NotificationsEmittedTotal.WithLabelValues(string(n.Type)).Inc()

	if s.emitter != nil {
		if err := s.emitter.Emit(ctx, n); err != nil {
			// Fanout is best-effort, the stored notification stands
			slog.Warn("Notification fanout failed", "id", n.ID, "error", err)
		}
	}
	return nil
}

// Get retrieves a notification by id.
func (s *Service) Get(ctx context.Context, id string) (*domain.Notification, error) {
	return s.repo.GetByID(ctx, id)
}

// List retrieves notifications, newest first. limit 0 means no limit.
func (s *Service) List(ctx context.Context, onlyUnread bool, limit int) ([]*domain.Notification, error) {
	return s.repo.List(ctx, onlyUnread, limit)
}

// MarkRead flags one notification as read.
func (s *Service) MarkRead(ctx context.Context, id string) error {
	return s.repo.MarkRead(ctx, id)
}

// MarkAllRead flags every unread notification as read, returns how many.
func (s *Service) MarkAllRead(ctx context.Context) (int64, error) {
	return s.repo.MarkAllRead(ctx)
}

// UnreadCount returns the number of unread notifications.
func (s *Service) UnreadCount(ctx context.Context) (int, error) {
	return s.repo.UnreadCount(ctx)
}

package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"botwatch/internal/core/domain"
)

// RetryPublisher re-announces failed transactions on a NATS subject for the
// external trade executor to pick up. Fire-and-forget: a retry that nobody
// hears resolves later through the retry worker's next scan.
type RetryPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewRetryPublisher creates a publisher on the given subject.
func NewRetryPublisher(conn *nats.Conn, subject string) *RetryPublisher {
	return &RetryPublisher{
		conn:    conn,
		subject: subject,
	}
}

// PublishRetry announces the transaction for another execution attempt.
func (p *RetryPublisher) PublishRetry(ctx context.Context, tx *domain.Transaction) error {
	payload, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("failed to marshal retry: %w", err)
	}
	if err := p.conn.Publish(p.subject, payload); err != nil {
		return fmt.Errorf("failed to publish retry: %w", err)
	}
	return nil
}

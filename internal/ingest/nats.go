package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"botwatch/internal/core/domain"
)

// NATSOptions holds the JetStream source settings.
type NATSOptions struct {
	Subject   string
	Durable   string
	BatchSize int
}

// DialNATS connects to the server with endless reconnects.
func DialNATS(url string) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("botwatch-ingest"),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			slog.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			slog.Info("NATS connection closed")
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return conn, nil
}

// NATSConsumer pulls observed-transaction events from a JetStream subject
// and feeds them to the pipeline. When JetStream is not available on the
// server it falls back to a core NATS queue subscription.
type NATSConsumer struct {
	opts     NATSOptions
	pipeline *Pipeline
	conn     *nats.Conn
	js       nats.JetStreamContext
	sub      *nats.Subscription
	stop     chan struct{}
}

// NewNATSConsumer creates a consumer feeding the given pipeline. The
// connection belongs to the caller; Close does not close it.
func NewNATSConsumer(opts NATSOptions, conn *nats.Conn, pipeline *Pipeline) *NATSConsumer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	return &NATSConsumer{
		opts:     opts,
		conn:     conn,
		pipeline: pipeline,
		stop:     make(chan struct{}),
	}
}

// Start begins consuming.
func (c *NATSConsumer) Start() error {
	js, err := c.conn.JetStream()
	if err != nil {
		slog.Warn("JetStream not available, using core NATS", "error", err)
		return c.subscribeCore()
	}
	c.js = js
	return c.subscribeJetStream()
}

func (c *NATSConsumer) subscribeJetStream() error {
	sub, err := c.js.PullSubscribe(c.opts.Subject, c.opts.Durable, nats.AckExplicit())
	if err != nil {
		slog.Warn("Failed to create pull subscription, falling back to core NATS", "error", err)
		return c.subscribeCore()
	}
	c.sub = sub

	go c.fetchLoop()
	slog.Info("JetStream consumer started", "subject", c.opts.Subject, "durable", c.opts.Durable)
	return nil
}

func (c *NATSConsumer) subscribeCore() error {
	sub, err := c.conn.QueueSubscribe(c.opts.Subject, c.opts.Durable, c.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	c.sub = sub
	slog.Info("Core NATS consumer started", "subject", c.opts.Subject, "queue_group", c.opts.Durable)
	return nil
}

func (c *NATSConsumer) fetchLoop() {
	for {
		select {
		case <-c.stop:
			return
		default:
		}

		msgs, err := c.sub.Fetch(c.opts.BatchSize, nats.MaxWait(5*time.Second))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) {
				continue
			}
			if errors.Is(err, nats.ErrConnectionClosed) || errors.Is(err, nats.ErrBadSubscription) {
				return
			}
			slog.Error("Failed to fetch messages", "error", err)
			time.Sleep(time.Second)
			continue
		}

		for _, msg := range msgs {
			c.handleMessage(msg)
		}
	}
}

func (c *NATSConsumer) handleMessage(msg *nats.Msg) {
	var ev domain.TxEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		slog.Error("Failed to unmarshal tx event", "error", err)
		// Redelivery cannot fix a malformed payload
		if msg.Reply != "" {
			_ = msg.Term()
		}
		return
	}
	ev.Source = domain.SourceNATS

	if err := c.pipeline.TrySubmit(&ev); err != nil {
		slog.Warn("Ingest queue full, requeueing message", "tx_id", ev.TxID)
		if msg.Reply != "" {
			_ = msg.Nak()
		}
		return
	}
	if msg.Reply != "" {
		_ = msg.Ack()
	}
}

// IsConnected reports whether the server connection is up.
func (c *NATSConsumer) IsConnected() bool {
	return c.conn != nil && c.conn.IsConnected()
}

// Close stops consuming. The connection stays open for its owner.
func (c *NATSConsumer) Close() error {
	close(c.stop)
	if c.sub != nil {
		_ = c.sub.Unsubscribe()
		c.sub = nil
	}
	slog.Info("NATS consumer closed")
	return nil
}

package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/habitpact/habitpact/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHANGE FEED
// ══════════════════════════════════════════════════════════════════════════════

// ChangeFeedChannel is the Redis Pub/Sub channel all ledger-change notices go
// through. Consumers filter by the user id in the payload.
const ChangeFeedChannel = "habitpact:changes"

// ChangeNotice is the wire form of one "user's ledger changed" notice.
// Delivery is at-least-once; consumers must recompute idempotently.
type ChangeNotice struct {
	UserID     string    `json:"user_id"`
	Kind       string    `json:"kind"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ChangeFeedPublisher publishes change notices to Redis Pub/Sub. It
// implements eventhandler.ChangeFeed.
type ChangeFeedPublisher struct {
	client *goredis.Client
	logger *slog.Logger
}

// NewChangeFeedPublisher creates a new ChangeFeedPublisher.
func NewChangeFeedPublisher(client *goredis.Client, logger *slog.Logger) *ChangeFeedPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChangeFeedPublisher{client: client, logger: logger}
}

// PublishChange sends a notice that the user's ledger changed.
func (p *ChangeFeedPublisher) PublishChange(ctx context.Context, userID shared.UserID, kind shared.EventType) error {
	notice := ChangeNotice{
		UserID:     string(userID),
		Kind:       string(kind),
		OccurredAt: time.Now().UTC(),
	}

	payload, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("changefeed: failed to marshal notice: %w", err)
	}

	if err := p.client.Publish(ctx, ChangeFeedChannel, payload).Err(); err != nil {
		return fmt.Errorf("changefeed: failed to publish notice: %w", err)
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CHANGE FEED CONSUMER
// ══════════════════════════════════════════════════════════════════════════════

// NoticeHandler processes one change notice. Errors are logged, not retried;
// the next notice for the same user repairs any missed recompute.
type NoticeHandler func(ctx context.Context, notice ChangeNotice) error

// ChangeFeedConsumer subscribes to the change feed and dispatches notices to
// a handler. Run in the worker process.
type ChangeFeedConsumer struct {
	client  *goredis.Client
	handler NoticeHandler
	logger  *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewChangeFeedConsumer creates a new ChangeFeedConsumer.
func NewChangeFeedConsumer(client *goredis.Client, handler NoticeHandler, logger *slog.Logger) *ChangeFeedConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChangeFeedConsumer{client: client, handler: handler, logger: logger}
}

// Start subscribes and consumes until ctx is cancelled or Stop is called.
func (c *ChangeFeedConsumer) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return fmt.Errorf("changefeed: consumer already started")
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	c.mu.Unlock()

	sub := c.client.Subscribe(ctx, ChangeFeedChannel)
	// Wait for the subscription to be confirmed before reporting success.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("changefeed: failed to subscribe: %w", err)
	}

	go c.consume(ctx, sub)
	return nil
}

func (c *ChangeFeedConsumer) consume(ctx context.Context, sub *goredis.PubSub) {
	defer close(c.done)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			c.dispatch(ctx, msg.Payload)
		}
	}
}

func (c *ChangeFeedConsumer) dispatch(ctx context.Context, payload string) {
	var notice ChangeNotice
	if err := json.Unmarshal([]byte(payload), &notice); err != nil {
		c.logger.Warn("dropping malformed change notice", "error", err)
		return
	}

	handleCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := c.handler(handleCtx, notice); err != nil {
		c.logger.Error("change notice handler failed",
			"user_id", notice.UserID,
			"kind", notice.Kind,
			"error", err,
		)
	}
}

// Stop cancels the subscription and waits for the consumer loop to exit.
func (c *ChangeFeedConsumer) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	done := c.done
	c.cancel = nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

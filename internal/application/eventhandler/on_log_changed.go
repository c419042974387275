// Package eventhandler wires domain events to their side effects: cache
// invalidation and change-feed notices that drive score recomputation.
package eventhandler

import (
	"context"
	"log/slog"
	"time"

	"github.com/habitpact/habitpact/internal/application/query"
	"github.com/habitpact/habitpact/internal/domain/partnership"
	"github.com/habitpact/habitpact/internal/domain/shared"
)

// ChangeFeed publishes "user X's ledger changed" notices to external
// consumers. Delivery is at-least-once; consumers recompute idempotently.
type ChangeFeed interface {
	PublishChange(ctx context.Context, userID shared.UserID, kind shared.EventType) error
}

// LogChangedHandler reacts to every event that can move a score total. It
// invalidates the score memo for each affected user before the change-feed
// notice goes out, so a reader woken by the notice can never see the stale
// number.
type LogChangedHandler struct {
	partnerships partnership.Repository
	cache        query.ScoreCache
	feed         ChangeFeed
	logger       *slog.Logger

	// timeout bounds the side-effect work per event.
	timeout time.Duration
}

// NewLogChangedHandler creates a new LogChangedHandler. cache and feed may
// each be nil when the corresponding wiring is disabled.
func NewLogChangedHandler(
	partnerships partnership.Repository,
	cache query.ScoreCache,
	feed ChangeFeed,
	logger *slog.Logger,
) *LogChangedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogChangedHandler{
		partnerships: partnerships,
		cache:        cache,
		feed:         feed,
		logger:       logger,
		timeout:      10 * time.Second,
	}
}

// Subscribe registers the handler for all score-moving events.
func (h *LogChangedHandler) Subscribe(bus shared.EventSubscriber) error {
	for _, t := range []shared.EventType{
		shared.EventLogCreated,
		shared.EventLogUpdated,
		shared.EventLogDeleted,
		shared.EventLogApproved,
		shared.EventLogChallenged,
		shared.EventHabitDeleted,
	} {
		if err := bus.Subscribe(t, h.Handle); err != nil {
			return err
		}
	}
	return nil
}

// Handle fans the event out to every user whose derived score it touches:
// the users on the event itself plus, for each of them, their active
// partner (a partner's dashboard shows both totals).
func (h *LogChangedHandler) Handle(event shared.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	affected := make(map[shared.UserID]bool)
	for _, userID := range event.AffectedUsers() {
		if userID.IsEmpty() {
			continue
		}
		affected[userID] = true
		p, err := h.partnerships.GetActiveByUser(ctx, userID)
		if err == nil {
			affected[p.PartnerOf(userID)] = true
		} else if !shared.IsNotFound(err) {
			h.logger.Warn("partner lookup failed during fan-out",
				"user_id", userID, "error", err)
		}
	}

	for userID := range affected {
		if h.cache != nil {
			if err := h.cache.Invalidate(ctx, userID); err != nil {
				h.logger.Warn("score cache invalidation failed",
					"user_id", userID, "error", err)
			}
		}
		if h.feed != nil {
			if err := h.feed.PublishChange(ctx, userID, event.EventType()); err != nil {
				h.logger.Warn("change feed publish failed",
					"user_id", userID, "error", err)
			}
		}
	}
	return nil
}

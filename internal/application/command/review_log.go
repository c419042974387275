package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/habitpact/habitpact/internal/domain/habitlog"
	"github.com/habitpact/habitpact/internal/domain/partnership"
	"github.com/habitpact/habitpact/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REVIEW LOG COMMAND
// The partner's one-shot approve/challenge on a shared entry. The transition
// is a single compare-and-swap on the unreviewed predicate, so of two
// concurrent review actions (two browser tabs) exactly one wins and the
// other fails with ErrAlreadyReviewed.
// ══════════════════════════════════════════════════════════════════════════════

// ReviewAction selects the transition.
type ReviewAction string

const (
	ReviewActionApprove   ReviewAction = "approve"
	ReviewActionChallenge ReviewAction = "challenge"
)

// ReviewLogCommand contains the reviewer's decision.
type ReviewLogCommand struct {
	ReviewerID shared.UserID
	LogID      string
	Action     ReviewAction

	// Reason is required for a challenge, ignored for an approval.
	Reason string
}

// Validate validates the command.
func (c ReviewLogCommand) Validate() error {
	if c.ReviewerID.IsEmpty() {
		return errors.New("review_log: reviewer_id is required")
	}
	if c.LogID == "" {
		return errors.New("review_log: log_id is required")
	}
	switch c.Action {
	case ReviewActionApprove:
	case ReviewActionChallenge:
		if strings.TrimSpace(c.Reason) == "" {
			return shared.ErrEmptyReason
		}
	default:
		return fmt.Errorf("review_log: unknown action: %s", c.Action)
	}
	return nil
}

// ReviewLogHandler handles the ReviewLogCommand.
type ReviewLogHandler struct {
	logs         habitlog.Repository
	partnerships partnership.Repository
	events       shared.EventPublisher
	logger       *slog.Logger
}

// NewReviewLogHandler creates a new ReviewLogHandler.
func NewReviewLogHandler(
	logs habitlog.Repository,
	partnerships partnership.Repository,
	events shared.EventPublisher,
	logger *slog.Logger,
) *ReviewLogHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReviewLogHandler{logs: logs, partnerships: partnerships, events: events, logger: logger}
}

// Handle executes the review command and returns the log with its terminal
// review state.
func (h *ReviewLogHandler) Handle(ctx context.Context, cmd ReviewLogCommand) (*habitlog.Log, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	l, err := h.logs.GetByID(ctx, cmd.LogID)
	if err != nil {
		return nil, fmt.Errorf("review_log: %w", err)
	}
	if !l.RequiresReview {
		return nil, shared.ErrReviewNotOpen
	}

	// Only the owner's current active partner may review.
	p, err := h.partnerships.GetActiveByUser(ctx, l.OwnerID)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.ErrNotPartner
		}
		return nil, fmt.Errorf("review_log: %w", err)
	}
	if p.PartnerOf(l.OwnerID) != cmd.ReviewerID {
		return nil, shared.ErrNotPartner
	}

	now := time.Now().UTC()
	var review habitlog.ReviewState
	var eventType shared.EventType
	switch cmd.Action {
	case ReviewActionApprove:
		review = habitlog.Approved(cmd.ReviewerID, now)
		eventType = shared.EventLogApproved
	case ReviewActionChallenge:
		review = habitlog.Challenged(cmd.ReviewerID, now, strings.TrimSpace(cmd.Reason))
		eventType = shared.EventLogChallenged
	}

	// The store performs the actual state check atomically; a concurrent
	// reviewer losing the race surfaces here as ErrAlreadyReviewed.
	if err := h.logs.TransitionReview(ctx, l.ID, review); err != nil {
		return nil, err
	}
	l.Review = review

	if h.events != nil {
		event := shared.NewBaseEvent(eventType, l.ID, l.OwnerID, cmd.ReviewerID)
		if err := h.events.Publish(event); err != nil {
			h.logger.Warn("failed to publish review event", "log_id", l.ID, "error", err)
		}
	}
	return l, nil
}

package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/habitpact/habitpact/internal/domain/partnership"
	"github.com/habitpact/habitpact/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// END PARTNERSHIP COMMAND
// Either party can unlink. Historical habit and log data stays; previously
// shared habits keep their shared flag, only the live review channel closes.
// ══════════════════════════════════════════════════════════════════════════════

// EndPartnershipCommand identifies the partnership to end.
type EndPartnershipCommand struct {
	CallerID      shared.UserID
	PartnershipID string
}

// Validate validates the command.
func (c EndPartnershipCommand) Validate() error {
	if c.CallerID.IsEmpty() {
		return errors.New("end_partnership: caller_id is required")
	}
	if c.PartnershipID == "" {
		return errors.New("end_partnership: partnership_id is required")
	}
	return nil
}

// EndPartnershipHandler handles the EndPartnershipCommand.
type EndPartnershipHandler struct {
	partnerships partnership.Repository
	events       shared.EventPublisher
	logger       *slog.Logger
}

// NewEndPartnershipHandler creates a new EndPartnershipHandler.
func NewEndPartnershipHandler(
	partnerships partnership.Repository,
	events shared.EventPublisher,
	logger *slog.Logger,
) *EndPartnershipHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EndPartnershipHandler{partnerships: partnerships, events: events, logger: logger}
}

// Handle executes the end partnership command.
func (h *EndPartnershipHandler) Handle(ctx context.Context, cmd EndPartnershipCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	p, err := h.partnerships.GetByID(ctx, cmd.PartnershipID)
	if err != nil {
		return fmt.Errorf("end_partnership: %w", err)
	}

	if err := p.End(cmd.CallerID, time.Now().UTC()); err != nil {
		return err
	}

	if err := h.partnerships.Update(ctx, p); err != nil {
		return err
	}

	if h.events != nil {
		event := shared.NewBaseEvent(shared.EventPartnershipEnded, p.ID, p.UserA, p.UserB)
		if err := h.events.Publish(event); err != nil {
			h.logger.Warn("failed to publish partnership event", "partnership_id", p.ID, "error", err)
		}
	}
	return nil
}

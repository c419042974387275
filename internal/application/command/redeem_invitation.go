package command

import (
	"context"
	"errors"
	"log/slog"

	"github.com/habitpact/habitpact/internal/domain/partnership"
	"github.com/habitpact/habitpact/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REDEEM INVITATION COMMAND
// Converts a pending invitation into an Active partnership. The whole
// check-then-insert runs inside one repository transaction serialized on
// both affected users, so two simultaneous redemptions touching the same
// user cannot both produce an Active partnership.
// ══════════════════════════════════════════════════════════════════════════════

// RedeemInvitationCommand contains the redeemer's code.
type RedeemInvitationCommand struct {
	RedeemerID shared.UserID

	// Code is matched case-insensitively against pending invitations.
	Code string
}

// Validate validates the command.
func (c RedeemInvitationCommand) Validate() error {
	if c.RedeemerID.IsEmpty() {
		return errors.New("redeem_invitation: redeemer_id is required")
	}
	if partnership.NormalizeCode(c.Code) == "" {
		return errors.New("redeem_invitation: code is required")
	}
	return nil
}

// RedeemInvitationHandler handles the RedeemInvitationCommand.
type RedeemInvitationHandler struct {
	partnerships partnership.Repository
	events       shared.EventPublisher
	logger       *slog.Logger
}

// NewRedeemInvitationHandler creates a new RedeemInvitationHandler.
func NewRedeemInvitationHandler(
	partnerships partnership.Repository,
	events shared.EventPublisher,
	logger *slog.Logger,
) *RedeemInvitationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedeemInvitationHandler{partnerships: partnerships, events: events, logger: logger}
}

// Handle executes the redeem command and returns the new Active partnership.
func (h *RedeemInvitationHandler) Handle(ctx context.Context, cmd RedeemInvitationCommand) (*partnership.Partnership, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	p, err := h.partnerships.Redeem(ctx, partnership.NormalizeCode(cmd.Code), cmd.RedeemerID)
	if err != nil {
		return nil, err
	}

	if h.events != nil {
		event := shared.NewBaseEvent(shared.EventPartnershipFormed, p.ID, p.UserA, p.UserB)
		if err := h.events.Publish(event); err != nil {
			h.logger.Warn("failed to publish partnership event", "partnership_id", p.ID, "error", err)
		}
	}
	return p, nil
}

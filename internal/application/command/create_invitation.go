package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/habitpact/habitpact/internal/domain/partnership"
	"github.com/habitpact/habitpact/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE INVITATION COMMAND
// Issues a 6-character, 7-day invite code. The outbound notification is
// best-effort: a failed email never rolls back the invitation.
// ══════════════════════════════════════════════════════════════════════════════

// InviteNotifier delivers the invite code to the invitee. Fire-and-forget
// from the core's perspective.
type InviteNotifier interface {
	NotifyInvite(ctx context.Context, email, code, inviteURL string) error
}

// CreateInvitationCommand contains the data to issue an invitation.
type CreateInvitationCommand struct {
	InviterID shared.UserID

	// InviteeEmail is optional; when set, the notifier is invoked with the
	// code and redemption link.
	InviteeEmail string
}

// Validate validates the command.
func (c CreateInvitationCommand) Validate() error {
	if c.InviterID.IsEmpty() {
		return errors.New("create_invitation: inviter_id is required")
	}
	return nil
}

// CreateInvitationHandler handles the CreateInvitationCommand.
type CreateInvitationHandler struct {
	partnerships partnership.Repository
	notifier     InviteNotifier
	events       shared.EventPublisher
	logger       *slog.Logger

	// inviteBaseURL is prepended to the code for the emailed link.
	inviteBaseURL string
}

// NewCreateInvitationHandler creates a new CreateInvitationHandler.
// notifier may be nil when outbound notifications are disabled.
func NewCreateInvitationHandler(
	partnerships partnership.Repository,
	notifier InviteNotifier,
	events shared.EventPublisher,
	logger *slog.Logger,
	inviteBaseURL string,
) *CreateInvitationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CreateInvitationHandler{
		partnerships:  partnerships,
		notifier:      notifier,
		events:        events,
		logger:        logger,
		inviteBaseURL: inviteBaseURL,
	}
}

// Handle executes the create invitation command.
func (h *CreateInvitationHandler) Handle(ctx context.Context, cmd CreateInvitationCommand) (*partnership.Invitation, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	// An actively partnered user cannot invite a second partner.
	if _, err := h.partnerships.GetActiveByUser(ctx, cmd.InviterID); err == nil {
		return nil, shared.ErrAlreadyPartnered
	} else if !shared.IsNotFound(err) {
		return nil, fmt.Errorf("create_invitation: %w", err)
	}

	inv, err := partnership.NewInvitation(cmd.InviterID, cmd.InviteeEmail)
	if err != nil {
		return nil, err
	}

	if err := h.partnerships.CreateInvitation(ctx, inv); err != nil {
		return nil, err
	}

	if h.notifier != nil && inv.InviteeEmail != "" {
		inviteURL := fmt.Sprintf("%s/invite/%s", h.inviteBaseURL, inv.Code)
		if err := h.notifier.NotifyInvite(ctx, inv.InviteeEmail, inv.Code, inviteURL); err != nil {
			h.logger.Warn("invite notification failed",
				"invitation_id", inv.ID, "error", err)
		}
	}

	if h.events != nil {
		if err := h.events.Publish(shared.NewBaseEvent(shared.EventInvitationCreated, inv.ID, cmd.InviterID)); err != nil {
			h.logger.Warn("failed to publish invitation event", "invitation_id", inv.ID, "error", err)
		}
	}
	return inv, nil
}

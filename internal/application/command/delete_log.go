package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/habitpact/habitpact/internal/domain/habitlog"
	"github.com/habitpact/habitpact/internal/domain/profile"
	"github.com/habitpact/habitpact/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DELETE LOG COMMAND
// Same today-only discipline as updates: an entry can be withdrawn while the
// owner's local day lasts, after that it is history.
// ══════════════════════════════════════════════════════════════════════════════

// DeleteLogCommand identifies the log to delete.
type DeleteLogCommand struct {
	OwnerID shared.UserID
	LogID   string
}

// Validate validates the command.
func (c DeleteLogCommand) Validate() error {
	if c.OwnerID.IsEmpty() {
		return errors.New("delete_log: owner_id is required")
	}
	if c.LogID == "" {
		return errors.New("delete_log: log_id is required")
	}
	return nil
}

// DeleteLogHandler handles the DeleteLogCommand.
type DeleteLogHandler struct {
	logs     habitlog.Repository
	profiles profile.Repository
	events   shared.EventPublisher
	logger   *slog.Logger
}

// NewDeleteLogHandler creates a new DeleteLogHandler.
func NewDeleteLogHandler(
	logs habitlog.Repository,
	profiles profile.Repository,
	events shared.EventPublisher,
	logger *slog.Logger,
) *DeleteLogHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeleteLogHandler{logs: logs, profiles: profiles, events: events, logger: logger}
}

// Handle executes the delete log command.
func (h *DeleteLogHandler) Handle(ctx context.Context, cmd DeleteLogCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	l, err := h.logs.GetByID(ctx, cmd.LogID)
	if err != nil {
		return fmt.Errorf("delete_log: %w", err)
	}
	if !l.IsOwnedBy(cmd.OwnerID) {
		return shared.ErrNotLogOwner
	}

	owner, err := h.profiles.GetByID(ctx, cmd.OwnerID)
	if err != nil {
		return fmt.Errorf("delete_log: %w", err)
	}
	if !l.IsMutableOn(owner.Today(time.Now())) {
		return shared.ErrLogImmutable
	}

	if err := h.logs.Delete(ctx, l.ID); err != nil {
		return err
	}

	if h.events != nil {
		event := shared.NewBaseEvent(shared.EventLogDeleted, l.ID, l.OwnerID)
		if err := h.events.Publish(event); err != nil {
			h.logger.Warn("failed to publish log event", "log_id", l.ID, "error", err)
		}
	}
	return nil
}

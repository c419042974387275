package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/habitpact/habitpact/internal/domain/habit"
	"github.com/habitpact/habitpact/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DELETE HABIT COMMAND
// Owner-only. Deleting a habit cascades its logs at the storage layer, which
// also shifts any derived score the moment the event lands.
// ══════════════════════════════════════════════════════════════════════════════

// DeleteHabitCommand identifies the habit to delete.
type DeleteHabitCommand struct {
	OwnerID shared.UserID
	HabitID string
}

// Validate validates the command.
func (c DeleteHabitCommand) Validate() error {
	if c.OwnerID.IsEmpty() {
		return errors.New("delete_habit: owner_id is required")
	}
	if c.HabitID == "" {
		return errors.New("delete_habit: habit_id is required")
	}
	return nil
}

// DeleteHabitHandler handles the DeleteHabitCommand.
type DeleteHabitHandler struct {
	habits habit.Repository
	events shared.EventPublisher
	logger *slog.Logger
}

// NewDeleteHabitHandler creates a new DeleteHabitHandler.
func NewDeleteHabitHandler(habits habit.Repository, events shared.EventPublisher, logger *slog.Logger) *DeleteHabitHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeleteHabitHandler{habits: habits, events: events, logger: logger}
}

// Handle executes the delete habit command.
func (h *DeleteHabitHandler) Handle(ctx context.Context, cmd DeleteHabitCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	hb, err := h.habits.GetByID(ctx, cmd.HabitID)
	if err != nil {
		return fmt.Errorf("delete_habit: %w", err)
	}
	if !hb.IsOwnedBy(cmd.OwnerID) {
		return shared.ErrNotHabitOwner
	}

	if err := h.habits.Delete(ctx, hb.ID); err != nil {
		return err
	}

	if h.events != nil {
		if err := h.events.Publish(shared.NewBaseEvent(shared.EventHabitDeleted, hb.ID, hb.OwnerID)); err != nil {
			h.logger.Warn("failed to publish habit event", "habit_id", hb.ID, "error", err)
		}
	}
	return nil
}

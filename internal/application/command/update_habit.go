package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/habitpact/habitpact/internal/domain/habit"
	"github.com/habitpact/habitpact/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE HABIT COMMAND
// Owner-only edits. The kind is fixed for the life of the habit; changing
// thresholds only affects future tier resolution, existing logs keep the
// tier they earned.
// ══════════════════════════════════════════════════════════════════════════════

// UpdateHabitCommand contains the owner's patch. Nil pointer fields are left
// unchanged.
type UpdateHabitCommand struct {
	OwnerID shared.UserID
	HabitID string

	Name          *string
	Description   *string
	Thresholds    *habit.Thresholds
	Unit          *string
	Priority      *habit.Priority
	RequiresPhoto *bool
	IsShared      *bool
	WhyStatement  *string
	WhyPhotoURL   *string
	ActiveDays    *shared.Weekdays
	ReminderTime  *string
}

// Validate validates the command.
func (c UpdateHabitCommand) Validate() error {
	if c.OwnerID.IsEmpty() {
		return errors.New("update_habit: owner_id is required")
	}
	if c.HabitID == "" {
		return errors.New("update_habit: habit_id is required")
	}
	if c.Name != nil && strings.TrimSpace(*c.Name) == "" {
		return errors.New("update_habit: name cannot be blank")
	}
	if c.Priority != nil && !c.Priority.IsValid() {
		return errors.New("update_habit: unknown priority")
	}
	return nil
}

// UpdateHabitHandler handles the UpdateHabitCommand.
type UpdateHabitHandler struct {
	habits habit.Repository
	events shared.EventPublisher
	logger *slog.Logger
}

// NewUpdateHabitHandler creates a new UpdateHabitHandler.
func NewUpdateHabitHandler(habits habit.Repository, events shared.EventPublisher, logger *slog.Logger) *UpdateHabitHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UpdateHabitHandler{habits: habits, events: events, logger: logger}
}

// Handle executes the update habit command.
func (h *UpdateHabitHandler) Handle(ctx context.Context, cmd UpdateHabitCommand) (*habit.Habit, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	hb, err := h.habits.GetByID(ctx, cmd.HabitID)
	if err != nil {
		return nil, fmt.Errorf("update_habit: %w", err)
	}
	if !hb.IsOwnedBy(cmd.OwnerID) {
		return nil, shared.ErrNotHabitOwner
	}

	if cmd.Thresholds != nil {
		if hb.Kind != habit.KindTiered {
			return nil, shared.NewDomainError("habit", "Update", shared.ErrInvalidInput, "binary habits have no thresholds")
		}
		if !cmd.Thresholds.IsValid() {
			return nil, shared.ErrInvalidThresholds
		}
		hb.Thresholds = *cmd.Thresholds
	}
	if cmd.Name != nil {
		hb.Name = strings.TrimSpace(*cmd.Name)
	}
	if cmd.Description != nil {
		hb.Description = strings.TrimSpace(*cmd.Description)
	}
	if cmd.Unit != nil {
		hb.Unit = strings.TrimSpace(*cmd.Unit)
	}
	if cmd.Priority != nil {
		hb.Priority = *cmd.Priority
	}
	if cmd.RequiresPhoto != nil {
		hb.RequiresPhoto = *cmd.RequiresPhoto
	}
	if cmd.IsShared != nil {
		hb.IsShared = *cmd.IsShared
	}
	if cmd.WhyStatement != nil {
		hb.WhyStatement = strings.TrimSpace(*cmd.WhyStatement)
	}
	if cmd.WhyPhotoURL != nil {
		hb.WhyPhotoURL = strings.TrimSpace(*cmd.WhyPhotoURL)
	}
	if cmd.ActiveDays != nil && !cmd.ActiveDays.IsEmpty() {
		hb.ActiveDays = *cmd.ActiveDays
	}
	if cmd.ReminderTime != nil {
		hb.ReminderTime = strings.TrimSpace(*cmd.ReminderTime)
	}
	hb.Touch()

	if err := h.habits.Update(ctx, hb); err != nil {
		return nil, err
	}

	if h.events != nil {
		if err := h.events.Publish(shared.NewBaseEvent(shared.EventHabitUpdated, hb.ID, hb.OwnerID)); err != nil {
			h.logger.Warn("failed to publish habit event", "habit_id", hb.ID, "error", err)
		}
	}
	return hb, nil
}

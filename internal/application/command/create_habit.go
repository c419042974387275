package command

import (
	"context"
	"errors"
	"log/slog"

	"github.com/habitpact/habitpact/internal/domain/habit"
	"github.com/habitpact/habitpact/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE HABIT COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// CreateHabitCommand contains the data to create a habit.
type CreateHabitCommand struct {
	OwnerID       shared.UserID
	Name          string
	Description   string
	Kind          habit.Kind
	Thresholds    habit.Thresholds
	Unit          string
	Priority      habit.Priority
	RequiresPhoto bool
	IsShared      bool
	WhyStatement  string
	WhyPhotoURL   string
	ActiveDays    shared.Weekdays
	ReminderTime  string
}

// Validate validates the command.
func (c CreateHabitCommand) Validate() error {
	if c.OwnerID.IsEmpty() {
		return errors.New("create_habit: owner_id is required")
	}
	return nil
}

// CreateHabitHandler handles the CreateHabitCommand.
type CreateHabitHandler struct {
	habits habit.Repository
	events shared.EventPublisher
	logger *slog.Logger
}

// NewCreateHabitHandler creates a new CreateHabitHandler.
func NewCreateHabitHandler(habits habit.Repository, events shared.EventPublisher, logger *slog.Logger) *CreateHabitHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CreateHabitHandler{habits: habits, events: events, logger: logger}
}

// Handle executes the create habit command. Threshold ordering is validated
// here, at creation time, so the tier resolver never sees a malformed set.
func (h *CreateHabitHandler) Handle(ctx context.Context, cmd CreateHabitCommand) (*habit.Habit, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	hb, err := habit.NewHabit(habit.NewHabitParams{
		OwnerID:       cmd.OwnerID,
		Name:          cmd.Name,
		Description:   cmd.Description,
		Kind:          cmd.Kind,
		Thresholds:    cmd.Thresholds,
		Unit:          cmd.Unit,
		Priority:      cmd.Priority,
		RequiresPhoto: cmd.RequiresPhoto,
		IsShared:      cmd.IsShared,
		WhyStatement:  cmd.WhyStatement,
		WhyPhotoURL:   cmd.WhyPhotoURL,
		ActiveDays:    cmd.ActiveDays,
		ReminderTime:  cmd.ReminderTime,
	})
	if err != nil {
		return nil, err
	}

	if err := h.habits.Create(ctx, hb); err != nil {
		return nil, err
	}

	if h.events != nil {
		if err := h.events.Publish(shared.NewBaseEvent(shared.EventHabitCreated, hb.ID, hb.OwnerID)); err != nil {
			h.logger.Warn("failed to publish habit event", "habit_id", hb.ID, "error", err)
		}
	}
	return hb, nil
}

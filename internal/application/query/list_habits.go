package query

import (
	"context"
	"errors"

	"github.com/habitpact/habitpact/internal/domain/habit"
	"github.com/habitpact/habitpact/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST HABITS QUERY
// ══════════════════════════════════════════════════════════════════════════════

// ListHabitsQuery identifies the owner.
type ListHabitsQuery struct {
	OwnerID shared.UserID
}

// Validate validates the query.
func (q ListHabitsQuery) Validate() error {
	if q.OwnerID.IsEmpty() {
		return errors.New("list_habits: owner_id is required")
	}
	return nil
}

// ListHabitsHandler handles the ListHabitsQuery.
type ListHabitsHandler struct {
	habits habit.Repository
}

// NewListHabitsHandler creates a new ListHabitsHandler.
func NewListHabitsHandler(habits habit.Repository) *ListHabitsHandler {
	return &ListHabitsHandler{habits: habits}
}

// Handle returns the owner's habits, newest first.
func (h *ListHabitsHandler) Handle(ctx context.Context, q ListHabitsQuery) ([]*habit.Habit, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return h.habits.GetByOwner(ctx, q.OwnerID)
}

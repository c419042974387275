package habit

import (
	"context"

	"github.com/habitpact/habitpact/internal/domain/shared"
)

// Repository defines the interface for habit persistence.
// This interface is implemented by the infrastructure layer.
// The domain layer has no knowledge of the actual storage mechanism.
type Repository interface {
	// Create persists a new habit.
	Create(ctx context.Context, h *Habit) error

	// GetByID returns a habit by ID.
	// Returns ErrHabitNotFound if no habit matches.
	GetByID(ctx context.Context, id string) (*Habit, error)

	// GetByOwner returns all habits owned by a user, newest first.
	GetByOwner(ctx context.Context, ownerID shared.UserID) ([]*Habit, error)

	// GetSharedByOwner returns the owner's habits with IsShared set,
	// newest first. This is the partner-visible subset.
	GetSharedByOwner(ctx context.Context, ownerID shared.UserID) ([]*Habit, error)

	// Update persists changes to a habit.
	// Returns ErrHabitNotFound if no habit matches.
	Update(ctx context.Context, h *Habit) error

	// Delete removes a habit and cascades its logs.
	// Returns ErrHabitNotFound if no habit matches.
	Delete(ctx context.Context, id string) error
}

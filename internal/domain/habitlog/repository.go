package habitlog

import (
	"context"

	"github.com/habitpact/habitpact/internal/domain/shared"
)

// Repository defines the interface for habit log persistence.
// Implementations must enforce the (habit, logDate) uniqueness constraint at
// the storage level: of N concurrent Create calls for the same key exactly
// one succeeds, the rest fail with ErrDuplicateLog.
type Repository interface {
	// Create persists a new log entry.
	// Returns ErrDuplicateLog if an entry already exists for the habit and date.
	Create(ctx context.Context, l *Log) error

	// GetByID returns a log by ID.
	// Returns ErrLogNotFound if no log matches.
	GetByID(ctx context.Context, id string) (*Log, error)

	// GetByOwner returns all of a user's logs with LogDate inside the period,
	// ascending by date, any review state.
	GetByOwner(ctx context.Context, ownerID shared.UserID, period shared.Period) ([]*Log, error)

	// GetByHabit returns all logs of one habit inside the period, ascending
	// by date.
	GetByHabit(ctx context.Context, habitID string, period shared.Period) ([]*Log, error)

	// GetPendingReview returns the owner's logs that require review and are
	// still unreviewed, ascending by date.
	GetPendingReview(ctx context.Context, ownerID shared.UserID) ([]*Log, error)

	// Update persists owner-side changes (value, photo, mood, note).
	// Review fields are never written through this path.
	// Returns ErrLogNotFound if no log matches.
	Update(ctx context.Context, l *Log) error

	// Delete removes a log entry.
	// Returns ErrLogNotFound if no log matches.
	Delete(ctx context.Context, id string) error

	// TransitionReview writes a terminal review state for the log iff the
	// stored state is still unreviewed, as a single atomic compare-and-swap.
	// Exactly one of N concurrent transitions on a log wins; the rest fail
	// with ErrAlreadyReviewed. Returns ErrLogNotFound if no log matches.
	TransitionReview(ctx context.Context, logID string, review ReviewState) error
}

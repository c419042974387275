// Package habitlog contains the domain model for daily habit entries and the
// partner review state machine.
//
// Invariants owned here:
//   - at most one log per (habit, logDate), enforced as a storage uniqueness
//     constraint rather than a check-then-insert;
//   - only the log dated "today" in the owner's local day may be mutated or
//     deleted, earlier logs are immutable;
//   - a review transition (approve or challenge) happens at most once and is
//     terminal.
package habitlog

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/habitpact/habitpact/internal/domain/habit"
	"github.com/habitpact/habitpact/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ENUMS
// ═══════════════════════════════════════════════════════════════════════════

// Mood is an optional emotion tag the owner attaches to an entry.
type Mood string

const (
	MoodStruggled Mood = "struggled"
	MoodFine      Mood = "fine"
	MoodGood      Mood = "good"
	MoodAmazing   Mood = "amazing"
)

// IsValid checks if the mood is a known value (empty counts as unset).
func (m Mood) IsValid() bool {
	switch m {
	case "", MoodStruggled, MoodFine, MoodGood, MoodAmazing:
		return true
	}
	return false
}

// ReviewStatus names the review state of a log.
type ReviewStatus string

const (
	// ReviewUnreviewed - no partner action yet. Logs that never required
	// review stay here permanently.
	ReviewUnreviewed ReviewStatus = "unreviewed"

	// ReviewApproved - the partner vouched for the entry. Terminal.
	ReviewApproved ReviewStatus = "approved"

	// ReviewChallenged - the partner disputed the entry. Terminal.
	ReviewChallenged ReviewStatus = "challenged"
)

// ═══════════════════════════════════════════════════════════════════════════
// REVIEW STATE
// ═══════════════════════════════════════════════════════════════════════════

// ReviewState is the tagged union Unreviewed | Approved | Challenged.
// ReviewerID, ReviewedAt and Reason are only meaningful outside Unreviewed;
// Reason only for Challenged.
type ReviewState struct {
	Status     ReviewStatus
	ReviewerID shared.UserID
	ReviewedAt time.Time
	Reason     string
}

// Unreviewed returns the initial review state.
func Unreviewed() ReviewState {
	return ReviewState{Status: ReviewUnreviewed}
}

// Approved returns a terminal approved state.
func Approved(reviewerID shared.UserID, at time.Time) ReviewState {
	return ReviewState{Status: ReviewApproved, ReviewerID: reviewerID, ReviewedAt: at}
}

// Challenged returns a terminal challenged state.
func Challenged(reviewerID shared.UserID, at time.Time, reason string) ReviewState {
	return ReviewState{Status: ReviewChallenged, ReviewerID: reviewerID, ReviewedAt: at, Reason: reason}
}

// IsTerminal reports whether the state admits no further transition.
func (s ReviewState) IsTerminal() bool {
	return s.Status == ReviewApproved || s.Status == ReviewChallenged
}

// IsApproved reports whether the partner approved the entry.
func (s ReviewState) IsApproved() bool {
	return s.Status == ReviewApproved
}

// IsChallenged reports whether the partner challenged the entry.
func (s ReviewState) IsChallenged() bool {
	return s.Status == ReviewChallenged
}

// ═══════════════════════════════════════════════════════════════════════════
// HABIT LOG ENTITY
// ═══════════════════════════════════════════════════════════════════════════

// Log is one daily entry against a habit.
type Log struct {
	ID      string
	HabitID string
	OwnerID shared.UserID

	// LogDate is the calendar day in the owner's local timezone;
	// LoggedAt is the instant the entry was written.
	LogDate  shared.Day
	LoggedAt time.Time

	// For tiered habits: the measured value and the tier it earned.
	Value        float64
	TierAchieved habit.Tier

	// Completed marks the entry as done. Binary habits set it directly;
	// tiered habits derive it from the tier (a value below bronze is logged
	// but not completed).
	Completed bool

	PhotoURL string
	Mood     Mood
	Note     string

	// RequiresReview is copied from the habit's shared flag at log time, so
	// ending a partnership never reopens or closes historical review duties.
	RequiresReview bool
	Review         ReviewState

	CreatedAt time.Time
}

// NewLogParams carries the caller-supplied fields for NewLog.
type NewLogParams struct {
	Habit    *habit.Habit
	OwnerID  shared.UserID
	LogDate  shared.Day
	Value    float64
	PhotoURL string
	Mood     Mood
	Note     string
}

// NewLog creates a validated log entry for the given habit and day.
// The tier is resolved here, once, from the habit's thresholds; callers never
// supply a tier directly.
func NewLog(params NewLogParams) (*Log, error) {
	h := params.Habit
	if h == nil {
		return nil, shared.NewDomainError("habitlog", "Create", shared.ErrInvalidInput, "habit is required")
	}
	if params.OwnerID.IsEmpty() {
		return nil, shared.NewDomainError("habitlog", "Create", shared.ErrInvalidID, "owner ID is required")
	}
	if !h.IsOwnedBy(params.OwnerID) {
		return nil, shared.ErrNotHabitOwner
	}
	if params.LogDate.IsZero() {
		return nil, shared.NewDomainError("habitlog", "Create", shared.ErrInvalidInput, "log date is required")
	}
	if !params.Mood.IsValid() {
		return nil, shared.NewDomainError("habitlog", "Create", shared.ErrInvalidInput, "unknown mood")
	}

	now := time.Now().UTC()
	l := &Log{
		ID:             uuid.NewString(),
		HabitID:        h.ID,
		OwnerID:        params.OwnerID,
		LogDate:        params.LogDate,
		LoggedAt:       now,
		PhotoURL:       strings.TrimSpace(params.PhotoURL),
		Mood:           params.Mood,
		Note:           strings.TrimSpace(params.Note),
		RequiresReview: h.IsShared,
		Review:         Unreviewed(),
		CreatedAt:      now,
	}
	if h.Kind == habit.KindTiered {
		l.Value = params.Value
		l.TierAchieved = h.TierFor(params.Value)
		l.Completed = l.TierAchieved != habit.TierNone
	} else {
		l.TierAchieved = habit.TierNone
		l.Completed = true
	}
	return l, nil
}

// IsOwnedBy reports whether the log belongs to the given user.
func (l *Log) IsOwnedBy(userID shared.UserID) bool {
	return l.OwnerID == userID
}

// IsMutableOn reports whether the log may still be changed on the given
// day (the owner's local "today"). All earlier logs are frozen history.
func (l *Log) IsMutableOn(today shared.Day) bool {
	return l.LogDate.Equal(today)
}

// ApplyValue re-measures a tiered entry, re-resolving the tier and the
// derived completion flag.
func (l *Log) ApplyValue(h *habit.Habit, value float64) {
	l.Value = value
	l.TierAchieved = h.TierFor(value)
	if h.Kind == habit.KindTiered {
		l.Completed = l.TierAchieved != habit.TierNone
	}
}

// Approve transitions Unreviewed → Approved. The persistence layer must
// perform the same transition as a compare-and-swap on the unreviewed
// predicate; this method only validates the in-memory preconditions.
func (l *Log) Approve(reviewerID shared.UserID, at time.Time) error {
	if !l.RequiresReview {
		return shared.ErrReviewNotOpen
	}
	if l.Review.IsTerminal() {
		return shared.ErrAlreadyReviewed
	}
	l.Review = Approved(reviewerID, at)
	return nil
}

// Challenge transitions Unreviewed → Challenged. The underlying completion
// data is retained; scoring excludes the entry but history keeps it.
func (l *Log) Challenge(reviewerID shared.UserID, at time.Time, reason string) error {
	if !l.RequiresReview {
		return shared.ErrReviewNotOpen
	}
	if strings.TrimSpace(reason) == "" {
		return shared.ErrEmptyReason
	}
	if l.Review.IsTerminal() {
		return shared.ErrAlreadyReviewed
	}
	l.Review = Challenged(reviewerID, at, strings.TrimSpace(reason))
	return nil
}

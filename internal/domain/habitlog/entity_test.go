package habitlog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitpact/habitpact/internal/domain/habit"
	"github.com/habitpact/habitpact/internal/domain/shared"
)

const (
	ownerID    = shared.UserID("7ed99bd0-87b2-4dbb-a97b-596c3f29c49b")
	reviewerID = shared.UserID("9ca4322d-ebd5-4ffa-a340-56fe811bbab1")
)

func sharedTieredHabit(t *testing.T) *habit.Habit {
	t.Helper()
	h, err := habit.NewHabit(habit.NewHabitParams{
		OwnerID:    ownerID,
		Name:       "Daily steps",
		Kind:       habit.KindTiered,
		Thresholds: habit.Thresholds{Bronze: 3000, Silver: 6000, Gold: 10000},
		Unit:       "steps",
		IsShared:   true,
	})
	require.NoError(t, err)
	return h
}

func newSharedLog(t *testing.T, value float64) *Log {
	t.Helper()
	l, err := NewLog(NewLogParams{
		Habit:   sharedTieredHabit(t),
		OwnerID: ownerID,
		LogDate: shared.NewDay(2026, time.March, 10),
		Value:   value,
	})
	require.NoError(t, err)
	return l
}

func TestNewLog_ResolvesTier(t *testing.T) {
	l := newSharedLog(t, 7000)

	assert.Equal(t, habit.TierSilver, l.TierAchieved)
	assert.True(t, l.Completed)
	assert.True(t, l.RequiresReview, "copied from the habit's shared flag")
	assert.Equal(t, ReviewUnreviewed, l.Review.Status)
}

func TestNewLog_BelowBronzeNotCompleted(t *testing.T) {
	l := newSharedLog(t, 100)

	assert.Equal(t, habit.TierNone, l.TierAchieved)
	assert.False(t, l.Completed)
}

func TestNewLog_Binary(t *testing.T) {
	h, err := habit.NewHabit(habit.NewHabitParams{
		OwnerID: ownerID,
		Name:    "Meditate",
		Kind:    habit.KindBinary,
	})
	require.NoError(t, err)

	l, err := NewLog(NewLogParams{Habit: h, OwnerID: ownerID, LogDate: shared.NewDay(2026, time.March, 10)})
	require.NoError(t, err)

	assert.True(t, l.Completed)
	assert.Equal(t, habit.TierNone, l.TierAchieved)
	assert.False(t, l.RequiresReview)
}

func TestNewLog_RejectsForeignHabit(t *testing.T) {
	_, err := NewLog(NewLogParams{
		Habit:   sharedTieredHabit(t),
		OwnerID: reviewerID,
		LogDate: shared.NewDay(2026, time.March, 10),
	})
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestLog_IsMutableOn(t *testing.T) {
	l := newSharedLog(t, 7000)

	assert.True(t, l.IsMutableOn(shared.NewDay(2026, time.March, 10)))
	assert.False(t, l.IsMutableOn(shared.NewDay(2026, time.March, 11)))
}

func TestLog_ApplyValueRecomputesTier(t *testing.T) {
	h := sharedTieredHabit(t)
	l, err := NewLog(NewLogParams{Habit: h, OwnerID: ownerID, LogDate: shared.NewDay(2026, time.March, 10), Value: 4000})
	require.NoError(t, err)
	require.Equal(t, habit.TierBronze, l.TierAchieved)

	l.ApplyValue(h, 12000)
	assert.Equal(t, habit.TierGold, l.TierAchieved)
	assert.True(t, l.Completed)

	l.ApplyValue(h, 50)
	assert.Equal(t, habit.TierNone, l.TierAchieved)
	assert.False(t, l.Completed)
}

func TestLog_ApproveIsTerminal(t *testing.T) {
	l := newSharedLog(t, 7000)
	now := time.Now().UTC()

	require.NoError(t, l.Approve(reviewerID, now))
	assert.True(t, l.Review.IsApproved())
	assert.Equal(t, reviewerID, l.Review.ReviewerID)

	assert.ErrorIs(t, l.Approve(reviewerID, now), shared.ErrAlreadyReviewed)
	assert.ErrorIs(t, l.Challenge(reviewerID, now, "too late"), shared.ErrAlreadyReviewed)
}

func TestLog_ChallengeIsTerminal(t *testing.T) {
	l := newSharedLog(t, 7000)
	now := time.Now().UTC()

	require.NoError(t, l.Challenge(reviewerID, now, "no proof"))
	assert.True(t, l.Review.IsChallenged())
	assert.Equal(t, "no proof", l.Review.Reason)
	assert.True(t, l.Completed, "completion data is retained for history")

	assert.ErrorIs(t, l.Approve(reviewerID, now), shared.ErrAlreadyReviewed)
}

func TestLog_ChallengeRequiresReason(t *testing.T) {
	l := newSharedLog(t, 7000)

	assert.ErrorIs(t, l.Challenge(reviewerID, time.Now(), "   "), shared.ErrEmptyValue)
	assert.Equal(t, ReviewUnreviewed, l.Review.Status)
}

func TestLog_ReviewClosedWhenNotRequired(t *testing.T) {
	h, err := habit.NewHabit(habit.NewHabitParams{OwnerID: ownerID, Name: "Private", Kind: habit.KindBinary})
	require.NoError(t, err)
	l, err := NewLog(NewLogParams{Habit: h, OwnerID: ownerID, LogDate: shared.NewDay(2026, time.March, 10)})
	require.NoError(t, err)

	assert.ErrorIs(t, l.Approve(reviewerID, time.Now()), shared.ErrForbidden)
	assert.ErrorIs(t, l.Challenge(reviewerID, time.Now(), "x"), shared.ErrForbidden)
}

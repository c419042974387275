package command

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitpact/habitpact/internal/domain/habit"
	"github.com/habitpact/habitpact/internal/domain/habitlog"
	"github.com/habitpact/habitpact/internal/domain/partnership"
	"github.com/habitpact/habitpact/internal/domain/profile"
	"github.com/habitpact/habitpact/internal/domain/shared"
)

type logFixture struct {
	habits   *memHabitRepo
	logs     *memLogRepo
	profiles *memProfileRepo
	events   *recordingPublisher
	blobs    *fakeBlobStore

	owner shared.UserID
}

func newLogFixture(t *testing.T) *logFixture {
	t.Helper()
	f := &logFixture{
		habits:   newMemHabitRepo(),
		logs:     newMemLogRepo(),
		profiles: newMemProfileRepo(),
		events:   &recordingPublisher{},
		blobs:    &fakeBlobStore{url: "https://blob.example/photo.jpg"},
	}
	f.owner = f.newUser(t, "owner@example.com")
	return f
}

func (f *logFixture) newUser(t *testing.T, email string) shared.UserID {
	t.Helper()
	id, err := shared.NewUserID(uuid.NewString())
	require.NoError(t, err)
	p, err := profile.New(id, email)
	require.NoError(t, err)
	require.NoError(t, f.profiles.Upsert(context.Background(), p))
	return id
}

func (f *logFixture) newTieredHabit(t *testing.T, shared_ bool) *habit.Habit {
	t.Helper()
	h, err := habit.NewHabit(habit.NewHabitParams{
		OwnerID:    f.owner,
		Name:       "Daily steps",
		Kind:       habit.KindTiered,
		Thresholds: habit.Thresholds{Bronze: 3000, Silver: 6000, Gold: 10000},
		Unit:       "steps",
		IsShared:   shared_,
		ActiveDays: shared.EveryDay(),
	})
	require.NoError(t, err)
	require.NoError(t, f.habits.Create(context.Background(), h))
	return h
}

func (f *logFixture) createHandler() *CreateLogHandler {
	return NewCreateLogHandler(f.habits, f.logs, f.profiles, f.blobs, f.events, nil)
}

func TestCreateLogHandler_ResolvesTier(t *testing.T) {
	f := newLogFixture(t)
	h := f.newTieredHabit(t, false)

	res, err := f.createHandler().Handle(context.Background(), CreateLogCommand{
		OwnerID: f.owner,
		HabitID: h.ID,
		LogDate: shared.DayOf(time.Now()),
		Value:   7000,
	})
	require.NoError(t, err)
	assert.Equal(t, habit.TierSilver, res.Log.TierAchieved)
	assert.True(t, res.Log.Completed)
	assert.Equal(t, []shared.EventType{shared.EventLogCreated}, f.events.types())
}

func TestCreateLogHandler_DuplicateDate(t *testing.T) {
	f := newLogFixture(t)
	h := f.newTieredHabit(t, false)
	today := shared.DayOf(time.Now())

	handler := f.createHandler()
	cmd := CreateLogCommand{OwnerID: f.owner, HabitID: h.ID, LogDate: today, Value: 4000}

	_, err := handler.Handle(context.Background(), cmd)
	require.NoError(t, err)

	_, err = handler.Handle(context.Background(), cmd)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrDuplicateLog)
}

func TestCreateLogHandler_ForeignHabit(t *testing.T) {
	f := newLogFixture(t)
	h := f.newTieredHabit(t, false)
	stranger := f.newUser(t, "stranger@example.com")

	_, err := f.createHandler().Handle(context.Background(), CreateLogCommand{
		OwnerID: stranger,
		HabitID: h.ID,
		LogDate: shared.DayOf(time.Now()),
		Value:   5000,
	})
	assert.ErrorIs(t, err, shared.ErrNotHabitOwner)
}

func TestCreateLogHandler_DefaultsToOwnerLocalToday(t *testing.T) {
	f := newLogFixture(t)
	h := f.newTieredHabit(t, false)

	res, err := f.createHandler().Handle(context.Background(), CreateLogCommand{
		OwnerID: f.owner,
		HabitID: h.ID,
		Value:   3000,
	})
	require.NoError(t, err)
	assert.False(t, res.Log.LogDate.IsZero())
	assert.Equal(t, shared.DayOf(time.Now().UTC()), res.Log.LogDate)
}

func TestCreateLogHandler_PhotoFailureIsNonFatal(t *testing.T) {
	f := newLogFixture(t)
	f.blobs.err = errBlobDown
	h := f.newTieredHabit(t, false)

	res, err := f.createHandler().Handle(context.Background(), CreateLogCommand{
		OwnerID:          f.owner,
		HabitID:          h.ID,
		LogDate:          shared.DayOf(time.Now()),
		Value:            7000,
		Photo:            []byte{0xff, 0xd8},
		PhotoContentType: "image/jpeg",
	})
	require.NoError(t, err)
	assert.Empty(t, res.Log.PhotoURL)
	require.Error(t, res.PhotoErr)
	assert.ErrorIs(t, res.PhotoErr, shared.ErrExternalService)

	stored, err := f.logs.GetByID(context.Background(), res.Log.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.PhotoURL)
}

func TestCreateLogHandler_PhotoFailureAborts(t *testing.T) {
	f := newLogFixture(t)
	f.blobs.err = errBlobDown
	h := f.newTieredHabit(t, false)

	_, err := f.createHandler().Handle(context.Background(), CreateLogCommand{
		OwnerID:           f.owner,
		HabitID:           h.ID,
		LogDate:           shared.DayOf(time.Now()),
		Value:             7000,
		Photo:             []byte{0xff, 0xd8},
		AbortOnPhotoError: true,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrExternalService)
}

func TestUpdateLogHandler_RecomputesTier(t *testing.T) {
	f := newLogFixture(t)
	h := f.newTieredHabit(t, false)
	today := shared.DayOf(time.Now())

	res, err := f.createHandler().Handle(context.Background(), CreateLogCommand{
		OwnerID: f.owner, HabitID: h.ID, LogDate: today, Value: 4000,
	})
	require.NoError(t, err)
	require.Equal(t, habit.TierBronze, res.Log.TierAchieved)

	handler := NewUpdateLogHandler(f.habits, f.logs, f.profiles, f.blobs, f.events, nil)
	newValue := 12000.0
	updated, err := handler.Handle(context.Background(), UpdateLogCommand{
		OwnerID: f.owner,
		LogID:   res.Log.ID,
		Value:   &newValue,
	})
	require.NoError(t, err)
	assert.Equal(t, habit.TierGold, updated.Log.TierAchieved)
	assert.True(t, updated.Log.Completed)
}

func TestUpdateLogHandler_RejectsPastDates(t *testing.T) {
	f := newLogFixture(t)
	h := f.newTieredHabit(t, false)
	yesterday := shared.DayOf(time.Now()).AddDays(-1)

	res, err := f.createHandler().Handle(context.Background(), CreateLogCommand{
		OwnerID: f.owner, HabitID: h.ID, LogDate: yesterday, Value: 4000,
	})
	require.NoError(t, err)

	handler := NewUpdateLogHandler(f.habits, f.logs, f.profiles, f.blobs, f.events, nil)
	newValue := 12000.0
	_, err = handler.Handle(context.Background(), UpdateLogCommand{
		OwnerID: f.owner,
		LogID:   res.Log.ID,
		Value:   &newValue,
	})
	assert.ErrorIs(t, err, shared.ErrLogImmutable)
}

func TestUpdateLogHandler_ForeignLog(t *testing.T) {
	f := newLogFixture(t)
	h := f.newTieredHabit(t, false)
	stranger := f.newUser(t, "stranger@example.com")

	res, err := f.createHandler().Handle(context.Background(), CreateLogCommand{
		OwnerID: f.owner, HabitID: h.ID, LogDate: shared.DayOf(time.Now()), Value: 4000,
	})
	require.NoError(t, err)

	handler := NewUpdateLogHandler(f.habits, f.logs, f.profiles, f.blobs, f.events, nil)
	note := "not yours"
	_, err = handler.Handle(context.Background(), UpdateLogCommand{
		OwnerID: stranger,
		LogID:   res.Log.ID,
		Note:    &note,
	})
	assert.ErrorIs(t, err, shared.ErrNotLogOwner)
}

func TestDeleteLogHandler_TodayOnly(t *testing.T) {
	f := newLogFixture(t)
	h := f.newTieredHabit(t, false)
	handler := NewDeleteLogHandler(f.logs, f.profiles, f.events, nil)

	resToday, err := f.createHandler().Handle(context.Background(), CreateLogCommand{
		OwnerID: f.owner, HabitID: h.ID, LogDate: shared.DayOf(time.Now()), Value: 4000,
	})
	require.NoError(t, err)
	resPast, err := f.createHandler().Handle(context.Background(), CreateLogCommand{
		OwnerID: f.owner, HabitID: h.ID, LogDate: shared.DayOf(time.Now()).AddDays(-3), Value: 4000,
	})
	require.NoError(t, err)

	err = handler.Handle(context.Background(), DeleteLogCommand{OwnerID: f.owner, LogID: resToday.Log.ID})
	require.NoError(t, err)
	_, err = f.logs.GetByID(context.Background(), resToday.Log.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	err = handler.Handle(context.Background(), DeleteLogCommand{OwnerID: f.owner, LogID: resPast.Log.ID})
	assert.ErrorIs(t, err, shared.ErrLogImmutable)
}

// reviewFixture wires an owner, their active partner and one shared-habit log
// pending review.
type reviewFixture struct {
	*logFixture
	partnerships *memPartnershipRepo
	partner      shared.UserID
	log          *habitlog.Log
}

func newReviewFixture(t *testing.T) *reviewFixture {
	t.Helper()
	f := &reviewFixture{
		logFixture:   newLogFixture(t),
		partnerships: newMemPartnershipRepo(),
	}
	f.partner = f.newUser(t, "partner@example.com")

	inv, err := partnership.NewInvitation(f.owner, "")
	require.NoError(t, err)
	require.NoError(t, f.partnerships.CreateInvitation(context.Background(), inv))
	_, err = f.partnerships.Redeem(context.Background(), inv.Code, f.partner)
	require.NoError(t, err)

	h := f.newTieredHabit(t, true)
	res, err := f.createHandler().Handle(context.Background(), CreateLogCommand{
		OwnerID: f.owner, HabitID: h.ID, LogDate: shared.DayOf(time.Now()), Value: 7000,
	})
	require.NoError(t, err)
	require.True(t, res.Log.RequiresReview)
	f.log = res.Log
	return f
}

func (f *reviewFixture) reviewHandler() *ReviewLogHandler {
	return NewReviewLogHandler(f.logs, f.partnerships, f.events, nil)
}

func TestReviewLogHandler_Approve(t *testing.T) {
	f := newReviewFixture(t)

	l, err := f.reviewHandler().Handle(context.Background(), ReviewLogCommand{
		ReviewerID: f.partner,
		LogID:      f.log.ID,
		Action:     ReviewActionApprove,
	})
	require.NoError(t, err)
	assert.True(t, l.Review.IsApproved())
	assert.Contains(t, f.events.types(), shared.EventLogApproved)
}

func TestReviewLogHandler_ChallengeNeedsReason(t *testing.T) {
	f := newReviewFixture(t)

	_, err := f.reviewHandler().Handle(context.Background(), ReviewLogCommand{
		ReviewerID: f.partner,
		LogID:      f.log.ID,
		Action:     ReviewActionChallenge,
		Reason:     "   ",
	})
	assert.ErrorIs(t, err, shared.ErrEmptyReason)

	l, err := f.reviewHandler().Handle(context.Background(), ReviewLogCommand{
		ReviewerID: f.partner,
		LogID:      f.log.ID,
		Action:     ReviewActionChallenge,
		Reason:     "photo shows a different day",
	})
	require.NoError(t, err)
	assert.True(t, l.Review.IsChallenged())
	assert.Equal(t, "photo shows a different day", l.Review.Reason)
}

func TestReviewLogHandler_SecondReviewLoses(t *testing.T) {
	f := newReviewFixture(t)

	_, err := f.reviewHandler().Handle(context.Background(), ReviewLogCommand{
		ReviewerID: f.partner, LogID: f.log.ID, Action: ReviewActionApprove,
	})
	require.NoError(t, err)

	_, err = f.reviewHandler().Handle(context.Background(), ReviewLogCommand{
		ReviewerID: f.partner, LogID: f.log.ID, Action: ReviewActionChallenge, Reason: "changed my mind",
	})
	assert.ErrorIs(t, err, shared.ErrAlreadyReviewed)
}

func TestReviewLogHandler_StrangerForbidden(t *testing.T) {
	f := newReviewFixture(t)
	stranger := f.newUser(t, "outsider@example.com")

	_, err := f.reviewHandler().Handle(context.Background(), ReviewLogCommand{
		ReviewerID: stranger, LogID: f.log.ID, Action: ReviewActionApprove,
	})
	assert.ErrorIs(t, err, shared.ErrNotPartner)
}

func TestReviewLogHandler_OwnerCannotSelfReview(t *testing.T) {
	f := newReviewFixture(t)

	_, err := f.reviewHandler().Handle(context.Background(), ReviewLogCommand{
		ReviewerID: f.owner, LogID: f.log.ID, Action: ReviewActionApprove,
	})
	assert.ErrorIs(t, err, shared.ErrNotPartner)
}

func TestReviewLogHandler_PrivateLogNotReviewable(t *testing.T) {
	f := newReviewFixture(t)
	private := f.newTieredHabit(t, false)
	res, err := f.createHandler().Handle(context.Background(), CreateLogCommand{
		OwnerID: f.owner, HabitID: private.ID, LogDate: shared.DayOf(time.Now()), Value: 7000,
	})
	require.NoError(t, err)

	_, err = f.reviewHandler().Handle(context.Background(), ReviewLogCommand{
		ReviewerID: f.partner, LogID: res.Log.ID, Action: ReviewActionApprove,
	})
	assert.ErrorIs(t, err, shared.ErrReviewNotOpen)
}

func TestCreateLogCommand_Validate(t *testing.T) {
	owner, err := shared.NewUserID(uuid.NewString())
	require.NoError(t, err)

	tests := []struct {
		name    string
		cmd     CreateLogCommand
		wantErr bool
	}{
		{"valid", CreateLogCommand{OwnerID: owner, HabitID: "h1"}, false},
		{"missing owner", CreateLogCommand{HabitID: "h1"}, true},
		{"missing habit", CreateLogCommand{OwnerID: owner}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cmd.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

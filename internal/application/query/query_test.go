package query

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitpact/habitpact/internal/domain/habit"
	"github.com/habitpact/habitpact/internal/domain/habitlog"
	"github.com/habitpact/habitpact/internal/domain/partnership"
	"github.com/habitpact/habitpact/internal/domain/profile"
	"github.com/habitpact/habitpact/internal/domain/scoring"
	"github.com/habitpact/habitpact/internal/domain/shared"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fakes
// ─────────────────────────────────────────────────────────────────────────────

type stubLogRepo struct {
	logs []*habitlog.Log

	// ownerReads counts GetByOwner calls, to observe cache hits.
	ownerReads int
}

func (r *stubLogRepo) Create(context.Context, *habitlog.Log) error { return nil }

func (r *stubLogRepo) GetByID(_ context.Context, id string) (*habitlog.Log, error) {
	for _, l := range r.logs {
		if l.ID == id {
			return l, nil
		}
	}
	return nil, shared.ErrLogNotFound
}

func (r *stubLogRepo) GetByOwner(_ context.Context, ownerID shared.UserID, period shared.Period) ([]*habitlog.Log, error) {
	r.ownerReads++
	var out []*habitlog.Log
	for _, l := range r.logs {
		if l.OwnerID == ownerID && period.Contains(l.LogDate) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *stubLogRepo) GetByHabit(_ context.Context, habitID string, period shared.Period) ([]*habitlog.Log, error) {
	var out []*habitlog.Log
	for _, l := range r.logs {
		if l.HabitID == habitID && period.Contains(l.LogDate) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *stubLogRepo) GetPendingReview(_ context.Context, ownerID shared.UserID) ([]*habitlog.Log, error) {
	var out []*habitlog.Log
	for _, l := range r.logs {
		if l.OwnerID == ownerID && l.RequiresReview && !l.Review.IsTerminal() {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *stubLogRepo) Update(context.Context, *habitlog.Log) error { return nil }
func (r *stubLogRepo) Delete(context.Context, string) error        { return nil }
func (r *stubLogRepo) TransitionReview(context.Context, string, habitlog.ReviewState) error {
	return nil
}

type stubPartnershipRepo struct {
	active  *partnership.Partnership
	pending []*partnership.Invitation
}

func (r *stubPartnershipRepo) CreateInvitation(context.Context, *partnership.Invitation) error {
	return nil
}

func (r *stubPartnershipRepo) GetInvitationByCode(context.Context, string) (*partnership.Invitation, error) {
	return nil, shared.ErrInvitationNotFound
}

func (r *stubPartnershipRepo) GetInvitationsByInviter(_ context.Context, inviterID shared.UserID) ([]*partnership.Invitation, error) {
	var out []*partnership.Invitation
	for _, inv := range r.pending {
		if inv.InviterID == inviterID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (r *stubPartnershipRepo) UpdateInvitation(context.Context, *partnership.Invitation) error {
	return nil
}

func (r *stubPartnershipRepo) Redeem(context.Context, string, shared.UserID) (*partnership.Partnership, error) {
	return nil, shared.ErrInvitationNotFound
}

func (r *stubPartnershipRepo) GetByID(context.Context, string) (*partnership.Partnership, error) {
	return nil, shared.ErrPartnershipNotFound
}

func (r *stubPartnershipRepo) GetActiveByUser(_ context.Context, userID shared.UserID) (*partnership.Partnership, error) {
	if r.active != nil && r.active.IsActive() && r.active.IsParty(userID) {
		return r.active, nil
	}
	return nil, shared.ErrPartnershipNotFound
}

func (r *stubPartnershipRepo) Update(context.Context, *partnership.Partnership) error { return nil }

type stubHabitRepo struct {
	habits []*habit.Habit
}

func (r *stubHabitRepo) Create(context.Context, *habit.Habit) error { return nil }

func (r *stubHabitRepo) GetByID(_ context.Context, id string) (*habit.Habit, error) {
	for _, h := range r.habits {
		if h.ID == id {
			return h, nil
		}
	}
	return nil, shared.ErrHabitNotFound
}

func (r *stubHabitRepo) GetByOwner(_ context.Context, ownerID shared.UserID) ([]*habit.Habit, error) {
	var out []*habit.Habit
	for _, h := range r.habits {
		if h.OwnerID == ownerID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (r *stubHabitRepo) GetSharedByOwner(ctx context.Context, ownerID shared.UserID) ([]*habit.Habit, error) {
	all, _ := r.GetByOwner(ctx, ownerID)
	var out []*habit.Habit
	for _, h := range all {
		if h.IsShared {
			out = append(out, h)
		}
	}
	return out, nil
}

func (r *stubHabitRepo) Update(context.Context, *habit.Habit) error { return nil }
func (r *stubHabitRepo) Delete(context.Context, string) error       { return nil }

type stubProfileRepo struct {
	profiles map[shared.UserID]*profile.Profile
}

func (r *stubProfileRepo) Upsert(_ context.Context, p *profile.Profile) error {
	if r.profiles == nil {
		r.profiles = make(map[shared.UserID]*profile.Profile)
	}
	r.profiles[p.ID] = p
	return nil
}

func (r *stubProfileRepo) GetByID(_ context.Context, id shared.UserID) (*profile.Profile, error) {
	if p, ok := r.profiles[id]; ok {
		return p, nil
	}
	return nil, shared.ErrProfileNotFound
}

func (r *stubProfileRepo) GetByEmail(context.Context, string) (*profile.Profile, error) {
	return nil, shared.ErrProfileNotFound
}

type memScoreCache struct {
	entries map[string]scoring.Score
	sets    int
}

func cacheKey(userID shared.UserID, period shared.Period) string {
	return fmt.Sprintf("%s:%s:%s", userID, period.Start, period.End)
}

func (c *memScoreCache) Get(_ context.Context, userID shared.UserID, period shared.Period) (scoring.Score, bool, error) {
	s, ok := c.entries[cacheKey(userID, period)]
	return s, ok, nil
}

func (c *memScoreCache) Set(_ context.Context, score scoring.Score, _ time.Duration) error {
	if c.entries == nil {
		c.entries = make(map[string]scoring.Score)
	}
	c.entries[cacheKey(score.UserID, score.Period)] = score
	c.sets++
	return nil
}

func (c *memScoreCache) Invalidate(_ context.Context, userID shared.UserID) error {
	for k := range c.entries {
		if len(k) >= len(userID) && k[:len(userID)] == string(userID) {
			delete(c.entries, k)
		}
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func newUserID(t *testing.T) shared.UserID {
	t.Helper()
	id, err := shared.NewUserID(uuid.NewString())
	require.NoError(t, err)
	return id
}

func newStepsHabit(t *testing.T, owner shared.UserID, isShared bool) *habit.Habit {
	t.Helper()
	h, err := habit.NewHabit(habit.NewHabitParams{
		OwnerID:    owner,
		Name:       "Daily steps",
		Kind:       habit.KindTiered,
		Thresholds: habit.Thresholds{Bronze: 3000, Silver: 6000, Gold: 10000},
		Unit:       "steps",
		IsShared:   isShared,
	})
	require.NoError(t, err)
	return h
}

func newStepsLog(t *testing.T, h *habit.Habit, day shared.Day, value float64) *habitlog.Log {
	t.Helper()
	l, err := habitlog.NewLog(habitlog.NewLogParams{
		Habit:   h,
		OwnerID: h.OwnerID,
		LogDate: day,
		Value:   value,
	})
	require.NoError(t, err)
	return l
}

func activePair(t *testing.T, a, b shared.UserID) *partnership.Partnership {
	t.Helper()
	inv, err := partnership.NewInvitation(a, "")
	require.NoError(t, err)
	require.NoError(t, inv.Accept(b, time.Now().UTC()))
	return partnership.NewPartnership(inv, b, time.Now().UTC())
}

func mustPeriod(t *testing.T, start, end string) shared.Period {
	t.Helper()
	s, err := shared.ParseDay(start)
	require.NoError(t, err)
	e, err := shared.ParseDay(end)
	require.NoError(t, err)
	p, err := shared.NewPeriod(s, e)
	require.NoError(t, err)
	return p
}

// ─────────────────────────────────────────────────────────────────────────────
// GetScore
// ─────────────────────────────────────────────────────────────────────────────

func TestGetScoreHandler_ComputesFromLogs(t *testing.T) {
	owner := newUserID(t)
	h := newStepsHabit(t, owner, false)
	period := mustPeriod(t, "2026-03-01", "2026-03-31")

	logs := &stubLogRepo{logs: []*habitlog.Log{
		newStepsLog(t, h, mustDay(t, "2026-03-01"), 12000), // gold, 3
		newStepsLog(t, h, mustDay(t, "2026-03-02"), 7000),  // silver, 2
	}}

	handler := NewGetScoreHandler(logs, &stubPartnershipRepo{}, &stubProfileRepo{}, nil, 0, nil)
	pair, err := handler.Handle(context.Background(), GetScoreQuery{UserID: owner, Period: period})
	require.NoError(t, err)
	assert.Equal(t, 5, pair.User.TotalPoints)
	assert.Equal(t, 2, pair.User.LogsCounted)
	assert.Nil(t, pair.Partner)
}

func TestGetScoreHandler_CacheHitSkipsRecompute(t *testing.T) {
	owner := newUserID(t)
	h := newStepsHabit(t, owner, false)
	period := mustPeriod(t, "2026-03-01", "2026-03-31")

	logs := &stubLogRepo{logs: []*habitlog.Log{
		newStepsLog(t, h, mustDay(t, "2026-03-01"), 12000),
	}}
	cache := &memScoreCache{}
	handler := NewGetScoreHandler(logs, &stubPartnershipRepo{}, &stubProfileRepo{}, cache, time.Minute, nil)

	q := GetScoreQuery{UserID: owner, Period: period}
	first, err := handler.Handle(context.Background(), q)
	require.NoError(t, err)
	second, err := handler.Handle(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, first.User, second.User)
	assert.Equal(t, 1, logs.ownerReads)
	assert.Equal(t, 1, cache.sets)
}

func TestGetScoreHandler_RecomputeRefreshesCache(t *testing.T) {
	owner := newUserID(t)
	h := newStepsHabit(t, owner, false)
	period := mustPeriod(t, "2026-03-01", "2026-03-31")

	logs := &stubLogRepo{logs: []*habitlog.Log{
		newStepsLog(t, h, mustDay(t, "2026-03-01"), 4000), // bronze, 1
	}}
	cache := &memScoreCache{}
	handler := NewGetScoreHandler(logs, &stubPartnershipRepo{}, &stubProfileRepo{}, cache, time.Minute, nil)

	q := GetScoreQuery{UserID: owner, Period: period}
	pair, err := handler.Handle(context.Background(), q)
	require.NoError(t, err)
	require.Equal(t, 1, pair.User.TotalPoints)

	// The snapshot changes; a stale memo would still answer 1.
	logs.logs = append(logs.logs, newStepsLog(t, h, mustDay(t, "2026-03-02"), 12000))
	score, err := handler.Recompute(context.Background(), owner, period)
	require.NoError(t, err)
	assert.Equal(t, 4, score.TotalPoints)

	pair, err = handler.Handle(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, 4, pair.User.TotalPoints)
}

func TestGetScoreHandler_IncludesPartner(t *testing.T) {
	owner := newUserID(t)
	partner := newUserID(t)
	period := mustPeriod(t, "2026-03-01", "2026-03-31")

	ownerHabit := newStepsHabit(t, owner, false)
	partnerHabit := newStepsHabit(t, partner, false)
	logs := &stubLogRepo{logs: []*habitlog.Log{
		newStepsLog(t, ownerHabit, mustDay(t, "2026-03-01"), 12000),  // 3
		newStepsLog(t, partnerHabit, mustDay(t, "2026-03-01"), 4000), // 1
	}}
	partnerships := &stubPartnershipRepo{active: activePair(t, owner, partner)}

	handler := NewGetScoreHandler(logs, partnerships, &stubProfileRepo{}, nil, 0, nil)
	pair, err := handler.Handle(context.Background(), GetScoreQuery{
		UserID: owner, Period: period, IncludePartner: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, pair.User.TotalPoints)
	require.NotNil(t, pair.Partner)
	assert.Equal(t, 1, pair.Partner.TotalPoints)
	assert.Equal(t, partner, pair.Partner.UserID)
}

func TestGetScoreHandler_UnpartneredOmitsPartner(t *testing.T) {
	owner := newUserID(t)
	period := mustPeriod(t, "2026-03-01", "2026-03-31")
	handler := NewGetScoreHandler(&stubLogRepo{}, &stubPartnershipRepo{}, &stubProfileRepo{}, nil, 0, nil)

	pair, err := handler.Handle(context.Background(), GetScoreQuery{
		UserID: owner, Period: period, IncludePartner: true,
	})
	require.NoError(t, err)
	assert.Zero(t, pair.User.TotalPoints)
	assert.Nil(t, pair.Partner)
}

func TestGetScoreHandler_DefaultsToOwnerLocalMonth(t *testing.T) {
	owner := newUserID(t)
	profiles := &stubProfileRepo{}
	p, err := profile.New(owner, "owner@example.com")
	require.NoError(t, err)
	require.NoError(t, profiles.Upsert(context.Background(), p))

	handler := NewGetScoreHandler(&stubLogRepo{}, &stubPartnershipRepo{}, profiles, nil, 0, nil)
	pair, err := handler.Handle(context.Background(), GetScoreQuery{UserID: owner})
	require.NoError(t, err)

	want := shared.MonthOf(shared.DayOf(time.Now().UTC()))
	assert.Equal(t, want, pair.User.Period)
}

func mustDay(t *testing.T, s string) shared.Day {
	t.Helper()
	d, err := shared.ParseDay(s)
	require.NoError(t, err)
	return d
}

// ─────────────────────────────────────────────────────────────────────────────
// ListLogs
// ─────────────────────────────────────────────────────────────────────────────

func TestListLogsHandler_FiltersByHabit(t *testing.T) {
	owner := newUserID(t)
	steps := newStepsHabit(t, owner, false)
	pages := newStepsHabit(t, owner, false)
	period := mustPeriod(t, "2026-03-01", "2026-03-31")

	logs := &stubLogRepo{logs: []*habitlog.Log{
		newStepsLog(t, steps, mustDay(t, "2026-03-01"), 5000),
		newStepsLog(t, pages, mustDay(t, "2026-03-01"), 5000),
		newStepsLog(t, steps, mustDay(t, "2026-04-01"), 5000), // outside period
	}}
	handler := NewListLogsHandler(logs)

	all, err := handler.Handle(context.Background(), ListLogsQuery{OwnerID: owner, Period: period})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlySteps, err := handler.Handle(context.Background(), ListLogsQuery{
		OwnerID: owner, Period: period, HabitID: steps.ID,
	})
	require.NoError(t, err)
	require.Len(t, onlySteps, 1)
	assert.Equal(t, steps.ID, onlySteps[0].HabitID)
}

func TestListLogsHandler_RequiresPeriod(t *testing.T) {
	handler := NewListLogsHandler(&stubLogRepo{})
	_, err := handler.Handle(context.Background(), ListLogsQuery{OwnerID: newUserID(t)})
	assert.Error(t, err)
}

// ─────────────────────────────────────────────────────────────────────────────
// GetPartnership
// ─────────────────────────────────────────────────────────────────────────────

func TestGetPartnershipHandler_Partnered(t *testing.T) {
	owner := newUserID(t)
	partner := newUserID(t)

	profiles := &stubProfileRepo{}
	pp, err := profile.New(partner, "partner@example.com")
	require.NoError(t, err)
	require.NoError(t, profiles.Upsert(context.Background(), pp))

	repo := &stubPartnershipRepo{active: activePair(t, owner, partner)}
	handler := NewGetPartnershipHandler(repo, profiles)

	view, err := handler.Handle(context.Background(), GetPartnershipQuery{UserID: owner})
	require.NoError(t, err)
	assert.True(t, view.HasPartner())
	require.NotNil(t, view.Partner)
	assert.Equal(t, "partner@example.com", view.Partner.Email)
}

func TestGetPartnershipHandler_UnpartneredIsNormal(t *testing.T) {
	owner := newUserID(t)
	inv, err := partnership.NewInvitation(owner, "friend@example.com")
	require.NoError(t, err)

	repo := &stubPartnershipRepo{pending: []*partnership.Invitation{inv}}
	handler := NewGetPartnershipHandler(repo, &stubProfileRepo{})

	view, err := handler.Handle(context.Background(), GetPartnershipQuery{UserID: owner})
	require.NoError(t, err)
	assert.False(t, view.HasPartner())
	assert.Len(t, view.PendingInvitations, 1)
}

// ─────────────────────────────────────────────────────────────────────────────
// ListPartnerHabits
// ─────────────────────────────────────────────────────────────────────────────

func TestListPartnerHabitsHandler(t *testing.T) {
	owner := newUserID(t)
	partner := newUserID(t)

	sharedHabit := newStepsHabit(t, partner, true)
	privateHabit := newStepsHabit(t, partner, false)
	habits := &stubHabitRepo{habits: []*habit.Habit{sharedHabit, privateHabit}}

	pendingLog := newStepsLog(t, sharedHabit, mustDay(t, "2026-03-01"), 7000)
	reviewed := newStepsLog(t, sharedHabit, mustDay(t, "2026-03-02"), 7000)
	require.NoError(t, reviewed.Approve(owner, time.Now().UTC()))
	logs := &stubLogRepo{logs: []*habitlog.Log{pendingLog, reviewed}}

	repo := &stubPartnershipRepo{active: activePair(t, owner, partner)}
	handler := NewListPartnerHabitsHandler(habits, logs, repo)

	view, err := handler.Handle(context.Background(), ListPartnerHabitsQuery{UserID: owner})
	require.NoError(t, err)
	assert.Equal(t, partner, view.PartnerID)
	require.Len(t, view.SharedHabits, 1)
	assert.Equal(t, sharedHabit.ID, view.SharedHabits[0].ID)
	require.Len(t, view.PendingReview, 1)
	assert.Equal(t, pendingLog.ID, view.PendingReview[0].ID)
}

func TestListPartnerHabitsHandler_Unpartnered(t *testing.T) {
	handler := NewListPartnerHabitsHandler(&stubHabitRepo{}, &stubLogRepo{}, &stubPartnershipRepo{})
	_, err := handler.Handle(context.Background(), ListPartnerHabitsQuery{UserID: newUserID(t)})
	assert.ErrorIs(t, err, shared.ErrNotPartner)
}

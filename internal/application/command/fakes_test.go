package command

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/habitpact/habitpact/internal/domain/habit"
	"github.com/habitpact/habitpact/internal/domain/habitlog"
	"github.com/habitpact/habitpact/internal/domain/partnership"
	"github.com/habitpact/habitpact/internal/domain/profile"
	"github.com/habitpact/habitpact/internal/domain/shared"
)

// In-memory repository fakes for handler tests. They mirror the storage
// invariants the real postgres layer enforces: (habit, logDate) uniqueness,
// the review compare-and-swap and one-active-partnership-per-user.

// ─────────────────────────────────────────────────────────────────────────────
// Habit repository fake
// ─────────────────────────────────────────────────────────────────────────────

type memHabitRepo struct {
	mu     sync.Mutex
	habits map[string]*habit.Habit
}

func newMemHabitRepo() *memHabitRepo {
	return &memHabitRepo{habits: make(map[string]*habit.Habit)}
}

func (r *memHabitRepo) Create(_ context.Context, h *habit.Habit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *h
	r.habits[h.ID] = &cp
	return nil
}

func (r *memHabitRepo) GetByID(_ context.Context, id string) (*habit.Habit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.habits[id]
	if !ok {
		return nil, shared.ErrHabitNotFound
	}
	cp := *h
	return &cp, nil
}

func (r *memHabitRepo) GetByOwner(_ context.Context, ownerID shared.UserID) ([]*habit.Habit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*habit.Habit
	for _, h := range r.habits {
		if h.OwnerID == ownerID {
			cp := *h
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memHabitRepo) GetSharedByOwner(ctx context.Context, ownerID shared.UserID) ([]*habit.Habit, error) {
	all, _ := r.GetByOwner(ctx, ownerID)
	var out []*habit.Habit
	for _, h := range all {
		if h.IsShared {
			out = append(out, h)
		}
	}
	return out, nil
}

func (r *memHabitRepo) Update(_ context.Context, h *habit.Habit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.habits[h.ID]; !ok {
		return shared.ErrHabitNotFound
	}
	cp := *h
	r.habits[h.ID] = &cp
	return nil
}

func (r *memHabitRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.habits[id]; !ok {
		return shared.ErrHabitNotFound
	}
	delete(r.habits, id)
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Log repository fake
// ─────────────────────────────────────────────────────────────────────────────

type memLogRepo struct {
	mu   sync.Mutex
	logs map[string]*habitlog.Log
	keys map[string]bool // habitID + "|" + logDate
}

func newMemLogRepo() *memLogRepo {
	return &memLogRepo{logs: make(map[string]*habitlog.Log), keys: make(map[string]bool)}
}

func logKey(habitID string, d shared.Day) string {
	return habitID + "|" + d.String()
}

func (r *memLogRepo) Create(_ context.Context, l *habitlog.Log) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := logKey(l.HabitID, l.LogDate)
	if r.keys[key] {
		return shared.ErrDuplicateLog
	}
	r.keys[key] = true
	cp := *l
	r.logs[l.ID] = &cp
	return nil
}

func (r *memLogRepo) GetByID(_ context.Context, id string) (*habitlog.Log, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.logs[id]
	if !ok {
		return nil, shared.ErrLogNotFound
	}
	cp := *l
	return &cp, nil
}

func (r *memLogRepo) GetByOwner(_ context.Context, ownerID shared.UserID, period shared.Period) ([]*habitlog.Log, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*habitlog.Log
	for _, l := range r.logs {
		if l.OwnerID == ownerID && period.Contains(l.LogDate) {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memLogRepo) GetByHabit(_ context.Context, habitID string, period shared.Period) ([]*habitlog.Log, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*habitlog.Log
	for _, l := range r.logs {
		if l.HabitID == habitID && period.Contains(l.LogDate) {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memLogRepo) GetPendingReview(_ context.Context, ownerID shared.UserID) ([]*habitlog.Log, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*habitlog.Log
	for _, l := range r.logs {
		if l.OwnerID == ownerID && l.RequiresReview && !l.Review.IsTerminal() {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memLogRepo) Update(_ context.Context, l *habitlog.Log) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.logs[l.ID]; !ok {
		return shared.ErrLogNotFound
	}
	cp := *l
	r.logs[l.ID] = &cp
	return nil
}

func (r *memLogRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.logs[id]
	if !ok {
		return shared.ErrLogNotFound
	}
	delete(r.keys, logKey(l.HabitID, l.LogDate))
	delete(r.logs, id)
	return nil
}

func (r *memLogRepo) TransitionReview(_ context.Context, logID string, review habitlog.ReviewState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.logs[logID]
	if !ok {
		return shared.ErrLogNotFound
	}
	if l.Review.IsTerminal() {
		return shared.ErrAlreadyReviewed
	}
	l.Review = review
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Partnership repository fake
// ─────────────────────────────────────────────────────────────────────────────

type memPartnershipRepo struct {
	mu           sync.Mutex
	invitations  map[string]*partnership.Invitation // by normalized code
	partnerships map[string]*partnership.Partnership
}

func newMemPartnershipRepo() *memPartnershipRepo {
	return &memPartnershipRepo{
		invitations:  make(map[string]*partnership.Invitation),
		partnerships: make(map[string]*partnership.Partnership),
	}
}

func (r *memPartnershipRepo) CreateInvitation(_ context.Context, inv *partnership.Invitation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *inv
	r.invitations[partnership.NormalizeCode(inv.Code)] = &cp
	return nil
}

func (r *memPartnershipRepo) GetInvitationByCode(_ context.Context, code string) (*partnership.Invitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invitations[partnership.NormalizeCode(code)]
	if !ok || inv.Status != partnership.InvitationPending {
		return nil, shared.ErrInvitationNotFound
	}
	cp := *inv
	return &cp, nil
}

func (r *memPartnershipRepo) GetInvitationsByInviter(_ context.Context, inviterID shared.UserID) ([]*partnership.Invitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*partnership.Invitation
	for _, inv := range r.invitations {
		if inv.InviterID == inviterID && inv.Status == partnership.InvitationPending {
			cp := *inv
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memPartnershipRepo) UpdateInvitation(_ context.Context, inv *partnership.Invitation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *inv
	r.invitations[partnership.NormalizeCode(inv.Code)] = &cp
	return nil
}

func (r *memPartnershipRepo) Redeem(_ context.Context, code string, redeemerID shared.UserID) (*partnership.Partnership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inv, ok := r.invitations[partnership.NormalizeCode(code)]
	if !ok || inv.Status != partnership.InvitationPending {
		return nil, shared.ErrInvitationNotFound
	}

	now := time.Now().UTC()
	if r.activeFor(inv.InviterID) != nil || r.activeFor(redeemerID) != nil {
		return nil, shared.ErrAlreadyPartnered
	}
	if err := inv.Accept(redeemerID, now); err != nil {
		return nil, err
	}

	p := partnership.NewPartnership(inv, redeemerID, now)
	cp := *p
	r.partnerships[p.ID] = &cp
	return p, nil
}

func (r *memPartnershipRepo) GetByID(_ context.Context, id string) (*partnership.Partnership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.partnerships[id]
	if !ok {
		return nil, shared.ErrPartnershipNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memPartnershipRepo) GetActiveByUser(_ context.Context, userID shared.UserID) (*partnership.Partnership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p := r.activeFor(userID); p != nil {
		cp := *p
		return &cp, nil
	}
	return nil, shared.ErrPartnershipNotFound
}

func (r *memPartnershipRepo) Update(_ context.Context, p *partnership.Partnership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.partnerships[p.ID]; !ok {
		return shared.ErrPartnershipNotFound
	}
	cp := *p
	r.partnerships[p.ID] = &cp
	return nil
}

// activeFor must be called with the mutex held.
func (r *memPartnershipRepo) activeFor(userID shared.UserID) *partnership.Partnership {
	for _, p := range r.partnerships {
		if p.IsActive() && p.IsParty(userID) {
			return p
		}
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Profile repository fake
// ─────────────────────────────────────────────────────────────────────────────

type memProfileRepo struct {
	mu       sync.Mutex
	profiles map[shared.UserID]*profile.Profile
}

func newMemProfileRepo() *memProfileRepo {
	return &memProfileRepo{profiles: make(map[shared.UserID]*profile.Profile)}
}

func (r *memProfileRepo) Upsert(_ context.Context, p *profile.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.profiles[p.ID] = &cp
	return nil
}

func (r *memProfileRepo) GetByID(_ context.Context, id shared.UserID) (*profile.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[id]
	if !ok {
		return nil, shared.ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memProfileRepo) GetByEmail(_ context.Context, email string) (*profile.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.profiles {
		if p.Email == email {
			cp := *p
			return &cp, nil
		}
	}
	return nil, shared.ErrProfileNotFound
}

// ─────────────────────────────────────────────────────────────────────────────
// Event / blob / notifier fakes
// ─────────────────────────────────────────────────────────────────────────────

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *recordingPublisher) Publish(event shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []shared.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]shared.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

type fakeBlobStore struct {
	url string
	err error
}

func (b *fakeBlobStore) Upload(context.Context, shared.UserID, []byte, string) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	return b.url, nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	codes []string
	err   error
}

func (n *recordingNotifier) NotifyInvite(_ context.Context, _, code, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.codes = append(n.codes, code)
	return nil
}

var errBlobDown = errors.New("blob store unavailable")

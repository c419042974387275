package query

import (
	"context"
	"errors"

	"github.com/habitpact/habitpact/internal/domain/habit"
	"github.com/habitpact/habitpact/internal/domain/habitlog"
	"github.com/habitpact/habitpact/internal/domain/partnership"
	"github.com/habitpact/habitpact/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST PARTNER HABITS QUERY
// The partner-facing view: the active partner's shared habits and the logs
// still waiting for the caller's review. Read access only; the single write
// the partner owns goes through the review command.
// ══════════════════════════════════════════════════════════════════════════════

// ListPartnerHabitsQuery identifies the caller.
type ListPartnerHabitsQuery struct {
	UserID shared.UserID
}

// Validate validates the query.
func (q ListPartnerHabitsQuery) Validate() error {
	if q.UserID.IsEmpty() {
		return errors.New("list_partner_habits: user_id is required")
	}
	return nil
}

// PartnerHabitsView is the result of the partner habits query.
type PartnerHabitsView struct {
	PartnerID shared.UserID

	// SharedHabits are the partner's habits with the shared flag set.
	SharedHabits []*habit.Habit

	// PendingReview are the partner's shared logs the caller has not yet
	// approved or challenged.
	PendingReview []*habitlog.Log
}

// ListPartnerHabitsHandler handles the ListPartnerHabitsQuery.
type ListPartnerHabitsHandler struct {
	habits       habit.Repository
	logs         habitlog.Repository
	partnerships partnership.Repository
}

// NewListPartnerHabitsHandler creates a new ListPartnerHabitsHandler.
func NewListPartnerHabitsHandler(
	habits habit.Repository,
	logs habitlog.Repository,
	partnerships partnership.Repository,
) *ListPartnerHabitsHandler {
	return &ListPartnerHabitsHandler{habits: habits, logs: logs, partnerships: partnerships}
}

// Handle executes the partner habits query. Returns ErrNotPartner when the
// caller has no active partnership.
func (h *ListPartnerHabitsHandler) Handle(ctx context.Context, q ListPartnerHabitsQuery) (*PartnerHabitsView, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	p, err := h.partnerships.GetActiveByUser(ctx, q.UserID)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.ErrNotPartner
		}
		return nil, err
	}
	partnerID := p.PartnerOf(q.UserID)

	habits, err := h.habits.GetSharedByOwner(ctx, partnerID)
	if err != nil {
		return nil, err
	}
	pending, err := h.logs.GetPendingReview(ctx, partnerID)
	if err != nil {
		return nil, err
	}

	return &PartnerHabitsView{
		PartnerID:     partnerID,
		SharedHabits:  habits,
		PendingReview: pending,
	}, nil
}

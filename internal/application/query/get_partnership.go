package query

import (
	"context"
	"errors"

	"github.com/habitpact/habitpact/internal/domain/partnership"
	"github.com/habitpact/habitpact/internal/domain/profile"
	"github.com/habitpact/habitpact/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PARTNERSHIP QUERY
// The caller's active partnership with the partner's display profile, plus
// any invitations the caller still has pending.
// ══════════════════════════════════════════════════════════════════════════════

// GetPartnershipQuery identifies the caller.
type GetPartnershipQuery struct {
	UserID shared.UserID
}

// Validate validates the query.
func (q GetPartnershipQuery) Validate() error {
	if q.UserID.IsEmpty() {
		return errors.New("get_partnership: user_id is required")
	}
	return nil
}

// PartnershipView is the result of the partnership query.
type PartnershipView struct {
	// Partnership is nil when the caller is unpartnered.
	Partnership *partnership.Partnership

	// Partner is the other party's profile, nil when unpartnered.
	Partner *profile.Profile

	// PendingInvitations are invites the caller issued that are still open.
	PendingInvitations []*partnership.Invitation
}

// HasPartner reports whether the caller is actively partnered.
func (v *PartnershipView) HasPartner() bool {
	return v.Partnership != nil
}

// GetPartnershipHandler handles the GetPartnershipQuery.
type GetPartnershipHandler struct {
	partnerships partnership.Repository
	profiles     profile.Repository
}

// NewGetPartnershipHandler creates a new GetPartnershipHandler.
func NewGetPartnershipHandler(partnerships partnership.Repository, profiles profile.Repository) *GetPartnershipHandler {
	return &GetPartnershipHandler{partnerships: partnerships, profiles: profiles}
}

// Handle executes the partnership query.
func (h *GetPartnershipHandler) Handle(ctx context.Context, q GetPartnershipQuery) (*PartnershipView, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	view := &PartnershipView{}

	p, err := h.partnerships.GetActiveByUser(ctx, q.UserID)
	switch {
	case err == nil:
		view.Partnership = p
		partnerProfile, err := h.profiles.GetByID(ctx, p.PartnerOf(q.UserID))
		if err != nil && !shared.IsNotFound(err) {
			return nil, err
		}
		view.Partner = partnerProfile
	case shared.IsNotFound(err):
		// Unpartnered is a normal answer, not an error.
	default:
		return nil, err
	}

	invitations, err := h.partnerships.GetInvitationsByInviter(ctx, q.UserID)
	if err != nil {
		return nil, err
	}
	view.PendingInvitations = invitations

	return view, nil
}

package query

import (
	"context"
	"errors"

	"github.com/habitpact/habitpact/internal/domain/profile"
	"github.com/habitpact/habitpact/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PROFILE QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetProfileQuery identifies the caller.
type GetProfileQuery struct {
	UserID shared.UserID
}

// Validate validates the query.
func (q GetProfileQuery) Validate() error {
	if q.UserID.IsEmpty() {
		return errors.New("get_profile: user_id is required")
	}
	return nil
}

// GetProfileHandler handles the GetProfileQuery.
type GetProfileHandler struct {
	profiles profile.Repository
}

// NewGetProfileHandler creates a new GetProfileHandler.
func NewGetProfileHandler(profiles profile.Repository) *GetProfileHandler {
	return &GetProfileHandler{profiles: profiles}
}

// Handle returns the caller's profile.
// Returns ErrProfileNotFound when the identity has never been mirrored.
func (h *GetProfileHandler) Handle(ctx context.Context, q GetProfileQuery) (*profile.Profile, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return h.profiles.GetByID(ctx, q.UserID)
}

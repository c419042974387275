package partnership

import (
	"context"

	"github.com/habitpact/habitpact/internal/domain/shared"
)

// Repository defines the interface for partnership and invitation
// persistence.
//
// Redeem is the one operation with a real race window: two concurrent
// redemptions touching the same user must not both produce an Active
// partnership. Implementations run the whole check-then-insert sequence in a
// single transaction that serializes on both affected users.
type Repository interface {
	// CreateInvitation persists a new pending invitation. The code must be
	// unique among currently pending invitations; implementations retry
	// with a fresh code on collision.
	CreateInvitation(ctx context.Context, inv *Invitation) error

	// GetInvitationByCode returns the pending invitation matching the code
	// case-insensitively.
	// Returns ErrInvitationNotFound if no pending invitation matches.
	GetInvitationByCode(ctx context.Context, code string) (*Invitation, error)

	// GetInvitationsByInviter returns the user's pending invitations, newest
	// first.
	GetInvitationsByInviter(ctx context.Context, inviterID shared.UserID) ([]*Invitation, error)

	// UpdateInvitation persists invitation status changes.
	UpdateInvitation(ctx context.Context, inv *Invitation) error

	// Redeem atomically consumes the invitation and creates the Active
	// partnership: it re-reads the invitation under lock, verifies it is
	// still redeemable, verifies neither party holds an Active partnership,
	// marks the invitation accepted and inserts the partnership row.
	// Returns ErrInvitationNotFound, ErrInvitationExpired, ErrSelfRedeem or
	// ErrAlreadyPartnered on precondition failure.
	Redeem(ctx context.Context, code string, redeemerID shared.UserID) (*Partnership, error)

	// GetByID returns a partnership by ID.
	// Returns ErrPartnershipNotFound if no partnership matches.
	GetByID(ctx context.Context, id string) (*Partnership, error)

	// GetActiveByUser returns the user's Active partnership.
	// Returns ErrPartnershipNotFound if the user is unpartnered.
	GetActiveByUser(ctx context.Context, userID shared.UserID) (*Partnership, error)

	// Update persists partnership status changes.
	// Returns ErrPartnershipNotFound if no partnership matches.
	Update(ctx context.Context, p *Partnership) error
}

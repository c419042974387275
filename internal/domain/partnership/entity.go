// Package partnership contains the domain model for linking two users into
// an accountability pair: time-boxed single-use invitations and the
// partnership record they establish.
//
// Invariant owned here: a user is a party to at most one Active partnership
// at any time. The persistence layer enforces it inside the redemption
// transaction; the entities only express the state machines.
package partnership

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/habitpact/habitpact/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ENUMS
// ═══════════════════════════════════════════════════════════════════════════

// Status is the lifecycle state of a partnership.
type Status string

const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
	StatusEnded   Status = "ended"
)

// InvitationStatus is the lifecycle state of an invitation.
type InvitationStatus string

const (
	InvitationPending   InvitationStatus = "pending"
	InvitationAccepted  InvitationStatus = "accepted"
	InvitationExpired   InvitationStatus = "expired"
	InvitationCancelled InvitationStatus = "cancelled"
)

// ═══════════════════════════════════════════════════════════════════════════
// INVITATION
// ═══════════════════════════════════════════════════════════════════════════

// InvitationTTL is how long an invitation stays redeemable.
const InvitationTTL = 7 * 24 * time.Hour

// CodeLength is the length of an invitation code.
const CodeLength = 6

// codeAlphabet deliberately drops 0/O and 1/I to keep codes readable when
// partners relay them verbally.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewCode generates a random invitation code.
func NewCode() string {
	buf := make([]byte, CodeLength)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the platform RNG is broken; nothing
		// sensible to degrade to.
		panic("partnership: rng unavailable: " + err.Error())
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf)
}

// NormalizeCode canonicalizes a user-supplied code for case-insensitive
// matching.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Invitation is a time-boxed, single-use code used to establish a
// partnership.
type Invitation struct {
	ID           string
	Code         string
	InviterID    shared.UserID
	InviteeEmail string
	Status       InvitationStatus
	ExpiresAt    time.Time
	AcceptedBy   shared.UserID
	AcceptedAt   time.Time
	CreatedAt    time.Time
}

// NewInvitation creates a pending invitation from the given user, expiring
// InvitationTTL from now. InviteeEmail is optional and only used for the
// outbound notification.
func NewInvitation(inviterID shared.UserID, inviteeEmail string) (*Invitation, error) {
	if inviterID.IsEmpty() {
		return nil, shared.NewDomainError("partnership", "Invite", shared.ErrInvalidID, "inviter ID is required")
	}
	now := time.Now().UTC()
	return &Invitation{
		ID:           uuid.NewString(),
		Code:         NewCode(),
		InviterID:    inviterID,
		InviteeEmail: strings.TrimSpace(inviteeEmail),
		Status:       InvitationPending,
		ExpiresAt:    now.Add(InvitationTTL),
		CreatedAt:    now,
	}, nil
}

// IsExpiredAt reports whether the invitation is past its expiry, regardless
// of the stored status. Expiry is evaluated lazily at redemption time; there
// is no background sweep.
func (i *Invitation) IsExpiredAt(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// Redeemable reports whether the invitation can still be redeemed at now.
func (i *Invitation) Redeemable(now time.Time) bool {
	return i.Status == InvitationPending && !i.IsExpiredAt(now)
}

// Accept consumes the invitation for the given redeemer.
func (i *Invitation) Accept(redeemerID shared.UserID, now time.Time) error {
	if redeemerID == i.InviterID {
		return shared.ErrSelfRedeem
	}
	if i.Status != InvitationPending {
		return shared.ErrInvitationNotFound
	}
	if i.IsExpiredAt(now) {
		return shared.ErrInvitationExpired
	}
	i.Status = InvitationAccepted
	i.AcceptedBy = redeemerID
	i.AcceptedAt = now
	return nil
}

// Cancel withdraws a pending invitation.
func (i *Invitation) Cancel() error {
	if i.Status != InvitationPending {
		return shared.NewDomainError("partnership", "Cancel", shared.ErrInvalidState, "only pending invitations can be cancelled")
	}
	i.Status = InvitationCancelled
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════
// PARTNERSHIP
// ═══════════════════════════════════════════════════════════════════════════

// Partnership links two users for mutual habit visibility and review.
type Partnership struct {
	ID        string
	UserA     shared.UserID
	UserB     shared.UserID
	Status    Status
	InvitedBy shared.UserID
	InvitedAt time.Time

	AcceptedAt time.Time
	EndedAt    time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewPartnership creates an Active partnership between inviter and redeemer.
// Partnerships are only ever created by the registry through invitation
// redemption, never by a direct user write.
func NewPartnership(inv *Invitation, redeemerID shared.UserID, now time.Time) *Partnership {
	return &Partnership{
		ID:         uuid.NewString(),
		UserA:      inv.InviterID,
		UserB:      redeemerID,
		Status:     StatusActive,
		InvitedBy:  inv.InviterID,
		InvitedAt:  inv.CreatedAt,
		AcceptedAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// IsParty reports whether the user is one of the two partners.
func (p *Partnership) IsParty(userID shared.UserID) bool {
	return p.UserA == userID || p.UserB == userID
}

// PartnerOf returns the other party for the given user, or empty when the
// user is not a party.
func (p *Partnership) PartnerOf(userID shared.UserID) shared.UserID {
	switch userID {
	case p.UserA:
		return p.UserB
	case p.UserB:
		return p.UserA
	}
	return ""
}

// IsActive reports whether the partnership is currently active.
func (p *Partnership) IsActive() bool {
	return p.Status == StatusActive
}

// End transitions Active → Ended. Historical habit and log data is untouched
// and previously shared habits keep their shared flag.
func (p *Partnership) End(callerID shared.UserID, now time.Time) error {
	if !p.IsParty(callerID) {
		return shared.ErrNotPartnershipParty
	}
	if p.Status != StatusActive {
		return shared.NewDomainError("partnership", "End", shared.ErrInvalidState, "partnership is not active")
	}
	p.Status = StatusEnded
	p.EndedAt = now
	p.UpdatedAt = now
	return nil
}

// Package profile contains the minimal user profile the core keeps next to
// the externally managed identity: display data, notification target and the
// timezone that defines the owner's "today".
package profile

import (
	"context"
	"strings"
	"time"

	"github.com/habitpact/habitpact/internal/domain/shared"
)

// Profile mirrors an identity-provider user inside the core. The ID and
// email come from the identity provider verbatim; only display fields and
// the timezone are owned here.
type Profile struct {
	ID          shared.UserID
	Email       string
	DisplayName string
	AvatarURL   string

	// Timezone is an IANA zone name. It defines the owner's local day for
	// the today-only mutation rule. Defaults to UTC.
	Timezone string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// New creates a profile for an authenticated identity.
func New(id shared.UserID, email string) (*Profile, error) {
	if id.IsEmpty() {
		return nil, shared.NewDomainError("profile", "Create", shared.ErrInvalidID, "user ID is required")
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, shared.NewDomainError("profile", "Create", shared.ErrEmptyValue, "email is required")
	}
	now := time.Now().UTC()
	return &Profile{
		ID:        id,
		Email:     email,
		Timezone:  "UTC",
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Location resolves the profile's timezone, falling back to UTC on an
// unknown zone name.
func (p *Profile) Location() *time.Location {
	if p.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Today returns the profile owner's current local calendar day.
func (p *Profile) Today(now time.Time) shared.Day {
	return shared.DayOf(now.In(p.Location()))
}

// Repository defines the interface for profile persistence.
type Repository interface {
	// Upsert creates the profile or refreshes email/display fields for an
	// existing one.
	Upsert(ctx context.Context, p *Profile) error

	// GetByID returns a profile by user ID.
	// Returns ErrProfileNotFound if no profile matches.
	GetByID(ctx context.Context, id shared.UserID) (*Profile, error)

	// GetByEmail returns a profile by email.
	// Returns ErrProfileNotFound if no profile matches.
	GetByEmail(ctx context.Context, email string) (*Profile, error)
}

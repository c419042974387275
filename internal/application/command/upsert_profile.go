package command

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/habitpact/habitpact/internal/domain/profile"
	"github.com/habitpact/habitpact/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// UPSERT PROFILE COMMAND
// The identity provider owns authentication; the core only mirrors display
// data and the timezone that defines the owner's local day. The first call
// for a new identity creates the row.
// ══════════════════════════════════════════════════════════════════════════════

// UpsertProfileCommand contains the caller's profile patch. Nil pointer
// fields are left unchanged; UserID and Email come from the verified token.
type UpsertProfileCommand struct {
	UserID shared.UserID
	Email  string

	DisplayName *string
	AvatarURL   *string
	Timezone    *string
}

// Validate validates the command.
func (c UpsertProfileCommand) Validate() error {
	if c.UserID.IsEmpty() {
		return errors.New("upsert_profile: user_id is required")
	}
	if strings.TrimSpace(c.Email) == "" {
		return errors.New("upsert_profile: email is required")
	}
	if c.Timezone != nil && *c.Timezone != "" {
		if _, err := time.LoadLocation(*c.Timezone); err != nil {
			return shared.NewDomainError("profile", "Upsert", shared.ErrInvalidInput, "unknown timezone")
		}
	}
	return nil
}

// UpsertProfileHandler handles the UpsertProfileCommand.
type UpsertProfileHandler struct {
	profiles profile.Repository
	logger   *slog.Logger
}

// NewUpsertProfileHandler creates a new UpsertProfileHandler.
func NewUpsertProfileHandler(profiles profile.Repository, logger *slog.Logger) *UpsertProfileHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UpsertProfileHandler{profiles: profiles, logger: logger}
}

// Handle executes the upsert profile command.
func (h *UpsertProfileHandler) Handle(ctx context.Context, cmd UpsertProfileCommand) (*profile.Profile, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	p, err := h.profiles.GetByID(ctx, cmd.UserID)
	switch {
	case err == nil:
		p.Email = strings.TrimSpace(cmd.Email)
	case shared.IsNotFound(err):
		p, err = profile.New(cmd.UserID, cmd.Email)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if cmd.DisplayName != nil {
		p.DisplayName = strings.TrimSpace(*cmd.DisplayName)
	}
	if cmd.AvatarURL != nil {
		p.AvatarURL = strings.TrimSpace(*cmd.AvatarURL)
	}
	if cmd.Timezone != nil && *cmd.Timezone != "" {
		p.Timezone = *cmd.Timezone
	}
	p.UpdatedAt = time.Now().UTC()

	if err := h.profiles.Upsert(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

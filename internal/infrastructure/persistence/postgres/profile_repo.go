package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/habitpact/habitpact/internal/domain/profile"
	"github.com/habitpact/habitpact/internal/domain/shared"
)

// ProfileRepository implements profile.Repository for PostgreSQL.
type ProfileRepository struct {
	conn *Connection
}

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(conn *Connection) *ProfileRepository {
	return &ProfileRepository{conn: conn}
}

const profileColumns = `id, email, display_name, avatar_url, timezone, created_at, updated_at`

// Upsert creates the profile or refreshes its mutable fields. The id comes
// from the external auth identity, so inserts and updates share one path.
func (r *ProfileRepository) Upsert(ctx context.Context, p *profile.Profile) error {
	query := `
		INSERT INTO profiles (id, email, display_name, avatar_url, timezone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			display_name = EXCLUDED.display_name,
			avatar_url = EXCLUDED.avatar_url,
			timezone = EXCLUDED.timezone
	`

	_, err := r.conn.Exec(ctx, query,
		string(p.ID),
		p.Email,
		p.DisplayName,
		p.AvatarURL,
		p.Timezone,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			// Same email under a different id.
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("failed to upsert profile: %w", err)
	}

	return nil
}

// GetByID returns a profile by user ID.
func (r *ProfileRepository) GetByID(ctx context.Context, id shared.UserID) (*profile.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`

	row := r.conn.QueryRow(ctx, query, string(id))
	return r.scanProfile(row)
}

// GetByEmail returns a profile by email.
func (r *ProfileRepository) GetByEmail(ctx context.Context, email string) (*profile.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE email = $1`

	row := r.conn.QueryRow(ctx, query, email)
	return r.scanProfile(row)
}

func (r *ProfileRepository) scanProfile(row pgx.Row) (*profile.Profile, error) {
	var (
		p  profile.Profile
		id string
	)

	err := row.Scan(
		&id,
		&p.Email,
		&p.DisplayName,
		&p.AvatarURL,
		&p.Timezone,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to scan profile: %w", err)
	}

	p.ID = shared.UserID(id)
	return &p, nil
}

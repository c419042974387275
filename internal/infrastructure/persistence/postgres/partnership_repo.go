package postgres

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/habitpact/habitpact/internal/domain/partnership"
	"github.com/habitpact/habitpact/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PARTNERSHIP REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// PartnershipRepository implements partnership.Repository for PostgreSQL.
type PartnershipRepository struct {
	conn *Connection
}

// NewPartnershipRepository creates a new PartnershipRepository.
func NewPartnershipRepository(conn *Connection) *PartnershipRepository {
	return &PartnershipRepository{conn: conn}
}

const invitationColumns = `id, code, inviter_id, invitee_email, status,
	   expires_at, accepted_by, accepted_at, created_at`

const partnershipColumns = `id, user_a, user_b, status, invited_by,
	   invited_at, accepted_at, ended_at, created_at, updated_at`

// codeRetries bounds code regeneration on a pending-code collision.
const codeRetries = 3

// ─────────────────────────────────────────────────────────────────────────────
// Invitations
// ─────────────────────────────────────────────────────────────────────────────

// CreateInvitation persists a pending invitation. A collision with another
// pending code regenerates and retries.
func (r *PartnershipRepository) CreateInvitation(ctx context.Context, inv *partnership.Invitation) error {
	query := `
		INSERT INTO partnership_invitations (
			id, code, inviter_id, invitee_email, status, expires_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	var err error
	for attempt := 0; attempt < codeRetries; attempt++ {
		_, err = r.conn.Exec(ctx, query,
			inv.ID,
			inv.Code,
			string(inv.InviterID),
			inv.InviteeEmail,
			string(inv.Status),
			inv.ExpiresAt,
			inv.CreatedAt,
		)
		if err == nil {
			return nil
		}
		if !IsUniqueViolation(err) {
			return fmt.Errorf("failed to create invitation: %w", err)
		}
		inv.Code = partnership.NewCode()
	}
	return fmt.Errorf("failed to create invitation after %d code collisions: %w", codeRetries, err)
}

// GetInvitationByCode returns the pending invitation matching the code,
// case-insensitively.
func (r *PartnershipRepository) GetInvitationByCode(ctx context.Context, code string) (*partnership.Invitation, error) {
	query := `SELECT ` + invitationColumns + `
		FROM partnership_invitations
		WHERE code = $1 AND status = 'pending'`

	row := r.conn.QueryRow(ctx, query, partnership.NormalizeCode(code))
	return r.scanInvitation(row)
}

// GetInvitationsByInviter returns the user's pending invitations, newest first.
func (r *PartnershipRepository) GetInvitationsByInviter(ctx context.Context, inviterID shared.UserID) ([]*partnership.Invitation, error) {
	query := `SELECT ` + invitationColumns + `
		FROM partnership_invitations
		WHERE inviter_id = $1 AND status = 'pending'
		ORDER BY created_at DESC`

	rows, err := r.conn.Query(ctx, query, string(inviterID))
	if err != nil {
		return nil, fmt.Errorf("failed to query invitations: %w", err)
	}
	defer rows.Close()

	var invitations []*partnership.Invitation
	for rows.Next() {
		inv, err := r.scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		invitations = append(invitations, inv)
	}
	return invitations, rows.Err()
}

// UpdateInvitation persists invitation state changes.
func (r *PartnershipRepository) UpdateInvitation(ctx context.Context, inv *partnership.Invitation) error {
	return r.updateInvitation(ctx, r.conn, inv)
}

func (r *PartnershipRepository) updateInvitation(ctx context.Context, q Querier, inv *partnership.Invitation) error {
	query := `
		UPDATE partnership_invitations SET
			status = $1,
			accepted_by = $2,
			accepted_at = $3
		WHERE id = $4
	`

	var acceptedBy *string
	var acceptedAt *time.Time
	if !inv.AcceptedBy.IsEmpty() {
		id := string(inv.AcceptedBy)
		acceptedBy = &id
		at := inv.AcceptedAt
		acceptedAt = &at
	}

	result, err := q.Exec(ctx, query, string(inv.Status), acceptedBy, acceptedAt, inv.ID)
	if err != nil {
		return fmt.Errorf("failed to update invitation: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.ErrInvitationNotFound
	}

	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Redemption
// ─────────────────────────────────────────────────────────────────────────────

// Redeem accepts the invitation and forms the partnership in one transaction.
// Per-user advisory locks, taken in sorted order, serialize concurrent
// redemptions touching either user, so two racing codes cannot both succeed.
func (r *PartnershipRepository) Redeem(ctx context.Context, code string, redeemerID shared.UserID) (*partnership.Partnership, error) {
	var formed *partnership.Partnership

	err := r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `SELECT `+invitationColumns+`
			FROM partnership_invitations
			WHERE code = $1 AND status = 'pending'
			FOR UPDATE`, partnership.NormalizeCode(code))

		inv, err := r.scanInvitation(row)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := inv.Accept(redeemerID, now); err != nil {
			return err
		}

		if err := lockUsers(ctx, tx, inv.InviterID, redeemerID); err != nil {
			return err
		}

		for _, userID := range []shared.UserID{inv.InviterID, redeemerID} {
			var exists bool
			err := tx.QueryRow(ctx, `SELECT EXISTS (
				SELECT 1 FROM partnerships
				WHERE status = 'active' AND (user_a = $1 OR user_b = $1)
			)`, string(userID)).Scan(&exists)
			if err != nil {
				return fmt.Errorf("failed to check active partnership: %w", err)
			}
			if exists {
				return shared.ErrAlreadyPartnered
			}
		}

		if err := r.updateInvitation(ctx, tx, inv); err != nil {
			return err
		}

		p := partnership.NewPartnership(inv, redeemerID, now)
		_, err = tx.Exec(ctx, `
			INSERT INTO partnerships (
				id, user_a, user_b, status, invited_by,
				invited_at, accepted_at, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			p.ID,
			string(p.UserA),
			string(p.UserB),
			string(p.Status),
			string(p.InvitedBy),
			p.InvitedAt,
			p.AcceptedAt,
			p.CreatedAt,
			p.UpdatedAt,
		)
		if err != nil {
			if IsUniqueViolation(err) {
				// The partial unique index is the backstop.
				return shared.ErrAlreadyPartnered
			}
			return fmt.Errorf("failed to create partnership: %w", err)
		}

		formed = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return formed, nil
}

// lockUsers takes transaction-scoped advisory locks for both users in sorted
// order. Sorting prevents deadlock between two redemptions locking the same
// pair in opposite order.
func lockUsers(ctx context.Context, tx pgx.Tx, a, b shared.UserID) error {
	ids := []string{string(a), string(b)}
	sort.Strings(ids)
	for _, id := range ids {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, id); err != nil {
			return fmt.Errorf("failed to lock user %s: %w", id, err)
		}
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Partnerships
// ─────────────────────────────────────────────────────────────────────────────

// GetByID returns a partnership by ID.
func (r *PartnershipRepository) GetByID(ctx context.Context, id string) (*partnership.Partnership, error) {
	query := `SELECT ` + partnershipColumns + ` FROM partnerships WHERE id = $1`

	row := r.conn.QueryRow(ctx, query, id)
	return r.scanPartnership(row)
}

// GetActiveByUser returns the user's active partnership.
func (r *PartnershipRepository) GetActiveByUser(ctx context.Context, userID shared.UserID) (*partnership.Partnership, error) {
	query := `SELECT ` + partnershipColumns + `
		FROM partnerships
		WHERE status = 'active' AND (user_a = $1 OR user_b = $1)`

	row := r.conn.QueryRow(ctx, query, string(userID))
	return r.scanPartnership(row)
}

// Update persists partnership state changes.
func (r *PartnershipRepository) Update(ctx context.Context, p *partnership.Partnership) error {
	query := `
		UPDATE partnerships SET
			status = $1,
			ended_at = $2
		WHERE id = $3
	`

	var endedAt *time.Time
	if !p.EndedAt.IsZero() {
		at := p.EndedAt
		endedAt = &at
	}

	result, err := r.conn.Exec(ctx, query, string(p.Status), endedAt, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update partnership: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.ErrPartnershipNotFound
	}

	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Scanning
// ─────────────────────────────────────────────────────────────────────────────

func (r *PartnershipRepository) scanInvitation(row pgx.Row) (*partnership.Invitation, error) {
	var (
		inv        partnership.Invitation
		inviterID  string
		status     string
		acceptedBy *string
		acceptedAt *time.Time
	)

	err := row.Scan(
		&inv.ID,
		&inv.Code,
		&inviterID,
		&inv.InviteeEmail,
		&status,
		&inv.ExpiresAt,
		&acceptedBy,
		&acceptedAt,
		&inv.CreatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to scan invitation: %w", err)
	}

	inv.InviterID = shared.UserID(inviterID)
	inv.Status = partnership.InvitationStatus(status)
	if acceptedBy != nil {
		inv.AcceptedBy = shared.UserID(*acceptedBy)
	}
	if acceptedAt != nil {
		inv.AcceptedAt = *acceptedAt
	}

	return &inv, nil
}

func (r *PartnershipRepository) scanPartnership(row pgx.Row) (*partnership.Partnership, error) {
	var (
		p          partnership.Partnership
		userA      string
		userB      string
		status     string
		invitedBy  string
		acceptedAt *time.Time
		endedAt    *time.Time
	)

	err := row.Scan(
		&p.ID,
		&userA,
		&userB,
		&status,
		&invitedBy,
		&p.InvitedAt,
		&acceptedAt,
		&endedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrPartnershipNotFound
		}
		return nil, fmt.Errorf("failed to scan partnership: %w", err)
	}

	p.UserA = shared.UserID(userA)
	p.UserB = shared.UserID(userB)
	p.Status = partnership.Status(status)
	p.InvitedBy = shared.UserID(invitedBy)
	if acceptedAt != nil {
		p.AcceptedAt = *acceptedAt
	}
	if endedAt != nil {
		p.EndedAt = *endedAt
	}

	return &p, nil
}

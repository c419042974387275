package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/habitpact/habitpact/internal/domain/habit"
	"github.com/habitpact/habitpact/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// HABIT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// HabitRepository implements habit.Repository for PostgreSQL.
type HabitRepository struct {
	conn *Connection
}

// NewHabitRepository creates a new HabitRepository.
func NewHabitRepository(conn *Connection) *HabitRepository {
	return &HabitRepository{conn: conn}
}

const habitColumns = `id, owner_id, name, description, kind,
	   bronze_threshold, silver_threshold, gold_threshold, unit,
	   priority, requires_photo, is_shared, why_statement, why_photo_url,
	   active_days, reminder_time, created_at, updated_at`

// Create creates a new habit.
func (r *HabitRepository) Create(ctx context.Context, h *habit.Habit) error {
	query := `
		INSERT INTO habits (
			id, owner_id, name, description, kind,
			bronze_threshold, silver_threshold, gold_threshold, unit,
			priority, requires_photo, is_shared, why_statement, why_photo_url,
			active_days, reminder_time, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	_, err := r.conn.Exec(ctx, query,
		h.ID,
		string(h.OwnerID),
		h.Name,
		h.Description,
		string(h.Kind),
		h.Thresholds.Bronze,
		h.Thresholds.Silver,
		h.Thresholds.Gold,
		h.Unit,
		string(h.Priority),
		h.RequiresPhoto,
		h.IsShared,
		h.WhyStatement,
		h.WhyPhotoURL,
		h.ActiveDays[:],
		h.ReminderTime,
		h.CreatedAt,
		h.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create habit: %w", err)
	}

	return nil
}

// GetByID returns a habit by ID.
func (r *HabitRepository) GetByID(ctx context.Context, id string) (*habit.Habit, error) {
	query := `SELECT ` + habitColumns + ` FROM habits WHERE id = $1`

	row := r.conn.QueryRow(ctx, query, id)
	return r.scanHabit(row)
}

// GetByOwner returns all habits owned by a user, newest first.
func (r *HabitRepository) GetByOwner(ctx context.Context, ownerID shared.UserID) ([]*habit.Habit, error) {
	query := `SELECT ` + habitColumns + `
		FROM habits
		WHERE owner_id = $1
		ORDER BY created_at DESC`

	rows, err := r.conn.Query(ctx, query, string(ownerID))
	if err != nil {
		return nil, fmt.Errorf("failed to query habits: %w", err)
	}
	defer rows.Close()

	return r.scanHabits(rows)
}

// GetSharedByOwner returns the owner's habits with the shared flag set,
// newest first.
func (r *HabitRepository) GetSharedByOwner(ctx context.Context, ownerID shared.UserID) ([]*habit.Habit, error) {
	query := `SELECT ` + habitColumns + `
		FROM habits
		WHERE owner_id = $1 AND is_shared
		ORDER BY created_at DESC`

	rows, err := r.conn.Query(ctx, query, string(ownerID))
	if err != nil {
		return nil, fmt.Errorf("failed to query shared habits: %w", err)
	}
	defer rows.Close()

	return r.scanHabits(rows)
}

// Update updates a habit.
func (r *HabitRepository) Update(ctx context.Context, h *habit.Habit) error {
	query := `
		UPDATE habits SET
			name = $1,
			description = $2,
			bronze_threshold = $3,
			silver_threshold = $4,
			gold_threshold = $5,
			unit = $6,
			priority = $7,
			requires_photo = $8,
			is_shared = $9,
			why_statement = $10,
			why_photo_url = $11,
			active_days = $12,
			reminder_time = $13
		WHERE id = $14
	`

	result, err := r.conn.Exec(ctx, query,
		h.Name,
		h.Description,
		h.Thresholds.Bronze,
		h.Thresholds.Silver,
		h.Thresholds.Gold,
		h.Unit,
		string(h.Priority),
		h.RequiresPhoto,
		h.IsShared,
		h.WhyStatement,
		h.WhyPhotoURL,
		h.ActiveDays[:],
		h.ReminderTime,
		h.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update habit: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.ErrHabitNotFound
	}

	return nil
}

// Delete deletes a habit. Logs cascade at the schema level.
func (r *HabitRepository) Delete(ctx context.Context, id string) error {
	result, err := r.conn.Exec(ctx, `DELETE FROM habits WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete habit: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.ErrHabitNotFound
	}

	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Scanning
// ─────────────────────────────────────────────────────────────────────────────

func (r *HabitRepository) scanHabit(row pgx.Row) (*habit.Habit, error) {
	var (
		h          habit.Habit
		ownerID    string
		kind       string
		priority   string
		activeDays []bool
	)

	err := row.Scan(
		&h.ID,
		&ownerID,
		&h.Name,
		&h.Description,
		&kind,
		&h.Thresholds.Bronze,
		&h.Thresholds.Silver,
		&h.Thresholds.Gold,
		&h.Unit,
		&priority,
		&h.RequiresPhoto,
		&h.IsShared,
		&h.WhyStatement,
		&h.WhyPhotoURL,
		&activeDays,
		&h.ReminderTime,
		&h.CreatedAt,
		&h.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrHabitNotFound
		}
		return nil, fmt.Errorf("failed to scan habit: %w", err)
	}

	h.OwnerID = shared.UserID(ownerID)
	h.Kind = habit.Kind(kind)
	h.Priority = habit.Priority(priority)
	copy(h.ActiveDays[:], activeDays)

	return &h, nil
}

func (r *HabitRepository) scanHabits(rows pgx.Rows) ([]*habit.Habit, error) {
	var habits []*habit.Habit
	for rows.Next() {
		h, err := r.scanHabit(rows)
		if err != nil {
			return nil, err
		}
		habits = append(habits, h)
	}
	return habits, rows.Err()
}

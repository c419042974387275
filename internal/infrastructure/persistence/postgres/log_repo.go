package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/habitpact/habitpact/internal/domain/habit"
	"github.com/habitpact/habitpact/internal/domain/habitlog"
	"github.com/habitpact/habitpact/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// HABIT LOG REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// LogRepository implements habitlog.Repository for PostgreSQL.
type LogRepository struct {
	conn *Connection
}

// NewLogRepository creates a new LogRepository.
func NewLogRepository(conn *Connection) *LogRepository {
	return &LogRepository{conn: conn}
}

const logColumns = `id, habit_id, owner_id, log_date, logged_at, value,
	   tier_achieved, completed, photo_url, mood, note, requires_review,
	   review_status, reviewed_by, reviewed_at, review_reason, created_at`

// Create persists a new log entry. The UNIQUE(habit_id, log_date) constraint
// turns a concurrent duplicate into ErrDuplicateLog.
func (r *LogRepository) Create(ctx context.Context, l *habitlog.Log) error {
	query := `
		INSERT INTO habit_logs (
			id, habit_id, owner_id, log_date, logged_at, value,
			tier_achieved, completed, photo_url, mood, note, requires_review,
			review_status, reviewed_by, reviewed_at, review_reason, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	reviewedBy, reviewedAt := reviewNullables(l.Review)

	_, err := r.conn.Exec(ctx, query,
		l.ID,
		l.HabitID,
		string(l.OwnerID),
		l.LogDate.Time(),
		l.LoggedAt,
		l.Value,
		string(l.TierAchieved),
		l.Completed,
		l.PhotoURL,
		string(l.Mood),
		l.Note,
		l.RequiresReview,
		string(l.Review.Status),
		reviewedBy,
		reviewedAt,
		l.Review.Reason,
		l.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrDuplicateLog
		}
		return fmt.Errorf("failed to create log: %w", err)
	}

	return nil
}

// GetByID returns a log by ID.
func (r *LogRepository) GetByID(ctx context.Context, id string) (*habitlog.Log, error) {
	query := `SELECT ` + logColumns + ` FROM habit_logs WHERE id = $1`

	row := r.conn.QueryRow(ctx, query, id)
	return r.scanLog(row)
}

// GetByOwner returns the user's logs inside the period, ascending by date.
func (r *LogRepository) GetByOwner(ctx context.Context, ownerID shared.UserID, period shared.Period) ([]*habitlog.Log, error) {
	query := `SELECT ` + logColumns + `
		FROM habit_logs
		WHERE owner_id = $1 AND log_date BETWEEN $2 AND $3
		ORDER BY log_date ASC, logged_at ASC`

	rows, err := r.conn.Query(ctx, query, string(ownerID), period.Start.Time(), period.End.Time())
	if err != nil {
		return nil, fmt.Errorf("failed to query logs: %w", err)
	}
	defer rows.Close()

	return r.scanLogs(rows)
}

// GetByHabit returns one habit's logs inside the period, ascending by date.
func (r *LogRepository) GetByHabit(ctx context.Context, habitID string, period shared.Period) ([]*habitlog.Log, error) {
	query := `SELECT ` + logColumns + `
		FROM habit_logs
		WHERE habit_id = $1 AND log_date BETWEEN $2 AND $3
		ORDER BY log_date ASC, logged_at ASC`

	rows, err := r.conn.Query(ctx, query, habitID, period.Start.Time(), period.End.Time())
	if err != nil {
		return nil, fmt.Errorf("failed to query habit logs: %w", err)
	}
	defer rows.Close()

	return r.scanLogs(rows)
}

// GetPendingReview returns the owner's shared logs still awaiting a partner
// verdict, newest first.
func (r *LogRepository) GetPendingReview(ctx context.Context, ownerID shared.UserID) ([]*habitlog.Log, error) {
	query := `SELECT ` + logColumns + `
		FROM habit_logs
		WHERE owner_id = $1 AND requires_review AND review_status = 'unreviewed'
		ORDER BY log_date DESC`

	rows, err := r.conn.Query(ctx, query, string(ownerID))
	if err != nil {
		return nil, fmt.Errorf("failed to query pending reviews: %w", err)
	}
	defer rows.Close()

	return r.scanLogs(rows)
}

// Update persists the owner-editable fields. Review fields are only written
// through TransitionReview.
func (r *LogRepository) Update(ctx context.Context, l *habitlog.Log) error {
	query := `
		UPDATE habit_logs SET
			value = $1,
			tier_achieved = $2,
			completed = $3,
			photo_url = $4,
			mood = $5,
			note = $6
		WHERE id = $7
	`

	result, err := r.conn.Exec(ctx, query,
		l.Value,
		string(l.TierAchieved),
		l.Completed,
		l.PhotoURL,
		string(l.Mood),
		l.Note,
		l.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update log: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.ErrLogNotFound
	}

	return nil
}

// Delete deletes a log entry.
func (r *LogRepository) Delete(ctx context.Context, id string) error {
	result, err := r.conn.Exec(ctx, `DELETE FROM habit_logs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete log: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.ErrLogNotFound
	}

	return nil
}

// TransitionReview moves a log from unreviewed to the given terminal state.
// The WHERE clause is the compare-and-swap: of two concurrent reviewers only
// one matches the unreviewed predicate, the other gets ErrAlreadyReviewed.
func (r *LogRepository) TransitionReview(ctx context.Context, logID string, review habitlog.ReviewState) error {
	query := `
		UPDATE habit_logs SET
			review_status = $1,
			reviewed_by = $2,
			reviewed_at = $3,
			review_reason = $4
		WHERE id = $5 AND requires_review AND review_status = 'unreviewed'
	`

	reviewedBy, reviewedAt := reviewNullables(review)

	result, err := r.conn.Exec(ctx, query,
		string(review.Status),
		reviewedBy,
		reviewedAt,
		review.Reason,
		logID,
	)
	if err != nil {
		return fmt.Errorf("failed to transition review: %w", err)
	}
	if result.RowsAffected() == 1 {
		return nil
	}

	// Zero rows: the log is gone, never open for review, or already settled.
	var status string
	var requiresReview bool
	err = r.conn.QueryRow(ctx,
		`SELECT review_status, requires_review FROM habit_logs WHERE id = $1`, logID,
	).Scan(&status, &requiresReview)
	if err != nil {
		if IsNoRows(err) {
			return shared.ErrLogNotFound
		}
		return fmt.Errorf("failed to inspect review state: %w", err)
	}
	if !requiresReview {
		return shared.ErrReviewNotOpen
	}
	return shared.ErrAlreadyReviewed
}

// ─────────────────────────────────────────────────────────────────────────────
// Scanning
// ─────────────────────────────────────────────────────────────────────────────

func reviewNullables(review habitlog.ReviewState) (reviewedBy *string, reviewedAt *time.Time) {
	if review.Status == habitlog.ReviewUnreviewed {
		return nil, nil
	}
	id := string(review.ReviewerID)
	at := review.ReviewedAt
	return &id, &at
}

func (r *LogRepository) scanLog(row pgx.Row) (*habitlog.Log, error) {
	var (
		l            habitlog.Log
		ownerID      string
		logDate      time.Time
		tier         string
		mood         string
		reviewStatus string
		reviewedBy   *string
		reviewedAt   *time.Time
	)

	err := row.Scan(
		&l.ID,
		&l.HabitID,
		&ownerID,
		&logDate,
		&l.LoggedAt,
		&l.Value,
		&tier,
		&l.Completed,
		&l.PhotoURL,
		&mood,
		&l.Note,
		&l.RequiresReview,
		&reviewStatus,
		&reviewedBy,
		&reviewedAt,
		&l.Review.Reason,
		&l.CreatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrLogNotFound
		}
		return nil, fmt.Errorf("failed to scan log: %w", err)
	}

	l.OwnerID = shared.UserID(ownerID)
	l.LogDate = shared.DayOf(logDate)
	l.TierAchieved = habit.Tier(tier)
	l.Mood = habitlog.Mood(mood)
	l.Review.Status = habitlog.ReviewStatus(reviewStatus)
	if reviewedBy != nil {
		l.Review.ReviewerID = shared.UserID(*reviewedBy)
	}
	if reviewedAt != nil {
		l.Review.ReviewedAt = *reviewedAt
	}

	return &l, nil
}

func (r *LogRepository) scanLogs(rows pgx.Rows) ([]*habitlog.Log, error) {
	var logs []*habitlog.Log
	for rows.Next() {
		l, err := r.scanLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

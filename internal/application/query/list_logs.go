// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"errors"

	"github.com/habitpact/habitpact/internal/domain/habitlog"
	"github.com/habitpact/habitpact/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST LOGS QUERY
// The owner's own history: every log in the period, any review state,
// ascending by date.
// ══════════════════════════════════════════════════════════════════════════════

// ListLogsQuery contains the parameters for listing a user's logs.
type ListLogsQuery struct {
	OwnerID shared.UserID
	Period  shared.Period

	// HabitID optionally narrows the listing to one habit.
	HabitID string
}

// Validate validates the query.
func (q ListLogsQuery) Validate() error {
	if q.OwnerID.IsEmpty() {
		return errors.New("list_logs: owner_id is required")
	}
	if !q.Period.IsValid() {
		return errors.New("list_logs: period is required")
	}
	return nil
}

// ListLogsHandler handles the ListLogsQuery.
type ListLogsHandler struct {
	logs habitlog.Repository
}

// NewListLogsHandler creates a new ListLogsHandler.
func NewListLogsHandler(logs habitlog.Repository) *ListLogsHandler {
	return &ListLogsHandler{logs: logs}
}

// Handle executes the list logs query.
func (h *ListLogsHandler) Handle(ctx context.Context, q ListLogsQuery) ([]*habitlog.Log, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	if q.HabitID != "" {
		logs, err := h.logs.GetByHabit(ctx, q.HabitID, q.Period)
		if err != nil {
			return nil, err
		}
		filtered := logs[:0]
		for _, l := range logs {
			if l.OwnerID == q.OwnerID {
				filtered = append(filtered, l)
			}
		}
		return filtered, nil
	}
	return h.logs.GetByOwner(ctx, q.OwnerID, q.Period)
}

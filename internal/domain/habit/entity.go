// Package habit contains the domain model for habits: the definitions a user
// logs daily progress against. A habit is owned and mutable by exactly one
// user; a shared habit is additionally visible to the owner's active partner.
package habit

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/habitpact/habitpact/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ENUMS
// ═══════════════════════════════════════════════════════════════════════════

// Kind distinguishes yes/no habits from measured ones.
type Kind string

const (
	// KindBinary - a habit with a plain done/not-done completion state.
	KindBinary Kind = "binary"

	// KindTiered - a habit measured against bronze/silver/gold thresholds.
	KindTiered Kind = "tiered"
)

// IsValid checks if the kind is a known value.
func (k Kind) IsValid() bool {
	return k == KindBinary || k == KindTiered
}

// Priority expresses how important a habit is to its owner. Display-level
// only; no scoring rule reads it.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// IsValid checks if the priority is a known value.
func (p Priority) IsValid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// ═══════════════════════════════════════════════════════════════════════════
// TIER
// ═══════════════════════════════════════════════════════════════════════════

// Tier is the achievement level implied by a measured value against the
// habit's thresholds.
type Tier string

const (
	TierNone   Tier = "none"
	TierBronze Tier = "bronze"
	TierSilver Tier = "silver"
	TierGold   Tier = "gold"
)

// IsValid checks if the tier is a known value.
func (t Tier) IsValid() bool {
	switch t {
	case TierNone, TierBronze, TierSilver, TierGold:
		return true
	}
	return false
}

// Rank returns the ordering of the tier (none=0 .. gold=3).
func (t Tier) Rank() int {
	switch t {
	case TierBronze:
		return 1
	case TierSilver:
		return 2
	case TierGold:
		return 3
	default:
		return 0
	}
}

// Thresholds holds the numeric targets of a tiered habit.
type Thresholds struct {
	Bronze float64
	Silver float64
	Gold   float64
}

// IsValid checks the strict ordering bronze < silver < gold.
func (th Thresholds) IsValid() bool {
	return th.Bronze > 0 && th.Bronze < th.Silver && th.Silver < th.Gold
}

// ResolveTier maps a measured value to the achievement tier it earns.
// Pure and total: malformed thresholds are the caller's problem (they are
// rejected at habit creation), the resolver itself never errors.
func ResolveTier(value float64, th Thresholds) Tier {
	switch {
	case value >= th.Gold:
		return TierGold
	case value >= th.Silver:
		return TierSilver
	case value >= th.Bronze:
		return TierBronze
	default:
		return TierNone
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// HABIT ENTITY
// ═══════════════════════════════════════════════════════════════════════════

// Habit is the aggregate root for a tracked habit.
type Habit struct {
	ID          string
	OwnerID     shared.UserID
	Name        string
	Description string
	Kind        Kind

	// Tiered habit config. Zero-valued for binary habits.
	Thresholds Thresholds
	Unit       string

	// Settings
	Priority      Priority
	RequiresPhoto bool
	IsShared      bool

	// Motivation
	WhyStatement string
	WhyPhotoURL  string

	// Schedule
	ActiveDays   shared.Weekdays
	ReminderTime string // "HH:MM", empty when no reminder is set

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewHabitParams carries the caller-supplied fields for NewHabit.
type NewHabitParams struct {
	OwnerID       shared.UserID
	Name          string
	Description   string
	Kind          Kind
	Thresholds    Thresholds
	Unit          string
	Priority      Priority
	RequiresPhoto bool
	IsShared      bool
	WhyStatement  string
	WhyPhotoURL   string
	ActiveDays    shared.Weekdays
	ReminderTime  string
}

// NewHabit creates a validated Habit owned by params.OwnerID.
func NewHabit(params NewHabitParams) (*Habit, error) {
	if params.OwnerID.IsEmpty() {
		return nil, shared.NewDomainError("habit", "Create", shared.ErrInvalidID, "owner ID is required")
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, shared.NewDomainError("habit", "Create", shared.ErrEmptyValue, "habit name is required")
	}
	if !params.Kind.IsValid() {
		return nil, shared.ErrInvalidHabitKind
	}
	if params.Kind == KindTiered && !params.Thresholds.IsValid() {
		return nil, shared.ErrInvalidThresholds
	}
	priority := params.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	if !priority.IsValid() {
		return nil, shared.NewDomainError("habit", "Create", shared.ErrInvalidInput, "unknown priority")
	}
	days := params.ActiveDays
	if days.IsEmpty() {
		days = shared.EveryDay()
	}

	now := time.Now().UTC()
	return &Habit{
		ID:            uuid.NewString(),
		OwnerID:       params.OwnerID,
		Name:          name,
		Description:   strings.TrimSpace(params.Description),
		Kind:          params.Kind,
		Thresholds:    params.Thresholds,
		Unit:          strings.TrimSpace(params.Unit),
		Priority:      priority,
		RequiresPhoto: params.RequiresPhoto,
		IsShared:      params.IsShared,
		WhyStatement:  strings.TrimSpace(params.WhyStatement),
		WhyPhotoURL:   strings.TrimSpace(params.WhyPhotoURL),
		ActiveDays:    days,
		ReminderTime:  strings.TrimSpace(params.ReminderTime),
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// IsOwnedBy reports whether the habit belongs to the given user.
func (h *Habit) IsOwnedBy(userID shared.UserID) bool {
	return h.OwnerID == userID
}

// TierFor resolves the tier a measured value earns for this habit.
// Binary habits never resolve a tier.
func (h *Habit) TierFor(value float64) Tier {
	if h.Kind != KindTiered {
		return TierNone
	}
	return ResolveTier(value, h.Thresholds)
}

// ScheduledOn reports whether the habit is active on the given weekday.
func (h *Habit) ScheduledOn(d time.Weekday) bool {
	return h.ActiveDays.Active(d)
}

// Touch updates the modification timestamp.
func (h *Habit) Touch() {
	h.UpdatedAt = time.Now().UTC()
}

package http

import (
	"time"

	"github.com/habitpact/habitpact/internal/domain/habit"
	"github.com/habitpact/habitpact/internal/domain/habitlog"
	"github.com/habitpact/habitpact/internal/domain/partnership"
	"github.com/habitpact/habitpact/internal/domain/profile"
	"github.com/habitpact/habitpact/internal/domain/scoring"
	"github.com/habitpact/habitpact/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE DTOs
// Days render as "2006-01-02"; instants as RFC 3339.
// ══════════════════════════════════════════════════════════════════════════════

type habitDTO struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	Kind          string   `json:"kind"`
	Bronze        float64  `json:"bronze,omitempty"`
	Silver        float64  `json:"silver,omitempty"`
	Gold          float64  `json:"gold,omitempty"`
	Unit          string   `json:"unit,omitempty"`
	Priority      string   `json:"priority"`
	RequiresPhoto bool     `json:"requires_photo"`
	IsShared      bool     `json:"is_shared"`
	WhyStatement  string   `json:"why_statement,omitempty"`
	WhyPhotoURL   string   `json:"why_photo_url,omitempty"`
	ActiveDays    [7]bool  `json:"active_days"`
	ReminderTime  string   `json:"reminder_time,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toHabitDTO(h *habit.Habit) habitDTO {
	return habitDTO{
		ID:            h.ID,
		Name:          h.Name,
		Description:   h.Description,
		Kind:          string(h.Kind),
		Bronze:        h.Thresholds.Bronze,
		Silver:        h.Thresholds.Silver,
		Gold:          h.Thresholds.Gold,
		Unit:          h.Unit,
		Priority:      string(h.Priority),
		RequiresPhoto: h.RequiresPhoto,
		IsShared:      h.IsShared,
		WhyStatement:  h.WhyStatement,
		WhyPhotoURL:   h.WhyPhotoURL,
		ActiveDays:    [7]bool(h.ActiveDays),
		ReminderTime:  h.ReminderTime,
		CreatedAt:     h.CreatedAt,
		UpdatedAt:     h.UpdatedAt,
	}
}

func toHabitDTOs(habits []*habit.Habit) []habitDTO {
	out := make([]habitDTO, 0, len(habits))
	for _, h := range habits {
		out = append(out, toHabitDTO(h))
	}
	return out
}

type reviewDTO struct {
	Status     string     `json:"status"`
	ReviewerID string     `json:"reviewer_id,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	Reason     string     `json:"reason,omitempty"`
}

type logDTO struct {
	ID             string     `json:"id"`
	HabitID        string     `json:"habit_id"`
	OwnerID        string     `json:"owner_id"`
	LogDate        string     `json:"log_date"`
	LoggedAt       time.Time  `json:"logged_at"`
	Value          float64    `json:"value,omitempty"`
	TierAchieved   string     `json:"tier_achieved"`
	Completed      bool       `json:"completed"`
	PhotoURL       string     `json:"photo_url,omitempty"`
	Mood           string     `json:"mood,omitempty"`
	Note           string     `json:"note,omitempty"`
	RequiresReview bool       `json:"requires_review"`
	Review         *reviewDTO `json:"review,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func toLogDTO(l *habitlog.Log) logDTO {
	dto := logDTO{
		ID:             l.ID,
		HabitID:        l.HabitID,
		OwnerID:        string(l.OwnerID),
		LogDate:        l.LogDate.String(),
		LoggedAt:       l.LoggedAt,
		Value:          l.Value,
		TierAchieved:   string(l.TierAchieved),
		Completed:      l.Completed,
		PhotoURL:       l.PhotoURL,
		Mood:           string(l.Mood),
		Note:           l.Note,
		RequiresReview: l.RequiresReview,
		CreatedAt:      l.CreatedAt,
	}
	if l.RequiresReview {
		rv := &reviewDTO{
			Status:     string(l.Review.Status),
			ReviewerID: string(l.Review.ReviewerID),
			Reason:     l.Review.Reason,
		}
		if !l.Review.ReviewedAt.IsZero() {
			at := l.Review.ReviewedAt
			rv.ReviewedAt = &at
		}
		dto.Review = rv
	}
	return dto
}

func toLogDTOs(logs []*habitlog.Log) []logDTO {
	out := make([]logDTO, 0, len(logs))
	for _, l := range logs {
		out = append(out, toLogDTO(l))
	}
	return out
}

type profileDTO struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	Timezone    string    `json:"timezone"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toProfileDTO(p *profile.Profile) profileDTO {
	return profileDTO{
		ID:          string(p.ID),
		Email:       p.Email,
		DisplayName: p.DisplayName,
		AvatarURL:   p.AvatarURL,
		Timezone:    p.Timezone,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

type invitationDTO struct {
	ID           string    `json:"id"`
	Code         string    `json:"code"`
	InviteeEmail string    `json:"invitee_email,omitempty"`
	Status       string    `json:"status"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}

func toInvitationDTO(inv *partnership.Invitation) invitationDTO {
	return invitationDTO{
		ID:           inv.ID,
		Code:         inv.Code,
		InviteeEmail: inv.InviteeEmail,
		Status:       string(inv.Status),
		ExpiresAt:    inv.ExpiresAt,
		CreatedAt:    inv.CreatedAt,
	}
}

type partnershipDTO struct {
	ID         string     `json:"id"`
	UserA      string     `json:"user_a"`
	UserB      string     `json:"user_b"`
	Status     string     `json:"status"`
	InvitedBy  string     `json:"invited_by"`
	AcceptedAt time.Time  `json:"accepted_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
}

func toPartnershipDTO(p *partnership.Partnership) partnershipDTO {
	dto := partnershipDTO{
		ID:         p.ID,
		UserA:      string(p.UserA),
		UserB:      string(p.UserB),
		Status:     string(p.Status),
		InvitedBy:  string(p.InvitedBy),
		AcceptedAt: p.AcceptedAt,
	}
	if !p.EndedAt.IsZero() {
		at := p.EndedAt
		dto.EndedAt = &at
	}
	return dto
}

type partnershipViewDTO struct {
	Partnership        *partnershipDTO `json:"partnership,omitempty"`
	Partner            *profileDTO     `json:"partner,omitempty"`
	PendingInvitations []invitationDTO `json:"pending_invitations"`
}

type scoreDTO struct {
	UserID         string `json:"user_id"`
	PeriodStart    string `json:"period_start"`
	PeriodEnd      string `json:"period_end"`
	TotalPoints    int    `json:"total_points"`
	BasePoints     int    `json:"base_points"`
	ApprovalBonus  int    `json:"approval_bonus"`
	StreakBonus    int    `json:"streak_bonus"`
	LogsCounted    int    `json:"logs_counted"`
	ChallengedLogs int    `json:"challenged_logs"`
}

func toScoreDTO(s scoring.Score) scoreDTO {
	return scoreDTO{
		UserID:         string(s.UserID),
		PeriodStart:    s.Period.Start.String(),
		PeriodEnd:      s.Period.End.String(),
		TotalPoints:    s.TotalPoints,
		BasePoints:     s.BasePoints,
		ApprovalBonus:  s.ApprovalBonus,
		StreakBonus:    s.StreakBonus,
		LogsCounted:    s.LogsCounted,
		ChallengedLogs: s.ChallengedLogs,
	}
}

type scorePairDTO struct {
	User    scoreDTO  `json:"user"`
	Partner *scoreDTO `json:"partner,omitempty"`
}

type partnerHabitsDTO struct {
	PartnerID     string     `json:"partner_id"`
	SharedHabits  []habitDTO `json:"shared_habits"`
	PendingReview []logDTO   `json:"pending_review"`
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST PAYLOADS
// ══════════════════════════════════════════════════════════════════════════════

type upsertProfileRequest struct {
	DisplayName *string `json:"display_name"`
	AvatarURL   *string `json:"avatar_url"`
	Timezone    *string `json:"timezone"`
}

type createHabitRequest struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Kind          string   `json:"kind"`
	Bronze        float64  `json:"bronze"`
	Silver        float64  `json:"silver"`
	Gold          float64  `json:"gold"`
	Unit          string   `json:"unit"`
	Priority      string   `json:"priority"`
	RequiresPhoto bool     `json:"requires_photo"`
	IsShared      bool     `json:"is_shared"`
	WhyStatement  string   `json:"why_statement"`
	WhyPhotoURL   string   `json:"why_photo_url"`
	ActiveDays    *[7]bool `json:"active_days"`
	ReminderTime  string   `json:"reminder_time"`
}

type updateHabitRequest struct {
	Name          *string  `json:"name"`
	Description   *string  `json:"description"`
	Bronze        *float64 `json:"bronze"`
	Silver        *float64 `json:"silver"`
	Gold          *float64 `json:"gold"`
	Unit          *string  `json:"unit"`
	Priority      *string  `json:"priority"`
	RequiresPhoto *bool    `json:"requires_photo"`
	IsShared      *bool    `json:"is_shared"`
	WhyStatement  *string  `json:"why_statement"`
	WhyPhotoURL   *string  `json:"why_photo_url"`
	ActiveDays    *[7]bool `json:"active_days"`
	ReminderTime  *string  `json:"reminder_time"`
}

type createLogRequest struct {
	HabitID string  `json:"habit_id"`
	LogDate string  `json:"log_date"`
	Value   float64 `json:"value"`

	// Photo is base64 in transit; encoding/json decodes it into bytes.
	Photo            []byte `json:"photo,omitempty"`
	PhotoContentType string `json:"photo_content_type,omitempty"`

	Mood string `json:"mood"`
	Note string `json:"note"`
}

type updateLogRequest struct {
	Value *float64 `json:"value"`
	Mood  *string  `json:"mood"`
	Note  *string  `json:"note"`

	Photo            []byte `json:"photo,omitempty"`
	PhotoContentType string `json:"photo_content_type,omitempty"`
}

type reviewLogRequest struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

type createInvitationRequest struct {
	InviteeEmail string `json:"invitee_email"`
}

type redeemInvitationRequest struct {
	Code string `json:"code"`
}

// parseDay parses an optional "2006-01-02" query or body value. Empty input
// yields the zero Day, which commands interpret as the owner's local today.
func parseDay(s string) (shared.Day, error) {
	if s == "" {
		return shared.Day{}, nil
	}
	return shared.ParseDay(s)
}

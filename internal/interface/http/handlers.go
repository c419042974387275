package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/habitpact/habitpact/internal/application/command"
	"github.com/habitpact/habitpact/internal/application/query"
	"github.com/habitpact/habitpact/internal/domain/habit"
	"github.com/habitpact/habitpact/internal/domain/habitlog"
	"github.com/habitpact/habitpact/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if s.deps.Database != nil {
		if err := s.deps.Database.Ping(ctx); err != nil {
			checks["database"] = "down"
			healthy = false
		} else {
			checks["database"] = "up"
		}
	}
	if s.deps.Cache != nil {
		if err := s.deps.Cache.Ping(ctx); err != nil {
			checks["cache"] = "down"
			healthy = false
		} else {
			checks["cache"] = "up"
		}
	}

	status := http.StatusOK
	overall := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}
	writeJSON(w, status, map[string]interface{}{
		"status": overall,
		"checks": checks,
		"uptime": s.Uptime().String(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if s.deps.Database != nil {
		if err := s.deps.Database.Ping(ctx); err != nil {
			writeJSONError(w, http.StatusServiceUnavailable, "not_ready", "Database is unreachable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFrom(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "unauthenticated", "No identity in request")
		return
	}

	p, err := s.deps.GetProfile.Handle(r.Context(), query.GetProfileQuery{UserID: id.UserID})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileDTO(p))
}

func (s *Server) handleUpsertMe(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFrom(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "unauthenticated", "No identity in request")
		return
	}

	var req upsertProfileRequest
	if !s.decode(w, r, &req) {
		return
	}

	cmd := command.UpsertProfileCommand{
		UserID:      id.UserID,
		Email:       id.Email,
		DisplayName: req.DisplayName,
		AvatarURL:   req.AvatarURL,
		Timezone:    req.Timezone,
	}
	if err := cmd.Validate(); err != nil {
		s.respondValidation(w, err)
		return
	}

	p, err := s.deps.UpsertProfile.Handle(r.Context(), cmd)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileDTO(p))
}

// ══════════════════════════════════════════════════════════════════════════════
// HABIT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleListHabits(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())

	habits, err := s.deps.ListHabits.Handle(r.Context(), query.ListHabitsQuery{OwnerID: id.UserID})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHabitDTOs(habits))
}

func (s *Server) handleCreateHabit(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())

	var req createHabitRequest
	if !s.decode(w, r, &req) {
		return
	}

	cmd := command.CreateHabitCommand{
		OwnerID:       id.UserID,
		Name:          req.Name,
		Description:   req.Description,
		Kind:          habit.Kind(req.Kind),
		Thresholds:    habit.Thresholds{Bronze: req.Bronze, Silver: req.Silver, Gold: req.Gold},
		Unit:          req.Unit,
		Priority:      habit.Priority(req.Priority),
		RequiresPhoto: req.RequiresPhoto,
		IsShared:      req.IsShared,
		WhyStatement:  req.WhyStatement,
		WhyPhotoURL:   req.WhyPhotoURL,
		ReminderTime:  req.ReminderTime,
	}
	if req.ActiveDays != nil {
		cmd.ActiveDays = shared.Weekdays(*req.ActiveDays)
	}
	if err := cmd.Validate(); err != nil {
		s.respondValidation(w, err)
		return
	}

	h, err := s.deps.CreateHabit.Handle(r.Context(), cmd)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toHabitDTO(h))
}

func (s *Server) handleUpdateHabit(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())

	var req updateHabitRequest
	if !s.decode(w, r, &req) {
		return
	}

	cmd := command.UpdateHabitCommand{
		OwnerID:       id.UserID,
		HabitID:       mux.Vars(r)["id"],
		Name:          req.Name,
		Description:   req.Description,
		Unit:          req.Unit,
		RequiresPhoto: req.RequiresPhoto,
		IsShared:      req.IsShared,
		WhyStatement:  req.WhyStatement,
		WhyPhotoURL:   req.WhyPhotoURL,
		ReminderTime:  req.ReminderTime,
	}
	if req.Bronze != nil || req.Silver != nil || req.Gold != nil {
		if req.Bronze == nil || req.Silver == nil || req.Gold == nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_request", "Thresholds must be updated together")
			return
		}
		cmd.Thresholds = &habit.Thresholds{Bronze: *req.Bronze, Silver: *req.Silver, Gold: *req.Gold}
	}
	if req.Priority != nil {
		p := habit.Priority(*req.Priority)
		cmd.Priority = &p
	}
	if req.ActiveDays != nil {
		days := shared.Weekdays(*req.ActiveDays)
		cmd.ActiveDays = &days
	}
	if err := cmd.Validate(); err != nil {
		s.respondValidation(w, err)
		return
	}

	h, err := s.deps.UpdateHabit.Handle(r.Context(), cmd)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHabitDTO(h))
}

func (s *Server) handleDeleteHabit(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())

	cmd := command.DeleteHabitCommand{OwnerID: id.UserID, HabitID: mux.Vars(r)["id"]}
	if err := cmd.Validate(); err != nil {
		s.respondValidation(w, err)
		return
	}

	if err := s.deps.DeleteHabit.Handle(r.Context(), cmd); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ══════════════════════════════════════════════════════════════════════════════
// LOG HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())

	period, err := periodFromQuery(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	q := query.ListLogsQuery{
		OwnerID: id.UserID,
		Period:  period,
		HabitID: r.URL.Query().Get("habit_id"),
	}
	logs, err := s.deps.ListLogs.Handle(r.Context(), q)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLogDTOs(logs))
}

// createLogResponse carries the created entry plus a non-fatal photo upload
// failure, when one happened.
type createLogResponse struct {
	Log        logDTO `json:"log"`
	PhotoError string `json:"photo_error,omitempty"`
}

func (s *Server) handleCreateLog(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())

	var req createLogRequest
	if !s.decode(w, r, &req) {
		return
	}

	day, err := parseDay(req.LogDate)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "log_date must be YYYY-MM-DD")
		return
	}

	cmd := command.CreateLogCommand{
		OwnerID:          id.UserID,
		HabitID:          req.HabitID,
		LogDate:          day,
		Value:            req.Value,
		Photo:            req.Photo,
		PhotoContentType: req.PhotoContentType,
		Mood:             habitlog.Mood(req.Mood),
		Note:             req.Note,
	}
	if err := cmd.Validate(); err != nil {
		s.respondValidation(w, err)
		return
	}

	result, err := s.deps.CreateLog.Handle(r.Context(), cmd)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	resp := createLogResponse{Log: toLogDTO(result.Log)}
	if result.PhotoErr != nil {
		resp.PhotoError = "photo upload failed; the entry was saved without it"
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleUpdateLog(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())

	var req updateLogRequest
	if !s.decode(w, r, &req) {
		return
	}

	cmd := command.UpdateLogCommand{
		OwnerID:          id.UserID,
		LogID:            mux.Vars(r)["id"],
		Value:            req.Value,
		Note:             req.Note,
		Photo:            req.Photo,
		PhotoContentType: req.PhotoContentType,
	}
	if req.Mood != nil {
		m := habitlog.Mood(*req.Mood)
		cmd.Mood = &m
	}
	if err := cmd.Validate(); err != nil {
		s.respondValidation(w, err)
		return
	}

	result, err := s.deps.UpdateLog.Handle(r.Context(), cmd)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	resp := createLogResponse{Log: toLogDTO(result.Log)}
	if result.PhotoErr != nil {
		resp.PhotoError = "photo upload failed; the entry was saved without it"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteLog(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())

	cmd := command.DeleteLogCommand{OwnerID: id.UserID, LogID: mux.Vars(r)["id"]}
	if err := cmd.Validate(); err != nil {
		s.respondValidation(w, err)
		return
	}

	if err := s.deps.DeleteLog.Handle(r.Context(), cmd); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReviewLog(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())

	var req reviewLogRequest
	if !s.decode(w, r, &req) {
		return
	}

	cmd := command.ReviewLogCommand{
		ReviewerID: id.UserID,
		LogID:      mux.Vars(r)["id"],
		Action:     command.ReviewAction(req.Action),
		Reason:     req.Reason,
	}
	if err := cmd.Validate(); err != nil {
		s.respondValidation(w, err)
		return
	}

	l, err := s.deps.ReviewLog.Handle(r.Context(), cmd)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLogDTO(l))
}

// ══════════════════════════════════════════════════════════════════════════════
// PARTNERSHIP HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleGetPartnership(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())

	view, err := s.deps.GetPartnership.Handle(r.Context(), query.GetPartnershipQuery{UserID: id.UserID})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	dto := partnershipViewDTO{PendingInvitations: []invitationDTO{}}
	if view.Partnership != nil {
		p := toPartnershipDTO(view.Partnership)
		dto.Partnership = &p
	}
	if view.Partner != nil {
		pr := toProfileDTO(view.Partner)
		dto.Partner = &pr
	}
	for _, inv := range view.PendingInvitations {
		dto.PendingInvitations = append(dto.PendingInvitations, toInvitationDTO(inv))
	}
	writeJSON(w, http.StatusOK, dto)
}

func (s *Server) handleEndPartnership(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())

	cmd := command.EndPartnershipCommand{CallerID: id.UserID, PartnershipID: mux.Vars(r)["id"]}
	if err := cmd.Validate(); err != nil {
		s.respondValidation(w, err)
		return
	}

	if err := s.deps.EndPartnership.Handle(r.Context(), cmd); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateInvitation(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())

	var req createInvitationRequest
	if !s.decode(w, r, &req) {
		return
	}

	cmd := command.CreateInvitationCommand{
		InviterID:    id.UserID,
		InviteeEmail: req.InviteeEmail,
	}
	if err := cmd.Validate(); err != nil {
		s.respondValidation(w, err)
		return
	}

	inv, err := s.deps.CreateInvitation.Handle(r.Context(), cmd)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toInvitationDTO(inv))
}

func (s *Server) handleRedeemInvitation(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())

	var req redeemInvitationRequest
	if !s.decode(w, r, &req) {
		return
	}

	cmd := command.RedeemInvitationCommand{RedeemerID: id.UserID, Code: req.Code}
	if err := cmd.Validate(); err != nil {
		s.respondValidation(w, err)
		return
	}

	p, err := s.deps.RedeemInvitation.Handle(r.Context(), cmd)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPartnershipDTO(p))
}

func (s *Server) handleListPartnerHabits(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())

	view, err := s.deps.ListPartnerHabits.Handle(r.Context(), query.ListPartnerHabitsQuery{UserID: id.UserID})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	dto := partnerHabitsDTO{
		PartnerID:     string(view.PartnerID),
		SharedHabits:  toHabitDTOs(view.SharedHabits),
		PendingReview: toLogDTOs(view.PendingReview),
	}
	writeJSON(w, http.StatusOK, dto)
}

// ══════════════════════════════════════════════════════════════════════════════
// SCORE HANDLER
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleGetScore(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())

	period, err := periodFromQuery(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	includePartner := true
	if v := r.URL.Query().Get("include_partner"); v != "" {
		includePartner, _ = strconv.ParseBool(v)
	}

	q := query.GetScoreQuery{
		UserID:         id.UserID,
		Period:         period,
		IncludePartner: includePartner,
	}
	pair, err := s.deps.GetScore.Handle(r.Context(), q)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	dto := scorePairDTO{User: toScoreDTO(pair.User)}
	if pair.Partner != nil {
		partner := toScoreDTO(*pair.Partner)
		dto.Partner = &partner
	}
	writeJSON(w, http.StatusOK, dto)
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// decode reads the JSON body into dst, answering 400 on malformed input.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Request body is not valid JSON for this endpoint")
		return false
	}
	return true
}

// respondValidation answers 400 for command-level validation failures.
func (s *Server) respondValidation(w http.ResponseWriter, err error) {
	writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
}

// periodFromQuery reads optional from/to query parameters. Both empty yields
// the zero Period, which queries default to the caller's current month.
func periodFromQuery(r *http.Request) (shared.Period, error) {
	fromStr := r.URL.Query().Get("from")
	toStr := r.URL.Query().Get("to")
	if fromStr == "" && toStr == "" {
		return shared.Period{}, nil
	}
	if fromStr == "" || toStr == "" {
		return shared.Period{}, errors.New("from and to must be provided together as YYYY-MM-DD")
	}
	from, err := shared.ParseDay(fromStr)
	if err != nil {
		return shared.Period{}, errors.New("from must be YYYY-MM-DD")
	}
	to, err := shared.ParseDay(toStr)
	if err != nil {
		return shared.Period{}, errors.New("to must be YYYY-MM-DD")
	}
	return shared.NewPeriod(from, to)
}

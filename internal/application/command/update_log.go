package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/habitpact/habitpact/internal/domain/habit"
	"github.com/habitpact/habitpact/internal/domain/habitlog"
	"github.com/habitpact/habitpact/internal/domain/profile"
	"github.com/habitpact/habitpact/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE LOG COMMAND
// Owner-side edits to today's entry. Yesterday and earlier are frozen
// history; review fields can never be patched through this path.
// ══════════════════════════════════════════════════════════════════════════════

// UpdateLogCommand contains the owner's patch for a log entry. Nil pointer
// fields are left unchanged.
type UpdateLogCommand struct {
	OwnerID shared.UserID
	LogID   string

	Value *float64
	Mood  *habitlog.Mood
	Note  *string

	// Photo replaces the stored photo when non-empty.
	Photo             []byte
	PhotoContentType  string
	AbortOnPhotoError bool
}

// Validate validates the command.
func (c UpdateLogCommand) Validate() error {
	if c.OwnerID.IsEmpty() {
		return errors.New("update_log: owner_id is required")
	}
	if c.LogID == "" {
		return errors.New("update_log: log_id is required")
	}
	if c.Mood != nil && !c.Mood.IsValid() {
		return errors.New("update_log: unknown mood")
	}
	return nil
}

// UpdateLogResult contains the updated log and any non-fatal photo error.
type UpdateLogResult struct {
	Log      *habitlog.Log
	PhotoErr error
}

// UpdateLogHandler handles the UpdateLogCommand.
type UpdateLogHandler struct {
	habits   habit.Repository
	logs     habitlog.Repository
	profiles profile.Repository
	blobs    BlobStore
	events   shared.EventPublisher
	logger   *slog.Logger
}

// NewUpdateLogHandler creates a new UpdateLogHandler.
func NewUpdateLogHandler(
	habits habit.Repository,
	logs habitlog.Repository,
	profiles profile.Repository,
	blobs BlobStore,
	events shared.EventPublisher,
	logger *slog.Logger,
) *UpdateLogHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UpdateLogHandler{
		habits:   habits,
		logs:     logs,
		profiles: profiles,
		blobs:    blobs,
		events:   events,
		logger:   logger,
	}
}

// Handle executes the update log command.
func (h *UpdateLogHandler) Handle(ctx context.Context, cmd UpdateLogCommand) (*UpdateLogResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	l, err := h.logs.GetByID(ctx, cmd.LogID)
	if err != nil {
		return nil, fmt.Errorf("update_log: %w", err)
	}
	if !l.IsOwnedBy(cmd.OwnerID) {
		return nil, shared.ErrNotLogOwner
	}

	owner, err := h.profiles.GetByID(ctx, cmd.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("update_log: %w", err)
	}
	if !l.IsMutableOn(owner.Today(time.Now())) {
		return nil, shared.ErrLogImmutable
	}

	result := &UpdateLogResult{}

	if cmd.Value != nil {
		hb, err := h.habits.GetByID(ctx, l.HabitID)
		if err != nil {
			return nil, fmt.Errorf("update_log: %w", err)
		}
		l.ApplyValue(hb, *cmd.Value)
	}
	if cmd.Mood != nil {
		l.Mood = *cmd.Mood
	}
	if cmd.Note != nil {
		l.Note = strings.TrimSpace(*cmd.Note)
	}
	if len(cmd.Photo) > 0 && h.blobs != nil {
		url, err := h.blobs.Upload(ctx, cmd.OwnerID, cmd.Photo, cmd.PhotoContentType)
		if err != nil {
			photoErr := shared.WrapError("habitlog", "UploadPhoto", shared.ErrExternalService, "photo upload failed", err)
			if cmd.AbortOnPhotoError {
				return nil, photoErr
			}
			h.logger.Warn("photo upload failed, keeping existing photo",
				"log_id", l.ID, "error", err)
			result.PhotoErr = photoErr
		} else {
			l.PhotoURL = url
		}
	}

	if err := h.logs.Update(ctx, l); err != nil {
		return nil, err
	}
	result.Log = l

	if h.events != nil {
		event := shared.NewBaseEvent(shared.EventLogUpdated, l.ID, l.OwnerID)
		if err := h.events.Publish(event); err != nil {
			h.logger.Warn("failed to publish log event", "log_id", l.ID, "error", err)
		}
	}
	return result, nil
}

// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/habitpact/habitpact/internal/domain/habit"
	"github.com/habitpact/habitpact/internal/domain/habitlog"
	"github.com/habitpact/habitpact/internal/domain/profile"
	"github.com/habitpact/habitpact/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE LOG COMMAND
// Writes one daily entry against a habit. The (habit, logDate) uniqueness
// constraint makes concurrent duplicates lose with ErrDuplicateLog instead of
// silently double-counting.
// ══════════════════════════════════════════════════════════════════════════════

// BlobStore uploads photo proof and returns a retrievable URL. The core
// stores the URL verbatim; the store itself is external.
type BlobStore interface {
	Upload(ctx context.Context, ownerID shared.UserID, data []byte, contentType string) (string, error)
}

// CreateLogCommand contains the data to create a log entry.
type CreateLogCommand struct {
	// OwnerID is the authenticated caller; the habit must belong to them.
	OwnerID shared.UserID

	// HabitID is the habit being logged.
	HabitID string

	// LogDate is the calendar day being logged. Zero means the owner's
	// local today.
	LogDate shared.Day

	// Value is the measurement for tiered habits; ignored for binary ones.
	Value float64

	// Photo is optional proof, uploaded through the blob store. Upload
	// failure is non-fatal unless AbortOnPhotoError is set.
	Photo             []byte
	PhotoContentType  string
	AbortOnPhotoError bool

	Mood habitlog.Mood
	Note string
}

// Validate validates the command.
func (c CreateLogCommand) Validate() error {
	if c.OwnerID.IsEmpty() {
		return errors.New("create_log: owner_id is required")
	}
	if c.HabitID == "" {
		return errors.New("create_log: habit_id is required")
	}
	return nil
}

// CreateLogResult contains the created log and any non-fatal photo error.
type CreateLogResult struct {
	Log *habitlog.Log

	// PhotoErr is set when the photo upload failed but the log was still
	// created without it. Wraps shared.ErrPhotoUpload.
	PhotoErr error
}

// CreateLogHandler handles the CreateLogCommand.
type CreateLogHandler struct {
	habits   habit.Repository
	logs     habitlog.Repository
	profiles profile.Repository
	blobs    BlobStore
	events   shared.EventPublisher
	logger   *slog.Logger
}

// NewCreateLogHandler creates a new CreateLogHandler. blobs may be nil when
// photo uploads are disabled.
func NewCreateLogHandler(
	habits habit.Repository,
	logs habitlog.Repository,
	profiles profile.Repository,
	blobs BlobStore,
	events shared.EventPublisher,
	logger *slog.Logger,
) *CreateLogHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CreateLogHandler{
		habits:   habits,
		logs:     logs,
		profiles: profiles,
		blobs:    blobs,
		events:   events,
		logger:   logger,
	}
}

// Handle executes the create log command.
func (h *CreateLogHandler) Handle(ctx context.Context, cmd CreateLogCommand) (*CreateLogResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	hb, err := h.habits.GetByID(ctx, cmd.HabitID)
	if err != nil {
		return nil, fmt.Errorf("create_log: %w", err)
	}
	if !hb.IsOwnedBy(cmd.OwnerID) {
		return nil, shared.ErrNotHabitOwner
	}

	logDate := cmd.LogDate
	if logDate.IsZero() {
		owner, err := h.profiles.GetByID(ctx, cmd.OwnerID)
		if err != nil {
			return nil, fmt.Errorf("create_log: %w", err)
		}
		logDate = owner.Today(time.Now())
	}

	result := &CreateLogResult{}

	photoURL := ""
	if len(cmd.Photo) > 0 && h.blobs != nil {
		photoURL, err = h.blobs.Upload(ctx, cmd.OwnerID, cmd.Photo, cmd.PhotoContentType)
		if err != nil {
			photoErr := shared.WrapError("habitlog", "UploadPhoto", shared.ErrExternalService, "photo upload failed", err)
			if cmd.AbortOnPhotoError {
				return nil, photoErr
			}
			h.logger.Warn("photo upload failed, creating log without photo",
				"habit_id", cmd.HabitID, "error", err)
			result.PhotoErr = photoErr
			photoURL = ""
		}
	}

	l, err := habitlog.NewLog(habitlog.NewLogParams{
		Habit:    hb,
		OwnerID:  cmd.OwnerID,
		LogDate:  logDate,
		Value:    cmd.Value,
		PhotoURL: photoURL,
		Mood:     cmd.Mood,
		Note:     cmd.Note,
	})
	if err != nil {
		return nil, err
	}

	if err := h.logs.Create(ctx, l); err != nil {
		return nil, err
	}
	result.Log = l

	h.publishChanged(shared.EventLogCreated, l)
	return result, nil
}

func (h *CreateLogHandler) publishChanged(eventType shared.EventType, l *habitlog.Log) {
	if h.events == nil {
		return
	}
	event := shared.NewBaseEvent(eventType, l.ID, l.OwnerID)
	if err := h.events.Publish(event); err != nil {
		h.logger.Warn("failed to publish log event", "type", eventType, "log_id", l.ID, "error", err)
	}
}

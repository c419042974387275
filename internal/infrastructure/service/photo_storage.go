// Package service implements outbound adapters for external services.
package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	storage_go "github.com/supabase-community/storage-go"

	"github.com/habitpact/habitpact/internal/domain/shared"
	"github.com/habitpact/habitpact/pkg/circuitbreaker"
)

// ══════════════════════════════════════════════════════════════════════════════
// PHOTO STORAGE
// ══════════════════════════════════════════════════════════════════════════════

// PhotoStorageConfig holds Supabase Storage configuration.
type PhotoStorageConfig struct {
	// URL is the storage API endpoint (e.g., "https://xxxx.supabase.co/storage/v1").
	URL string

	// ServiceKey authenticates uploads.
	ServiceKey string

	// Bucket is the bucket photos land in.
	Bucket string
}

// PhotoStorage uploads proof photos to Supabase Storage. It implements
// command.BlobStore. A circuit breaker keeps a dead storage backend from
// stalling every log write; callers already treat upload failure as
// non-fatal.
type PhotoStorage struct {
	client  *storage_go.Client
	bucket  string
	breaker *circuitbreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewPhotoStorage creates a new PhotoStorage.
func NewPhotoStorage(cfg PhotoStorageConfig, logger *slog.Logger) *PhotoStorage {
	if logger == nil {
		logger = slog.Default()
	}

	breaker := circuitbreaker.New("photo-storage",
		circuitbreaker.WithFailureThreshold(3),
		circuitbreaker.WithTimeout(30*time.Second),
		circuitbreaker.WithOnStateChange(func(name string, from, to circuitbreaker.State) {
			logger.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
		}),
	)

	return &PhotoStorage{
		client:  storage_go.NewClient(cfg.URL, cfg.ServiceKey, nil),
		bucket:  cfg.Bucket,
		breaker: breaker,
		logger:  logger,
	}
}

// Upload stores the photo under a fresh per-user path and returns its public
// URL.
func (s *PhotoStorage) Upload(ctx context.Context, ownerID shared.UserID, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", shared.NewDomainError("storage", "Upload", shared.ErrInvalidInput, "photo data is empty")
	}
	if contentType == "" {
		contentType = "image/jpeg"
	}

	path := fmt.Sprintf("%s/%s%s", ownerID, uuid.NewString(), extensionFor(contentType))

	err := s.breaker.Execute(ctx, func(ctx context.Context) error {
		_, err := s.client.UploadFile(s.bucket, path, bytes.NewReader(data), storage_go.FileOptions{
			ContentType: &contentType,
		})
		if err != nil {
			return fmt.Errorf("upload %s: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return "", shared.WrapError("storage", "Upload", shared.ErrExternalService, "photo upload failed", err)
	}

	return s.client.GetPublicUrl(s.bucket, path).SignedURL, nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/heic":
		return ".heic"
	default:
		return ".jpg"
	}
}

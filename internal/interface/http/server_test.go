package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitpact/habitpact/internal/application/query"
	"github.com/habitpact/habitpact/internal/domain/profile"
	"github.com/habitpact/habitpact/internal/domain/shared"
)

const testSecret = "test-secret"

type stubProfileRepo struct {
	profiles map[shared.UserID]*profile.Profile
}

func (r *stubProfileRepo) Upsert(_ context.Context, p *profile.Profile) error {
	r.profiles[p.ID] = p
	return nil
}

func (r *stubProfileRepo) GetByID(_ context.Context, id shared.UserID) (*profile.Profile, error) {
	p, ok := r.profiles[id]
	if !ok {
		return nil, shared.ErrProfileNotFound
	}
	return p, nil
}

func (r *stubProfileRepo) GetByEmail(_ context.Context, email string) (*profile.Profile, error) {
	for _, p := range r.profiles {
		if p.Email == email {
			return p, nil
		}
	}
	return nil, shared.ErrProfileNotFound
}

func newTestServer(t *testing.T, profiles *stubProfileRepo) *Server {
	t.Helper()
	cfg := DefaultConfig()
	cfg.JWTSecret = testSecret
	cfg.RateLimitPerMinute = 0
	return NewServer(cfg, Dependencies{
		GetProfile: query.NewGetProfileHandler(profiles),
	})
}

func signToken(t *testing.T, userID, email string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func TestAuthMiddleware(t *testing.T) {
	repo := &stubProfileRepo{profiles: map[shared.UserID]*profile.Profile{}}
	srv := newTestServer(t, repo)

	t.Run("rejects missing token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects token signed with wrong key", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})
		signed, err := token.SignedString([]byte("some-other-secret"))
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
		req.Header.Set("Authorization", "Bearer "+signed)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("passes identity through to the handler", func(t *testing.T) {
		p, err := profile.New("user-1", "a@example.com")
		require.NoError(t, err)
		repo.profiles[p.ID] = p

		req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, "user-1", "a@example.com"))
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var body JSONResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.True(t, body.Success)
	})

	t.Run("maps a missing profile to 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, "user-nobody", "n@example.com"))
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"duplicate log", shared.ErrDuplicateLog, http.StatusConflict},
		{"already reviewed", shared.ErrAlreadyReviewed, http.StatusConflict},
		{"already partnered", shared.ErrAlreadyPartnered, http.StatusConflict},
		{"not habit owner", shared.ErrNotHabitOwner, http.StatusForbidden},
		{"not partner", shared.ErrNotPartner, http.StatusForbidden},
		{"log not found", shared.ErrLogNotFound, http.StatusNotFound},
		{"invitation not found", shared.ErrInvitationNotFound, http.StatusNotFound},
		{"invitation expired", shared.ErrInvitationExpired, http.StatusGone},
		{"self redeem", shared.ErrSelfRedeem, http.StatusUnprocessableEntity},
		{"empty reason", shared.ErrEmptyReason, http.StatusUnprocessableEntity},
		{"bad thresholds", shared.ErrInvalidThresholds, http.StatusBadRequest},
		{"photo upload", shared.ErrPhotoUpload, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := statusFor(tt.err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPeriodFromQuery(t *testing.T) {
	t.Run("absent means zero period", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/v1/logs", nil)
		p, err := periodFromQuery(r)
		require.NoError(t, err)
		assert.True(t, p.Start.IsZero())
	})

	t.Run("parses both bounds", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/v1/logs?from=2026-03-01&to=2026-03-31", nil)
		p, err := periodFromQuery(r)
		require.NoError(t, err)
		assert.Equal(t, "2026-03-01", p.Start.String())
		assert.Equal(t, "2026-03-31", p.End.String())
	})

	t.Run("rejects a lone bound", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/v1/logs?from=2026-03-01", nil)
		_, err := periodFromQuery(r)
		assert.Error(t, err)
	})

	t.Run("rejects inverted bounds", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/v1/logs?from=2026-03-31&to=2026-03-01", nil)
		_, err := periodFromQuery(r)
		assert.Error(t, err)
	})
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, &stubProfileRepo{profiles: map[shared.UserID]*profile.Profile{}})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

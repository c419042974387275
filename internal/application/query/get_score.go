package query

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/habitpact/habitpact/internal/domain/habitlog"
	"github.com/habitpact/habitpact/internal/domain/partnership"
	"github.com/habitpact/habitpact/internal/domain/profile"
	"github.com/habitpact/habitpact/internal/domain/scoring"
	"github.com/habitpact/habitpact/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET SCORE QUERY
// Derives the period point total from the log snapshot, optionally alongside
// the partner's total for the same period. Totals are never persisted; the
// cache is a pure memo invalidated eagerly on every write, so a user always
// reads their own write.
// ══════════════════════════════════════════════════════════════════════════════

// ScoreCache memoizes computed scores per (user, period). A nil cache means
// every read recomputes.
type ScoreCache interface {
	Get(ctx context.Context, userID shared.UserID, period shared.Period) (scoring.Score, bool, error)
	Set(ctx context.Context, score scoring.Score, ttl time.Duration) error
	Invalidate(ctx context.Context, userID shared.UserID) error
}

// GetScoreQuery contains the parameters for a score read.
type GetScoreQuery struct {
	UserID shared.UserID

	// Period defaults to the user's current local month when zero.
	Period shared.Period

	// IncludePartner additionally computes the active partner's total for
	// the same period.
	IncludePartner bool
}

// Validate validates the query.
func (q GetScoreQuery) Validate() error {
	if q.UserID.IsEmpty() {
		return errors.New("get_score: user_id is required")
	}
	return nil
}

// ScorePair is the result of a score read.
type ScorePair struct {
	User scoring.Score

	// Partner is nil when the user is unpartnered or IncludePartner was
	// not set.
	Partner *scoring.Score
}

// GetScoreHandler handles the GetScoreQuery.
type GetScoreHandler struct {
	logs         habitlog.Repository
	partnerships partnership.Repository
	profiles     profile.Repository
	cache        ScoreCache
	cacheTTL     time.Duration
	logger       *slog.Logger
}

// NewGetScoreHandler creates a new GetScoreHandler. cache may be nil.
func NewGetScoreHandler(
	logs habitlog.Repository,
	partnerships partnership.Repository,
	profiles profile.Repository,
	cache ScoreCache,
	cacheTTL time.Duration,
	logger *slog.Logger,
) *GetScoreHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &GetScoreHandler{
		logs:         logs,
		partnerships: partnerships,
		profiles:     profiles,
		cache:        cache,
		cacheTTL:     cacheTTL,
		logger:       logger,
	}
}

// Handle executes the score query.
func (h *GetScoreHandler) Handle(ctx context.Context, q GetScoreQuery) (*ScorePair, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	period := q.Period
	if !period.IsValid() {
		p, err := h.profiles.GetByID(ctx, q.UserID)
		if err != nil {
			return nil, err
		}
		period = shared.MonthOf(p.Today(time.Now()))
	}

	userScore, err := h.scoreFor(ctx, q.UserID, period)
	if err != nil {
		return nil, err
	}
	result := &ScorePair{User: userScore}

	if q.IncludePartner {
		p, err := h.partnerships.GetActiveByUser(ctx, q.UserID)
		switch {
		case err == nil:
			partnerScore, err := h.scoreFor(ctx, p.PartnerOf(q.UserID), period)
			if err != nil {
				return nil, err
			}
			result.Partner = &partnerScore
		case shared.IsNotFound(err):
			// Unpartnered: own score only.
		default:
			return nil, err
		}
	}
	return result, nil
}

// Recompute bypasses the cache, computes a fresh score and re-primes the
// memo. The change-feed consumer calls this on every notification; the
// operation is idempotent so at-least-once delivery is safe.
func (h *GetScoreHandler) Recompute(ctx context.Context, userID shared.UserID, period shared.Period) (scoring.Score, error) {
	logs, err := h.logs.GetByOwner(ctx, userID, period)
	if err != nil {
		return scoring.Score{}, err
	}
	score := scoring.Compute(userID, period, logs)

	if h.cache != nil {
		if err := h.cache.Set(ctx, score, h.cacheTTL); err != nil {
			h.logger.Warn("failed to prime score cache", "user_id", userID, "error", err)
		}
	}
	return score, nil
}

func (h *GetScoreHandler) scoreFor(ctx context.Context, userID shared.UserID, period shared.Period) (scoring.Score, error) {
	if h.cache != nil {
		if score, ok, err := h.cache.Get(ctx, userID, period); err == nil && ok {
			return score, nil
		} else if err != nil {
			h.logger.Warn("score cache read failed", "user_id", userID, "error", err)
		}
	}
	return h.Recompute(ctx, userID, period)
}

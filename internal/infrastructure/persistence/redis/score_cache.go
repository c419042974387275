package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/habitpact/habitpact/internal/domain/scoring"
	"github.com/habitpact/habitpact/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SCORE CACHE
// ══════════════════════════════════════════════════════════════════════════════

// ScoreCache memoizes computed period scores per (user, period). It
// implements query.ScoreCache. Invalidation drops every period the user has
// cached, since a single log write can move totals in any period containing
// its date.
type ScoreCache struct {
	cache *Cache
}

// NewScoreCache creates a new ScoreCache.
func NewScoreCache(cache *Cache) *ScoreCache {
	return &ScoreCache{cache: cache}
}

// scoreEntry is the stored representation of a Score. Day-typed fields are
// flattened to their YYYY-MM-DD form.
type scoreEntry struct {
	UserID      string `json:"user_id"`
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
	TotalPoints int    `json:"total_points"`

	BasePoints     int `json:"base_points"`
	ApprovalBonus  int `json:"approval_bonus"`
	StreakBonus    int `json:"streak_bonus"`
	LogsCounted    int `json:"logs_counted"`
	ChallengedLogs int `json:"challenged_logs"`
}

func scoreKey(userID shared.UserID, period shared.Period) string {
	return fmt.Sprintf("%s%s:%s:%s", PrefixScore, userID, period.Start, period.End)
}

// Get returns the memoized score for the user and period, if present.
func (c *ScoreCache) Get(ctx context.Context, userID shared.UserID, period shared.Period) (scoring.Score, bool, error) {
	var entry scoreEntry
	err := c.cache.Get(ctx, scoreKey(userID, period), &entry)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return scoring.Score{}, false, nil
		}
		return scoring.Score{}, false, err
	}

	score, err := entry.toScore()
	if err != nil {
		// A corrupt entry behaves like a miss.
		return scoring.Score{}, false, nil
	}
	return score, true, nil
}

// Set memoizes the score for its user and period.
func (c *ScoreCache) Set(ctx context.Context, score scoring.Score, ttl time.Duration) error {
	entry := scoreEntry{
		UserID:         string(score.UserID),
		PeriodStart:    score.Period.Start.String(),
		PeriodEnd:      score.Period.End.String(),
		TotalPoints:    score.TotalPoints,
		BasePoints:     score.BasePoints,
		ApprovalBonus:  score.ApprovalBonus,
		StreakBonus:    score.StreakBonus,
		LogsCounted:    score.LogsCounted,
		ChallengedLogs: score.ChallengedLogs,
	}
	return c.cache.Set(ctx, scoreKey(score.UserID, score.Period), entry, ttl)
}

// Invalidate drops every cached period for the user.
func (c *ScoreCache) Invalidate(ctx context.Context, userID shared.UserID) error {
	return c.cache.DeleteByPrefix(ctx, fmt.Sprintf("%s%s:", PrefixScore, userID))
}

func (e scoreEntry) toScore() (scoring.Score, error) {
	start, err := shared.ParseDay(e.PeriodStart)
	if err != nil {
		return scoring.Score{}, err
	}
	end, err := shared.ParseDay(e.PeriodEnd)
	if err != nil {
		return scoring.Score{}, err
	}
	return scoring.Score{
		UserID:         shared.UserID(e.UserID),
		Period:         shared.Period{Start: start, End: end},
		TotalPoints:    e.TotalPoints,
		BasePoints:     e.BasePoints,
		ApprovalBonus:  e.ApprovalBonus,
		StreakBonus:    e.StreakBonus,
		LogsCounted:    e.LogsCounted,
		ChallengedLogs: e.ChallengedLogs,
	}, nil
}

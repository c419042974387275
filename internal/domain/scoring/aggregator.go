// Package scoring derives point totals from habit logs and their review
// state. A total is never persisted: every read recomputes it from the log
// snapshot, so the number can never drift from the ledger it summarizes.
package scoring

import (
	"sort"

	"github.com/habitpact/habitpact/internal/domain/habit"
	"github.com/habitpact/habitpact/internal/domain/habitlog"
	"github.com/habitpact/habitpact/internal/domain/shared"
)

// Point values.
const (
	// PointsBinary is awarded for a completed binary entry, matching gold.
	PointsBinary = 3

	PointsGold   = 3
	PointsSilver = 2
	PointsBronze = 1

	// PointsApproval stacks on top of base points when the partner approves.
	PointsApproval = 1

	// PointsStreak is awarded each time a consecutive-day run crosses a
	// multiple of StreakLength.
	PointsStreak = 3

	// StreakLength is the consecutive-day run length that earns a bonus.
	StreakLength = 7
)

// Score is the derived total for one user and period.
type Score struct {
	UserID      shared.UserID
	Period      shared.Period
	TotalPoints int

	// Breakdown, for display.
	BasePoints     int
	ApprovalBonus  int
	StreakBonus    int
	LogsCounted    int
	ChallengedLogs int
}

// LogPoints returns the contribution of a single log: base points plus the
// approval bonus. A challenged log contributes exactly 0; points are
// withheld, never negative.
func LogPoints(l *habitlog.Log) int {
	base, bonus := logPoints(l)
	return base + bonus
}

func logPoints(l *habitlog.Log) (base, bonus int) {
	challenged := l.Review.IsChallenged()

	if l.Completed && !challenged {
		switch l.TierAchieved {
		case habit.TierGold:
			base = PointsGold
		case habit.TierSilver:
			base = PointsSilver
		case habit.TierBronze:
			base = PointsBronze
		default:
			// Completed with no tier means a binary entry.
			base = PointsBinary
		}
	}

	// A challenged log can never simultaneously be approved, so the bonus
	// path is naturally closed to it.
	if l.Review.IsApproved() {
		bonus = PointsApproval
	}
	return base, bonus
}

// Compute aggregates the user's logs for the period into a Score.
// Deterministic and pure over the snapshot; callers re-invoke it whenever
// the change feed signals a log or review mutation.
func Compute(userID shared.UserID, period shared.Period, logs []*habitlog.Log) Score {
	s := Score{UserID: userID, Period: period}

	for _, l := range logs {
		if !period.Contains(l.LogDate) {
			continue
		}
		base, bonus := logPoints(l)
		s.BasePoints += base
		s.ApprovalBonus += bonus
		s.LogsCounted++
		if l.Review.IsChallenged() {
			s.ChallengedLogs++
		}
	}

	s.StreakBonus = streakBonus(period, logs)
	s.TotalPoints = s.BasePoints + s.ApprovalBonus + s.StreakBonus
	return s
}

// streakBonus walks the user's distinct log dates in ascending order and
// awards PointsStreak each time the running consecutive-day counter crosses
// a multiple of StreakLength.
//
// The streak is global across all the user's habits, not per habit: any
// completed log makes a date active. Preserved deliberately even though two
// habits logged on alternating days can manufacture a streak neither habit
// earned on its own; see DESIGN.md.
func streakBonus(period shared.Period, logs []*habitlog.Log) int {
	// Group by date; a date is active when at least one log on it is
	// completed, tier irrelevant. Challenged logs still count here: the
	// challenge withholds the entry's points, not the day's activity.
	completedByDay := make(map[shared.Day]bool)
	for _, l := range logs {
		if !period.Contains(l.LogDate) {
			continue
		}
		if _, ok := completedByDay[l.LogDate]; !ok {
			completedByDay[l.LogDate] = false
		}
		if l.Completed {
			completedByDay[l.LogDate] = true
		}
	}

	days := make([]shared.Day, 0, len(completedByDay))
	for d := range completedByDay {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	awards := 0
	streak := 0
	var prev shared.Day
	havePrev := false

	for _, d := range days {
		if !completedByDay[d] {
			// A logged day with nothing completed breaks the walk entirely.
			streak = 0
			havePrev = false
			continue
		}

		if !havePrev {
			streak = 1
		} else if d.DaysSince(prev) == 1 {
			streak++
			if streak%StreakLength == 0 {
				awards++
			}
		} else {
			streak = 1
		}

		prev = d
		havePrev = true
	}

	return awards * PointsStreak
}

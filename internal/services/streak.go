package services

import (
	"time"

	"github.com/mroshb/fitquest/internal/models"
)

// StreakOutcome describes what RecordActivity did to a streak.
type StreakOutcome int

const (
	// StreakStarted means the count was (re)started at 1, either for the first
	// activity ever or after a gap of more than one day.
	StreakStarted StreakOutcome = iota
	StreakExtended
	StreakSameDay
	// StreakIgnored means the activity predates the last recorded day.
	StreakIgnored
)

// Advanced reports whether the streak counted this activity.
func (o StreakOutcome) Advanced() bool {
	return o == StreakStarted || o == StreakExtended
}

// StreakTracker counts consecutive calendar days per category. Days are taken
// in loc and stored as midnight UTC of that date.
type StreakTracker struct {
	loc *time.Location
}

func NewStreakTracker(loc *time.Location) *StreakTracker {
	if loc == nil {
		loc = time.UTC
	}
	return &StreakTracker{loc: loc}
}

// Day returns the calendar day t falls on.
func (s *StreakTracker) Day(t time.Time) time.Time {
	y, m, d := t.In(s.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from) / (24 * time.Hour))
}

func storedDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// RecordActivity applies one activity at the given instant to the category.
func (s *StreakTracker) RecordActivity(profile *models.GamificationProfile, category string, at time.Time) StreakOutcome {
	day := s.Day(at)
	streak := profile.Streak(category)

	if !streak.LastActivityDate.IsZero() {
		last := storedDay(streak.LastActivityDate)
		if day.Before(last) {
			return StreakIgnored
		}
		if streak.Count > 0 {
			switch daysBetween(last, day) {
			case 0:
				return StreakSameDay
			case 1:
				streak.Count++
				streak.LastActivityDate = day
				profile.MarkChanged()
				return StreakExtended
			}
		}
	}

	streak.Count = 1
	streak.LastActivityDate = day
	profile.MarkChanged()
	return StreakStarted
}

// CheckAndResetStreaks zeroes every streak whose last day is more than one day
// before now. The last activity date is kept. It returns the categories that
// were reset along with the count each one had.
func (s *StreakTracker) CheckAndResetStreaks(profile *models.GamificationProfile, now time.Time) map[string]int {
	today := s.Day(now)
	var lost map[string]int

	for i := range profile.Streaks {
		streak := &profile.Streaks[i]
		if streak.Count == 0 || streak.LastActivityDate.IsZero() {
			continue
		}
		if daysBetween(storedDay(streak.LastActivityDate), today) > 1 {
			if lost == nil {
				lost = make(map[string]int)
			}
			lost[streak.Category] = streak.Count
			streak.Count = 0
			profile.MarkChanged()
		}
	}
	return lost
}

// StaleCutoff is the earliest last-activity day that still keeps a streak
// alive at now.
func (s *StreakTracker) StaleCutoff(now time.Time) time.Time {
	return s.Day(now).AddDate(0, 0, -1)
}

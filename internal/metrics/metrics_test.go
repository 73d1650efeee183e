package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 {
		t.Fatalf("metrics handler status = %d", rec.Code)
	}
	return rec.Body.String()
}

func TestCollector_Counters(t *testing.T) {
	c := NewCollector("")

	c.RecordPointsAwarded("checkin", 10)
	c.RecordPointsAwarded("checkin", 15)
	c.RecordPointsAwarded("checkin", 0)
	c.RecordRedemption(ResultSuccess)
	c.RecordRedemption(ResultInsufficient)
	c.RecordRedemption(ResultInsufficient)
	c.RecordLedgerConflict()
	c.RecordStreakLost("workout")

	body := scrape(t, c)
	for _, want := range []string{
		`fitquest_ledger_points_awarded_total{source="checkin"} 25`,
		`fitquest_rewards_redemptions_total{result="insufficient_funds"} 2`,
		`fitquest_rewards_redemptions_total{result="success"} 1`,
		"fitquest_ledger_version_conflicts_total 1",
		`fitquest_streaks_lost_total{category="workout"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestCollector_Leaderboard(t *testing.T) {
	c := NewCollector("gym")
	c.RecordAchievementUnlocked("rare")
	c.RecordRankUpdate(30*time.Millisecond, 12)

	body := scrape(t, c)
	for _, want := range []string{
		`gym_achievements_unlocked_total{rarity="rare"} 1`,
		"gym_leaderboard_ranked_profiles 12",
		"gym_leaderboard_rank_update_duration_seconds_count 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

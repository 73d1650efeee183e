package services

import (
	"testing"

	"github.com/mroshb/fitquest/internal/models"
)

func badge(id string, reqType string, value int64, reward int64) models.AchievementBadge {
	return models.AchievementBadge{
		ID:           id,
		Name:         id,
		Category:     models.AchievementMilestone,
		Requirement:  models.Requirement{Type: reqType, Value: value, Comparison: models.CompareGTE},
		PointsReward: reward,
		Rarity:       models.RarityCommon,
		IsActive:     true,
	}
}

func newMutation(t *testing.T) *Mutation {
	t.Helper()
	profile := models.NewProfile("athlete-1")
	if err := profile.AwardPoints(0, models.TxTypeEarn, models.TxSourceWorkoutCompletion, "w-1", "ev-1", "Workout", day0); err != nil {
		t.Fatal(err)
	}
	return &Mutation{Profile: profile, EventID: "ev-1", Now: day0}
}

func unlockIDs(unlocks []models.AchievementUnlock) []string {
	ids := make([]string, len(unlocks))
	for i, u := range unlocks {
		ids[i] = u.AchievementID
	}
	return ids
}

func TestAchievementEngine_EvaluateFixedPoint(t *testing.T) {
	badges := []models.AchievementBadge{
		badge("points-60", models.RequirementPointsEarned, 60, 0),
		badge("points-50", models.RequirementPointsEarned, 50, 10),
		badge("first-workout", models.RequirementWorkoutCount, 1, 50),
	}
	engine := NewAchievementEngine(nil, nil, 10)
	m := newMutation(t)

	unlocks, err := engine.Evaluate(m, badges)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	// Each pass only sees the rewards of the previous ones.
	want := []string{"first-workout", "points-50", "points-60"}
	got := unlockIDs(unlocks)
	if len(got) != len(want) {
		t.Fatalf("unlocks = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("unlock[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	if m.Profile.TotalPointsEarned != 60 || m.Profile.CurrentFitCoins != 60 {
		t.Errorf("earned = %d, balance = %d, want 60/60", m.Profile.TotalPointsEarned, m.Profile.CurrentFitCoins)
	}
	if err := m.Profile.Reconcile(); err != nil {
		t.Errorf("Reconcile() error = %v", err)
	}

	again, err := engine.Evaluate(m, badges)
	if err != nil {
		t.Fatalf("second Evaluate() error = %v", err)
	}
	if len(again) != 0 {
		t.Errorf("second Evaluate() unlocks = %v, want none", unlockIDs(again))
	}
}

func TestAchievementEngine_EvaluatePassCap(t *testing.T) {
	badges := []models.AchievementBadge{
		badge("first-workout", models.RequirementWorkoutCount, 1, 50),
		badge("points-50", models.RequirementPointsEarned, 50, 0),
	}
	engine := NewAchievementEngine(nil, nil, 1)
	m := newMutation(t)

	unlocks, err := engine.Evaluate(m, badges)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if got := unlockIDs(unlocks); len(got) != 1 || got[0] != "first-workout" {
		t.Errorf("capped unlocks = %v, want [first-workout]", got)
	}

	// The pending badge is picked up by the next evaluation.
	unlocks, _ = engine.Evaluate(m, badges)
	if got := unlockIDs(unlocks); len(got) != 1 || got[0] != "points-50" {
		t.Errorf("next unlocks = %v, want [points-50]", got)
	}
}

func TestAchievementEngine_EvaluateCarriesEventID(t *testing.T) {
	engine := NewAchievementEngine(nil, nil, 10)
	m := newMutation(t)

	unlocks, err := engine.Evaluate(m, []models.AchievementBadge{badge("first-workout", models.RequirementWorkoutCount, 1, 50)})
	if err != nil || len(unlocks) != 1 {
		t.Fatalf("Evaluate() = %v, %v", unlocks, err)
	}

	last := m.Profile.PointTransactions[len(m.Profile.PointTransactions)-1]
	if last.Source != models.TxSourceAchievement || last.Type != models.TxTypeBonus {
		t.Errorf("bonus row = %s/%s", last.Source, last.Type)
	}
	if last.EventID != "ev-1" || last.SourceID != "first-workout" || last.Amount != 50 {
		t.Errorf("bonus row = %+v", last)
	}
	if !m.Profile.HasAchievement("first-workout") {
		t.Error("achievement not recorded on profile")
	}
}

func TestCheckRequirement(t *testing.T) {
	profile := models.NewProfile("athlete-1")
	_ = profile.AwardPoints(120, models.TxTypeEarn, models.TxSourceGoalCompletion, "g-1", "", "", day0)
	_ = profile.AwardPoints(30, models.TxTypeBonus, models.TxSourceGoalCompletion, "", "", "", day0)
	streak := profile.Streak(models.StreakWorkout)
	streak.Count = 4

	tests := []struct {
		name string
		req  models.Requirement
		want bool
	}{
		{"points gte met", models.Requirement{Type: models.RequirementPointsEarned, Value: 150, Comparison: models.CompareGTE}, true},
		{"points gte unmet", models.Requirement{Type: models.RequirementPointsEarned, Value: 151, Comparison: models.CompareGTE}, false},
		{"goal count ignores bonus rows", models.Requirement{Type: models.RequirementGoalCount, Value: 1, Comparison: models.CompareEQ}, true},
		{"streak lte", models.Requirement{Type: models.RequirementStreak, Value: 4, Comparison: models.CompareLTE}, true},
		{"streak eq unmet", models.Requirement{Type: models.RequirementStreak, Value: 5, Comparison: models.CompareEQ}, false},
		{"level reached", models.Requirement{Type: models.RequirementLevelReached, Value: 2, Comparison: models.CompareGTE}, true},
		{"workouts", models.Requirement{Type: models.RequirementWorkoutCount, Value: 1, Comparison: models.CompareGTE}, false},
		{"custom never matches", models.Requirement{Type: models.RequirementCustom, Value: 0, Comparison: models.CompareGTE}, false},
		{"unknown comparison", models.Requirement{Type: models.RequirementPointsEarned, Value: 0, Comparison: "gt"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckRequirement(profile, tt.req); got != tt.want {
				t.Errorf("CheckRequirement() = %v, want %v", got, tt.want)
			}
		})
	}
}

package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/mroshb/fitquest/internal/database"
	"github.com/mroshb/fitquest/internal/models"
	"github.com/mroshb/fitquest/pkg/errors"
)

func TestCatalogRepository_ActiveAchievements(t *testing.T) {
	db := newTestDB(t)
	if err := database.SeedCatalog(db); err != nil {
		t.Fatal(err)
	}
	repo := NewCatalogRepository(db)
	ctx := context.Background()

	retired := &models.AchievementBadge{ID: "retired", Name: "Retired", Description: "gone", Category: models.AchievementSocial,
		Requirement: models.Requirement{Type: models.RequirementCustom, Value: 1, Comparison: models.CompareGTE}, Rarity: models.RarityCommon}
	if err := repo.UpsertAchievement(ctx, retired); err != nil {
		t.Fatalf("UpsertAchievement() error = %v", err)
	}

	badges, err := repo.ActiveAchievements(ctx)
	if err != nil {
		t.Fatalf("ActiveAchievements() error = %v", err)
	}
	if len(badges) != len(database.DefaultAchievements()) {
		t.Errorf("len(badges) = %d, want %d", len(badges), len(database.DefaultAchievements()))
	}
	for i := 1; i < len(badges); i++ {
		if badges[i-1].ID >= badges[i].ID {
			t.Fatalf("badges not ordered by id: %s before %s", badges[i-1].ID, badges[i].ID)
		}
	}
}

func TestCatalogRepository_UpsertAchievementReplaces(t *testing.T) {
	repo := NewCatalogRepository(newTestDB(t))
	ctx := context.Background()

	badge := &models.AchievementBadge{
		ID:           "a1",
		Name:         "Old",
		Description:  "d",
		Category:     models.AchievementMilestone,
		Requirement:  models.Requirement{Type: models.RequirementLevelReached, Value: 3, Comparison: models.CompareGTE},
		PointsReward: 10,
		Rarity:       models.RarityCommon,
		IsActive:     true,
	}
	if err := repo.UpsertAchievement(ctx, badge); err != nil {
		t.Fatal(err)
	}
	updated := *badge
	updated.Name = "New"
	updated.PointsReward = 40
	if err := repo.UpsertAchievement(ctx, &updated); err != nil {
		t.Fatalf("second UpsertAchievement() error = %v", err)
	}

	badges, _ := repo.ActiveAchievements(ctx)
	if len(badges) != 1 || badges[0].Name != "New" || badges[0].PointsReward != 40 {
		t.Errorf("badges = %+v", badges)
	}

	bad := updated
	bad.Requirement.Type = "steps"
	if err := repo.UpsertAchievement(ctx, &bad); !errors.Is(err, errors.ErrCodeValidation) {
		t.Errorf("UpsertAchievement(invalid) error = %v, want VALIDATION_ERROR", err)
	}
}

func TestCatalogRepository_ListRewards(t *testing.T) {
	repo := NewCatalogRepository(newTestDB(t))
	ctx := context.Background()

	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	springStart := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	springEnd := time.Date(2026, 5, 31, 0, 0, 0, 0, time.UTC)
	summerStart := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	summerEnd := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	two := int64(2)

	rewards := []*models.Reward{
		{ID: "theme", Title: "Theme", Description: "d", Category: models.RewardDigital, FitCoinCost: 100,
			Tier: models.TierBronze, Availability: models.AvailabilityAlways, IsActive: true},
		{ID: "spring-tee", Title: "Spring tee", Description: "d", Category: models.RewardPhysical, FitCoinCost: 300,
			Tier: models.TierSilver, Availability: models.AvailabilitySeasonal, ValidFrom: &springStart, ValidUntil: &springEnd, IsActive: true},
		{ID: "summer-tee", Title: "Summer tee", Description: "d", Category: models.RewardPhysical, FitCoinCost: 300,
			Tier: models.TierSilver, Availability: models.AvailabilitySeasonal, ValidFrom: &summerStart, ValidUntil: &summerEnd, IsActive: true},
		{ID: "hidden", Title: "Hidden", Description: "d", Category: models.RewardDigital, FitCoinCost: 50,
			Tier: models.TierBronze, Availability: models.AvailabilityAlways},
		{ID: "session", Title: "Session", Description: "d", Category: models.RewardExperience, FitCoinCost: 2000,
			Tier: models.TierPlatinum, Availability: models.AvailabilityLimited, MaxRedemptions: &two, IsActive: true},
	}
	for _, r := range rewards {
		if err := repo.UpsertReward(ctx, r); err != nil {
			t.Fatalf("UpsertReward(%s) error = %v", r.ID, err)
		}
	}

	tests := []struct {
		name   string
		filter models.RewardFilter
		want   []string
	}{
		{name: "All available", filter: models.RewardFilter{Now: now}, want: []string{"theme", "summer-tee", "session"}},
		{name: "Silver only", filter: models.RewardFilter{Tier: models.TierSilver, Now: now}, want: []string{"summer-tee"}},
		{name: "Seasonal in spring", filter: models.RewardFilter{Availability: models.AvailabilitySeasonal, Now: springStart.Add(time.Hour)}, want: []string{"spring-tee"}},
		{name: "Limited", filter: models.RewardFilter{Availability: models.AvailabilityLimited, Now: now}, want: []string{"session"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.ListRewards(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListRewards() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ListRewards() returned %d rewards, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i].ID != tt.want[i] {
					t.Errorf("rewards[%d] = %s, want %s", i, got[i].ID, tt.want[i])
				}
			}
		})
	}
}

func TestCatalogRepository_UpsertRewardKeepsCounter(t *testing.T) {
	db := newTestDB(t)
	repo := NewCatalogRepository(db)
	ctx := context.Background()

	five := int64(5)
	reward := &models.Reward{ID: "r", Title: "R", Description: "d", Category: models.RewardDigital, FitCoinCost: 10,
		Tier: models.TierBronze, Availability: models.AvailabilityLimited, MaxRedemptions: &five, IsActive: true}
	if err := repo.UpsertReward(ctx, reward); err != nil {
		t.Fatal(err)
	}
	db.Model(&models.Reward{}).Where("id = ?", "r").Update("current_redemptions", 3)

	reward.FitCoinCost = 20
	reward.CurrentRedemptions = 0
	if err := repo.UpsertReward(ctx, reward); err != nil {
		t.Fatal(err)
	}

	stored, err := repo.GetReward(ctx, "r")
	if err != nil {
		t.Fatal(err)
	}
	if stored.FitCoinCost != 20 || stored.CurrentRedemptions != 3 {
		t.Errorf("stored = cost %d redemptions %d, want 20 and 3", stored.FitCoinCost, stored.CurrentRedemptions)
	}

	if _, err := repo.GetReward(ctx, "missing"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("GetReward(missing) error = %v, want NOT_FOUND", err)
	}
}

package database

import (
	"fmt"

	"github.com/mroshb/fitquest/internal/models"
	"github.com/mroshb/fitquest/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func gte(reqType string, value int64) models.Requirement {
	return models.Requirement{Type: reqType, Value: value, Comparison: models.CompareGTE}
}

// DefaultAchievements is the built-in badge catalog. IDs are stable slugs so
// reseeding never duplicates a badge.
func DefaultAchievements() []models.AchievementBadge {
	return []models.AchievementBadge{
		// Consistency
		{ID: "first-steps", Name: "First Steps", Description: "Complete your first workout", Category: models.AchievementConsistency,
			Requirement: gte(models.RequirementWorkoutCount, 1), PointsReward: 50, Rarity: models.RarityCommon, IsActive: true},
		{ID: "week-warrior", Name: "Week Warrior", Description: "Maintain a 7-day streak", Category: models.AchievementConsistency,
			Requirement: gte(models.RequirementStreak, 7), PointsReward: 100, Rarity: models.RarityRare, IsActive: true},
		{ID: "month-master", Name: "Month Master", Description: "Maintain a 30-day streak", Category: models.AchievementConsistency,
			Requirement: gte(models.RequirementStreak, 30), PointsReward: 500, Rarity: models.RarityEpic, IsActive: true},
		{ID: "century-club", Name: "Century Club", Description: "Maintain a 100-day streak", Category: models.AchievementConsistency,
			Requirement: gte(models.RequirementStreak, 100), PointsReward: 1000, Rarity: models.RarityLegendary, IsActive: true},

		// Performance
		{ID: "goal-getter", Name: "Goal Getter", Description: "Complete your first goal", Category: models.AchievementPerformance,
			Requirement: gte(models.RequirementGoalCount, 1), PointsReward: 50, Rarity: models.RarityCommon, IsActive: true},
		{ID: "goal-crusher", Name: "Goal Crusher", Description: "Complete 10 goals", Category: models.AchievementPerformance,
			Requirement: gte(models.RequirementGoalCount, 10), PointsReward: 200, Rarity: models.RarityRare, IsActive: true},
		{ID: "goal-machine", Name: "Goal Machine", Description: "Complete 50 goals", Category: models.AchievementPerformance,
			Requirement: gte(models.RequirementGoalCount, 50), PointsReward: 500, Rarity: models.RarityEpic, IsActive: true},

		// Milestones
		{ID: "rising-star", Name: "Rising Star", Description: "Reach level 5", Category: models.AchievementMilestone,
			Requirement: gte(models.RequirementLevelReached, 5), PointsReward: 100, Rarity: models.RarityCommon, IsActive: true},
		{ID: "fitness-pro", Name: "Fitness Pro", Description: "Reach level 10", Category: models.AchievementMilestone,
			Requirement: gte(models.RequirementLevelReached, 10), PointsReward: 250, Rarity: models.RarityRare, IsActive: true},
		{ID: "elite-athlete", Name: "Elite Athlete", Description: "Reach level 25", Category: models.AchievementMilestone,
			Requirement: gte(models.RequirementLevelReached, 25), PointsReward: 750, Rarity: models.RarityEpic, IsActive: true},
		{ID: "legend", Name: "Legend", Description: "Reach level 50", Category: models.AchievementMilestone,
			Requirement: gte(models.RequirementLevelReached, 50), PointsReward: 2000, Rarity: models.RarityLegendary, IsActive: true},
		{ID: "point-collector", Name: "Point Collector", Description: "Earn 1,000 total points", Category: models.AchievementMilestone,
			Requirement: gte(models.RequirementPointsEarned, 1000), PointsReward: 100, Rarity: models.RarityCommon, IsActive: true},
		{ID: "point-hoarder", Name: "Point Hoarder", Description: "Earn 10,000 total points", Category: models.AchievementMilestone,
			Requirement: gte(models.RequirementPointsEarned, 10000), PointsReward: 500, Rarity: models.RarityRare, IsActive: true},
		{ID: "point-master", Name: "Point Master", Description: "Earn 100,000 total points", Category: models.AchievementMilestone,
			Requirement: gte(models.RequirementPointsEarned, 100000), PointsReward: 2500, Rarity: models.RarityLegendary, IsActive: true},
	}
}

func DefaultRewards() []models.Reward {
	return []models.Reward{
		{ID: "custom-workout-theme", Title: "Custom Workout Theme", Description: "Unlock a new color theme for your workout screens",
			Category: models.RewardDigital, FitCoinCost: 100, Tier: models.TierBronze, Availability: models.AvailabilityAlways, IsActive: true},
		{ID: "nutrition-guide", Title: "Nutrition Guide", Description: "A downloadable meal planning guide",
			Category: models.RewardDigital, FitCoinCost: 250, Tier: models.TierSilver, Availability: models.AvailabilityAlways, IsActive: true},
		{ID: "water-bottle", Title: "FitQuest Water Bottle", Description: "Insulated steel bottle shipped to your gym", MaxRedemptions: int64Ptr(200),
			Category: models.RewardPhysical, FitCoinCost: 800, Tier: models.TierGold, Availability: models.AvailabilityLimited, IsActive: true},
		{ID: "pt-session", Title: "Free Personal Training Session", Description: "One 60 minute session with a trainer of your choice", MaxRedemptions: int64Ptr(50),
			Category: models.RewardExperience, FitCoinCost: 2000, Tier: models.TierPlatinum, Availability: models.AvailabilityLimited, IsActive: true},
	}
}

func int64Ptr(v int64) *int64 { return &v }

// SeedCatalog inserts the default achievements and rewards. Existing rows are
// left alone so catalog edits survive a restart.
func SeedCatalog(db *gorm.DB) error {
	logger.Info("Seeding achievement and reward catalog...")

	achievements := DefaultAchievements()
	for i := range achievements {
		if err := achievements[i].Validate(); err != nil {
			return err
		}
	}
	rewards := DefaultRewards()
	for i := range rewards {
		if err := rewards[i].Validate(); err != nil {
			return err
		}
	}

	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&achievements).Error; err != nil {
		return fmt.Errorf("failed to seed achievements: %w", err)
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rewards).Error; err != nil {
		return fmt.Errorf("failed to seed rewards: %w", err)
	}

	logger.Info("Catalog seeded", "achievements", len(achievements), "rewards", len(rewards))
	return nil
}

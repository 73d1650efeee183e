package models

import (
	"fmt"
	"time"

	"github.com/mroshb/fitquest/pkg/errors"
)

// Requirement is the unlock condition of an achievement. Type is a closed set;
// evaluators are dispatched on it in the achievement engine.
type Requirement struct {
	Type       string `gorm:"type:varchar(20);not null"`
	Value      int64  `gorm:"not null"`
	Comparison string `gorm:"type:varchar(4);not null"`
}

type AchievementBadge struct {
	ID           string      `gorm:"primaryKey;type:varchar(64)"`
	Name         string      `gorm:"type:varchar(120);not null"`
	Description  string      `gorm:"type:text;not null"`
	Category     string      `gorm:"type:varchar(20);not null;index"`
	Requirement  Requirement `gorm:"embedded;embeddedPrefix:requirement_"`
	PointsReward int64       `gorm:"not null"`
	Rarity       string      `gorm:"type:varchar(20);not null;index"`
	IsActive     bool        `gorm:"not null;index"`
	CreatedAt    time.Time   `gorm:"autoCreateTime"`
	UpdatedAt    time.Time   `gorm:"autoUpdateTime"`
}

// Requirement types
const (
	RequirementStreak       = "streak"
	RequirementGoalCount    = "goal_count"
	RequirementWorkoutCount = "workout_count"
	RequirementPointsEarned = "points_earned"
	RequirementLevelReached = "level_reached"
	RequirementCustom       = "custom"
)

// Comparators
const (
	CompareGTE = "gte"
	CompareLTE = "lte"
	CompareEQ  = "eq"
)

// Achievement categories
const (
	AchievementConsistency = "consistency"
	AchievementPerformance = "performance"
	AchievementSocial      = "social"
	AchievementMilestone   = "milestone"
)

// Rarities
const (
	RarityCommon    = "common"
	RarityRare      = "rare"
	RarityEpic      = "epic"
	RarityLegendary = "legendary"
)

func (AchievementBadge) TableName() string {
	return "achievement_badges"
}

// Validate rejects catalog entries the engine cannot evaluate safely.
func (a *AchievementBadge) Validate() error {
	if a.ID == "" || a.Name == "" {
		return errors.New(errors.ErrCodeValidation, "achievement id and name are required")
	}
	switch a.Requirement.Type {
	case RequirementStreak, RequirementGoalCount, RequirementWorkoutCount,
		RequirementPointsEarned, RequirementLevelReached, RequirementCustom:
	default:
		return errors.New(errors.ErrCodeValidation, fmt.Sprintf("achievement %s: unknown requirement type %q", a.ID, a.Requirement.Type))
	}
	switch a.Requirement.Comparison {
	case CompareGTE, CompareLTE, CompareEQ:
	default:
		return errors.New(errors.ErrCodeValidation, fmt.Sprintf("achievement %s: unknown comparison %q", a.ID, a.Requirement.Comparison))
	}
	if a.Requirement.Value < 0 {
		return errors.New(errors.ErrCodeValidation, fmt.Sprintf("achievement %s: negative requirement value", a.ID))
	}
	if a.PointsReward < 0 {
		return errors.New(errors.ErrCodeValidation, fmt.Sprintf("achievement %s: negative points reward", a.ID))
	}
	switch a.Rarity {
	case RarityCommon, RarityRare, RarityEpic, RarityLegendary:
	default:
		return errors.New(errors.ErrCodeValidation, fmt.Sprintf("achievement %s: unknown rarity %q", a.ID, a.Rarity))
	}
	return nil
}

// AchievementUnlock is returned to the caller for client notification.
type AchievementUnlock struct {
	AchievementID string `json:"achievementId"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	PointsAwarded int64  `json:"pointsAwarded"`
	Rarity        string `json:"rarity"`
}

// AchievementProgress is one row of the achievements screen.
type AchievementProgress struct {
	Achievement AchievementBadge `json:"achievement"`
	Unlocked    bool             `json:"unlocked"`
	UnlockedAt  *time.Time       `json:"unlockedAt,omitempty"`
	Progress    int64            `json:"progress"`
	ProgressMax int64            `json:"progressMax"`
}

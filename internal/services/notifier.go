package services

import (
	"context"

	"github.com/mroshb/fitquest/internal/models"
	"github.com/mroshb/fitquest/pkg/logger"
)

// Notifier pushes advisory messages to a user after a write has committed.
// Failures are logged by the caller and never undo the write.
type Notifier interface {
	AchievementsUnlocked(ctx context.Context, userID string, unlocks []models.AchievementUnlock) error
	StreakLost(ctx context.Context, userID, category string, days int) error
}

// LogNotifier only logs. Used when no chat transport is configured.
type LogNotifier struct{}

func (LogNotifier) AchievementsUnlocked(ctx context.Context, userID string, unlocks []models.AchievementUnlock) error {
	for _, u := range unlocks {
		logger.ForUser(userID).Info("Achievement unlocked", "achievement_id", u.AchievementID, "points", u.PointsAwarded)
	}
	return nil
}

func (LogNotifier) StreakLost(ctx context.Context, userID, category string, days int) error {
	logger.ForUser(userID).Info("Streak lost", "category", category, "days", days)
	return nil
}

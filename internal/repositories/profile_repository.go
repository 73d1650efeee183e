package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/mroshb/fitquest/internal/models"
	"github.com/mroshb/fitquest/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500

	rankBatchSize = 500
)

type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetOrCreate returns the stored profile, inserting a zeroed one first if the
// user has none. Safe to race: the loser's insert is a no-op.
func (r *ProfileRepository) GetOrCreate(ctx context.Context, userID string) (*models.GamificationProfile, error) {
	profile := models.NewProfile(userID)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Omit(clause.Associations).
		Create(profile).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to create profile")
	}
	return r.Load(ctx, userID)
}

// Load reads the profile with its streaks, achievements, redemptions and full
// transaction log in insertion order.
func (r *ProfileRepository) Load(ctx context.Context, userID string) (*models.GamificationProfile, error) {
	var profile models.GamificationProfile
	byID := func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }

	result := r.db.WithContext(ctx).
		Preload("Streaks", byID).
		Preload("Achievements", byID).
		Preload("RedeemedRewards", byID).
		Preload("PointTransactions", byID).
		Where("user_id = ?", userID).
		First(&profile)

	if result.Error == gorm.ErrRecordNotFound {
		return nil, errors.New(errors.ErrCodeNotFound, fmt.Sprintf("profile %s not found", userID))
	}
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to load profile")
	}
	return &profile, nil
}

// Save persists a mutated profile conditioned on the version it was loaded at.
// New ledger rows, unlocks, redemptions, streak changes and reward stock claims
// are written in the same transaction, so either all of them land or none do.
//
// A lost race returns CONCURRENCY_CONFLICT; a reward whose stock ran out
// between read and write returns UNAVAILABLE.
func (r *ProfileRepository) Save(ctx context.Context, profile *models.GamificationProfile, rewardClaims ...string) error {
	if !profile.Changed() {
		return nil
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.GamificationProfile{}).
			Where("user_id = ? AND version = ?", profile.UserID, profile.Version).
			Updates(map[string]interface{}{
				"total_points_earned": profile.TotalPointsEarned,
				"current_fit_coins":   profile.CurrentFitCoins,
				"experience_points":   profile.ExperiencePoints,
				"level":               profile.Level,
				"version":             profile.Version + 1,
			})
		if result.Error != nil {
			return errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to update profile")
		}
		if result.RowsAffected == 0 {
			return errors.New(errors.ErrCodeConcurrencyConflict,
				fmt.Sprintf("profile %s changed since version %d", profile.UserID, profile.Version))
		}

		for _, rewardID := range rewardClaims {
			result := tx.Model(&models.Reward{}).
				Where("id = ? AND (max_redemptions IS NULL OR current_redemptions < max_redemptions)", rewardID).
				UpdateColumn("current_redemptions", gorm.Expr("current_redemptions + ?", 1))
			if result.Error != nil {
				return errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to claim reward stock")
			}
			if result.RowsAffected == 0 {
				return errors.New(errors.ErrCodeUnavailable, fmt.Sprintf("reward %s is sold out", rewardID))
			}
		}

		if txs := unsaved(profile.PointTransactions, func(t *models.PointTransaction) uint { return t.ID }); len(txs) > 0 {
			if err := tx.Create(&txs).Error; err != nil {
				return errors.Wrap(err, errors.ErrCodeInternalError, "failed to append transactions")
			}
		}
		if unlocks := unsaved(profile.Achievements, func(a *models.ProfileAchievement) uint { return a.ID }); len(unlocks) > 0 {
			if err := tx.Create(&unlocks).Error; err != nil {
				return errors.Wrap(err, errors.ErrCodeInternalError, "failed to record achievements")
			}
		}
		if redeemed := unsaved(profile.RedeemedRewards, func(rr *models.RedeemedReward) uint { return rr.ID }); len(redeemed) > 0 {
			if err := tx.Create(&redeemed).Error; err != nil {
				return errors.Wrap(err, errors.ErrCodeInternalError, "failed to record redemption")
			}
		}

		for i := range profile.Streaks {
			streak := &profile.Streaks[i]
			if streak.ID == 0 {
				if err := tx.Create(streak).Error; err != nil {
					return errors.Wrap(err, errors.ErrCodeInternalError, "failed to create streak")
				}
				continue
			}
			err := tx.Model(&models.ProfileStreak{}).
				Where("id = ?", streak.ID).
				Updates(map[string]interface{}{
					"count":              streak.Count,
					"last_activity_date": streak.LastActivityDate,
				}).Error
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeInternalError, "failed to update streak")
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	profile.MarkSaved()
	return nil
}

// unsaved returns the tail of rows that have not been inserted yet. Rows are
// append-only, so new ones always sit at the end; the returned slice shares the
// backing array and receives the generated IDs on insert.
func unsaved[T any](rows []T, id func(*T) uint) []T {
	for i := range rows {
		if id(&rows[i]) == 0 {
			return rows[i:]
		}
	}
	return nil
}

// GetPointHistory returns the newest transactions first.
func (r *ProfileRepository) GetPointHistory(ctx context.Context, userID string, limit int) ([]models.PointTransaction, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	var transactions []models.PointTransaction
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&transactions)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to get point history")
	}
	return transactions, nil
}

// ListScores returns profiles ordered by total points, ties by user id. A nil
// scope means every profile; limit <= 0 means no limit.
func (r *ProfileRepository) ListScores(ctx context.Context, limit int, scope *models.LeaderboardScope) ([]models.LeaderboardEntry, error) {
	query := r.db.WithContext(ctx).
		Model(&models.GamificationProfile{}).
		Select("user_id, total_points_earned AS total_points, level").
		Order("total_points_earned DESC").
		Order("user_id ASC")

	if scope != nil {
		if len(scope.UserIDs) == 0 {
			return []models.LeaderboardEntry{}, nil
		}
		query = query.Where("user_id IN ?", scope.UserIDs)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var entries []models.LeaderboardEntry
	if err := query.Scan(&entries).Error; err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to list scores")
	}
	return entries, nil
}

// UpdateRanks stores precomputed ranks. It touches neither version nor
// updated_at, so it never conflicts with ledger writes.
func (r *ProfileRepository) UpdateRanks(ctx context.Context, ranks map[string]int) error {
	userIDs := make([]string, 0, len(ranks))
	for id := range ranks {
		userIDs = append(userIDs, id)
	}

	for start := 0; start < len(userIDs); start += rankBatchSize {
		end := start + rankBatchSize
		if end > len(userIDs) {
			end = len(userIDs)
		}
		batch := userIDs[start:end]

		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for _, id := range batch {
				err := tx.Model(&models.GamificationProfile{}).
					Where("user_id = ?", id).
					UpdateColumn("rank", ranks[id]).Error
				if err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternalError, "failed to update ranks")
		}
	}
	return nil
}

// ListStaleStreakUsers returns users holding a non-zero streak whose last
// activity day is before cutoff.
func (r *ProfileRepository) ListStaleStreakUsers(ctx context.Context, cutoff time.Time) ([]string, error) {
	var userIDs []string
	err := r.db.WithContext(ctx).
		Model(&models.ProfileStreak{}).
		Distinct().
		Where("count > 0 AND last_activity_date < ?", cutoff).
		Order("user_id").
		Pluck("user_id", &userIDs).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to list stale streaks")
	}
	return userIDs, nil
}

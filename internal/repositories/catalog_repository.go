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

// CatalogRepository reads achievement and reward definitions. Writes only
// happen through seeding and imports.
type CatalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ActiveAchievements returns every active badge in a stable order.
func (r *CatalogRepository) ActiveAchievements(ctx context.Context) ([]models.AchievementBadge, error) {
	var badges []models.AchievementBadge
	result := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("id ASC").
		Find(&badges)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to list achievements")
	}
	return badges, nil
}

func (r *CatalogRepository) GetReward(ctx context.Context, rewardID string) (*models.Reward, error) {
	var reward models.Reward
	result := r.db.WithContext(ctx).Where("id = ?", rewardID).First(&reward)

	if result.Error == gorm.ErrRecordNotFound {
		return nil, errors.New(errors.ErrCodeNotFound, fmt.Sprintf("reward %s not found", rewardID))
	}
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to get reward")
	}
	return &reward, nil
}

// ListRewards returns active, in-window, in-stock rewards cheapest first.
func (r *CatalogRepository) ListRewards(ctx context.Context, filter models.RewardFilter) ([]models.Reward, error) {
	now := filter.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	query := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("valid_from IS NULL OR valid_from <= ?", now).
		Where("valid_until IS NULL OR valid_until >= ?", now).
		Where("max_redemptions IS NULL OR current_redemptions < max_redemptions")

	if filter.Tier != "" {
		query = query.Where("tier = ?", filter.Tier)
	}
	if filter.Availability != "" {
		query = query.Where("availability = ?", filter.Availability)
	}

	var rewards []models.Reward
	if err := query.Order("fit_coin_cost ASC").Order("id ASC").Find(&rewards).Error; err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to list rewards")
	}
	return rewards, nil
}

// UpsertAchievement inserts or replaces a badge definition by id.
func (r *CatalogRepository) UpsertAchievement(ctx context.Context, badge *models.AchievementBadge) error {
	if err := badge.Validate(); err != nil {
		return err
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(badge).Error
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to upsert achievement")
	}
	return nil
}

// UpsertReward inserts or replaces a reward definition by id. The redemption
// counter is never overwritten.
func (r *CatalogRepository) UpsertReward(ctx context.Context, reward *models.Reward) error {
	if err := reward.Validate(); err != nil {
		return err
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title", "description", "category", "fit_coin_cost", "tier", "availability",
				"max_redemptions", "is_active", "valid_from", "valid_until", "created_by", "updated_at",
			}),
		}).
		Create(reward).Error
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to upsert reward")
	}
	return nil
}

package services

import (
	"context"
	"time"

	"github.com/mroshb/fitquest/internal/metrics"
	"github.com/mroshb/fitquest/internal/models"
	"github.com/mroshb/fitquest/internal/repositories"
	"github.com/mroshb/fitquest/pkg/errors"
)

type RedemptionResult struct {
	Reward     models.Reward             `json:"reward"`
	Stats      *models.GamificationStats `json:"stats"`
	EventID    string                    `json:"eventId"`
	RedeemedAt time.Time                 `json:"redeemedAt"`
}

// RewardStore runs balance-gated redemptions against the reward catalog.
type RewardStore struct {
	catalog *repositories.CatalogRepository
	ledger  *Ledger
	metrics *metrics.Collector
	now     func() time.Time
}

func NewRewardStore(catalog *repositories.CatalogRepository, ledger *Ledger, collector *metrics.Collector) *RewardStore {
	return &RewardStore{
		catalog: catalog,
		ledger:  ledger,
		metrics: collector,
		now:     time.Now,
	}
}

// RedeemReward debits the reward's cost and records the redemption. It fails
// with INSUFFICIENT_FUNDS and no side effects when the balance is short, and
// with UNAVAILABLE when the reward is inactive, out of window or sold out.
func (s *RewardStore) RedeemReward(ctx context.Context, userID, rewardID string) (*RedemptionResult, error) {
	reward, err := s.catalog.GetReward(ctx, rewardID)
	if err != nil {
		s.metrics.RecordRedemption(metrics.ResultError)
		return nil, err
	}

	result := &RedemptionResult{Reward: *reward}
	profile, err := s.ledger.Apply(ctx, userID, func(m *Mutation) error {
		if err := reward.CheckRedeemable(m.Now); err != nil {
			return err
		}
		if err := m.Profile.Redeem(reward, m.EventID, m.Now); err != nil {
			return err
		}
		m.ClaimReward(reward.ID)
		result.EventID = m.EventID
		result.RedeemedAt = m.Now
		return nil
	})
	if err != nil {
		switch errors.CodeOf(err) {
		case errors.ErrCodeInsufficientFunds:
			s.metrics.RecordRedemption(metrics.ResultInsufficient)
		case errors.ErrCodeUnavailable:
			s.metrics.RecordRedemption(metrics.ResultUnavailable)
		default:
			s.metrics.RecordRedemption(metrics.ResultError)
		}
		return nil, err
	}

	s.metrics.RecordRedemption(metrics.ResultSuccess)
	result.Stats = profile.Stats()
	return result, nil
}

// ListRewards returns the redeemable catalog for the filter's moment.
func (s *RewardStore) ListRewards(ctx context.Context, filter models.RewardFilter) ([]models.Reward, error) {
	if filter.Now.IsZero() {
		filter.Now = s.now().UTC()
	}
	return s.catalog.ListRewards(ctx, filter)
}

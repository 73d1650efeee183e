package services

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/mroshb/fitquest/internal/metrics"
	"github.com/mroshb/fitquest/internal/models"
	"github.com/mroshb/fitquest/internal/repositories"
	"github.com/mroshb/fitquest/pkg/errors"
	"github.com/mroshb/fitquest/pkg/logger"
)

// Mutation is what a Ledger closure works on: a freshly loaded profile plus
// the id and clock shared by every row the event writes.
type Mutation struct {
	Profile *models.GamificationProfile
	EventID string
	Now     time.Time

	rewardClaims []string
}

// ClaimReward reserves one unit of reward stock in the same write.
func (m *Mutation) ClaimReward(rewardID string) {
	m.rewardClaims = append(m.rewardClaims, rewardID)
}

// Ledger serializes all writes to one profile through a version check. The
// closure may run more than once and must derive everything from the profile
// it is given.
type Ledger struct {
	profiles    *repositories.ProfileRepository
	metrics     *metrics.Collector
	maxAttempts int
	retryBase   time.Duration
	now         func() time.Time
}

func NewLedger(profiles *repositories.ProfileRepository, collector *metrics.Collector, maxAttempts int, retryBase time.Duration) *Ledger {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Ledger{
		profiles:    profiles,
		metrics:     collector,
		maxAttempts: maxAttempts,
		retryBase:   retryBase,
		now:         time.Now,
	}
}

// Apply loads (or creates) the profile, runs fn and saves the result. A lost
// race reloads and reruns fn; after maxAttempts the conflict is returned.
// Errors from fn abort immediately with nothing written.
func (l *Ledger) Apply(ctx context.Context, userID string, fn func(m *Mutation) error) (*models.GamificationProfile, error) {
	eventID := uuid.NewString()
	log := logger.ForUser(userID).WithEvent(eventID)
	attempt := 0

	operation := func() (*models.GamificationProfile, error) {
		attempt++

		var profile *models.GamificationProfile
		var err error
		if attempt == 1 {
			profile, err = l.profiles.GetOrCreate(ctx, userID)
		} else {
			profile, err = l.profiles.Load(ctx, userID)
		}
		if err != nil {
			return nil, backoff.Permanent(err)
		}

		m := &Mutation{Profile: profile, EventID: eventID, Now: l.now().UTC()}
		if err := fn(m); err != nil {
			return nil, backoff.Permanent(err)
		}
		if !profile.Changed() {
			return profile, nil
		}

		if err := profile.Reconcile(); err != nil {
			l.metrics.RecordInvariantViolation()
			log.Error("Ledger invariant violated, write aborted",
				"attempt", attempt,
				"version", profile.Version,
				"balance", profile.CurrentFitCoins,
				"ledger_sum", profile.LedgerSum(),
				logger.KeyError, err,
			)
			return nil, backoff.Permanent(err)
		}

		if err := l.profiles.Save(ctx, profile, m.rewardClaims...); err != nil {
			if errors.Is(err, errors.ErrCodeConcurrencyConflict) {
				l.metrics.RecordLedgerConflict()
				log.Debug("Profile version conflict, retrying", "attempt", attempt)
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		return profile, nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = l.retryBase
	policy.MaxInterval = 50 * l.retryBase

	profile, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(l.maxAttempts)),
	)
	if err != nil {
		if errors.Is(err, errors.ErrCodeConcurrencyConflict) {
			l.metrics.RecordLedgerExhausted()
			log.Warn("Ledger retries exhausted", "attempts", attempt)
			return nil, errors.Wrap(err, errors.ErrCodeConcurrencyConflict,
				fmt.Sprintf("profile %s is busy, gave up after %d attempts", userID, attempt))
		}
		return nil, err
	}
	return profile, nil
}

// Reconcile loads a profile and checks its ledger invariants without writing.
func (l *Ledger) Reconcile(ctx context.Context, userID string) error {
	profile, err := l.profiles.Load(ctx, userID)
	if err != nil {
		return err
	}
	if err := profile.Reconcile(); err != nil {
		l.metrics.RecordInvariantViolation()
		logger.ForUser(userID).Error("Ledger invariant violated", "version", profile.Version, logger.KeyError, err)
		return err
	}
	return nil
}

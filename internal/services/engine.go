package services

import (
	"context"
	"fmt"
	"time"

	"github.com/mroshb/fitquest/internal/config"
	"github.com/mroshb/fitquest/internal/metrics"
	"github.com/mroshb/fitquest/internal/middleware"
	"github.com/mroshb/fitquest/internal/models"
	"github.com/mroshb/fitquest/internal/points"
	"github.com/mroshb/fitquest/internal/repositories"
	"github.com/mroshb/fitquest/internal/security"
	"github.com/mroshb/fitquest/pkg/errors"
	"github.com/mroshb/fitquest/pkg/logger"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const sweepConcurrency = 4

// EventResult is returned synchronously for every handled activity event.
type EventResult struct {
	Stats         *models.GamificationStats  `json:"stats"`
	Unlocks       []models.AchievementUnlock `json:"unlocks"`
	PointsAwarded int64                      `json:"pointsAwarded"`
	LevelUp       bool                       `json:"levelUp"`
	Duplicate     bool                       `json:"duplicate"`
}

// Engine is the entry point for the fitness application. Every call runs
// under the configured request timeout.
type Engine struct {
	profiles     *repositories.ProfileRepository
	catalog      *repositories.CatalogRepository
	ledger       *Ledger
	streaks      *StreakTracker
	achievements *AchievementEngine
	rewards      *RewardStore
	leaderboard  *LeaderboardRanker
	throttle     *middleware.EventThrottle
	notifier     Notifier
	metrics      *metrics.Collector
	timeout      time.Duration
	now          func() time.Time
}

type Option func(*Engine)

// WithClock replaces the wall clock used for ledger timestamps and lazy
// streak resets.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func WithNotifier(n Notifier) Option {
	return func(e *Engine) {
		e.notifier = n
	}
}

func NewEngine(db *gorm.DB, cfg *config.Config, collector *metrics.Collector, opts ...Option) *Engine {
	profiles := repositories.NewProfileRepository(db)
	catalog := repositories.NewCatalogRepository(db)
	ledger := NewLedger(profiles, collector, cfg.LedgerMaxAttempts, cfg.GetRetryBase())

	e := &Engine{
		profiles:     profiles,
		catalog:      catalog,
		ledger:       ledger,
		streaks:      NewStreakTracker(cfg.GetStreakLocation()),
		achievements: NewAchievementEngine(catalog, profiles, cfg.AchievementPassCap),
		rewards:      NewRewardStore(catalog, ledger, collector),
		leaderboard:  NewLeaderboardRanker(profiles, collector),
		throttle:     middleware.NewEventThrottle(cfg.EventRatePerMinute, cfg.EventRateBurst),
		notifier:     LogNotifier{},
		metrics:      collector,
		timeout:      cfg.GetRequestTimeout(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	ledger.now = e.now
	e.rewards.now = e.now
	return e
}

// Throttle exposes the intake limiter so the caller can run its cleanup loop.
func (e *Engine) Throttle() *middleware.EventThrottle {
	return e.throttle
}

func (e *Engine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.timeout)
}

func validateUser(userID string) error {
	if !security.ValidateUserID(userID) {
		return errors.New(errors.ErrCodeValidation, fmt.Sprintf("invalid userId %q", userID))
	}
	return nil
}

// admit gates the mutating entry points: a well-formed user id and a token
// from the user's intake bucket.
func (e *Engine) admit(userID string) error {
	if err := validateUser(userID); err != nil {
		return err
	}
	if !e.throttle.AllowAt(userID, e.now()) {
		return errors.New(errors.ErrCodeRateLimitExceeded, fmt.Sprintf("too many events for user %s", userID))
	}
	return nil
}

// HandleEvent applies one activity: points, streak, streak bonus and
// achievement unlocks are computed in memory and committed in one write.
func (e *Engine) HandleEvent(ctx context.Context, event models.ActivityEvent) (*EventResult, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}
	if err := e.admit(event.UserID); err != nil {
		return nil, err
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	badges, err := e.catalog.ActiveAchievements(ctx)
	if err != nil {
		return nil, err
	}

	title := security.SanitizeText(event.Metadata.Title, security.MaxNameLength)
	source := event.Source()
	category := event.StreakCategory()

	var result *EventResult
	var lost map[string]int
	var eventID string

	profile, err := e.ledger.Apply(ctx, event.UserID, func(m *Mutation) error {
		p := m.Profile
		result = &EventResult{}
		eventID = m.EventID
		levelBefore := p.Level

		if event.SourceID != "" && p.HasTransaction(source, event.SourceID) {
			lost = e.streaks.CheckAndResetStreaks(p, m.Now)
			result.Duplicate = true
			return nil
		}

		occurredAt := event.OccurredAt
		if occurredAt.IsZero() {
			occurredAt = m.Now
		}

		// The activity is recorded before the lazy reset so an event delivered
		// late still extends the streak of the day it happened on.
		carried := p.StreakCount(category)
		outcome := e.streaks.RecordActivity(p, category, occurredAt)
		lost = e.streaks.CheckAndResetStreaks(p, m.Now)
		if outcome == StreakStarted && carried > 0 {
			if lost == nil {
				lost = make(map[string]int)
			}
			lost[category] = carried
		}

		// One check-in per day, and never for a day before the last one.
		if event.EventType == models.EventCheckin && (outcome == StreakSameDay || outcome == StreakIgnored) {
			result.Duplicate = true
			return nil
		}

		liveStreak := 0
		if outcome == StreakExtended || outcome == StreakSameDay {
			liveStreak = carried
		}
		amount := eventPoints(event, occurredAt, liveStreak)
		if err := p.AwardPoints(amount, models.TxTypeEarn, source, event.SourceID, m.EventID, describeEvent(event, title), m.Now); err != nil {
			return err
		}
		result.PointsAwarded = amount

		if outcome.Advanced() {
			days := p.StreakCount(category)
			if bonus := points.StreakBonus(days); bonus > 0 {
				desc := fmt.Sprintf("%d-day %s streak bonus", days, category)
				if err := p.AwardPoints(bonus, models.TxTypeBonus, source, "", m.EventID, desc, m.Now); err != nil {
					return err
				}
				result.PointsAwarded += bonus
			}
		}

		unlocks, err := e.achievements.Evaluate(m, badges)
		if err != nil {
			return err
		}
		for _, u := range unlocks {
			result.PointsAwarded += u.PointsAwarded
		}
		result.Unlocks = unlocks
		result.LevelUp = p.Level > levelBefore
		return nil
	})
	if err != nil {
		e.logFailure("Failed to handle activity event", event.UserID, err, "event_type", event.EventType)
		return nil, err
	}

	result.Stats = profile.Stats()
	e.afterCommit(ctx, profile, eventID, result.Unlocks, lost)
	return result, nil
}

// eventPoints is the earn amount for an event. liveStreak is the streak the
// event's category carried into it.
func eventPoints(event models.ActivityEvent, occurredAt time.Time, liveStreak int) int64 {
	if event.Amount != nil {
		return *event.Amount
	}
	md := event.Metadata
	switch event.EventType {
	case models.EventGoalCompletion:
		return points.GoalPoints(md.BasePoints, md.Difficulty, occurredAt, md.Deadline, liveStreak, md.TrainerApproved)
	case models.EventWorkoutCompletion:
		return points.WorkoutPoints(md.Difficulty, md.DurationMinutes, md.ExerciseCount, md.Planned, md.Quality()) +
			points.ApprovalBonus(md.TrainerApproved)
	default:
		return points.CheckinPoints
	}
}

func describeEvent(event models.ActivityEvent, title string) string {
	switch event.EventType {
	case models.EventGoalCompletion:
		if title != "" {
			return fmt.Sprintf("Completed goal: %s", title)
		}
		return "Completed goal"
	case models.EventWorkoutCompletion:
		if title != "" {
			return fmt.Sprintf("Completed workout: %s", title)
		}
		return "Completed workout"
	default:
		return "Daily check-in"
	}
}

// afterCommit records metrics and sends notifications for a committed write.
func (e *Engine) afterCommit(ctx context.Context, profile *models.GamificationProfile, eventID string, unlocks []models.AchievementUnlock, lost map[string]int) {
	if eventID != "" {
		for _, tx := range profile.PointTransactions {
			if tx.EventID == eventID && tx.Type != models.TxTypeRedeem {
				e.metrics.RecordPointsAwarded(tx.Source, tx.Amount)
			}
		}
	}
	for _, u := range unlocks {
		e.metrics.RecordAchievementUnlocked(u.Rarity)
	}
	for category := range lost {
		e.metrics.RecordStreakLost(category)
	}

	log := logger.ForUser(profile.UserID)
	if len(unlocks) > 0 {
		if err := e.notifier.AchievementsUnlocked(ctx, profile.UserID, unlocks); err != nil {
			log.WithEvent(eventID).Warn("Failed to send achievement notification", logger.KeyError, err)
		}
	}
	for category, days := range lost {
		if err := e.notifier.StreakLost(ctx, profile.UserID, category, days); err != nil {
			log.Warn("Failed to send streak notification", "category", category, logger.KeyError, err)
		}
	}
}

// logFailure logs errors that indicate a defect at error level and expected
// user-facing outcomes at debug level.
func (e *Engine) logFailure(msg, userID string, err error, keysAndValues ...interface{}) {
	log := logger.ForUser(userID)
	kv := append(keysAndValues, "code", errors.CodeOf(err), logger.KeyError, err)
	switch errors.CodeOf(err) {
	case errors.ErrCodeInsufficientFunds, errors.ErrCodeNotFound, errors.ErrCodeValidation,
		errors.ErrCodeUnavailable, errors.ErrCodeRateLimitExceeded:
		log.Debug(msg, kv...)
	default:
		log.Error(msg, kv...)
	}
}

// CheckAndAwardAchievements re-evaluates the user's badges outside of an
// event. A repeat call with no new activity unlocks nothing.
func (e *Engine) CheckAndAwardAchievements(ctx context.Context, userID string) ([]models.AchievementUnlock, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	badges, err := e.catalog.ActiveAchievements(ctx)
	if err != nil {
		return nil, err
	}

	var unlocks []models.AchievementUnlock
	var eventID string
	profile, err := e.ledger.Apply(ctx, userID, func(m *Mutation) error {
		var err error
		eventID = m.EventID
		unlocks, err = e.achievements.Evaluate(m, badges)
		return err
	})
	if err != nil {
		e.logFailure("Failed to check achievements", userID, err)
		return nil, err
	}
	e.afterCommit(ctx, profile, eventID, unlocks, nil)
	return unlocks, nil
}

func (e *Engine) RedeemReward(ctx context.Context, userID, rewardID string) (*RedemptionResult, error) {
	if err := e.admit(userID); err != nil {
		return nil, err
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	result, err := e.rewards.RedeemReward(ctx, userID, rewardID)
	if err != nil {
		e.logFailure("Failed to redeem reward", userID, err, "reward_id", rewardID)
		return nil, err
	}
	logger.ForUser(userID).WithEvent(result.EventID).Info("Reward redeemed", "reward_id", rewardID, "cost", result.Reward.FitCoinCost)
	return result, nil
}

// GetStats returns the user's stats, applying any pending streak resets first.
func (e *Engine) GetStats(ctx context.Context, userID string) (*models.GamificationStats, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	var lost map[string]int
	profile, err := e.ledger.Apply(ctx, userID, func(m *Mutation) error {
		lost = e.streaks.CheckAndResetStreaks(m.Profile, m.Now)
		return nil
	})
	if err != nil {
		e.logFailure("Failed to get stats", userID, err)
		return nil, err
	}
	e.afterCommit(ctx, profile, "", nil, lost)
	return profile.Stats(), nil
}

func (e *Engine) GetPointHistory(ctx context.Context, userID string, limit int) ([]models.PointTransaction, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	return e.profiles.GetPointHistory(ctx, userID, limit)
}

func (e *Engine) GetAchievementsWithProgress(ctx context.Context, userID string) ([]models.AchievementProgress, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	return e.achievements.Progress(ctx, userID)
}

func (e *Engine) ListRewards(ctx context.Context, filter models.RewardFilter) ([]models.Reward, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	return e.rewards.ListRewards(ctx, filter)
}

func (e *Engine) GetLeaderboard(ctx context.Context, limit int, scope *models.LeaderboardScope) ([]models.LeaderboardEntry, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	return e.leaderboard.GetLeaderboard(ctx, limit, scope)
}

// UpdateUserRanks is a batch job and is not bound by the request timeout.
func (e *Engine) UpdateUserRanks(ctx context.Context) error {
	return e.leaderboard.UpdateUserRanks(ctx)
}

// Reconcile checks one profile's ledger invariants.
func (e *Engine) Reconcile(ctx context.Context, userID string) error {
	if err := validateUser(userID); err != nil {
		return err
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	return e.ledger.Reconcile(ctx, userID)
}

// SweepStreaks resets stale streaks across all profiles so "streak lost"
// notifications go out without waiting for the user's next read. It returns
// the number of profiles reset. Per-user failures are logged and skipped.
func (e *Engine) SweepStreaks(ctx context.Context, now time.Time) (int, error) {
	userIDs, err := e.profiles.ListStaleStreakUsers(ctx, e.streaks.StaleCutoff(now))
	if err != nil {
		return 0, err
	}

	results := make([]bool, len(userIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepConcurrency)

	for i, userID := range userIDs {
		g.Go(func() error {
			if err := validateUser(userID); err != nil {
				logger.Warn("Skipping streak sweep for malformed user id", logger.KeyUserID, userID)
				return nil
			}
			uctx, cancel := e.withTimeout(gctx)
			defer cancel()

			var lost map[string]int
			profile, err := e.ledger.Apply(uctx, userID, func(m *Mutation) error {
				lost = e.streaks.CheckAndResetStreaks(m.Profile, now)
				return nil
			})
			if err != nil {
				e.logFailure("Failed to sweep streaks", userID, err)
				return nil
			}
			e.afterCommit(uctx, profile, "", nil, lost)
			results[i] = len(lost) > 0
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	reset := 0
	for _, ok := range results {
		if ok {
			reset++
		}
	}
	logger.Info("Streak sweep finished", "candidates", len(userIDs), "reset", reset)
	return reset, nil
}

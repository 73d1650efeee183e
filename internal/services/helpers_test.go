package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mroshb/fitquest/internal/config"
	"github.com/mroshb/fitquest/internal/database"
	"github.com/mroshb/fitquest/internal/metrics"
	"github.com/mroshb/fitquest/internal/models"
	"gorm.io/gorm"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type lostStreak struct {
	userID   string
	category string
	days     int
}

type recordingNotifier struct {
	mu      sync.Mutex
	unlocks map[string][]string
	lost    []lostStreak
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{unlocks: make(map[string][]string)}
}

func (n *recordingNotifier) AchievementsUnlocked(ctx context.Context, userID string, unlocks []models.AchievementUnlock) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, u := range unlocks {
		n.unlocks[userID] = append(n.unlocks[userID], u.AchievementID)
	}
	return nil
}

func (n *recordingNotifier) StreakLost(ctx context.Context, userID, category string, days int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.lost = append(n.lost, lostStreak{userID: userID, category: category, days: days})
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		DBDriver:           config.DriverSQLite,
		SQLitePath:         ":memory:",
		LedgerMaxAttempts:  5,
		LedgerRetryBaseMS:  1,
		AchievementPassCap: 10,
		RequestTimeoutSec:  5,
		StreakTimezone:     "UTC",
		EventRatePerMinute: 600,
		EventRateBurst:     100,
	}
}

func newTestDB(t *testing.T, cfg *config.Config) *gorm.DB {
	t.Helper()
	db, err := database.Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate() error = %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

type testEngine struct {
	*Engine
	db       *gorm.DB
	clock    *testClock
	notifier *recordingNotifier
}

// newTestEngine builds an engine on an empty in-memory database with the clock
// fixed at day0.
func newTestEngine(t *testing.T, tweak func(*config.Config)) *testEngine {
	t.Helper()
	cfg := testConfig()
	if tweak != nil {
		tweak(cfg)
	}
	db := newTestDB(t, cfg)
	clock := &testClock{now: day0}
	notifier := newRecordingNotifier()

	engine := NewEngine(db, cfg, metrics.NewCollector("test"), WithClock(clock.Now), WithNotifier(notifier))
	return &testEngine{Engine: engine, db: db, clock: clock, notifier: notifier}
}

func (te *testEngine) addBadges(t *testing.T, badges ...models.AchievementBadge) {
	t.Helper()
	for i := range badges {
		if err := te.catalog.UpsertAchievement(context.Background(), &badges[i]); err != nil {
			t.Fatalf("UpsertAchievement(%s) error = %v", badges[i].ID, err)
		}
	}
}

func (te *testEngine) addReward(t *testing.T, reward models.Reward) {
	t.Helper()
	if err := te.catalog.UpsertReward(context.Background(), &reward); err != nil {
		t.Fatalf("UpsertReward(%s) error = %v", reward.ID, err)
	}
}

// grant credits a fixed amount through a goal completion with an amount override.
func (te *testEngine) grant(t *testing.T, userID string, amount int64) {
	t.Helper()
	_, err := te.HandleEvent(context.Background(), models.ActivityEvent{
		UserID:    userID,
		EventType: models.EventGoalCompletion,
		Amount:    &amount,
	})
	if err != nil {
		t.Fatalf("grant(%s, %d) error = %v", userID, amount, err)
	}
}

func (te *testEngine) handle(t *testing.T, event models.ActivityEvent) *EventResult {
	t.Helper()
	result, err := te.HandleEvent(context.Background(), event)
	if err != nil {
		t.Fatalf("HandleEvent(%s, %s) error = %v", event.UserID, event.EventType, err)
	}
	return result
}

func checkin(userID string) models.ActivityEvent {
	return models.ActivityEvent{UserID: userID, EventType: models.EventCheckin}
}

func reward(id string, cost int64) models.Reward {
	return models.Reward{
		ID:           id,
		Title:        id,
		Description:  id,
		Category:     models.RewardDigital,
		FitCoinCost:  cost,
		Tier:         models.TierBronze,
		Availability: models.AvailabilityAlways,
		IsActive:     true,
	}
}

func int64Ptr(v int64) *int64 { return &v }

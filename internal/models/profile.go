package models

import (
	"fmt"
	"math"
	"time"

	"github.com/mroshb/fitquest/internal/points"
	"github.com/mroshb/fitquest/pkg/errors"
)

// GamificationProfile is the per-user aggregate. Every mutation goes through its
// methods and is persisted conditioned on Version.
type GamificationProfile struct {
	UserID            string    `gorm:"primaryKey;type:varchar(64)"`
	TotalPointsEarned int64     `gorm:"not null;default:0;index"`
	CurrentFitCoins   int64     `gorm:"not null;default:0"`
	ExperiencePoints  int64     `gorm:"not null;default:0"`
	Level             int       `gorm:"not null;default:1"`
	Rank              *int      `gorm:"index"`
	Version           int64     `gorm:"not null;default:0"`
	CreatedAt         time.Time `gorm:"autoCreateTime"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime"`

	Streaks           []ProfileStreak      `gorm:"foreignKey:UserID;references:UserID"`
	Achievements      []ProfileAchievement `gorm:"foreignKey:UserID;references:UserID"`
	RedeemedRewards   []RedeemedReward     `gorm:"foreignKey:UserID;references:UserID"`
	PointTransactions []PointTransaction   `gorm:"foreignKey:UserID;references:UserID"`

	changed bool
}

// ProfileStreak is the consecutive-day counter for one activity category.
// LastActivityDate holds the calendar day at 00:00 UTC.
type ProfileStreak struct {
	ID               uint      `gorm:"primaryKey"`
	UserID           string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_streak_user_category"`
	Category         string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_streak_user_category"`
	Count            int       `gorm:"not null;default:0"`
	LastActivityDate time.Time `gorm:"index"`
}

type ProfileAchievement struct {
	ID            uint      `gorm:"primaryKey"`
	UserID        string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_user_achievement"`
	AchievementID string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_user_achievement"`
	UnlockedAt    time.Time `gorm:"not null"`
}

type RedeemedReward struct {
	ID           uint      `gorm:"primaryKey"`
	UserID       string    `gorm:"type:varchar(64);not null;index"`
	RewardID     string    `gorm:"type:varchar(64);not null;index"`
	FitCoinsCost int64     `gorm:"not null"`
	EventID      string    `gorm:"type:varchar(36)"`
	RedeemedAt   time.Time `gorm:"not null"`
}

// Streak categories
const (
	StreakWorkout  = "workout"
	StreakGoals    = "goals"
	StreakCheckins = "checkins"
)

// StreakCategories lists every category tracked on a profile.
var StreakCategories = []string{StreakWorkout, StreakGoals, StreakCheckins}

func (GamificationProfile) TableName() string {
	return "gamification_profiles"
}

func (ProfileStreak) TableName() string {
	return "profile_streaks"
}

func (ProfileAchievement) TableName() string {
	return "profile_achievements"
}

func (RedeemedReward) TableName() string {
	return "redeemed_rewards"
}

// NewProfile returns a zeroed profile at level 1.
func NewProfile(userID string) *GamificationProfile {
	return &GamificationProfile{
		UserID: userID,
		Level:  1,
	}
}

// Changed reports whether the profile was mutated since it was loaded or saved.
func (p *GamificationProfile) Changed() bool {
	return p.changed
}

func (p *GamificationProfile) MarkChanged() {
	p.changed = true
}

// MarkSaved is called by the repository after a successful versioned write.
func (p *GamificationProfile) MarkSaved() {
	p.Version++
	p.changed = false
}

// AwardPoints credits an earn or bonus transaction and keeps XP, balance and the
// cached level in step.
func (p *GamificationProfile) AwardPoints(amount int64, txType, source, sourceID, eventID, description string, at time.Time) error {
	if txType != TxTypeEarn && txType != TxTypeBonus {
		return errors.New(errors.ErrCodeValidation, fmt.Sprintf("cannot award points with transaction type %q", txType))
	}
	if !ValidSource(source) || source == TxSourceRedemption {
		return errors.New(errors.ErrCodeValidation, fmt.Sprintf("invalid award source %q", source))
	}
	if amount < 0 {
		return errors.New(errors.ErrCodeValidation, fmt.Sprintf("award amount must not be negative, got %d", amount))
	}
	if top := max(p.TotalPointsEarned, p.CurrentFitCoins, p.ExperiencePoints); top > 0 && amount > math.MaxInt64-top {
		return errors.New(errors.ErrCodeValidation, fmt.Sprintf("award of %d would overflow the profile totals", amount))
	}

	p.PointTransactions = append(p.PointTransactions, PointTransaction{
		UserID:      p.UserID,
		EventID:     eventID,
		Amount:      amount,
		Type:        txType,
		Source:      source,
		SourceID:    sourceID,
		Description: description,
		CreatedAt:   at,
	})
	p.TotalPointsEarned += amount
	p.CurrentFitCoins += amount
	p.ExperiencePoints += amount
	p.Level = points.LevelFromXP(p.ExperiencePoints).Level
	p.changed = true
	return nil
}

// Redeem debits the reward cost. It fails with INSUFFICIENT_FUNDS and leaves the
// profile untouched when the balance cannot cover it.
func (p *GamificationProfile) Redeem(reward *Reward, eventID string, at time.Time) error {
	if reward.FitCoinCost <= 0 {
		return errors.New(errors.ErrCodeValidation, fmt.Sprintf("reward %s has non-positive cost %d", reward.ID, reward.FitCoinCost))
	}
	if p.CurrentFitCoins < reward.FitCoinCost {
		return errors.New(errors.ErrCodeInsufficientFunds,
			fmt.Sprintf("insufficient FitCoins: have %d, need %d", p.CurrentFitCoins, reward.FitCoinCost))
	}

	p.PointTransactions = append(p.PointTransactions, PointTransaction{
		UserID:      p.UserID,
		EventID:     eventID,
		Amount:      -reward.FitCoinCost,
		Type:        TxTypeRedeem,
		Source:      TxSourceRedemption,
		SourceID:    reward.ID,
		Description: fmt.Sprintf("Redeemed reward: %s", reward.Title),
		CreatedAt:   at,
	})
	p.RedeemedRewards = append(p.RedeemedRewards, RedeemedReward{
		UserID:       p.UserID,
		RewardID:     reward.ID,
		FitCoinsCost: reward.FitCoinCost,
		EventID:      eventID,
		RedeemedAt:   at,
	})
	p.CurrentFitCoins -= reward.FitCoinCost
	p.changed = true
	return nil
}

func (p *GamificationProfile) HasAchievement(achievementID string) bool {
	for _, a := range p.Achievements {
		if a.AchievementID == achievementID {
			return true
		}
	}
	return false
}

// AddAchievement records an unlock; it returns false if the id is already present.
func (p *GamificationProfile) AddAchievement(achievementID string, at time.Time) bool {
	if p.HasAchievement(achievementID) {
		return false
	}
	p.Achievements = append(p.Achievements, ProfileAchievement{
		UserID:        p.UserID,
		AchievementID: achievementID,
		UnlockedAt:    at,
	})
	p.changed = true
	return true
}

// Streak returns the streak row for category, adding an empty one if missing.
// The pointer is only valid until the next row is added.
func (p *GamificationProfile) Streak(category string) *ProfileStreak {
	for i := range p.Streaks {
		if p.Streaks[i].Category == category {
			return &p.Streaks[i]
		}
	}
	p.Streaks = append(p.Streaks, ProfileStreak{UserID: p.UserID, Category: category})
	return &p.Streaks[len(p.Streaks)-1]
}

// StreakCount is the current count for category without creating a row.
func (p *GamificationProfile) StreakCount(category string) int {
	for _, s := range p.Streaks {
		if s.Category == category {
			return s.Count
		}
	}
	return 0
}

func (p *GamificationProfile) MaxStreak() int {
	max := 0
	for _, s := range p.Streaks {
		if s.Count > max {
			max = s.Count
		}
	}
	return max
}

func (p *GamificationProfile) StreakMap() map[string]int {
	m := make(map[string]int, len(StreakCategories))
	for _, c := range StreakCategories {
		m[c] = 0
	}
	for _, s := range p.Streaks {
		m[s.Category] = s.Count
	}
	return m
}

// CountBySource counts earn entries for the given source, i.e. completed
// activities. Bonus rows riding on the same source are not counted.
func (p *GamificationProfile) CountBySource(source string) int {
	n := 0
	for _, tx := range p.PointTransactions {
		if tx.Source == source && tx.Type == TxTypeEarn {
			n++
		}
	}
	return n
}

// HasTransaction reports whether an entry for (source, sourceID) already exists.
func (p *GamificationProfile) HasTransaction(source, sourceID string) bool {
	if sourceID == "" {
		return false
	}
	for _, tx := range p.PointTransactions {
		if tx.Source == source && tx.SourceID == sourceID {
			return true
		}
	}
	return false
}

func (p *GamificationProfile) LedgerSum() int64 {
	var sum int64
	for _, tx := range p.PointTransactions {
		sum += tx.Amount
	}
	return sum
}

// Reconcile checks the ledger invariants. A failure here is a defect, never a
// user error.
func (p *GamificationProfile) Reconcile() error {
	var earned, sum int64
	for _, tx := range p.PointTransactions {
		sum += tx.Amount
		if tx.Type == TxTypeEarn || tx.Type == TxTypeBonus {
			earned += tx.Amount
		}
	}

	switch {
	case p.CurrentFitCoins < 0:
		return errors.New(errors.ErrCodeInvariantViolation, fmt.Sprintf("negative balance %d", p.CurrentFitCoins))
	case sum != p.CurrentFitCoins:
		return errors.New(errors.ErrCodeInvariantViolation,
			fmt.Sprintf("balance %d drifted from ledger sum %d", p.CurrentFitCoins, sum))
	case earned != p.TotalPointsEarned:
		return errors.New(errors.ErrCodeInvariantViolation,
			fmt.Sprintf("total earned %d drifted from ledger earnings %d", p.TotalPointsEarned, earned))
	case p.Level != points.LevelFromXP(p.ExperiencePoints).Level:
		return errors.New(errors.ErrCodeInvariantViolation,
			fmt.Sprintf("cached level %d out of sync with xp %d", p.Level, p.ExperiencePoints))
	}

	seen := make(map[string]struct{}, len(p.Achievements))
	for _, a := range p.Achievements {
		if _, dup := seen[a.AchievementID]; dup {
			return errors.New(errors.ErrCodeInvariantViolation, fmt.Sprintf("duplicate achievement %s", a.AchievementID))
		}
		seen[a.AchievementID] = struct{}{}
	}
	return nil
}

// Stats builds the client-facing view.
func (p *GamificationProfile) Stats() *GamificationStats {
	info := points.LevelFromXP(p.ExperiencePoints)
	return &GamificationStats{
		Level:                info.Level,
		ExperiencePoints:     p.ExperiencePoints,
		XPIntoLevel:          info.XPIntoLevel,
		XPForNextLevel:       info.XPForNextLevel,
		CurrentFitCoins:      p.CurrentFitCoins,
		TotalPointsEarned:    p.TotalPointsEarned,
		Streaks:              p.StreakMap(),
		AchievementCount:     len(p.Achievements),
		RedeemedRewardsCount: len(p.RedeemedRewards),
		Rank:                 p.Rank,
	}
}

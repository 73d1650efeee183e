package models

import (
	"time"
)

// PointTransaction is one immutable ledger entry. Amount is negative for redemptions.
type PointTransaction struct {
	ID          uint      `gorm:"primaryKey"`
	UserID      string    `gorm:"type:varchar(64);not null;index"`
	EventID     string    `gorm:"type:varchar(36);index"`
	Amount      int64     `gorm:"not null"`
	Type        string    `gorm:"type:varchar(20);not null"`
	Source      string    `gorm:"type:varchar(40);not null;index:idx_tx_source"`
	SourceID    string    `gorm:"type:varchar(128);index:idx_tx_source"`
	Description string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"not null;index"`
}

// Transaction type constants
const (
	TxTypeEarn   = "earn"
	TxTypeBonus  = "bonus"
	TxTypeRedeem = "redeem"
)

// Transaction source constants
const (
	TxSourceGoalCompletion    = "goal_completion"
	TxSourceWorkoutCompletion = "workout_completion"
	TxSourceCheckin           = "checkin"
	TxSourceAchievement       = "achievement"
	TxSourceRedemption        = "redemption"
)

func ValidSource(source string) bool {
	switch source {
	case TxSourceGoalCompletion, TxSourceWorkoutCompletion, TxSourceCheckin,
		TxSourceAchievement, TxSourceRedemption:
		return true
	}
	return false
}

func (PointTransaction) TableName() string {
	return "point_transactions"
}

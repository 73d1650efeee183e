package models

import (
	"fmt"
	"time"

	"github.com/mroshb/fitquest/pkg/errors"
)

type Reward struct {
	ID                 string     `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Title              string     `gorm:"type:varchar(200);not null" json:"title"`
	Description        string     `gorm:"type:text;not null" json:"description"`
	Category           string     `gorm:"type:varchar(20);not null;index" json:"category"`
	FitCoinCost        int64      `gorm:"not null;index" json:"fitCoinCost"`
	Tier               string     `gorm:"type:varchar(20);not null;index" json:"tier"`
	Availability       string     `gorm:"type:varchar(20);not null" json:"availability"`
	MaxRedemptions     *int64     `json:"maxRedemptions,omitempty"`
	CurrentRedemptions int64      `gorm:"not null;default:0" json:"currentRedemptions"`
	IsActive           bool       `gorm:"not null;index" json:"isActive"`
	ValidFrom          *time.Time `json:"validFrom,omitempty"`
	ValidUntil         *time.Time `json:"validUntil,omitempty"`
	CreatedBy          string     `gorm:"type:varchar(64)" json:"createdBy"`
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

// Reward categories
const (
	RewardDigital    = "digital"
	RewardPhysical   = "physical"
	RewardExperience = "experience"
)

// Reward tiers
const (
	TierBronze   = "bronze"
	TierSilver   = "silver"
	TierGold     = "gold"
	TierPlatinum = "platinum"
)

// Availability kinds
const (
	AvailabilityAlways   = "always"
	AvailabilityLimited  = "limited"
	AvailabilitySeasonal = "seasonal"
)

func (Reward) TableName() string {
	return "rewards"
}

// InWindow reports whether now falls inside the reward's validity window.
func (r *Reward) InWindow(now time.Time) bool {
	if r.ValidFrom != nil && now.Before(*r.ValidFrom) {
		return false
	}
	if r.ValidUntil != nil && now.After(*r.ValidUntil) {
		return false
	}
	return true
}

func (r *Reward) SoldOut() bool {
	return r.MaxRedemptions != nil && r.CurrentRedemptions >= *r.MaxRedemptions
}

// CheckRedeemable returns an UNAVAILABLE error describing why the reward cannot
// be redeemed at now, or nil.
func (r *Reward) CheckRedeemable(now time.Time) error {
	switch {
	case !r.IsActive:
		return errors.New(errors.ErrCodeUnavailable, fmt.Sprintf("reward %s is not active", r.ID))
	case !r.InWindow(now):
		return errors.New(errors.ErrCodeUnavailable, fmt.Sprintf("reward %s is outside its availability window", r.ID))
	case r.SoldOut():
		return errors.New(errors.ErrCodeUnavailable, fmt.Sprintf("reward %s is sold out", r.ID))
	}
	return nil
}

func (r *Reward) Validate() error {
	if r.ID == "" || r.Title == "" {
		return errors.New(errors.ErrCodeValidation, "reward id and title are required")
	}
	if r.FitCoinCost < 1 {
		return errors.New(errors.ErrCodeValidation, fmt.Sprintf("reward %s: cost must be at least 1", r.ID))
	}
	switch r.Tier {
	case TierBronze, TierSilver, TierGold, TierPlatinum:
	default:
		return errors.New(errors.ErrCodeValidation, fmt.Sprintf("reward %s: unknown tier %q", r.ID, r.Tier))
	}
	switch r.Category {
	case RewardDigital, RewardPhysical, RewardExperience:
	default:
		return errors.New(errors.ErrCodeValidation, fmt.Sprintf("reward %s: unknown category %q", r.ID, r.Category))
	}
	switch r.Availability {
	case AvailabilityAlways, AvailabilityLimited, AvailabilitySeasonal:
	default:
		return errors.New(errors.ErrCodeValidation, fmt.Sprintf("reward %s: unknown availability %q", r.ID, r.Availability))
	}
	if r.Availability == AvailabilitySeasonal && (r.ValidFrom == nil || r.ValidUntil == nil) {
		return errors.New(errors.ErrCodeValidation, fmt.Sprintf("reward %s: seasonal rewards need a validity window", r.ID))
	}
	if r.Availability == AvailabilityLimited && r.MaxRedemptions == nil {
		return errors.New(errors.ErrCodeValidation, fmt.Sprintf("reward %s: limited rewards need max redemptions", r.ID))
	}
	return nil
}

// RewardFilter narrows the catalog query. Empty fields match everything.
type RewardFilter struct {
	Tier         string
	Availability string
	Now          time.Time
}

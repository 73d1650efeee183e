package services

import (
	"context"
	"fmt"
	"time"

	"github.com/mroshb/fitquest/internal/models"
	"github.com/mroshb/fitquest/internal/points"
	"github.com/mroshb/fitquest/internal/repositories"
	"github.com/mroshb/fitquest/pkg/errors"
	"github.com/mroshb/fitquest/pkg/logger"
)

// requirementValues holds every aggregate a requirement can test, frozen at
// one point in time.
type requirementValues map[string]int64

func snapshotRequirements(p *models.GamificationProfile) requirementValues {
	return requirementValues{
		models.RequirementStreak:       int64(p.MaxStreak()),
		models.RequirementGoalCount:    int64(p.CountBySource(models.TxSourceGoalCompletion)),
		models.RequirementWorkoutCount: int64(p.CountBySource(models.TxSourceWorkoutCompletion)),
		models.RequirementPointsEarned: p.TotalPointsEarned,
		models.RequirementLevelReached: int64(points.LevelFromXP(p.ExperiencePoints).Level),
	}
}

// meets compares the frozen value against the requirement. Custom
// requirements have no evaluator and never match.
func (v requirementValues) meets(req models.Requirement) bool {
	current, ok := v[req.Type]
	if !ok {
		return false
	}
	switch req.Comparison {
	case models.CompareGTE:
		return current >= req.Value
	case models.CompareLTE:
		return current <= req.Value
	case models.CompareEQ:
		return current == req.Value
	default:
		return false
	}
}

// CheckRequirement reports whether the profile currently satisfies req.
func CheckRequirement(p *models.GamificationProfile, req models.Requirement) bool {
	return snapshotRequirements(p).meets(req)
}

// AchievementEngine unlocks badges inside a ledger mutation and credits their
// rewards to the same write.
type AchievementEngine struct {
	catalog  *repositories.CatalogRepository
	profiles *repositories.ProfileRepository
	passCap  int
}

func NewAchievementEngine(catalog *repositories.CatalogRepository, profiles *repositories.ProfileRepository, passCap int) *AchievementEngine {
	if passCap < 1 {
		passCap = 1
	}
	return &AchievementEngine{
		catalog:  catalog,
		profiles: profiles,
		passCap:  passCap,
	}
}

// Evaluate runs unlock passes over the mutation's profile until a pass
// unlocks nothing or the pass cap is reached. Each pass tests requirements
// against the values at the start of that pass, so a badge's own reward can
// never be what satisfies it; rewards only become visible to the next pass.
func (e *AchievementEngine) Evaluate(m *Mutation, badges []models.AchievementBadge) ([]models.AchievementUnlock, error) {
	var unlocks []models.AchievementUnlock
	profile := m.Profile

	for pass := 1; pass <= e.passCap; pass++ {
		qualified := qualifying(profile, badges)
		if len(qualified) == 0 {
			return unlocks, nil
		}

		for _, badge := range qualified {
			if !profile.AddAchievement(badge.ID, m.Now) {
				continue
			}
			if badge.PointsReward > 0 {
				err := profile.AwardPoints(badge.PointsReward, models.TxTypeBonus, models.TxSourceAchievement,
					badge.ID, m.EventID, fmt.Sprintf("Achievement unlocked: %s", badge.Name), m.Now)
				if err != nil {
					return nil, err
				}
			}
			unlocks = append(unlocks, models.AchievementUnlock{
				AchievementID: badge.ID,
				Name:          badge.Name,
				Description:   badge.Description,
				PointsAwarded: badge.PointsReward,
				Rarity:        badge.Rarity,
			})
		}
	}

	if len(qualifying(profile, badges)) == 0 {
		return unlocks, nil
	}
	logger.ForUser(profile.UserID).WithEvent(m.EventID).Warn("Achievement evaluation stopped at pass cap with unlocks pending",
		"cap", e.passCap,
		"unlocked", len(unlocks),
	)
	return unlocks, nil
}

// qualifying returns the locked badges whose requirement the profile meets
// right now.
func qualifying(profile *models.GamificationProfile, badges []models.AchievementBadge) []*models.AchievementBadge {
	values := snapshotRequirements(profile)

	var qualified []*models.AchievementBadge
	for i := range badges {
		badge := &badges[i]
		if profile.HasAchievement(badge.ID) {
			continue
		}
		if values.meets(badge.Requirement) {
			qualified = append(qualified, badge)
		}
	}
	return qualified
}

// Progress lists every active badge with the user's progress toward it. It
// never creates a profile; unknown users see zero progress.
func (e *AchievementEngine) Progress(ctx context.Context, userID string) ([]models.AchievementProgress, error) {
	badges, err := e.catalog.ActiveAchievements(ctx)
	if err != nil {
		return nil, err
	}

	profile, err := e.profiles.Load(ctx, userID)
	if errors.Is(err, errors.ErrCodeNotFound) {
		profile = models.NewProfile(userID)
	} else if err != nil {
		return nil, err
	}

	unlockedAt := make(map[string]time.Time, len(profile.Achievements))
	for _, a := range profile.Achievements {
		unlockedAt[a.AchievementID] = a.UnlockedAt
	}
	values := snapshotRequirements(profile)

	result := make([]models.AchievementProgress, 0, len(badges))
	for _, badge := range badges {
		progress := values[badge.Requirement.Type]
		if progress > badge.Requirement.Value {
			progress = badge.Requirement.Value
		}

		item := models.AchievementProgress{
			Achievement: badge,
			Progress:    progress,
			ProgressMax: badge.Requirement.Value,
		}
		if at, ok := unlockedAt[badge.ID]; ok {
			item.Unlocked = true
			item.UnlockedAt = &at
		}
		result = append(result, item)
	}
	return result, nil
}

// Package points holds the side-effect free point and level arithmetic used by
// the gamification engine. Nothing in here touches a profile or the database.
package points

import (
	"math"
	"time"
)

// Difficulty levels shared by goals and workouts.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
	DifficultyExpert = "expert"
)

const (
	DefaultGoalBasePoints = 100
	TimeBonusPoints       = 50
	ApprovalBonusPoints   = 25
	CheckinPoints         = 10
	GoalStreakPoints      = 10
	PlannedWorkoutPoints  = 20

	workoutBasePoints  = 50
	workoutDurationCap = 50
	exercisePoints     = 5
	exerciseCap        = 30
	levelBaseXP        = 100
	levelGrowth        = 1.5

	// keeps XPThreshold inside int64
	maxLevel = 90
)

var difficultyMultipliers = map[string]float64{
	DifficultyEasy:   1.0,
	DifficultyMedium: 1.5,
	DifficultyHard:   2.0,
	DifficultyExpert: 3.0,
}

// LevelInfo describes where an XP total sits on the level curve.
type LevelInfo struct {
	Level          int
	XPIntoLevel    int64
	XPForNextLevel int64
}

// ValidDifficulty reports whether d is a known difficulty.
func ValidDifficulty(d string) bool {
	_, ok := difficultyMultipliers[d]
	return ok
}

// DifficultyMultiplier returns the multiplier for d, 1.0 for unknown values.
func DifficultyMultiplier(d string) float64 {
	if m, ok := difficultyMultipliers[d]; ok {
		return m
	}
	return 1.0
}

// XPThreshold is the XP needed to go from level to level+1.
func XPThreshold(level int) int64 {
	if level < 1 {
		level = 1
	}
	if level > maxLevel {
		level = maxLevel
	}
	return int64(math.Floor(levelBaseXP * math.Pow(levelGrowth, float64(level-1))))
}

// LevelFromXP walks the cumulative threshold curve. Negative XP is treated as zero.
func LevelFromXP(xp int64) LevelInfo {
	if xp < 0 {
		xp = 0
	}
	level := 1
	remaining := xp
	for level < maxLevel {
		need := XPThreshold(level)
		if remaining < need {
			break
		}
		remaining -= need
		level++
	}
	return LevelInfo{
		Level:          level,
		XPIntoLevel:    remaining,
		XPForNextLevel: XPThreshold(level),
	}
}

// WorkoutPoints scales a workout's base amount by difficulty and by how much of
// it was completed (quality in [0,1], clamped). The base is 50 plus 5 per ten
// minutes (max 50), 5 per exercise (max 30) and 20 for a planned workout.
func WorkoutPoints(difficulty string, durationMinutes, exerciseCount int, planned bool, completionQuality float64) int64 {
	if durationMinutes < 0 {
		durationMinutes = 0
	}
	if exerciseCount < 0 {
		exerciseCount = 0
	}
	switch {
	case math.IsNaN(completionQuality) || completionQuality < 0:
		completionQuality = 0
	case completionQuality > 1:
		completionQuality = 1
	}

	durationBonus := (durationMinutes / 10) * 5
	if durationBonus > workoutDurationCap {
		durationBonus = workoutDurationCap
	}
	exerciseBonus := exerciseCount * exercisePoints
	if exerciseBonus > exerciseCap {
		exerciseBonus = exerciseCap
	}
	base := workoutBasePoints + durationBonus + exerciseBonus
	if planned {
		base += PlannedWorkoutPoints
	}
	raw := float64(base) * DifficultyMultiplier(difficulty) * completionQuality
	return int64(math.Round(raw))
}

// GoalPoints is the award for a completed goal. A zero basePoints falls back to
// DefaultGoalBasePoints; a zero deadline means no time bonus. goalStreak is the
// goals streak the athlete carried into this completion.
func GoalPoints(basePoints int64, difficulty string, completedAt, deadline time.Time, goalStreak int, trainerApproved bool) int64 {
	if basePoints <= 0 {
		basePoints = DefaultGoalBasePoints
	}
	difficultyBonus := int64(math.Round(float64(basePoints) * (DifficultyMultiplier(difficulty) - 1)))
	return basePoints + difficultyBonus + TimeBonus(completedAt, deadline) + GoalStreakBonus(goalStreak) + ApprovalBonus(trainerApproved)
}

// GoalStreakBonus pays GoalStreakPoints per day of the goals streak.
func GoalStreakBonus(goalStreak int) int64 {
	if goalStreak <= 0 {
		return 0
	}
	return int64(goalStreak) * GoalStreakPoints
}

// TimeBonus pays out when the goal was completed strictly before its deadline.
func TimeBonus(completedAt, deadline time.Time) int64 {
	if deadline.IsZero() || !completedAt.Before(deadline) {
		return 0
	}
	return TimeBonusPoints
}

// StreakBonus is the stepped milestone bonus for a streak of the given length.
func StreakBonus(streakLength int) int64 {
	switch {
	case streakLength >= 100:
		return 500
	case streakLength >= 30:
		return 200
	case streakLength >= 7:
		return 50
	default:
		return 0
	}
}

// ApprovalBonus is the fixed bonus for trainer-approved actions.
func ApprovalBonus(trainerApproved bool) int64 {
	if trainerApproved {
		return ApprovalBonusPoints
	}
	return 0
}

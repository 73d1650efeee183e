package models

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mroshb/fitquest/internal/points"
	"github.com/mroshb/fitquest/pkg/errors"
)

// Activity event types accepted by the engine
const (
	EventGoalCompletion    = "goal_completion"
	EventWorkoutCompletion = "workout_completion"
	EventCheckin           = "checkin"
)

const maxUserIDLength = 64

// Upper bounds on caller-supplied numbers. Anything larger is a malformed
// payload, and the caps keep every balance far from int64 overflow.
const (
	MaxEventAmount     = 1_000_000
	MaxGoalBasePoints  = 100_000
	MaxDurationMinutes = 24 * 60
	MaxExerciseCount   = 500
)

// ActivityEvent is what the fitness side of the application emits into the engine.
type ActivityEvent struct {
	UserID    string
	EventType string
	// Amount overrides the calculated award when set.
	Amount     *int64
	SourceID   string
	OccurredAt time.Time
	Metadata   EventMetadata
}

type EventMetadata struct {
	Title             string
	Difficulty        string
	DurationMinutes   int
	ExerciseCount     int
	Planned           bool
	CompletionQuality *float64
	BasePoints        int64
	Deadline          time.Time
	TrainerApproved   bool
}

// Validate runs before any mutation. Fields irrelevant to the event type are ignored.
func (e *ActivityEvent) Validate() error {
	if strings.TrimSpace(e.UserID) == "" {
		return errors.New(errors.ErrCodeValidation, "userId is required")
	}
	if len(e.UserID) > maxUserIDLength {
		return errors.New(errors.ErrCodeValidation, "userId is too long")
	}
	switch e.EventType {
	case EventGoalCompletion, EventWorkoutCompletion, EventCheckin:
	default:
		return errors.New(errors.ErrCodeValidation, fmt.Sprintf("unknown event type %q", e.EventType))
	}
	if e.Amount != nil && *e.Amount < 0 {
		return errors.New(errors.ErrCodeValidation, fmt.Sprintf("amount must not be negative, got %d", *e.Amount))
	}
	if e.Amount != nil && *e.Amount > MaxEventAmount {
		return errors.New(errors.ErrCodeValidation, fmt.Sprintf("amount must not exceed %d, got %d", MaxEventAmount, *e.Amount))
	}

	m := e.Metadata
	if m.Difficulty != "" && !points.ValidDifficulty(m.Difficulty) {
		return errors.New(errors.ErrCodeValidation, fmt.Sprintf("unknown difficulty %q", m.Difficulty))
	}
	if m.DurationMinutes < 0 || m.DurationMinutes > MaxDurationMinutes {
		return errors.New(errors.ErrCodeValidation, fmt.Sprintf("durationMinutes must be within [0,%d]", MaxDurationMinutes))
	}
	if m.ExerciseCount < 0 || m.ExerciseCount > MaxExerciseCount {
		return errors.New(errors.ErrCodeValidation, fmt.Sprintf("exerciseCount must be within [0,%d]", MaxExerciseCount))
	}
	if q := m.CompletionQuality; q != nil && (math.IsNaN(*q) || *q < 0 || *q > 1) {
		return errors.New(errors.ErrCodeValidation, "completionQuality must be within [0,1]")
	}
	if m.BasePoints < 0 || m.BasePoints > MaxGoalBasePoints {
		return errors.New(errors.ErrCodeValidation, fmt.Sprintf("basePoints must be within [0,%d]", MaxGoalBasePoints))
	}
	return nil
}

// Source maps the event type onto the ledger source.
func (e *ActivityEvent) Source() string {
	switch e.EventType {
	case EventGoalCompletion:
		return TxSourceGoalCompletion
	case EventWorkoutCompletion:
		return TxSourceWorkoutCompletion
	default:
		return TxSourceCheckin
	}
}

// StreakCategory maps the event type onto the streak it advances.
func (e *ActivityEvent) StreakCategory() string {
	switch e.EventType {
	case EventGoalCompletion:
		return StreakGoals
	case EventWorkoutCompletion:
		return StreakWorkout
	default:
		return StreakCheckins
	}
}

// Quality returns the completion quality, defaulting to a full completion.
func (m EventMetadata) Quality() float64 {
	if m.CompletionQuality == nil {
		return 1
	}
	return *m.CompletionQuality
}

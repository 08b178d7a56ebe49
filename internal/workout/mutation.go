package workout

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type Action string

const (
	ActionStartWorkout      Action = "start_workout"
	ActionCompleteSet       Action = "complete_set"
	ActionUndoSet           Action = "undo_set"
	ActionAddExerciseToday  Action = "add_exercise_today"
	ActionAddExerciseFuture Action = "add_exercise_future"
	ActionUpdateFocus       Action = "update_focus"
)

const (
	SetTypeReps  = "reps"
	SetTypeTimed = "timed"
)

// Mutation is one of the six workout mutation variants. Each variant knows
// its wire action tag and validates its own payload at the call boundary.
type Mutation interface {
	MutationAction() Action
	Validate() error
}

// MutationRequest is the wire envelope for POST /api/workout/mutation.
type MutationRequest struct {
	Action  Action          `json:"action"`
	Payload json.RawMessage `json:"payload"`
}

// MutationResult is the success response body. OK is always true on 2xx,
// the remaining fields depend on the action.
type MutationResult struct {
	OK                bool   `json:"ok"`
	WorkoutID         string `json:"workoutId,omitempty"`
	SetID             int64  `json:"setId,omitempty"`
	WorkoutExerciseID int64  `json:"workoutExerciseId,omitempty"`
	SetsCompleted     int    `json:"setsCompleted,omitempty"`
}

// ErrorResponse is the best-effort JSON error body for non-2xx responses.
type ErrorResponse struct {
	Error   string          `json:"error"`
	Details json.RawMessage `json:"details,omitempty"`
}

func NewMutationRequest(m Mutation) (*MutationRequest, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal mutation payload: %w", err)
	}
	return &MutationRequest{
		Action:  m.MutationAction(),
		Payload: payload,
	}, nil
}

type StartWorkout struct {
	RoutineID string    `json:"routineId"`
	StartedAt time.Time `json:"startedAt,omitempty"`
}

func (m StartWorkout) MutationAction() Action { return ActionStartWorkout }

func (m StartWorkout) Validate() error {
	if m.RoutineID == "" {
		return errors.New("routine id empty")
	}
	return nil
}

type CompleteSet struct {
	WorkoutID         string  `json:"workoutId"`
	WorkoutExerciseID int64   `json:"workoutExerciseId"`
	ExerciseID        string  `json:"exerciseId"`
	SetVariant        string  `json:"setVariant,omitempty"`
	SetType           string  `json:"setType"`
	Reps              int     `json:"reps,omitempty"`
	DurationSeconds   int     `json:"durationSeconds,omitempty"`
	Weight            float64 `json:"weight,omitempty"`
	Unit              string  `json:"unit,omitempty"`
}

func (m CompleteSet) MutationAction() Action { return ActionCompleteSet }

func (m CompleteSet) Validate() error {
	if m.WorkoutID == "" {
		return errors.New("workout id empty")
	}
	if m.WorkoutExerciseID <= 0 {
		return errors.New("workout exercise id empty")
	}
	switch m.SetType {
	case SetTypeReps:
		if m.Reps <= 0 {
			return errors.New("reps set needs a positive reps count")
		}
	case SetTypeTimed:
		if m.DurationSeconds <= 0 {
			return errors.New("timed set needs a positive duration")
		}
	default:
		return fmt.Errorf("unknown set type: %q", m.SetType)
	}
	return nil
}

type UndoSet struct {
	WorkoutID string `json:"workoutId"`
	SetID     int64  `json:"setId"`
}

func (m UndoSet) MutationAction() Action { return ActionUndoSet }

func (m UndoSet) Validate() error {
	if m.WorkoutID == "" {
		return errors.New("workout id empty")
	}
	if m.SetID <= 0 {
		return errors.New("set id empty")
	}
	return nil
}

type AddExerciseToday struct {
	WorkoutID  string  `json:"workoutId"`
	ExerciseID string  `json:"exerciseId"`
	Name       string  `json:"name"`
	Section    Section `json:"section"`
}

func (m AddExerciseToday) MutationAction() Action { return ActionAddExerciseToday }

func (m AddExerciseToday) Validate() error {
	if m.WorkoutID == "" {
		return errors.New("workout id empty")
	}
	if m.ExerciseID == "" {
		return errors.New("exercise id empty")
	}
	if !m.Section.Valid() {
		return fmt.Errorf("unknown section: %q", m.Section)
	}
	return nil
}

type AddExerciseFuture struct {
	RoutineID  string  `json:"routineId"`
	ExerciseID string  `json:"exerciseId"`
	Name       string  `json:"name"`
	Section    Section `json:"section"`
}

func (m AddExerciseFuture) MutationAction() Action { return ActionAddExerciseFuture }

func (m AddExerciseFuture) Validate() error {
	if m.RoutineID == "" {
		return errors.New("routine id empty")
	}
	if m.ExerciseID == "" {
		return errors.New("exercise id empty")
	}
	if !m.Section.Valid() {
		return fmt.Errorf("unknown section: %q", m.Section)
	}
	return nil
}

type UpdateFocus struct {
	WorkoutID  string  `json:"workoutId"`
	ExerciseID string  `json:"exerciseId"`
	Section    Section `json:"section"`
}

func (m UpdateFocus) MutationAction() Action { return ActionUpdateFocus }

func (m UpdateFocus) Validate() error {
	if m.WorkoutID == "" {
		return errors.New("workout id empty")
	}
	if m.ExerciseID == "" {
		return errors.New("exercise id empty")
	}
	if !m.Section.Valid() {
		return fmt.Errorf("unknown section: %q", m.Section)
	}
	return nil
}

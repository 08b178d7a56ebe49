package workout

import "time"

// Section of a workout session. The order is fixed: warmup, training, cooldown.
type Section string

const (
	SectionWarmup   Section = "warmup"
	SectionTraining Section = "training"
	SectionCooldown Section = "cooldown"
)

var SectionOrder = []Section{SectionWarmup, SectionTraining, SectionCooldown}

func (s Section) Valid() bool {
	for _, section := range SectionOrder {
		if s == section {
			return true
		}
	}
	return false
}

type Workout struct {
	ID              string     `json:"id"`
	UserID          string     `json:"userId"`
	RoutineID       string     `json:"routineId"`
	StartedAt       time.Time  `json:"startedAt"`
	FinishedAt      *time.Time `json:"finishedAt,omitempty"`
	FocusExerciseID string     `json:"focusExerciseId,omitempty"`
	FocusSection    Section    `json:"focusSection,omitempty"`
}

type WorkoutExercise struct {
	ID         int64     `json:"id"`
	WorkoutID  string    `json:"workoutId"`
	ExerciseID string    `json:"exerciseId"`
	Name       string    `json:"name"`
	Section    Section   `json:"section"`
	Position   int       `json:"position"`
	AddedAt    time.Time `json:"addedAt"`
}

type Set struct {
	ID                int64     `json:"id"`
	WorkoutID         string    `json:"workoutId"`
	WorkoutExerciseID int64     `json:"workoutExerciseId"`
	ExerciseID        string    `json:"exerciseId"`
	SetVariant        string    `json:"setVariant,omitempty"`
	SetType           string    `json:"setType"`
	Reps              int       `json:"reps,omitempty"`
	DurationSeconds   int       `json:"durationSeconds,omitempty"`
	Weight            float64   `json:"weight,omitempty"`
	Unit              string    `json:"unit,omitempty"`
	CompletedAt       time.Time `json:"completedAt"`
}

// State is the authoritative snapshot of one workout session, as served to
// followers re-reading after a change event.
type State struct {
	Workout   Workout           `json:"workout"`
	Exercises []WorkoutExercise `json:"exercises"`
	Sets      []Set             `json:"sets"`
}

// CompletedExercises returns the ids of exercises that have at least one
// completed set for every planned set, i.e. the exercise counts as done.
// An ad-hoc exercise with no planned set count is done after its first set.
func (s *State) CompletedExercises(plannedSets map[string]int) map[string]bool {
	setsPerExercise := make(map[string]int)
	for _, set := range s.Sets {
		setsPerExercise[set.ExerciseID]++
	}

	completed := make(map[string]bool)
	for _, we := range s.Exercises {
		planned := plannedSets[we.ExerciseID]
		if planned <= 0 {
			planned = 1
		}
		if setsPerExercise[we.ExerciseID] >= planned {
			completed[we.ExerciseID] = true
		}
	}
	return completed
}

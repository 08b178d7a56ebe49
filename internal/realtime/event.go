package realtime

import (
	"encoding/json"
	"fmt"
)

type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

type Table string

const (
	TableSets             Table = "sets"
	TableWorkoutExercises Table = "workout_exercises"
)

// ChangeEvent is one row-level change on a workout-scoped table, fanned out
// verbatim to every listener of that workout id.
type ChangeEvent struct {
	EventType EventType       `json:"eventType"`
	Table     Table           `json:"table"`
	New       json.RawMessage `json:"new,omitempty"`
	Old       json.RawMessage `json:"old,omitempty"`
}

func setsChannel(workoutID string) string {
	return fmt.Sprintf("workout:%s:sets", workoutID)
}

func workoutExercisesChannel(workoutID string) string {
	return fmt.Sprintf("workout:%s:workout_exercises", workoutID)
}

func channelFor(workoutID string, table Table) (string, error) {
	switch table {
	case TableSets:
		return setsChannel(workoutID), nil
	case TableWorkoutExercises:
		return workoutExercisesChannel(workoutID), nil
	default:
		return "", fmt.Errorf("unknown change feed table: %q", table)
	}
}

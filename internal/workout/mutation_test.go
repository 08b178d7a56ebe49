package workout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutation_Validate(t *testing.T) {
	testCases := []struct {
		name     string
		mutation Mutation
		valid    bool
	}{
		{
			name:     "StartWorkoutValid",
			mutation: StartWorkout{RoutineID: "push-day"},
			valid:    true,
		},
		{
			name:     "StartWorkoutNoRoutine",
			mutation: StartWorkout{},
			valid:    false,
		},
		{
			name: "CompleteSetRepsValid",
			mutation: CompleteSet{
				WorkoutID: "w1", WorkoutExerciseID: 1, SetType: SetTypeReps, Reps: 10,
			},
			valid: true,
		},
		{
			name: "CompleteSetRepsWithoutReps",
			mutation: CompleteSet{
				WorkoutID: "w1", WorkoutExerciseID: 1, SetType: SetTypeReps,
			},
			valid: false,
		},
		{
			name: "CompleteSetTimedValid",
			mutation: CompleteSet{
				WorkoutID: "w1", WorkoutExerciseID: 1, SetType: SetTypeTimed, DurationSeconds: 30,
			},
			valid: true,
		},
		{
			name: "CompleteSetTimedWithoutDuration",
			mutation: CompleteSet{
				WorkoutID: "w1", WorkoutExerciseID: 1, SetType: SetTypeTimed,
			},
			valid: false,
		},
		{
			name: "CompleteSetUnknownType",
			mutation: CompleteSet{
				WorkoutID: "w1", WorkoutExerciseID: 1, SetType: "isometric",
			},
			valid: false,
		},
		{
			name:     "UndoSetValid",
			mutation: UndoSet{WorkoutID: "w1", SetID: 3},
			valid:    true,
		},
		{
			name:     "UndoSetNoSetID",
			mutation: UndoSet{WorkoutID: "w1"},
			valid:    false,
		},
		{
			name: "AddExerciseTodayValid",
			mutation: AddExerciseToday{
				WorkoutID: "w1", ExerciseID: "squat", Section: SectionTraining,
			},
			valid: true,
		},
		{
			name: "AddExerciseTodayBadSection",
			mutation: AddExerciseToday{
				WorkoutID: "w1", ExerciseID: "squat", Section: "stretching",
			},
			valid: false,
		},
		{
			name: "AddExerciseFutureValid",
			mutation: AddExerciseFuture{
				RoutineID: "push-day", ExerciseID: "squat", Section: SectionWarmup,
			},
			valid: true,
		},
		{
			name: "UpdateFocusValid",
			mutation: UpdateFocus{
				WorkoutID: "w1", ExerciseID: "squat", Section: SectionCooldown,
			},
			valid: true,
		},
		{
			name:     "UpdateFocusNoExercise",
			mutation: UpdateFocus{WorkoutID: "w1", Section: SectionCooldown},
			valid:    false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.mutation.Validate()
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestNewMutationRequest(t *testing.T) {
	req, err := NewMutationRequest(UndoSet{WorkoutID: "w1", SetID: 3})
	require.NoError(t, err)
	assert.Equal(t, ActionUndoSet, req.Action)
	assert.JSONEq(t, `{"workoutId":"w1","setId":3}`, string(req.Payload))
}

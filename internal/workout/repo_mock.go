package workout

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type repoMock struct {
	mu               sync.Mutex
	workouts         map[string]*Workout
	exercises        map[int64]*WorkoutExercise
	sets             map[int64]*Set
	routineExercises map[string][]WorkoutExercise
	nextWorkoutNum   int
	nextExerciseID   int64
	nextSetID        int64
}

func NewMockWorkoutRepo() *repoMock {
	return &repoMock{
		workouts:         make(map[string]*Workout),
		exercises:        make(map[int64]*WorkoutExercise),
		sets:             make(map[int64]*Set),
		routineExercises: make(map[string][]WorkoutExercise),
	}
}

func (r *repoMock) StartWorkout(_ context.Context, userID, routineID string, startedAt time.Time) (*Workout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if startedAt.IsZero() {
		startedAt = time.Now()
	}

	r.nextWorkoutNum++
	w := &Workout{
		ID:        fmt.Sprintf("workout-%d", r.nextWorkoutNum),
		UserID:    userID,
		RoutineID: routineID,
		StartedAt: startedAt,
	}
	r.workouts[w.ID] = w

	for _, re := range r.routineExercises[routineID] {
		r.nextExerciseID++
		we := re
		we.ID = r.nextExerciseID
		we.WorkoutID = w.ID
		we.AddedAt = startedAt
		r.exercises[we.ID] = &we
	}

	return w, nil
}

func (r *repoMock) CompleteSet(_ context.Context, set Set) (*Set, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if set.CompletedAt.IsZero() {
		set.CompletedAt = time.Now()
	}
	r.nextSetID++
	set.ID = r.nextSetID
	r.sets[set.ID] = &set
	return &set, nil
}

func (r *repoMock) UndoSet(_ context.Context, workoutID string, setID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.sets[setID]
	if !ok || set.WorkoutID != workoutID {
		return ErrSetNotFound
	}
	delete(r.sets, setID)
	return nil
}

func (r *repoMock) AddExerciseToday(_ context.Context, we WorkoutExercise) (*WorkoutExercise, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if we.AddedAt.IsZero() {
		we.AddedAt = time.Now()
	}
	r.nextExerciseID++
	we.ID = r.nextExerciseID
	we.Position = r.sectionSizeLocked(we.WorkoutID, we.Section) + 1
	r.exercises[we.ID] = &we
	return &we, nil
}

func (r *repoMock) AddExerciseFuture(_ context.Context, routineID string, we WorkoutExercise) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	we.Position = len(r.routineExercises[routineID]) + 1
	r.routineExercises[routineID] = append(r.routineExercises[routineID], we)
	return nil
}

func (r *repoMock) UpdateFocus(_ context.Context, workoutID, exerciseID string, section Section) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.workouts[workoutID]
	if !ok {
		return ErrWorkoutNotFound
	}
	w.FocusExerciseID = exerciseID
	w.FocusSection = section
	return nil
}

func (r *repoMock) SetsCompleted(_ context.Context, workoutID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, set := range r.sets {
		if set.WorkoutID == workoutID {
			count++
		}
	}
	return count, nil
}

func (r *repoMock) GetState(_ context.Context, workoutID string) (*State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.workouts[workoutID]
	if !ok {
		return nil, ErrWorkoutNotFound
	}

	state := &State{Workout: *w}
	for _, we := range r.exercises {
		if we.WorkoutID == workoutID {
			state.Exercises = append(state.Exercises, *we)
		}
	}
	for _, set := range r.sets {
		if set.WorkoutID == workoutID {
			state.Sets = append(state.Sets, *set)
		}
	}
	return state, nil
}

func (r *repoMock) sectionSizeLocked(workoutID string, section Section) int {
	count := 0
	for _, we := range r.exercises {
		if we.WorkoutID == workoutID && we.Section == section {
			count++
		}
	}
	return count
}

package workout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/repflow/repflow/internal/telemetry/tracing"
	"github.com/repflow/repflow/pkg"
)

var (
	ErrWorkoutNotFound  = errors.New("workout not found")
	ErrSetNotFound      = errors.New("set not found")
	ErrExerciseNotFound = errors.New("workout exercise not found")
	ErrWorkoutFinished  = errors.New("workout already finished")
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) StartWorkout(ctx context.Context, userID, routineID string, startedAt time.Time) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workout.start")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if startedAt.IsZero() {
		startedAt = time.Now()
	}

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO workout (user_id, routine_id, started_at)
			VALUES ($1, $2, $3)
			RETURNING id;`,
		userID, routineID, startedAt,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !rows.Next() {
		return nil, errors.New("unexpected error [no rows next]")
	}

	var id string
	if err := rows.Scan(&id); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}

	// copy the routine's exercises into the new workout
	if _, err := r.db.Exec(
		ctx,
		`INSERT INTO workout_exercise (workout_id, exercise_id, name, section, position, added_at)
			SELECT $1, exercise_id, name, section, position, $2
			FROM routine_exercise
			WHERE routine_id = $3;`,
		id, startedAt, routineID,
	); err != nil {
		return nil, fmt.Errorf("copy routine exercises: %w", err)
	}

	span.SetAttributes(attribute.String("workout.id", id))

	return &Workout{
		ID:        id,
		UserID:    userID,
		RoutineID: routineID,
		StartedAt: startedAt,
	}, nil
}

func (r *Repo) CompleteSet(ctx context.Context, set Set) (_ *Set, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workout.completeset")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if set.CompletedAt.IsZero() {
		set.CompletedAt = time.Now()
	}

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO set
				(workout_id, workout_exercise_id, exercise_id, set_variant, set_type,
				reps, duration_seconds, weight, unit, completed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id;`,
		set.WorkoutID, set.WorkoutExerciseID, set.ExerciseID, set.SetVariant, set.SetType,
		set.Reps, set.DurationSeconds, set.Weight, set.Unit, set.CompletedAt,
	)
	if err != nil {
		if pkg.IsForeignKeyViolationError(err) {
			return nil, ErrExerciseNotFound
		}
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !rows.Next() {
		return nil, errors.New("unexpected error [no rows next]")
	}

	if err := rows.Scan(&set.ID); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}

	span.SetAttributes(attribute.Int64("set.id", set.ID))
	return &set, nil
}

func (r *Repo) UndoSet(ctx context.Context, workoutID string, setID int64) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workout.undoset")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM set WHERE id = $1 AND workout_id = $2;`,
		setID, workoutID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSetNotFound
	}
	return nil
}

func (r *Repo) AddExerciseToday(ctx context.Context, we WorkoutExercise) (_ *WorkoutExercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workout.addexercise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if we.AddedAt.IsZero() {
		we.AddedAt = time.Now()
	}

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO workout_exercise (workout_id, exercise_id, name, section, position, added_at)
			VALUES (
				$1, $2, $3, $4,
				(SELECT COALESCE(MAX(position), 0) + 1 FROM workout_exercise
					WHERE workout_id = $1 AND section = $4),
				$5
			)
			RETURNING id, position;`,
		we.WorkoutID, we.ExerciseID, we.Name, we.Section, we.AddedAt,
	)
	if err != nil {
		if pkg.IsForeignKeyViolationError(err) {
			return nil, ErrWorkoutNotFound
		}
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !rows.Next() {
		return nil, errors.New("unexpected error [no rows next]")
	}

	if err := rows.Scan(&we.ID, &we.Position); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}

	span.SetAttributes(attribute.Int64("workoutexercise.id", we.ID))
	return &we, nil
}

// AddExerciseFuture appends an exercise to the routine itself, so it shows up
// in future workouts started from that routine. It does not touch any live
// workout, hence no change event is published for it.
func (r *Repo) AddExerciseFuture(ctx context.Context, routineID string, we WorkoutExercise) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workout.addexercisefuture")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	_, err = r.db.Exec(
		ctx,
		`INSERT INTO routine_exercise (routine_id, exercise_id, name, section, position)
			VALUES (
				$1, $2, $3, $4,
				(SELECT COALESCE(MAX(position), 0) + 1 FROM routine_exercise
					WHERE routine_id = $1 AND section = $4)
			);`,
		routineID, we.ExerciseID, we.Name, we.Section,
	)
	if pkg.IsUniqueViolationError(err) {
		// the routine already carries this exercise in that section,
		// retried or repeated requests land here
		return nil
	}
	return err
}

func (r *Repo) UpdateFocus(ctx context.Context, workoutID, exerciseID string, section Section) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workout.updatefocus")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tag, err := r.db.Exec(
		ctx,
		`UPDATE workout SET focus_exercise_id = $1, focus_section = $2
			WHERE id = $3 AND finished_at IS NULL;`,
		exerciseID, section, workoutID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrWorkoutNotFound
	}
	return nil
}

// SetsCompleted counts the sets logged so far for one workout.
func (r *Repo) SetsCompleted(ctx context.Context, workoutID string) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workout.setscompleted")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var count int
	if err := r.db.QueryRow(
		ctx,
		`SELECT COUNT(*) FROM set WHERE workout_id = $1;`,
		workoutID,
	).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// GetState returns the authoritative snapshot of one workout: the workout
// row, its exercises and every completed set.
func (r *Repo) GetState(ctx context.Context, workoutID string) (_ *State, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workout.getstate")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("workout.id", workoutID))

	var w Workout
	err = r.db.QueryRow(
		ctx,
		`SELECT id, user_id, routine_id, started_at, finished_at,
				COALESCE(focus_exercise_id, ''), COALESCE(focus_section, '')
			FROM workout WHERE id = $1;`,
		workoutID,
	).Scan(&w.ID, &w.UserID, &w.RoutineID, &w.StartedAt, &w.FinishedAt, &w.FocusExerciseID, &w.FocusSection)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrWorkoutNotFound
	}
	if err != nil {
		return nil, err
	}

	state := &State{Workout: w}

	weRows, err := r.db.Query(
		ctx,
		`SELECT id, workout_id, exercise_id, name, section, position, added_at
			FROM workout_exercise
			WHERE workout_id = $1
			ORDER BY section, position;`,
		workoutID,
	)
	if err != nil {
		return nil, err
	}
	defer weRows.Close()
	for weRows.Next() {
		var we WorkoutExercise
		if err := weRows.Scan(&we.ID, &we.WorkoutID, &we.ExerciseID, &we.Name, &we.Section, &we.Position, &we.AddedAt); err != nil {
			return nil, err
		}
		state.Exercises = append(state.Exercises, we)
	}
	if err := weRows.Err(); err != nil {
		return nil, err
	}

	setRows, err := r.db.Query(
		ctx,
		`SELECT id, workout_id, workout_exercise_id, exercise_id, set_variant, set_type,
				reps, duration_seconds, weight, unit, completed_at
			FROM set
			WHERE workout_id = $1
			ORDER BY completed_at;`,
		workoutID,
	)
	if err != nil {
		return nil, err
	}
	defer setRows.Close()
	for setRows.Next() {
		var s Set
		if err := setRows.Scan(
			&s.ID, &s.WorkoutID, &s.WorkoutExerciseID, &s.ExerciseID, &s.SetVariant, &s.SetType,
			&s.Reps, &s.DurationSeconds, &s.Weight, &s.Unit, &s.CompletedAt,
		); err != nil {
			return nil, err
		}
		state.Sets = append(state.Sets, s)
	}
	if err := setRows.Err(); err != nil {
		return nil, err
	}

	return state, nil
}

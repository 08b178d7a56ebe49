package workout

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/repflow/repflow/internal/realtime"
	"github.com/repflow/repflow/internal/telemetry/metrics"
	"github.com/repflow/repflow/internal/telemetry/tracing"
	"github.com/repflow/repflow/pkg"
)

type workoutRepo interface {
	StartWorkout(ctx context.Context, userID, routineID string, startedAt time.Time) (*Workout, error)
	CompleteSet(ctx context.Context, set Set) (*Set, error)
	UndoSet(ctx context.Context, workoutID string, setID int64) error
	AddExerciseToday(ctx context.Context, we WorkoutExercise) (*WorkoutExercise, error)
	AddExerciseFuture(ctx context.Context, routineID string, we WorkoutExercise) error
	UpdateFocus(ctx context.Context, workoutID, exerciseID string, section Section) error
	SetsCompleted(ctx context.Context, workoutID string) (int, error)
	GetState(ctx context.Context, workoutID string) (*State, error)
}

type changePublisher interface {
	Publish(ctx context.Context, workoutID string, event realtime.ChangeEvent) error
}

type userProvider interface {
	LoggedInUser(ctx context.Context, token string) (string, error)
}

type Handler struct {
	repo      workoutRepo
	publisher changePublisher
	users     userProvider
	metrics   *metrics.Manager
}

func NewHandler(
	repo workoutRepo,
	publisher changePublisher,
	users userProvider,
	metricsManager *metrics.Manager,
) *Handler {
	return &Handler{
		repo:      repo,
		publisher: publisher,
		users:     users,
		metrics:   metricsManager,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/api/workout/mutation", handler.HandleMutation).Methods("POST", "OPTIONS")
	router.HandleFunc("/api/workout/{id}", handler.HandleGetState).Methods("GET", "OPTIONS")
}

// HandleMutation is the single RPC-ish entrypoint for all workout mutations.
// The envelope carries an action tag plus an action-specific payload; every
// action is idempotent or safely repeatable, so clients retry it blindly.
func (handler *Handler) HandleMutation(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.mutation")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		writeError(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var req MutationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("workout mutation, unmarshal envelope: %s", err)
		writeError(w, "invalid mutation envelope", http.StatusBadRequest)
		return
	}

	span.SetAttributes(attribute.String("mutation.action", string(req.Action)))
	handler.metrics.CounterMutations.WithLabelValues(string(req.Action)).Inc()

	var (
		result *MutationResult
		err    error
	)
	switch req.Action {
	case ActionStartWorkout:
		result, err = handler.startWorkout(ctx, r, req.Payload)
	case ActionCompleteSet:
		result, err = handler.completeSet(ctx, req.Payload)
	case ActionUndoSet:
		result, err = handler.undoSet(ctx, req.Payload)
	case ActionAddExerciseToday:
		result, err = handler.addExerciseToday(ctx, req.Payload)
	case ActionAddExerciseFuture:
		result, err = handler.addExerciseFuture(ctx, req.Payload)
	case ActionUpdateFocus:
		result, err = handler.updateFocus(ctx, req.Payload)
	default:
		writeError(w, "unknown action", http.StatusBadRequest)
		return
	}

	if err != nil {
		handler.writeMutationError(w, req.Action, err)
		return
	}

	resultJson, err := json.Marshal(result)
	if err != nil {
		log.Errorf("workout mutation %s, marshal result: %s", req.Action, err)
		writeError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, resultJson, http.StatusOK)
}

func (handler *Handler) HandleGetState(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.getstate")
	defer span.End()

	workoutID := mux.Vars(r)["id"]
	if workoutID == "" {
		writeError(w, "workout id empty", http.StatusBadRequest)
		return
	}

	state, err := handler.repo.GetState(ctx, workoutID)
	if errors.Is(err, ErrWorkoutNotFound) {
		writeError(w, "workout not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Errorf("get workout %s state: %s", workoutID, err)
		writeError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	stateJson, err := json.Marshal(state)
	if err != nil {
		log.Errorf("marshal workout %s state: %s", workoutID, err)
		writeError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, stateJson, http.StatusOK)
}

var errInvalidPayload = errors.New("invalid payload")

func (handler *Handler) startWorkout(ctx context.Context, r *http.Request, payload json.RawMessage) (*MutationResult, error) {
	var m StartWorkout
	if err := unmarshalPayload(payload, &m); err != nil {
		return nil, err
	}

	userID, err := handler.users.LoggedInUser(ctx, bearerToken(r))
	if err != nil {
		return nil, err
	}

	w, err := handler.repo.StartWorkout(ctx, userID, m.RoutineID, m.StartedAt)
	if err != nil {
		return nil, err
	}

	log.Debugf("workout started: [%s] routine [%s]", w.ID, w.RoutineID)
	return &MutationResult{OK: true, WorkoutID: w.ID}, nil
}

func (handler *Handler) completeSet(ctx context.Context, payload json.RawMessage) (*MutationResult, error) {
	var m CompleteSet
	if err := unmarshalPayload(payload, &m); err != nil {
		return nil, err
	}

	set, err := handler.repo.CompleteSet(ctx, Set{
		WorkoutID:         m.WorkoutID,
		WorkoutExerciseID: m.WorkoutExerciseID,
		ExerciseID:        m.ExerciseID,
		SetVariant:        m.SetVariant,
		SetType:           m.SetType,
		Reps:              m.Reps,
		DurationSeconds:   m.DurationSeconds,
		Weight:            m.Weight,
		Unit:              m.Unit,
	})
	if err != nil {
		return nil, err
	}

	handler.publishChange(ctx, m.WorkoutID, realtime.TableSets, realtime.EventInsert, set, nil)

	setsCompleted, err := handler.repo.SetsCompleted(ctx, m.WorkoutID)
	if err != nil {
		log.Errorf("count sets for workout %s: %s", m.WorkoutID, err)
		setsCompleted = 0
	}

	return &MutationResult{OK: true, WorkoutID: m.WorkoutID, SetID: set.ID, SetsCompleted: setsCompleted}, nil
}

func (handler *Handler) undoSet(ctx context.Context, payload json.RawMessage) (*MutationResult, error) {
	var m UndoSet
	if err := unmarshalPayload(payload, &m); err != nil {
		return nil, err
	}

	if err := handler.repo.UndoSet(ctx, m.WorkoutID, m.SetID); err != nil {
		return nil, err
	}

	handler.publishChange(ctx, m.WorkoutID, realtime.TableSets, realtime.EventDelete, nil, Set{
		ID:        m.SetID,
		WorkoutID: m.WorkoutID,
	})

	return &MutationResult{OK: true, WorkoutID: m.WorkoutID, SetID: m.SetID}, nil
}

func (handler *Handler) addExerciseToday(ctx context.Context, payload json.RawMessage) (*MutationResult, error) {
	var m AddExerciseToday
	if err := unmarshalPayload(payload, &m); err != nil {
		return nil, err
	}

	we, err := handler.repo.AddExerciseToday(ctx, WorkoutExercise{
		WorkoutID:  m.WorkoutID,
		ExerciseID: m.ExerciseID,
		Name:       m.Name,
		Section:    m.Section,
	})
	if err != nil {
		return nil, err
	}

	handler.publishChange(ctx, m.WorkoutID, realtime.TableWorkoutExercises, realtime.EventInsert, we, nil)

	return &MutationResult{OK: true, WorkoutID: m.WorkoutID, WorkoutExerciseID: we.ID}, nil
}

func (handler *Handler) addExerciseFuture(ctx context.Context, payload json.RawMessage) (*MutationResult, error) {
	var m AddExerciseFuture
	if err := unmarshalPayload(payload, &m); err != nil {
		return nil, err
	}

	// routine-only change, no live workout is affected and nothing is published
	if err := handler.repo.AddExerciseFuture(ctx, m.RoutineID, WorkoutExercise{
		ExerciseID: m.ExerciseID,
		Name:       m.Name,
		Section:    m.Section,
	}); err != nil {
		return nil, err
	}

	return &MutationResult{OK: true}, nil
}

func (handler *Handler) updateFocus(ctx context.Context, payload json.RawMessage) (*MutationResult, error) {
	var m UpdateFocus
	if err := unmarshalPayload(payload, &m); err != nil {
		return nil, err
	}

	if err := handler.repo.UpdateFocus(ctx, m.WorkoutID, m.ExerciseID, m.Section); err != nil {
		return nil, err
	}

	handler.publishChange(ctx, m.WorkoutID, realtime.TableWorkoutExercises, realtime.EventUpdate, m, nil)

	return &MutationResult{OK: true, WorkoutID: m.WorkoutID}, nil
}

// publishChange pushes one row change onto the live feed. The row is already
// persisted at this point, so a failed publish is logged but never fails the
// mutation: followers recover on their next full state fetch.
func (handler *Handler) publishChange(
	ctx context.Context,
	workoutID string,
	table realtime.Table,
	eventType realtime.EventType,
	newRow, oldRow any,
) {
	event := realtime.ChangeEvent{
		EventType: eventType,
		Table:     table,
	}

	var err error
	if newRow != nil {
		if event.New, err = json.Marshal(newRow); err != nil {
			log.Errorf("change feed, marshal new row: %s", err)
			return
		}
	}
	if oldRow != nil {
		if event.Old, err = json.Marshal(oldRow); err != nil {
			log.Errorf("change feed, marshal old row: %s", err)
			return
		}
	}

	if err := handler.publisher.Publish(ctx, workoutID, event); err != nil {
		log.Errorf("change feed, publish %s on workout %s: %s", eventType, workoutID, err)
		return
	}
	handler.metrics.CounterChangeEvents.Inc()
}

func (handler *Handler) writeMutationError(w http.ResponseWriter, action Action, err error) {
	switch {
	case errors.Is(err, errInvalidPayload):
		log.Tracef("workout mutation %s: %s", action, err)
		writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrWorkoutNotFound):
		writeError(w, "workout not found", http.StatusNotFound)
	case errors.Is(err, ErrSetNotFound):
		writeError(w, "set not found", http.StatusNotFound)
	case errors.Is(err, ErrExerciseNotFound):
		writeError(w, "workout exercise not found", http.StatusNotFound)
	case errors.Is(err, ErrWorkoutFinished):
		writeError(w, "workout already finished", http.StatusConflict)
	default:
		log.Errorf("workout mutation %s failed: %s", action, err)
		writeError(w, "internal server error", http.StatusInternalServerError)
	}
}

func unmarshalPayload(payload json.RawMessage, m Mutation) error {
	if err := json.Unmarshal(payload, m); err != nil {
		return errors.Join(errInvalidPayload, err)
	}
	if err := m.Validate(); err != nil {
		return errors.Join(errInvalidPayload, err)
	}
	return nil
}

func bearerToken(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	body, err := json.Marshal(ErrorResponse{Error: message})
	if err != nil {
		http.Error(w, message, statusCode)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, body, statusCode)
}

package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/repflow/repflow/internal/client"
	"github.com/repflow/repflow/internal/workout"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var fastRetries = client.RetryPolicy{
	MaxAttempts: 3,
	BaseDelay:   time.Millisecond,
	MaxDelay:    5 * time.Millisecond,
}

func testSessions() client.SessionProvider {
	return client.StaticSessionProvider{Token: "test-token"}
}

func TestClient_Call_Success(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/workout/mutation", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var req workout.MutationRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, workout.ActionCompleteSet, req.Action)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"setId":42,"setsCompleted":3}`))
	}))
	defer server.Close()

	c := client.NewWithPolicy(server.URL, server.Client(), testSessions(), fastRetries)
	result, err := c.CompleteSet(context.Background(), workout.CompleteSet{
		WorkoutID:         "w1",
		WorkoutExerciseID: 7,
		ExerciseID:        "bench-press",
		SetType:           workout.SetTypeReps,
		Reps:              10,
		Weight:            80,
		Unit:              "kg",
	})
	require.NoError(t, err)

	assert.True(t, result.OK)
	assert.Equal(t, int64(42), result.SetID)
	assert.Equal(t, 3, result.SetsCompleted)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_Call_NoSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request issued without a session")
	}))
	defer server.Close()

	c := client.NewWithPolicy(server.URL, server.Client(), client.StaticSessionProvider{}, fastRetries)
	_, err := c.UndoSet(context.Background(), workout.UndoSet{WorkoutID: "w1", SetID: 1})
	assert.ErrorIs(t, err, client.ErrNoSession)
}

func TestClient_Call_SessionProviderError(t *testing.T) {
	c := client.NewWithPolicy("http://localhost:1", nil, client.SessionProviderFunc(
		func(ctx context.Context) (*client.Session, error) {
			return nil, errors.New("session store down")
		},
	), fastRetries)

	_, err := c.UndoSet(context.Background(), workout.UndoSet{WorkoutID: "w1", SetID: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session store down")
}

func TestClient_Call_RetryableFailuresThenSuccess(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusServiceUnavailable)
		case 2:
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			_, _ = w.Write([]byte(`{"ok":true,"workoutId":"w1"}`))
		}
	}))
	defer server.Close()

	c := client.NewWithPolicy(server.URL, server.Client(), testSessions(), fastRetries)
	result, err := c.StartWorkout(context.Background(), workout.StartWorkout{RoutineID: "push-day"})
	require.NoError(t, err)

	assert.Equal(t, "w1", result.WorkoutID)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_Call_BackoffBound(t *testing.T) {
	// every attempt fails: exactly MaxAttempts calls, last failure returned
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"db on fire"}`))
	}))
	defer server.Close()

	c := client.NewWithPolicy(server.URL, server.Client(), testSessions(), fastRetries)
	_, err := c.StartWorkout(context.Background(), workout.StartWorkout{RoutineID: "legs"})
	require.Error(t, err)

	var mutationErr *client.MutationError
	require.ErrorAs(t, err, &mutationErr)
	assert.Equal(t, http.StatusInternalServerError, mutationErr.StatusCode)
	assert.Equal(t, "db on fire", mutationErr.Message)
	assert.Equal(t, int32(fastRetries.MaxAttempts), calls.Load())
}

func TestClient_Call_FatalShortCircuit(t *testing.T) {
	// a 404 results in exactly one call and an immediate error
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"workout not found","details":{"workoutId":"w404"}}`))
	}))
	defer server.Close()

	c := client.NewWithPolicy(server.URL, server.Client(), testSessions(), fastRetries)
	_, err := c.UpdateFocus(context.Background(), workout.UpdateFocus{
		WorkoutID:  "w404",
		ExerciseID: "squat",
		Section:    workout.SectionTraining,
	})
	require.Error(t, err)

	var mutationErr *client.MutationError
	require.ErrorAs(t, err, &mutationErr)
	assert.Equal(t, http.StatusNotFound, mutationErr.StatusCode)
	assert.Equal(t, "workout not found", mutationErr.Message)
	assert.JSONEq(t, `{"workoutId":"w404"}`, string(mutationErr.Details))
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_Call_NonJSONErrorBodyTolerated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<html>bad gateway vibes</html>`))
	}))
	defer server.Close()

	c := client.NewWithPolicy(server.URL, server.Client(), testSessions(), fastRetries)
	_, err := c.UndoSet(context.Background(), workout.UndoSet{WorkoutID: "w1", SetID: 3})
	require.Error(t, err)

	var mutationErr *client.MutationError
	require.ErrorAs(t, err, &mutationErr)
	assert.Equal(t, http.StatusBadRequest, mutationErr.StatusCode)
	assert.Empty(t, mutationErr.Message)
}

func TestClient_Call_TransportErrorsExhaustRetries(t *testing.T) {
	// nothing listens on this port
	c := client.NewWithPolicy("http://127.0.0.1:1", nil, testSessions(), fastRetries)

	_, err := c.UndoSet(context.Background(), workout.UndoSet{WorkoutID: "w1", SetID: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transport")
}

func TestClient_Call_ContextCancelledDuringBackoff(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	slowRetries := client.RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   5 * time.Second,
		MaxDelay:    8 * time.Second,
	}
	c := client.NewWithPolicy(server.URL, server.Client(), testSessions(), slowRetries)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.UndoSet(ctx, workout.UndoSet{WorkoutID: "w1", SetID: 3})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_Do_InvalidPayload(t *testing.T) {
	c := client.NewWithPolicy("http://localhost:1", nil, testSessions(), fastRetries)

	_, err := c.CompleteSet(context.Background(), workout.CompleteSet{
		WorkoutID:         "w1",
		WorkoutExerciseID: 1,
		SetType:           "reps",
		// no reps
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid complete_set payload")
}

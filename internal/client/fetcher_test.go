package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/repflow/repflow/internal/client"
	"github.com/repflow/repflow/internal/workout"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testState(workoutID string) workout.State {
	return workout.State{
		Workout: workout.Workout{
			ID:        workoutID,
			UserID:    gofakeit.UUID(),
			RoutineID: "push-day",
			StartedAt: time.Now().UTC().Truncate(time.Second),
		},
		Exercises: []workout.WorkoutExercise{
			{ID: 1, WorkoutID: workoutID, ExerciseID: "bench-press", Name: "Bench Press", Section: workout.SectionTraining},
		},
		Sets: []workout.Set{
			{ID: 10, WorkoutID: workoutID, WorkoutExerciseID: 1, ExerciseID: "bench-press", SetType: workout.SetTypeReps, Reps: 10},
		},
	}
}

func TestFetcher_WorkoutState(t *testing.T) {
	state := testState("w1")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/workout/w1", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewEncoder(w).Encode(state))
	}))
	defer server.Close()

	fetcher := client.NewFetcher(server.URL, server.Client(), testSessions())
	got, err := fetcher.WorkoutState(context.Background(), "w1")
	require.NoError(t, err)

	assert.Equal(t, state.Workout.ID, got.Workout.ID)
	assert.Len(t, got.Exercises, 1)
	assert.Len(t, got.Sets, 1)
}

func TestFetcher_FallsBackToSnapshotOnTransportError(t *testing.T) {
	state := testState("w1")
	var failing atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			// connection cut mid-response: transport error on the client
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			_ = conn.Close()
			return
		}
		require.NoError(t, json.NewEncoder(w).Encode(state))
	}))
	defer server.Close()

	fetcher := client.NewFetcher(server.URL, server.Client(), testSessions())

	// first fetch succeeds and snapshots the state
	_, err := fetcher.WorkoutState(context.Background(), "w1")
	require.NoError(t, err)

	// server goes away: last known state is served instead
	failing.Store(true)
	got, err := fetcher.WorkoutState(context.Background(), "w1")
	require.NoError(t, err)
	assert.Equal(t, "w1", got.Workout.ID)
}

func TestFetcher_TransportErrorWithoutSnapshot(t *testing.T) {
	fetcher := client.NewFetcher("http://127.0.0.1:1", nil, testSessions())
	_, err := fetcher.WorkoutState(context.Background(), "w-unknown")
	assert.Error(t, err)
}

func TestFetcher_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"workout not found"}`))
	}))
	defer server.Close()

	fetcher := client.NewFetcher(server.URL, server.Client(), testSessions())
	_, err := fetcher.WorkoutState(context.Background(), "w404")
	require.Error(t, err)

	var mutationErr *client.MutationError
	require.ErrorAs(t, err, &mutationErr)
	assert.Equal(t, http.StatusNotFound, mutationErr.StatusCode)
}

func TestFetcher_NoSession(t *testing.T) {
	fetcher := client.NewFetcher("http://127.0.0.1:1", nil, client.StaticSessionProvider{})
	_, err := fetcher.WorkoutState(context.Background(), "w1")
	assert.ErrorIs(t, err, client.ErrNoSession)
}

package realtime_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/repflow/repflow/internal/realtime"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisher_Publish(t *testing.T) {
	db, mock := redismock.NewClientMock()
	publisher := realtime.NewPublisher(db)

	event := realtime.ChangeEvent{
		EventType: realtime.EventInsert,
		Table:     realtime.TableSets,
		New:       json.RawMessage(`{"id":1,"workoutId":"w1"}`),
	}
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	mock.ExpectPublish("workout:w1:sets", payload).SetVal(1)

	require.NoError(t, publisher.Publish(context.Background(), "w1", event))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPublisher_PublishWorkoutExercises(t *testing.T) {
	db, mock := redismock.NewClientMock()
	publisher := realtime.NewPublisher(db)

	event := realtime.ChangeEvent{
		EventType: realtime.EventUpdate,
		Table:     realtime.TableWorkoutExercises,
		New:       json.RawMessage(`{"id":3}`),
		Old:       json.RawMessage(`{"id":3}`),
	}
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	mock.ExpectPublish("workout:w1:workout_exercises", payload).SetVal(2)

	require.NoError(t, publisher.Publish(context.Background(), "w1", event))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPublisher_UnknownTable(t *testing.T) {
	db, _ := redismock.NewClientMock()
	publisher := realtime.NewPublisher(db)

	err := publisher.Publish(context.Background(), "w1", realtime.ChangeEvent{
		EventType: realtime.EventInsert,
		Table:     "routines",
	})
	assert.Error(t, err)
}

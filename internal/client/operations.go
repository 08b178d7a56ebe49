package client

import (
	"context"

	"github.com/repflow/repflow/internal/workout"
)

// Thin typed wrappers over Call, one per mutation action. They carry no
// logic of their own beyond payload validation in Do.

func (c *Client) StartWorkout(ctx context.Context, m workout.StartWorkout) (*workout.MutationResult, error) {
	return c.Do(ctx, m)
}

func (c *Client) CompleteSet(ctx context.Context, m workout.CompleteSet) (*workout.MutationResult, error) {
	return c.Do(ctx, m)
}

func (c *Client) UndoSet(ctx context.Context, m workout.UndoSet) (*workout.MutationResult, error) {
	return c.Do(ctx, m)
}

func (c *Client) AddExerciseToday(ctx context.Context, m workout.AddExerciseToday) (*workout.MutationResult, error) {
	return c.Do(ctx, m)
}

func (c *Client) AddExerciseFuture(ctx context.Context, m workout.AddExerciseFuture) (*workout.MutationResult, error) {
	return c.Do(ctx, m)
}

func (c *Client) UpdateFocus(ctx context.Context, m workout.UpdateFocus) (*workout.MutationResult, error) {
	return c.Do(ctx, m)
}

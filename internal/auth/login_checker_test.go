package auth

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginChecker_IsLogged(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	loginChecker := NewLoginChecker(time.Hour, db)
	require.NotNil(t, loginChecker)

	ctx := context.Background()

	mock.ExpectGet(sessionKeyPrefix + "invalid token").SetErr(redis.Nil)
	isLogged, err := loginChecker.IsLogged(ctx, "invalid token")
	require.NoError(t, err)
	assert.False(t, isLogged)

	testToken := "test-token"
	sessionKey := sessionKeyPrefix + testToken

	mock.ExpectGet(sessionKey).SetVal(sessionValue("u1", time.Now()))
	isLogged, err = loginChecker.IsLogged(ctx, testToken)
	require.NoError(t, err)
	assert.True(t, isLogged)

	// expired session
	mock.ExpectGet(sessionKey).SetVal(sessionValue("u1", time.Now().Add(-2*time.Hour)))
	isLogged, err = loginChecker.IsLogged(ctx, testToken)
	require.NoError(t, err)
	assert.False(t, isLogged)
}

func TestLoginChecker_LoggedInUser(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	loginChecker := NewLoginChecker(time.Hour, db)
	ctx := context.Background()

	testToken := "test-token"
	sessionKey := sessionKeyPrefix + testToken

	mock.ExpectGet(sessionKey).SetVal(sessionValue("u1", time.Now()))
	userID, err := loginChecker.LoggedInUser(ctx, testToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)

	mock.ExpectGet(sessionKey).SetErr(redis.Nil)
	_, err = loginChecker.LoggedInUser(ctx, testToken)
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	mock.ExpectGet(sessionKey).SetVal(sessionValue("u1", time.Now().Add(-2*time.Hour)))
	_, err = loginChecker.LoggedInUser(ctx, testToken)
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

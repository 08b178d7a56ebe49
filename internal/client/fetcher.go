package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"

	"github.com/repflow/repflow/internal/workout"
)

const (
	snapshotCacheSize = 10 * 1024 * 1024
	snapshotTTL       = 10 * time.Minute
)

// Fetcher re-reads the authoritative workout state after change events.
// The last good snapshot per workout is kept in a local cache so a follower
// degrades to "last known state" when the server is unreachable, instead of
// blocking on every transient disconnect.
type Fetcher struct {
	baseURL    string
	httpClient *http.Client
	sessions   SessionProvider
	snapshots  *freecache.Cache
}

func NewFetcher(baseURL string, httpClient *http.Client, sessions SessionProvider) *Fetcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Fetcher{
		baseURL:    baseURL,
		httpClient: httpClient,
		sessions:   sessions,
		snapshots:  freecache.NewCache(snapshotCacheSize),
	}
}

// WorkoutState fetches the current state of one workout. On transport
// failure it falls back to the cached snapshot when one exists.
func (f *Fetcher) WorkoutState(ctx context.Context, workoutID string) (*workout.State, error) {
	session, err := f.sessions.GetSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session == nil || session.AccessToken == "" {
		return nil, ErrNoSession
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/api/workout/"+workoutID, nil)
	if err != nil {
		return nil, fmt.Errorf("create state request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+session.AccessToken)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		if state, ok := f.snapshot(workoutID); ok {
			log.Warnf("workout %s state fetch failed, using last known state: %s", workoutID, err)
			return state, nil
		}
		return nil, fmt.Errorf("fetch workout %s state: %w", workoutID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read workout %s state: %w", workoutID, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseErrorBody(resp.StatusCode, body)
	}

	var state workout.State
	if err := json.Unmarshal(body, &state); err != nil {
		return nil, fmt.Errorf("unmarshal workout %s state: %w", workoutID, err)
	}

	if err := f.snapshots.Set([]byte(workoutID), body, int(snapshotTTL.Seconds())); err != nil {
		log.Tracef("failed to cache workout %s snapshot: %s", workoutID, err)
	}

	return &state, nil
}

func (f *Fetcher) snapshot(workoutID string) (*workout.State, bool) {
	cached, err := f.snapshots.Get([]byte(workoutID))
	if err != nil {
		return nil, false
	}
	var state workout.State
	if err := json.Unmarshal(cached, &state); err != nil {
		return nil, false
	}
	return &state, true
}

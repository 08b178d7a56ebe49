// Package client is the device-side half of the workout sync protocol: a
// retry-wrapped mutation client and an authoritative state fetcher. Writes
// go through the mutation RPC; consistency with other writers is restored by
// the realtime layer triggering re-reads, never by this package guessing.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/repflow/repflow/internal/workout"
)

const mutationPath = "/api/workout/mutation"

var ErrNoSession = errors.New("no active session")

// Session is the bearer credential for mutation calls.
type Session struct {
	AccessToken string
}

// SessionProvider yields the current session, or nil when nobody is logged
// in. A nil session fails the mutation immediately, it is never retried.
type SessionProvider interface {
	GetSession(ctx context.Context) (*Session, error)
}

// SessionProviderFunc adapts a function to the SessionProvider interface.
type SessionProviderFunc func(ctx context.Context) (*Session, error)

func (f SessionProviderFunc) GetSession(ctx context.Context) (*Session, error) {
	return f(ctx)
}

// StaticSessionProvider always returns the same token. Used by CLI tools.
type StaticSessionProvider struct {
	Token string
}

func (p StaticSessionProvider) GetSession(context.Context) (*Session, error) {
	if p.Token == "" {
		return nil, nil
	}
	return &Session{AccessToken: p.Token}, nil
}

// RetryPolicy bounds the mutation retry loop.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 3,
	BaseDelay:   500 * time.Millisecond,
	MaxDelay:    8 * time.Second,
}

const maxJitter = 100 * time.Millisecond

// delay for attempt n (0-indexed): min(base * 2^n, max) + jitter(0..100ms)
func (p RetryPolicy) delay(attempt int) time.Duration {
	delay := p.BaseDelay << attempt
	if delay > p.MaxDelay || delay <= 0 {
		delay = p.MaxDelay
	}
	return delay + time.Duration(rand.Int63n(int64(maxJitter)))
}

// MutationError is a fatal mutation failure carrying the server's message
// and optional details, or an exhausted-retries transient failure.
type MutationError struct {
	StatusCode int
	Message    string
	Details    json.RawMessage
}

func (e *MutationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("mutation failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("mutation failed with status %d: %s", e.StatusCode, e.Message)
}

// retryable: transport errors (handled separately), 408, 425, 429, >= 500
func retryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooEarly, http.StatusTooManyRequests:
		return true
	}
	return statusCode >= 500
}

// Client issues idempotent workout mutations against the mutation RPC.
// It guarantees the caller sees either a parsed success payload or an error;
// an ambiguous outcome (write landed, response lost) is left to the realtime
// layer's authoritative refetch.
type Client struct {
	baseURL    string
	httpClient *http.Client
	sessions   SessionProvider
	policy     RetryPolicy
}

func New(baseURL string, httpClient *http.Client, sessions SessionProvider) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		sessions:   sessions,
		policy:     DefaultRetryPolicy,
	}
}

func NewWithPolicy(baseURL string, httpClient *http.Client, sessions SessionProvider, policy RetryPolicy) *Client {
	c := New(baseURL, httpClient, sessions)
	c.policy = policy
	return c
}

// Do validates a typed mutation and calls the RPC.
func (c *Client) Do(ctx context.Context, m workout.Mutation) (*workout.MutationResult, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s payload: %w", m.MutationAction(), err)
	}
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", m.MutationAction(), err)
	}
	return c.Call(ctx, m.MutationAction(), payload)
}

// Call issues one mutation with retries. Transport failures and retryable
// statuses back off and retry up to the policy's attempt budget, the last
// failure is always returned rather than swallowed. Any other non-2xx status
// is fatal and returned immediately with the server-supplied message.
func (c *Client) Call(ctx context.Context, action workout.Action, payload json.RawMessage) (*workout.MutationResult, error) {
	session, err := c.sessions.GetSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session == nil || session.AccessToken == "" {
		return nil, ErrNoSession
	}

	body, err := json.Marshal(workout.MutationRequest{
		Action:  action,
		Payload: payload,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal mutation request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.policy.delay(attempt - 1)
			log.Debugf("mutation %s: retrying attempt %d/%d after %s: %s",
				action, attempt+1, c.policy.MaxAttempts, delay, lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+mutationPath, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("create mutation request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+session.AccessToken)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("mutation %s transport: %w", action, err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read mutation %s response: %w", action, err)
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			var result workout.MutationResult
			if err := json.Unmarshal(respBody, &result); err != nil {
				return nil, fmt.Errorf("unmarshal mutation %s response: %w", action, err)
			}
			return &result, nil
		}

		mutationErr := parseErrorBody(resp.StatusCode, respBody)
		if retryableStatus(resp.StatusCode) {
			lastErr = mutationErr
			continue
		}
		return nil, mutationErr
	}

	return nil, lastErr
}

// parseErrorBody tolerates non-JSON bodies by defaulting to an empty error
// shape, keeping only the status code.
func parseErrorBody(statusCode int, body []byte) *MutationError {
	var errResp workout.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		errResp = workout.ErrorResponse{}
	}
	return &MutationError{
		StatusCode: statusCode,
		Message:    errResp.Error,
		Details:    errResp.Details,
	}
}

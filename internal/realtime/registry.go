package realtime

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultDebounceDelay is the quiet period before a queued fetch fires.
const DefaultDebounceDelay = 50 * time.Millisecond

// fetch coalescing state per workout id: Idle -> Pending(timer) -> InFlight -> Idle
type fetchState int

const (
	fetchIdle fetchState = iota
	fetchPending
	fetchInFlight
)

// Subscription is one open change-feed stream for a single workout id.
// Events() is closed when the subscription is closed.
type Subscription interface {
	Events() <-chan ChangeEvent
	Close() error
}

// Transport opens the underlying change-feed subscription for a workout id,
// covering both the sets and the workout_exercises streams.
type Transport interface {
	Open(ctx context.Context, workoutID string) (Subscription, error)
}

// UnsubscribeFunc removes one observer. Safe to call more than once.
type UnsubscribeFunc func()

// FetchFunc re-reads the authoritative workout state. Its error is logged,
// never propagated: a failed fetch only frees the in-flight slot.
type FetchFunc func(ctx context.Context) error

type channelEntry struct {
	sub      Subscription
	refCount int

	listeners      map[int]func(ChangeEvent)
	nextListenerID int

	state    fetchState
	timer    *time.Timer
	fetchGen int
}

// Registry multiplexes realtime change-feed subscriptions per workout id.
// However many observers a workout has (the athlete's own device, a delegated
// trainer, more tabs), exactly one underlying subscription is open, events
// are fanned out to every listener, and bursts of change events collapse into
// one debounced refetch per workout.
//
// One Registry instance is shared by every component observing workouts;
// tests create their own isolated instances.
type Registry struct {
	mu            sync.Mutex
	transport     Transport
	debounceDelay time.Duration
	entries       map[string]*channelEntry
}

func NewRegistry(transport Transport) *Registry {
	return &Registry{
		transport:     transport,
		debounceDelay: DefaultDebounceDelay,
		entries:       make(map[string]*channelEntry),
	}
}

// NewRegistryWithDelay is used by tests to shrink the debounce quiet period.
func NewRegistryWithDelay(transport Transport, debounceDelay time.Duration) *Registry {
	r := NewRegistry(transport)
	r.debounceDelay = debounceDelay
	return r
}

// Subscribe registers an observer for one workout id. The first observer
// opens the underlying subscription, later ones only bump the ref count.
// The returned function unsubscribes; when the last observer is gone the
// subscription is closed and all bookkeeping for the workout id dropped.
func (r *Registry) Subscribe(workoutID string, onEvent func(ChangeEvent)) (UnsubscribeFunc, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[workoutID]
	if !ok {
		sub, err := r.transport.Open(context.Background(), workoutID)
		if err != nil {
			return nil, err
		}
		entry = &channelEntry{
			sub:       sub,
			listeners: make(map[int]func(ChangeEvent)),
		}
		r.entries[workoutID] = entry
		go r.pumpEvents(workoutID, sub)
		log.Debugf("realtime registry: opened channel for workout %s", workoutID)
	}

	entry.refCount++
	listenerID := entry.nextListenerID
	entry.nextListenerID++
	if onEvent != nil {
		entry.listeners[listenerID] = onEvent
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			r.unsubscribe(workoutID, listenerID)
		})
	}, nil
}

func (r *Registry) unsubscribe(workoutID string, listenerID int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[workoutID]
	if !ok {
		return
	}

	delete(entry.listeners, listenerID)
	entry.refCount--
	if entry.refCount > 0 {
		return
	}

	// last observer gone: tear the whole channel down
	if entry.timer != nil {
		entry.timer.Stop()
	}
	if err := entry.sub.Close(); err != nil {
		log.Errorf("realtime registry: close subscription for workout %s: %s", workoutID, err)
	}
	delete(r.entries, workoutID)
	log.Debugf("realtime registry: closed channel for workout %s", workoutID)
}

// pumpEvents forwards change events from the transport to the listeners,
// preserving delivery order. Exits when the subscription closes its channel.
func (r *Registry) pumpEvents(workoutID string, sub Subscription) {
	for event := range sub.Events() {
		r.mu.Lock()
		entry, ok := r.entries[workoutID]
		if !ok || entry.sub != sub {
			r.mu.Unlock()
			return
		}
		listeners := make([]func(ChangeEvent), 0, len(entry.listeners))
		for _, l := range entry.listeners {
			listeners = append(listeners, l)
		}
		r.mu.Unlock()

		// called outside the lock, a listener may call back into QueueFetch
		for _, listener := range listeners {
			listener(event)
		}
	}
}

// QueueFetch requests "refresh this workout soon", coalescing bursts:
//   - a fetch already in flight for the workout id: the request is dropped,
//   - a pending not-yet-fired timer: cancelled and replaced,
//   - otherwise a new timer is armed for the debounce delay.
//
// A fetch never overlaps itself for the same workout id.
func (r *Registry) QueueFetch(workoutID string, fetch FetchFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[workoutID]
	if !ok {
		log.Tracef("realtime registry: queue fetch for unobserved workout %s, dropped", workoutID)
		return
	}

	switch entry.state {
	case fetchInFlight:
		return
	case fetchPending:
		entry.timer.Stop()
	}

	entry.state = fetchPending
	entry.fetchGen++
	gen := entry.fetchGen
	entry.timer = time.AfterFunc(r.debounceDelay, func() {
		r.runFetch(workoutID, gen, fetch)
	})
}

func (r *Registry) runFetch(workoutID string, gen int, fetch FetchFunc) {
	r.mu.Lock()
	entry, ok := r.entries[workoutID]
	if !ok || entry.state != fetchPending || entry.fetchGen != gen {
		// torn down or replaced while the timer was firing
		r.mu.Unlock()
		return
	}
	entry.state = fetchInFlight
	r.mu.Unlock()

	if err := fetch(context.Background()); err != nil {
		log.Errorf("realtime registry: fetch for workout %s: %s", workoutID, err)
	}

	r.mu.Lock()
	if entry, ok := r.entries[workoutID]; ok {
		entry.state = fetchIdle
	}
	r.mu.Unlock()
}

// ObservedWorkouts returns how many workout ids currently have an open
// channel, used by metrics and tests.
func (r *Registry) ObservedWorkouts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

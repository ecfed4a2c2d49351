package enrich

import (
	"errors"
	"sync"
)

// ErrInFlight is returned when an enrichment job is requested for a channel
// that already has one running.
var ErrInFlight = errors.New("enrich: channel already being enriched")

// keyedMutex guards at most one enrichment job per channel id. A second
// acquire for the same id is rejected rather than queued, so callers can
// surface the collision instead of silently racing.
type keyedMutex struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{held: make(map[string]struct{})}
}

// TryLock acquires the lock for id, or returns ErrInFlight when it is
// already held.
func (k *keyedMutex) TryLock(id string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, ok := k.held[id]; ok {
		return ErrInFlight
	}
	k.held[id] = struct{}{}
	return nil
}

// Unlock releases the lock for id.
func (k *keyedMutex) Unlock(id string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.held, id)
}

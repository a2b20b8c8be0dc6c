// Package locks provides per-key mutual exclusion for the services
// that serialize mutations on shared state (room codes, player
// identities) without one global lock.
package locks

import "sync"

// Keyed provides one mutex per string key with reference-counted
// cleanup, so transitions on the same key serialize while unrelated
// keys proceed independently.
type Keyed struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyed creates an empty keyed mutex.
func NewKeyed() *Keyed {
	return &Keyed{locks: make(map[string]*lockEntry)}
}

// Lock acquires the mutex for key and returns its unlock function.
func (k *Keyed) Lock(key string) func() {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &lockEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

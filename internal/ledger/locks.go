package ledger

import "sync"

// accountLocks hands out one mutex per account ID, so settlements against
// the same account serialize while different accounts never contend.
// Locks are never discarded; the map grows with the set of active accounts.
type accountLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

// lock acquires the mutex for id and returns its release function.
func (l *accountLocks) lock(id string) func() {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[string]*sync.Mutex)
	}
	am, ok := l.m[id]
	if !ok {
		am = &sync.Mutex{}
		l.m[id] = am
	}
	l.mu.Unlock()

	am.Lock()
	return am.Unlock
}

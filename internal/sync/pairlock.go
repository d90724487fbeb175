package sync

import gosync "sync"

type pairKey struct {
	userID   string
	provider string
}

// pairLock is a keyed try-lock guarding one reconciliation pass per
// (user, provider) pair. Acquisition never blocks; a pair that is already
// held is simply reported busy.
type pairLock struct {
	mu       gosync.Mutex
	inflight map[pairKey]struct{}
}

func newPairLock() *pairLock {
	return &pairLock{inflight: make(map[pairKey]struct{})}
}

// TryAcquire claims the pair and reports whether the claim succeeded.
func (l *pairLock) TryAcquire(userID, provider string) bool {
	key := pairKey{userID: userID, provider: provider}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, held := l.inflight[key]; held {
		return false
	}
	l.inflight[key] = struct{}{}
	return true
}

// Release frees the pair for the next pass.
func (l *pairLock) Release(userID, provider string) {
	key := pairKey{userID: userID, provider: provider}

	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.inflight, key)
}

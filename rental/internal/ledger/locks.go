package ledger

import (
	"sync"
)

// keyedLocks hands out one mutex per book id. Locks are created lazily and
// kept for the ledger's lifetime; the set of books is small and append-only.
type keyedLocks struct {
	mu sync.Mutex
	m  map[int]*sync.Mutex
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{m: make(map[int]*sync.Mutex)}
}

func (k *keyedLocks) lock(id int) func() {
	k.mu.Lock()
	l, ok := k.m[id]
	if !ok {
		l = new(sync.Mutex)
		k.m[id] = l
	}
	k.mu.Unlock()
	l.Lock()
	return l.Unlock
}

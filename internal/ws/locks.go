package ws

import "sync"

type roomLock struct {
	mu   sync.Mutex
	refs int
}

// roomLocks hands out one mutex per conversation. An entry lives only while
// some caller holds or waits for it.
type roomLocks struct {
	mu    sync.Mutex
	locks map[string]*roomLock
}

func newRoomLocks() *roomLocks {
	return &roomLocks{locks: make(map[string]*roomLock)}
}

// lock acquires the conversation's mutex and returns its release func.
func (t *roomLocks) lock(conversationID string) func() {
	t.mu.Lock()
	l, ok := t.locks[conversationID]
	if !ok {
		l = &roomLock{}
		t.locks[conversationID] = l
	}
	l.refs++
	t.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		t.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(t.locks, conversationID)
		}
		t.mu.Unlock()
	}
}

func (t *roomLocks) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.locks)
}

// Package presence tracks which live connection currently represents each
// user.
package presence

import (
	"sort"
	"sync"
)

// Directory maps a user id to the single handle registered for it. The most
// recent registration wins, and a handle only ever removes its own entry.
type Directory[H comparable] struct {
	mu       sync.RWMutex
	byUser   map[int64]H
	byHandle map[H]int64
}

func NewDirectory[H comparable]() *Directory[H] {
	return &Directory[H]{
		byUser:   make(map[int64]H),
		byHandle: make(map[H]int64),
	}
}

// Register binds userID to h, replacing any previous handle for that user.
// If h was registered for another user, that binding is dropped first.
func (d *Directory[H]) Register(userID int64, h H) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if prevUser, ok := d.byHandle[h]; ok && prevUser != userID {
		if cur, ok := d.byUser[prevUser]; ok && cur == h {
			delete(d.byUser, prevUser)
		}
	}
	if prev, ok := d.byUser[userID]; ok && prev != h {
		delete(d.byHandle, prev)
	}
	d.byUser[userID] = h
	d.byHandle[h] = userID
}

// Unregister removes the entry owned by h. It returns the user id and true
// only when h was still the current handle for that user.
func (d *Directory[H]) Unregister(h H) (int64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	userID, ok := d.byHandle[h]
	if !ok {
		return 0, false
	}
	delete(d.byHandle, h)
	if cur, ok := d.byUser[userID]; ok && cur == h {
		delete(d.byUser, userID)
		return userID, true
	}
	return 0, false
}

// Lookup returns the handle currently registered for userID.
func (d *Directory[H]) Lookup(userID int64) (H, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	h, ok := d.byUser[userID]
	return h, ok
}

// IsOnline reports whether userID has a registered handle.
func (d *Directory[H]) IsOnline(userID int64) bool {
	_, ok := d.Lookup(userID)
	return ok
}

// Online returns the ids of all registered users in ascending order.
func (d *Directory[H]) Online() []int64 {
	d.mu.RLock()
	ids := make([]int64, 0, len(d.byUser))
	for id := range d.byUser {
		ids = append(ids, id)
	}
	d.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

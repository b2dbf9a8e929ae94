// Package cache defines the key-value cache used for read-through lookups
// and its backends.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache is a string key-value store. Implementations must be safe for
// concurrent use.
type Cache interface {
	// Get returns ErrMiss when the key is absent or expired.
	Get(ctx context.Context, key string) (string, error)
	// Set stores value with the given TTL. A non-positive TTL never expires.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

// ErrMiss reports a cache miss.
var ErrMiss = errors.New("cache: miss")

type memoryEntry struct {
	value   string
	expires time.Time
}

// Memory is an in-process Cache for single-node deployments and tests. It
// holds at most size entries, evicting the least recently used, and drops
// anything older than maxTTL in the background. A Set with a shorter TTL
// expires that entry sooner.
type Memory struct {
	lru *expirable.LRU[string, memoryEntry]
	now func() time.Time
}

// NewMemory builds a Memory cache. size <= 0 means unbounded and
// maxTTL <= 0 means entries only expire by their own TTL.
func NewMemory(size int, maxTTL time.Duration) *Memory {
	return &Memory{
		lru: expirable.NewLRU[string, memoryEntry](size, nil, maxTTL),
		now: time.Now,
	}
}

var _ Cache = (*Memory)(nil)

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	e, ok := m.lru.Get(key)
	if !ok {
		return "", ErrMiss
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		m.lru.Remove(key)
		return "", ErrMiss
	}
	return e.value, nil
}

func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.lru.Add(key, e)
	return nil
}

func (m *Memory) Del(_ context.Context, keys ...string) (int64, error) {
	var n int64
	for _, k := range keys {
		if m.lru.Remove(k) {
			n++
		}
	}
	return n, nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error {
	m.lru.Purge()
	return nil
}

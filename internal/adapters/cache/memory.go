package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const defaultMaxEntries = 10000

type entry struct {
	data    []byte
	expires time.Time // zero means no expiry
}

// Memory is an in-process Cache backed by a bounded LRU. Each value keeps
// its own expiry; the LRU evicts the least recently used value when full
// and drops anything older than the max TTL when one is set.
type Memory struct {
	lru        *expirable.LRU[string, entry]
	maxEntries int
	maxTTL     time.Duration
	now        func() time.Time
}

var _ Cache = (*Memory)(nil)

// NewMemory creates an empty in-process cache.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		maxEntries: defaultMaxEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.lru = expirable.NewLRU[string, entry](m.maxEntries, nil, m.maxTTL)
	return m
}

func (m *Memory) Get(_ context.Context, key string, dst any) (bool, error) {
	e, ok := m.lru.Get(key)
	if ok && !e.expires.IsZero() && !m.now().Before(e.expires) {
		m.lru.Remove(key)
		ok = false
	}

	if !record(ok) {
		return false, nil
	}
	if err := json.Unmarshal(e.data, dst); err != nil {
		return false, fmt.Errorf("%w: decode %s: %w", ErrCache, key, err)
	}
	return true, nil
}

func (m *Memory) Set(_ context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", ErrCache, key, err)
	}

	e := entry{data: data}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.lru.Add(key, e)
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.lru.Remove(key)
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error {
	m.lru.Purge()
	return nil
}

// Len returns the number of stored entries, including expired ones not yet
// read back.
func (m *Memory) Len() int {
	return m.lru.Len()
}

package kvstore

import (
	"context"
	"strconv"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

// Memory is a mutex-guarded in-process Store. It backs tests and the
// degraded path when redis is unreachable.
type Memory struct {
	mu    sync.Mutex
	data  map[string]memoryEntry
	lists map[string][]string
	now   func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		data:  make(map[string]memoryEntry),
		lists: make(map[string][]string),
		now:   time.Now,
	}
}

// NewMemoryWithClock pins the expiry clock, for tests.
func NewMemoryWithClock(now func() time.Time) *Memory {
	m := NewMemory()
	m.now = now
	return m
}

func (m *Memory) expired(e memoryEntry) bool {
	return !e.expiresAt.IsZero() && m.now().After(e.expiresAt)
}

func (m *Memory) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.data[key]
	if !ok || m.expired(e) {
		delete(m.data, key)
		return "", ErrNotFound
	}
	return e.value, nil
}

func (m *Memory) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.data[key] = e
	return nil
}

func (m *Memory) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.data[key]; ok && !m.expired(e) {
		return false, nil
	}

	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.data[key] = e
	return true, nil
}

func (m *Memory) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	if e, ok := m.data[key]; ok && !m.expired(e) {
		count, _ = strconv.ParseInt(e.value, 10, 64)
	}
	count++

	e := memoryEntry{value: strconv.FormatInt(count, 10)}
	if prev, ok := m.data[key]; ok && !m.expired(prev) {
		e.expiresAt = prev.expiresAt
	} else if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.data[key] = e
	return count, nil
}

func (m *Memory) PushCapped(ctx context.Context, key, value string, cap int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := append([]string{value}, m.lists[key]...)
	if int64(len(list)) > cap {
		list = list[:cap]
	}
	m.lists[key] = list
	return nil
}

func (m *Memory) Range(ctx context.Context, key string, start, stop int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.lists[key]
	n := int64(len(list))
	if n == 0 {
		return nil, nil
	}
	if stop < 0 || stop >= n {
		stop = n - 1
	}
	if start < 0 {
		start = 0
	}
	if start > stop {
		return nil, nil
	}

	out := make([]string, stop-start+1)
	copy(out, list[start:stop+1])
	return out, nil
}

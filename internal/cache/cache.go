// Package cache holds upstream responses keyed by request parameters.
package cache

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/JustinTDCT/Marquee/internal/metrics"
)

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte)
	Delete(ctx context.Context, key string)
	Len() int
}

type entry struct {
	value   []byte
	expires time.Time
}

// Memory is an unbounded in-process cache. With a zero TTL entries live for
// the life of the process.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if ok && m.expired(e) {
		// A Set may have refreshed the key since the read lock was released.
		m.mu.Lock()
		if cur, still := m.entries[key]; still && m.expired(cur) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		ok = false
	}
	if ok {
		metrics.CacheLookups.WithLabelValues("memory", "hit").Inc()
		return e.value, true
	}
	metrics.CacheLookups.WithLabelValues("memory", "miss").Inc()
	return nil, false
}

func (m *Memory) expired(e entry) bool {
	return !e.expires.IsZero() && m.now().After(e.expires)
}

func (m *Memory) Set(_ context.Context, key string, value []byte) {
	e := entry{value: value}
	if m.ttl > 0 {
		e.expires = m.now().Add(m.ttl)
	}
	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
}

func (m *Memory) Delete(_ context.Context, key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Stats is the entry count per tier, reported by the status endpoint.
type Stats struct {
	Memory int `json:"memory"`
	Shared int `json:"shared,omitempty"`
}

func (m *Memory) Stats() Stats {
	return Stats{Memory: m.Len()}
}

// Key joins parts with underscores.
func Key(parts ...string) string {
	return strings.Join(parts, "_")
}

// ParamsKey serialises params as JSON. encoding/json sorts map keys, so equal
// maps always produce the same key.
func ParamsKey(params map[string]string) string {
	if len(params) == 0 {
		return "{}"
	}
	b, err := json.Marshal(params)
	if err != nil {
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k+"="+params[k])
		}
		sort.Strings(keys)
		return strings.Join(keys, "&")
	}
	return string(b)
}

// GetJSON decodes a cached value into v. A decode failure counts as a miss.
func GetJSON(ctx context.Context, c Cache, key string, v any) bool {
	raw, ok := c.Get(ctx, key)
	if !ok {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

func SetJSON(ctx context.Context, c Cache, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.Set(ctx, key, raw)
}

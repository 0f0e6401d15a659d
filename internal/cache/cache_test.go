package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryNoExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(0)
	m.Set(ctx, "a", []byte("1"))

	m.now = func() time.Time { return time.Now().Add(24 * 365 * time.Hour) }
	v, ok := m.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, "1", string(v))
	assert.Equal(t, 1, m.Len())
}

func TestMemoryTTL(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory(time.Minute)
	m.now = func() time.Time { return base }
	m.Set(ctx, "a", []byte("1"))

	m.now = func() time.Time { return base.Add(30 * time.Second) }
	_, ok := m.Get(ctx, "a")
	assert.True(t, ok)

	m.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, ok = m.Get(ctx, "a")
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
}

func TestMemoryDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(0)
	m.Set(ctx, "a", []byte("1"))
	m.Set(ctx, "b", []byte("2"))
	m.Delete(ctx, "a")
	_, ok := m.Get(ctx, "a")
	assert.False(t, ok)
	assert.Equal(t, 1, m.Len())
}

func TestMemoryGetKeepsRefreshedEntry(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory(time.Minute)
	m.now = func() time.Time { return base }
	m.Set(ctx, "a", []byte("stale"))

	// The first clock read happens between the read and write locks; a
	// writer refreshes the key right there.
	clock := base.Add(2 * time.Minute)
	refreshed := false
	m.now = func() time.Time {
		if !refreshed {
			refreshed = true
			m.Set(ctx, "a", []byte("fresh"))
		}
		return clock
	}

	_, ok := m.Get(ctx, "a")
	assert.False(t, ok)
	v, ok := m.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, "fresh", string(v))
}

func TestParamsKeyIsOrderIndependent(t *testing.T) {
	a := map[string]string{"with_genres": "16", "sort_by": "popularity.desc"}
	b := map[string]string{"sort_by": "popularity.desc", "with_genres": "16"}
	assert.Equal(t, ParamsKey(a), ParamsKey(b))
	assert.Equal(t, `{"sort_by":"popularity.desc","with_genres":"16"}`, ParamsKey(a))
	assert.Equal(t, "{}", ParamsKey(nil))
}

func TestKey(t *testing.T) {
	assert.Equal(t, "row_popular_movie_{}", Key("row", "popular", "movie", "{}"))
}

func TestLayeredBackfillsMemory(t *testing.T) {
	ctx := context.Background()
	local := NewMemory(0)
	shared := NewMemory(0)
	l := NewLayered(local, shared)

	shared.Set(ctx, "k", []byte("v"))
	v, ok := l.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "v", string(v))
	assert.Equal(t, 1, local.Len())

	l.Set(ctx, "x", []byte("y"))
	_, ok = shared.Get(ctx, "x")
	assert.True(t, ok)

	l.Delete(ctx, "x")
	_, ok = local.Get(ctx, "x")
	assert.False(t, ok)
	_, ok = shared.Get(ctx, "x")
	assert.False(t, ok)

	assert.Equal(t, Stats{Memory: 1, Shared: 1}, l.Stats())
	assert.Equal(t, Stats{Memory: 1}, local.Stats())
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(0)
	SetJSON(ctx, m, "k", []int{1, 2})

	var out []int
	require.True(t, GetJSON(ctx, m, "k", &out))
	assert.Equal(t, []int{1, 2}, out)

	m.Set(ctx, "bad", []byte("{"))
	assert.False(t, GetJSON(ctx, m, "bad", &out))
}

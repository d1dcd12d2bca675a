package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igleads/pkg/store"
)

func newTestCache(t *testing.T, ttl time.Duration) *Cache {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return New(st, ttl)
}

func TestKeyOrderIndependent(t *testing.T) {
	key := Key([]string{"golf", "golfswing", "golftips"})
	assert.Equal(t, "golf,golfswing,golftips", key)

	permutations := [][]string{
		{"golfswing", "golf", "golftips"},
		{"golftips", "golfswing", "golf"},
		{"GOLF", " golfswing ", "#golftips"},
		{"golf", "golf", "golfswing", "golftips"},
	}
	for _, p := range permutations {
		assert.Equal(t, key, Key(p))
	}
}

func TestKeyEmptyAndBlank(t *testing.T) {
	assert.Equal(t, "", Key(nil))
	assert.Equal(t, "", Key([]string{"", "  ", "#"}))
	assert.Equal(t, "golf", Key([]string{"golf", ""}))
}

func TestPutGetRoundTrip(t *testing.T) {
	c := newTestCache(t, DefaultTTL)

	hashtags := []string{"golf", "golfswing"}
	require.NoError(t, c.Put(hashtags, 100, []string{"pro_golfer", "swing_coach", "ace_trace"}))

	got, err := c.Get([]string{"golfswing", "golf"}, 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"ace_trace", "pro_golfer", "swing_coach"}, got)

	// A different limit is a different entry.
	got, err = c.Get(hashtags, 200)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPutReplacesPreviousResults(t *testing.T) {
	c := newTestCache(t, DefaultTTL)

	hashtags := []string{"golf"}
	require.NoError(t, c.Put(hashtags, 50, []string{"old_one", "old_two"}))
	require.NoError(t, c.Put(hashtags, 50, []string{"new_one"}))

	got, err := c.Get(hashtags, 50)
	require.NoError(t, err)
	assert.Equal(t, []string{"new_one"}, got)
}

func TestGetFiltersExpiredWithoutPurge(t *testing.T) {
	c := newTestCache(t, 30*time.Minute)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }
	require.NoError(t, c.Put([]string{"golf"}, 100, []string{"pro_golfer"}))

	c.now = func() time.Time { return base.Add(29 * time.Minute) }
	got, err := c.Get([]string{"golf"}, 100)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	// Past the staleness window the entry is invisible even though no
	// purge has run.
	c.now = func() time.Time { return base.Add(31 * time.Minute) }
	got, err = c.Get([]string{"golf"}, 100)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPurgeExpired(t *testing.T) {
	c := newTestCache(t, 30*time.Minute)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }
	require.NoError(t, c.Put([]string{"golf"}, 100, []string{"stale_user"}))

	c.now = func() time.Time { return base.Add(20 * time.Minute) }
	require.NoError(t, c.Put([]string{"tennis"}, 100, []string{"fresh_user"}))

	c.now = func() time.Time { return base.Add(40 * time.Minute) }
	deleted, err := c.PurgeExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	got, err := c.Get([]string{"tennis"}, 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh_user"}, got)
}

func TestStats(t *testing.T) {
	c := newTestCache(t, 30*time.Minute)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }
	require.NoError(t, c.Put([]string{"golf"}, 100, []string{"a", "b"}))

	c.now = func() time.Time { return base.Add(35 * time.Minute) }
	require.NoError(t, c.Put([]string{"tennis"}, 50, []string{"c", "d", "e"}))

	stats, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ActiveCombos)
	assert.Equal(t, 3, stats.ActiveEntries)
	assert.Equal(t, 2, stats.ExpiredEntries)
	assert.Equal(t, 5, stats.TotalEntries)
	require.Len(t, stats.Combos, 1)
	assert.Equal(t, "tennis", stats.Combos[0].CacheKey)
	assert.Equal(t, 50, stats.Combos[0].ResultsLimit)
	assert.Equal(t, 3, stats.Combos[0].Count)
}

func TestPutDeduplicatesUsernames(t *testing.T) {
	c := newTestCache(t, DefaultTTL)

	require.NoError(t, c.Put([]string{"golf"}, 100, []string{"dup", "dup", "other", ""}))
	got, err := c.Get([]string{"golf"}, 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"dup", "other"}, got)
}

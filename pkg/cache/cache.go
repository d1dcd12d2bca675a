// Package cache implements the time-boxed hashtag discovery cache.
//
// A cache entry maps a normalized hashtag set plus a results limit to the
// set of usernames the scraping provider returned for that request. Entries
// expire after a fixed staleness window. The window is enforced twice: Get
// filters by age on every read, and PurgeExpired deletes aged rows as
// best-effort cleanup. Correctness never depends on the purge having run.
package cache

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"igleads/pkg/logger"
	"igleads/pkg/store"
)

// DefaultTTL is the staleness window after which cached discovery
// results are no longer trusted.
const DefaultTTL = 30 * time.Minute

// Cache is a time-boxed (hashtag set, limit) -> usernames cache backed by
// the persistent store.
type Cache struct {
	store  *store.Store
	ttl    time.Duration
	now    func() time.Time
	logger logger.Logger
}

// New creates a Cache with the given staleness window. A ttl <= 0 falls
// back to DefaultTTL.
func New(st *store.Store, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		store:  st,
		ttl:    ttl,
		now:    time.Now,
		logger: logger.GetLogger(),
	}
}

// Key derives the deterministic cache key for a hashtag set. Hashtags are
// trimmed, lowercased, stripped of a leading '#', deduplicated and sorted,
// so any permutation of the same set produces the same key.
func Key(hashtags []string) string {
	seen := make(map[string]bool, len(hashtags))
	normalized := make([]string, 0, len(hashtags))
	for _, tag := range hashtags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		tag = strings.TrimPrefix(tag, "#")
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		normalized = append(normalized, tag)
	}
	sort.Strings(normalized)
	return strings.Join(normalized, ",")
}

// Get returns the cached usernames for the hashtag set and limit, filtered
// to rows younger than the staleness window. An empty result is a cache
// miss, not an error.
func (c *Cache) Get(hashtags []string, limit int) ([]string, error) {
	key := Key(hashtags)
	cutoff := c.now().Add(-c.ttl).UTC().Format(store.TimeFormat)

	rows, err := c.store.DB().Query(`
		SELECT username FROM hashtag_cache
		WHERE cache_key = ? AND results_limit = ? AND created_at > ?
		ORDER BY username ASC`, key, limit, cutoff)
	if err != nil {
		return nil, fmt.Errorf("querying cache: %w", err)
	}
	defer rows.Close()

	var usernames []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		usernames = append(usernames, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(usernames) > 0 {
		c.logger.InfoWithFields("using cached usernames", map[string]interface{}{
			"cache_key": key,
			"limit":     limit,
			"count":     len(usernames),
		})
	}

	return usernames, nil
}

// Put atomically replaces all rows for the (hashtag set, limit) pair with
// the supplied usernames. A crash mid-write never leaves a mix of old and
// new usernames visible.
func (c *Cache) Put(hashtags []string, limit int, usernames []string) error {
	key := Key(hashtags)
	createdAt := c.now().UTC().Format(store.TimeFormat)

	err := c.store.WithTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`
			DELETE FROM hashtag_cache
			WHERE cache_key = ? AND results_limit = ?`, key, limit); err != nil {
			return fmt.Errorf("clearing cache entries: %w", err)
		}

		stmt, err := tx.Prepare(`
			INSERT INTO hashtag_cache (cache_key, results_limit, username, created_at)
			VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("preparing insert: %w", err)
		}
		defer stmt.Close()

		for _, username := range dedupe(usernames) {
			if _, err := stmt.Exec(key, limit, username, createdAt); err != nil {
				return fmt.Errorf("inserting cache entry for %s: %w", username, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	c.logger.InfoWithFields("saved usernames to cache", map[string]interface{}{
		"cache_key": key,
		"limit":     limit,
		"count":     len(usernames),
	})
	return nil
}

// PurgeExpired deletes rows older than the staleness window and returns
// the number of rows removed.
func (c *Cache) PurgeExpired() (int64, error) {
	cutoff := c.now().Add(-c.ttl).UTC().Format(store.TimeFormat)

	res, err := c.store.DB().Exec(`
		DELETE FROM hashtag_cache WHERE created_at <= ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging expired cache entries: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		c.logger.InfoWithFields("purged expired cache entries", map[string]interface{}{
			"deleted": deleted,
		})
	}
	return deleted, nil
}

// ComboStats describes one active (cache key, limit) combination.
type ComboStats struct {
	CacheKey     string
	ResultsLimit int
	Count        int
	Oldest       string
	Newest       string
}

// Stats summarizes cache occupancy.
type Stats struct {
	ActiveCombos   int
	ActiveEntries  int
	ExpiredEntries int
	TotalEntries   int
	Combos         []ComboStats
}

// Stats reports active and expired entry counts plus a per-combination
// breakdown of the fresh entries.
func (c *Cache) Stats() (Stats, error) {
	var stats Stats
	cutoff := c.now().Add(-c.ttl).UTC().Format(store.TimeFormat)
	db := c.store.DB()

	if err := db.QueryRow(`
		SELECT COUNT(DISTINCT cache_key || ':' || results_limit) FROM hashtag_cache
		WHERE created_at > ?`, cutoff).Scan(&stats.ActiveCombos); err != nil {
		return stats, err
	}
	if err := db.QueryRow(`
		SELECT COUNT(*) FROM hashtag_cache WHERE created_at > ?`, cutoff).Scan(&stats.ActiveEntries); err != nil {
		return stats, err
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM hashtag_cache`).Scan(&stats.TotalEntries); err != nil {
		return stats, err
	}
	stats.ExpiredEntries = stats.TotalEntries - stats.ActiveEntries

	rows, err := db.Query(`
		SELECT cache_key, results_limit, COUNT(*) AS count,
		       MIN(created_at) AS oldest, MAX(created_at) AS newest
		FROM hashtag_cache
		WHERE created_at > ?
		GROUP BY cache_key, results_limit
		ORDER BY count DESC`, cutoff)
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	for rows.Next() {
		var combo ComboStats
		if err := rows.Scan(&combo.CacheKey, &combo.ResultsLimit, &combo.Count, &combo.Oldest, &combo.Newest); err != nil {
			return stats, err
		}
		stats.Combos = append(stats.Combos, combo)
	}
	return stats, rows.Err()
}

// dedupe returns the unique usernames in sorted order.
func dedupe(usernames []string) []string {
	seen := make(map[string]bool, len(usernames))
	unique := make([]string, 0, len(usernames))
	for _, u := range usernames {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		unique = append(unique, u)
	}
	sort.Strings(unique)
	return unique
}

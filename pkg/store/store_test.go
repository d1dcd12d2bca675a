package store

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenInMemoryAppliesMigrations(t *testing.T) {
	st, err := Open(":memory:")
	require.NoError(t, err)
	defer st.Close()

	versions, err := st.AppliedMigrations()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, versions)

	// Both tables exist and accept rows.
	_, err = st.DB().Exec(`
		INSERT INTO hashtag_cache (cache_key, results_limit, username, created_at)
		VALUES ('golf', 100, 'someone', '2025-06-01T12:00:00Z')`)
	require.NoError(t, err)

	_, err = st.DB().Exec(`
		INSERT INTO accounts (username, full_name, created_at)
		VALUES ('someone', 'Some One', '2025-06-01T12:00:00Z')`)
	require.NoError(t, err)
}

func TestOpenCreatesFileAndParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "leads.db")

	st, err := Open(path)
	require.NoError(t, err)
	defer st.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leads.db")

	st, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	// Reopening must not re-apply migrations.
	st, err = Open(path)
	require.NoError(t, err)
	defer st.Close()

	versions, err := st.AppliedMigrations()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, versions)
}

func TestCacheUniqueConstraint(t *testing.T) {
	st, err := Open(":memory:")
	require.NoError(t, err)
	defer st.Close()

	insert := `INSERT INTO hashtag_cache (cache_key, results_limit, username, created_at)
		VALUES ('golf', 100, 'dup', '2025-06-01T12:00:00Z')`
	_, err = st.DB().Exec(insert)
	require.NoError(t, err)
	_, err = st.DB().Exec(insert)
	assert.Error(t, err, "duplicate (key, limit, username) must be rejected")
}

func TestWithTxRollsBackOnError(t *testing.T) {
	st, err := Open(":memory:")
	require.NoError(t, err)
	defer st.Close()

	boom := errors.New("boom")
	err = st.WithTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`
			INSERT INTO accounts (username, full_name, created_at)
			VALUES ('ghost', 'Ghost', '2025-06-01T12:00:00Z')`); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, st.DB().QueryRow(`SELECT COUNT(*) FROM accounts`).Scan(&count))
	assert.Zero(t, count, "failed transaction must leave no rows behind")
}

func TestWithTxCommits(t *testing.T) {
	st, err := Open(":memory:")
	require.NoError(t, err)
	defer st.Close()

	err = st.WithTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO accounts (username, full_name, created_at)
			VALUES ('real', 'Real', '2025-06-01T12:00:00Z')`)
		return err
	})
	require.NoError(t, err)

	var count int
	require.NoError(t, st.DB().QueryRow(`SELECT COUNT(*) FROM accounts`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestParseMigrationVersion(t *testing.T) {
	v, err := parseMigrationVersion("0001_init.sql")
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = parseMigrationVersion("0002_outreach_tracking.sql")
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	_, err = parseMigrationVersion("not_numbered.sql")
	assert.Error(t, err)
}

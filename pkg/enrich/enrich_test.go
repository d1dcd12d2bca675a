package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igleads/pkg/apify"
	"igleads/pkg/ledger"
	"igleads/pkg/store"
)

func newReconciler(t *testing.T) (*Reconciler, *ledger.Ledger) {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	l := ledger.New(st)
	return NewReconciler(l), l
}

func strptr(s string) *string { return &s }

func TestPartition(t *testing.T) {
	r, l := newReconciler(t)

	_, err := l.UpsertProfiles([]ledger.Profile{
		{Username: "complete", FullName: "Complete", Bio: strptr("has a bio")},
		{Username: "no_bio", FullName: "No Bio", Bio: nil},
	})
	require.NoError(t, err)

	usable, needFetch, err := r.Partition([]string{"unknown", "complete", "no_bio"})
	require.NoError(t, err)
	assert.Equal(t, []string{"complete"}, usable)
	assert.Equal(t, []string{"unknown", "no_bio"}, needFetch)
}

func TestIngestFlagsNewAndChanged(t *testing.T) {
	r, l := newReconciler(t)

	flagged, err := r.Ingest([]apify.ProfileItem{
		{Username: "newbie", FullName: "Newbie", Biography: strptr("fresh bio")},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"newbie"}, flagged)

	require.NoError(t, l.MarkEmailResults(map[string]*string{"newbie": nil}))

	// Same bio again: nothing to flag.
	flagged, err = r.Ingest([]apify.ProfileItem{
		{Username: "newbie", FullName: "Newbie", Biography: strptr("fresh bio")},
	})
	require.NoError(t, err)
	assert.Empty(t, flagged)

	// Changed bio re-arms the flag.
	flagged, err = r.Ingest([]apify.ProfileItem{
		{Username: "newbie", FullName: "Newbie", Biography: strptr("fresh bio, now with email@new.test")},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"newbie"}, flagged)
}

func TestPendingBiosExcludesEmptyBios(t *testing.T) {
	r, l := newReconciler(t)

	_, err := l.UpsertProfiles([]ledger.Profile{
		{Username: "with_bio", FullName: "A", Bio: strptr("contact me")},
		{Username: "empty_bio", FullName: "B", Bio: strptr("")},
		{Username: "nil_bio", FullName: "C", Bio: nil},
	})
	require.NoError(t, err)

	bios, err := r.PendingBios()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"with_bio": "contact me"}, bios)
}

func TestApplyEmailResultsResolvesOmittedUsernames(t *testing.T) {
	r, l := newReconciler(t)

	_, err := l.UpsertProfiles([]ledger.Profile{
		{Username: "answered", FullName: "A", Bio: strptr("a@test")},
		{Username: "omitted", FullName: "B", Bio: strptr("nothing here")},
	})
	require.NoError(t, err)

	// The extractor only answered for one of the two requested accounts.
	err = r.ApplyEmailResults([]string{"answered", "omitted"}, map[string]*string{
		"answered": strptr("a@test"),
	})
	require.NoError(t, err)

	answered, err := l.Get("answered")
	require.NoError(t, err)
	assert.Equal(t, "a@test", *answered.Email)
	assert.False(t, answered.NeedsEmailExtraction)

	// The omitted account lands in the explicit no-email state instead of
	// staying pending forever.
	omitted, err := l.Get("omitted")
	require.NoError(t, err)
	assert.Nil(t, omitted.Email)
	assert.False(t, omitted.NeedsEmailExtraction)
	assert.NotNil(t, omitted.EmailExtractedAt)
}

package scrape

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobscout-engine/internal/domain"
)

func TestExpireMissing_ExpiresAbsentReconcilable(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	insertListing(t, st, domain.SourceManual, "present", domain.StatusNew)
	insertListing(t, st, domain.SourceManual, "gone-new", domain.StatusNew)
	insertListing(t, st, domain.SourceManual, "gone-saved", domain.StatusSaved)
	insertListing(t, st, domain.SourceManual, "gone-gen", domain.StatusGenerated)

	current := map[string]struct{}{"present": {}}
	n, err := ExpireMissing(ctx, st, domain.SourceManual, current)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	for fp, want := range map[string]domain.Status{
		"present":    domain.StatusNew,
		"gone-new":   domain.StatusExpired,
		"gone-saved": domain.StatusExpired,
		"gone-gen":   domain.StatusExpired,
	} {
		got, err := st.Get(ctx, "id-"+fp)
		require.NoError(t, err)
		assert.Equal(t, want, got.Status, fp)
	}
}

func TestExpireMissing_TerminalStatesUntouched(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	insertListing(t, st, domain.SourceManual, "applied", domain.StatusApplied)
	insertListing(t, st, domain.SourceManual, "discarded", domain.StatusDiscarded)
	insertListing(t, st, domain.SourceManual, "expired", domain.StatusExpired)

	n, err := ExpireMissing(ctx, st, domain.SourceManual, map[string]struct{}{})
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	for fp, want := range map[string]domain.Status{
		"applied":   domain.StatusApplied,
		"discarded": domain.StatusDiscarded,
		"expired":   domain.StatusExpired,
	} {
		got, err := st.Get(ctx, "id-"+fp)
		require.NoError(t, err)
		assert.Equal(t, want, got.Status, fp)
	}
}

func TestExpireMissing_EmptyCurrentExpiresEverythingActive(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	insertListing(t, st, domain.SourceManual, "a", domain.StatusNew)
	insertListing(t, st, domain.SourceManual, "b", domain.StatusSaved)

	n, err := ExpireMissing(ctx, st, domain.SourceManual, map[string]struct{}{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestExpireMissing_OtherSourcesUntouched(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	insertListing(t, st, domain.SourceManual, "a", domain.StatusNew)
	insertListing(t, st, domain.SourcePracticasPe, "b", domain.StatusNew)

	n, err := ExpireMissing(ctx, st, domain.SourceManual, map[string]struct{}{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := st.Get(ctx, "id-b")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNew, got.Status)
}

func TestFingerprintSet(t *testing.T) {
	set := FingerprintSet([]domain.Candidate{
		{Fingerprint: "a"},
		{Fingerprint: "b"},
		{Fingerprint: "a"},
	})
	assert.Len(t, set, 2)
	assert.Contains(t, set, "a")
	assert.Contains(t, set, "b")
}

package scrape

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobscout-engine/internal/domain"
	"jobscout-engine/internal/scrape/util"
)

// fakeAdapter returns a canned candidate set through the normal
// Scrape/Parse split.
type fakeAdapter struct {
	source     domain.Source
	candidates []domain.Candidate
	scrapeErr  error
	parseErr   error
}

func (f *fakeAdapter) Source() domain.Source { return f.source }

func (f *fakeAdapter) Scrape(ctx context.Context) (string, error) {
	if f.scrapeErr != nil {
		return "", f.scrapeErr
	}
	b, _ := json.Marshal(f.candidates)
	return string(b), nil
}

func (f *fakeAdapter) Parse(raw string) ([]domain.Candidate, error) {
	if f.parseErr != nil {
		return nil, f.parseErr
	}
	var out []domain.Candidate
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func TestRunner_InsertsNewCandidates(t *testing.T) {
	st := openTestStore(t)
	var created []domain.Listing
	r := &Runner{Store: st, OnNewListing: func(l domain.Listing) { created = append(created, l) }}

	a := &fakeAdapter{source: domain.SourceManual, candidates: []domain.Candidate{
		{Title: "Backend Intern", Employer: "Acme"},
		{Title: "Data Intern", Employer: "Globex"},
	}}

	added, err := r.Run(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.Len(t, created, 2)

	for _, l := range created {
		assert.Equal(t, domain.StatusNew, l.Status)
		assert.NotEmpty(t, l.ID)
		assert.NotEmpty(t, l.Fingerprint)
		assert.Nil(t, l.AppliedAt)
	}
}

func TestRunner_SecondRunIsIdempotent(t *testing.T) {
	st := openTestStore(t)
	r := &Runner{Store: st}

	a := &fakeAdapter{source: domain.SourceManual, candidates: []domain.Candidate{
		{Title: "Backend Intern", Employer: "Acme"},
	}}

	added, err := r.Run(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	added, err = r.Run(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, 0, added)
}

// Full lifecycle pass: one listing survives, one expires, a terminal one
// is untouched and one new listing appears.
func TestRunner_ReconcilesThenInserts(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	r := &Runner{Store: st}

	fp := func(title string) string { return util.Fingerprint(title, "Acme") }

	seed := &fakeAdapter{source: domain.SourceManual, candidates: []domain.Candidate{
		{Title: "Stays", Employer: "Acme"},
		{Title: "Disappears", Employer: "Acme"},
		{Title: "Was Applied", Employer: "Acme"},
	}}
	_, err := r.Run(ctx, seed)
	require.NoError(t, err)

	// Move two of them along the lifecycle.
	promote := func(fingerprint string, to ...domain.Status) {
		got, err := st.ExistsBatch(ctx, domain.SourceManual, []string{fingerprint})
		require.NoError(t, err)
		require.Contains(t, got, fingerprint)

		ls, err := st.ListBySourceAndStatuses(ctx, domain.SourceManual,
			[]domain.Status{domain.StatusNew, domain.StatusSaved, domain.StatusGenerated, domain.StatusApplied})
		require.NoError(t, err)
		for i := range ls {
			if ls[i].Fingerprint != fingerprint {
				continue
			}
			for _, s := range to {
				require.NoError(t, ls[i].Transition(s, time.Now().UTC()))
				require.NoError(t, st.SaveTransition(ctx, &ls[i]))
			}
			return
		}
		t.Fatalf("listing %s not found", fingerprint)
	}
	promote(fp("Disappears"), domain.StatusSaved)
	promote(fp("Was Applied"), domain.StatusSaved, domain.StatusApplied)

	// Next run: "Disappears" and "Was Applied" are gone from the
	// listing, "Fresh" shows up.
	next := &fakeAdapter{source: domain.SourceManual, candidates: []domain.Candidate{
		{Title: "Stays", Employer: "Acme"},
		{Title: "Fresh", Employer: "Acme"},
	}}
	added, err := r.Run(ctx, next)
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	wantStatus := map[string]domain.Status{
		fp("Stays"):       domain.StatusNew,
		fp("Disappears"):  domain.StatusExpired,
		fp("Was Applied"): domain.StatusApplied,
		fp("Fresh"):       domain.StatusNew,
	}
	all, err := st.ListBySourceAndStatuses(ctx, domain.SourceManual,
		[]domain.Status{domain.StatusNew, domain.StatusSaved, domain.StatusGenerated,
			domain.StatusApplied, domain.StatusDiscarded, domain.StatusExpired})
	require.NoError(t, err)
	require.Len(t, all, 4)
	for _, l := range all {
		assert.Equal(t, wantStatus[l.Fingerprint], l.Status, l.Title)
	}
}

func TestRunner_ScrapeErrorSkipsReconciliation(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	r := &Runner{Store: st}

	seed := &fakeAdapter{source: domain.SourceManual, candidates: []domain.Candidate{
		{Title: "Existing", Employer: "Acme"},
	}}
	_, err := r.Run(ctx, seed)
	require.NoError(t, err)

	failing := &fakeAdapter{source: domain.SourceManual, scrapeErr: errors.New("boom")}
	_, err = r.Run(ctx, failing)
	require.Error(t, err)

	// The existing listing must not have been expired by the failed run.
	active, err := st.ListBySourceAndStatuses(ctx, domain.SourceManual, []domain.Status{domain.StatusNew})
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestRunner_EmptyListingExpiresActive(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	r := &Runner{Store: st}

	seed := &fakeAdapter{source: domain.SourceManual, candidates: []domain.Candidate{
		{Title: "Only One", Employer: "Acme"},
	}}
	_, err := r.Run(ctx, seed)
	require.NoError(t, err)

	var expiredEvents []int
	r.OnExpired = func(source domain.Source, count int) {
		assert.Equal(t, domain.SourceManual, source)
		expiredEvents = append(expiredEvents, count)
	}

	empty := &fakeAdapter{source: domain.SourceManual}
	added, err := r.Run(ctx, empty)
	require.NoError(t, err)
	assert.Equal(t, 0, added)
	assert.Equal(t, []int{1}, expiredEvents)

	expired, err := st.ListBySourceAndStatuses(ctx, domain.SourceManual, []domain.Status{domain.StatusExpired})
	require.NoError(t, err)
	assert.Len(t, expired, 1)
}

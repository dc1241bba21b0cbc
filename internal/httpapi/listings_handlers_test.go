package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobscout-engine/internal/config"
	"jobscout-engine/internal/domain"
	"jobscout-engine/internal/events"
	"jobscout-engine/internal/scrape"
	"jobscout-engine/internal/store"
)

func newTestServer(t *testing.T) (*httptest.Server, *store.Store) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	var cfgVal, status atomic.Value
	cfgVal.Store(config.Default())
	status.Store(ScrapeStatus{})
	var running atomic.Bool

	mux := NewMux(Deps{
		Store:         st,
		Hub:           events.NewHub(),
		CfgVal:        &cfgVal,
		ScrapeStatus:  &status,
		ScrapeRunning: &running,
		UserCfgPath:   filepath.Join(t.TempDir(), "config.yml"),
		LoadCfg:       func() (config.Config, error) { return config.Default(), nil },
		RunScrape: func(ctx context.Context, cfg config.Config) []scrape.Result {
			return nil
		},
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, st
}

func seedListing(t *testing.T, st *store.Store, id string, status domain.Status) {
	t.Helper()
	now := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	added, err := st.InsertIfNew(context.Background(), domain.Listing{
		ID:          id,
		Source:      domain.SourceManual,
		Fingerprint: "fp-" + id,
		Title:       "Listing " + id,
		Employer:    "Acme",
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	require.NoError(t, err)
	require.True(t, added)
}

func postStatus(t *testing.T, srv *httptest.Server, id, status string) *http.Response {
	t.Helper()
	res, err := http.Post(
		srv.URL+"/listings/"+id+"/status",
		"application/json",
		strings.NewReader(`{"status":"`+status+`"}`),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Body.Close() })
	return res
}

func TestListings_List(t *testing.T) {
	srv, st := newTestServer(t)
	seedListing(t, st, "a", domain.StatusNew)
	seedListing(t, st, "b", domain.StatusExpired)

	res, err := http.Get(srv.URL + "/listings?status=NEW")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var got []domain.Listing
	require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}

func TestListings_ListRejectsBadStatus(t *testing.T) {
	srv, _ := newTestServer(t)

	res, err := http.Get(srv.URL + "/listings?status=nope")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestListings_Get(t *testing.T) {
	srv, st := newTestServer(t)
	seedListing(t, st, "a", domain.StatusNew)

	res, err := http.Get(srv.URL + "/listings/a")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var got domain.Listing
	require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
	assert.Equal(t, "a", got.ID)

	res2, err := http.Get(srv.URL + "/listings/missing")
	require.NoError(t, err)
	defer res2.Body.Close()
	assert.Equal(t, http.StatusNotFound, res2.StatusCode)
}

func TestListings_Transition(t *testing.T) {
	srv, st := newTestServer(t)
	seedListing(t, st, "a", domain.StatusNew)

	res := postStatus(t, srv, "a", "SAVED")
	require.Equal(t, http.StatusOK, res.StatusCode)

	got, err := st.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSaved, got.Status)
}

func TestListings_TransitionIllegalIs409(t *testing.T) {
	srv, st := newTestServer(t)
	seedListing(t, st, "a", domain.StatusExpired)

	res := postStatus(t, srv, "a", "APPLIED")
	assert.Equal(t, http.StatusConflict, res.StatusCode)

	got, err := st.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExpired, got.Status)
}

func TestListings_TransitionUnknownStatusIs400(t *testing.T) {
	srv, st := newTestServer(t)
	seedListing(t, st, "a", domain.StatusNew)

	res := postStatus(t, srv, "a", "WHATEVER")
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestListings_TransitionMissingIs404(t *testing.T) {
	srv, _ := newTestServer(t)

	res := postStatus(t, srv, "ghost", "SAVED")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestListings_SelfTransitionIsNoOp(t *testing.T) {
	srv, st := newTestServer(t)
	seedListing(t, st, "a", domain.StatusSaved)

	res := postStatus(t, srv, "a", "SAVED")
	require.Equal(t, http.StatusOK, res.StatusCode)

	got, err := st.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSaved, got.Status)
}

func TestScrapeRun_TriggersAndReports(t *testing.T) {
	srv, _ := newTestServer(t)

	res, err := http.Post(srv.URL+"/scrape/run", "application/json", nil)
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var ack map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&ack))
	assert.Equal(t, true, ack["ok"])
}

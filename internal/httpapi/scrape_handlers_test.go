package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobscout-engine/internal/config"
	"jobscout-engine/internal/scrape"
)

func newScrapeHandler(run func(context.Context, config.Config) []scrape.Result) (ScrapeHandler, *atomic.Bool) {
	var cfgVal, status atomic.Value
	cfgVal.Store(config.Default())
	status.Store(ScrapeStatus{})
	var running atomic.Bool
	return ScrapeHandler{
		CfgVal:       &cfgVal,
		ScrapeStatus: &status,
		Running:      &running,
		RunScrape:    run,
	}, &running
}

func postRun(t *testing.T, h ScrapeHandler) map[string]any {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Run(rec, httptest.NewRequest(http.MethodPost, "/scrape/run", nil))
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestScrapeRun_SecondRunRefusedWhileInFlight(t *testing.T) {
	block := make(chan struct{})
	h, running := newScrapeHandler(func(ctx context.Context, cfg config.Config) []scrape.Result {
		<-block
		return nil
	})

	first := postRun(t, h)
	assert.Equal(t, true, first["ok"])

	second := postRun(t, h)
	assert.Equal(t, false, second["ok"])
	assert.Equal(t, "already running", second["msg"])

	close(block)
	require.Eventually(t, func() bool { return !running.Load() }, time.Second, 5*time.Millisecond)

	third := postRun(t, h)
	assert.Equal(t, true, third["ok"])
}

func TestScrapeRun_StatusRecordsOutcome(t *testing.T) {
	h, running := newScrapeHandler(func(ctx context.Context, cfg config.Config) []scrape.Result {
		return []scrape.Result{
			{Source: "manual", ItemsIngested: 3},
			{Source: "computrabajo", Err: "site down"},
		}
	})

	out := postRun(t, h)
	require.Equal(t, true, out["ok"])
	require.Eventually(t, func() bool { return !running.Load() }, time.Second, 5*time.Millisecond)

	st := h.ScrapeStatus.Load().(ScrapeStatus)
	assert.False(t, st.Running)
	assert.Equal(t, 3, st.LastIngested)
	assert.Equal(t, "computrabajo: site down", st.LastError)
	assert.Empty(t, st.LastOkAt)
}

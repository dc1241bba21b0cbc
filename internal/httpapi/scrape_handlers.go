package httpapi

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"jobscout-engine/internal/config"
	"jobscout-engine/internal/scrape"
)

type ScrapeHandler struct {
	CfgVal       *atomic.Value // config.Config
	ScrapeStatus *atomic.Value // httpapi.ScrapeStatus
	Running      *atomic.Bool
	RunScrape    func(ctx context.Context, cfg config.Config) []scrape.Result
}

func (h ScrapeHandler) Status(w http.ResponseWriter, r *http.Request) {
	st := h.ScrapeStatus.Load().(ScrapeStatus)
	writeJSON(w, st)
}

// Run kicks off a full ingestion pass in the background. A second Run
// while one is in flight is refused, not queued; Running is the single
// gate, shared with the scheduler.
func (h ScrapeHandler) Run(w http.ResponseWriter, r *http.Request) {
	if !h.Running.CompareAndSwap(false, true) {
		writeJSON(w, map[string]any{"ok": false, "msg": "already running"})
		return
	}

	st := h.ScrapeStatus.Load().(ScrapeStatus)
	h.ScrapeStatus.Store(ScrapeStatus{
		LastRunAt: time.Now().Format(time.RFC3339),
		Running:   true,
		LastOkAt:  st.LastOkAt,
	})

	go func() {
		defer h.Running.Store(false)
		cfg := h.CfgVal.Load().(config.Config)
		results := h.RunScrape(context.Background(), cfg)

		ingested := 0
		firstErr := ""
		for _, res := range results {
			ingested += res.ItemsIngested
			if res.Err != "" && firstErr == "" {
				firstErr = res.Source + ": " + res.Err
			}
		}

		now := time.Now().Format(time.RFC3339)
		next := h.ScrapeStatus.Load().(ScrapeStatus)
		next.Running = false
		next.LastRunAt = now
		next.LastIngested = ingested
		next.LastResults = results
		next.LastError = firstErr
		if firstErr == "" {
			next.LastOkAt = now
		}
		h.ScrapeStatus.Store(next)
	}()

	writeJSON(w, map[string]any{"ok": true})
}

package httpapi

import (
	"context"
	"sync/atomic"

	"jobscout-engine/internal/config"
	"jobscout-engine/internal/events"
	"jobscout-engine/internal/scrape"
	"jobscout-engine/internal/store"
)

type Deps struct {
	Store *store.Store

	Hub *events.Hub

	// Atomic stores
	CfgVal       *atomic.Value // stores config.Config
	ScrapeStatus *atomic.Value // stores httpapi.ScrapeStatus

	// ScrapeRunning gates scrape runs; shared with the scheduler so a
	// manual and a scheduled run can never overlap.
	ScrapeRunning *atomic.Bool

	// Config persistence
	UserCfgPath string
	LoadCfg     func() (config.Config, error)

	// Ingestion entrypoint (inject for testability)
	RunScrape func(ctx context.Context, cfg config.Config) []scrape.Result
}

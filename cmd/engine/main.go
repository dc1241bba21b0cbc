package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"jobscout-engine/internal/config"
	"jobscout-engine/internal/domain"
	"jobscout-engine/internal/events"
	"jobscout-engine/internal/httpapi"
	"jobscout-engine/internal/scheduler"
	"jobscout-engine/internal/scrape"
	"jobscout-engine/internal/scrape/computrabajo"
	"jobscout-engine/internal/scrape/jobalerts"
	"jobscout-engine/internal/scrape/manual"
	"jobscout-engine/internal/scrape/practicaspe"
	"jobscout-engine/internal/scrape/util"
	"jobscout-engine/internal/secrets"
	"jobscout-engine/internal/store"
)

func main() {
	// Data dir: env wins, else local folder.
	dataDir := os.Getenv("JOBSCOUT_DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatal(err)
	}

	// One engine per data dir. A second instance would race the
	// scheduler and the sqlite file.
	lock := flock.New(filepath.Join(dataDir, "jobscout.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		log.Fatalf("lock data dir: %v", err)
	}
	if !locked {
		log.Fatalf("data dir %s is in use by another engine instance", dataDir)
	}
	defer func() { _ = lock.Unlock() }()

	userCfgPath, err := config.EnsureUserConfig(dataDir)
	if err != nil {
		log.Fatalf("config bootstrap failed: %v", err)
	}

	// Load config and keep it reloadable
	var cfgVal atomic.Value // stores config.Config
	loadCfg := func() (config.Config, error) {
		cfg, err := config.Load(userCfgPath)
		if err != nil {
			return config.Config{}, err
		}
		if err := config.Validate(cfg); err != nil {
			return config.Config{}, err
		}
		return cfg, nil
	}
	cfg, err := loadCfg()
	if err != nil {
		log.Fatalf("config load failed (%s): %v", userCfgPath, err)
	}
	cfgVal.Store(cfg)

	dbPath := filepath.Join(dataDir, "jobscout.db")
	st, err := store.Open(dbPath)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer st.Close()

	hub := events.NewHub()

	runner := &scrape.Runner{
		Store: st,
		OnNewListing: func(l domain.Listing) {
			hub.Publish(events.MakeEvent("", events.TypeListingCreated, 1, l))
		},
		OnExpired: func(source domain.Source, count int) {
			hub.Publish(events.MakeEvent("", events.TypeListingsExpired, 1, map[string]any{
				"source": source,
				"count":  count,
			}))
		},
	}
	orch := &scrape.Orchestrator{
		Runner: runner,
		OnRunFinished: func(results []scrape.Result) {
			hub.Publish(events.MakeEvent("", events.TypeRunFinished, 1, results))
		},
	}

	runScrape := func(ctx context.Context, cfg config.Config) []scrape.Result {
		orch.AdapterTimeout = time.Duration(cfg.Scrape.AdapterTimeoutSeconds) * time.Second
		orch.Concurrency = cfg.Scrape.Concurrency
		return orch.RunAll(ctx, buildAdapters(cfg, dataDir))
	}

	var scrapeStatus atomic.Value
	scrapeStatus.Store(httpapi.ScrapeStatus{})
	var scrapeRunning atomic.Bool

	scheduledRun := func(ctx context.Context) {
		cur := cfgVal.Load().(config.Config)
		runWithStatus(ctx, cur, runScrape, &scrapeStatus, &scrapeRunning)
	}

	sched := scheduler.New(scheduledRun)
	if err := sched.Start(context.Background(), cfg.Scrape.IntervalHours); err != nil {
		log.Fatalf("scheduler start: %v", err)
	}
	defer sched.Stop()

	if cfg.Scrape.RunOnStart {
		go scheduledRun(context.Background())
	}

	mux := httpapi.NewMux(httpapi.Deps{
		Store:         st,
		Hub:           hub,
		CfgVal:        &cfgVal,
		ScrapeStatus:  &scrapeStatus,
		ScrapeRunning: &scrapeRunning,
		UserCfgPath:   userCfgPath,
		LoadCfg:       loadCfg,
		RunScrape:     runScrape,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.App.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal(err)
	}

	srv := &http.Server{
		Handler: httpapi.Chain(mux,
			httpapi.Recover,
			httpapi.RequestID,
			httpapi.AccessLog,
			httpapi.Cors,
		),
		ReadHeaderTimeout: 5 * time.Second,
	}

	token, err := randomToken(16)
	if err != nil {
		log.Fatalf("shutdown token: %v", err)
	}
	mux.HandleFunc("/shutdown", shutdownHandler(&token, srv))
	fmt.Printf("SHUTDOWN_TOKEN=%s\n", token)

	log.Printf("[engine] listening on http://%s (db=%s)", addr, dbPath)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("[engine] signal %s, shutting down", sig)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Printf("[engine] serve: %v", err)
		}
	}

	sched.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[engine] shutdown: %v", err)
	}
}

// runWithStatus performs one full ingestion pass and records the
// outcome for /scrape/status. Manual runs go through the HTTP handler's
// own bookkeeping instead; both paths write the same struct.
func runWithStatus(ctx context.Context, cfg config.Config, run func(context.Context, config.Config) []scrape.Result, status *atomic.Value, running *atomic.Bool) {
	if !running.CompareAndSwap(false, true) {
		log.Printf("[engine] scheduled run skipped: previous run still in flight")
		return
	}
	defer running.Store(false)

	st := status.Load().(httpapi.ScrapeStatus)
	status.Store(httpapi.ScrapeStatus{
		LastRunAt: time.Now().Format(time.RFC3339),
		Running:   true,
		LastOkAt:  st.LastOkAt,
	})

	results := run(ctx, cfg)

	ingested := 0
	firstErr := ""
	for _, res := range results {
		ingested += res.ItemsIngested
		if res.Err != "" && firstErr == "" {
			firstErr = res.Source + ": " + res.Err
		}
	}

	now := time.Now().Format(time.RFC3339)
	next := status.Load().(httpapi.ScrapeStatus)
	next.Running = false
	next.LastRunAt = now
	next.LastIngested = ingested
	next.LastResults = results
	next.LastError = firstErr
	if firstErr == "" {
		next.LastOkAt = now
	}
	status.Store(next)
}

// buildAdapters assembles the enabled sources in a fixed order so run
// results always come back in the same sequence.
func buildAdapters(cfg config.Config, dataDir string) []scrape.Adapter {
	limiter := util.NewHostLimiter(cfg.Limits.RequestsPerSecond, cfg.Limits.Burst)

	var adapters []scrape.Adapter
	if cfg.Sources.PracticasPe.Enabled {
		adapters = append(adapters, practicaspe.New(cfg.Sources.PracticasPe, cfg.Filters, limiter))
	}
	if cfg.Sources.CompuTrabajo.Enabled {
		adapters = append(adapters, computrabajo.New(cfg.Sources.CompuTrabajo, cfg.Filters, limiter))
	}
	if cfg.Sources.JobAlerts.Enabled {
		adapters = append(adapters, jobalerts.New(cfg.Sources.JobAlerts, cfg.Filters, func() (string, error) {
			return secrets.GetIMAPPassword(secrets.IMAPKeyringAccount(cfg))
		}))
	}
	if cfg.Sources.Manual.Enabled {
		dropDir := cfg.Sources.Manual.DropDir
		if dropDir == "" {
			dropDir = filepath.Join(dataDir, "manual")
		}
		adapters = append(adapters, manual.New(dropDir))
	}
	return adapters
}

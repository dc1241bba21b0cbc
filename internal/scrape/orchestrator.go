package scrape

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"
)

// Orchestrator runs a set of adapters with fault isolation: one
// adapter failing (or panicking) never prevents the others from running
// and never escapes RunAll.
type Orchestrator struct {
	Runner *Runner

	// AdapterTimeout caps a single adapter's run. Zero means no cap
	// beyond whatever the adapter enforces itself.
	AdapterTimeout time.Duration

	// Concurrency is the number of adapters run at once. Values < 1
	// mean sequential. Adapters only touch rows of their own source, so
	// running them in parallel is safe.
	Concurrency int

	// OnRunFinished, when set, receives the results of each completed
	// orchestrated run.
	OnRunFinished func(results []Result)
}

// RunAll executes every adapter and returns one Result per adapter, in
// registration order. An empty adapter list returns an empty slice.
func (o *Orchestrator) RunAll(ctx context.Context, adapters []Adapter) []Result {
	results := make([]Result, len(adapters))
	if len(adapters) == 0 {
		return results
	}

	limit := o.Concurrency
	if limit < 1 {
		limit = 1
	}

	g := new(errgroup.Group)
	g.SetLimit(limit)
	for i, a := range adapters {
		i, a := i, a
		g.Go(func() error {
			results[i] = o.runOne(ctx, a)
			return nil
		})
	}
	_ = g.Wait()

	succeeded, failed, total := 0, 0, 0
	for _, res := range results {
		if res.Status == ResultSuccess {
			succeeded++
			total += res.ItemsIngested
		} else {
			failed++
		}
	}
	log.Printf("[orchestrator] run complete: %d succeeded, %d failed, %d listings ingested",
		succeeded, failed, total)

	if o.OnRunFinished != nil {
		o.OnRunFinished(results)
	}
	return results
}

// runOne is the single fault-isolation boundary: any error or panic
// from the adapter pipeline is converted into a Result here.
func (o *Orchestrator) runOne(ctx context.Context, a Adapter) (res Result) {
	start := time.Now()
	res = Result{Source: string(a.Source())}

	defer func() {
		if rec := recover(); rec != nil {
			res.Status = ResultError
			res.ItemsIngested = 0
			res.Duration = time.Since(start)
			res.Err = fmt.Sprintf("panic: %v", rec)
			log.Printf("[orchestrator] adapter %s panicked after %s: %v", res.Source, res.Duration, rec)
		}
	}()

	runCtx := ctx
	if o.AdapterTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, o.AdapterTimeout)
		defer cancel()
	}

	added, err := o.Runner.Run(runCtx, a)
	res.Duration = time.Since(start)
	if err != nil {
		res.Status = ResultError
		res.Err = err.Error()
		log.Printf("[orchestrator] adapter %s failed after %s: %v", res.Source, res.Duration, err)
		return res
	}

	res.Status = ResultSuccess
	res.ItemsIngested = added
	log.Printf("[orchestrator] adapter %s completed: %d listings in %s", res.Source, added, res.Duration)
	return res
}

package scrape

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"jobscout-engine/internal/domain"
	"jobscout-engine/internal/scrape/util"
	"jobscout-engine/internal/store"
)

// Runner executes the full ingestion pipeline for one adapter:
// scrape → parse → expiry reconciliation → duplicate filter → insert.
// Reconciliation runs against the FULL candidate set (known listings
// included) before any insert, because it reads the pre-insertion state
// of the store. Errors propagate to the orchestrator; the runner never
// swallows them.
type Runner struct {
	Store *store.Store

	// OnNewListing, when set, is invoked after each newly persisted
	// listing (SSE notifications).
	OnNewListing func(l domain.Listing)

	// OnExpired, when set, is invoked after reconciliation expired at
	// least one listing of the source.
	OnExpired func(source domain.Source, count int)
}

// Run returns the number of newly persisted listings.
func (r *Runner) Run(ctx context.Context, a Adapter) (int, error) {
	source := a.Source()
	log.Printf("[scrape:%s] starting", source)

	raw, err := a.Scrape(ctx)
	if err != nil {
		return 0, fmt.Errorf("scrape: %w", err)
	}

	candidates, err := a.Parse(raw)
	if err != nil {
		return 0, fmt.Errorf("parse: %w", err)
	}
	if len(candidates) == 0 {
		// distinct from a scrape failure: the site answered and listed
		// nothing, so everything still active will be expired below
		log.Printf("[scrape:%s] parse returned 0 candidates", source)
	}

	for i := range candidates {
		if candidates[i].Fingerprint == "" {
			candidates[i].Fingerprint = util.Fingerprint(candidates[i].Title, candidates[i].Employer)
		}
	}

	expired, err := ExpireMissing(ctx, r.Store, source, FingerprintSet(candidates))
	if err != nil {
		return 0, fmt.Errorf("reconcile: %w", err)
	}
	if expired > 0 && r.OnExpired != nil {
		r.OnExpired(source, expired)
	}

	fresh, err := FilterNew(ctx, r.Store, source, candidates)
	if err != nil {
		return 0, fmt.Errorf("duplicate filter: %w", err)
	}

	added := 0
	now := time.Now().UTC()
	for _, c := range fresh {
		l := domain.Listing{
			ID:          uuid.NewString(),
			Source:      source,
			Fingerprint: c.Fingerprint,
			Title:       c.Title,
			Employer:    c.Employer,
			Location:    c.Location,
			Salary:      c.Salary,
			Description: c.Description,
			URL:         c.URL,
			Status:      domain.StatusNew,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		ok, err := r.Store.InsertIfNew(ctx, l)
		if err != nil {
			return added, fmt.Errorf("insert %q @ %q: %w", c.Title, c.Employer, err)
		}
		if !ok {
			// lost a race against a concurrent run of the same source;
			// the unique index did its job
			continue
		}
		added++
		if r.OnNewListing != nil {
			r.OnNewListing(l)
		}
	}

	log.Printf("[scrape:%s] done fetched=%d expired=%d added=%d", source, len(candidates), expired, added)
	return added, nil
}

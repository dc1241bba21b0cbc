package scrape

import (
	"context"
	"fmt"
	"log"
	"time"

	"jobscout-engine/internal/domain"
	"jobscout-engine/internal/store"
)

// ExpireMissing transitions to EXPIRED every listing of the source that
// is still in a reconcilable state (NEW, SAVED, GENERATED) and whose
// fingerprint is absent from the current scrape. The write is one
// transactional batch. Listings in APPLIED, DISCARDED or EXPIRED are
// never touched.
//
// An empty current set expires everything reconcilable for the source;
// that mirrors "nothing currently listed". Distinguishing that from a
// dead site is the caller's problem: a failed scrape never reaches this
// function.
func ExpireMissing(ctx context.Context, st *store.Store, source domain.Source, current map[string]struct{}) (int, error) {
	active, err := st.ListBySourceAndStatuses(ctx, source, domain.ReconcilableStatuses())
	if err != nil {
		return 0, fmt.Errorf("load active listings: %w", err)
	}

	var ids []string
	for _, l := range active {
		if !domain.IsReconcilable(l.Status) {
			return 0, fmt.Errorf("%w: reconciliation asked to expire %s listing %s", domain.ErrIllegalTransition, l.Status, l.ID)
		}
		if _, listed := current[l.Fingerprint]; listed {
			continue
		}
		ids = append(ids, l.ID)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	if err := st.UpdateStatusBatch(ctx, ids, domain.StatusExpired, time.Now().UTC()); err != nil {
		return 0, fmt.Errorf("expire batch: %w", err)
	}

	log.Printf("[reconcile:%s] expired=%d (missing from current listing of %d fingerprints)",
		source, len(ids), len(current))
	return len(ids), nil
}

// FingerprintSet collects the fingerprints of a candidate batch.
// Duplicate candidates collapse naturally.
func FingerprintSet(candidates []domain.Candidate) map[string]struct{} {
	set := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		set[c.Fingerprint] = struct{}{}
	}
	return set
}

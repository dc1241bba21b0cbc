// Package scrape contains the ingestion pipeline shared by every source
// adapter: deduplication, expiry reconciliation, the per-adapter runner
// and the multi-source orchestrator.
package scrape

import (
	"context"
	"time"

	"jobscout-engine/internal/domain"
)

// Adapter is the contract every listing source implements. Scrape
// performs the network work and returns an opaque raw payload; Parse is
// a pure transformation of that payload into candidates. Neither knows
// about deduplication or persistence; that is the Runner's job.
type Adapter interface {
	Source() domain.Source
	Scrape(ctx context.Context) (string, error)
	Parse(raw string) ([]domain.Candidate, error)
}

const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Result summarizes one adapter's run. Built once per adapter per
// orchestrated run, never mutated afterwards, never persisted.
type Result struct {
	Source        string        `json:"source"`
	Status        string        `json:"status"` // success | error
	ItemsIngested int           `json:"items_ingested"`
	Duration      time.Duration `json:"duration"`
	Err           string        `json:"error,omitempty"`
}

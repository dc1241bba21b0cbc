package httpapi

import "jobscout-engine/internal/scrape"

type ScrapeStatus struct {
	LastRunAt    string          `json:"last_run_at"`
	LastOkAt     string          `json:"last_ok_at"`
	LastError    string          `json:"last_error"`
	LastIngested int             `json:"last_ingested"`
	LastResults  []scrape.Result `json:"last_results,omitempty"`
	Running      bool            `json:"running"`
}

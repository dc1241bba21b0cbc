package domain

import (
	"errors"
	"fmt"
	"time"
)

// Source identifies the portal a listing was ingested from.
type Source string

const (
	SourcePracticasPe  Source = "PRACTICAS_PE"
	SourceCompuTrabajo Source = "COMPUTRABAJO"
	SourceJobAlerts    Source = "JOB_ALERTS"
	SourceManual       Source = "MANUAL"
)

// ErrIllegalTransition is returned when a status change violates the
// state machine. Reconciliation is filtered so it never triggers this;
// seeing it means a core logic bug.
var ErrIllegalTransition = errors.New("illegal status transition")

// Listing is a persisted job listing. id, source and fingerprint never
// change after creation; descriptive fields are fixed too because
// duplicates are dropped rather than merged.
type Listing struct {
	ID          string     `json:"id"`
	Source      Source     `json:"source"`
	Fingerprint string     `json:"fingerprint"`
	Title       string     `json:"title"`
	Employer    string     `json:"employer"`
	Location    string     `json:"location"`
	Salary      string     `json:"salary,omitempty"`
	Description string     `json:"description"`
	URL         string     `json:"url"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	AppliedAt   *time.Time `json:"appliedAt,omitempty"`
}

// Candidate is a parsed, not yet persisted listing. It has no id,
// status or timestamps; those are assigned on first insert.
// Fingerprint may be empty until the runner assigns it.
type Candidate struct {
	Fingerprint string
	Title       string
	Employer    string
	Location    string
	Salary      string
	Description string
	URL         string
}

// Transition moves the listing to a new status, enforcing the state
// machine. A self-transition is a no-op: nothing changes, including
// updated_at. Entering APPLIED stamps applied_at exactly once.
func (l *Listing) Transition(to Status, now time.Time) error {
	if l.Status == to {
		return nil
	}
	if !CanTransition(l.Status, to) {
		return fmt.Errorf("%w: %s → %s", ErrIllegalTransition, l.Status, to)
	}
	l.Status = to
	l.UpdatedAt = now
	if to == StatusApplied && l.AppliedAt == nil {
		at := now
		l.AppliedAt = &at
	}
	return nil
}

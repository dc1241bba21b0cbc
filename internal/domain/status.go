// Package domain defines listings and their lifecycle state machine.
//
// Valid status graph:
//
//	NEW ──► SAVED ──► GENERATED ──► APPLIED
//	 │        │           │
//	 └────────┴───────────┴──► EXPIRED
//	 │        │
//	 └────────┴──► DISCARDED
//
// APPLIED, DISCARDED and EXPIRED are terminal for automatic
// reconciliation: the scrape pipeline never moves a listing out of them.
package domain

import "fmt"

// Status values are stored verbatim in the listings table.
type Status string

const (
	StatusNew       Status = "NEW"
	StatusSaved     Status = "SAVED"
	StatusDiscarded Status = "DISCARDED"
	StatusGenerated Status = "GENERATED"
	StatusApplied   Status = "APPLIED"
	StatusExpired   Status = "EXPIRED"
)

// validTransitions lists every allowed (from → to) pair.
var validTransitions = map[Status][]Status{
	StatusNew:       {StatusSaved, StatusDiscarded, StatusGenerated, StatusExpired},
	StatusSaved:     {StatusDiscarded, StatusGenerated, StatusApplied, StatusExpired},
	StatusGenerated: {StatusApplied, StatusExpired},
	// APPLIED, DISCARDED and EXPIRED have no outgoing transitions
}

// ParseStatus converts a raw string to a Status, returning an error for
// unknown values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusNew, StatusSaved, StatusDiscarded, StatusGenerated, StatusApplied, StatusExpired:
		return st, nil
	}
	return "", fmt.Errorf("unknown listing status %q", s)
}

// CanTransition returns true when moving from → to is permitted by the
// state machine. Self-transitions are permitted as no-ops.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	allowed, ok := validTransitions[from]
	if !ok {
		return false // terminal state
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// ReconcilableStatuses are the states expiry reconciliation may move a
// listing out of. Listings in any other state are never touched
// automatically.
func ReconcilableStatuses() []Status {
	return []Status{StatusNew, StatusSaved, StatusGenerated}
}

// IsReconcilable reports whether reconciliation may expire a listing in
// the given state.
func IsReconcilable(s Status) bool {
	switch s {
	case StatusNew, StatusSaved, StatusGenerated:
		return true
	}
	return false
}

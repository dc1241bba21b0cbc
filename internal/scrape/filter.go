package scrape

import (
	"context"
	"strings"

	"jobscout-engine/internal/config"
	"jobscout-engine/internal/domain"
	"jobscout-engine/internal/store"
)

// IsDuplicate reports whether a candidate with this fingerprint has
// already been persisted for the source. Read-only.
func IsDuplicate(ctx context.Context, st *store.Store, source domain.Source, fingerprint string) (bool, error) {
	return st.Exists(ctx, source, fingerprint)
}

// FilterNew returns only the candidates whose fingerprint is not yet
// persisted for the source, using a single batch query. Duplicates
// within the batch itself collapse to their first occurrence. Read-only;
// adapters call this before expensive detail fetching, the runner calls
// it before insertion.
func FilterNew(ctx context.Context, st *store.Store, source domain.Source, candidates []domain.Candidate) ([]domain.Candidate, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	fps := make([]string, 0, len(candidates))
	for _, c := range candidates {
		fps = append(fps, c.Fingerprint)
	}

	existing, err := st.ExistsBatch(ctx, source, fps)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(candidates))
	fresh := make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if _, dup := existing[c.Fingerprint]; dup {
			continue
		}
		if seen[c.Fingerprint] {
			continue
		}
		seen[c.Fingerprint] = true
		fresh = append(fresh, c)
	}
	return fresh, nil
}

// ShouldKeep applies the configured keyword/location filters to a parsed
// candidate. Adapters call it during Parse, so a filtered-out listing is
// also absent from the reconciliation set and expires like any other
// disappearance.
func ShouldKeep(f config.Filters, c domain.Candidate) (keep bool, reason string) {
	if !passesLocation(f, c) {
		return false, "location"
	}
	if !matchesAnyKeyword(f, c) {
		return false, "no_keyword_match"
	}
	return true, ""
}

func passesLocation(f config.Filters, c domain.Candidate) bool {
	loc := strings.ToLower(strings.TrimSpace(c.Location))
	title := strings.ToLower(strings.TrimSpace(c.Title))
	desc := strings.ToLower(strings.TrimSpace(c.Description))

	isRemote := strings.Contains(loc, "remot") || strings.Contains(title, "remot")

	for _, b := range f.LocationsBlock {
		b = strings.ToLower(strings.TrimSpace(b))
		if b == "" {
			continue
		}
		if strings.Contains(loc, b) || strings.Contains(title, b) || strings.Contains(desc, b) {
			return false
		}
	}

	if isRemote {
		return f.RemoteOK
	}

	if len(f.LocationsAllow) == 0 {
		return true
	}
	for _, a := range f.LocationsAllow {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" {
			continue
		}
		if strings.Contains(loc, a) || strings.Contains(title, a) || strings.Contains(desc, a) {
			return true
		}
	}
	return false
}

func matchesAnyKeyword(f config.Filters, c domain.Candidate) bool {
	if len(f.Keywords) == 0 {
		return true
	}
	text := strings.ToLower(c.Title + " " + c.Description)
	for _, kw := range f.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// Package manual ingests operator-provided listings from YAML drop
// files, so hand-found opportunities flow through the same
// dedup/lifecycle pipeline as scraped ones.
package manual

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"jobscout-engine/internal/domain"
	"jobscout-engine/internal/scrape/util"
)

// Entry is one listing in a drop file.
type Entry struct {
	Title       string `yaml:"title"`
	Employer    string `yaml:"employer"`
	Location    string `yaml:"location"`
	Salary      string `yaml:"salary"`
	Description string `yaml:"description"`
	URL         string `yaml:"url"`
}

type dropFile struct {
	Listings []Entry `yaml:"listings"`
}

type Adapter struct {
	dir string
}

func New(dir string) *Adapter {
	return &Adapter{dir: dir}
}

func (a *Adapter) Source() domain.Source { return domain.SourceManual }

// Scrape collects every *.yml/*.yaml drop file in the directory and
// returns their contents as a JSON array. A missing directory is an
// empty listing, not an error: manual entries are optional.
func (a *Adapter) Scrape(ctx context.Context) (string, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "[]", nil
		}
		return "", fmt.Errorf("read drop dir: %w", err)
	}

	var docs []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".yml" && ext != ".yaml" {
			continue
		}
		b, err := os.ReadFile(filepath.Join(a.dir, e.Name()))
		if err != nil {
			return "", fmt.Errorf("read %s: %w", e.Name(), err)
		}
		docs = append(docs, string(b))
	}

	b, err := json.Marshal(docs)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Parse decodes every drop document. A document that fails to decode is
// skipped with a log line; one bad drop file must not hide the others.
func (a *Adapter) Parse(raw string) ([]domain.Candidate, error) {
	var docs []string
	if err := json.Unmarshal([]byte(raw), &docs); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	var out []domain.Candidate
	for _, d := range docs {
		var doc dropFile
		if err := yaml.Unmarshal([]byte(d), &doc); err != nil {
			log.Printf("[manual] skipping malformed drop document: %v", err)
			continue
		}
		for _, e := range doc.Listings {
			title := util.CleanText(e.Title)
			employer := util.CleanText(e.Employer)
			if title == "" || employer == "" {
				log.Printf("[manual] skipping entry without title/employer (url=%q)", e.URL)
				continue
			}
			out = append(out, domain.Candidate{
				Title:       title,
				Employer:    employer,
				Location:    util.NormalizeLocation(e.Location),
				Salary:      util.CleanText(e.Salary),
				Description: util.CleanText(e.Description),
				URL:         strings.TrimSpace(e.URL),
			})
		}
	}
	return out, nil
}

package scrape

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobscout-engine/internal/domain"
)

type panicAdapter struct{ source domain.Source }

func (p *panicAdapter) Source() domain.Source { return p.source }
func (p *panicAdapter) Scrape(ctx context.Context) (string, error) {
	panic("adapter exploded")
}
func (p *panicAdapter) Parse(raw string) ([]domain.Candidate, error) { return nil, nil }

func TestRunAll_EmptyAdapterList(t *testing.T) {
	o := &Orchestrator{Runner: &Runner{Store: openTestStore(t)}}
	results := o.RunAll(context.Background(), nil)
	assert.Empty(t, results)
}

func TestRunAll_ResultsInRegistrationOrder(t *testing.T) {
	o := &Orchestrator{Runner: &Runner{Store: openTestStore(t)}, Concurrency: 4}

	adapters := []Adapter{
		&fakeAdapter{source: domain.SourcePracticasPe, candidates: []domain.Candidate{
			{Title: "A", Employer: "X"},
		}},
		&fakeAdapter{source: domain.SourceCompuTrabajo, candidates: []domain.Candidate{
			{Title: "B", Employer: "Y"},
			{Title: "C", Employer: "Z"},
		}},
		&fakeAdapter{source: domain.SourceManual},
	}

	results := o.RunAll(context.Background(), adapters)
	require.Len(t, results, 3)
	assert.Equal(t, string(domain.SourcePracticasPe), results[0].Source)
	assert.Equal(t, string(domain.SourceCompuTrabajo), results[1].Source)
	assert.Equal(t, string(domain.SourceManual), results[2].Source)
	assert.Equal(t, 1, results[0].ItemsIngested)
	assert.Equal(t, 2, results[1].ItemsIngested)
	assert.Equal(t, 0, results[2].ItemsIngested)
	for _, res := range results {
		assert.Equal(t, ResultSuccess, res.Status)
	}
}

func TestRunAll_FailureIsolated(t *testing.T) {
	o := &Orchestrator{Runner: &Runner{Store: openTestStore(t)}}

	adapters := []Adapter{
		&fakeAdapter{source: domain.SourcePracticasPe, scrapeErr: errors.New("site down")},
		&fakeAdapter{source: domain.SourceManual, candidates: []domain.Candidate{
			{Title: "Survivor", Employer: "Acme"},
		}},
	}

	results := o.RunAll(context.Background(), adapters)
	require.Len(t, results, 2)

	assert.Equal(t, ResultError, results[0].Status)
	assert.Contains(t, results[0].Err, "site down")
	assert.Equal(t, 0, results[0].ItemsIngested)

	assert.Equal(t, ResultSuccess, results[1].Status)
	assert.Equal(t, 1, results[1].ItemsIngested)
}

func TestRunAll_PanicContained(t *testing.T) {
	o := &Orchestrator{Runner: &Runner{Store: openTestStore(t)}}

	adapters := []Adapter{
		&panicAdapter{source: domain.SourcePracticasPe},
		&fakeAdapter{source: domain.SourceManual, candidates: []domain.Candidate{
			{Title: "Survivor", Employer: "Acme"},
		}},
	}

	results := o.RunAll(context.Background(), adapters)
	require.Len(t, results, 2)
	assert.Equal(t, ResultError, results[0].Status)
	assert.Contains(t, results[0].Err, "panic")
	assert.Equal(t, ResultSuccess, results[1].Status)
}

func TestRunAll_OnRunFinished(t *testing.T) {
	var got []Result
	o := &Orchestrator{
		Runner:        &Runner{Store: openTestStore(t)},
		OnRunFinished: func(results []Result) { got = results },
	}

	o.RunAll(context.Background(), []Adapter{
		&fakeAdapter{source: domain.SourceManual},
	})
	require.Len(t, got, 1)
	assert.Equal(t, string(domain.SourceManual), got[0].Source)
}

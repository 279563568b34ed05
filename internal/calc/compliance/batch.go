package compliance

import (
	"context"
	"errors"
	"runtime"

	"Circuitry/internal/calc/circuit"
	"Circuitry/internal/calc/refdata"

	"golang.org/x/sync/errgroup"
)

var ErrEmptyBatch = errors.New("no circuits to evaluate")

type Summary struct {
	Total         int `json:"total"`
	Pass          int `json:"pass"`
	Fail          int `json:"fail"`
	Indeterminate int `json:"indeterminate"`
}

func (s *Summary) add(v circuit.Verdict) {
	s.Total++
	switch v {
	case circuit.Pass:
		s.Pass++
	case circuit.Fail:
		s.Fail++
	default:
		s.Indeterminate++
	}
}

// Overall is PASS only when every circuit passed.
func (s Summary) Overall() circuit.Verdict {
	switch {
	case s.Total == 0:
		return circuit.Indeterminate
	case s.Fail > 0:
		return circuit.Fail
	case s.Indeterminate > 0:
		return circuit.Indeterminate
	}
	return circuit.Pass
}

type BatchResult struct {
	Dataset        string   `json:"dataset"`
	DatasetVersion string   `json:"dataset_version"`
	Results        []Result `json:"results"`
	Summary        Summary  `json:"summary"`
}

// EvaluateBatch evaluates every spec independently on at most workers
// goroutines (GOMAXPROCS when workers <= 0). Results keep the input order.
// Cancelling ctx stops circuits that have not started yet.
func EvaluateBatch(ctx context.Context, ds *refdata.Dataset, specs []circuit.Spec, workers int) (BatchResult, error) {
	if len(specs) == 0 {
		return BatchResult{}, ErrEmptyBatch
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]Result, len(specs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, spec := range specs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = Evaluate(ds, spec)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return BatchResult{}, err
	}

	out := BatchResult{Dataset: ds.Name(), DatasetVersion: ds.Version(), Results: results}
	for _, r := range results {
		out.Summary.add(r.Overall)
	}
	return out, nil
}

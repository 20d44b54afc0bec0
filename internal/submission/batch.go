package submission

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"
)

// BatchOptions controls how a batch is submitted.
type BatchOptions struct {
	// Concurrency is the number of submissions in flight. Defaults to 1.
	Concurrency int
	// PerSecond paces the start of submissions. Zero means unpaced.
	PerSecond float64
	// OnResult is called after each submission. Calls may be concurrent.
	OnResult func(index int, out Outcome)
}

// BatchSummary counts outcomes by state.
type BatchSummary struct {
	Total  int
	Counts map[State]int
}

// Failed returns the number of submissions that did not succeed.
func (s BatchSummary) Failed() int {
	return s.Total - s.Counts[Succeeded]
}

// LoadApplications reads a list of applications from a YAML or JSON file.
func LoadApplications(path string) ([]Application, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read applications file: %w", err)
	}

	var apps []Application
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		// JSON is a subset of YAML.
		if err := yaml.Unmarshal(data, &apps); err != nil {
			return nil, fmt.Errorf("failed to parse applications file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported applications file %q (expected .yaml, .yml or .json)", path)
	}
	return apps, nil
}

// SubmitBatch submits every application. A failed submission does not stop
// the others; only context cancellation does.
func (w *Workflow) SubmitBatch(ctx context.Context, apps []Application, opts BatchOptions) (BatchSummary, error) {
	summary := BatchSummary{Total: len(apps), Counts: make(map[State]int)}
	outcomes := make([]Outcome, len(apps))

	limit := opts.Concurrency
	if limit <= 0 {
		limit = 1
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.PerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.PerSecond), 1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i := range apps {
		if err := limiter.Wait(gctx); err != nil {
			break
		}
		g.Go(func() error {
			out := w.Submit(gctx, apps[i])
			outcomes[i] = out
			if opts.OnResult != nil {
				opts.OnResult(i, out)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}

	for _, out := range outcomes {
		if out.State != "" {
			summary.Counts[out.State]++
		}
	}
	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("batch interrupted: %w", err)
	}
	return summary, nil
}

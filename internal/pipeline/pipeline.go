// Package pipeline runs one catalog consolidation: classify the regime, split
// the date range, retrieve every chunk and organize the results.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/star/tlecat/internal/catalog"
	"github.com/star/tlecat/internal/chunk"
	"github.com/star/tlecat/internal/metrics"
	"github.com/star/tlecat/internal/regime"
	"github.com/star/tlecat/internal/retrieve"
	"github.com/star/tlecat/internal/tle"
)

// Request describes one run.
type Request struct {
	Regime        string
	Start         time.Time
	End           time.Time
	SkipMalformed bool
	Fetch         retrieve.RunnerConfig
}

// Result is a completed run.
type Result struct {
	RunID    string
	Regime   regime.Regime
	Chunks   []chunk.Chunk
	Lines    []string // raw lines in chunk order
	Catalog  *catalog.RunCatalog
	Skipped  int // malformed triplets dropped in lenient mode
	Outliers int // records the regime's constraints do not admit
	Duration time.Duration
}

// Plan classifies label and splits [start, end) for it.
func Plan(label string, start, end time.Time) (regime.Regime, []chunk.Chunk, error) {
	r, err := regime.Classify(label)
	if err != nil {
		return regime.Regime{}, nil, err
	}
	chunks, err := chunk.Split(start, end, r)
	if err != nil {
		return regime.Regime{}, nil, err
	}
	return r, chunks, nil
}

// Run executes req against src. Configuration and range errors are returned
// before anything is fetched; any chunk failing after its retries fails the
// run, and no partial catalog is returned.
func Run(ctx context.Context, req Request, src retrieve.Source, logger *slog.Logger) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger = logger.With("run_id", runID)

	r, chunks, err := Plan(req.Regime, req.Start, req.End)
	if err != nil {
		return nil, err
	}
	metrics.AddChunksPlanned(r.Label(), len(chunks))
	logger.Info("run planned",
		"component", "pipeline",
		"regime", string(r.Kind),
		"start", chunks[0].Start.Format(chunk.DateLayout),
		"end", chunks[len(chunks)-1].End.Format(chunk.DateLayout),
		"chunks", len(chunks),
	)

	batches, err := retrieve.NewRunner(src, req.Fetch, logger).FetchAll(ctx, r, chunks)
	if err != nil {
		return nil, fmt.Errorf("retrieving %s: %w", r.Kind, err)
	}

	b := catalog.NewOrganizer(logger, req.SkipMalformed).NewBuilder()
	var lines []string
	for i, batch := range batches {
		if err := b.Add(batch); err != nil {
			return nil, fmt.Errorf("organizing chunk %d (%s): %w", i, chunks[i], err)
		}
		lines = append(lines, batch...)
	}
	rc, err := b.Build()
	if err != nil {
		return nil, err
	}

	res := &Result{
		RunID:    runID,
		Regime:   r,
		Chunks:   chunks,
		Lines:    lines,
		Catalog:  rc,
		Skipped:  b.Skipped(),
		Outliers: countOutliers(rc, r),
		Duration: time.Since(start),
	}
	if res.Outliers > 0 {
		logger.Warn("provider returned records outside regime constraints",
			"component", "pipeline",
			"regime", string(r.Kind),
			"records", res.Outliers,
		)
	}
	logger.Info("run complete",
		"component", "pipeline",
		"objects", rc.Len(),
		"records", rc.Records(),
		"skipped", res.Skipped,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func countOutliers(rc *catalog.RunCatalog, r regime.Regime) int {
	n := 0
	rc.Each(func(_ int, history []tle.Record) {
		for _, rec := range history {
			if !r.Admits(rec) {
				n++
			}
		}
	})
	return n
}

// WriteRaw writes the run's raw lines, one per line, as retrieved.
func (res *Result) WriteRaw(w io.Writer) error {
	if len(res.Lines) == 0 {
		return nil
	}
	_, err := io.WriteString(w, strings.Join(res.Lines, "\n")+"\n")
	return err
}

// Epoch reduces rc to one record per object nearest target.
func Epoch(rc *catalog.RunCatalog, target time.Time, logger *slog.Logger) *catalog.EpochCatalog {
	ec := catalog.SelectNearest(rc, target)
	logger.Info("epoch catalog selected",
		"component", "pipeline",
		"target", target.UTC().Format(time.RFC3339),
		"target_year_day", ec.TargetYearDay(),
		"objects", ec.Len(),
	)
	return ec
}

package retrieve

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/star/tlecat/internal/chunk"
	"github.com/star/tlecat/internal/metrics"
	"github.com/star/tlecat/internal/regime"
	"github.com/star/tlecat/internal/tle"
)

// RunnerConfig tunes concurrency and retries.
type RunnerConfig struct {
	Workers        int // <= 0 means 1
	Retries        int // extra attempts per chunk after the first
	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

// ChunkError reports the chunk whose retrieval failed the run.
type ChunkError struct {
	Index    int
	Chunk    chunk.Chunk
	Attempts int
	Err      error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d (%s) failed after %d attempt(s): %v", e.Index, e.Chunk, e.Attempts, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }

// fetchJob is a unit of work for the pool.
type fetchJob struct {
	index int
	query Query
}

type fetchResult struct {
	index int
	lines []string
	err   error
}

// Runner fetches the chunks of one run with a fixed pool of goroutines.
type Runner struct {
	source Source
	cfg    RunnerConfig
	logger *slog.Logger
}

// NewRunner creates a Runner over source.
func NewRunner(source Source, cfg RunnerConfig, logger *slog.Logger) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.BackoffInitial <= 0 {
		cfg.BackoffInitial = DefaultBackoffInitial
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = DefaultBackoffMax
	}
	return &Runner{source: source, cfg: cfg, logger: logger}
}

// FetchAll retrieves every chunk and returns one flat line batch per chunk,
// in chunk order. The first chunk to fail after its retries cancels the rest
// and fails the whole call; no partial result is returned.
func (r *Runner) FetchAll(ctx context.Context, reg regime.Regime, chunks []chunk.Chunk) ([][]string, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := min(r.cfg.Workers, len(chunks))
	jobs := make(chan fetchJob, workers*2)
	results := make(chan fetchResult, workers*2)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				lines, err := r.fetchChunk(ctx, job)
				select {
				case results <- fetchResult{index: job.index, lines: lines, err: err}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, c := range chunks {
			select {
			case jobs <- fetchJob{index: i, query: NewQuery(reg, c)}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	batches := make([][]string, len(chunks))
	var firstErr error
	for res := range results {
		if res.err != nil {
			if firstErr == nil {
				firstErr = res.err
				cancel()
			}
			continue
		}
		batches[res.index] = res.lines
	}

	if firstErr != nil {
		return nil, firstErr
	}
	// Workers exit early only on cancellation.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return batches, nil
}

func (r *Runner) fetchChunk(ctx context.Context, job fetchJob) ([]string, error) {
	bo := newBackoff(r.cfg.BackoffInitial, r.cfg.BackoffMax)
	attempts := r.cfg.Retries + 1

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		start := time.Now()
		body, err := r.source.Fetch(ctx, job.query)
		metrics.RecordChunkFetch(time.Since(start), err)

		if err == nil {
			lines, err := tle.SplitLines(bytes.NewReader(body))
			if err != nil {
				return nil, &ChunkError{Index: job.index, Chunk: job.query.Chunk, Attempts: attempt, Err: err}
			}
			r.logger.Info("chunk retrieved",
				"component", "retrieve",
				"chunk", job.index,
				"chunk_start", job.query.Chunk.Start.Format(chunk.DateLayout),
				"chunk_end", job.query.Chunk.End.Format(chunk.DateLayout),
				"lines", len(lines),
				"attempt", attempt,
			)
			return lines, nil
		}

		lastErr = err
		if ctx.Err() != nil || !retryable(err) || attempt == attempts {
			return nil, &ChunkError{Index: job.index, Chunk: job.query.Chunk, Attempts: attempt, Err: err}
		}

		r.logger.Warn("chunk fetch failed, retrying",
			"component", "retrieve",
			"chunk", job.index,
			"chunk_start", job.query.Chunk.Start.Format(chunk.DateLayout),
			"attempt", attempt,
			"retry_in", bo.Current(),
			"error", err,
		)
		if err := bo.Wait(ctx); err != nil {
			return nil, &ChunkError{Index: job.index, Chunk: job.query.Chunk, Attempts: attempt, Err: lastErr}
		}
	}
	return nil, &ChunkError{Index: job.index, Chunk: job.query.Chunk, Attempts: attempts, Err: lastErr}
}

// retryable treats provider client errors (other than rate limiting) and
// malformed dumps as permanent.
func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return !errors.Is(err, tle.ErrMalformedRecord)
}

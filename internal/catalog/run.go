// Package catalog groups raw element records by object identity and reduces
// per-object histories to the record nearest a target instant.
//
// A RunCatalog is append-only while a Builder owns it and read-only once
// built. An EpochCatalog is derived from a RunCatalog and never modifies it.
package catalog

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/star/tlecat/internal/metrics"
	"github.com/star/tlecat/internal/tle"
)

// RunCatalog maps object ids to their record history in arrival order.
// Objects with no records are never present.
type RunCatalog struct {
	histories map[int][]tle.Record
	records   int
}

// Len is the number of distinct objects.
func (rc *RunCatalog) Len() int { return len(rc.histories) }

// Records is the total number of records across all histories.
func (rc *RunCatalog) Records() int { return rc.records }

// IDs returns the object ids in ascending order.
func (rc *RunCatalog) IDs() []int {
	ids := make([]int, 0, len(rc.histories))
	for id := range rc.histories {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// History returns a copy of the records for id in arrival order.
func (rc *RunCatalog) History(id int) ([]tle.Record, bool) {
	h, ok := rc.histories[id]
	if !ok {
		return nil, false
	}
	return slices.Clone(h), true
}

// Each calls fn for every object in ascending id order. The history slice is
// shared with the catalog and must not be modified.
func (rc *RunCatalog) Each(fn func(id int, history []tle.Record)) {
	for _, id := range rc.IDs() {
		fn(id, rc.histories[id])
	}
}

// Organizer turns flat (name, line1, line2) sequences into run catalogs.
// The zero value is strict: the first malformed triplet aborts the build.
type Organizer struct {
	// SkipMalformed drops unparseable triplets with a warning instead of
	// failing. A sequence whose length is not a multiple of three still fails,
	// since the triplet alignment itself is unknown.
	SkipMalformed bool

	logger *slog.Logger
}

// NewOrganizer returns an Organizer logging to logger.
func NewOrganizer(logger *slog.Logger, skipMalformed bool) *Organizer {
	return &Organizer{SkipMalformed: skipMalformed, logger: logger}
}

// Organize builds a RunCatalog from a single raw stream. Calling it twice on
// the same stream yields two independent catalogs; it never merges.
func Organize(lines []string) (*RunCatalog, error) {
	return (&Organizer{}).Organize(lines)
}

// Organize builds a RunCatalog from a single raw stream.
func (o *Organizer) Organize(lines []string) (*RunCatalog, error) {
	b := o.NewBuilder()
	if err := b.Add(lines); err != nil {
		return nil, err
	}
	return b.Build()
}

// NewBuilder starts an empty catalog that accepts batches via Add.
func (o *Organizer) NewBuilder() *Builder {
	logger := o.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Builder{
		skipMalformed: o.SkipMalformed,
		logger:        logger,
		histories:     make(map[int][]tle.Record),
	}
}

// Builder accumulates record batches, for example one per retrieved date
// chunk. Grouping is by object id so batches may arrive in any order; only
// the per-object arrival order depends on it. A Builder is not safe for
// concurrent use.
type Builder struct {
	skipMalformed bool
	logger        *slog.Logger

	histories map[int][]tle.Record
	records   int
	skipped   int
	err       error
	built     bool
}

// Add parses one flat batch of triplets and appends its records. In strict
// mode a failing batch leaves the builder unchanged and poisons it, so Build
// can never return a partial catalog.
func (b *Builder) Add(lines []string) error {
	if b.err != nil {
		return b.err
	}
	if b.built {
		return fmt.Errorf("catalog builder already built")
	}
	if len(lines)%3 != 0 {
		b.err = &tle.MalformedRecordError{
			Reason: fmt.Sprintf("%d lines is not a whole number of name/line1/line2 triplets", len(lines)),
		}
		return b.err
	}

	batch := make([]tle.Record, 0, len(lines)/3)
	for i := 0; i+2 < len(lines); i += 3 {
		rec, err := tle.Parse(lines[i], lines[i+1], lines[i+2])
		if err != nil {
			metrics.IncRecordsMalformed()
			if b.skipMalformed {
				b.skipped++
				b.logger.Warn("skipping malformed element triplet",
					"component", "catalog",
					"triplet", i/3,
					"name", lines[i],
					"error", err,
				)
				continue
			}
			b.err = fmt.Errorf("triplet %d (lines %d-%d): %w", i/3, i+1, i+3, err)
			return b.err
		}
		batch = append(batch, rec)
	}

	for _, rec := range batch {
		b.append(rec)
	}
	metrics.AddRecordsParsed(len(batch))
	return nil
}

func (b *Builder) append(rec tle.Record) {
	b.histories[rec.ObjectID] = append(b.histories[rec.ObjectID], rec)
	b.records++
}

// Skipped is the number of triplets dropped in lenient mode.
func (b *Builder) Skipped() int { return b.skipped }

// Build freezes the catalog. The builder cannot be used afterwards.
func (b *Builder) Build() (*RunCatalog, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.built {
		return nil, fmt.Errorf("catalog builder already built")
	}
	b.built = true

	rc := &RunCatalog{histories: b.histories, records: b.records}
	b.histories = nil
	metrics.SetCatalogSize(rc.Len(), rc.Records())
	if b.skipped > 0 {
		b.logger.Warn("run catalog built with skipped triplets",
			"component", "catalog",
			"skipped", b.skipped,
			"objects", rc.Len(),
			"records", rc.Records(),
		)
	}
	return rc, nil
}

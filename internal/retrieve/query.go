// Package retrieve fetches raw 3LE text for one regime over a sequence of
// date chunks. Sources are pluggable: a provider over HTTP, an on-disk cache
// in front of it, or a local dump file for offline runs.
package retrieve

import (
	"context"
	"net/url"
	"strings"

	"github.com/star/tlecat/internal/chunk"
	"github.com/star/tlecat/internal/regime"
)

// Source returns raw 3LE text (name, line1, line2 per object) for one query.
type Source interface {
	Fetch(ctx context.Context, q Query) ([]byte, error)
}

// Query asks for every element set matching a regime's constraints with an
// epoch inside one chunk.
type Query struct {
	Regime regime.Regime
	Chunk  chunk.Chunk
}

// NewQuery pairs a regime with a chunk.
func NewQuery(r regime.Regime, c chunk.Chunk) Query {
	return Query{Regime: r, Chunk: c}
}

// Path renders the provider query path, for example
//
//	/class/gp_history/ECCENTRICITY/%3C0.01/MEAN_MOTION/0.99--1.01/EPOCH/2024-01-01--2024-01-21/orderby/NORAD_CAT_ID/format/3le
//
// Unconstrained bounds are omitted.
func (q Query) Path() string {
	var b strings.Builder
	b.WriteString("/class/gp_history")

	predicates := []struct {
		name  string
		bound regime.Bound
	}{
		{"ECCENTRICITY", q.Regime.Eccentricity},
		{"MEAN_MOTION", q.Regime.MeanMotion},
		{"PERIOD", q.Regime.Period},
	}
	for _, p := range predicates {
		if p.bound.IsZero() {
			continue
		}
		b.WriteString("/" + p.name + "/" + url.PathEscape(p.bound.String()))
	}

	b.WriteString("/EPOCH/" + q.Chunk.Epoch())
	b.WriteString("/orderby/NORAD_CAT_ID/format/3le")
	return b.String()
}

// CacheKey names the cached raw file for this query.
func (q Query) CacheKey() string {
	return "3le_" + q.Regime.Label() + "_" +
		q.Chunk.Start.Format(chunk.DateLayout) + "_" +
		q.Chunk.End.Format(chunk.DateLayout) + ".txt"
}

func (q Query) String() string {
	return q.Regime.Label() + " " + q.Chunk.Epoch()
}

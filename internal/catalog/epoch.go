package catalog

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/star/tlecat/internal/metrics"
	"github.com/star/tlecat/internal/tle"
)

// YearDay encodes t the way element-set epochs are encoded: day of year plus
// the fraction of the day elapsed, in UTC. The year itself is discarded, so
// records from different years with the same day of year compare equal.
func YearDay(t time.Time) float64 {
	t = t.UTC()
	seconds := float64(t.Second()) + float64(t.Nanosecond())/1e9
	return float64(t.YearDay()) +
		float64(t.Hour())/24 +
		float64(t.Minute())/1440 +
		seconds/86400
}

// EpochCatalog holds exactly one record per object: the one whose epoch is
// nearest the target.
type EpochCatalog struct {
	target        time.Time
	targetYearDay float64
	records       map[int]tle.Record
}

// SelectNearest picks, for every object in rc, the record minimising
// |YearDay(target) - EpochYearDay|. Ties go to the earliest arrival.
func SelectNearest(rc *RunCatalog, target time.Time) *EpochCatalog {
	yd := YearDay(target)
	ec := &EpochCatalog{
		target:        target,
		targetYearDay: yd,
		records:       make(map[int]tle.Record, rc.Len()),
	}

	for id, history := range rc.histories {
		if len(history) == 0 {
			panic(fmt.Sprintf("catalog: object %d has an empty history", id))
		}
		best := 0
		bestDelta := math.Abs(yd - history[0].EpochYearDay)
		for i := 1; i < len(history); i++ {
			// Strict less-than keeps the first minimal record.
			if d := math.Abs(yd - history[i].EpochYearDay); d < bestDelta {
				best, bestDelta = i, d
			}
		}
		ec.records[id] = history[best]
	}

	metrics.IncEpochSelections()
	return ec
}

// Target is the instant the catalog was selected for. It is the zero time
// for catalogs loaded from disk.
func (ec *EpochCatalog) Target() time.Time { return ec.target }

// TargetYearDay is YearDay(Target()).
func (ec *EpochCatalog) TargetYearDay() float64 { return ec.targetYearDay }

// Len is the number of objects.
func (ec *EpochCatalog) Len() int { return len(ec.records) }

// IDs returns the object ids in ascending order.
func (ec *EpochCatalog) IDs() []int {
	ids := make([]int, 0, len(ec.records))
	for id := range ec.records {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Get returns the selected record for id.
func (ec *EpochCatalog) Get(id int) (tle.Record, bool) {
	rec, ok := ec.records[id]
	return rec, ok
}

// Each calls fn for every object in ascending id order.
func (ec *EpochCatalog) Each(fn func(id int, rec tle.Record)) {
	for _, id := range ec.IDs() {
		fn(id, ec.records[id])
	}
}

// Package tletest builds syntactically valid element lines for tests.
package tletest

import (
	"fmt"
	"math"
)

// ISS element lines, epoch 2024 day 100.5.
const (
	ISSLine1 = "1 25544U 98067A   24100.50000000  .00016717  00000-0  10270-3 0  9005"
	ISSLine2 = "2 25544  51.6400 100.0000 0001000   0.0000   0.0000 15.50000000    09"
)

// Lines returns a LEO-like element pair for id with the given epoch day of 2024.
func Lines(id int, yearDay float64) (string, string) {
	return Elements(id, yearDay, 15.5, 0.0001)
}

// Elements returns an element pair with explicit mean motion (rev/day) and
// eccentricity. Checksums are not computed.
func Elements(id int, yearDay, meanMotion, ecc float64) (string, string) {
	line1 := fmt.Sprintf("1 %05dU 98067A   24%012.8f  .00016717  00000-0  10270-3 0  9005", id, yearDay)
	line2 := fmt.Sprintf("2 %05d  51.6400 100.0000 %07d   0.0000   0.0000 %11.8f    09",
		id, int(math.Round(ecc*1e7)), meanMotion)
	return line1, line2
}

// Triplet returns the flat 3LE form name, line1, line2.
func Triplet(name string, id int, yearDay float64) []string {
	l1, l2 := Lines(id, yearDay)
	return []string{"0 " + name, l1, l2}
}

package retrieve

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/star/tlecat/internal/tle"
)

// FileSource replays a local 3LE dump, for example one saved from an earlier
// run or downloaded by hand. Each query gets the triplets whose epoch lies in
// the chunk and which the regime admits. Triplets that fail to parse are
// passed through, with the first query only, so the organizer applies its
// own strict or lenient policy and counts each of them once.
type FileSource struct {
	path string

	once  sync.Once
	lines []string
	err   error

	malformedOnce sync.Once
}

// NewFileSource creates a FileSource reading path on first use.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) load() {
	f, err := os.Open(s.path)
	if err != nil {
		s.err = fmt.Errorf("opening element dump: %w", err)
		return
	}
	defer f.Close()

	lines, err := tle.SplitLines(f)
	if err != nil {
		s.err = err
		return
	}
	if len(lines)%3 != 0 {
		s.err = &tle.MalformedRecordError{
			Value:  s.path,
			Reason: fmt.Sprintf("%d lines is not a whole number of name/line1/line2 triplets", len(lines)),
		}
		return
	}
	s.lines = lines
}

// Fetch filters the dump for q.
func (s *FileSource) Fetch(ctx context.Context, q Query) ([]byte, error) {
	s.once.Do(s.load)
	if s.err != nil {
		return nil, s.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	withMalformed := false
	s.malformedOnce.Do(func() { withMalformed = true })

	var b strings.Builder
	for i := 0; i+2 < len(s.lines); i += 3 {
		triplet := s.lines[i : i+3]
		rec, err := tle.Parse(triplet[0], triplet[1], triplet[2])
		if err != nil && !withMalformed {
			continue
		}
		if err == nil {
			epoch, err := rec.EpochTime()
			if err != nil {
				return nil, err
			}
			if epoch.Before(q.Chunk.Start) || !epoch.Before(q.Chunk.End) {
				continue
			}
			if !q.Regime.Admits(rec) {
				continue
			}
		}
		for _, line := range triplet {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return []byte(b.String()), nil
}

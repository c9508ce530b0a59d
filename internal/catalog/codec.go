package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/star/tlecat/internal/tle"
)

// Format selects the on-disk encoding of a persisted catalog.
type Format int

const (
	JSON Format = iota
	YAML
)

// FormatFor picks the encoding from a file extension; anything other than
// .yaml or .yml is JSON.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	default:
		return JSON
	}
}

// The persisted shapes key objects by their id as a string:
//
//	run:   {"25544": [[line1, line2], ...]}
//	epoch: {"25544": [line1, line2]}
type (
	runDoc   map[string][][]string
	epochDoc map[string][]string
)

// WriteRun encodes rc; histories keep their arrival order.
func WriteRun(w io.Writer, rc *RunCatalog, f Format) error {
	doc := make(runDoc, rc.Len())
	rc.Each(func(id int, history []tle.Record) {
		pairs := make([][]string, 0, len(history))
		for _, rec := range history {
			pairs = append(pairs, []string{rec.Line1, rec.Line2})
		}
		doc[strconv.Itoa(id)] = pairs
	})
	return encode(w, doc, f)
}

// ReadRun decodes a run catalog, re-parsing every element pair. Objects are
// added in ascending id order. Names are not persisted and come back empty.
func ReadRun(r io.Reader, f Format) (*RunCatalog, error) {
	var doc runDoc
	if err := decode(r, &doc, f); err != nil {
		return nil, err
	}

	b := (&Organizer{}).NewBuilder()
	for _, key := range sortedKeys(doc) {
		pairs := doc[key]
		if len(pairs) == 0 {
			return nil, &tle.MalformedRecordError{Value: key, Reason: "object has no element sets"}
		}
		for i, pair := range pairs {
			rec, err := parsePair(key, pair)
			if err != nil {
				return nil, fmt.Errorf("object %s entry %d: %w", key, i, err)
			}
			b.append(rec)
		}
	}
	return b.Build()
}

// WriteEpoch encodes ec.
func WriteEpoch(w io.Writer, ec *EpochCatalog, f Format) error {
	doc := make(epochDoc, ec.Len())
	ec.Each(func(id int, rec tle.Record) {
		doc[strconv.Itoa(id)] = []string{rec.Line1, rec.Line2}
	})
	return encode(w, doc, f)
}

// ReadEpoch decodes an epoch catalog. The target instant is not persisted.
func ReadEpoch(r io.Reader, f Format) (*EpochCatalog, error) {
	var doc epochDoc
	if err := decode(r, &doc, f); err != nil {
		return nil, err
	}

	ec := &EpochCatalog{records: make(map[int]tle.Record, len(doc))}
	for _, key := range sortedKeys(doc) {
		rec, err := parsePair(key, doc[key])
		if err != nil {
			return nil, fmt.Errorf("object %s: %w", key, err)
		}
		ec.records[rec.ObjectID] = rec
	}
	return ec, nil
}

// SaveRun writes rc to path in the format implied by its extension.
func SaveRun(path string, rc *RunCatalog) error {
	return save(path, func(w io.Writer) error { return WriteRun(w, rc, FormatFor(path)) })
}

// LoadRun reads a run catalog from path.
func LoadRun(path string) (*RunCatalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening run catalog: %w", err)
	}
	defer f.Close()
	return ReadRun(f, FormatFor(path))
}

// SaveEpoch writes ec to path in the format implied by its extension.
func SaveEpoch(path string, ec *EpochCatalog) error {
	return save(path, func(w io.Writer) error { return WriteEpoch(w, ec, FormatFor(path)) })
}

// LoadEpoch reads an epoch catalog from path.
func LoadEpoch(path string) (*EpochCatalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening epoch catalog: %w", err)
	}
	defer f.Close()
	return ReadEpoch(f, FormatFor(path))
}

func parsePair(key string, pair []string) (tle.Record, error) {
	if len(pair) != 2 {
		return tle.Record{}, &tle.MalformedRecordError{
			Value:  key,
			Reason: fmt.Sprintf("expected [line1, line2], got %d elements", len(pair)),
		}
	}
	rec, err := tle.Parse("", pair[0], pair[1])
	if err != nil {
		return tle.Record{}, err
	}
	// Keys must be canonical so "25544" and "025544" cannot both name one object.
	if key != strconv.Itoa(rec.ObjectID) {
		return tle.Record{}, &tle.MalformedRecordError{
			Field:  "object_id",
			Value:  key,
			Reason: fmt.Sprintf("key is not the canonical object id %d", rec.ObjectID),
		}
	}
	return rec, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Numeric order where possible so ids read naturally.
	slices.SortFunc(keys, func(a, b string) int {
		ai, aerr := strconv.Atoi(a)
		bi, berr := strconv.Atoi(b)
		if aerr == nil && berr == nil {
			return ai - bi
		}
		return strings.Compare(a, b)
	})
	return keys
}

func encode(w io.Writer, v any, f Format) error {
	switch f {
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding catalog yaml: %w", err)
		}
		return enc.Close()
	default:
		if err := json.NewEncoder(w).Encode(v); err != nil {
			return fmt.Errorf("encoding catalog json: %w", err)
		}
		return nil
	}
}

func decode(r io.Reader, v any, f Format) error {
	switch f {
	case YAML:
		if err := yaml.NewDecoder(r).Decode(v); err != nil {
			return fmt.Errorf("decoding catalog yaml: %w", err)
		}
	default:
		if err := json.NewDecoder(r).Decode(v); err != nil {
			return fmt.Errorf("decoding catalog json: %w", err)
		}
	}
	return nil
}

// save writes through a temp file and renames it into place so watchers
// never observe a half-written catalog.
func save(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating catalog dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp catalog file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp catalog file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming catalog file: %w", err)
	}
	return nil
}

package tle

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// maxLineBytes bounds a single input line; element lines are 69 columns.
const maxLineBytes = 1024 * 1024

// SplitLines reads provider 3LE text into the flat line sequence consumed by
// the catalog organizer. Blank lines are dropped and trailing whitespace is
// trimmed; no grouping or validation happens here.
func SplitLines(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var lines []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading element data: %w", err)
	}
	return lines, nil
}

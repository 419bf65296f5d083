// Package boundary computes, per source file, the last line that still
// belongs to production code. Generated test modules are appended after the
// production code, opened by a marker line; everything at or after the
// marker is excluded from coverage metrics.
package boundary

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Resolver resolves production boundaries for source files. Results are
// cached per file path for the lifetime of the resolver: the boundary
// cannot change during one aggregation pass, and re-reading a large file
// per region would be wasteful.
//
// A Resolver is owned by exactly one aggregation pass. It is not safe for
// concurrent use; concurrent passes over different projects each get their
// own instance.
type Resolver struct {
	markers []string
	cache   map[string]int
}

// NewResolver creates a Resolver with the given test-section markers.
// A line containing any marker as a substring opens the test section.
func NewResolver(markers []string) *Resolver {
	return &Resolver{
		markers: append([]string(nil), markers...),
		cache:   make(map[string]int),
	}
}

// Resolve returns the boundary for the given file: the number of lines
// strictly before the first marker line, or the file's total line count
// when no marker is present (the whole file is production code).
func (r *Resolver) Resolve(path string) (int, error) {
	if n, ok := r.cache[path]; ok {
		return n, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open source file %s: %w", path, err)
	}
	defer f.Close()

	boundary := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if r.isMarkerLine(scanner.Text()) {
			break
		}
		boundary++
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("failed to scan source file %s: %w", path, err)
	}

	r.cache[path] = boundary
	return boundary, nil
}

func (r *Resolver) isMarkerLine(line string) bool {
	for _, m := range r.markers {
		if strings.Contains(line, m) {
			return true
		}
	}
	return false
}

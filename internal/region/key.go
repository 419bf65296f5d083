// Package region turns raw coverage exports into canonical, filtered
// region records keyed by a stable identity.
package region

import (
	"fmt"
	"strconv"
	"strings"
)

// Key is the canonical identity of a coverage region. Two raw regions with
// the same key denote the same source construct and are merged, never
// duplicated. Keys are stable across process restarts.
type Key struct {
	File      string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
	Kind      int
}

// String renders the key in its persisted composite form:
// file/startLine/startCol/endLine/endCol/kind.
func (k Key) String() string {
	return fmt.Sprintf("%s/%d/%d/%d/%d/%d",
		k.File, k.StartLine, k.StartCol, k.EndLine, k.EndCol, k.Kind)
}

// Lines is the number of source lines the region spans.
func (k Key) Lines() int {
	return k.EndLine - k.StartLine + 1
}

// ParseKey parses the composite string form back into a Key. File paths
// contain slashes, so the numeric components are split off from the right.
func ParseKey(s string) (Key, error) {
	parts := strings.Split(s, "/")
	if len(parts) < 6 {
		return Key{}, fmt.Errorf("failed to parse region key %q: too few components", s)
	}

	nums := parts[len(parts)-5:]
	vals := make([]int, 5)
	for i, p := range nums {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Key{}, fmt.Errorf("failed to parse region key %q: %w", s, err)
		}
		vals[i] = n
	}

	return Key{
		File:      strings.Join(parts[:len(parts)-5], "/"),
		StartLine: vals[0],
		StartCol:  vals[1],
		EndLine:   vals[2],
		EndCol:    vals[3],
		Kind:      vals[4],
	}, nil
}

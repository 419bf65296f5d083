package region

import (
	"path/filepath"
	"strings"

	"github.com/zjy-dev/covmerge/internal/boundary"
	"github.com/zjy-dev/covmerge/internal/export"
	"github.com/zjy-dev/covmerge/internal/logger"
)

// Hit is one normalized region observation: a canonical key plus the
// execution count reported by a single run.
type Hit struct {
	Key   Key
	Count uint64
}

// Normalizer converts raw exports into filtered Hit sequences for one
// project. It owns no state beyond the project root and the per-pass
// boundary resolver, so normalization is restartable.
type Normalizer struct {
	root     string
	resolver *boundary.Resolver
}

// NewNormalizer creates a Normalizer for the given project root.
func NewNormalizer(root string, resolver *boundary.Resolver) *Normalizer {
	return &Normalizer{root: filepath.Clean(root), resolver: resolver}
}

// Normalize filters and keys every function record in the export.
//
// Functions whose file lies outside the project root are skipped: coverage
// belonging to dependencies or the standard library never enters the
// aggregate. If any region of a function ends past its file's production
// boundary, the function's entire region set is discarded, so partially
// instrumented functions cannot corrupt the aggregate counts.
//
// An unreadable source file is a hard error; the caller treats it as fatal
// for the aggregation pass.
func (n *Normalizer) Normalize(exp *export.Export) ([]Hit, error) {
	var hits []Hit
	for _, fn := range exp.Functions {
		if !n.underRoot(fn.File) {
			logger.Debug("skipping %s: file %s outside project root %s", fn.Name, fn.File, n.root)
			continue
		}

		bound, err := n.resolver.Resolve(fn.File)
		if err != nil {
			return nil, err
		}

		if exceeds(fn.Regions, bound) {
			logger.Debug("discarding %s: region past production boundary %d of %s",
				fn.Name, bound, fn.File)
			continue
		}

		for _, reg := range fn.Regions {
			hits = append(hits, Hit{
				Key: Key{
					File:      fn.File,
					StartLine: reg.StartLine,
					StartCol:  reg.StartCol,
					EndLine:   reg.EndLine,
					EndCol:    reg.EndCol,
					Kind:      reg.Kind,
				},
				Count: reg.Count,
			})
		}
	}
	return hits, nil
}

func exceeds(regions []export.Region, bound int) bool {
	for _, reg := range regions {
		if reg.EndLine > bound {
			return true
		}
	}
	return false
}

func (n *Normalizer) underRoot(path string) bool {
	clean := filepath.Clean(path)
	return clean == n.root || strings.HasPrefix(clean, n.root+string(filepath.Separator))
}

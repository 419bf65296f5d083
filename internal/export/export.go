// Package export models the raw per-execution coverage export produced by
// the profiling toolchain (llvm-cov JSON export format).
package export

import (
	"crypto/sha256"
	"encoding/hex"
)

// Region is one raw coverage record: a source span with an execution count.
// Kind discriminates ordinary code regions from expansion/gap/skipped
// regions reported by the instrumentation.
type Region struct {
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
	Kind      int
	Count     uint64
}

// Function is one per-function record from a raw export. A function is
// always associated with exactly one source file.
type Function struct {
	Name    string
	File    string
	Regions []Region
}

// Export is the parsed raw coverage export for a single execution.
type Export struct {
	// Digest identifies the export content. Two identical exports carry
	// the same digest; the aggregate store uses it to keep repeated
	// merges of the same execution from double counting.
	Digest string

	Functions []Function
}

// NewDigest computes the content digest for a raw export document.
func NewDigest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

package region

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjy-dev/covmerge/internal/boundary"
	"github.com/zjy-dev/covmerge/internal/export"
)

var testMarkers = []string{"#[cfg(test)]", "mod tests"}

// writeCrate creates a project root containing src/lib.rs with ten lines
// and a test marker on line 7, so the production boundary is 6.
func writeCrate(t *testing.T) (root, libPath string) {
	t.Helper()
	root = t.TempDir()
	srcDir := filepath.Join(root, "src")
	require.NoError(t, os.MkdirAll(srcDir, 0755))

	libPath = filepath.Join(srcDir, "lib.rs")
	content := "pub fn add(a: u32, b: u32) -> u32 {\n" + // 1
		"    a + b\n" + // 2
		"}\n" + // 3
		"pub fn sub(a: u32, b: u32) -> u32 {\n" + // 4
		"    a - b\n" + // 5
		"}\n" + // 6
		"#[cfg(test)]\n" + // 7
		"mod tests {\n" + // 8
		"    use super::*;\n" + // 9
		"}\n" // 10
	require.NoError(t, os.WriteFile(libPath, []byte(content), 0644))
	return root, libPath
}

func newNormalizer(root string) *Normalizer {
	return NewNormalizer(root, boundary.NewResolver(testMarkers))
}

func TestNormalize(t *testing.T) {
	t.Run("emits keyed hits for in-bounds regions", func(t *testing.T) {
		root, lib := writeCrate(t)
		n := newNormalizer(root)

		exp := &export.Export{Functions: []export.Function{{
			Name: "add",
			File: lib,
			Regions: []export.Region{
				{StartLine: 2, StartCol: 1, EndLine: 5, EndCol: 2, Count: 3},
			},
		}}}

		hits, err := n.Normalize(exp)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, Key{File: lib, StartLine: 2, StartCol: 1, EndLine: 5, EndCol: 2}, hits[0].Key)
		assert.Equal(t, uint64(3), hits[0].Count)
	})

	t.Run("discards the whole function when any region passes the boundary", func(t *testing.T) {
		root, lib := writeCrate(t)
		n := newNormalizer(root)

		// Boundary is 6: the [8,9] region drags the in-bounds [2,5]
		// region down with it.
		exp := &export.Export{Functions: []export.Function{{
			Name: "add",
			File: lib,
			Regions: []export.Region{
				{StartLine: 2, StartCol: 1, EndLine: 5, EndCol: 2, Count: 3},
				{StartLine: 8, StartCol: 1, EndLine: 9, EndCol: 2, Count: 1},
			},
		}}}

		hits, err := n.Normalize(exp)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("keeps other functions when one is discarded", func(t *testing.T) {
		root, lib := writeCrate(t)
		n := newNormalizer(root)

		exp := &export.Export{Functions: []export.Function{
			{
				Name: "generated_test",
				File: lib,
				Regions: []export.Region{
					{StartLine: 8, StartCol: 1, EndLine: 9, EndCol: 2, Count: 7},
				},
			},
			{
				Name: "sub",
				File: lib,
				Regions: []export.Region{
					{StartLine: 4, StartCol: 1, EndLine: 6, EndCol: 2, Count: 0},
				},
			},
		}}

		hits, err := n.Normalize(exp)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, 4, hits[0].Key.StartLine)
	})

	t.Run("filters files outside the project root", func(t *testing.T) {
		root, _ := writeCrate(t)
		n := newNormalizer(root)

		exp := &export.Export{Functions: []export.Function{{
			Name: "core_fmt",
			File: "/rustc/lib/core/src/fmt/mod.rs",
			Regions: []export.Region{
				{StartLine: 1, StartCol: 1, EndLine: 2, EndCol: 2, Count: 9},
			},
		}}}

		hits, err := n.Normalize(exp)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("does not treat sibling path prefixes as under root", func(t *testing.T) {
		root, _ := writeCrate(t)
		n := newNormalizer(root)

		exp := &export.Export{Functions: []export.Function{{
			Name: "evil",
			File: root + "-other/src/lib.rs",
			Regions: []export.Region{
				{StartLine: 1, StartCol: 1, EndLine: 1, EndCol: 2, Count: 1},
			},
		}}}

		hits, err := n.Normalize(exp)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("unreadable source file is fatal", func(t *testing.T) {
		root, _ := writeCrate(t)
		n := newNormalizer(root)

		exp := &export.Export{Functions: []export.Function{{
			Name: "ghost",
			File: filepath.Join(root, "src", "missing.rs"),
			Regions: []export.Region{
				{StartLine: 1, StartCol: 1, EndLine: 1, EndCol: 2, Count: 1},
			},
		}}}

		_, err := n.Normalize(exp)
		assert.Error(t, err)
	})

	t.Run("empty export yields no hits", func(t *testing.T) {
		root, _ := writeCrate(t)
		n := newNormalizer(root)

		hits, err := n.Normalize(&export.Export{})
		require.NoError(t, err)
		assert.Empty(t, hits)
	})
}

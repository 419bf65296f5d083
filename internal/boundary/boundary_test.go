package boundary

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testMarkers = []string{"#[cfg(test)]", "mod tests"}

func writeSource(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lib.rs")
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestResolve(t *testing.T) {
	t.Run("marker at line M returns M-1", func(t *testing.T) {
		// 10 lines, marker on line 7
		path := writeSource(t,
			"pub fn add(a: u32, b: u32) -> u32 {", // 1
			"    a + b",                           // 2
			"}",                                   // 3
			"pub fn sub(a: u32, b: u32) -> u32 {", // 4
			"    a - b",                           // 5
			"}",                                   // 6
			"#[cfg(test)]",                        // 7
			"mod tests {",                         // 8
			"    use super::*;",                   // 9
			"}",                                   // 10
		)

		r := NewResolver(testMarkers)
		n, err := r.Resolve(path)
		require.NoError(t, err)
		assert.Equal(t, 6, n)
	})

	t.Run("no marker returns total line count", func(t *testing.T) {
		path := writeSource(t,
			"pub fn add(a: u32, b: u32) -> u32 {",
			"    a + b",
			"}",
		)

		r := NewResolver(testMarkers)
		n, err := r.Resolve(path)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("marker on first line returns zero", func(t *testing.T) {
		path := writeSource(t, "#[cfg(test)]", "mod tests {}")

		r := NewResolver(testMarkers)
		n, err := r.Resolve(path)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("matches marker as substring", func(t *testing.T) {
		path := writeSource(t,
			"pub fn id(x: u8) -> u8 { x }",
			"pub mod testsuite {}", // contains "mod tests"
		)

		r := NewResolver(testMarkers)
		n, err := r.Resolve(path)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("only the first marker counts", func(t *testing.T) {
		path := writeSource(t,
			"pub fn add() {}",
			"#[cfg(test)]",
			"mod tests {",
			"    #[cfg(test)]",
			"}",
		)

		r := NewResolver(testMarkers)
		n, err := r.Resolve(path)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("empty file returns zero", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.rs")
		require.NoError(t, os.WriteFile(path, nil, 0644))

		r := NewResolver(testMarkers)
		n, err := r.Resolve(path)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("unreadable file returns error", func(t *testing.T) {
		r := NewResolver(testMarkers)
		_, err := r.Resolve(filepath.Join(t.TempDir(), "missing.rs"))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to open source file")
	})

	t.Run("caches results per path", func(t *testing.T) {
		path := writeSource(t, "pub fn f() {}", "#[cfg(test)]", "mod tests {}")

		r := NewResolver(testMarkers)
		n, err := r.Resolve(path)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		// Rewrite the file; the cached boundary must still be served.
		require.NoError(t, os.WriteFile(path, []byte("x\ny\nz\n"), 0644))
		n, err = r.Resolve(path)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("custom markers", func(t *testing.T) {
		path := writeSource(t,
			"int add(int a, int b) { return a + b; }",
			"// === generated harness below ===",
			"int main() { return 0; }",
		)

		r := NewResolver([]string{"generated harness"})
		n, err := r.Resolve(path)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}

package runner

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjy-dev/covmerge/internal/exec"
)

const exportDoc = `{
	"type": "llvm.coverage.json.export",
	"data": [{
		"functions": [{
			"name": "add",
			"regions": [[2, 1, 5, 2, 3, 0, 0, 0]],
			"filenames": ["/work/crate/src/lib.rs"]
		}]
	}]
}`

// scriptedExecutor fakes the profiling toolchain: running the target
// writes the profile artifact named in LLVM_PROFILE_FILE, llvm-profdata
// writes its output file, llvm-cov prints the export document.
type scriptedExecutor struct {
	targetExit  int
	mergeExit   int
	exportExit  int
	skipProfile bool
	commands    []exec.Command
}

func (s *scriptedExecutor) Run(_ context.Context, c exec.Command) (*exec.ExecutionResult, error) {
	s.commands = append(s.commands, c)

	switch {
	case strings.HasSuffix(c.Path, "llvm-profdata"):
		if s.mergeExit == 0 {
			out := c.Args[len(c.Args)-1]
			if err := os.WriteFile(out, []byte("profdata"), 0644); err != nil {
				return nil, err
			}
		}
		return &exec.ExecutionResult{ExitCode: s.mergeExit}, nil
	case strings.HasSuffix(c.Path, "llvm-cov"):
		return &exec.ExecutionResult{Stdout: exportDoc, ExitCode: s.exportExit}, nil
	default: // the target binary
		if !s.skipProfile {
			for _, kv := range c.Env {
				if profile, ok := strings.CutPrefix(kv, "LLVM_PROFILE_FILE="); ok {
					if err := os.WriteFile(profile, []byte("profraw"), 0644); err != nil {
						return nil, err
					}
				}
			}
		}
		return &exec.ExecutionResult{ExitCode: s.targetExit}, nil
	}
}

func newProducer(t *testing.T, executor exec.Executor) *LLVMProducer {
	return NewLLVMProducer(executor, "llvm-profdata", "llvm-cov", t.TempDir(), 2*time.Minute)
}

func TestLLVMProducer(t *testing.T) {
	t.Run("produces a parsed export with an isolated profile", func(t *testing.T) {
		executor := &scriptedExecutor{}
		p := newProducer(t, executor)

		exp, err := p.Produce(context.Background(), "/bin/crate_test")
		require.NoError(t, err)
		require.Len(t, exp.Functions, 1)
		assert.Equal(t, "add", exp.Functions[0].Name)
		assert.NotEmpty(t, exp.Digest)

		// Target run carries its own LLVM_PROFILE_FILE artifact.
		require.Len(t, executor.commands, 3)
		targetCmd := executor.commands[0]
		assert.Equal(t, "/bin/crate_test", targetCmd.Path)
		require.Len(t, targetCmd.Env, 1)
		assert.Contains(t, targetCmd.Env[0], "LLVM_PROFILE_FILE=")
		assert.Contains(t, targetCmd.Env[0], ".profraw")
	})

	t.Run("distinct runs use distinct profile artifacts", func(t *testing.T) {
		executor := &scriptedExecutor{}
		p := newProducer(t, executor)

		_, err := p.Produce(context.Background(), "/bin/crate_test")
		require.NoError(t, err)
		_, err = p.Produce(context.Background(), "/bin/crate_test")
		require.NoError(t, err)

		first := executor.commands[0].Env[0]
		second := executor.commands[3].Env[0]
		assert.NotEqual(t, first, second)
	})

	t.Run("failing tests still produce an export", func(t *testing.T) {
		executor := &scriptedExecutor{targetExit: 101}
		p := newProducer(t, executor)

		exp, err := p.Produce(context.Background(), "/bin/crate_test")
		require.NoError(t, err)
		assert.Len(t, exp.Functions, 1)
	})

	t.Run("missing profile is unavailable", func(t *testing.T) {
		executor := &scriptedExecutor{skipProfile: true}
		p := newProducer(t, executor)

		_, err := p.Produce(context.Background(), "/bin/crate_test")
		assert.ErrorIs(t, err, ErrExportUnavailable)
	})

	t.Run("profdata failure is unavailable", func(t *testing.T) {
		executor := &scriptedExecutor{mergeExit: 1}
		p := newProducer(t, executor)

		_, err := p.Produce(context.Background(), "/bin/crate_test")
		assert.ErrorIs(t, err, ErrExportUnavailable)
	})

	t.Run("export failure is unavailable", func(t *testing.T) {
		executor := &scriptedExecutor{exportExit: 1}
		p := newProducer(t, executor)

		_, err := p.Produce(context.Background(), "/bin/crate_test")
		assert.ErrorIs(t, err, ErrExportUnavailable)
	})

	t.Run("executor failure is unavailable", func(t *testing.T) {
		p := newProducer(t, failingExecutor{})

		_, err := p.Produce(context.Background(), "/bin/crate_test")
		assert.ErrorIs(t, err, ErrExportUnavailable)
	})
}

type failingExecutor struct{}

func (failingExecutor) Run(context.Context, exec.Command) (*exec.ExecutionResult, error) {
	return nil, fmt.Errorf("executable not found")
}

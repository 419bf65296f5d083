package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zjy-dev/covmerge/internal/exec"
	"github.com/zjy-dev/covmerge/internal/export"
	"github.com/zjy-dev/covmerge/internal/logger"
)

// LLVMProducer produces raw coverage exports by running an instrumented
// binary with an isolated profile artifact, then indexing and exporting it
// through llvm-profdata and llvm-cov. Every execution writes its own
// .profraw, so exports from different target runs never clobber each other.
type LLVMProducer struct {
	executor exec.Executor
	profdata string // llvm-profdata path
	cov      string // llvm-cov path
	workDir  string // where profile artifacts are written
	timeout  time.Duration
}

// NewLLVMProducer creates a producer using the given toolchain paths.
func NewLLVMProducer(executor exec.Executor, profdata, cov, workDir string, timeout time.Duration) *LLVMProducer {
	return &LLVMProducer{
		executor: executor,
		profdata: profdata,
		cov:      cov,
		workDir:  workDir,
		timeout:  timeout,
	}
}

// Produce runs one target under the profiler and returns its parsed
// export. All failures are reported as ErrExportUnavailable: a broken or
// hanging run costs only that run, never the pass. A timed-out execution
// still yields whatever profile data was flushed, falling back to an
// unavailable export when indexing fails.
func (p *LLVMProducer) Produce(ctx context.Context, target string) (*export.Export, error) {
	if err := os.MkdirAll(p.workDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: failed to create work directory: %v", ErrExportUnavailable, err)
	}

	base := fmt.Sprintf("%s-%d", filepath.Base(target), time.Now().UnixNano())
	profraw := filepath.Join(p.workDir, base+".profraw")
	profdata := filepath.Join(p.workDir, base+".profdata")
	defer os.Remove(profraw)
	defer os.Remove(profdata)

	// The run itself is the only long-blocking operation; bound it hard.
	runCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	result, err := p.executor.Run(runCtx, exec.Command{
		Path: target,
		Env:  []string{"LLVM_PROFILE_FILE=" + profraw},
	})
	if err != nil {
		if runCtx.Err() != nil {
			logger.Warn("target %s timed out after %s", filepath.Base(target), p.timeout)
		} else {
			return nil, fmt.Errorf("%w: failed to run target: %v", ErrExportUnavailable, err)
		}
	} else if result.ExitCode != 0 {
		// Failing tests still flush profile data; keep going.
		logger.Debug("target %s exited with code %d", filepath.Base(target), result.ExitCode)
	}

	if _, err := os.Stat(profraw); err != nil {
		return nil, fmt.Errorf("%w: no profile written for %s", ErrExportUnavailable, target)
	}

	mergeResult, err := p.executor.Run(ctx, exec.Command{
		Path: p.profdata,
		Args: []string{"merge", "-sparse", profraw, "-o", profdata},
	})
	if err != nil || mergeResult.ExitCode != 0 {
		return nil, fmt.Errorf("%w: llvm-profdata merge failed for %s", ErrExportUnavailable, target)
	}

	exportResult, err := p.executor.Run(ctx, exec.Command{
		Path: p.cov,
		Args: []string{"export", "--instr-profile", profdata, target},
	})
	if err != nil || exportResult.ExitCode != 0 {
		return nil, fmt.Errorf("%w: llvm-cov export failed for %s", ErrExportUnavailable, target)
	}

	exp, err := export.Parse([]byte(exportResult.Stdout))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExportUnavailable, err)
	}
	return exp, nil
}

package interp

import (
	"os"
	"sync"

	"github.com/rockorager/rz/internal/ast"
	"github.com/rockorager/rz/internal/fdtable"
	"github.com/rockorager/rz/internal/invariant"
)

// flattenPipe unrolls a left-nested CmdPipe chain (A | B | C parses as
// pipe(pipe(A,B),C)) into stage order.
func flattenPipe(c ast.Command) []ast.Command {
	if c.Kind != ast.CmdPipe {
		return []ast.Command{c}
	}
	return append(flattenPipe(*c.LHS), flattenPipe(*c.RHS)...)
}

// execPipe runs a pipeline's stages concurrently, connecting each stage's
// stdout to the next stage's stdin through an OS pipe (spec.md §4.5),
// grounded in the teacher's executePipelineIO
// (runtime/executor/pipeline_runner.go): one goroutine per stage, a
// WaitGroup barrier, and the last stage's exit code as the pipeline's
// status (the concrete choice spec.md §9 leaves open).
func (it *Interpreter) execPipe(c ast.Command) int {
	stages := flattenPipe(c)
	invariant.Precondition(len(stages) > 0, "pipeline has no stages")

	readers := make([]*os.File, len(stages))
	writers := make([]*os.File, len(stages))
	for i := 0; i < len(stages)-1; i++ {
		r, w, err := fdtable.Pipe()
		if err != nil {
			it.Logger.Warn("pipeline: create pipe failed", "err", err)
			return 1
		}
		readers[i+1] = r
		writers[i] = w
	}

	var wg sync.WaitGroup
	codes := make([]int, len(stages))
	for i, stage := range stages {
		stage := stage
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			stageInterp := it.withStreams(readers[i], writers[i])
			codes[i] = stageInterp.execPipeStage(stage)
			if readers[i] != nil {
				_ = readers[i].Close()
			}
			if writers[i] != nil {
				_ = writers[i].Close()
			}
		}()
	}
	wg.Wait()

	return codes[len(codes)-1]
}

// execPipeStage runs a single pipeline stage command against an
// Interpreter whose stdin/stdout are already the pipe ends execPipe wired
// up, reusing the normal dispatch path (so a stage can itself be a group,
// an assignment-prefixed simple command, or anything else execCommand
// handles).
func (it *Interpreter) execPipeStage(c ast.Command) int {
	code, _ := it.execCommand(c)
	return code
}

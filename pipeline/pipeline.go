package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/romanqed/pipeteer"
)

// Inputtable is anything a workflow can call: it declares the input
// queue a caller pushes a Routed value into so the callee knows where
// to post its eventual result. Activity, Workflow and Remote implement
// it; Task does not, since a task's artifact (e.g. an HTTP server) is
// never invoked by WorkflowContext.Call the way a request/response
// pipeline is.
type Inputtable[A, B any] interface {
	ID() string
	Input(ctx context.Context, pctx *Context) (pipeteer.WriteQueue[pipeteer.Routed[A]], error)
}

// Runnable is a node the launcher can start: it contributes one or
// more leaves to the artifact tree built by Run. Activity and Workflow
// implement it, each contributing a single leaf. Task and MultiTask do
// not: their Run takes an output queue and returns one artifact rather
// than an ArtifactTree.
type Runnable interface {
	Name() string
	Run(ctx context.Context, pctx *Context) (ArtifactTree, error)
}

// Process is a leaf unit of work: a blocking loop that runs until ctx
// is cancelled or it fails unrecoverably. Activity and Workflow worker
// loops are Processes; RunAll starts and joins every leaf of a tree.
type Process func(ctx context.Context) error

// ArtifactTree is a nested map from component name to either a Process
// (leaf) or another ArtifactTree, mirroring the original's
// dict-of-dicts "Tree[Artifact]". A leaf need not be a Process: a Task
// may contribute any artifact type (an http.Handler, for example), in
// which case a custom Executor is required to turn it into a Process.
type ArtifactTree map[string]any

// Executor converts one artifact tree leaf, addressed by its full path
// from the tree root, into a startable Process. DefaultExecutor
// handles the common case where the leaf already is a Process.
type Executor func(path []string, artifact any) (Process, error)

// DefaultExecutor asserts artifact is already a Process, which holds
// for every Activity and Workflow leaf this package builds. A Task
// whose call returns a non-Process artifact needs a custom Executor
// passed to RunAll.
func DefaultExecutor(path []string, artifact any) (Process, error) {
	if p, ok := artifact.(Process); ok {
		return p, nil
	}
	return nil, fmt.Errorf("pipeline: no executor for artifact %T at %v", artifact, path)
}

type leaf struct {
	path []string
	node any
}

func flatten(tree ArtifactTree) []leaf {
	var out []leaf
	var walk func(path []string, node any)
	walk = func(path []string, node any) {
		if sub, ok := node.(ArtifactTree); ok {
			for name, child := range sub {
				walk(append(append([]string{}, path...), name), child)
			}
			return
		}
		out = append(out, leaf{path: path, node: node})
	}
	for name, child := range tree {
		walk([]string{name}, child)
	}
	return out
}

// RunAll starts every leaf of tree as an independent goroutine, logs
// its start/stop, and blocks until all of them have returned (normally
// via ctx cancellation); a done ctx alone does not make it return. Errors
// returned by leaves are joined and returned once every leaf has
// stopped; RunAll itself never returns early just because one leaf
// failed, matching the original's "start all, then join all".
func RunAll(ctx context.Context, tree ArtifactTree, executor Executor, log *slog.Logger) error {
	if executor == nil {
		executor = DefaultExecutor
	}
	if log == nil {
		log = slog.Default()
	}
	leaves := flatten(tree)
	procs := make([]Process, 0, len(leaves))
	names := make([]string, 0, len(leaves))
	for _, l := range leaves {
		proc, err := executor(l.path, l.node)
		if err != nil {
			return err
		}
		procs = append(procs, proc)
		names = append(names, joinPath(l.path))
	}

	var wg sync.WaitGroup
	errs := make([]error, len(procs))
	for i := range procs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			log.Info("starting", "component", names[i])
			err := procs[i](ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Error("stopped", "component", names[i], "error", err)
				errs[i] = fmt.Errorf("%s: %w", names[i], err)
				return
			}
			log.Info("stopped", "component", names[i])
		}(i)
	}
	wg.Wait()
	return errors.Join(errs...)
}

func joinPath(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "/"
		}
		out += p
	}
	return out
}

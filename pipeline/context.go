// Package pipeline composes queues into runnable pipelines: activities,
// tasks, workflows, and the runner that turns a pipeline's declared
// graph into a tree of worker loops.
package pipeline

import (
	"context"
	"log/slog"
	"strings"

	"github.com/romanqed/pipeteer"
)

// Context is the environment every pipeline runs against: the backend
// its own queues are created on, an optional remote backend used to
// resolve http(s) Routed URLs, a logger scoped per component, and the
// path prefix nested pipelines append themselves onto for that scoping.
//
// Context.Prefix does not affect storage paths (pipelines address their
// own queues by id alone, not by the caller's prefix, the way
// fn_workflow.py's WkfContext.call does); it only scopes the logger and
// names this pipeline's place in the runner's artifact tree.
type Context struct {
	Backend pipeteer.Backend
	Remote  pipeteer.Backend
	Log     *slog.Logger
	Prefix  pipeteer.Path
}

// NewContext builds a root Context. If log is nil, slog.Default() is
// used.
func NewContext(backend pipeteer.Backend, log *slog.Logger) *Context {
	if log == nil {
		log = slog.Default()
	}
	return &Context{Backend: backend, Log: log}
}

// WithRemote returns a copy of c that resolves http(s) Routed URLs
// against remote, pairing a local storage backend with queue/httpqueue
// for cross-process activity/workflow calls.
func (c *Context) WithRemote(remote pipeteer.Backend) *Context {
	clone := *c
	clone.Remote = remote
	return &clone
}

// Child returns a copy of c scoped under name: the path prefix grows by
// name and the logger gains a "component" field, mirroring the
// original's Context.prefix.
func (c *Context) Child(name string) *Context {
	clone := *c
	clone.Prefix = append(append(pipeteer.Path{}, c.Prefix...), name)
	clone.Log = c.Log.With("component", pipeteer.JoinPath(clone.Prefix))
	return &clone
}

// QueueAt resolves url against the backend matching its scheme:
// local:// URLs are resolved by Backend, http(s):// URLs by Remote.
func (c *Context) QueueAt(ctx context.Context, url string) (pipeteer.RawQueue, error) {
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		if c.Remote == nil {
			return nil, pipeteer.NewQueueError("pipeline: context has no remote backend to resolve %q", url)
		}
		return c.Remote.QueueAt(ctx, url)
	}
	return c.Backend.QueueAt(ctx, url)
}

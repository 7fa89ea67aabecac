package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/romanqed/pipeteer"
)

// stopSignal is the internal suspension marker: a workflow coordinator
// returns it (wrapped, via Call/All) from WorkflowFunc to mean "progress
// has been enqueued, persist what we have and stop here", never a
// user-visible failure. It stands in for the source's Stop exception
// and for the explicit Done/Suspended result the design notes allow;
// returning it as an ordinary error lets every nested Call site bail
// out with a plain "if err != nil { return zero, err }", the same shape
// as any other fallible step.
var stopSignal = errors.New("pipeline: workflow step suspended")

// IsStop reports whether err is the suspension marker.
func IsStop(err error) bool {
	return errors.Is(err, stopSignal)
}

// WorkflowFunc is a durable coordinator: it may call wc.Call (or build
// an Awaitable with pipeline.Thunk and pass it to wc.All) any number of
// times. A call that has not yet resolved returns IsStop(err); the
// coordinator must propagate that error unchanged, not swallow it.
type WorkflowFunc[A, B any] func(ctx context.Context, x A, wc *WorkflowContext) (B, error)

// WorkflowContext carries one replay attempt's state: the persisted
// history (states), the cursor into it (step), and enough of Context to
// resolve the queues Call pushes into.
type WorkflowContext struct {
	*Context
	states      []json.RawMessage
	key         string
	callbackURL string
	step        int
}

// Call invokes pipe with x. On replay, if this step already has a
// persisted result it is decoded and returned with no side effects;
// otherwise x is enqueued as a Routed value addressed back at this
// workflow's results queue and Call returns the suspension marker.
func Call[A, B any](ctx context.Context, wc *WorkflowContext, pipe Inputtable[A, B], x A) (B, error) {
	var zero B
	wc.step++
	if wc.step < len(wc.states) {
		var out B
		if err := json.Unmarshal(wc.states[wc.step], &out); err != nil {
			return zero, pipeteer.WrapInfra(fmt.Errorf("decode replayed state at step %d: %w", wc.step, err))
		}
		return out, nil
	}
	qin, err := pipe.Input(ctx, wc.Context)
	if err != nil {
		return zero, err
	}
	wc.Log.Debug("calling", "pipe", pipe.ID(), "step", wc.step, "key", wc.key)
	key := fmt.Sprintf("%d_%s", wc.step, wc.key)
	if err := qin.Push(ctx, key, pipeteer.Routed[A]{URL: wc.callbackURL, Value: x}); err != nil {
		return zero, err
	}
	return zero, stopSignal
}

// Awaitable is one deferred sub-call prepared by Thunk: replay decodes
// an already-persisted result directly into the bound output variable;
// invoke performs the live Call (enqueuing work) and stores its result.
type Awaitable struct {
	replay func(raw json.RawMessage) error
	invoke func() error
}

// Thunk defers a call to pipe(x), storing its eventual result in *out,
// for use with All. The call itself does not happen until All decides
// this round needs it: on a replay where every sub-call already has a
// recorded result, None of the underlying thunks run.
func Thunk[A, B any](ctx context.Context, wc *WorkflowContext, pipe Inputtable[A, B], x A, out *B) Awaitable {
	return Awaitable{
		replay: func(raw json.RawMessage) error {
			return json.Unmarshal(raw, out)
		},
		invoke: func() error {
			y, err := Call(ctx, wc, pipe, x)
			if err != nil {
				return err
			}
			*out = y
			return nil
		},
	}
}

// All runs n deferred sub-calls together. If every one of their results
// is already in the persisted history, it decodes them all directly
// (advancing the cursor by n, invoking no thunk, so no sub-call is
// re-enqueued). If none of them has a result yet, every thunk is
// invoked once, so each one enqueues its own work, and All suspends. If
// only some have results, no thunk is invoked and All suspends as well:
// a partially-resolved round is not returned to the caller, matching the
// source's documented all-or-nothing suspension.
func All(wc *WorkflowContext, thunks ...Awaitable) error {
	n := len(thunks)
	if wc.step+n < len(wc.states) {
		prev := wc.step + 1
		wc.step += n
		for i, t := range thunks {
			if err := t.replay(wc.states[prev+i]); err != nil {
				return pipeteer.WrapInfra(fmt.Errorf("decode replayed state at step %d: %w", prev+i, err))
			}
		}
		return nil
	}
	if wc.step+1 == len(wc.states) {
		for _, t := range thunks {
			if err := t.invoke(); err != nil && !IsStop(err) {
				return err
			}
		}
	}
	return stopSignal
}

// Workflow is a durable coordinator over a deterministic user function.
// Its worker loop multiplexes two queues: Qin (new instances) and
// Qresults (sub-call completions), replaying the coordinator from
// persisted history on every step until it returns without suspending.
type Workflow[A, B any] struct {
	id   string
	call WorkflowFunc[A, B]
}

// NewWorkflow builds a Workflow. id names its input queue and the
// prefix of every queue it owns (states, urls, results).
func NewWorkflow[A, B any](id string, call WorkflowFunc[A, B]) *Workflow[A, B] {
	return &Workflow[A, B]{id: id, call: call}
}

func (w *Workflow[A, B]) ID() string   { return w.id }
func (w *Workflow[A, B]) Name() string { return w.id }

func (w *Workflow[A, B]) inputQueue(ctx context.Context, pctx *Context) (pipeteer.Queue[pipeteer.Routed[A]], error) {
	raw, err := pctx.Backend.Queue(ctx, pipeteer.Path{w.id})
	if err != nil {
		return nil, err
	}
	return pipeteer.QueueOf[pipeteer.Routed[A]](raw), nil
}

// Input returns the workflow's external input queue: pushing a Routed
// value here starts a new instance, keyed by whatever key the caller
// chose.
func (w *Workflow[A, B]) Input(ctx context.Context, pctx *Context) (pipeteer.WriteQueue[pipeteer.Routed[A]], error) {
	return w.inputQueue(ctx, pctx)
}

// Start pushes x as a new instance addressed to out (the caller's own
// output queue URL), generating a fresh key for it, and returns that
// key so the caller can later look its result up there. Use this when
// the caller has no natural instance key of its own, e.g. an HTTP Task
// accepting ad hoc submissions.
func (w *Workflow[A, B]) Start(ctx context.Context, pctx *Context, out string, x A) (string, error) {
	qin, err := w.Input(ctx, pctx)
	if err != nil {
		return "", err
	}
	key := pipeteer.NewKey()
	if err := qin.Push(ctx, key, pipeteer.Routed[A]{URL: out, Value: x}); err != nil {
		return "", err
	}
	return key, nil
}

func (w *Workflow[A, B]) statesQueue(ctx context.Context, pctx *Context) (pipeteer.ListQueue[stateEntry], error) {
	raw, err := pctx.Backend.ListQueue(ctx, pipeteer.Path{w.id, pipeteer.StatesSuffix})
	if err != nil {
		return nil, err
	}
	return pipeteer.ListQueueOf[stateEntry](raw), nil
}

func (w *Workflow[A, B]) urlsQueue(ctx context.Context, pctx *Context) (pipeteer.Queue[string], error) {
	raw, err := pctx.Backend.Queue(ctx, pipeteer.Path{w.id, pipeteer.UrlsSuffix})
	if err != nil {
		return nil, err
	}
	return pipeteer.QueueOf[string](raw), nil
}

func (w *Workflow[A, B]) resultsQueue(ctx context.Context, pctx *Context) (pipeteer.Queue[json.RawMessage], error) {
	raw, err := pctx.Backend.Queue(ctx, pipeteer.Path{w.id, pipeteer.ResultsSuffix})
	if err != nil {
		return nil, err
	}
	return pipeteer.QueueOf[json.RawMessage](raw), nil
}

// resultsURL is the callback URL sub-pipelines use to reach this
// workflow's results queue, shared by every instance.
func (w *Workflow[A, B]) resultsURL() string {
	return pipeteer.LocalURL(pipeteer.Path{w.id, pipeteer.ResultsSuffix})
}

// Run builds the workflow's worker loop as a single-leaf ArtifactTree.
// A caller composing a larger pipeline graph is responsible for also
// running every sub-pipeline this coordinator calls; Workflow itself
// only owns its own queues.
func (w *Workflow[A, B]) Run(ctx context.Context, pctx *Context) (ArtifactTree, error) {
	qin, err := w.inputQueue(ctx, pctx)
	if err != nil {
		return nil, err
	}
	qstates, err := w.statesQueue(ctx, pctx)
	if err != nil {
		return nil, err
	}
	qurls, err := w.urlsQueue(ctx, pctx)
	if err != nil {
		return nil, err
	}
	qresults, err := w.resultsQueue(ctx, pctx)
	if err != nil {
		return nil, err
	}
	worker := &workflowWorker[A, B]{
		id:          w.id,
		call:        w.call,
		qin:         qin,
		qstates:     qstates,
		qurls:       qurls,
		qresults:    qresults,
		callbackURL: w.resultsURL(),
		pctx:        pctx.Child(w.id),
	}
	return ArtifactTree{w.id: Process(worker.run)}, nil
}

// stateEntry is one row of a workflow instance's persisted history: the
// step it resulted from, and the JSON-encoded value itself.
type stateEntry struct {
	Step  int             `json:"step"`
	Value json.RawMessage `json:"value"`
}

func sortedValues(entries []stateEntry) []json.RawMessage {
	sorted := make([]stateEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Step < sorted[j].Step })
	out := make([]json.RawMessage, len(sorted))
	for i, e := range sorted {
		out[i] = e.Value
	}
	return out
}

type workflowWorker[A, B any] struct {
	id          string
	call        WorkflowFunc[A, B]
	qin         pipeteer.Queue[pipeteer.Routed[A]]
	qstates     pipeteer.ListQueue[stateEntry]
	qurls       pipeteer.Queue[string]
	qresults    pipeteer.Queue[json.RawMessage]
	callbackURL string
	pctx        *Context
}

type inputArrival[A any] struct {
	key    string
	routed pipeteer.Routed[A]
	err    error
}

type resultArrival struct {
	idxKey string
	value  json.RawMessage
	err    error
}

func (w *workflowWorker[A, B]) run(ctx context.Context) error {
	log := w.pctx.Log
	inCh := make(chan inputArrival[A])
	resCh := make(chan resultArrival)
	go w.pollInput(ctx, inCh)
	go w.pollResults(ctx, resCh)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case item := <-inCh:
			if item.err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Error("error waiting for input", "error", item.err)
				continue
			}
			if err := w.onInput(ctx, item.key, item.routed); err != nil {
				log.Error("input loop error", "key", item.key, "error", err)
			}
		case item := <-resCh:
			if item.err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Error("error waiting for results", "error", item.err)
				continue
			}
			if err := w.onResult(ctx, item.idxKey, item.value); err != nil {
				log.Error("results loop error", "key", item.idxKey, "error", err)
			}
		}
	}
}

func (w *workflowWorker[A, B]) pollInput(ctx context.Context, out chan<- inputArrival[A]) {
	for ctx.Err() == nil {
		key, routed, err := w.qin.WaitAny(ctx, pipeteer.None)
		if ctx.Err() != nil {
			return
		}
		select {
		case out <- inputArrival[A]{key: key, routed: routed, err: err}:
		case <-ctx.Done():
			return
		}
	}
}

func (w *workflowWorker[A, B]) pollResults(ctx context.Context, out chan<- resultArrival) {
	for ctx.Err() == nil {
		key, value, err := w.qresults.WaitAny(ctx, pipeteer.None)
		if ctx.Err() != nil {
			return
		}
		select {
		case out <- resultArrival{idxKey: key, value: value, err: err}:
		case <-ctx.Done():
			return
		}
	}
}

// replay re-invokes the coordinator with the given history. states[0]
// is always the original input.
func (w *workflowWorker[A, B]) replay(ctx context.Context, key string, states []json.RawMessage) (B, error) {
	var x A
	if err := json.Unmarshal(states[0], &x); err != nil {
		var zero B
		return zero, pipeteer.WrapInfra(fmt.Errorf("decode workflow input: %w", err))
	}
	wc := &WorkflowContext{
		Context:     w.pctx,
		states:      states,
		key:         key,
		callbackURL: w.callbackURL,
	}
	w.pctx.Log.Debug("rerunning", "key", key, "steps", len(states))
	return w.call(ctx, x, wc)
}

// onInput handles a new instance arriving on Qin, per the "on new
// input" step of the replay protocol.
func (w *workflowWorker[A, B]) onInput(ctx context.Context, key string, routed pipeteer.Routed[A]) error {
	valueJSON, err := json.Marshal(routed.Value)
	if err != nil {
		return pipeteer.WrapInfra(fmt.Errorf("encode workflow input: %w", err))
	}
	out, err := w.replay(ctx, key, []json.RawMessage{valueJSON})
	if err != nil {
		if !IsStop(err) {
			return err
		}
		return w.pctx.Backend.Transact(ctx, func(ctx context.Context, tx pipeteer.Backend) error {
			rawQin, err := tx.Queue(ctx, pipeteer.Path{w.id})
			if err != nil {
				return err
			}
			rawQstates, err := tx.ListQueue(ctx, pipeteer.Path{w.id, pipeteer.StatesSuffix})
			if err != nil {
				return err
			}
			rawQurls, err := tx.Queue(ctx, pipeteer.Path{w.id, pipeteer.UrlsSuffix})
			if err != nil {
				return err
			}
			if err := rawQin.Pop(ctx, key); err != nil {
				return err
			}
			qstates := pipeteer.ListQueueOf[stateEntry](rawQstates)
			if err := qstates.Push(ctx, key, []stateEntry{{Step: 0, Value: valueJSON}}); err != nil {
				return err
			}
			return pipeteer.QueueOf[string](rawQurls).Push(ctx, key, routed.URL)
		})
	}

	outJSON, err := json.Marshal(out)
	if err != nil {
		return pipeteer.WrapInfra(fmt.Errorf("encode workflow output: %w", err))
	}
	var foreignPushed bool
	err = w.pctx.Backend.Transact(ctx, func(ctx context.Context, tx pipeteer.Backend) error {
		rawQin, err := tx.Queue(ctx, pipeteer.Path{w.id})
		if err != nil {
			return err
		}
		qout, foreign, err := w.pctx.resolveRouted(ctx, tx, routed.URL)
		if err != nil {
			return err
		}
		if err := qout.Push(ctx, key, outJSON); err != nil {
			return err
		}
		foreignPushed = foreign
		return rawQin.Pop(ctx, key)
	})
	if err != nil && foreignPushed {
		err = fmt.Errorf("%w: %w", pipeteer.ErrPartialCommit, err)
	}
	return err
}

// onResult handles a sub-call completion arriving on Qresults, keyed
// "<step>_<instance key>", per the "on result" step of the replay
// protocol.
func (w *workflowWorker[A, B]) onResult(ctx context.Context, idxKey string, value json.RawMessage) error {
	step, key, err := splitIdxKey(idxKey)
	if err != nil {
		return err
	}

	prior, err := w.qstates.Read(ctx, key, pipeteer.None)
	if err != nil {
		return err
	}
	entries := append(append([]stateEntry{}, prior...), stateEntry{Step: step, Value: value})
	states := sortedValues(entries)

	out, err := w.replay(ctx, key, states)
	if err != nil {
		if !IsStop(err) {
			return err
		}
		return w.pctx.Backend.Transact(ctx, func(ctx context.Context, tx pipeteer.Backend) error {
			rawQresults, err := tx.Queue(ctx, pipeteer.Path{w.id, pipeteer.ResultsSuffix})
			if err != nil {
				return err
			}
			rawQstates, err := tx.ListQueue(ctx, pipeteer.Path{w.id, pipeteer.StatesSuffix})
			if err != nil {
				return err
			}
			if err := rawQresults.Pop(ctx, idxKey); err != nil {
				return err
			}
			return pipeteer.ListQueueOf[stateEntry](rawQstates).Append(ctx, key, stateEntry{Step: step, Value: value})
		})
	}

	outJSON, err := json.Marshal(out)
	if err != nil {
		return pipeteer.WrapInfra(fmt.Errorf("encode workflow output: %w", err))
	}
	var foreignPushed bool
	err = w.pctx.Backend.Transact(ctx, func(ctx context.Context, tx pipeteer.Backend) error {
		rawQurls, err := tx.Queue(ctx, pipeteer.Path{w.id, pipeteer.UrlsSuffix})
		if err != nil {
			return err
		}
		rawQstates, err := tx.ListQueue(ctx, pipeteer.Path{w.id, pipeteer.StatesSuffix})
		if err != nil {
			return err
		}
		rawQresults, err := tx.Queue(ctx, pipeteer.Path{w.id, pipeteer.ResultsSuffix})
		if err != nil {
			return err
		}
		qurls := pipeteer.QueueOf[string](rawQurls)
		outURL, err := qurls.Read(ctx, key, pipeteer.None)
		if err != nil {
			return err
		}
		qout, foreign, err := w.pctx.resolveRouted(ctx, tx, outURL)
		if err != nil {
			return err
		}
		if err := qout.Push(ctx, key, outJSON); err != nil {
			return err
		}
		foreignPushed = foreign
		if err := qurls.Pop(ctx, key); err != nil {
			return err
		}
		if err := rawQstates.Pop(ctx, key); err != nil {
			return err
		}
		return rawQresults.Pop(ctx, idxKey)
	})
	if err != nil && foreignPushed {
		err = fmt.Errorf("%w: %w", pipeteer.ErrPartialCommit, err)
	}
	return err
}

func splitIdxKey(idxKey string) (step int, key string, err error) {
	for i := 0; i < len(idxKey); i++ {
		if idxKey[i] == '_' {
			if _, scanErr := fmt.Sscanf(idxKey[:i], "%d", &step); scanErr != nil {
				return 0, "", pipeteer.NewQueueError("pipeline: malformed results key %q", idxKey)
			}
			return step, idxKey[i+1:], nil
		}
	}
	return 0, "", pipeteer.NewQueueError("pipeline: malformed results key %q", idxKey)
}

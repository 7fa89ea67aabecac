package pipeline_test

import (
	"context"
	"testing"
	"time"

	"github.com/romanqed/pipeteer"
	"github.com/romanqed/pipeteer/pipeline"
)

// TestLinearWorkflow grounds scenario 1 of the spec's end-to-end test
// list: linear(x) = inc(double(x)), pushed with key "a" and x=3, must
// eventually produce 7 on the caller's output queue.
func TestLinearWorkflow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pctx := newTestContext(t)

	double := pipeline.NewActivity[int, int]("double", func(ctx context.Context, pctx *pipeline.Context, x int) (int, error) {
		return x * 2, nil
	}, pipeline.ActivityConfig{})
	inc := pipeline.NewActivity[int, int]("inc", func(ctx context.Context, pctx *pipeline.Context, x int) (int, error) {
		return x + 1, nil
	}, pipeline.ActivityConfig{})

	linear := pipeline.NewWorkflow[int, int]("linear", func(ctx context.Context, x int, wc *pipeline.WorkflowContext) (int, error) {
		doubled, err := pipeline.Call(ctx, wc, double, x)
		if err != nil {
			return 0, err
		}
		return pipeline.Call(ctx, wc, inc, doubled)
	})

	startWorker := func(r pipeline.Runnable) {
		tree, err := r.Run(ctx, pctx)
		if err != nil {
			t.Fatal(err)
		}
		proc, ok := tree[r.Name()].(pipeline.Process)
		if !ok {
			t.Fatalf("expected a Process leaf for %s, got %T", r.Name(), tree[r.Name()])
		}
		runInBackground(t, ctx, proc)
	}
	startWorker(double)
	startWorker(inc)
	startWorker(linear)

	qin, err := linear.Input(ctx, pctx)
	if err != nil {
		t.Fatal(err)
	}
	outURL := pipeteer.LocalURL(pipeteer.OutputPath)
	if err := qin.Push(ctx, "a", pipeteer.Routed[int]{URL: outURL, Value: 3}); err != nil {
		t.Fatal(err)
	}

	output, err := pctx.Backend.Output(ctx)
	if err != nil {
		t.Fatal(err)
	}
	out := pipeteer.QueueOf[int](output)

	waitFor(t, 5*time.Second, func() (bool, error) {
		return out.Has(ctx, "a")
	})
	value, err := out.Read(ctx, "a", pipeteer.None)
	if err != nil {
		t.Fatal(err)
	}
	if value != 7 {
		t.Fatalf("expected 7, got %d", value)
	}
}

// TestParallelWorkflowStep grounds scenario 3: ctx.All running two
// sub-calls concurrently, final output (double(x), inc(x)) for x=4.
func TestParallelWorkflowStep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pctx := newTestContext(t)

	double := pipeline.NewActivity[int, int]("double2", func(ctx context.Context, pctx *pipeline.Context, x int) (int, error) {
		return x * 2, nil
	}, pipeline.ActivityConfig{})
	inc := pipeline.NewActivity[int, int]("inc2", func(ctx context.Context, pctx *pipeline.Context, x int) (int, error) {
		return x + 1, nil
	}, pipeline.ActivityConfig{})

	type pair struct {
		A int `json:"a"`
		B int `json:"b"`
	}

	par := pipeline.NewWorkflow[int, pair]("par", func(ctx context.Context, x int, wc *pipeline.WorkflowContext) (pair, error) {
		var a, b int
		err := pipeline.All(wc,
			pipeline.Thunk(ctx, wc, double, x, &a),
			pipeline.Thunk(ctx, wc, inc, x, &b),
		)
		if err != nil {
			return pair{}, err
		}
		return pair{A: a, B: b}, nil
	})

	startWorker := func(r pipeline.Runnable) {
		tree, err := r.Run(ctx, pctx)
		if err != nil {
			t.Fatal(err)
		}
		proc, ok := tree[r.Name()].(pipeline.Process)
		if !ok {
			t.Fatalf("expected a Process leaf for %s, got %T", r.Name(), tree[r.Name()])
		}
		runInBackground(t, ctx, proc)
	}
	startWorker(double)
	startWorker(inc)
	startWorker(par)

	qin, err := par.Input(ctx, pctx)
	if err != nil {
		t.Fatal(err)
	}
	outURL := pipeteer.LocalURL(pipeteer.OutputPath)
	if err := qin.Push(ctx, "p", pipeteer.Routed[int]{URL: outURL, Value: 4}); err != nil {
		t.Fatal(err)
	}

	output, err := pctx.Backend.Output(ctx)
	if err != nil {
		t.Fatal(err)
	}
	out := pipeteer.QueueOf[pair](output)

	waitFor(t, 5*time.Second, func() (bool, error) {
		return out.Has(ctx, "p")
	})
	value, err := out.Read(ctx, "p", pipeteer.None)
	if err != nil {
		t.Fatal(err)
	}
	if value.A != 8 || value.B != 5 {
		t.Fatalf("expected {8 5}, got %+v", value)
	}
}

package pipeline_test

import (
	"context"
	"testing"
	"time"

	"github.com/romanqed/pipeteer"
	"github.com/romanqed/pipeteer/pipeline"
)

func TestActivityRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pctx := newTestContext(t)

	double := pipeline.NewActivity[int, int]("double", func(ctx context.Context, pctx *pipeline.Context, x int) (int, error) {
		return x * 2, nil
	}, pipeline.ActivityConfig{})

	tree, err := double.Run(ctx, pctx)
	if err != nil {
		t.Fatal(err)
	}
	proc, ok := tree["double"].(pipeline.Process)
	if !ok {
		t.Fatalf("expected a Process leaf, got %T", tree["double"])
	}
	runInBackground(t, ctx, proc)

	qin, err := double.Input(ctx, pctx)
	if err != nil {
		t.Fatal(err)
	}
	outURL := pipeteer.LocalURL(pipeteer.OutputPath)
	if err := qin.Push(ctx, "a", pipeteer.Routed[int]{URL: outURL, Value: 21}); err != nil {
		t.Fatal(err)
	}

	output, err := pctx.Backend.Output(ctx)
	if err != nil {
		t.Fatal(err)
	}
	out := pipeteer.QueueOf[int](output)

	waitFor(t, 2*time.Second, func() (bool, error) {
		return out.Has(ctx, "a")
	})
	value, err := out.Read(ctx, "a", pipeteer.None)
	if err != nil {
		t.Fatal(err)
	}
	if value != 42 {
		t.Fatalf("expected 42, got %d", value)
	}

	readQin := qin.(pipeteer.ReadQueue[pipeteer.Routed[int]])
	if has, _ := readQin.Has(ctx, "a"); has {
		t.Fatal("expected input item to be popped after processing")
	}
}

package httpqueue_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/romanqed/pipeteer"
	"github.com/romanqed/pipeteer/queue/httpqueue"
)

func TestClientServerRoundTrip(t *testing.T) {
	ctx := context.Background()
	backend := newTestBackend(t)
	raw, err := backend.Queue(ctx, pipeteer.Path{"remote"})
	if err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(httpqueue.NewServer(raw, nil).Router())
	defer srv.Close()

	client := httpqueue.NewClient(srv.URL, srv.Client())

	if err := client.Push(ctx, "k", []byte(`"hello"`)); err != nil {
		t.Fatal(err)
	}
	v, err := client.Read(ctx, "k", pipeteer.None)
	if err != nil {
		t.Fatal(err)
	}
	if string(v) != `"hello"` {
		t.Fatalf("expected quoted hello, got %s", v)
	}

	key, val, err := client.ReadAny(ctx, pipeteer.None)
	if err != nil {
		t.Fatal(err)
	}
	if key != "k" || string(val) != `"hello"` {
		t.Fatalf("unexpected read-any result: %s=%s", key, val)
	}

	if err := client.Pop(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, err := client.Read(ctx, "k", pipeteer.None); !pipeteer.IsNotFound(err) {
		t.Fatalf("expected not found after pop, got %v", err)
	}
}

func TestClientNotFoundOnMissingKey(t *testing.T) {
	ctx := context.Background()
	backend := newTestBackend(t)
	raw, err := backend.Queue(ctx, pipeteer.Path{"remote2"})
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(httpqueue.NewServer(raw, nil).Router())
	defer srv.Close()

	client := httpqueue.NewClient(srv.URL, srv.Client())
	if err := client.Pop(ctx, "missing"); !pipeteer.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

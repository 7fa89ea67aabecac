package pipeteer_test

import (
	"testing"

	"github.com/romanqed/pipeteer"
)

func TestJoinPath(t *testing.T) {
	cases := []struct {
		path pipeteer.Path
		want string
	}{
		{nil, "root"},
		{pipeteer.Path{}, "root"},
		{pipeteer.Path{"a"}, "a"},
		{pipeteer.Path{"a", "b"}, "a-b"},
	}
	for _, c := range cases {
		if got := pipeteer.JoinPath(c.path); got != c.want {
			t.Errorf("JoinPath(%v) = %q, want %q", c.path, got, c.want)
		}
	}
}

func TestLocalURLRoundTrip(t *testing.T) {
	path := pipeteer.Path{"workflowA", "step1"}
	url := pipeteer.LocalURL(path)
	table, ok := pipeteer.SplitLocalURL(url)
	if !ok {
		t.Fatalf("SplitLocalURL(%q) reported not ok", url)
	}
	if want := pipeteer.JoinPath(path); table != want {
		t.Errorf("SplitLocalURL(%q) = %q, want %q", url, table, want)
	}
}

func TestSplitLocalURLRejectsForeignURL(t *testing.T) {
	cases := []string{
		"http://example.com/write/k",
		"",
		"local:/",
	}
	for _, url := range cases {
		if _, ok := pipeteer.SplitLocalURL(url); ok {
			t.Errorf("SplitLocalURL(%q) reported ok, want not ok", url)
		}
	}
}

package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"
)

// syncBuffer lets the test read output while the loop writes it.
type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

func TestREPL_RedrawsOnPushAndWorld(t *testing.T) {
	renders := make(chan struct{}, 8)
	lines := make(chan string)
	pushed := make(chan struct{}, 1)
	swapped := make(chan struct{}, 1)
	out := &syncBuffer{}
	rec := &recorder{}
	r := repl{
		g: rec,
		render: func(w io.Writer) error {
			_, err := io.WriteString(w, "view\n")
			renders <- struct{}{}
			return err
		},
		out:     out,
		lines:   lines,
		pushed:  pushed,
		swapped: swapped,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.run(context.Background())
	}()
	wait := func(what string) {
		t.Helper()
		select {
		case <-renders:
		case <-time.After(2 * time.Second):
			t.Fatalf("no redraw after %s", what)
		}
	}

	wait("start")
	pushed <- struct{}{}
	wait("push")
	swapped <- struct{}{}
	wait("world swap")
	lines <- "explore"
	wait("command")
	lines <- "quit"
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("loop did not stop on quit")
	}

	if len(renders) != 0 {
		t.Fatalf("extra redraws: %d", len(renders))
	}
	if len(rec.calls) != 1 || rec.calls[0] != "Explore" {
		t.Fatalf("calls = %q", rec.calls)
	}
	if got := strings.Count(out.String(), "view\n> "); got != 4 {
		t.Fatalf("output:\n%s", out.String())
	}
}

package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) add(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) waitFor(t *testing.T, want Event) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		r.mu.Lock()
		for _, ev := range r.events {
			if ev == want {
				r.mu.Unlock()
				return
			}
		}
		r.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %+v", want)
}

func TestWatcherReportsExistingAndCreatedFiles(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "existing.zf")
	if err := os.WriteFile(existing, []byte("print 1"), 0o644); err != nil {
		t.Fatal(err)
	}

	rec := &recorder{}
	w, err := New(rec.add)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go w.Run(ctx)

	if err := w.Add(dir); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	rec.waitFor(t, Event{Path: existing})

	created := filepath.Join(dir, "new.zf")
	if err := os.WriteFile(created, []byte("print 2"), 0o644); err != nil {
		t.Fatal(err)
	}
	rec.waitFor(t, Event{Path: created})

	if err := os.Remove(created); err != nil {
		t.Fatal(err)
	}
	rec.waitFor(t, Event{Path: created, Removed: true})

	if roots := w.Roots(); len(roots) != 1 || roots[0] != dir {
		t.Fatalf("Roots() = %v", roots)
	}
	if err := w.Remove(dir); err != nil {
		t.Fatalf("Remove() failed: %v", err)
	}
	if roots := w.Roots(); len(roots) != 0 {
		t.Fatalf("Roots() after Remove = %v", roots)
	}
}

func TestAddRejectsFiles(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(f, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	w, err := New(func(Event) {})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := w.Add(f); err == nil {
		t.Fatal("Add(file) should fail")
	}
}

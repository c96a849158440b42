package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/ggoodman/zoof-lsp/storage"
	"github.com/ggoodman/zoof-lsp/storage/storagetest"
)

func TestMemoryStorage(t *testing.T) {
	storagetest.RunStorageTests(t, func(t *testing.T) storage.Storage {
		s, err := New(100)
		if err != nil {
			t.Fatalf("New() failed: %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	s, err := New(2)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := s.Put(ctx, &storage.Document{URI: fmt.Sprintf("file:///%d.zf", i)}); err != nil {
			t.Fatalf("Put() failed: %v", err)
		}
	}

	got, err := s.Get(ctx, "file:///0.zf")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got != nil {
		t.Fatal("expected oldest document to be evicted")
	}
}

func TestGetReturnsCopy(t *testing.T) {
	s, err := New(0)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	if err := s.Put(ctx, &storage.Document{URI: "file:///x.zf", Text: "a"}); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	got, _ := s.Get(ctx, "file:///x.zf")
	got.Text = "mutated"

	again, _ := s.Get(ctx, "file:///x.zf")
	if again.Text != "a" {
		t.Fatalf("stored document was mutated through Get result: %q", again.Text)
	}
}

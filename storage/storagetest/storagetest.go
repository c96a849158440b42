// Package storagetest holds a conformance suite shared by every
// storage.Storage backend.
package storagetest

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/ggoodman/zoof-lsp/storage"
)

// StorageFactory is a function that creates a new, empty storage instance for testing.
type StorageFactory func(t *testing.T) storage.Storage

// RunStorageTests runs the complete storage test suite against the provided factory.
func RunStorageTests(t *testing.T, factory StorageFactory) {
	t.Run("PutAndGet", func(t *testing.T) {
		testPutAndGet(t, factory(t))
	})
	t.Run("GetUnknown", func(t *testing.T) {
		testGetUnknown(t, factory(t))
	})
	t.Run("Replace", func(t *testing.T) {
		testReplace(t, factory(t))
	})
	t.Run("TTL", func(t *testing.T) {
		testTTL(t, factory(t))
	})
	t.Run("Delete", func(t *testing.T) {
		testDelete(t, factory(t))
	})
	t.Run("URIs", func(t *testing.T) {
		testURIs(t, factory(t))
	})
	t.Run("RejectsEmptyURI", func(t *testing.T) {
		testRejectsEmptyURI(t, factory(t))
	})
}

func testPutAndGet(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	doc := &storage.Document{URI: "file:///a.zf", LanguageID: "zoof", Version: 1, Text: "print 1"}

	if err := s.Put(ctx, doc); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	got, err := s.Get(ctx, doc.URI)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got == nil {
		t.Fatal("Get() returned nil document")
	}
	if got.Text != doc.Text || got.Version != doc.Version || got.LanguageID != doc.LanguageID {
		t.Fatalf("Get() returned %+v, want %+v", got, doc)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("UpdatedAt should be set")
	}
	if got.ExpiresAt != nil {
		t.Error("ExpiresAt should be nil without TTL")
	}
}

func testGetUnknown(t *testing.T, s storage.Storage) {
	got, err := s.Get(context.Background(), "file:///missing.zf")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for unknown uri, got %+v", got)
	}
}

func testReplace(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	uri := "file:///b.zf"

	if err := s.Put(ctx, &storage.Document{URI: uri, Version: 1, Text: "old"}); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	if err := s.Put(ctx, &storage.Document{URI: uri, Version: 2, Text: "new"}); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	got, err := s.Get(ctx, uri)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got == nil || got.Text != "new" || got.Version != 2 {
		t.Fatalf("expected replaced revision, got %+v", got)
	}
}

func testTTL(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	uri := "file:///ttl.zf"
	ttl := 100 * time.Millisecond

	if err := s.Put(ctx, &storage.Document{URI: uri, Text: "x"}, storage.WithTTL(ttl)); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	got, err := s.Get(ctx, uri)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got == nil || got.ExpiresAt == nil {
		t.Fatalf("expected document with expiry, got %+v", got)
	}

	time.Sleep(ttl + 50*time.Millisecond)

	got, err = s.Get(ctx, uri)
	if err != nil {
		t.Fatalf("Get() after expiry failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil after expiry, got %+v", got)
	}
}

func testDelete(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	uri := "file:///c.zf"

	if err := s.Put(ctx, &storage.Document{URI: uri, Text: "c"}); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	if err := s.Delete(ctx, uri); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if err := s.Delete(ctx, uri); err != nil {
		t.Fatalf("second Delete() failed: %v", err)
	}

	got, err := s.Get(ctx, uri)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil after delete, got %+v", got)
	}
}

func testURIs(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	want := []string{"file:///1.zf", "file:///2.zf", "file:///3.zf"}
	for _, uri := range want {
		if err := s.Put(ctx, &storage.Document{URI: uri}); err != nil {
			t.Fatalf("Put(%s) failed: %v", uri, err)
		}
	}

	got, err := s.URIs(ctx)
	if err != nil {
		t.Fatalf("URIs() failed: %v", err)
	}
	sort.Strings(got)
	if len(got) != len(want) {
		t.Fatalf("URIs() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("URIs() = %v, want %v", got, want)
		}
	}
}

func testRejectsEmptyURI(t *testing.T, s storage.Storage) {
	if err := s.Put(context.Background(), &storage.Document{Text: "orphan"}); err != storage.ErrInvalidDocument {
		t.Fatalf("Put() error = %v, want %v", err, storage.ErrInvalidDocument)
	}
}

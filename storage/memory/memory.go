// Package memory provides an in-memory implementation of the storage interface
// using github.com/hashicorp/golang-lru/v2 so that a long editing session
// cannot grow the document set without bound.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ggoodman/zoof-lsp/storage"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMaxDocuments bounds the store when New is given a non-positive size.
const DefaultMaxDocuments = 1024

// Storage implements the storage.Storage interface using in-memory storage.
type Storage struct {
	mu    sync.RWMutex
	cache *lru.Cache[string, *storage.Document]
	done  chan struct{}
	once  sync.Once
}

// New creates a new in-memory storage holding at most maxDocuments entries.
func New(maxDocuments int) (*Storage, error) {
	if maxDocuments <= 0 {
		maxDocuments = DefaultMaxDocuments
	}
	cache, err := lru.New[string, *storage.Document](maxDocuments)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}

	s := &Storage{
		cache: cache,
		done:  make(chan struct{}),
	}

	go s.cleanupExpired(5 * time.Minute)

	return s, nil
}

// Get retrieves the document stored under uri.
func (s *Storage) Get(ctx context.Context, uri string) (*storage.Document, error) {
	s.mu.RLock()
	doc, exists := s.cache.Get(uri)
	s.mu.RUnlock()

	if !exists {
		return nil, nil
	}

	if doc.IsExpired() {
		s.mu.Lock()
		s.cache.Remove(uri)
		s.mu.Unlock()
		return nil, nil
	}

	cp := *doc
	return &cp, nil
}

// Put stores doc, replacing any previous revision.
func (s *Storage) Put(ctx context.Context, doc *storage.Document, opts ...storage.Option) error {
	if doc == nil || doc.URI == "" {
		return storage.ErrInvalidDocument
	}
	options := storage.Apply(opts...)

	now := time.Now()
	stored := *doc
	stored.UpdatedAt = now
	stored.ExpiresAt = nil
	if options.TTL != nil {
		expiresAt := now.Add(*options.TTL)
		stored.ExpiresAt = &expiresAt
	}

	s.mu.Lock()
	s.cache.Add(doc.URI, &stored)
	s.mu.Unlock()

	return nil
}

// Delete removes the document stored under uri.
func (s *Storage) Delete(ctx context.Context, uri string) error {
	s.mu.Lock()
	s.cache.Remove(uri)
	s.mu.Unlock()
	return nil
}

// URIs lists the uris of all unexpired documents.
func (s *Storage) URIs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for _, key := range s.cache.Keys() {
		if doc, ok := s.cache.Peek(key); ok && !doc.IsExpired() {
			out = append(out, key)
		}
	}
	return out, nil
}

// Close closes the storage backend and releases resources.
func (s *Storage) Close() error {
	s.once.Do(func() { close(s.done) })
	s.mu.Lock()
	s.cache.Purge()
	s.mu.Unlock()
	return nil
}

// cleanupExpired periodically drops expired documents until Close is called.
func (s *Storage) cleanupExpired(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		now := time.Now()
		for _, key := range s.cache.Keys() {
			if doc, exists := s.cache.Peek(key); exists {
				if doc.ExpiresAt != nil && now.After(*doc.ExpiresAt) {
					s.cache.Remove(key)
				}
			}
		}
		s.mu.Unlock()
	}
}

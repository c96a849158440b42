// Package storage provides an interface for keeping the text of documents the
// editor has opened. Handlers for textDocument/didOpen, didChange and didClose
// write through it; language features read from it.
package storage

import (
	"context"
	"errors"
	"time"
)

// Storage defines the document store used by the server.
type Storage interface {
	// Get retrieves the document stored under uri.
	// Returns nil Document if the uri is unknown or has expired.
	// Returns error only for legitimate storage system failures.
	Get(ctx context.Context, uri string) (*Document, error)

	// Put stores doc under doc.URI, replacing any previous revision.
	Put(ctx context.Context, doc *Document, opts ...Option) error

	// Delete removes the document stored under uri. Deleting an unknown uri
	// is not an error.
	Delete(ctx context.Context, uri string) error

	// URIs lists the uris of all stored documents in no particular order.
	URIs(ctx context.Context) ([]string, error)

	// Close closes the storage backend and releases resources.
	Close() error
}

// Document is one revision of an open text document.
type Document struct {
	URI        string     `json:"uri"`
	LanguageID string     `json:"languageId"`
	Version    int        `json:"version"`
	Text       string     `json:"text"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"` // nil = no expiration
}

// IsExpired checks if the document has expired.
func (d *Document) IsExpired() bool {
	return d.ExpiresAt != nil && time.Now().After(*d.ExpiresAt)
}

// Option configures storage operations.
type Option func(*Options)

// Options contains configuration for storage operations.
type Options struct {
	TTL *time.Duration // Optional: time-to-live for the document
}

// Apply folds opts into a fresh Options value.
func Apply(opts ...Option) Options {
	var o Options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// WithTTL sets a time-to-live for the stored document.
func WithTTL(ttl time.Duration) Option {
	return func(opts *Options) {
		opts.TTL = &ttl
	}
}

// Error types
var (
	// ErrInvalidDocument is returned when a document without a uri is stored.
	ErrInvalidDocument = errors.New("storage: document uri is required")
)

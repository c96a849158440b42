// Package redis provides a Redis-based implementation of the storage.Storage
// interface. Documents are stored as JSON values with an optional TTL so that
// several server processes attached to the same workspace can share them.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ggoodman/zoof-lsp/storage"
	"github.com/redis/go-redis/v9"
)

// Config contains configuration options for the Redis storage.
type Config struct {
	// Client is the Redis client instance.
	Client redis.UniversalClient

	// KeyPrefix is the prefix for all Redis keys.
	// Default: "zoof-lsp:documents:"
	KeyPrefix string
}

// Storage implements the storage.Storage interface using Redis.
type Storage struct {
	client    redis.UniversalClient
	keyPrefix string
}

// New creates a new Redis-based storage instance.
func New(config Config) (*Storage, error) {
	if config.Client == nil {
		return nil, fmt.Errorf("redis client is required")
	}

	if config.KeyPrefix == "" {
		config.KeyPrefix = "zoof-lsp:documents:"
	}

	return &Storage{
		client:    config.Client,
		keyPrefix: config.KeyPrefix,
	}, nil
}

// Dial connects to addr, verifies the connection with PING and returns a
// Storage using keyPrefix.
func Dial(ctx context.Context, addr, keyPrefix string) (*Storage, error) {
	cl := redis.NewClient(&redis.Options{Addr: addr})
	if err := cl.Ping(ctx).Err(); err != nil {
		_ = cl.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return New(Config{Client: cl, KeyPrefix: keyPrefix})
}

// Get retrieves the document stored under uri.
func (s *Storage) Get(ctx context.Context, uri string) (*storage.Document, error) {
	redisKey := s.buildKey(uri)

	result := s.client.Get(ctx, redisKey)
	if result.Err() != nil {
		if result.Err() == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get key %s: %w", redisKey, result.Err())
	}

	var doc storage.Document
	if err := json.Unmarshal([]byte(result.Val()), &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stored document: %w", err)
	}

	if doc.IsExpired() {
		s.client.Del(ctx, redisKey)
		return nil, nil
	}

	return &doc, nil
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

	var redisTTL time.Duration
	if options.TTL != nil {
		expiresAt := now.Add(*options.TTL)
		stored.ExpiresAt = &expiresAt
		redisTTL = *options.TTL
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	redisKey := s.buildKey(doc.URI)
	if err := s.client.Set(ctx, redisKey, data, redisTTL).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", redisKey, err)
	}

	return nil
}

// Delete removes the document stored under uri.
func (s *Storage) Delete(ctx context.Context, uri string) error {
	redisKey := s.buildKey(uri)
	if err := s.client.Del(ctx, redisKey).Err(); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", redisKey, err)
	}
	return nil
}

// URIs lists the uris of all stored documents.
func (s *Storage) URIs(ctx context.Context) ([]string, error) {
	keys, err := s.scanKeys(ctx, s.keyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("failed to scan keys: %w", err)
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, strings.TrimPrefix(k, s.keyPrefix))
	}
	return out, nil
}

// Close closes the storage backend and releases resources.
func (s *Storage) Close() error {
	return s.client.Close()
}

func (s *Storage) buildKey(uri string) string {
	return s.keyPrefix + uri
}

// scanKeys uses Redis SCAN to find all keys matching a pattern.
func (s *Storage) scanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	var cursor uint64

	for {
		result := s.client.Scan(ctx, cursor, pattern, 100)
		if result.Err() != nil {
			return nil, result.Err()
		}

		scanKeys, newCursor := result.Val()
		keys = append(keys, scanKeys...)
		cursor = newCursor

		if cursor == 0 {
			break
		}
	}

	return keys, nil
}

// Compile-time interface check
var _ storage.Storage = (*Storage)(nil)

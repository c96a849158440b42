package redis

import (
	"context"
	"testing"

	"github.com/ggoodman/zoof-lsp/storage"
	"github.com/ggoodman/zoof-lsp/storage/storagetest"
	"github.com/redis/go-redis/v9"
)

func TestRedisStorage(t *testing.T) {
	// Skip test if Redis is not available
	client := redis.NewClient(&redis.Options{
		Addr: "127.0.0.1:6379",
		DB:   2, // Use separate DB for storage tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer client.Close()

	storagetest.RunStorageTests(t, func(t *testing.T) storage.Storage {
		if err := client.FlushDB(ctx).Err(); err != nil {
			t.Fatalf("FlushDB failed: %v", err)
		}
		s, err := New(Config{Client: client, KeyPrefix: "zoof-lsp:test:"})
		if err != nil {
			t.Fatalf("Failed to create Redis storage: %v", err)
		}
		return s
	})
}

func TestNewRequiresClient(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error without client")
	}
}

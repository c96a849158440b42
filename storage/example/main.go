package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ggoodman/zoof-lsp/storage"
	"github.com/ggoodman/zoof-lsp/storage/memory"
)

func main() {
	// Create a new in-memory document store holding at most 100 documents
	store, err := memory.New(100)
	if err != nil {
		log.Fatal("Failed to create storage:", err)
	}
	defer store.Close()

	ctx := context.Background()
	uri := "file:///workspace/main.zf"

	// Example 1: didOpen
	fmt.Println("=== Open ===")
	err = store.Put(ctx, &storage.Document{URI: uri, LanguageID: "zoof", Version: 1, Text: "let x = 1"})
	if err != nil {
		log.Fatal("Failed to open document:", err)
	}
	printDoc(ctx, store, uri)

	// Example 2: didChange replaces the whole text
	fmt.Println("\n=== Change ===")
	err = store.Put(ctx, &storage.Document{URI: uri, LanguageID: "zoof", Version: 2, Text: "let x = 2\nprint(x)"})
	if err != nil {
		log.Fatal("Failed to change document:", err)
	}
	printDoc(ctx, store, uri)

	// Example 3: TTL (Time-to-Live)
	fmt.Println("\n=== TTL Example ===")
	scratch := "untitled:Scratch-1"
	err = store.Put(ctx, &storage.Document{URI: scratch, Text: "scratch"}, storage.WithTTL(2*time.Second))
	if err != nil {
		log.Fatal("Failed to store scratch document:", err)
	}
	printDoc(ctx, store, scratch)

	fmt.Println("Waiting 3 seconds for TTL expiration...")
	time.Sleep(3 * time.Second)
	if doc, _ := store.Get(ctx, scratch); doc == nil {
		fmt.Println("Scratch document expired (as expected)")
	}

	// Example 4: didClose
	fmt.Println("\n=== Close ===")
	if err := store.Delete(ctx, uri); err != nil {
		log.Fatal("Failed to close document:", err)
	}
	uris, err := store.URIs(ctx)
	if err != nil {
		log.Fatal("Failed to list documents:", err)
	}
	fmt.Printf("Open documents: %v\n", uris)
}

func printDoc(ctx context.Context, store storage.Storage, uri string) {
	doc, err := store.Get(ctx, uri)
	if err != nil {
		log.Fatal("Failed to get document:", err)
	}
	if doc == nil {
		fmt.Printf("%s: not open\n", uri)
		return
	}
	fmt.Printf("%s v%d: %q\n", doc.URI, doc.Version, doc.Text)
}

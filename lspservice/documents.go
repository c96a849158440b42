package lspservice

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ggoodman/zoof-lsp/lsp"
	"github.com/ggoodman/zoof-lsp/storage"
)

func handleDidOpen(ctx context.Context, st *State, p lsp.DidOpenTextDocumentParams) (any, error) {
	doc := &storage.Document{
		URI:        p.TextDocument.URI,
		LanguageID: p.TextDocument.LanguageID,
		Version:    p.TextDocument.Version,
		Text:       p.TextDocument.Text,
	}
	if err := st.docs.Put(ctx, doc); err != nil {
		return nil, fmt.Errorf("didOpen %s: %w", p.TextDocument.URI, err)
	}
	st.log.DebugContext(ctx, "documents.open",
		slog.String("uri", doc.URI),
		slog.Int("version", doc.Version),
		slog.Int("bytes", len(doc.Text)),
	)
	return nil, nil
}

// handleDidChange applies full-document synchronization: the last change
// event carries the complete new text.
func handleDidChange(ctx context.Context, st *State, p lsp.DidChangeTextDocumentParams) (any, error) {
	uri := p.TextDocument.URI
	if len(p.ContentChanges) == 0 {
		return nil, nil
	}
	last := p.ContentChanges[len(p.ContentChanges)-1]
	if last.Range != nil {
		return nil, NewError(CodeInvalidParams, "didChange %s: ranged changes are not supported", uri)
	}

	doc, err := st.docs.Get(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("didChange %s: %w", uri, err)
	}
	if doc == nil {
		st.log.WarnContext(ctx, "documents.change.unknown", slog.String("uri", uri))
		doc = &storage.Document{URI: uri}
	}
	doc.Version = p.TextDocument.Version
	doc.Text = last.Text

	if err := st.docs.Put(ctx, doc); err != nil {
		return nil, fmt.Errorf("didChange %s: %w", uri, err)
	}
	st.log.DebugContext(ctx, "documents.change", slog.String("uri", uri), slog.Int("version", doc.Version))
	return nil, nil
}

func handleDidClose(ctx context.Context, st *State, p lsp.DidCloseTextDocumentParams) (any, error) {
	if err := st.docs.Delete(ctx, p.TextDocument.URI); err != nil {
		return nil, fmt.Errorf("didClose %s: %w", p.TextDocument.URI, err)
	}
	st.log.DebugContext(ctx, "documents.close", slog.String("uri", p.TextDocument.URI))
	return nil, nil
}

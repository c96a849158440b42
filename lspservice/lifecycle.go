package lspservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/ggoodman/zoof-lsp/lsp"
)

// ErrMissingCapabilities is returned by initialize when the client omitted
// its capability document.
var ErrMissingCapabilities = errors.New("initialize: params.capabilities is required")

// ServerCapabilities is the capability document advertised from initialize.
func ServerCapabilities() lsp.ServerCapabilities {
	return lsp.ServerCapabilities{
		TextDocumentSync: &lsp.TextDocumentSyncOptions{
			OpenClose: true,
			Change:    lsp.TextDocumentSyncKindFull,
		},
		CompletionProvider: &lsp.CompletionOptions{
			TriggerCharacters: []string{"."},
			ResolveProvider:   false,
			CompletionItem:    map[string]any{},
		},
	}
}

func handleInitialize(ctx context.Context, st *State, p lsp.InitializeParams) (any, error) {
	if len(p.Capabilities) == 0 || string(p.Capabilities) == "null" {
		return nil, ErrMissingCapabilities
	}

	opts, err := ParseInitializationOptions(p.InitializationOptions)
	if err != nil {
		// Bad options should not prevent the session from starting.
		st.log.WarnContext(ctx, "lifecycle.initialize.options_invalid", slog.String("err", err.Error()))
	}
	if opts.LogLevel != "" && st.levelVar != nil {
		if lvl, err := ParseLogLevel(opts.LogLevel); err != nil {
			st.log.WarnContext(ctx, "lifecycle.initialize.log_level_invalid", slog.String("level", opts.LogLevel))
		} else {
			st.levelVar.Set(lvl)
		}
	}

	old := st.recordInitialize(p, opts)
	st.watchFolders(p.WorkspaceFolders, old)

	attrs := []any{slog.Int("workspace_folders", len(p.WorkspaceFolders))}
	if p.ClientInfo != nil {
		attrs = append(attrs, slog.String("client", p.ClientInfo.Name), slog.String("client_version", p.ClientInfo.Version))
	}
	st.log.InfoContext(ctx, "lifecycle.initialize", attrs...)

	return lsp.InitializeResult{
		Capabilities: ServerCapabilities(),
		ServerInfo:   st.ServerInfo(),
	}, nil
}

func handleInitialized(ctx context.Context, st *State, _ struct{}) (any, error) {
	st.log.InfoContext(ctx, "lifecycle.initialized")
	return nil, nil
}

func handleShutdown(ctx context.Context, st *State, _ struct{}) (any, error) {
	st.SetShutdown()
	st.log.InfoContext(ctx, "lifecycle.shutdown")
	return struct{}{}, nil
}

func handleExit(ctx context.Context, st *State, _ struct{}) (any, error) {
	st.log.InfoContext(ctx, "lifecycle.exit", slog.Bool("shutdown_requested", st.ShutdownRequested()))
	st.Stop()
	return nil, nil
}

func handleWorkspaceFolders(ctx context.Context, st *State, p lsp.DidChangeWorkspaceFoldersParams) (any, error) {
	st.changeFolders(p.Event)
	st.watchFolders(p.Event.Added, p.Event.Removed)
	st.log.InfoContext(ctx, "workspace.folders_changed",
		slog.Int("added", len(p.Event.Added)),
		slog.Int("removed", len(p.Event.Removed)),
	)
	return nil, nil
}

func handleSetTrace(ctx context.Context, st *State, p struct {
	Value string `json:"value"`
}) (any, error) {
	st.log.DebugContext(ctx, "lifecycle.set_trace", slog.String("value", p.Value))
	return nil, nil
}

func handleCancelRequest(ctx context.Context, st *State, p struct {
	ID json.RawMessage `json:"id"`
}) (any, error) {
	id := string(bytes.TrimSpace(p.ID))
	var s string
	if json.Unmarshal(p.ID, &s) == nil {
		id = s
	}
	cancelled := st.CancelRequest(id)
	st.log.DebugContext(ctx, "lifecycle.cancel_request", slog.String("id", id), slog.Bool("found", cancelled))
	return nil, nil
}

func handleSchema(_ context.Context, _ *State, _ struct{}) (any, error) {
	return InitializationOptionsSchema(), nil
}

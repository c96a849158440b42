package lspservice

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/ggoodman/zoof-lsp/lsp"
)

type countingStopper struct {
	mu    sync.Mutex
	calls int
}

func (s *countingStopper) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.calls == 1
}

type recordingWatcher struct {
	added   []string
	removed []string
}

func (w *recordingWatcher) Add(dir string) error    { w.added = append(w.added, dir); return nil }
func (w *recordingWatcher) Remove(dir string) error { w.removed = append(w.removed, dir); return nil }

func testState(t *testing.T, opts ...StateOption) *State {
	t.Helper()
	base := []StateOption{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}
	st := NewState(append(base, opts...)...)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func call(t *testing.T, st *State, method string, params string) (any, error) {
	t.Helper()
	h, ok := NewDefaultRegistry().Lookup(method)
	if !ok {
		t.Fatalf("no handler for %s", method)
	}
	var raw json.RawMessage
	if params != "" {
		raw = json.RawMessage(params)
	}
	return h.Handle(context.Background(), st, raw)
}

func TestInitializeRecordsContext(t *testing.T) {
	lv := new(slog.LevelVar)
	w := &recordingWatcher{}
	st := testState(t, WithLevelVar(lv), WithFolderWatcher(w))

	res, err := call(t, st, "initialize", `{
		"capabilities": {"textDocument": {}},
		"clientInfo": {"name": "test", "version": "1"},
		"initializationOptions": {"logLevel": "debug", "extraKeywords": ["yield"]},
		"workspaceFolders": [{"uri": "file:///tmp/ws", "name": "ws"}]
	}`)
	if err != nil {
		t.Fatalf("initialize failed: %v", err)
	}

	out, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal result: %v", err)
	}
	var got struct {
		Capabilities struct {
			TextDocumentSync struct {
				OpenClose bool `json:"openClose"`
				Change    int  `json:"change"`
			} `json:"textDocumentSync"`
			CompletionProvider struct {
				TriggerCharacters []string `json:"triggerCharacters"`
			} `json:"completionProvider"`
		} `json:"capabilities"`
		ServerInfo lsp.ImplementationInfo `json:"serverInfo"`
	}
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if !got.Capabilities.TextDocumentSync.OpenClose || got.Capabilities.TextDocumentSync.Change != 1 {
		t.Fatalf("unexpected textDocumentSync: %s", out)
	}
	if len(got.Capabilities.CompletionProvider.TriggerCharacters) != 1 {
		t.Fatalf("unexpected completionProvider: %s", out)
	}
	if got.ServerInfo.Name != DefaultServerName || got.ServerInfo.Version != DefaultServerVersion {
		t.Fatalf("serverInfo = %+v", got.ServerInfo)
	}

	if !st.Initialized() {
		t.Fatal("state should be initialized")
	}
	if string(st.ClientCapabilities()) == "" {
		t.Fatal("capabilities not recorded")
	}
	if ci := st.ClientInfo(); ci == nil || ci.Name != "test" {
		t.Fatalf("ClientInfo() = %+v", ci)
	}
	if f := st.WorkspaceFolders(); len(f) != 1 || f[0].Name != "ws" {
		t.Fatalf("WorkspaceFolders() = %+v", f)
	}
	if kw := st.ExtraKeywords(); len(kw) != 1 || kw[0] != "yield" {
		t.Fatalf("ExtraKeywords() = %v", kw)
	}
	if lv.Level() != slog.LevelDebug {
		t.Fatalf("log level = %v, want debug", lv.Level())
	}
	if len(w.added) != 1 || w.added[0] != "/tmp/ws" {
		t.Fatalf("watcher added %v", w.added)
	}
}

func TestInitializeOverwritesOnRepeat(t *testing.T) {
	st := testState(t)
	if _, err := call(t, st, "initialize", `{"capabilities":{},"workspaceFolders":[{"uri":"file:///a","name":"a"}]}`); err != nil {
		t.Fatal(err)
	}
	if _, err := call(t, st, "initialize", `{"capabilities":{}}`); err != nil {
		t.Fatal(err)
	}
	if f := st.WorkspaceFolders(); len(f) != 0 {
		t.Fatalf("WorkspaceFolders() = %+v, want empty after re-initialize", f)
	}
}

func TestInitializeRequiresCapabilities(t *testing.T) {
	st := testState(t)
	_, err := call(t, st, "initialize", `{"clientInfo":{"name":"x"}}`)
	if !errors.Is(err, ErrMissingCapabilities) {
		t.Fatalf("initialize error = %v, want %v", err, ErrMissingCapabilities)
	}
	if st.Initialized() {
		t.Fatal("state should not be initialized")
	}
}

func TestShutdownAndExit(t *testing.T) {
	stopper := &countingStopper{}
	st := testState(t, WithStopper(stopper))

	res, err := call(t, st, "shutdown", "")
	if err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
	if b, _ := json.Marshal(res); string(b) != "{}" {
		t.Fatalf("shutdown result = %s, want {}", b)
	}
	if !st.ShutdownRequested() {
		t.Fatal("shutdown flag not set")
	}
	if stopper.calls != 0 {
		t.Fatal("shutdown must not stop the loop")
	}

	if _, err := call(t, st, "exit", ""); err != nil {
		t.Fatalf("exit failed: %v", err)
	}
	if stopper.calls != 1 {
		t.Fatalf("Stop called %d times, want 1", stopper.calls)
	}
}

func TestWorkspaceFoldersChange(t *testing.T) {
	w := &recordingWatcher{}
	st := testState(t, WithFolderWatcher(w))
	if _, err := call(t, st, "initialize", `{"capabilities":{},"workspaceFolders":[{"uri":"file:///a","name":"a"},{"uri":"file:///b","name":"b"}]}`); err != nil {
		t.Fatal(err)
	}

	_, err := call(t, st, "workspace/didChangeWorkspaceFolders",
		`{"event":{"added":[{"uri":"file:///c","name":"c"}],"removed":[{"uri":"file:///a","name":"a"}]}}`)
	if err != nil {
		t.Fatal(err)
	}

	got := st.WorkspaceFolders()
	if len(got) != 2 || got[0].Name != "b" || got[1].Name != "c" {
		t.Fatalf("WorkspaceFolders() = %+v", got)
	}
	if len(w.removed) != 1 || w.removed[0] != "/a" {
		t.Fatalf("watcher removed %v", w.removed)
	}
}

type fakeCanceler map[string]bool

func (f fakeCanceler) Cancel(id string) bool {
	_, ok := f[id]
	f[id] = true
	return ok
}

func TestCancelRequestUsesCanceler(t *testing.T) {
	st := testState(t)
	c := fakeCanceler{"7": false, "abc": false}
	st.BindCanceler(c)

	if _, err := call(t, st, "$/cancelRequest", `{"id":7}`); err != nil {
		t.Fatal(err)
	}
	if _, err := call(t, st, "$/cancelRequest", `{"id":"abc"}`); err != nil {
		t.Fatal(err)
	}
	if !c["7"] || !c["abc"] {
		t.Fatalf("cancellations = %v", c)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseLogLevel(%q) err = %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestInitializationOptionsSchema(t *testing.T) {
	b, err := json.Marshal(InitializationOptionsSchema())
	if err != nil {
		t.Fatal(err)
	}
	var doc struct {
		Properties map[string]json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"logLevel", "extraKeywords"} {
		if _, ok := doc.Properties[k]; !ok {
			t.Fatalf("schema missing property %q: %s", k, b)
		}
	}
}

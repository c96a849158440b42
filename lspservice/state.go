package lspservice

import (
	"encoding/json"
	"log/slog"
	"net/url"
	"path/filepath"
	"sort"
	"sync"

	"github.com/ggoodman/zoof-lsp/lsp"
	"github.com/ggoodman/zoof-lsp/storage"
	"github.com/ggoodman/zoof-lsp/storage/memory"
	"github.com/google/uuid"
)

// Default server identity reported from initialize.
const (
	DefaultServerName    = "zoof-lsp"
	DefaultServerVersion = "0.0.1"
)

// Stopper ends the server loop. Stop reports whether this call stopped it.
type Stopper interface {
	Stop() bool
}

// Canceler cancels the in-flight request with the given id. It reports
// whether such a request existed.
type Canceler interface {
	Cancel(id string) bool
}

// FolderWatcher observes workspace folders on disk.
type FolderWatcher interface {
	Add(dir string) error
	Remove(dir string) error
}

// State is the server context shared by every in-flight request: what the
// client told us during initialize, the workspace folders, the shutdown flag
// and a handle to stop the loop. Suspending handlers may run alongside the
// loop, so all access goes through the accessor methods.
type State struct {
	log        *slog.Logger
	serverInfo lsp.ImplementationInfo
	instanceID string
	docs       storage.Storage
	ownsDocs   bool
	stopper    Stopper
	watcher    FolderWatcher
	levelVar   *slog.LevelVar

	mu            sync.RWMutex
	canceler      Canceler
	capabilities  json.RawMessage
	initOptions   json.RawMessage
	clientInfo    *lsp.ImplementationInfo
	folders       []lsp.WorkspaceFolder
	extraKeywords []string
	initialized   bool
	shutdown      bool
	files         map[string]struct{}
}

// StateOption configures a State.
type StateOption func(*State)

// WithServerInfo overrides the name and version reported from initialize.
func WithServerInfo(name, version string) StateOption {
	return func(s *State) {
		if name != "" {
			s.serverInfo.Name = name
		}
		if version != "" {
			s.serverInfo.Version = version
		}
	}
}

// WithLogger sets the logger handlers should use.
func WithLogger(l *slog.Logger) StateOption {
	return func(s *State) {
		if l != nil {
			s.log = l
		}
	}
}

// WithDocuments sets the open-document store. An in-memory store is used by
// default.
func WithDocuments(docs storage.Storage) StateOption {
	return func(s *State) {
		if docs != nil {
			s.docs = docs
		}
	}
}

// WithStopper sets the handle used by exit to stop the loop.
func WithStopper(st Stopper) StateOption {
	return func(s *State) { s.stopper = st }
}

// WithFolderWatcher sets the watcher notified of workspace folder changes.
func WithFolderWatcher(w FolderWatcher) StateOption {
	return func(s *State) { s.watcher = w }
}

// WithLevelVar lets initializationOptions.logLevel adjust lv at runtime.
func WithLevelVar(lv *slog.LevelVar) StateOption {
	return func(s *State) { s.levelVar = lv }
}

// WithInstanceID sets the id identifying this server process in logs.
func WithInstanceID(id string) StateOption {
	return func(s *State) {
		if id != "" {
			s.instanceID = id
		}
	}
}

// NewState creates the server context. Call Close when done with it.
func NewState(opts ...StateOption) *State {
	s := &State{
		log:        slog.Default(),
		serverInfo: lsp.ImplementationInfo{Name: DefaultServerName, Version: DefaultServerVersion},
		instanceID: uuid.NewString(),
		files:      make(map[string]struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.docs == nil {
		// memory.New only fails for a non-positive size.
		docs, _ := memory.New(memory.DefaultMaxDocuments)
		s.docs = docs
		s.ownsDocs = true
	}
	return s
}

// Close releases the document store NewState created when none was given
// with WithDocuments. A store supplied by the caller is left open.
func (s *State) Close() error {
	if !s.ownsDocs {
		return nil
	}
	return s.docs.Close()
}

// Logger returns the logger handlers should use.
func (s *State) Logger() *slog.Logger { return s.log }

// ServerInfo returns the identity reported from initialize.
func (s *State) ServerInfo() lsp.ImplementationInfo { return s.serverInfo }

// InstanceID identifies this server process.
func (s *State) InstanceID() string { return s.instanceID }

// Documents returns the open-document store.
func (s *State) Documents() storage.Storage { return s.docs }

// Stop asks the loop to end. It reports whether this call stopped it.
func (s *State) Stop() bool {
	if s.stopper == nil {
		return false
	}
	return s.stopper.Stop()
}

// BindCanceler attaches the component that tracks in-flight requests.
func (s *State) BindCanceler(c Canceler) {
	s.mu.Lock()
	s.canceler = c
	s.mu.Unlock()
}

// CancelRequest cancels the in-flight request with the given id.
func (s *State) CancelRequest(id string) bool {
	s.mu.RLock()
	c := s.canceler
	s.mu.RUnlock()
	if c == nil {
		return false
	}
	return c.Cancel(id)
}

// SetShutdown records that the client sent shutdown.
func (s *State) SetShutdown() {
	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()
}

// ShutdownRequested reports whether the client sent shutdown.
func (s *State) ShutdownRequested() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shutdown
}

// Initialized reports whether initialize has completed at least once.
func (s *State) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// ClientCapabilities returns the capability document sent with initialize.
func (s *State) ClientCapabilities() json.RawMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.capabilities
}

// InitializationOptions returns the raw initializationOptions sent with
// initialize, or nil.
func (s *State) InitializationOptions() json.RawMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initOptions
}

// ClientInfo returns the client identity, if the client sent one.
func (s *State) ClientInfo() *lsp.ImplementationInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clientInfo
}

// WorkspaceFolders returns a copy of the current workspace folders.
func (s *State) WorkspaceFolders() []lsp.WorkspaceFolder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]lsp.WorkspaceFolder(nil), s.folders...)
}

// ExtraKeywords returns the additional completion keywords configured
// through initializationOptions.
func (s *State) ExtraKeywords() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.extraKeywords...)
}

// TrackFile records a file seen in a watched workspace folder, or forgets it
// when removed is true.
func (s *State) TrackFile(path string, removed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if removed {
		delete(s.files, path)
		return
	}
	s.files[path] = struct{}{}
}

// WorkspaceFiles lists the files recorded with TrackFile in sorted order.
func (s *State) WorkspaceFiles() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.files))
	for p := range s.files {
		out = append(out, p)
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out
}

// recordInitialize overwrites everything initialize reports. Calling
// initialize again simply replaces the previous values.
func (s *State) recordInitialize(p lsp.InitializeParams, opts InitializationOptions) (old []lsp.WorkspaceFolder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old = s.folders
	s.capabilities = p.Capabilities
	s.initOptions = p.InitializationOptions
	s.clientInfo = p.ClientInfo
	s.folders = append([]lsp.WorkspaceFolder(nil), p.WorkspaceFolders...)
	s.extraKeywords = append([]string(nil), opts.ExtraKeywords...)
	s.initialized = true
	return old
}

func (s *State) changeFolders(ev lsp.WorkspaceFoldersChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := make(map[string]bool, len(ev.Removed))
	for _, f := range ev.Removed {
		removed[f.URI] = true
	}
	next := s.folders[:0:0]
	seen := make(map[string]bool)
	for _, f := range s.folders {
		if removed[f.URI] {
			continue
		}
		seen[f.URI] = true
		next = append(next, f)
	}
	for _, f := range ev.Added {
		if seen[f.URI] {
			continue
		}
		seen[f.URI] = true
		next = append(next, f)
	}
	s.folders = next
}

func (s *State) watchFolders(add, remove []lsp.WorkspaceFolder) {
	if s.watcher == nil {
		return
	}
	for _, f := range remove {
		dir, ok := URIToPath(f.URI)
		if !ok {
			continue
		}
		if err := s.watcher.Remove(dir); err != nil {
			s.log.Debug("state.unwatch.failed", slog.String("dir", dir), slog.String("err", err.Error()))
		}
	}
	for _, f := range add {
		dir, ok := URIToPath(f.URI)
		if !ok {
			s.log.Warn("state.watch.skip", slog.String("uri", f.URI))
			continue
		}
		if err := s.watcher.Add(dir); err != nil {
			s.log.Warn("state.watch.failed", slog.String("dir", dir), slog.String("err", err.Error()))
		}
	}
}

// URIToPath converts a file:// URI to a local path.
func URIToPath(uri string) (string, bool) {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" || u.Path == "" {
		return "", false
	}
	return filepath.FromSlash(u.Path), true
}

package lsp

// Method is a JSON-RPC method identifier used by the editor protocol.
type Method string

// Editor protocol method and notification names.
const (
	// Lifecycle
	InitializeMethod              Method = "initialize"
	InitializedNotificationMethod Method = "initialized"
	ShutdownMethod                Method = "shutdown"
	ExitNotificationMethod        Method = "exit"

	// Text synchronization
	TextDocumentDidOpenMethod   Method = "textDocument/didOpen"
	TextDocumentDidChangeMethod Method = "textDocument/didChange"
	TextDocumentDidCloseMethod  Method = "textDocument/didClose"

	// Language features
	TextDocumentCompletionMethod Method = "textDocument/completion"

	// Workspace
	WorkspaceDidChangeWorkspaceFoldersMethod Method = "workspace/didChangeWorkspaceFolders"

	// General
	CancelRequestNotificationMethod Method = "$/cancelRequest"
	SetTraceNotificationMethod      Method = "$/setTrace"

	// Server specific
	InitializationOptionsSchemaMethod Method = "zoof/initializationOptionsSchema"
)

// ContentType is the media type advertised in the optional Content-Type
// frame header.
const ContentType = "application/vscode-jsonrpc; charset=utf-8"

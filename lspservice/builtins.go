package lspservice

import "github.com/ggoodman/zoof-lsp/lsp"

// RegisterBuiltins adds the lifecycle, workspace, document and completion
// handlers to reg. It panics if any of those methods is already registered.
func RegisterBuiltins(reg *Registry) {
	reg.MustRegister(string(lsp.InitializeMethod), Typed(handleInitialize))
	reg.MustRegister(string(lsp.InitializedNotificationMethod), Typed(handleInitialized))
	reg.MustRegister(string(lsp.ShutdownMethod), Typed(handleShutdown))
	reg.MustRegister(string(lsp.ExitNotificationMethod), Typed(handleExit))

	reg.MustRegister(string(lsp.CancelRequestNotificationMethod), Typed(handleCancelRequest))
	reg.MustRegister(string(lsp.SetTraceNotificationMethod), Typed(handleSetTrace))
	reg.MustRegister(string(lsp.WorkspaceDidChangeWorkspaceFoldersMethod), Typed(handleWorkspaceFolders))

	reg.MustRegister(string(lsp.TextDocumentDidOpenMethod), Typed(handleDidOpen))
	reg.MustRegister(string(lsp.TextDocumentDidChangeMethod), Typed(handleDidChange))
	reg.MustRegister(string(lsp.TextDocumentDidCloseMethod), Typed(handleDidClose))
	reg.MustRegister(string(lsp.TextDocumentCompletionMethod), Typed(handleCompletion))

	reg.MustRegister(string(lsp.InitializationOptionsSchemaMethod), Typed(handleSchema))
}

// NewDefaultRegistry returns a registry holding the built-in handlers. The
// caller may add more before handing it to the server.
func NewDefaultRegistry() *Registry {
	reg := NewRegistry()
	RegisterBuiltins(reg)
	return reg
}

// Package lsp serves the glossary to editors over the language server
// protocol: diagnostics for definition sources, go-to-definition and hover
// on linked terms, workspace symbols for every definition, and rewrites on
// save or on command.
package lsp

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"github.com/morozRed/deflink/internal/glossary"
	"github.com/morozRed/deflink/internal/lint"
	"github.com/morozRed/deflink/internal/vault"
)

const lsName = "deflink"

// Commands understood by workspace/executeCommand.
const (
	CommandRewrite   = "deflink.rewrite"
	CommandBacklinks = "deflink.backlinks"
	CommandRefresh   = "deflink.refresh"
)

var version = "dev"

// SetVersion sets the version reported to clients during initialize.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Options configures a server. LoadVault, when set, replaces Vault with
// the vault at the workspace root announced by the client.
type Options struct {
	Vault       *vault.Vault
	LoadVault   func(root string) (*vault.Vault, error)
	Coordinator *glossary.Coordinator
	Logger      *log.Logger
}

// LanguageServer holds the open documents of one editor session.
type LanguageServer struct {
	vault       *vault.Vault
	loadVault   func(root string) (*vault.Vault, error)
	coordinator *glossary.Coordinator
	linter      *lint.Linter
	logger      *log.Logger
	handler     *protocol.Handler
	ctx         context.Context

	mu   sync.Mutex
	docs map[protocol.DocumentUri]string
}

// NewServer wires a language server for the vault in opts. The caller runs
// it with RunStdio.
func NewServer(ctx context.Context, opts Options) (*server.Server, error) {
	ls := newLanguageServer(ctx, opts)
	return server.NewServer(ls.handler, lsName, false), nil
}

func newLanguageServer(ctx context.Context, opts Options) *LanguageServer {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	coordinator := opts.Coordinator
	if coordinator == nil {
		coordinator = glossary.New(glossary.Options{Logger: logger})
	}
	ls := &LanguageServer{
		vault:       opts.Vault,
		loadVault:   opts.LoadVault,
		coordinator: coordinator,
		linter:      lint.New(),
		logger:      logger,
		ctx:         ctx,
		docs:        make(map[protocol.DocumentUri]string),
	}

	ls.handler = &protocol.Handler{
		Initialize:              ls.initialize,
		Initialized:             ls.initialized,
		Shutdown:                ls.shutdown,
		SetTrace:                ls.setTrace,
		TextDocumentDidOpen:     ls.textDocumentDidOpen,
		TextDocumentDidChange:   ls.textDocumentDidChange,
		TextDocumentDidSave:     ls.textDocumentDidSave,
		TextDocumentDidClose:    ls.textDocumentDidClose,
		TextDocumentDefinition:  ls.textDocumentDefinition,
		TextDocumentHover:       ls.textDocumentHover,
		WorkspaceSymbol:         ls.workspaceSymbol,
		WorkspaceExecuteCommand: ls.executeCommand,
	}
	return ls
}

func (ls *LanguageServer) document(uri protocol.DocumentUri) (string, bool) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	content, ok := ls.docs[uri]
	return content, ok
}

func (ls *LanguageServer) setDocument(uri protocol.DocumentUri, content string) {
	ls.mu.Lock()
	ls.docs[uri] = content
	ls.mu.Unlock()
}

func (ls *LanguageServer) closeDocument(uri protocol.DocumentUri) {
	ls.mu.Lock()
	delete(ls.docs, uri)
	ls.mu.Unlock()
}

func (ls *LanguageServer) openDocuments() map[protocol.DocumentUri]string {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	out := make(map[protocol.DocumentUri]string, len(ls.docs))
	for uri, content := range ls.docs {
		out[uri] = content
	}
	return out
}

// contentOf returns the editor buffer for uri, falling back to disk.
func (ls *LanguageServer) contentOf(uri protocol.DocumentUri) (string, string, error) {
	id, err := ls.documentID(uri)
	if err != nil {
		return "", "", err
	}
	if content, ok := ls.document(uri); ok {
		return id, content, nil
	}
	content, err := ls.vault.ReadDocument(ls.ctx, id)
	if err != nil {
		return "", "", err
	}
	return id, content, nil
}

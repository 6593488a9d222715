package lsp

import (
	"fmt"
	"strings"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/morozRed/deflink/internal/definition"
	"github.com/morozRed/deflink/internal/glossary"
)

const maxSymbols = 100

func (ls *LanguageServer) initialize(context *glsp.Context, params *protocol.InitializeParams) (any, error) {
	if root := workspaceRoot(params); root != "" && ls.loadVault != nil {
		v, err := ls.loadVault(root)
		if err != nil {
			return nil, fmt.Errorf("failed to load vault at %s: %w", root, err)
		}
		ls.vault = v
	}
	if ls.vault == nil {
		return nil, fmt.Errorf("no workspace root to serve")
	}

	capabilities := ls.handler.CreateServerCapabilities()
	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: &protocol.True,
		Change:    &syncKind,
		Save:      &protocol.SaveOptions{IncludeText: &protocol.False},
	}
	capabilities.ExecuteCommandProvider = &protocol.ExecuteCommandOptions{
		Commands: []string{CommandRewrite, CommandBacklinks, CommandRefresh},
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lsName,
			Version: &version,
		},
	}, nil
}

// workspaceRoot picks the first workspace folder, then rootUri, then
// rootPath.
func workspaceRoot(params *protocol.InitializeParams) string {
	if len(params.WorkspaceFolders) > 0 {
		if path, err := uriToPath(params.WorkspaceFolders[0].URI); err == nil {
			return path
		}
	}
	if params.RootURI != nil {
		if path, err := uriToPath(*params.RootURI); err == nil {
			return path
		}
	}
	if params.RootPath != nil {
		return *params.RootPath
	}
	return ""
}

func (ls *LanguageServer) initialized(context *glsp.Context, params *protocol.InitializedParams) error {
	if _, err := ls.coordinator.Refresh(ls.ctx, ls.vault); err != nil {
		ls.logger.Error("initial refresh failed", "err", err)
	}
	ls.logger.Info("server initialized", "root", ls.vault.Root())
	return nil
}

func (ls *LanguageServer) shutdown(context *glsp.Context) error {
	ls.logger.Info("server shutting down")
	protocol.SetTraceValue(protocol.TraceValueOff)
	return nil
}

func (ls *LanguageServer) setTrace(context *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (ls *LanguageServer) textDocumentDidOpen(context *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	ls.setDocument(params.TextDocument.URI, params.TextDocument.Text)
	ls.publish(context, params.TextDocument.URI, params.TextDocument.Text)
	return nil
}

func (ls *LanguageServer) textDocumentDidChange(context *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI
	for _, change := range params.ContentChanges {
		switch change := change.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			ls.setDocument(uri, change.Text)
		case protocol.TextDocumentContentChangeEvent:
			content, _ := ls.document(uri)
			if change.Range == nil {
				ls.setDocument(uri, change.Text)
				continue
			}
			ls.setDocument(uri, applyChange(content, *change.Range, change.Text))
		}
	}
	if content, ok := ls.document(uri); ok {
		ls.publish(context, uri, content)
	}
	return nil
}

// textDocumentDidSave refreshes the glossary when a definition source is
// saved. Other documents are rewritten in the editor buffer when auto
// rewrite is on, so the editor stays the owner of the file.
func (ls *LanguageServer) textDocumentDidSave(context *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	uri := params.TextDocument.URI
	id, err := ls.documentID(uri)
	if err != nil {
		return err
	}
	if !ls.vault.IsDocument(id) {
		return nil
	}

	if ls.vault.IsDefinitionSource(id) {
		outcome, err := ls.coordinator.OnDocumentSaved(ls.ctx, ls.vault, id)
		if err != nil {
			return err
		}
		ls.logger.Info("glossary refreshed on save", "id", id, "definitions", len(outcome.Snapshot.Definitions), "changed", outcome.GlossaryChanged)
		if outcome.GlossaryChanged {
			ls.publishAll(context)
		} else if content, ok := ls.document(uri); ok {
			ls.publish(context, uri, content)
		}
		return nil
	}

	if !ls.vault.Config().AutoRewrite {
		return nil
	}
	content, ok := ls.document(uri)
	if !ok {
		return nil
	}
	result := ls.coordinator.RewriteDocument(content)
	if result.Changed() {
		ls.applyEdit(context, "Link glossary terms", uri, content, result.Content)
	}
	return nil
}

func (ls *LanguageServer) textDocumentDidClose(context *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	ls.closeDocument(params.TextDocument.URI)
	reportDiagnostics(context, params.TextDocument.URI, nil)
	return nil
}

// definitionsAt resolves the wiki link or glossary term under pos.
func (ls *LanguageServer) definitionsAt(uri protocol.DocumentUri, pos protocol.Position) ([]definition.Definition, error) {
	_, content, err := ls.contentOf(uri)
	if err != nil {
		return nil, err
	}
	snapshot := ls.coordinator.Snapshot()
	offset := offsetAt(content, pos)

	tree := ls.coordinator.Cache().GetOrParse(content)
	if link, ok := linkAt(tree, offset); ok {
		for _, anchor := range linkAnchors(link) {
			if def, ok := snapshot.Definition(anchor); ok {
				return []definition.Definition{def}, nil
			}
		}
	}
	return termAt(content, offset, snapshot.Definitions), nil
}

func (ls *LanguageServer) location(def definition.Definition) (protocol.Location, bool) {
	uri, err := ls.documentURI(def.SourceID)
	if err != nil {
		return protocol.Location{}, false
	}
	content, ok := ls.document(uri)
	if !ok {
		content, err = ls.vault.ReadDocument(ls.ctx, def.SourceID)
		if err != nil {
			return protocol.Location{}, false
		}
	}
	span, ok := headingSpan(ls.coordinator.Cache().GetOrParse(content), def)
	if !ok {
		return protocol.Location{URI: uri}, true
	}
	return protocol.Location{URI: uri, Range: spanRange(content, span)}, true
}

func (ls *LanguageServer) textDocumentDefinition(context *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	definitions, err := ls.definitionsAt(params.TextDocument.URI, params.Position)
	if err != nil {
		return nil, err
	}
	locations := make([]protocol.Location, 0, len(definitions))
	for _, def := range definitions {
		if location, ok := ls.location(def); ok {
			locations = append(locations, location)
		}
	}
	if len(locations) == 0 {
		return nil, nil
	}
	return locations, nil
}

func (ls *LanguageServer) textDocumentHover(context *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	definitions, err := ls.definitionsAt(params.TextDocument.URI, params.Position)
	if err != nil || len(definitions) == 0 {
		return nil, err
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: hoverText(definitions),
		},
	}, nil
}

func hoverText(definitions []definition.Definition) string {
	var b strings.Builder
	for i, def := range definitions {
		if i > 0 {
			b.WriteString("\n\n---\n\n")
		}
		fmt.Fprintf(&b, "**%s**  \n`%s`", def.Heading, def.SourceID)
		if len(def.Aliases) > 1 {
			fmt.Fprintf(&b, "  \naliases: %s", strings.Join(def.Aliases[1:], ", "))
		}
	}
	return b.String()
}

func (ls *LanguageServer) workspaceSymbol(context *glsp.Context, params *protocol.WorkspaceSymbolParams) ([]protocol.SymbolInformation, error) {
	var definitions []definition.Definition
	if strings.TrimSpace(params.Query) == "" {
		definitions = ls.coordinator.Snapshot().Definitions
	} else {
		definitions = ls.coordinator.Find(params.Query, maxSymbols)
	}

	symbols := make([]protocol.SymbolInformation, 0, len(definitions))
	for _, def := range definitions {
		location, ok := ls.location(def)
		if !ok {
			continue
		}
		container := def.SourceID
		symbols = append(symbols, protocol.SymbolInformation{
			Name:          def.Heading,
			Kind:          protocol.SymbolKindKey,
			Location:      location,
			ContainerName: &container,
		})
		if len(symbols) == maxSymbols {
			break
		}
	}
	return symbols, nil
}

func (ls *LanguageServer) executeCommand(context *glsp.Context, params *protocol.ExecuteCommandParams) (any, error) {
	switch params.Command {
	case CommandRefresh:
		ls.coordinator.Cache().Purge()
		snapshot, err := ls.coordinator.Refresh(ls.ctx, ls.vault)
		if err != nil {
			return nil, err
		}
		ls.publishAll(context)
		return len(snapshot.Definitions), nil
	case CommandRewrite, CommandBacklinks:
		uri, err := commandURI(params.Arguments)
		if err != nil {
			return nil, err
		}
		id, content, err := ls.contentOf(uri)
		if err != nil {
			return nil, err
		}
		var result glossary.Result
		if params.Command == CommandRewrite {
			result = ls.coordinator.RewriteDocument(content)
		} else {
			result, err = ls.coordinator.Backlinks(ls.ctx, ls.vault, id, content)
			if err != nil {
				return nil, err
			}
		}
		if result.Changed() {
			ls.applyEdit(context, "Link glossary terms", uri, content, result.Content)
		}
		return result.Status.String(), nil
	default:
		return nil, fmt.Errorf("unknown command %q", params.Command)
	}
}

func commandURI(arguments []any) (protocol.DocumentUri, error) {
	if len(arguments) == 0 {
		return "", fmt.Errorf("command needs a document uri")
	}
	uri, ok := arguments[0].(string)
	if !ok || uri == "" {
		return "", fmt.Errorf("command needs a document uri, got %v", arguments[0])
	}
	return uri, nil
}

// applyEdit asks the client to replace the whole document. Handlers run on
// the connection's read loop, so the request is sent without waiting.
func (ls *LanguageServer) applyEdit(context *glsp.Context, label string, uri protocol.DocumentUri, before, after string) {
	params := protocol.ApplyWorkspaceEditParams{
		Label: &label,
		Edit: protocol.WorkspaceEdit{
			Changes: map[protocol.DocumentUri][]protocol.TextEdit{
				uri: {{Range: fullRange(before), NewText: after}},
			},
		},
	}
	go func() {
		var response protocol.ApplyWorkspaceEditResponse
		context.Call(protocol.ServerWorkspaceApplyEdit, params, &response)
		if !response.Applied {
			ls.logger.Warn("client did not apply edit", "uri", uri)
		}
	}()
}

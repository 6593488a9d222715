package lsp

import (
	"fmt"
	"strings"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/morozRed/deflink/internal/definition"
	"github.com/morozRed/deflink/internal/lint"
	"github.com/morozRed/deflink/internal/markdown"
)

var diagnosticSource = lsName

// sourceDiagnostics reports lint issues and conflicting aliases for the
// definition source id.
func sourceDiagnostics(id, content string, tree *markdown.Tree, issues []lint.Issue, conflicts definition.ConflictReport) []protocol.Diagnostic {
	diagnostics := make([]protocol.Diagnostic, 0, len(issues))
	for _, issue := range issues {
		severity := protocol.DiagnosticSeverityInformation
		if issue.Severity == lint.SeverityWarning {
			severity = protocol.DiagnosticSeverityWarning
		}
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range:    lineRange(content, issue.Line-1),
			Severity: &severity,
			Source:   &diagnosticSource,
			Message:  issue.Message,
		})
	}

	severity := protocol.DiagnosticSeverityWarning
	for _, conflict := range conflicts {
		for i, def := range conflict.Definitions {
			if def.SourceID != id {
				continue
			}
			span, ok := headingSpan(tree, def)
			if !ok {
				continue
			}
			diagnostics = append(diagnostics, protocol.Diagnostic{
				Range:    spanRange(content, span),
				Severity: &severity,
				Source:   &diagnosticSource,
				Message:  fmt.Sprintf("alias %q is also declared by %s", conflict.Alias, others(conflict.Definitions, i)),
			})
		}
	}
	return diagnostics
}

func others(definitions []definition.Definition, skip int) string {
	anchors := make([]string, 0, len(definitions)-1)
	for i, def := range definitions {
		if i != skip {
			anchors = append(anchors, def.Anchor())
		}
	}
	return strings.Join(anchors, ", ")
}

func reportDiagnostics(context *glsp.Context, uri string, diagnostics []protocol.Diagnostic) {
	if diagnostics == nil {
		diagnostics = []protocol.Diagnostic{}
	}
	context.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// publish recomputes diagnostics for one open document. Rewrite targets
// carry none.
func (ls *LanguageServer) publish(context *glsp.Context, uri protocol.DocumentUri, content string) {
	id, err := ls.documentID(uri)
	if err != nil || !ls.vault.IsDefinitionSource(id) {
		reportDiagnostics(context, uri, nil)
		return
	}
	issues, err := ls.linter.Check(ls.ctx, id, content)
	if err != nil {
		ls.logger.Warn("lint failed", "id", id, "err", err)
	}
	tree := ls.coordinator.Cache().GetOrParse(content)
	reportDiagnostics(context, uri, sourceDiagnostics(id, content, tree, issues, ls.coordinator.Snapshot().Conflicts))
}

func (ls *LanguageServer) publishAll(context *glsp.Context) {
	for uri, content := range ls.openDocuments() {
		ls.publish(context, uri, content)
	}
}

package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/morozRed/deflink/internal/fileutil"
	"github.com/morozRed/deflink/internal/glossary"
)

// RunRewrite links glossary terms in the given documents, or in every
// rewrite target with --all. Without --write nothing is written; a single
// document is printed instead.
func RunRewrite(cmd *cobra.Command, args []string) error {
	start := time.Now()
	rootPath, err := resolveWorkingDirectory()
	if err != nil {
		return err
	}
	all, err := OptionalBoolFlag(cmd, "all", false)
	if err != nil {
		return err
	}
	write, err := OptionalBoolFlag(cmd, "write", false)
	if err != nil {
		return err
	}
	check, err := OptionalBoolFlag(cmd, "check", false)
	if err != nil {
		return err
	}
	asJSON, err := OptionalBoolFlag(cmd, "json", false)
	if err != nil {
		return err
	}

	ws, err := openWorkspace(rootPath)
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)

	var ids []string
	switch {
	case all:
		ids, err = ws.vault.ListRewriteTargets(ctx)
	case len(args) > 0:
		ids, err = ws.documentIDs(args)
	default:
		return fmt.Errorf("no documents given; pass files or --all")
	}
	if err != nil {
		return err
	}

	snapshot, err := ws.coordinator.Refresh(ctx, ws.vault)
	if err != nil {
		return err
	}
	if snapshot.Empty() {
		fmt.Fprintf(os.Stderr, "warning: %s in %s/\n", glossary.StatusNoDefinitions, ws.cfg.DefinitionsFolder)
	}

	if len(ids) == 1 && !all && !write && !check && !asJSON {
		if ws.vault.IsDefinitionSource(ids[0]) {
			return fmt.Errorf("%s is a definition source and is never rewritten", ids[0])
		}
		content, err := ws.vault.ReadDocument(ctx, ids[0])
		if err != nil {
			return err
		}
		fmt.Print(ws.coordinator.RewriteDocument(content).Content)
		return nil
	}

	summary := RunSummary{
		Mode:        "rewrite",
		RootPath:    rootPath,
		Definitions: len(snapshot.Definitions),
		Conflicts:   len(snapshot.Conflicts),
		DryRun:      !write,
	}
	progress := newRewriteProgress(len(ids), asJSON)
	for _, id := range ids {
		if ws.vault.IsDefinitionSource(id) {
			progress.Step(id, stepSource)
			continue
		}
		summary.Targets++
		content, err := ws.vault.ReadDocument(ctx, id)
		if err != nil {
			progress.Finish()
			return err
		}
		result := ws.coordinator.RewriteDocument(content)
		if !result.Changed() {
			summary.Unchanged++
			progress.Step(id, stepUnchanged)
			continue
		}
		summary.Rewritten++
		summary.RewrittenFiles = append(summary.RewrittenFiles, id)
		if write {
			if _, err := ws.vault.WriteDocument(ctx, id, result.Content); err != nil {
				progress.Finish()
				return err
			}
		}
		progress.Step(id, stepLinked)
	}
	progress.Finish()

	if write && summary.Rewritten > 0 {
		if _, err := ws.saveState(ctx, snapshot); err != nil {
			return err
		}
	}

	stats := ws.coordinator.Cache().Stats()
	summary.Cache = &stats
	summary.DurationMS = time.Since(start).Milliseconds()
	if err := PrintRunSummary(summary, asJSON); err != nil {
		return err
	}
	if check && summary.Rewritten > 0 {
		return fmt.Errorf("%d documents have unlinked glossary terms; run deflink rewrite --all --write", summary.Rewritten)
	}
	return nil
}

// saveState rescans the vault and stores its state after documents were
// written.
func (ws *workspace) saveState(ctx context.Context, snapshot *glossary.Snapshot) (map[string]string, error) {
	stateDir := ws.vault.StateDir()
	hashes, err := ws.vault.ScanHashes()
	if err != nil {
		return nil, err
	}
	st, err := loadState(stateDir, "rebuilding it")
	if err != nil {
		return nil, err
	}
	if err := ws.recordState(ctx, st, snapshot, hashes); err != nil {
		return nil, err
	}
	if err := st.Save(stateDir); err != nil {
		return nil, fmt.Errorf("failed to persist state: %w", err)
	}
	return hashes, nil
}

// RunBacklinks links the base names of every other document in one
// document.
func RunBacklinks(cmd *cobra.Command, args []string) error {
	rootPath, err := resolveWorkingDirectory()
	if err != nil {
		return err
	}
	write, err := OptionalBoolFlag(cmd, "write", false)
	if err != nil {
		return err
	}

	ws, err := openWorkspace(rootPath)
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)
	ids, err := ws.documentIDs(args[:1])
	if err != nil {
		return err
	}
	id := ids[0]

	content, err := ws.vault.ReadDocument(ctx, id)
	if err != nil {
		return err
	}
	result, err := ws.coordinator.Backlinks(ctx, ws.vault, id, content)
	if err != nil {
		return err
	}
	if !write {
		fmt.Print(result.Content)
		return nil
	}
	if result.Changed() {
		if _, err := ws.vault.WriteDocument(ctx, id, result.Content); err != nil {
			return err
		}
	}
	fmt.Printf("backlinks: %s %s\n", id, result.Status)
	return nil
}

type spanRecord struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
}

// RunSpans prints the prose spans of a document that glossary terms may be
// linked in.
func RunSpans(cmd *cobra.Command, args []string) error {
	rootPath, err := resolveWorkingDirectory()
	if err != nil {
		return err
	}
	asJSON, err := OptionalBoolFlag(cmd, "json", false)
	if err != nil {
		return err
	}

	ws, err := openWorkspace(rootPath)
	if err != nil {
		return err
	}
	ids, err := ws.documentIDs(args[:1])
	if err != nil {
		return err
	}
	content, err := ws.vault.ReadDocument(commandContext(cmd), ids[0])
	if err != nil {
		return err
	}

	spans := ws.coordinator.ProseSpans(content)
	records := make([]spanRecord, 0, len(spans))
	for _, span := range spans {
		records = append(records, spanRecord{Start: span.Start, End: span.End, Text: span.Slice(content)})
	}

	if asJSON {
		return fileutil.PrintJSON(map[string]any{
			"document": ids[0],
			"spans":    records,
		})
	}
	fmt.Printf("prose spans for %s (%d)\n", ids[0], len(records))
	for _, record := range records {
		fmt.Printf("- %d..%d %q\n", record.Start, record.End, record.Text)
	}
	return nil
}

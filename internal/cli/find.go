package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/morozRed/deflink/internal/definition"
	"github.com/morozRed/deflink/internal/fileutil"
	"github.com/morozRed/deflink/internal/index"
)

// RunFind ranks glossary definitions against a query, reading the indexed
// glossary when one exists.
func RunFind(cmd *cobra.Command, args []string) error {
	rootPath, err := resolveWorkingDirectory()
	if err != nil {
		return err
	}
	asJSON, err := OptionalBoolFlag(cmd, "json", false)
	if err != nil {
		return err
	}
	limit, err := OptionalIntFlag(cmd, "limit", 10)
	if err != nil {
		return err
	}

	ws, err := openWorkspace(rootPath)
	if err != nil {
		return err
	}
	if _, err := ws.loadIndexed(commandContext(cmd)); err != nil {
		return err
	}

	query := strings.Join(args, " ")
	matches := ws.coordinator.Find(query, limit)
	if len(matches) == 0 {
		return fmt.Errorf("no definition matches %q", query)
	}

	if asJSON {
		return fileutil.PrintJSON(map[string]any{
			"query":   query,
			"matches": matches,
		})
	}

	fmt.Printf("definitions matching %q (%d)\n", query, len(matches))
	for _, def := range matches {
		fmt.Printf("- %s\n", def.Anchor())
		if len(def.Aliases) > 1 {
			fmt.Printf("  aliases: %s\n", strings.Join(def.Aliases[1:], ", "))
		}
	}
	return nil
}

// RunOpen opens the document defining a term. The argument may be an alias,
// a "<source>#<heading>" anchor or a document id.
func RunOpen(cmd *cobra.Command, args []string) error {
	rootPath, err := resolveWorkingDirectory()
	if err != nil {
		return err
	}
	ws, err := openWorkspace(rootPath)
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)
	snapshot, err := ws.loadIndexed(ctx)
	if err != nil {
		return err
	}

	target := strings.TrimSpace(args[0])
	if _, ok := snapshot.Definition(target); ok {
		return ws.coordinator.OpenBySourceID(ctx, target, ws.vault)
	}

	matches, err := lookupTerm(ws, target)
	if err != nil {
		return err
	}
	switch len(matches) {
	case 0:
		return ws.coordinator.OpenBySourceID(ctx, filepath.ToSlash(target), ws.vault)
	case 1:
		return ws.coordinator.OpenBySourceID(ctx, matches[0].Anchor(), ws.vault)
	default:
		anchors := make([]string, 0, len(matches))
		for _, def := range matches {
			anchors = append(anchors, def.Anchor())
		}
		return fmt.Errorf("%q is declared by %d definitions: %s", target, len(matches), strings.Join(anchors, ", "))
	}
}

// lookupTerm resolves an alias through the index, falling back to the
// published snapshot when the vault has no index yet.
func lookupTerm(ws *workspace, term string) ([]definition.Definition, error) {
	indexPath := filepath.Join(ws.vault.StateDir(), index.FileName)
	if !fileExists(indexPath) {
		return ws.coordinator.Resolve(term), nil
	}
	db, err := index.Open(indexPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return db.Lookup(term)
}

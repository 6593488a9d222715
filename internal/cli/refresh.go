package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/morozRed/deflink/internal/fileutil"
	"github.com/morozRed/deflink/internal/glossary"
)

// RunRefresh rebuilds the glossary from the definitions folder and stores
// it in the index and the vault state.
func RunRefresh(cmd *cobra.Command, args []string) error {
	start := time.Now()
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
	snapshot, hashes, err := ws.refreshAll(commandContext(cmd))
	if err != nil {
		return err
	}
	if !asJSON {
		reportConflicts(snapshot.Conflicts)
	}

	sources, targets := ws.splitDocuments(hashes)
	return PrintRunSummary(RunSummary{
		Mode:        "refresh",
		RootPath:    rootPath,
		Scanned:     len(hashes),
		Sources:     len(sources),
		Definitions: len(snapshot.Definitions),
		Conflicts:   len(snapshot.Conflicts),
		Targets:     len(targets),
		DurationMS:  time.Since(start).Milliseconds(),
	}, asJSON)
}

// refreshAll refreshes the glossary, then stores the index and the vault
// state.
func (ws *workspace) refreshAll(ctx context.Context) (*glossary.Snapshot, map[string]string, error) {
	snapshot, err := ws.coordinator.Refresh(ctx, ws.vault)
	if err != nil {
		return nil, nil, err
	}
	if err := storeIndex(ws.vault.StateDir(), snapshot); err != nil {
		return nil, nil, err
	}
	hashes, err := ws.saveState(ctx, snapshot)
	if err != nil {
		return nil, nil, err
	}
	return snapshot, hashes, nil
}

var errConflicts = errors.New("conflicting aliases found")

// RunConflicts prints every alias declared by more than one definition.
func RunConflicts(cmd *cobra.Command, args []string) error {
	rootPath, err := resolveWorkingDirectory()
	if err != nil {
		return err
	}
	asJSON, err := OptionalBoolFlag(cmd, "json", false)
	if err != nil {
		return err
	}
	fail, err := OptionalBoolFlag(cmd, "fail", false)
	if err != nil {
		return err
	}

	ws, err := openWorkspace(rootPath)
	if err != nil {
		return err
	}
	snapshot, err := ws.coordinator.Refresh(commandContext(cmd), ws.vault)
	if err != nil {
		return err
	}
	conflicts := snapshot.Conflicts

	if asJSON {
		if err := fileutil.PrintJSON(map[string]any{
			"definitions": len(snapshot.Definitions),
			"conflicts":   conflicts,
		}); err != nil {
			return err
		}
	} else if len(conflicts) == 0 {
		fmt.Printf("no conflicts across %d definitions\n", len(snapshot.Definitions))
	} else {
		fmt.Printf("conflicts (%d)\n", len(conflicts))
		for _, conflict := range conflicts {
			fmt.Printf("- %s\n", conflict.Alias)
			for _, def := range conflict.Definitions {
				fmt.Printf("  %s\n", def.Anchor())
			}
		}
	}

	if fail && len(conflicts) > 0 {
		fmt.Fprintf(os.Stderr, "%d aliases are declared more than once\n", len(conflicts))
		return errConflicts
	}
	return nil
}

package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/morozRed/deflink/internal/config"
	"github.com/morozRed/deflink/internal/fileutil"
	"github.com/morozRed/deflink/internal/ignore"
	"github.com/morozRed/deflink/internal/state"
)

const ignoreTemplate = `# Paths deflink never reads or rewrites, in .gitignore syntax.
# Lines starting with "re:" are regular expressions over the whole path.
# .git/, .deflink/, .obsidian/, .trash/ and node_modules/ are always ignored,
# as are the vault's Obsidian "Excluded files".
`

func RunInit(cmd *cobra.Command, args []string) error {
	rootPath, err := resolveWorkingDirectory()
	if err != nil {
		return err
	}
	folder, err := OptionalStringFlag(cmd, "definitions")
	if err != nil {
		return err
	}

	var cfg config.Config
	if fileExists(filepath.Join(rootPath, config.FileName)) {
		cfg, err = config.Load(rootPath)
		if err != nil {
			return err
		}
		fmt.Printf("Using existing %s\n", config.FileName)
	} else {
		cfg = config.Default()
		if folder != "" {
			cfg.DefinitionsFolder = folder
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := config.Write(rootPath, cfg); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", config.FileName)
	}

	if err := fileutil.WriteIfMissing(filepath.Join(rootPath, ignore.File), []byte(ignoreTemplate), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", ignore.File, err)
	}

	definitionsDir := filepath.Join(rootPath, filepath.FromSlash(cfg.DefinitionsFolder))
	if err := os.MkdirAll(definitionsDir, 0755); err != nil {
		return fmt.Errorf("failed to create definitions folder: %w", err)
	}

	stateDir := filepath.Join(rootPath, config.StateDir)
	if !fileExists(filepath.Join(stateDir, state.StateFile)) {
		if err := state.NewState().Save(stateDir); err != nil {
			return fmt.Errorf("failed to write initial state: %w", err)
		}
	}
	fmt.Printf("Initialized vault at %s (definitions in %s/)\n", rootPath, cfg.DefinitionsFolder)

	noRefresh, err := OptionalBoolFlag(cmd, "no-refresh", false)
	if err != nil {
		return err
	}
	if noRefresh {
		return nil
	}

	ws, err := newWorkspace(rootPath, cfg)
	if err != nil {
		return err
	}
	fmt.Println("Running initial refresh...")
	snapshot, _, err := ws.refreshAll(commandContext(cmd))
	if err != nil {
		return err
	}
	reportConflicts(snapshot.Conflicts)
	fmt.Printf("glossary: definitions=%d conflicts=%d\n", len(snapshot.Definitions), len(snapshot.Conflicts))
	return nil
}

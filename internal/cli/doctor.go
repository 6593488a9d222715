package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/morozRed/deflink/internal/config"
	"github.com/morozRed/deflink/internal/fileutil"
	"github.com/morozRed/deflink/internal/index"
	"github.com/morozRed/deflink/internal/state"
)

func RunDoctor(cmd *cobra.Command, args []string) error {
	rootPath, err := resolveWorkingDirectory()
	if err != nil {
		return err
	}
	asJSON, err := OptionalBoolFlag(cmd, "json", false)
	if err != nil {
		return err
	}

	summary := DoctorSummary{
		Mode:     "doctor",
		RootPath: rootPath,
		StateDir: filepath.Join(rootPath, config.StateDir),
		Config:   "default",
	}
	if fileExists(filepath.Join(rootPath, config.FileName)) {
		summary.Config = config.FileName
	} else {
		summary.Missing = append(summary.Missing, config.FileName)
		summary.Suggestions = append(summary.Suggestions, "run deflink init")
	}

	cfg, err := config.Load(rootPath)
	if err != nil {
		summary.Config = "invalid"
		summary.Missing = append(summary.Missing, "valid "+config.FileName)
		summary.Suggestions = append(summary.Suggestions, "fix "+err.Error())
		return printDoctorSummary(summary, asJSON)
	}
	ws, err := newWorkspace(rootPath, cfg)
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)

	summary.Opener = ws.vault.ProbeOpener()
	if !summary.Opener.Available {
		summary.Missing = append(summary.Missing, "open command on PATH")
		summary.Suggestions = append(summary.Suggestions, "set open_command in "+config.FileName+" or $EDITOR")
	}

	if info, err := os.Stat(filepath.Join(rootPath, filepath.FromSlash(cfg.DefinitionsFolder))); err != nil || !info.IsDir() {
		summary.Missing = append(summary.Missing, "definitions folder "+cfg.DefinitionsFolder+"/")
		summary.Suggestions = append(summary.Suggestions, "run deflink init")
	}

	snapshot, err := ws.coordinator.Refresh(ctx, ws.vault)
	if err != nil {
		return err
	}
	summary.Sources = len(snapshot.Sources)
	summary.Definitions = len(snapshot.Definitions)
	summary.Conflicts = len(snapshot.Conflicts)
	if summary.Conflicts > 0 {
		summary.Suggestions = append(summary.Suggestions, "run deflink conflicts")
	}

	indexPath := filepath.Join(summary.StateDir, index.FileName)
	if fileExists(indexPath) {
		db, err := index.Open(indexPath)
		if err != nil {
			return err
		}
		summary.Indexed, err = db.Count()
		db.Close()
		if err != nil {
			return err
		}
	} else {
		summary.Missing = append(summary.Missing, index.FileName)
	}

	hasState := fileExists(filepath.Join(summary.StateDir, state.StateFile))
	if !hasState {
		summary.Missing = append(summary.Missing, state.StateFile)
	} else if st, err := state.Load(summary.StateDir); err != nil {
		summary.Missing = append(summary.Missing, "valid state file")
	} else {
		hashes, err := ws.vault.ScanHashes()
		if err != nil {
			return err
		}
		summary.Changed = len(st.ChangedFiles(hashes))
		summary.Deleted = len(st.DeletedFiles(fileutil.ToSet(sortedKeys(hashes))))
		summary.Clean = summary.Changed == 0 && summary.Deleted == 0 &&
			st.Glossary == GlossaryFingerprint(snapshot.Definitions) &&
			summary.Indexed == summary.Definitions
	}
	if !summary.Clean {
		summary.Suggestions = append(summary.Suggestions, "run deflink refresh")
	}

	summary.Missing = fileutil.DedupeStrings(summary.Missing)
	sort.Strings(summary.Missing)
	summary.Suggestions = fileutil.DedupeStrings(summary.Suggestions)
	sort.Strings(summary.Suggestions)
	summary.Healthy = summary.Clean && summary.Conflicts == 0 && len(summary.Missing) == 0
	return printDoctorSummary(summary, asJSON)
}

func printDoctorSummary(summary DoctorSummary, asJSON bool) error {
	if asJSON {
		return fileutil.PrintJSON(summary)
	}

	status := "issues"
	if summary.Healthy {
		status = "ok"
	}
	fmt.Printf("doctor: %s\n", status)
	fmt.Printf("config: %s\n", summary.Config)
	fmt.Printf("glossary: sources=%d definitions=%d indexed=%d conflicts=%d\n", summary.Sources, summary.Definitions, summary.Indexed, summary.Conflicts)
	fmt.Printf("state: clean=%t changed=%d deleted=%d\n", summary.Clean, summary.Changed, summary.Deleted)
	opener := summary.Opener.Origin
	if summary.Opener.Command != "" {
		opener = fmt.Sprintf("%s (%s)", summary.Opener.Command, summary.Opener.Origin)
	}
	fmt.Printf("open: %s available=%t\n", opener, summary.Opener.Available)
	if len(summary.Missing) > 0 {
		fmt.Printf("missing (%d): %s\n", len(summary.Missing), strings.Join(summary.Missing, ", "))
	}
	for _, suggestion := range summary.Suggestions {
		fmt.Printf("next: %s\n", suggestion)
	}
	return nil
}

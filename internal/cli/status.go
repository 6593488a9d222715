package cli

import (
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/morozRed/deflink/internal/fileutil"
	"github.com/morozRed/deflink/internal/index"
)

// RunStatus shows which documents changed since the last refresh and which
// targets a rewrite pass would touch.
func RunStatus(cmd *cobra.Command, args []string) error {
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
	stateDir := ws.vault.StateDir()
	st, err := loadState(stateDir, "treating all files as changed")
	if err != nil {
		return err
	}

	hashes, err := ws.vault.ScanHashes()
	if err != nil {
		return err
	}
	changed := st.ChangedFiles(hashes)
	deleted := st.DeletedFiles(fileutil.ToSet(sortedKeys(hashes)))
	sources, targets := ws.splitDocuments(hashes)
	impacted, reasons := fileutil.ImpactedWithReasons(st, changed, deleted, targets)

	summary := RunSummary{
		Mode:          "status",
		RootPath:      rootPath,
		Scanned:       len(hashes),
		Sources:       len(sources),
		Targets:       len(targets),
		Changed:       len(changed),
		Deleted:       len(deleted),
		Impacted:      len(impacted),
		Unchanged:     MaxInt(len(hashes)-len(changed), 0),
		ChangedFiles:  changed,
		DeletedFiles:  deleted,
		ImpactedFiles: impacted,
		Reasons:       reasons,
	}

	indexPath := filepath.Join(stateDir, index.FileName)
	if fileExists(indexPath) {
		db, err := index.Open(indexPath)
		if err != nil {
			return err
		}
		defer db.Close()
		if summary.Definitions, err = db.Count(); err != nil {
			return err
		}
	}

	summary.DurationMS = time.Since(start).Milliseconds()
	return PrintRunSummary(summary, asJSON)
}

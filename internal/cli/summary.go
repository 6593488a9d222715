package cli

import (
	"fmt"
	"strings"

	"github.com/morozRed/deflink/internal/astcache"
	"github.com/morozRed/deflink/internal/fileutil"
	"github.com/morozRed/deflink/internal/vault"
)

type RunSummary struct {
	Mode           string              `json:"mode"`
	RootPath       string              `json:"root_path"`
	Scanned        int                 `json:"scanned"`
	Sources        int                 `json:"sources"`
	Definitions    int                 `json:"definitions"`
	Conflicts      int                 `json:"conflicts"`
	Targets        int                 `json:"targets"`
	Rewritten      int                 `json:"rewritten"`
	Unchanged      int                 `json:"unchanged"`
	Changed        int                 `json:"changed"`
	Deleted        int                 `json:"deleted"`
	Impacted       int                 `json:"impacted"`
	DryRun         bool                `json:"dry_run,omitempty"`
	DurationMS     int64               `json:"duration_ms"`
	ChangedFiles   []string            `json:"changed_files,omitempty"`
	DeletedFiles   []string            `json:"deleted_files,omitempty"`
	ImpactedFiles  []string            `json:"impacted_files,omitempty"`
	RewrittenFiles []string            `json:"rewritten_files,omitempty"`
	Reasons        map[string][]string `json:"reasons,omitempty"`
	Cache          *astcache.Stats     `json:"cache,omitempty"`
}

type DoctorSummary struct {
	Mode        string       `json:"mode"`
	RootPath    string       `json:"root_path"`
	StateDir    string       `json:"state_dir"`
	Config      string       `json:"config"`
	Healthy     bool         `json:"healthy"`
	Clean       bool         `json:"clean"`
	Changed     int          `json:"changed"`
	Deleted     int          `json:"deleted"`
	Sources     int          `json:"sources"`
	Definitions int          `json:"definitions"`
	Indexed     int          `json:"indexed"`
	Conflicts   int          `json:"conflicts"`
	Opener      vault.Opener `json:"opener"`
	Missing     []string     `json:"missing,omitempty"`
	Suggestions []string     `json:"suggestions,omitempty"`
}

func PrintRunSummary(summary RunSummary, asJSON bool) error {
	if asJSON {
		return fileutil.PrintJSON(summary)
	}

	mode := summary.Mode
	if summary.DryRun {
		mode += " (dry-run)"
	}

	switch summary.Mode {
	case "refresh":
		fmt.Printf("%s complete in %dms\n", mode, summary.DurationMS)
		fmt.Printf("glossary: sources=%d definitions=%d conflicts=%d\n", summary.Sources, summary.Definitions, summary.Conflicts)
		fmt.Printf("documents: scanned=%d targets=%d\n", summary.Scanned, summary.Targets)
	case "rewrite":
		fmt.Printf("%s: targets=%d rewritten=%d unchanged=%d definitions=%d duration=%dms\n",
			mode,
			summary.Targets,
			summary.Rewritten,
			summary.Unchanged,
			summary.Definitions,
			summary.DurationMS,
		)
		if len(summary.RewrittenFiles) > 0 {
			fmt.Printf("rewritten files (%d): %s\n", len(summary.RewrittenFiles), SummarizePaths(summary.RewrittenFiles, 8))
		}
		if summary.Cache != nil {
			fmt.Printf("cache: size=%d/%d hits=%d misses=%d evictions=%d\n",
				summary.Cache.Size, summary.Cache.Capacity, summary.Cache.Hits, summary.Cache.Misses, summary.Cache.Evictions)
		}
		return nil
	default:
		fmt.Printf(
			"%s: scanned=%d sources=%d targets=%d changed=%d deleted=%d impacted=%d duration=%dms\n",
			mode,
			summary.Scanned,
			summary.Sources,
			summary.Targets,
			summary.Changed,
			summary.Deleted,
			summary.Impacted,
			summary.DurationMS,
		)
	}

	if len(summary.ChangedFiles) > 0 {
		fmt.Printf("changed files (%d): %s\n", len(summary.ChangedFiles), SummarizePaths(summary.ChangedFiles, 8))
	}
	if len(summary.DeletedFiles) > 0 {
		fmt.Printf("deleted files (%d): %s\n", len(summary.DeletedFiles), SummarizePaths(summary.DeletedFiles, 8))
	}
	if len(summary.ImpactedFiles) > 0 {
		fmt.Printf("impacted files (%d): %s\n", len(summary.ImpactedFiles), SummarizePaths(summary.ImpactedFiles, 8))
	}
	if len(summary.Reasons) > 0 {
		for _, file := range summary.ImpactedFiles {
			reasons := summary.Reasons[file]
			if len(reasons) == 0 {
				continue
			}
			fmt.Printf("  %s <- %s\n", file, strings.Join(reasons, "; "))
		}
	}

	return nil
}

func SummarizePaths(paths []string, max int) string {
	if len(paths) <= max {
		return strings.Join(paths, ", ")
	}
	return fmt.Sprintf("%s ... (+%d more)", strings.Join(paths[:max], ", "), len(paths)-max)
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/morozRed/deflink/internal/fileutil"
	"github.com/morozRed/deflink/internal/lint"
)

// RunLint checks every definition source for headings and alias lines that
// are not picked up as definitions.
func RunLint(cmd *cobra.Command, args []string) error {
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
	ctx := commandContext(cmd)
	sources, err := ws.vault.ListDefinitionSources(ctx)
	if err != nil {
		return err
	}

	linter := lint.New()
	issues := make([]lint.Issue, 0)
	for _, source := range sources {
		found, err := linter.Check(ctx, source.ID, source.Content)
		if err != nil {
			return err
		}
		issues = append(issues, found...)
	}

	if asJSON {
		return fileutil.PrintJSON(map[string]any{
			"sources": len(sources),
			"issues":  issues,
		})
	}
	fmt.Printf("lint: sources=%d issues=%d\n", len(sources), len(issues))
	for _, issue := range issues {
		fmt.Println(issue.String())
	}
	return nil
}

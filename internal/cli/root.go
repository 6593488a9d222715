package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewRootCommand(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "deflink",
		Short: "Link glossary terms across a markdown vault",
		Long: `Deflink reads glossary definitions from a folder of markdown notes and
turns every mention of a defined term elsewhere in the vault into a wiki
link to its definition.

A definition is a level-1 heading followed by an "aliases:" line. State and
the glossary index live in .deflink/; settings live in .deflink.yml.`,
		SilenceUsage: true,
	}

	// Setup Commands
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create .deflink.yml, the definitions folder and initial state",
		RunE:  RunInit,
	}
	initCmd.Flags().String("definitions", "", "Definitions folder relative to the vault root")
	initCmd.Flags().Bool("no-refresh", false, "Skip the initial glossary refresh")

	// Glossary Commands
	refreshCmd := &cobra.Command{
		Use:   "refresh",
		Short: "Rebuild the glossary from the definitions folder",
		RunE:  RunRefresh,
	}
	refreshCmd.Flags().Bool("json", false, "Print machine-readable run summary")

	conflictsCmd := &cobra.Command{
		Use:   "conflicts",
		Short: "List aliases declared by more than one definition",
		RunE:  RunConflicts,
	}
	conflictsCmd.Flags().Bool("json", false, "Print machine-readable conflicts")
	conflictsCmd.Flags().Bool("fail", false, "Exit with an error when conflicts exist")

	lintCmd := &cobra.Command{
		Use:   "lint",
		Short: "Report headings and alias lines that do not parse as definitions",
		RunE:  RunLint,
	}
	lintCmd.Flags().Bool("json", false, "Print machine-readable issues")

	// Rewrite Commands
	rewriteCmd := &cobra.Command{
		Use:   "rewrite [file...]",
		Short: "Link glossary terms in documents",
		RunE:  RunRewrite,
	}
	rewriteCmd.Flags().Bool("all", false, "Rewrite every document outside the definitions folder")
	rewriteCmd.Flags().Bool("write", false, "Write rewritten documents back to disk")
	rewriteCmd.Flags().Bool("check", false, "Fail when any document would change")
	rewriteCmd.Flags().Bool("json", false, "Print machine-readable run summary")

	backlinksCmd := &cobra.Command{
		Use:   "backlinks <file>",
		Short: "Link other documents' text that mentions terms linked from file",
		Args:  cobra.ExactArgs(1),
		RunE:  RunBacklinks,
	}
	backlinksCmd.Flags().Bool("write", false, "Write the result back to disk")

	spansCmd := &cobra.Command{
		Use:   "spans <file>",
		Short: "Show the prose spans eligible for linking",
		Args:  cobra.ExactArgs(1),
		RunE:  RunSpans,
	}
	spansCmd.Flags().Bool("json", false, "Print machine-readable spans")

	// Navigate Commands
	findCmd := &cobra.Command{
		Use:   "find <query>",
		Short: "Search definitions by heading and alias",
		Args:  cobra.MinimumNArgs(1),
		RunE:  RunFind,
	}
	findCmd.Flags().Bool("json", false, "Print machine-readable matches")
	findCmd.Flags().Int("limit", 10, "Maximum number of matches to return")

	openCmd := &cobra.Command{
		Use:   "open <term|anchor|file>",
		Short: "Open the document that defines a term",
		Args:  cobra.ExactArgs(1),
		RunE:  RunOpen,
	}

	// Inspect Commands
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show what changed since the last refresh or rewrite",
		RunE:  RunStatus,
	}
	statusCmd.Flags().Bool("json", false, "Print machine-readable status output")

	doctorCmd := &cobra.Command{
		Use:   "doctor",
		Short: "Validate deflink setup and glossary freshness",
		RunE:  RunDoctor,
	}
	doctorCmd.Flags().Bool("json", false, "Print machine-readable doctor output")

	// Long-running Commands
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the glossary current and rewrite documents as they change",
		RunE:  RunWatch,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the language server on stdio",
		RunE:  RunServe(version),
	}

	// Additional Commands
	installHookCmd := &cobra.Command{
		Use:   "install-hook",
		Short: "Install git pre-commit hook that checks for unlinked terms",
		RunE:  RunInstallHook,
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("deflink %s\n", version)
		},
	}

	rootCmd.AddCommand(
		initCmd,
		refreshCmd,
		conflictsCmd,
		lintCmd,
		rewriteCmd,
		backlinksCmd,
		spansCmd,
		findCmd,
		openCmd,
		statusCmd,
		doctorCmd,
		watchCmd,
		serveCmd,
		installHookCmd,
		versionCmd,
	)

	return rootCmd
}

package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/morozRed/deflink/internal/config"
	"github.com/morozRed/deflink/internal/fileutil"
)

const (
	HookStart = "# >>> deflink rewrite hook >>>"
	HookEnd   = "# <<< deflink rewrite hook <<<"
)

func RunInstallHook(cmd *cobra.Command, args []string) error {
	rootPath, err := resolveWorkingDirectory()
	if err != nil {
		return err
	}

	_, gitDir, err := ResolveGitPaths(rootPath)
	if err != nil {
		return err
	}

	hookPath := filepath.Join(gitDir, "hooks", "pre-commit")
	if err := os.MkdirAll(filepath.Dir(hookPath), 0755); err != nil {
		return fmt.Errorf("failed to create hook directory: %w", err)
	}

	existing := ""
	if data, err := os.ReadFile(hookPath); err == nil {
		existing = string(data)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to read existing hook: %w", err)
	}

	updated := UpsertDeflinkHook(existing, rootPath)
	if err := os.WriteFile(hookPath, []byte(updated), 0755); err != nil {
		return fmt.Errorf("failed to write hook: %w", err)
	}

	fmt.Printf("Installed pre-commit hook at %s\n", hookPath)
	return nil
}

func ResolveGitPaths(workingDir string) (repoRoot string, gitDir string, err error) {
	repoRootOut, err := exec.Command("git", "-C", workingDir, "rev-parse", "--show-toplevel").Output()
	if err != nil {
		return "", "", fmt.Errorf("not inside a git repository")
	}

	gitDirOut, err := exec.Command("git", "-C", workingDir, "rev-parse", "--git-dir").Output()
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve git directory: %w", err)
	}

	repoRoot = strings.TrimSpace(string(repoRootOut))
	gitDir = strings.TrimSpace(string(gitDirOut))
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(repoRoot, gitDir)
	}
	return repoRoot, gitDir, nil
}

// UpsertDeflinkHook installs or replaces the deflink block in a pre-commit
// hook, keeping everything else in the hook as is.
func UpsertDeflinkHook(existingHook, vaultRoot string) string {
	block := BuildDeflinkHookBlock(vaultRoot)

	if existingHook == "" {
		return "#!/bin/sh\n\n" + block + "\n"
	}

	start := strings.Index(existingHook, HookStart)
	end := strings.Index(existingHook, HookEnd)
	if start >= 0 && end >= start {
		end += len(HookEnd)
		updated := existingHook[:start] + block + existingHook[end:]
		return fileutil.EnsureTrailingNewline(updated)
	}

	base := fileutil.EnsureTrailingNewline(existingHook)
	if !strings.HasPrefix(base, "#!") {
		base = "#!/bin/sh\n" + base
	}
	return base + "\n" + block + "\n"
}

// BuildDeflinkHookBlock fails the commit when a document in the vault has
// unlinked glossary terms.
func BuildDeflinkHookBlock(vaultRoot string) string {
	return fmt.Sprintf(
		"%s\nvault_root=%q\nif command -v deflink >/dev/null 2>&1 && [ -f \"$vault_root/%s\" ]; then\n  (cd \"$vault_root\" && deflink rewrite --all --check) || {\n    echo \"deflink: run 'deflink rewrite --all --write' to link glossary terms\" >&2\n    exit 1\n  }\nfi\n%s",
		HookStart,
		vaultRoot,
		config.FileName,
		HookEnd,
	)
}

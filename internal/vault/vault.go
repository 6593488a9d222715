// Package vault exposes a directory of markdown documents to the glossary
// coordinator.
package vault

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/morozRed/deflink/internal/config"
	"github.com/morozRed/deflink/internal/fileutil"
	"github.com/morozRed/deflink/internal/glossary"
)

// Vault is a filesystem host rooted at a directory. Document ids are
// slash-separated paths relative to that directory.
type Vault struct {
	root        string
	cfg         config.Config
	ignoreRules []string
	out         io.Writer
}

// New returns the vault rooted at root. ignoreRules are applied on top of
// the default ignores.
func New(root string, cfg config.Config, ignoreRules []string) *Vault {
	return &Vault{root: root, cfg: cfg, ignoreRules: ignoreRules, out: os.Stdout}
}

// SetOutput changes where Open prints paths when no opener is configured.
func (v *Vault) SetOutput(w io.Writer) {
	v.out = w
}

func (v *Vault) Root() string {
	return v.root
}

func (v *Vault) Config() config.Config {
	return v.cfg
}

// IgnoreRules returns the user rules applied on top of the defaults.
func (v *Vault) IgnoreRules() []string {
	return v.ignoreRules
}

// StateDir is where state and the glossary index live.
func (v *Vault) StateDir() string {
	return filepath.Join(v.root, config.StateDir)
}

// ScanHashes hashes every document in the vault.
func (v *Vault) ScanHashes() (map[string]string, error) {
	hashes, err := fileutil.ScanFileHashes(v.root, v.cfg.Extensions, v.ignoreRules)
	if err != nil {
		return nil, fmt.Errorf("failed to scan vault: %w", err)
	}
	return hashes, nil
}

// Documents returns every document id in the vault, sorted.
func (v *Vault) Documents() ([]string, error) {
	hashes, err := v.ScanHashes()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(hashes))
	for id := range hashes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (v *Vault) IsDefinitionSource(id string) bool {
	return v.cfg.IsDefinitionSource(id)
}

// IsDocument reports whether id has one of the configured extensions.
func (v *Vault) IsDocument(id string) bool {
	return fileutil.HasExtension(id, v.cfg.Extensions)
}

func (v *Vault) ListDefinitionSources(ctx context.Context) ([]glossary.Source, error) {
	ids, err := v.Documents()
	if err != nil {
		return nil, err
	}
	sources := make([]glossary.Source, 0)
	for _, id := range ids {
		if !v.IsDefinitionSource(id) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		content, err := v.ReadDocument(ctx, id)
		if err != nil {
			return nil, err
		}
		sources = append(sources, glossary.Source{ID: id, Content: content})
	}
	return sources, nil
}

func (v *Vault) ListRewriteTargets(context.Context) ([]string, error) {
	ids, err := v.Documents()
	if err != nil {
		return nil, err
	}
	targets := make([]string, 0, len(ids))
	for _, id := range ids {
		if !v.IsDefinitionSource(id) {
			targets = append(targets, id)
		}
	}
	return targets, nil
}

func (v *Vault) ReadDocument(_ context.Context, id string) (string, error) {
	abs, err := v.Abs(id)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", id, err)
	}
	return string(data), nil
}

// WriteDocument writes content only when it differs from what is on disk.
func (v *Vault) WriteDocument(_ context.Context, id, content string) (bool, error) {
	abs, err := v.Abs(id)
	if err != nil {
		return false, err
	}
	written, err := fileutil.WriteIfChanged(abs, []byte(content))
	if err != nil {
		return false, fmt.Errorf("failed to write %s: %w", id, err)
	}
	return written, nil
}

// Open runs the configured open command, then $EDITOR, with the absolute
// path of id. With neither set the path is printed.
func (v *Vault) Open(ctx context.Context, id string) error {
	abs, err := v.Abs(id)
	if err != nil {
		return err
	}
	if _, err := os.Stat(abs); err != nil {
		return fmt.Errorf("failed to open %s: %w", id, err)
	}

	command := v.cfg.OpenCommand
	if command == "" {
		command = os.Getenv("EDITOR")
	}
	fields := strings.Fields(command)
	if len(fields) == 0 {
		_, err := fmt.Fprintln(v.out, abs)
		return err
	}

	cmd := exec.CommandContext(ctx, fields[0], append(fields[1:], abs)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to run %s: %w", fields[0], err)
	}
	return nil
}

// Abs resolves id to an absolute path inside the vault.
func (v *Vault) Abs(id string) (string, error) {
	clean := path.Clean(strings.TrimPrefix(filepath.ToSlash(id), "/"))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("document id %q is outside the vault", id)
	}
	return filepath.Join(v.root, filepath.FromSlash(clean)), nil
}

// ID converts a filesystem path to a document id. Relative paths are taken
// relative to the working directory.
func (v *Vault) ID(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", p, err)
	}
	root, err := filepath.Abs(v.root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve vault root: %w", err)
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", p, err)
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%s is outside the vault", p)
	}
	return rel, nil
}

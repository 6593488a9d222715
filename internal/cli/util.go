package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/morozRed/deflink/internal/astcache"
	"github.com/morozRed/deflink/internal/config"
	"github.com/morozRed/deflink/internal/glossary"
	"github.com/morozRed/deflink/internal/ignore"
	"github.com/morozRed/deflink/internal/logging"
	"github.com/morozRed/deflink/internal/vault"
)

func resolveWorkingDirectory() (string, error) {
	rootPath, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to resolve working directory: %w", err)
	}
	return rootPath, nil
}

// commandContext returns the context cobra runs cmd with. Commands invoked
// directly, as in tests, get a background context.
func commandContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}

// workspace bundles what every command needs for one vault.
type workspace struct {
	root        string
	cfg         config.Config
	vault       *vault.Vault
	logger      *log.Logger
	coordinator *glossary.Coordinator
}

func openWorkspace(rootPath string) (*workspace, error) {
	cfg, err := config.Load(rootPath)
	if err != nil {
		return nil, err
	}
	return newWorkspace(rootPath, cfg)
}

func newWorkspace(rootPath string, cfg config.Config) (*workspace, error) {
	ignoreRules, err := ignore.Load(rootPath)
	if err != nil {
		return nil, err
	}
	cache, err := astcache.New(cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	logger := logging.New(os.Stderr, cfg.LogLevel, "deflink")
	return &workspace{
		root:   rootPath,
		cfg:    cfg,
		vault:  vault.New(rootPath, cfg, ignoreRules),
		logger: logger,
		coordinator: glossary.New(glossary.Options{
			Cache:       cache,
			Logger:      logger,
			AutoRewrite: cfg.AutoRewrite,
		}),
	}, nil
}

// loadVault opens the vault at root for the language server.
func loadVault(root string) (*vault.Vault, error) {
	ws, err := openWorkspace(root)
	if err != nil {
		return nil, err
	}
	return ws.vault, nil
}

// documentIDs maps command-line paths to document ids.
func (ws *workspace) documentIDs(paths []string) ([]string, error) {
	ids := make([]string, 0, len(paths))
	for _, p := range paths {
		id, err := ws.vault.ID(p)
		if err != nil {
			return nil, err
		}
		if !ws.vault.IsDocument(id) {
			return nil, fmt.Errorf("%s is not a document (extensions: %s)", p, strings.Join(ws.cfg.Extensions, ", "))
		}
		ids = append(ids, id)
	}
	return ids, nil
}

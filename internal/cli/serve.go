package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/morozRed/deflink/internal/lsp"
	"github.com/morozRed/deflink/internal/logging"
)

// RunServe speaks the language server protocol on stdio. The vault is the
// client's workspace root, or the working directory when the client sends
// none.
func RunServe(version string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		rootPath, err := resolveWorkingDirectory()
		if err != nil {
			return err
		}
		ws, err := openWorkspace(rootPath)
		if err != nil {
			return err
		}

		// stdout carries the protocol.
		logger := logging.New(os.Stderr, ws.cfg.LogLevel, "deflink-lsp")

		lsp.SetVersion(version)
		srv, err := lsp.NewServer(commandContext(cmd), lsp.Options{
			Vault:       ws.vault,
			LoadVault:   loadVault,
			Coordinator: ws.coordinator,
			Logger:      logger,
		})
		if err != nil {
			return err
		}
		return srv.RunStdio()
	}
}

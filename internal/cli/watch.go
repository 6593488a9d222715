package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/morozRed/deflink/internal/watch"
)

// RunWatch refreshes the glossary, then keeps it current while documents
// change. Saved documents are rewritten when auto_rewrite is on.
func RunWatch(cmd *cobra.Command, args []string) error {
	rootPath, err := resolveWorkingDirectory()
	if err != nil {
		return err
	}
	ws, err := openWorkspace(rootPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	snapshot, _, err := ws.refreshAll(ctx)
	if err != nil {
		return err
	}
	reportConflicts(snapshot.Conflicts)

	watcher, err := watch.New(watch.Options{
		Root:        rootPath,
		Extensions:  ws.cfg.Extensions,
		IgnoreRules: ws.vault.IgnoreRules(),
		Debounce:    ws.cfg.Debounce,
		Logger:      ws.logger,
		Handler:     ws.handleEvents,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Watching %s (definitions=%d, auto_rewrite=%t)\n", rootPath, len(snapshot.Definitions), ws.cfg.AutoRewrite)
	return watcher.Run(ctx)
}

// handleEvents applies one debounced batch. Source changes refresh the
// glossary once; every other changed document goes through the save hook.
func (ws *workspace) handleEvents(ctx context.Context, events []watch.Event) {
	refresh := false
	targets := make([]string, 0, len(events))
	for _, event := range events {
		switch {
		case ws.vault.IsDefinitionSource(event.Path):
			refresh = true
		case !event.Removed() && ws.vault.IsDocument(event.Path):
			targets = append(targets, event.Path)
		}
	}

	if refresh {
		snapshot, _, err := ws.refreshAll(ctx)
		if err != nil {
			ws.logger.Error("refresh failed", "err", err)
			return
		}
		reportConflicts(snapshot.Conflicts)
	}

	for _, id := range targets {
		if ctx.Err() != nil {
			return
		}
		outcome, err := ws.coordinator.OnDocumentSaved(ctx, ws.vault, id)
		if err != nil {
			ws.logger.Error("rewrite failed", "id", id, "err", err)
			continue
		}
		if outcome.Written {
			fmt.Printf("rewrote %s\n", id)
		}
	}
}

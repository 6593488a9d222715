package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/morozRed/deflink/internal/definition"
	"github.com/morozRed/deflink/internal/fileutil"
	"github.com/morozRed/deflink/internal/glossary"
	"github.com/morozRed/deflink/internal/index"
	"github.com/morozRed/deflink/internal/state"
)

func IsCorruptStateError(err error) bool {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return true
	}
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &typeErr)
}

// loadState reads the vault state; a corrupt file is replaced by an empty
// state after a warning.
func loadState(stateDir, consequence string) (*state.State, error) {
	st, err := state.Load(stateDir)
	if err != nil {
		if IsCorruptStateError(err) {
			fmt.Fprintf(os.Stderr, "warning: corrupt state file detected (%v); %s\n", err, consequence)
			return state.NewState(), nil
		}
		return nil, fmt.Errorf("failed to load state: %w", err)
	}
	return st, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func MaxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// GlossaryFingerprint hashes the anchors and aliases of definitions in
// order. Any edit that changes rewriting changes the fingerprint.
func GlossaryFingerprint(definitions []definition.Definition) string {
	var b strings.Builder
	for _, def := range definitions {
		b.WriteString(def.Anchor())
		b.WriteByte('\x00')
		b.WriteString(strings.Join(def.Aliases, "\x1f"))
		b.WriteByte('\n')
	}
	return fileutil.HashString(b.String())
}

func openIndex(stateDir string) (*index.DB, error) {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", stateDir, err)
	}
	return index.Open(filepath.Join(stateDir, index.FileName))
}

// storeIndex replaces the on-disk glossary index with snapshot.
func storeIndex(stateDir string, snapshot *glossary.Snapshot) error {
	db, err := openIndex(stateDir)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Replace(snapshot.Definitions); err != nil {
		return fmt.Errorf("failed to write glossary index: %w", err)
	}
	return nil
}

// loadIndexed publishes the indexed glossary without reading the vault. An
// empty or missing index falls back to a full refresh.
func (ws *workspace) loadIndexed(ctx context.Context) (*glossary.Snapshot, error) {
	indexPath := filepath.Join(ws.vault.StateDir(), index.FileName)
	if fileExists(indexPath) {
		db, err := index.Open(indexPath)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		count, err := db.Count()
		if err != nil {
			return nil, err
		}
		if count > 0 {
			definitions, err := db.Definitions()
			if err != nil {
				return nil, err
			}
			sources, err := db.Sources()
			if err != nil {
				return nil, err
			}
			return ws.coordinator.Publish(definitions, sources), nil
		}
	}
	return ws.coordinator.Refresh(ctx, ws.vault)
}

// recordState rebuilds the vault state from hashes: sources with their
// definition counts, targets with the sources they link to.
func (ws *workspace) recordState(ctx context.Context, st *state.State, snapshot *glossary.Snapshot, hashes map[string]string) error {
	counts := make(map[string]int)
	for _, def := range snapshot.Definitions {
		counts[def.SourceID]++
	}

	sources := ws.sourceSet(hashes)
	fingerprint := GlossaryFingerprint(snapshot.Definitions)
	glossaryChanged := st.Glossary != fingerprint

	for file := range st.Files {
		if _, ok := hashes[file]; !ok {
			st.RemoveFile(file)
		}
	}
	for id, hash := range hashes {
		if sources[id] {
			st.SetSource(id, hash, counts[id])
			continue
		}
		if !glossaryChanged && !st.HasChanged(id, hash) && st.Files[id].Kind == state.KindTarget {
			continue
		}
		if err := ws.recordTarget(ctx, st, id, hash, sources); err != nil {
			return err
		}
	}
	st.Glossary = fingerprint
	return nil
}

func (ws *workspace) recordTarget(ctx context.Context, st *state.State, id, hash string, sources map[string]bool) error {
	content, err := ws.vault.ReadDocument(ctx, id)
	if err != nil {
		return err
	}
	links := ws.coordinator.Cache().GetOrParse(content).WikiLinks()
	st.SetTarget(id, hash, fileutil.LinkDependencies(links, sources))
	return nil
}

func (ws *workspace) sourceSet(hashes map[string]string) map[string]bool {
	sources := make(map[string]bool)
	for id := range hashes {
		if ws.vault.IsDefinitionSource(id) {
			sources[id] = true
		}
	}
	return sources
}

func (ws *workspace) splitDocuments(hashes map[string]string) (sources, targets []string) {
	sources = fileutil.MapKeysSorted(ws.sourceSet(hashes))
	for _, id := range sortedKeys(hashes) {
		if !ws.vault.IsDefinitionSource(id) {
			targets = append(targets, id)
		}
	}
	return sources, targets
}

func sortedKeys(hashes map[string]string) []string {
	keys := make(map[string]bool, len(hashes))
	for key := range hashes {
		keys[key] = true
	}
	return fileutil.MapKeysSorted(keys)
}

func reportConflicts(conflicts definition.ConflictReport) {
	for _, conflict := range conflicts {
		anchors := make([]string, 0, len(conflict.Definitions))
		for _, def := range conflict.Definitions {
			anchors = append(anchors, def.Anchor())
		}
		fmt.Fprintf(os.Stderr, "warning: alias %q is declared by %s\n", conflict.Alias, strings.Join(anchors, ", "))
	}
}

package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const (
	StateFile           = ".state.json"
	CurrentStateVersion = "1"
)

// Kind says whether a tracked file is a glossary source or a rewrite target.
type Kind string

const (
	KindSource Kind = "source"
	KindTarget Kind = "target"
)

// FileState tracks the state of a single document
type FileState struct {
	Hash        string `json:"hash"`
	Kind        Kind   `json:"kind"`
	Definitions int    `json:"definitions,omitempty"`
	// Dependencies are the glossary sources a target links to.
	Dependencies []string  `json:"dependencies,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// State tracks every document seen by the last refresh or rewrite
type State struct {
	Version   string               `json:"version"`
	UpdatedAt time.Time            `json:"updated_at"`
	Glossary  string               `json:"glossary,omitempty"`
	Files     map[string]FileState `json:"files"`
}

// NewState creates a new empty state
func NewState() *State {
	return &State{
		Version: CurrentStateVersion,
		Files:   make(map[string]FileState),
	}
}

// Load reads state from the state directory. A missing file is an empty
// state.
func Load(stateDir string) (*State, error) {
	path := filepath.Join(stateDir, StateFile)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewState(), nil
		}
		return nil, err
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}

	migrateState(&state)

	return &state, nil
}

// Save writes state to the state directory.
func (s *State) Save(stateDir string) error {
	if s.Version == "" {
		s.Version = CurrentStateVersion
	}
	if s.Files == nil {
		s.Files = make(map[string]FileState)
	}

	s.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return err
	}

	path := filepath.Join(stateDir, StateFile)
	return os.WriteFile(path, append(data, '\n'), 0644)
}

// SetSource records a glossary source and how many definitions it declared.
func (s *State) SetSource(file, hash string, definitions int) {
	s.Files[file] = FileState{
		Hash:        hash,
		Kind:        KindSource,
		Definitions: definitions,
		UpdatedAt:   time.Now(),
	}
}

// SetTarget records a rewrite target and the sources it links to.
func (s *State) SetTarget(file, hash string, dependencies []string) {
	deps := append([]string(nil), dependencies...)
	sort.Strings(deps)
	s.Files[file] = FileState{
		Hash:         hash,
		Kind:         KindTarget,
		Dependencies: deps,
		UpdatedAt:    time.Now(),
	}
}

// GetFileHash returns the stored hash for a file
func (s *State) GetFileHash(file string) (string, bool) {
	fs, ok := s.Files[file]
	if !ok {
		return "", false
	}
	return fs.Hash, true
}

// HasChanged returns true if the file hash differs from stored
func (s *State) HasChanged(file, currentHash string) bool {
	storedHash, ok := s.GetFileHash(file)
	if !ok {
		return true // New file
	}
	return storedHash != currentHash
}

// RemoveFile removes a file from state tracking
func (s *State) RemoveFile(file string) {
	delete(s.Files, file)
}

// ChangedFiles returns files that have changed based on provided hashes
func (s *State) ChangedFiles(currentHashes map[string]string) []string {
	changed := make([]string, 0)

	for file, hash := range currentHashes {
		if s.HasChanged(file, hash) {
			changed = append(changed, file)
		}
	}

	sort.Strings(changed)
	return changed
}

// DeletedFiles returns files that no longer exist
func (s *State) DeletedFiles(currentFiles map[string]bool) []string {
	deleted := make([]string, 0)

	for file := range s.Files {
		if !currentFiles[file] {
			deleted = append(deleted, file)
		}
	}

	sort.Strings(deleted)
	return deleted
}

// ImpactedTargets returns the targets that need another rewrite pass. A
// changed file that is not in allTargets is a source; once any source is
// changed or deleted every target is impacted.
func (s *State) ImpactedTargets(changedFiles, deletedFiles []string, allTargets []string) []string {
	sourceChanged := false
	impacted := make(map[string]bool)

	for _, file := range deletedFiles {
		if s.Files[file].Kind == KindSource {
			sourceChanged = true
		}
	}
	targets := make(map[string]bool, len(allTargets))
	for _, file := range allTargets {
		targets[file] = true
	}
	for _, file := range changedFiles {
		if targets[file] {
			impacted[file] = true
			continue
		}
		sourceChanged = true
	}

	if sourceChanged {
		for _, file := range allTargets {
			impacted[file] = true
		}
	}

	out := make([]string, 0, len(impacted))
	for file := range impacted {
		out = append(out, file)
	}
	sort.Strings(out)
	return out
}

// Dependents returns the tracked targets that link to any of sources,
// following each target's recorded dependencies.
func (s *State) Dependents(sources []string) []string {
	reverse := make(map[string][]string)
	for file, fileState := range s.Files {
		for _, dep := range fileState.Dependencies {
			reverse[dep] = append(reverse[dep], file)
		}
	}

	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, source := range sources {
		for _, depender := range reverse[source] {
			if seen[depender] {
				continue
			}
			seen[depender] = true
			out = append(out, depender)
		}
	}
	sort.Strings(out)
	return out
}

func migrateState(s *State) {
	if s.Files == nil {
		s.Files = make(map[string]FileState)
	}

	switch s.Version {
	case "":
		s.Version = CurrentStateVersion
		for file, fileState := range s.Files {
			if fileState.Kind == "" {
				fileState.Kind = KindTarget
				s.Files[file] = fileState
			}
		}
	case CurrentStateVersion:
		// no-op
	default:
		// Keep unknown versions untouched but ensure required maps are initialized.
	}
}

package state

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestChangedAndDeletedFiles(t *testing.T) {
	s := NewState()
	s.SetTarget("a.md", "a1", nil)
	s.SetTarget("b.md", "b1", nil)
	s.SetSource("definitions/c.md", "c1", 2)

	changed := s.ChangedFiles(map[string]string{
		"a.md": "a1",
		"b.md": "b2",
		"d.md": "d1",
	})
	expectSet(t, changed, []string{"b.md", "d.md"})

	deleted := s.DeletedFiles(map[string]bool{
		"a.md": true,
		"b.md": true,
		"d.md": true,
	})
	expectSet(t, deleted, []string{"definitions/c.md"})
}

func TestImpactedTargetsForChangedTargetOnly(t *testing.T) {
	s := NewState()
	s.SetTarget("a.md", "a1", nil)
	s.SetTarget("b.md", "b1", nil)

	impacted := s.ImpactedTargets([]string{"a.md"}, nil, []string{"a.md", "b.md"})
	want := []string{"a.md"}
	if !reflect.DeepEqual(impacted, want) {
		t.Fatalf("expected impacted %v, got %v", want, impacted)
	}
}

func TestImpactedTargetsForChangedSource(t *testing.T) {
	s := NewState()
	s.SetSource("definitions/g.md", "g1", 1)
	s.SetTarget("a.md", "a1", nil)
	s.SetTarget("b.md", "b1", nil)

	impacted := s.ImpactedTargets([]string{"definitions/g.md"}, nil, []string{"a.md", "b.md"})
	want := []string{"a.md", "b.md"}
	if !reflect.DeepEqual(impacted, want) {
		t.Fatalf("expected impacted %v, got %v", want, impacted)
	}

	impacted = s.ImpactedTargets(nil, []string{"definitions/g.md"}, []string{"a.md"})
	if !reflect.DeepEqual(impacted, []string{"a.md"}) {
		t.Fatalf("expected deleted source to impact every target, got %v", impacted)
	}
}

func TestDependents(t *testing.T) {
	s := NewState()
	s.SetSource("definitions/g.md", "g1", 1)
	s.SetTarget("a.md", "a1", []string{"definitions/g.md"})
	s.SetTarget("b.md", "b1", []string{"definitions/other.md"})
	s.SetTarget("c.md", "c1", []string{"definitions/other.md", "definitions/g.md"})

	got := s.Dependents([]string{"definitions/g.md"})
	want := []string{"a.md", "c.md"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected dependents %v, got %v", want, got)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".deflink")
	s := NewState()
	s.Glossary = "abc"
	s.SetTarget("a.md", "a1", []string{"definitions/g.md"})
	if err := s.Save(dir); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Glossary != "abc" {
		t.Fatalf("expected glossary fingerprint to survive, got %q", loaded.Glossary)
	}
	if got := loaded.Files["a.md"].Dependencies; !reflect.DeepEqual(got, []string{"definitions/g.md"}) {
		t.Fatalf("unexpected dependencies %v", got)
	}
}

func TestLoadMissingAndCorrupt(t *testing.T) {
	dir := t.TempDir()
	s, err := Load(dir)
	if err != nil {
		t.Fatalf("expected missing state to load, got %v", err)
	}
	if len(s.Files) != 0 {
		t.Fatalf("expected empty state")
	}

	if err := os.WriteFile(filepath.Join(dir, StateFile), []byte("{not json"), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatalf("expected corrupt state to fail")
	}
}

func TestMigrateStateMarksUnversionedFilesAsTargets(t *testing.T) {
	s := &State{
		Version: "",
		Files:   map[string]FileState{"a.md": {Hash: "x"}},
	}

	migrateState(s)

	if s.Version != CurrentStateVersion {
		t.Fatalf("expected version %q, got %q", CurrentStateVersion, s.Version)
	}
	if s.Files["a.md"].Kind != KindTarget {
		t.Fatalf("expected kind %q, got %q", KindTarget, s.Files["a.md"].Kind)
	}
}

func expectSet(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d (%v)", len(want), len(got), got)
	}

	index := make(map[string]bool, len(got))
	for _, item := range got {
		index[item] = true
	}

	for _, item := range want {
		if !index[item] {
			t.Fatalf("expected item %q in %v", item, got)
		}
	}
}

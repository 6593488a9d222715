package search

import (
	"testing"

	"github.com/morozRed/deflink/internal/definition"
)

func glossary() []definition.Definition {
	return []definition.Definition{
		{SourceID: "definitions/ml.md", Heading: "Machine learning", Aliases: []string{"Machine learning", "ML"}},
		{SourceID: "definitions/ml.md", Heading: "Gradient descent", Aliases: []string{"Gradient descent", "SGD"}},
		{SourceID: "definitions/db.md", Heading: "Index", Aliases: []string{"Index", "B-tree"}},
	}
}

func TestSearchRanksHeadingMatches(t *testing.T) {
	index := Build(glossary())
	results := Search(index, "gradient", 5)
	if len(results) == 0 {
		t.Fatalf("expected results for heading word")
	}
	if results[0].ID != "definitions/ml.md#Gradient descent" {
		t.Fatalf("expected Gradient descent to rank first, got %#v", results)
	}
}

func TestSearchFindsAliases(t *testing.T) {
	index := Build(glossary())
	results := Search(index, "sgd", 5)
	if len(results) != 1 || results[0].ID != "definitions/ml.md#Gradient descent" {
		t.Fatalf("expected alias match, got %#v", results)
	}
}

func TestSearchTypoFallback(t *testing.T) {
	index := Build(glossary())
	results := Search(index, "Machne lerning", 3)
	if len(results) == 0 {
		t.Fatalf("expected typo fallback results")
	}
	if results[0].ID != "definitions/ml.md#Machine learning" {
		t.Fatalf("expected typo fallback to pick Machine learning, got %#v", results)
	}
}

func TestSearchDeterministicOrdering(t *testing.T) {
	index := &Index{
		DocumentCount: 2,
		AvgDocLength:  1,
		DocFreq:       map[string]int{"alpha": 2},
		Documents: []Document{
			{ID: "b", Length: 1, Terms: map[string]int{"alpha": 1}},
			{ID: "a", Length: 1, Terms: map[string]int{"alpha": 1}},
		},
	}

	results := Search(index, "alpha", 2)
	if len(results) != 2 {
		t.Fatalf("expected two results, got %d", len(results))
	}
	if results[0].ID != "a" || results[1].ID != "b" {
		t.Fatalf("expected stable tie-break by id, got %#v", results)
	}
}

func TestBuildSkipsDuplicateAnchors(t *testing.T) {
	defs := append(glossary(), definition.Definition{SourceID: "definitions/db.md", Heading: "Index", Aliases: []string{"Index"}})
	index := Build(defs)
	if index.DocumentCount != 3 {
		t.Fatalf("expected 3 documents, got %d", index.DocumentCount)
	}
}

func TestSearchEmpty(t *testing.T) {
	if got := Search(Build(nil), "anything", 5); got != nil {
		t.Fatalf("expected nil results, got %#v", got)
	}
	if got := Search(Build(glossary()), "   ", 5); got != nil {
		t.Fatalf("expected nil results for blank query, got %#v", got)
	}
}

func TestLevenshteinDistanceRunes(t *testing.T) {
	if d := levenshteinDistance("café", "cafe"); d != 1 {
		t.Fatalf("expected distance 1, got %d", d)
	}
}

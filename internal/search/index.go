// Package search ranks glossary definitions against a free-text query.
package search

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/morozRed/deflink/internal/definition"
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

type Document struct {
	ID      string         `json:"id"`
	Heading string         `json:"heading"`
	Source  string         `json:"source"`
	Aliases []string       `json:"aliases"`
	Length  int            `json:"length"`
	Terms   map[string]int `json:"terms"`
}

type Index struct {
	DocumentCount int            `json:"document_count"`
	AvgDocLength  float64        `json:"avg_doc_length"`
	DocFreq       map[string]int `json:"doc_freq"`
	Documents     []Document     `json:"documents"`
}

type Result struct {
	ID    string
	Score float64
}

// Build indexes every definition. Document IDs are definition anchors; the
// first definition wins when two share an anchor.
func Build(definitions []definition.Definition) *Index {
	documents := make([]Document, 0, len(definitions))
	docFreq := make(map[string]int)
	seen := make(map[string]bool, len(definitions))
	totalLength := 0

	for _, def := range definitions {
		id := def.Anchor()
		if seen[id] {
			continue
		}
		seen[id] = true

		terms := buildTerms(def)
		length := 0
		for _, count := range terms {
			length += count
		}
		if length == 0 {
			continue
		}

		documents = append(documents, Document{
			ID:      id,
			Heading: def.Heading,
			Source:  def.SourceID,
			Aliases: append([]string(nil), def.Aliases...),
			Length:  length,
			Terms:   terms,
		})
		totalLength += length

		for term := range terms {
			docFreq[term]++
		}
	}

	sort.Slice(documents, func(i, j int) bool {
		return documents[i].ID < documents[j].ID
	})

	avgDocLength := 0.0
	if len(documents) > 0 {
		avgDocLength = float64(totalLength) / float64(len(documents))
	}

	return &Index{
		DocumentCount: len(documents),
		AvgDocLength:  avgDocLength,
		DocFreq:       docFreq,
		Documents:     documents,
	}
}

func Search(index *Index, query string, limit int) []Result {
	if index == nil || len(index.Documents) == 0 {
		return nil
	}
	if limit <= 0 {
		limit = 10
	}

	queryTerms := tokenize(query)
	if len(queryTerms) == 0 {
		return nil
	}

	seenTerms := make(map[string]bool, len(queryTerms))
	uniqueTerms := make([]string, 0, len(queryTerms))
	for _, term := range queryTerms {
		if seenTerms[term] {
			continue
		}
		seenTerms[term] = true
		uniqueTerms = append(uniqueTerms, term)
	}

	k1 := 1.2
	b := 0.75
	n := float64(index.DocumentCount)
	avgLen := index.AvgDocLength
	if avgLen <= 0 {
		avgLen = 1
	}

	results := make([]Result, 0)
	for _, doc := range index.Documents {
		score := 0.0
		docLen := float64(doc.Length)
		for _, term := range uniqueTerms {
			tf := float64(doc.Terms[term])
			if tf <= 0 {
				continue
			}
			df := float64(index.DocFreq[term])
			if df <= 0 {
				continue
			}
			idf := math.Log(1.0 + ((n - df + 0.5) / (df + 0.5)))
			numerator := tf * (k1 + 1.0)
			denominator := tf + k1*(1.0-b+b*(docLen/avgLen))
			score += idf * (numerator / denominator)
		}
		if score > 0 {
			results = append(results, Result{ID: doc.ID, Score: score})
		}
	}

	sortResults(results)
	if len(results) > limit {
		results = results[:limit]
	}
	if len(results) == 0 {
		fallback := fuzzyAliasFallback(index.Documents, query, limit)
		if len(fallback) > 0 {
			return fallback
		}
	}
	return results
}

// Headings weigh most, then aliases, then the source path.
func buildTerms(def definition.Definition) map[string]int {
	terms := make(map[string]int)
	addWeighted(terms, def.Heading, 4)
	for _, alias := range def.Aliases[min(1, len(def.Aliases)):] {
		addWeighted(terms, alias, 3)
	}
	addWeighted(terms, def.SourceID, 1)
	return terms
}

func addWeighted(terms map[string]int, value string, weight int) {
	if weight <= 0 {
		return
	}
	for _, token := range tokenize(value) {
		terms[token] += weight
	}
}

func tokenize(value string) []string {
	value = strings.ToLower(value)
	if value == "" {
		return nil
	}
	return tokenPattern.FindAllString(value, -1)
}

// fuzzyAliasFallback scores documents by the closest alias to query, so a
// typo in any alias still finds its definition.
func fuzzyAliasFallback(documents []Document, query string, limit int) []Result {
	needle := normalizeForFuzzy(query)
	if needle == "" {
		return nil
	}

	results := make([]Result, 0)
	for _, doc := range documents {
		best := -1
		for _, alias := range doc.Aliases {
			candidate := normalizeForFuzzy(alias)
			if candidate == "" {
				continue
			}
			distance := levenshteinDistance(needle, candidate)
			threshold := len([]rune(candidate)) / 3
			if threshold < 2 {
				threshold = 2
			}
			if distance > threshold {
				continue
			}
			if best < 0 || distance < best {
				best = distance
			}
		}
		if best < 0 {
			continue
		}
		results = append(results, Result{ID: doc.ID, Score: 1.0 / float64(1+best)})
	}

	sortResults(results)
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

func sortResults(results []Result) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
}

func normalizeForFuzzy(value string) string {
	tokens := tokenize(value)
	if len(tokens) == 0 {
		return ""
	}
	return strings.Join(tokens, "")
}

func levenshteinDistance(a, b string) int {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		current := make([]int, len(rb)+1)
		current[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 0
			if ra[i-1] != rb[j-1] {
				cost = 1
			}
			current[j] = min(current[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev = current
	}

	return prev[len(rb)]
}

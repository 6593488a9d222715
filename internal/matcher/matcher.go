// Package matcher implements the case-insensitive, bracket-aware literal
// replacement used to turn glossary terms into links.
package matcher

import (
	"regexp"
	"strings"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
)

// SameCaptureGroup in a replacement expands to the verbatim matched text.
const SameCaptureGroup = "$&"

// ReplaceOutsideBrackets replaces every case-insensitive occurrence of from
// in content with to, skipping occurrences that sit inside [...].
//
// An occurrence is considered bracketed when the first bracket character
// after it is a closing one, so "[[sometext]hello]" keeps its "hello" while
// "[]hello[]" does not.
func ReplaceOutsideBrackets(from, to, content string) string {
	if from == "" || content == "" {
		return content
	}

	pattern := Pattern(from)
	expand := strings.Contains(to, SameCaptureGroup)

	var b strings.Builder
	last := 0
	pos := 0
	for pos <= len(content) {
		loc := pattern.FindStringIndex(content[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[0], pos+loc[1]

		if content[start] == '[' || closedAfter(content, end) {
			_, size := utf8.DecodeRuneInString(content[start:])
			pos = start + size
			continue
		}

		b.WriteString(content[last:start])
		if expand {
			b.WriteString(strings.ReplaceAll(to, SameCaptureGroup, content[start:end]))
		} else {
			b.WriteString(to)
		}
		last = end
		pos = end
	}

	if last == 0 {
		return content
	}
	b.WriteString(content[last:])
	return b.String()
}

// closedAfter reports whether the next bracket at or after offset closes.
func closedAfter(content string, offset int) bool {
	idx := strings.IndexAny(content[offset:], "[]")
	return idx >= 0 && content[offset+idx] == ']'
}

// PatternCacheSize bounds the number of compiled alias patterns kept.
const PatternCacheSize = 1024

var patterns = mustPatternCache(PatternCacheSize)

func mustPatternCache(size int) *lru.Cache[string, *regexp.Regexp] {
	cache, err := lru.New[string, *regexp.Regexp](size)
	if err != nil {
		panic(err)
	}
	return cache
}

// Pattern returns the case-insensitive literal pattern for term. Compiled
// patterns are shared through a bounded LRU.
func Pattern(term string) *regexp.Regexp {
	if re, ok := patterns.Get(term); ok {
		return re
	}
	re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(term))
	patterns.Add(term, re)
	return re
}

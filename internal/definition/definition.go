// Package definition extracts glossary definitions from markdown sources and
// reports aliases claimed by more than one definition.
package definition

import (
	"regexp"
	"strings"
)

// Definition is one glossary entry: a level-1 heading and the aliases that
// should link to it. Aliases[0] is always the heading itself.
type Definition struct {
	SourceID string   `json:"source_id"`
	Heading  string   `json:"heading"`
	Aliases  []string `json:"aliases"`
}

// AliasesPrefix starts the line that declares a heading's aliases.
const AliasesPrefix = "aliases:"

// A level-1 heading immediately followed by an aliases line. The alias list
// is the rest of that line.
var definitionPattern = regexp.MustCompile(`(?m)^# (.+)\r?\n` + AliasesPrefix + `([^\r\n]*)`)

// Parse returns the definitions declared in content, in document order.
// Malformed regions are skipped rather than reported, and an aliases line
// with no entries declares nothing.
func Parse(sourceID, content string) []Definition {
	matches := definitionPattern.FindAllStringSubmatch(content, -1)
	definitions := make([]Definition, 0, len(matches))
	for _, match := range matches {
		heading := strings.TrimSpace(match[1])
		if heading == "" {
			continue
		}
		declared := SplitAliases(match[2])
		if len(declared) == 0 {
			continue
		}
		aliases := append([]string{heading}, declared...)
		definitions = append(definitions, Definition{
			SourceID: sourceID,
			Heading:  heading,
			Aliases:  aliases,
		})
	}
	return definitions
}

// SplitAliases splits a comma-separated alias list, trimming entries and
// dropping empty ones.
func SplitAliases(list string) []string {
	var aliases []string
	for _, alias := range strings.Split(list, ",") {
		if alias = strings.TrimSpace(alias); alias != "" {
			aliases = append(aliases, alias)
		}
	}
	return aliases
}

// Anchor returns the link target of the definition, "<source>#<heading>".
func (d Definition) Anchor() string {
	return d.SourceID + "#" + d.Heading
}

// HasAlias reports whether term names this definition, ignoring case.
func (d Definition) HasAlias(term string) bool {
	term = strings.TrimSpace(term)
	for _, alias := range d.Aliases {
		if strings.EqualFold(alias, term) {
			return true
		}
	}
	return false
}

// Equal compares two definitions field by field.
func (d Definition) Equal(other Definition) bool {
	if d.SourceID != other.SourceID || d.Heading != other.Heading || len(d.Aliases) != len(other.Aliases) {
		return false
	}
	for i := range d.Aliases {
		if d.Aliases[i] != other.Aliases[i] {
			return false
		}
	}
	return true
}

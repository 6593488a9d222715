// Package ignore decides which vault paths deflink never reads or rewrites.
// Rules come from .deflinkignore in .gitignore syntax, plus lines of the
// form "re:<expr>" holding a regular expression matched against the whole
// slash-separated path.
package ignore

import (
	"path/filepath"
	"regexp"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// File holds user ignore rules at the vault root.
const File = ".deflinkignore"

// RegexPrefix marks a rule that is a regular expression rather than a glob.
const RegexPrefix = "re:"

// DefaultRules come before every user rule, so a user negation can still
// bring one of these paths back.
var DefaultRules = []string{
	".git/",
	".deflink/",
	".obsidian/",
	".trash/",
	"node_modules/",
}

// Matcher combines glob rules with regex rules. A path is ignored when
// either kind matches it.
type Matcher struct {
	globs   *gitignore.GitIgnore
	regexes []*regexp.Regexp
}

// NewMatcher builds a matcher from user rules. Blank lines, comments and
// regex rules that do not compile are skipped.
func NewMatcher(userRules []string) *Matcher {
	lines := make([]string, 0, len(DefaultRules)+len(userRules))
	lines = append(lines, DefaultRules...)

	m := &Matcher{}
	for _, line := range userRules {
		line = strings.TrimSpace(line)
		if expr, ok := strings.CutPrefix(line, RegexPrefix); ok {
			if re, err := regexp.Compile(expr); err == nil {
				m.regexes = append(m.regexes, re)
			}
			continue
		}
		lines = append(lines, line)
	}
	m.globs = gitignore.CompileIgnoreLines(lines...)
	return m
}

// ShouldIgnore reports whether relPath is excluded. Directories are matched
// with a trailing slash so rules like "drafts/" apply to them.
func (m *Matcher) ShouldIgnore(relPath string, isDir bool) bool {
	relPath = normalizePath(relPath)
	if relPath == "" {
		return false
	}
	for _, re := range m.regexes {
		if re.MatchString(relPath) {
			return true
		}
	}
	if isDir {
		relPath += "/"
	}
	return m.globs.MatchesPath(relPath)
}

func normalizePath(path string) string {
	path = filepath.ToSlash(path)
	path = strings.TrimPrefix(path, "./")
	return strings.TrimPrefix(path, "/")
}

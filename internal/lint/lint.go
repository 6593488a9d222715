// Package lint checks glossary sources for headings and alias lines that
// look like definitions but are not picked up as such.
package lint

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	markdown "github.com/smacker/go-tree-sitter/markdown/tree-sitter-markdown"

	"github.com/morozRed/deflink/internal/definition"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Issue is one finding. Line is 1-based.
type Issue struct {
	File     string   `json:"file"`
	Line     int      `json:"line"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s:%d: %s: %s", i.File, i.Line, i.Severity, i.Message)
}

// Linter wraps a tree-sitter markdown parser. It is safe for concurrent use.
type Linter struct {
	mu     sync.Mutex
	parser *sitter.Parser
}

func New() *Linter {
	p := sitter.NewParser()
	p.SetLanguage(markdown.GetLanguage())
	return &Linter{parser: p}
}

// Check reports issues found in one glossary source.
func (l *Linter) Check(ctx context.Context, file, content string) ([]Issue, error) {
	source := []byte(content)

	l.mu.Lock()
	tree, err := l.parser.ParseCtx(ctx, nil, source)
	l.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", file, err)
	}
	defer tree.Close()

	c := &checker{file: file, source: source, lines: splitLines(content)}
	c.walk(tree.RootNode())

	sort.SliceStable(c.issues, func(i, j int) bool {
		return c.issues[i].Line < c.issues[j].Line
	})
	return c.issues, nil
}

type checker struct {
	file   string
	source []byte
	lines  []string
	issues []Issue
}

func (c *checker) walk(node *sitter.Node) {
	switch node.Type() {
	case "atx_heading":
		c.checkATX(node)
	case "setext_heading":
		c.checkSetext(node)
	case "fenced_code_block", "indented_code_block":
		c.checkCode(node)
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		c.walk(node.Child(i))
	}
}

func (c *checker) checkATX(node *sitter.Node) {
	level := 0
	for i := 0; i < int(node.ChildCount()); i++ {
		t := node.Child(i).Type()
		if strings.HasPrefix(t, "atx_h") && strings.HasSuffix(t, "_marker") {
			fmt.Sscanf(t, "atx_h%d_marker", &level)
		}
	}
	row := int(node.StartPoint().Row)
	heading := strings.TrimSpace(strings.TrimLeft(c.line(row), "# \t"))

	next := c.line(row + 1)
	switch {
	case level >= 2:
		if isAliasesLine(next) {
			c.add(row+2, SeverityWarning, fmt.Sprintf("aliases under level %d heading %q are ignored; use a single '#'", level, heading))
		}
	case level == 1:
		if isAliasesLine(next) {
			c.checkAliases(row, next)
			return
		}
		if strings.TrimSpace(next) == "" && isAliasesLine(c.line(row+2)) {
			c.add(row+3, SeverityWarning, fmt.Sprintf("blank line between %q and its aliases line; the definition is ignored", heading))
			return
		}
		c.add(row+1, SeverityInfo, fmt.Sprintf("heading %q has no aliases line and is not a definition", heading))
	}
}

func (c *checker) checkSetext(node *sitter.Node) {
	h1 := false
	for i := 0; i < int(node.ChildCount()); i++ {
		if node.Child(i).Type() == "setext_h1_underline" {
			h1 = true
		}
	}
	end := int(node.EndPoint().Row)
	if node.EndPoint().Column == 0 && end > 0 {
		end--
	}
	if h1 && isAliasesLine(c.line(end+1)) {
		c.add(end+2, SeverityWarning, "aliases after an underlined heading are ignored; use '# Heading'")
	}
}

// Definitions are matched on raw text, so one inside a code block still
// counts.
func (c *checker) checkCode(node *sitter.Node) {
	content := node.Content(c.source)
	for _, def := range definition.Parse(c.file, content) {
		c.add(int(node.StartPoint().Row)+1, SeverityWarning, fmt.Sprintf("definition %q inside a code block is still picked up", def.Heading))
	}
}

func (c *checker) checkAliases(row int, aliasesLine string) {
	declared := strings.TrimPrefix(aliasesLine, definition.AliasesPrefix)
	aliases := definition.SplitAliases(declared)
	if len(aliases) == 0 {
		c.add(row+2, SeverityWarning, "aliases line declares no aliases; the heading is not a definition")
		return
	}
	if entries := strings.Count(declared, ",") + 1; entries > len(aliases) {
		c.add(row+2, SeverityInfo, fmt.Sprintf("aliases line has %d empty entries", entries-len(aliases)))
	}
}

func (c *checker) add(line int, severity Severity, message string) {
	c.issues = append(c.issues, Issue{File: c.file, Line: line, Severity: severity, Message: message})
}

func (c *checker) line(row int) string {
	if row < 0 || row >= len(c.lines) {
		return ""
	}
	return c.lines[row]
}

func isAliasesLine(line string) bool {
	return strings.HasPrefix(line, definition.AliasesPrefix)
}

func splitLines(content string) []string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

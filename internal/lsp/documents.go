package lsp

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/morozRed/deflink/internal/definition"
	"github.com/morozRed/deflink/internal/markdown"
	"github.com/morozRed/deflink/internal/matcher"
)

func (ls *LanguageServer) documentID(uri protocol.DocumentUri) (string, error) {
	path, err := uriToPath(uri)
	if err != nil {
		return "", err
	}
	return ls.vault.ID(path)
}

func (ls *LanguageServer) documentURI(id string) (protocol.DocumentUri, error) {
	abs, err := ls.vault.Abs(id)
	if err != nil {
		return "", err
	}
	return pathToURI(abs), nil
}

func uriToPath(uri protocol.DocumentUri) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("invalid document uri %q: %w", uri, err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("unsupported uri scheme %q", u.Scheme)
	}
	return filepath.FromSlash(u.Path), nil
}

func pathToURI(path string) protocol.DocumentUri {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String()
}

// positionAt converts a byte offset into a line and UTF-16 column.
func positionAt(content string, offset int) protocol.Position {
	if offset > len(content) {
		offset = len(content)
	}
	var line, column int
	for _, r := range content[:offset] {
		if r == '\n' {
			line++
			column = 0
			continue
		}
		column += utf16.RuneLen(r)
	}
	return protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(column)}
}

// offsetAt converts a line and UTF-16 column into a byte offset. Positions
// past the end of a line clamp to its end.
func offsetAt(content string, pos protocol.Position) int {
	offset := 0
	for line := 0; line < int(pos.Line); line++ {
		next := strings.IndexByte(content[offset:], '\n')
		if next < 0 {
			return len(content)
		}
		offset += next + 1
	}
	column := 0
	for offset < len(content) && column < int(pos.Character) {
		r, size := utf8.DecodeRuneInString(content[offset:])
		if r == '\n' {
			break
		}
		column += utf16.RuneLen(r)
		offset += size
	}
	return offset
}

// applyChange replaces the text covered by rng. A range whose end comes
// before its start is treated as reversed.
func applyChange(content string, rng protocol.Range, text string) string {
	start := offsetAt(content, rng.Start)
	end := offsetAt(content, rng.End)
	if end < start {
		start, end = end, start
	}
	return content[:start] + text + content[end:]
}

func spanRange(content string, span markdown.Span) protocol.Range {
	return protocol.Range{Start: positionAt(content, span.Start), End: positionAt(content, span.End)}
}

func fullRange(content string) protocol.Range {
	return spanRange(content, markdown.Span{Start: 0, End: len(content)})
}

// lineRange covers the 0-based line row without its line break.
func lineRange(content string, row int) protocol.Range {
	start := 0
	for i := 0; i < row; i++ {
		next := strings.IndexByte(content[start:], '\n')
		if next < 0 {
			start = len(content)
			break
		}
		start += next + 1
	}
	end := start + strings.IndexByte(content[start:], '\n')
	if end < start {
		end = len(content)
	}
	end = start + len(strings.TrimRight(content[start:end], "\r"))
	return spanRange(content, markdown.Span{Start: start, End: end})
}

// headingSpan finds the level-1 heading of def in content.
func headingSpan(tree *markdown.Tree, def definition.Definition) (markdown.Span, bool) {
	for _, heading := range tree.Headings() {
		if heading.Level == 1 && heading.Text == def.Heading {
			return heading.Span, true
		}
	}
	return markdown.Span{}, false
}

// linkAt returns the wiki link covering offset.
func linkAt(tree *markdown.Tree, offset int) (markdown.WikiLinkRef, bool) {
	for _, link := range tree.WikiLinks() {
		if offset >= link.Span.Start && offset < link.Span.End {
			return link, true
		}
	}
	return markdown.WikiLinkRef{}, false
}

// termAt returns the definitions whose alias occurs in content around
// offset. The longest covering alias wins.
func termAt(content string, offset int, definitions []definition.Definition) []definition.Definition {
	start := strings.LastIndexByte(content[:offset], '\n') + 1
	end := strings.IndexByte(content[offset:], '\n')
	if end < 0 {
		end = len(content)
	} else {
		end += offset
	}
	line := content[start:end]
	column := offset - start

	best := ""
	for _, def := range definitions {
		for _, alias := range def.Aliases {
			if len(alias) <= len(best) {
				continue
			}
			for _, loc := range matcher.Pattern(alias).FindAllStringIndex(line, -1) {
				if column >= loc[0] && column < loc[1] {
					best = alias
					break
				}
			}
		}
	}
	if best == "" {
		return nil
	}
	var out []definition.Definition
	for _, def := range definitions {
		if def.HasAlias(best) {
			out = append(out, def)
		}
	}
	return out
}

// linkAnchors lists the glossary anchors a wiki link may refer to.
func linkAnchors(link markdown.WikiLinkRef) []string {
	if link.Anchor == "" {
		return nil
	}
	anchors := []string{link.Target + "#" + link.Anchor}
	if !strings.HasSuffix(link.Target, ".md") {
		anchors = append(anchors, link.Target+".md#"+link.Anchor)
	}
	return anchors
}

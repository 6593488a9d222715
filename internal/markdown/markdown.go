// Package markdown parses documents into a minimal structure tree and
// locates the prose that glossary terms may be substituted into.
package markdown

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// Span is a half-open byte range [Start, End) into the parsed source.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the byte length of the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// Slice returns the text the span covers.
func (s Span) Slice(content string) string {
	return content[s.Start:s.End]
}

// WikiLinkRef is a [[wiki link]] found in a document.
type WikiLinkRef struct {
	Target  string `json:"target"`
	Anchor  string `json:"anchor,omitempty"`
	Display string `json:"display,omitempty"`
	Embed   bool   `json:"embed,omitempty"`
	Span    Span   `json:"span"`
}

// Heading is an ATX or setext heading with the span of its text.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
	Span  Span   `json:"span"`
}

// Tree is the parsed form of one document. Everything is computed during
// Parse; a Tree is never modified afterwards and is safe to share.
type Tree struct {
	length   int
	spans    []Span
	links    []WikiLinkRef
	headings []Heading
}

var md = goldmark.New(
	goldmark.WithExtensions(
		NewWikiLinkExtension(),
		extension.Linkify,
	),
)

// Parse builds the structure tree of content.
func Parse(content string) *Tree {
	source := []byte(content)
	doc := md.Parser().Parse(text.NewReader(source))

	tree := &Tree{length: len(content)}
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *WikiLink:
			tree.links = append(tree.links, wikiLinkRef(node))
			return ast.WalkSkipChildren, nil
		case *ast.CodeSpan, *ast.Link, *ast.AutoLink, *ast.Image:
			return ast.WalkSkipChildren, nil
		case *ast.Heading:
			if heading, ok := headingOf(node, source); ok {
				tree.headings = append(tree.headings, heading)
			}
		case *ast.Text:
			if node.Segment.Len() > 0 {
				tree.spans = append(tree.spans, Span{Start: node.Segment.Start, End: node.Segment.Stop})
			}
		}
		return ast.WalkContinue, nil
	})

	tree.spans = normalizeSpans(tree.spans)
	return tree
}

// ProseSpans parses content and returns its substitutable prose spans.
func ProseSpans(content string) []Span {
	return Parse(content).ProseSpans()
}

// Len returns the byte length of the source the tree was parsed from.
func (t *Tree) Len() int {
	return t.length
}

// ProseSpans returns the spans of plain text outside code and links, in
// ascending order without overlaps.
func (t *Tree) ProseSpans() []Span {
	out := make([]Span, len(t.spans))
	copy(out, t.spans)
	return out
}

// WikiLinks returns the wiki links of the document in order.
func (t *Tree) WikiLinks() []WikiLinkRef {
	out := make([]WikiLinkRef, len(t.links))
	copy(out, t.links)
	return out
}

// Headings returns the document headings in order.
func (t *Tree) Headings() []Heading {
	out := make([]Heading, len(t.headings))
	copy(out, t.headings)
	return out
}

func wikiLinkRef(node *WikiLink) WikiLinkRef {
	ref := WikiLinkRef{
		Target:  string(node.Target),
		Anchor:  string(node.Anchor),
		Display: string(node.Display),
		Embed:   node.Embed,
	}
	ref.Span = Span{Start: node.Source.Start, End: node.Source.Stop}
	return ref
}

func headingOf(node *ast.Heading, source []byte) (Heading, bool) {
	lines := node.Lines()
	if lines.Len() == 0 {
		return Heading{}, false
	}
	first := lines.At(0)
	last := lines.At(lines.Len() - 1)

	var b strings.Builder
	for i := 0; i < lines.Len(); i++ {
		segment := lines.At(i)
		if i > 0 {
			b.WriteByte(' ')
		}
		b.Write(segment.Value(source))
	}
	return Heading{
		Level: node.Level,
		Text:  strings.TrimSpace(b.String()),
		Span:  Span{Start: first.Start, End: last.Stop},
	}, true
}

// normalizeSpans merges touching spans and drops anything out of order.
func normalizeSpans(spans []Span) []Span {
	if len(spans) == 0 {
		return nil
	}
	out := make([]Span, 0, len(spans))
	for _, span := range spans {
		if len(out) == 0 {
			out = append(out, span)
			continue
		}
		prev := &out[len(out)-1]
		switch {
		case span.Start < prev.End:
			continue
		case span.Start == prev.End:
			prev.End = span.End
		default:
			out = append(out, span)
		}
	}
	return out
}

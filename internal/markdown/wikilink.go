package markdown

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// KindWikiLink is the node kind of [[target#anchor|display]] links.
var KindWikiLink = ast.NewNodeKind("WikiLink")

// The standard link parser sits at 200; wiki links must win the '[' trigger.
const wikiLinkParserPriority = 199

// WikiLink is an internal cross-reference. Its only child is the text shown
// to the reader: the display part when present, the target otherwise.
type WikiLink struct {
	ast.BaseInline

	Target  []byte
	Anchor  []byte
	Display []byte
	Embed   bool

	// Source covers the whole construct, brackets included.
	Source text.Segment
}

// Kind implements ast.Node.
func (n *WikiLink) Kind() ast.NodeKind {
	return KindWikiLink
}

// Dump implements ast.Node.
func (n *WikiLink) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"Target":  string(n.Target),
		"Anchor":  string(n.Anchor),
		"Display": string(n.Display),
	}, nil)
}

type wikiLinkParser struct{}

func (p *wikiLinkParser) Trigger() []byte {
	return []byte{'!', '['}
}

func (p *wikiLinkParser) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	line, segment := block.PeekLine()

	embed := false
	offset := 0
	if len(line) > 0 && line[0] == '!' {
		embed = true
		offset = 1
	}
	if len(line) < offset+4 || line[offset] != '[' || line[offset+1] != '[' {
		return nil
	}

	bodyStart := offset + 2
	closing := bytes.Index(line[bodyStart:], []byte("]]"))
	if closing <= 0 {
		return nil
	}
	body := line[bodyStart : bodyStart+closing]
	if bytes.ContainsAny(body, "[]\n\r") {
		return nil
	}

	reference := body
	var display []byte
	displayStart := -1
	if divider := bytes.IndexByte(body, '|'); divider >= 0 {
		reference = body[:divider]
		display = body[divider+1:]
		displayStart = bodyStart + divider + 1
	}

	target := reference
	var anchor []byte
	if hash := bytes.IndexByte(reference, '#'); hash >= 0 {
		target = reference[:hash]
		anchor = reference[hash+1:]
	}
	if len(bytes.TrimSpace(target)) == 0 && len(bytes.TrimSpace(anchor)) == 0 {
		return nil
	}

	node := &WikiLink{
		Target:  target,
		Anchor:  anchor,
		Display: display,
		Embed:   embed,
		Source:  text.NewSegment(segment.Start, segment.Start+bodyStart+closing+2),
	}
	labelStart, labelStop := segment.Start+bodyStart, segment.Start+bodyStart+len(reference)
	if displayStart >= 0 && len(display) > 0 {
		labelStart, labelStop = segment.Start+displayStart, segment.Start+displayStart+len(display)
	}
	node.AppendChild(node, ast.NewTextSegment(text.NewSegment(labelStart, labelStop)))

	block.Advance(bodyStart + closing + 2)
	return node
}

// wikiLinkExtension registers the wiki link inline parser.
type wikiLinkExtension struct{}

// NewWikiLinkExtension returns a goldmark extender for [[wiki links]].
func NewWikiLinkExtension() goldmark.Extender {
	return &wikiLinkExtension{}
}

// Extend implements goldmark.Extender.
func (e *wikiLinkExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(
		parser.WithInlineParsers(
			util.Prioritized(&wikiLinkParser{}, wikiLinkParserPriority),
		),
	)
}

package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spanTexts(content string, spans []Span) []string {
	out := make([]string, 0, len(spans))
	for _, span := range spans {
		out = append(out, span.Slice(content))
	}
	return out
}

func requireOrdered(t *testing.T, content string, spans []Span) {
	t.Helper()
	prev := -1
	for _, span := range spans {
		require.GreaterOrEqual(t, span.Start, 0)
		require.LessOrEqual(t, span.End, len(content))
		require.Less(t, span.Start, span.End)
		require.Greater(t, span.Start, prev, "spans overlap or are out of order: %v", spans)
		prev = span.End - 1
	}
}

func TestProseSpansPlainParagraph(t *testing.T) {
	content := "What's up with Term1 and Alias2 ?"
	spans := ProseSpans(content)
	assert.Equal(t, []Span{{Start: 0, End: len(content)}}, spans)
}

func TestProseSpansEmpty(t *testing.T) {
	assert.Empty(t, ProseSpans(""))
	assert.Empty(t, ProseSpans("```\nonly code\n```\n"))
}

func TestProseSpansExcludesCode(t *testing.T) {
	content := "Intro Term1\n\n```\nSome code block here Term1\n```\n\nOutro with `inline Term1` code\n\n    indented Term1\n"
	spans := ProseSpans(content)
	requireOrdered(t, content, spans)

	for _, text := range spanTexts(content, spans) {
		assert.NotContains(t, text, "code block")
		assert.NotContains(t, text, "inline")
		assert.NotContains(t, text, "indented")
	}
	joined := strings.Join(spanTexts(content, spans), "|")
	assert.Contains(t, joined, "Intro Term1")
	assert.Contains(t, joined, "Outro with ")
}

func TestProseSpansExcludesLinks(t *testing.T) {
	content := "Before [Link to Term1](#term1) and <https://example.com/term> and https://example.org/term after [[defs.md#Term1|the Term1]] end ![alt Term1](img.png)"
	spans := ProseSpans(content)
	requireOrdered(t, content, spans)

	for _, text := range spanTexts(content, spans) {
		assert.NotContains(t, text, "Term1")
		assert.NotContains(t, text, "example")
	}
	joined := strings.Join(spanTexts(content, spans), "|")
	assert.Contains(t, joined, "Before ")
	assert.Contains(t, joined, " end ")
}

func TestProseSpansExcludesTextNestedInLinks(t *testing.T) {
	content := "see [**bold Term1**](x.md) now"
	for _, text := range spanTexts(content, ProseSpans(content)) {
		assert.NotContains(t, text, "Term1")
	}
}

func TestProseSpansInsideEmphasisAndHeadings(t *testing.T) {
	content := "**Term1**"
	assert.Equal(t, []Span{{Start: 2, End: 7}}, ProseSpans(content))

	content = "# Heading Term1\n\n- item Term1\n- *other*\n"
	joined := strings.Join(spanTexts(content, ProseSpans(content)), "|")
	assert.Contains(t, joined, "Heading Term1")
	assert.Contains(t, joined, "item Term1")
	assert.Contains(t, joined, "other")
}

func TestProseSpansKeepBracketContextTogether(t *testing.T) {
	content := "Hello, world! [Another world]"
	spans := ProseSpans(content)
	require.Len(t, spans, 1)
	assert.Equal(t, content, spans[0].Slice(content))
}

func TestWikiLinks(t *testing.T) {
	content := "a [[defs/glossary.md#Term|shown]] b [[plain]] c ![[diagram.png]] d [[#Local]]"
	tree := Parse(content)
	links := tree.WikiLinks()
	require.Len(t, links, 4)

	assert.Equal(t, "defs/glossary.md", links[0].Target)
	assert.Equal(t, "Term", links[0].Anchor)
	assert.Equal(t, "shown", links[0].Display)
	assert.Equal(t, "[[defs/glossary.md#Term|shown]]", links[0].Span.Slice(content))

	assert.Equal(t, "plain", links[1].Target)
	assert.Empty(t, links[1].Display)

	assert.True(t, links[2].Embed)
	assert.Equal(t, "![[diagram.png]]", links[2].Span.Slice(content))

	assert.Empty(t, links[3].Target)
	assert.Equal(t, "Local", links[3].Anchor)

	for _, text := range spanTexts(content, tree.ProseSpans()) {
		assert.NotContains(t, text, "shown")
		assert.NotContains(t, text, "plain")
		assert.NotContains(t, text, "diagram")
	}
}

func TestWikiLinkRejectsMalformed(t *testing.T) {
	for _, content := range []string{"[[]]", "[[open", "[[a[b]]", "[[sometext]hello]"} {
		assert.Empty(t, Parse(content).WikiLinks(), "content %q", content)
	}
}

func TestHeadings(t *testing.T) {
	content := "# Term1\naliases: A\n\n## Sub heading\n\nBody\n"
	headings := Parse(content).Headings()
	require.Len(t, headings, 2)

	assert.Equal(t, 1, headings[0].Level)
	assert.Equal(t, "Term1", headings[0].Text)
	assert.Equal(t, "Term1", headings[0].Span.Slice(content))
	assert.Equal(t, 2, headings[1].Level)
	assert.Equal(t, "Sub heading", headings[1].Text)
}

func TestTreeIsStable(t *testing.T) {
	content := "One Term1\n\nTwo `x` Three [[y]] Four\n"
	tree := Parse(content)
	first := tree.ProseSpans()
	first[0].Start = 99

	assert.Equal(t, len(content), tree.Len())
	assert.NotEqual(t, 99, tree.ProseSpans()[0].Start)
	assert.Equal(t, ProseSpans(content), tree.ProseSpans())
}

func TestNormalizeSpans(t *testing.T) {
	got := normalizeSpans([]Span{{0, 1}, {1, 4}, {6, 8}, {7, 9}, {8, 10}})
	assert.Equal(t, []Span{{0, 4}, {6, 10}}, got)
	assert.Nil(t, normalizeSpans(nil))
}

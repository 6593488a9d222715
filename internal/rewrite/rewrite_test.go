package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morozRed/deflink/internal/astcache"
	"github.com/morozRed/deflink/internal/definition"
)

const glossarySource = `
# Term1
aliases: Alias1, Alias2
  `

const targetDocument = `
What's up with Term1 and Alias2 ?

` + "```" + `
Some code block here Term1
` + "```" + `

[Link to Term1](#term1)

Test test
  `

func newRewriter(t *testing.T) *Rewriter {
	t.Helper()
	cache, err := astcache.New(astcache.DefaultSize)
	require.NoError(t, err)
	return New(cache)
}

func testDefinitions(t *testing.T) []definition.Definition {
	t.Helper()
	defs := definition.Parse("test.md", glossarySource)
	require.Len(t, defs, 1)
	require.Len(t, defs[0].Aliases, 3)
	return defs
}

func TestRewrite(t *testing.T) {
	r := newRewriter(t)
	defs := testDefinitions(t)

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "heading and alias",
			content: "What's up with Term1 and Alias2 ?",
			want:    "What's up with [[test.md#Term1|Term1]] and [[test.md#Term1|Alias2]] ?",
		},
		{name: "start of file", content: "Term1", want: "[[test.md#Term1|Term1]]"},
		{name: "bold", content: "**Term1**", want: "**[[test.md#Term1|Term1]]**"},
		{name: "display keeps case", content: "ALIAS1 and alias1", want: "[[test.md#Term1|ALIAS1]] and [[test.md#Term1|alias1]]"},
		{name: "inline code untouched", content: "`Term1` vs Term1", want: "`Term1` vs [[test.md#Term1|Term1]]"},
		{name: "existing wiki link untouched", content: "[[test.md#Term1|Term1]] again", want: "[[test.md#Term1|Term1]] again"},
		{name: "bracketed prose untouched", content: "Hello, Term1! [Another Term1]", want: "Hello, [[test.md#Term1|Term1]]! [Another Term1]"},
		{name: "no prose", content: "```\nTerm1\n```\n", want: "```\nTerm1\n```\n"},
		{name: "empty", content: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Rewrite(defs, tt.content))
		})
	}
}

func TestRewriteKeepsPunctuatedAliasesWhole(t *testing.T) {
	r := newRewriter(t)
	defs := definition.Parse("definitions/mail.md", "# Email\naliases: e-mail, crème brûlée\n")
	require.Len(t, defs, 1)
	require.Equal(t, []string{"Email", "e-mail", "crème brûlée"}, defs[0].Aliases)

	assert.Equal(t, "See the cracker.", r.Rewrite(defs, "See the cracker."))
	assert.Equal(t,
		"Send an [[definitions/mail.md#Email|E-mail]] about [[definitions/mail.md#Email|crème brûlée]].",
		r.Rewrite(defs, "Send an E-mail about crème brûlée."))
}

func TestRewriteSkipsCodeBlocksAndLinks(t *testing.T) {
	r := newRewriter(t)
	out := r.Rewrite(testDefinitions(t), targetDocument)

	assert.Contains(t, out, "Some code block here Term1")
	assert.Contains(t, out, "[Link to Term1](#term1)")
	assert.Contains(t, out, "What's up with [[test.md#Term1|Term1]] and [[test.md#Term1|Alias2]] ?")
	assert.Contains(t, out, "Test test")
}

func TestRewriteBoldParagraphs(t *testing.T) {
	r := newRewriter(t)
	content := "\n# Test\n\n**Term1**\n\nTest test\n\n**Alias1**\n\t\t"
	out := r.Rewrite(testDefinitions(t), content)

	assert.Contains(t, out, "**[[test.md#Term1|Term1]]**")
	assert.Contains(t, out, "**[[test.md#Term1|Alias1]]**")
}

func TestRewriteWithoutDefinitionsIsIdentity(t *testing.T) {
	r := newRewriter(t)
	for _, content := range []string{"", "Term1", targetDocument, "[[x]] `y` z"} {
		assert.Equal(t, content, r.Rewrite(nil, content))
		assert.Equal(t, content, Rewrite([]definition.Definition{}, content))
	}
}

func TestRewriteIsIdempotent(t *testing.T) {
	r := newRewriter(t)
	defs := testDefinitions(t)

	once := r.Rewrite(defs, targetDocument)
	twice := r.Rewrite(defs, once)
	assert.Equal(t, once, twice)
}

func TestRewriteAppliesDefinitionsInOrder(t *testing.T) {
	r := newRewriter(t)
	defs := []definition.Definition{
		{SourceID: "a.md", Heading: "Machine learning", Aliases: []string{"Machine learning", "ML"}},
		{SourceID: "b.md", Heading: "Learning", Aliases: []string{"Learning"}},
	}

	out := r.Rewrite(defs, "Machine learning beats learning.")
	assert.Equal(t, "[[a.md#Machine learning|Machine learning]] beats [[b.md#Learning|learning]].", out)
}

func TestRewriteFirstConflictingDefinitionWins(t *testing.T) {
	r := newRewriter(t)
	defs := []definition.Definition{
		{SourceID: "a.md", Heading: "Gopher", Aliases: []string{"Gopher"}},
		{SourceID: "b.md", Heading: "Mascot", Aliases: []string{"Mascot", "gopher"}},
	}

	out := r.Rewrite(defs, "a gopher appears")
	assert.Equal(t, "a [[a.md#Gopher|gopher]] appears", out)
}

func TestBacklinks(t *testing.T) {
	r := newRewriter(t)
	targets := []string{"notes/Apple.md", "notes/Banana.md", "notes/Today.md"}

	out := r.Backlinks(targets, "notes/Today.md", "Today I ate an apple and a banana. `apple`")
	assert.Equal(t, "Today I ate an [[notes/Apple.md|apple]] and a [[notes/Banana.md|banana]]. `apple`", out)

	assert.Equal(t, "nothing", r.Backlinks(nil, "x.md", "nothing"))
}

func TestLinkHelpers(t *testing.T) {
	assert.Equal(t, "[[a.md#H|x]]", Link("a.md", "H", "x"))
	assert.Equal(t, "[[a.md|x]]", Link("a.md", "", "x"))
	assert.Equal(t, "[[defs/g.md#Term|$&]]", LinkTemplate(definition.Definition{SourceID: "defs/g.md", Heading: "Term"}))
	assert.Equal(t, "Apple", BaseName("notes/Apple.md"))
	assert.Equal(t, "README", BaseName("README"))
	assert.Equal(t, "", BaseName(""))
}

package vault

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morozRed/deflink/internal/config"
	"github.com/morozRed/deflink/internal/glossary"
)

func newVault(t *testing.T, files map[string]string) *Vault {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
	cfg := config.Default()
	cfg.OpenCommand = ""
	return New(root, cfg, []string{"archive/"})
}

func TestListSourcesAndTargets(t *testing.T) {
	ctx := context.Background()
	v := newVault(t, map[string]string{
		"definitions/b.md":  "# B\naliases: b1",
		"definitions/a.md":  "# A\naliases: a1",
		"notes/today.md":    "A and B",
		"readme.md":         "hello",
		"notes/picture.png": "binary",
		"archive/old.md":    "ignored",
		".obsidian/app.md":  "ignored",
	})

	sources, err := v.ListDefinitionSources(ctx)
	require.NoError(t, err)
	assert.Equal(t, []glossary.Source{
		{ID: "definitions/a.md", Content: "# A\naliases: a1"},
		{ID: "definitions/b.md", Content: "# B\naliases: b1"},
	}, sources)

	targets, err := v.ListRewriteTargets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"notes/today.md", "readme.md"}, targets)
}

func TestWriteDocumentOnlyWhenChanged(t *testing.T) {
	ctx := context.Background()
	v := newVault(t, map[string]string{"notes/today.md": "A"})

	written, err := v.WriteDocument(ctx, "notes/today.md", "A")
	require.NoError(t, err)
	assert.False(t, written)

	written, err = v.WriteDocument(ctx, "notes/today.md", "[[definitions/a.md#A|A]]")
	require.NoError(t, err)
	assert.True(t, written)

	content, err := v.ReadDocument(ctx, "notes/today.md")
	require.NoError(t, err)
	assert.Equal(t, "[[definitions/a.md#A|A]]", content)
}

func TestAbsRejectsEscapes(t *testing.T) {
	v := newVault(t, nil)
	for _, id := range []string{"../etc/passwd", "..", "notes/../../x.md", ""} {
		_, err := v.Abs(id)
		assert.Error(t, err, "id %q", id)
	}
	abs, err := v.Abs("notes/a.md")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(v.Root(), "notes", "a.md"), abs)
}

func TestID(t *testing.T) {
	v := newVault(t, nil)
	id, err := v.ID(filepath.Join(v.Root(), "notes", "a.md"))
	require.NoError(t, err)
	assert.Equal(t, "notes/a.md", id)

	_, err = v.ID(filepath.Dir(v.Root()))
	assert.Error(t, err)
}

func TestOpenPrintsPathWithoutCommand(t *testing.T) {
	t.Setenv("EDITOR", "")
	v := newVault(t, map[string]string{"definitions/a.md": "# A\naliases: a1"})
	var buf bytes.Buffer
	v.SetOutput(&buf)

	require.NoError(t, v.Open(context.Background(), "definitions/a.md"))
	assert.Equal(t, filepath.Join(v.Root(), "definitions", "a.md")+"\n", buf.String())

	assert.Error(t, v.Open(context.Background(), "definitions/missing.md"))
}

func TestCoordinatorOverVault(t *testing.T) {
	ctx := context.Background()
	v := newVault(t, map[string]string{
		"definitions/test.md": "# Term1\naliases: Alias1, Alias2\n",
		"notes/today.md":      "What's up with Term1 and Alias2 ?",
	})
	c := glossary.New(glossary.Options{AutoRewrite: true})

	_, err := c.OnDocumentSaved(ctx, v, "definitions/test.md")
	require.NoError(t, err)
	outcome, err := c.OnDocumentSaved(ctx, v, "notes/today.md")
	require.NoError(t, err)
	assert.True(t, outcome.Written)

	content, err := v.ReadDocument(ctx, "notes/today.md")
	require.NoError(t, err)
	assert.Equal(t, "What's up with [[definitions/test.md#Term1|Term1]] and [[definitions/test.md#Term1|Alias2]] ?", content)
}

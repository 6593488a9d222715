package glossary

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morozRed/deflink/internal/astcache"
	"github.com/morozRed/deflink/internal/definition"
)

type memoryHost struct {
	mu      sync.Mutex
	docs    map[string]string
	order   []string
	writes  map[string]int
	opened  []string
	listErr error
}

func newMemoryHost() *memoryHost {
	return &memoryHost{docs: map[string]string{}, writes: map[string]int{}}
}

func (h *memoryHost) put(id, content string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.docs[id]; !ok {
		h.order = append(h.order, id)
	}
	h.docs[id] = content
}

func (h *memoryHost) IsDefinitionSource(id string) bool {
	return strings.HasPrefix(id, "definitions/")
}

func (h *memoryHost) ListDefinitionSources(context.Context) ([]Source, error) {
	if h.listErr != nil {
		return nil, h.listErr
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []Source
	for _, id := range h.order {
		if h.IsDefinitionSource(id) {
			out = append(out, Source{ID: id, Content: h.docs[id]})
		}
	}
	return out, nil
}

func (h *memoryHost) ListRewriteTargets(context.Context) ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, id := range h.order {
		if !h.IsDefinitionSource(id) {
			out = append(out, id)
		}
	}
	return out, nil
}

func (h *memoryHost) ReadDocument(_ context.Context, id string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	content, ok := h.docs[id]
	if !ok {
		return "", errors.New("not found")
	}
	return content, nil
}

func (h *memoryHost) WriteDocument(_ context.Context, id, content string) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.docs[id] == content {
		return false, nil
	}
	h.docs[id] = content
	h.writes[id]++
	return true, nil
}

func (h *memoryHost) Open(_ context.Context, id string) error {
	h.opened = append(h.opened, id)
	return nil
}

func newCoordinator(t *testing.T, autoRewrite bool) *Coordinator {
	t.Helper()
	cache, err := astcache.New(16)
	require.NoError(t, err)
	return New(Options{Cache: cache, AutoRewrite: autoRewrite})
}

func TestRefreshPure(t *testing.T) {
	defs, conflicts := Refresh([]Source{
		{ID: "definitions/a.md", Content: "# A\naliases: a1, a2\n"},
		{ID: "definitions/b.md", Content: "# B\naliases: a2, a3\n"},
	})

	require.Len(t, defs, 2)
	assert.Equal(t, []string{"A", "a1", "a2"}, defs[0].Aliases)
	assert.Equal(t, []string{"a2"}, conflicts.Aliases())
	owners, ok := conflicts.Get("a2")
	require.True(t, ok)
	assert.Equal(t, "A", owners[0].Heading)
	assert.Equal(t, "B", owners[1].Heading)
}

func TestRewriteDocumentEndToEnd(t *testing.T) {
	defs, _ := Refresh([]Source{{ID: "test.md", Content: "\n# Term1\naliases: Alias1, Alias2\n  "}})
	got := RewriteDocument(defs, "What's up with Term1 and Alias2 ?")
	assert.Equal(t, "What's up with [[test.md#Term1|Term1]] and [[test.md#Term1|Alias2]] ?", got)
}

func TestCoordinatorStatuses(t *testing.T) {
	c := newCoordinator(t, true)

	result := c.RewriteDocument("Term1")
	assert.Equal(t, StatusNoDefinitions, result.Status)
	assert.Equal(t, "Term1", result.Content)
	assert.Equal(t, "no definitions found", result.Status.String())

	host := newMemoryHost()
	host.put("definitions/test.md", "# Term1\naliases: Alias1")
	_, err := c.Refresh(context.Background(), host)
	require.NoError(t, err)

	result = c.RewriteDocument("nothing to see")
	assert.Equal(t, StatusUnchanged, result.Status)
	assert.False(t, result.Changed())

	result = c.RewriteDocument("see alias1")
	assert.Equal(t, StatusRewritten, result.Status)
	assert.Equal(t, "see [[definitions/test.md#Term1|alias1]]", result.Content)
}

func TestRefreshKeepsPreviousSnapshotOnError(t *testing.T) {
	c := newCoordinator(t, true)
	host := newMemoryHost()
	host.put("definitions/test.md", "# Term1\naliases: Alias1")

	first, err := c.Refresh(context.Background(), host)
	require.NoError(t, err)

	host.listErr = errors.New("disk gone")
	_, err = c.Refresh(context.Background(), host)
	require.Error(t, err)
	assert.Same(t, first, c.Snapshot())
}

func TestRefreshPublishesNewSnapshot(t *testing.T) {
	c := newCoordinator(t, true)
	host := newMemoryHost()
	host.put("definitions/test.md", "# Term1\naliases: Alias1")

	first, err := c.Refresh(context.Background(), host)
	require.NoError(t, err)
	held := first.Definitions

	host.put("definitions/test.md", "# Term2\naliases: Alias2")
	second, err := c.Refresh(context.Background(), host)
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, "Term1", held[0].Heading)
	assert.Equal(t, "Term2", c.Snapshot().Definitions[0].Heading)
	assert.Equal(t, []string{"definitions/test.md"}, second.Sources)
}

func TestOnDocumentSaved(t *testing.T) {
	ctx := context.Background()
	c := newCoordinator(t, true)
	host := newMemoryHost()
	host.put("definitions/test.md", "# Term1\naliases: Alias1")
	host.put("notes/today.md", "Term1 in `code` and Alias1")

	outcome, err := c.OnDocumentSaved(ctx, host, "definitions/test.md")
	require.NoError(t, err)
	assert.True(t, outcome.Refreshed)
	assert.Len(t, outcome.Snapshot.Definitions, 1)

	outcome, err = c.OnDocumentSaved(ctx, host, "notes/today.md")
	require.NoError(t, err)
	assert.False(t, outcome.Refreshed)
	assert.True(t, outcome.Written)
	assert.Equal(t, "[[definitions/test.md#Term1|Term1]] in `code` and [[definitions/test.md#Term1|Alias1]]", host.docs["notes/today.md"])

	outcome, err = c.OnDocumentSaved(ctx, host, "notes/today.md")
	require.NoError(t, err)
	assert.Equal(t, StatusUnchanged, outcome.Result.Status)
	assert.False(t, outcome.Written)
	assert.Equal(t, 1, host.writes["notes/today.md"])

	_, err = c.OnDocumentSaved(ctx, host, "notes/missing.md")
	require.Error(t, err)
}

func TestOnDocumentSavedReportsGlossaryChanges(t *testing.T) {
	ctx := context.Background()
	c := newCoordinator(t, true)
	host := newMemoryHost()
	host.put("definitions/test.md", "# Term1\naliases: Alias1\n")

	outcome, err := c.OnDocumentSaved(ctx, host, "definitions/test.md")
	require.NoError(t, err)
	assert.True(t, outcome.GlossaryChanged)

	host.put("definitions/test.md", "# Term1\naliases: Alias1\n\nReworded body.\n")
	outcome, err = c.OnDocumentSaved(ctx, host, "definitions/test.md")
	require.NoError(t, err)
	assert.True(t, outcome.Refreshed)
	assert.False(t, outcome.GlossaryChanged)

	host.put("definitions/test.md", "# Term1\naliases: Alias1, Alias2\n")
	outcome, err = c.OnDocumentSaved(ctx, host, "definitions/test.md")
	require.NoError(t, err)
	assert.True(t, outcome.GlossaryChanged)
}

func TestOnDocumentSavedWithoutAutoRewrite(t *testing.T) {
	ctx := context.Background()
	c := newCoordinator(t, false)
	host := newMemoryHost()
	host.put("definitions/test.md", "# Term1\naliases: Alias1")
	host.put("notes/today.md", "Term1")

	_, err := c.Refresh(ctx, host)
	require.NoError(t, err)

	outcome, err := c.OnDocumentSaved(ctx, host, "notes/today.md")
	require.NoError(t, err)
	assert.Equal(t, StatusRewritten, outcome.Result.Status)
	assert.False(t, outcome.Written)
	assert.Equal(t, "Term1", host.docs["notes/today.md"])
}

func TestFindAndResolve(t *testing.T) {
	c := newCoordinator(t, true)
	c.Publish([]definition.Definition{
		{SourceID: "definitions/ml.md", Heading: "Machine learning", Aliases: []string{"Machine learning", "ML"}},
		{SourceID: "definitions/db.md", Heading: "Index", Aliases: []string{"Index", "ml"}},
	}, []string{"definitions/ml.md", "definitions/db.md"})

	found := c.Find("machine", 5)
	require.NotEmpty(t, found)
	assert.Equal(t, "Machine learning", found[0].Heading)

	resolved := c.Resolve("ML")
	require.Len(t, resolved, 2)
	assert.Equal(t, "Machine learning", resolved[0].Heading)
	assert.Equal(t, "Index", resolved[1].Heading)

	assert.Empty(t, c.Resolve("unknown"))
	assert.Empty(t, c.Snapshot().Conflicts, "aliases conflict only on exact case")
}

func TestBacklinksThroughHost(t *testing.T) {
	c := newCoordinator(t, true)
	host := newMemoryHost()
	host.put("notes/Apple.md", "")
	host.put("notes/Today.md", "")

	result, err := c.Backlinks(context.Background(), host, "notes/Today.md", "Today an apple")
	require.NoError(t, err)
	assert.Equal(t, StatusRewritten, result.Status)
	assert.Equal(t, "Today an [[notes/Apple.md|apple]]", result.Content)
}

func TestOpenBySourceID(t *testing.T) {
	ctx := context.Background()
	c := newCoordinator(t, true)
	c.Publish([]definition.Definition{
		{SourceID: "definitions/ml.md", Heading: "ML", Aliases: []string{"ML"}},
	}, nil)
	host := newMemoryHost()

	require.NoError(t, c.OpenBySourceID(ctx, "definitions/ml.md#ML", host))
	require.NoError(t, c.OpenBySourceID(ctx, "definitions/other.md", host))
	require.Error(t, c.OpenBySourceID(ctx, "", host))
	assert.Equal(t, []string{"definitions/ml.md", "definitions/other.md"}, host.opened)
}

func TestConcurrentRewriteAndRefresh(t *testing.T) {
	ctx := context.Background()
	c := newCoordinator(t, true)
	host := newMemoryHost()
	host.put("definitions/test.md", "# Term1\naliases: Alias1")
	_, err := c.Refresh(ctx, host)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				result := c.RewriteDocument("Term1 here")
				assert.Equal(t, StatusRewritten, result.Status)
			}
		}()
	}
	for j := 0; j < 5; j++ {
		_, err := c.Refresh(ctx, host)
		require.NoError(t, err)
	}
	wg.Wait()
}

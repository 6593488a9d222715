// Package glossary owns the current set of definitions and is the entry
// point hosts call to refresh it, rewrite documents and look terms up.
package glossary

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/morozRed/deflink/internal/astcache"
	"github.com/morozRed/deflink/internal/definition"
	"github.com/morozRed/deflink/internal/markdown"
	"github.com/morozRed/deflink/internal/rewrite"
	"github.com/morozRed/deflink/internal/search"
)

// Source is one glossary source document as handed over by the host.
type Source struct {
	ID      string
	Content string
}

// SourceLister enumerates glossary sources with their content.
type SourceLister interface {
	ListDefinitionSources(ctx context.Context) ([]Source, error)
}

// TargetLister enumerates the documents that may be rewritten.
type TargetLister interface {
	ListRewriteTargets(ctx context.Context) ([]string, error)
}

// DocumentStore reads and writes documents by id. WriteDocument reports
// whether anything was written.
type DocumentStore interface {
	ReadDocument(ctx context.Context, id string) (string, error)
	WriteDocument(ctx context.Context, id, content string) (bool, error)
}

// Opener shows a document to the user.
type Opener interface {
	Open(ctx context.Context, id string) error
}

// Host is everything the save hook needs from its environment.
type Host interface {
	SourceLister
	DocumentStore
	IsDefinitionSource(id string) bool
}

// Refresh parses every source, in order, and reports the aliases claimed by
// more than one definition.
func Refresh(sources []Source) ([]definition.Definition, definition.ConflictReport) {
	definitions := make([]definition.Definition, 0)
	for _, source := range sources {
		definitions = append(definitions, definition.Parse(source.ID, source.Content)...)
	}
	return definitions, definition.FindDuplicateAliases(definitions)
}

// RewriteDocument links every glossary term in content.
func RewriteDocument(definitions []definition.Definition, content string) string {
	return rewrite.Rewrite(definitions, content)
}

// Snapshot is an immutable view of the glossary. Coordinators replace
// snapshots wholesale and never modify a published one.
type Snapshot struct {
	Definitions []definition.Definition
	Conflicts   definition.ConflictReport
	Sources     []string
	RefreshedAt time.Time

	index    *search.Index
	byAnchor map[string]definition.Definition
}

// NewSnapshot builds a snapshot from parsed definitions.
func NewSnapshot(definitions []definition.Definition, sources []string) *Snapshot {
	return newSnapshot(definitions, definition.FindDuplicateAliases(definitions), sources)
}

func newSnapshot(definitions []definition.Definition, conflicts definition.ConflictReport, sources []string) *Snapshot {
	byAnchor := make(map[string]definition.Definition, len(definitions))
	for _, def := range definitions {
		if _, ok := byAnchor[def.Anchor()]; !ok {
			byAnchor[def.Anchor()] = def
		}
	}
	return &Snapshot{
		Definitions: definitions,
		Conflicts:   conflicts,
		Sources:     sources,
		RefreshedAt: time.Now().UTC(),
		index:       search.Build(definitions),
		byAnchor:    byAnchor,
	}
}

// Empty reports whether the snapshot holds no definitions.
func (s *Snapshot) Empty() bool {
	return s == nil || len(s.Definitions) == 0
}

// Definition returns the definition with the given "<source>#<heading>"
// anchor.
func (s *Snapshot) Definition(anchor string) (definition.Definition, bool) {
	if s == nil {
		return definition.Definition{}, false
	}
	def, ok := s.byAnchor[anchor]
	return def, ok
}

// Status tells hosts what a rewrite did.
type Status int

const (
	StatusNoDefinitions Status = iota
	StatusUnchanged
	StatusRewritten
)

func (s Status) String() string {
	switch s {
	case StatusNoDefinitions:
		return "no definitions found"
	case StatusUnchanged:
		return "unchanged"
	case StatusRewritten:
		return "rewritten"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result is the outcome of rewriting one document.
type Result struct {
	Content string
	Status  Status
}

// Changed reports whether Content differs from the input.
func (r Result) Changed() bool {
	return r.Status == StatusRewritten
}

// Options configures a Coordinator. A nil Cache uses astcache.Default and a
// nil Logger discards output.
type Options struct {
	Cache       *astcache.Cache
	Logger      *log.Logger
	AutoRewrite bool
}

// Coordinator holds the current glossary snapshot.
type Coordinator struct {
	snapshot    atomic.Pointer[Snapshot]
	cache       *astcache.Cache
	rewriter    *rewrite.Rewriter
	logger      *log.Logger
	autoRewrite bool
}

// New returns a Coordinator holding an empty glossary.
func New(opts Options) *Coordinator {
	cache := opts.Cache
	if cache == nil {
		cache = astcache.Default
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	c := &Coordinator{
		cache:       cache,
		rewriter:    rewrite.New(cache),
		logger:      logger,
		autoRewrite: opts.AutoRewrite,
	}
	c.snapshot.Store(NewSnapshot(nil, nil))
	return c
}

// Snapshot returns the current glossary.
func (c *Coordinator) Snapshot() *Snapshot {
	return c.snapshot.Load()
}

// Cache returns the tree cache used for rewriting.
func (c *Coordinator) Cache() *astcache.Cache {
	return c.cache
}

// Refresh lists sources through lister and publishes a new snapshot. On
// error the previous snapshot stays current.
func (c *Coordinator) Refresh(ctx context.Context, lister SourceLister) (*Snapshot, error) {
	sources, err := lister.ListDefinitionSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list definition sources: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	definitions, conflicts := Refresh(sources)
	ids := make([]string, 0, len(sources))
	for _, source := range sources {
		ids = append(ids, source.ID)
	}
	snapshot := newSnapshot(definitions, conflicts, ids)
	c.snapshot.Store(snapshot)

	c.logger.Info("glossary refreshed", "sources", len(ids), "definitions", len(definitions), "conflicts", len(snapshot.Conflicts))
	for _, conflict := range snapshot.Conflicts {
		c.logger.Warn("alias declared more than once", "alias", conflict.Alias, "definitions", len(conflict.Definitions))
	}
	return snapshot, nil
}

// Publish replaces the current snapshot with one built from definitions.
func (c *Coordinator) Publish(definitions []definition.Definition, sources []string) *Snapshot {
	snapshot := NewSnapshot(definitions, sources)
	c.snapshot.Store(snapshot)
	return snapshot
}

// RewriteDocument rewrites content against the current snapshot.
func (c *Coordinator) RewriteDocument(content string) Result {
	snapshot := c.Snapshot()
	if snapshot.Empty() {
		return Result{Content: content, Status: StatusNoDefinitions}
	}
	out := c.rewriter.Rewrite(snapshot.Definitions, content)
	if out == content {
		return Result{Content: content, Status: StatusUnchanged}
	}
	return Result{Content: out, Status: StatusRewritten}
}

// Backlinks links the base names of every other target in content.
func (c *Coordinator) Backlinks(ctx context.Context, lister TargetLister, id, content string) (Result, error) {
	targets, err := lister.ListRewriteTargets(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to list rewrite targets: %w", err)
	}
	out := c.rewriter.Backlinks(targets, id, content)
	if out == content {
		return Result{Content: content, Status: StatusUnchanged}, nil
	}
	return Result{Content: out, Status: StatusRewritten}, nil
}

// ProseSpans returns the substitutable spans of content.
func (c *Coordinator) ProseSpans(content string) []markdown.Span {
	return c.rewriter.ProseSpans(content)
}

// Find ranks definitions against query for pickers.
func (c *Coordinator) Find(query string, limit int) []definition.Definition {
	snapshot := c.Snapshot()
	if snapshot.Empty() {
		return nil
	}
	results := search.Search(snapshot.index, query, limit)
	out := make([]definition.Definition, 0, len(results))
	for _, result := range results {
		if def, ok := snapshot.byAnchor[result.ID]; ok {
			out = append(out, def)
		}
	}
	return out
}

// Resolve returns every definition declaring term, ignoring case, in
// glossary order.
func (c *Coordinator) Resolve(term string) []definition.Definition {
	snapshot := c.Snapshot()
	var out []definition.Definition
	for _, def := range snapshot.Definitions {
		if def.HasAlias(term) {
			out = append(out, def)
		}
	}
	return out
}

// SaveOutcome describes what OnDocumentSaved did. GlossaryChanged is set
// when a refresh produced different definitions than the previous snapshot.
type SaveOutcome struct {
	Refreshed       bool
	GlossaryChanged bool
	Snapshot        *Snapshot
	Result          Result
	Written         bool
}

// OnDocumentSaved reacts to a saved document: a definition source refreshes
// the glossary, any other document is rewritten and, when auto rewrite is
// on, written back through host.
func (c *Coordinator) OnDocumentSaved(ctx context.Context, host Host, id string) (SaveOutcome, error) {
	if host.IsDefinitionSource(id) {
		previous := c.Snapshot()
		snapshot, err := c.Refresh(ctx, host)
		if err != nil {
			return SaveOutcome{}, err
		}
		return SaveOutcome{
			Refreshed:       true,
			GlossaryChanged: !sameDefinitions(previous.Definitions, snapshot.Definitions),
			Snapshot:        snapshot,
		}, nil
	}

	content, err := host.ReadDocument(ctx, id)
	if err != nil {
		return SaveOutcome{}, fmt.Errorf("failed to read %s: %w", id, err)
	}
	result := c.RewriteDocument(content)
	outcome := SaveOutcome{Snapshot: c.Snapshot(), Result: result}
	if !result.Changed() || !c.autoRewrite {
		c.logger.Debug("document saved", "id", id, "status", result.Status)
		return outcome, nil
	}
	if err := ctx.Err(); err != nil {
		return outcome, err
	}

	written, err := host.WriteDocument(ctx, id, result.Content)
	if err != nil {
		return outcome, fmt.Errorf("failed to write %s: %w", id, err)
	}
	outcome.Written = written
	c.logger.Info("document rewritten", "id", id)
	return outcome, nil
}

func sameDefinitions(a, b []definition.Definition) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// OpenBySourceID asks opener to show the source document of a definition.
// id may be a bare source id or a "<source>#<heading>" anchor.
func (c *Coordinator) OpenBySourceID(ctx context.Context, id string, opener Opener) error {
	if id == "" {
		return fmt.Errorf("source id is empty")
	}
	if def, ok := c.Snapshot().Definition(id); ok {
		id = def.SourceID
	}
	if err := opener.Open(ctx, id); err != nil {
		return fmt.Errorf("failed to open %s: %w", id, err)
	}
	return nil
}

// Package rewrite turns glossary terms found in document prose into wiki
// links to their definitions.
package rewrite

import (
	"path"
	"strings"

	"github.com/morozRed/deflink/internal/astcache"
	"github.com/morozRed/deflink/internal/definition"
	"github.com/morozRed/deflink/internal/markdown"
	"github.com/morozRed/deflink/internal/matcher"
)

// Rewriter applies link substitutions to the prose spans of documents.
type Rewriter struct {
	cache *astcache.Cache
}

// New returns a rewriter backed by cache, or by astcache.Default when cache
// is nil.
func New(cache *astcache.Cache) *Rewriter {
	if cache == nil {
		cache = astcache.Default
	}
	return &Rewriter{cache: cache}
}

// Link renders a wiki link "[[target#anchor|display]]". An empty anchor is
// left out.
func Link(target, anchor, display string) string {
	var b strings.Builder
	b.WriteString("[[")
	b.WriteString(target)
	if anchor != "" {
		b.WriteByte('#')
		b.WriteString(anchor)
	}
	b.WriteByte('|')
	b.WriteString(display)
	b.WriteString("]]")
	return b.String()
}

// LinkTemplate is the replacement used for every alias of def; the display
// text is whatever matched.
func LinkTemplate(def definition.Definition) string {
	return Link(def.SourceID, def.Heading, matcher.SameCaptureGroup)
}

// Rewrite links every alias occurrence in the prose of content to its
// definition. Definitions are applied in order, aliases in declaration
// order, each pass seeing the output of the previous one.
func (r *Rewriter) Rewrite(definitions []definition.Definition, content string) string {
	if len(definitions) == 0 {
		return content
	}
	return r.substitute(content, func(text string) string {
		for _, def := range definitions {
			link := LinkTemplate(def)
			for _, alias := range def.Aliases {
				text = matcher.ReplaceOutsideBrackets(alias, link, text)
			}
		}
		return text
	})
}

// Backlinks links each occurrence of another document's base name to that
// document. selfID is never linked to itself.
func (r *Rewriter) Backlinks(targets []string, selfID, content string) string {
	type backlink struct {
		name string
		link string
	}
	links := make([]backlink, 0, len(targets))
	for _, target := range targets {
		if target == selfID {
			continue
		}
		name := BaseName(target)
		if name == "" {
			continue
		}
		links = append(links, backlink{name: name, link: Link(target, "", matcher.SameCaptureGroup)})
	}
	if len(links) == 0 {
		return content
	}
	return r.substitute(content, func(text string) string {
		for _, l := range links {
			text = matcher.ReplaceOutsideBrackets(l.name, l.link, text)
		}
		return text
	})
}

// ProseSpans exposes the spans the rewriter operates on.
func (r *Rewriter) ProseSpans(content string) []markdown.Span {
	return r.cache.ProseSpans(content)
}

func (r *Rewriter) substitute(content string, fn func(string) string) string {
	spans := r.cache.ProseSpans(content)
	if len(spans) == 0 {
		return content
	}

	var b strings.Builder
	b.Grow(len(content))
	prev := 0
	for _, span := range spans {
		b.WriteString(content[prev:span.Start])
		b.WriteString(fn(span.Slice(content)))
		prev = span.End
	}
	b.WriteString(content[prev:])
	return b.String()
}

// BaseName is the file name of id without directory or extension.
func BaseName(id string) string {
	base := path.Base(id)
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, path.Ext(base))
}

var defaultRewriter = New(nil)

// Rewrite rewrites content using the process-wide cache.
func Rewrite(definitions []definition.Definition, content string) string {
	return defaultRewriter.Rewrite(definitions, content)
}

package fileutil

import (
	"path"
	"sort"

	"github.com/morozRed/deflink/internal/markdown"
	"github.com/morozRed/deflink/internal/state"
)

// LinkDependencies returns the sources a document links to. Link targets
// without an extension are tried with ".md" appended.
func LinkDependencies(links []markdown.WikiLinkRef, sources map[string]bool) []string {
	deps := make(map[string]bool)
	for _, link := range links {
		target := link.Target
		if target == "" {
			continue
		}
		if sources[target] {
			deps[target] = true
			continue
		}
		if path.Ext(target) == "" && sources[target+".md"] {
			deps[target+".md"] = true
		}
	}
	return MapKeysSorted(deps)
}

// ImpactedWithReasons explains why each target needs another rewrite pass.
// Targets are impacted by their own change, by a changed or deleted source
// they link to, or by any other glossary change.
func ImpactedWithReasons(st *state.State, changed, deleted, targets []string) ([]string, map[string][]string) {
	impacted := st.ImpactedTargets(changed, deleted, targets)
	targetSet := ToSet(targets)

	changedSources := make([]string, 0)
	for _, file := range changed {
		if !targetSet[file] {
			changedSources = append(changedSources, file)
		}
	}
	for _, file := range deleted {
		if st.Files[file].Kind == state.KindSource {
			changedSources = append(changedSources, file)
		}
	}
	sort.Strings(changedSources)

	changedSet := ToSet(changed)
	reasons := make(map[string][]string, len(impacted))
	for _, file := range impacted {
		if changedSet[file] {
			reasons[file] = appendReason(reasons[file], "changed")
		}
	}
	for _, source := range changedSources {
		for _, file := range st.Dependents([]string{source}) {
			if containsFile(impacted, file) {
				reasons[file] = appendReason(reasons[file], "links to "+source)
			}
		}
	}
	for _, file := range impacted {
		if len(reasons[file]) == 0 && len(changedSources) > 0 {
			reasons[file] = appendReason(reasons[file], "glossary changed")
		}
		sort.Strings(reasons[file])
	}
	return impacted, reasons
}

func appendReason(existing []string, reason string) []string {
	for _, item := range existing {
		if item == reason {
			return existing
		}
	}
	return append(existing, reason)
}

func containsFile(files []string, file string) bool {
	i := sort.SearchStrings(files, file)
	return i < len(files) && files[i] == file
}

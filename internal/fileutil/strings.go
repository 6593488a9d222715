package fileutil

import (
	"sort"

	"github.com/samber/lo"
)

// DedupeStrings keeps the first occurrence of each item.
func DedupeStrings(items []string) []string {
	return lo.Uniq(items)
}

func MapKeysSorted(values map[string]bool) []string {
	out := lo.Keys(values)
	sort.Strings(out)
	return out
}

func ToSet(paths []string) map[string]bool {
	return lo.SliceToMap(paths, func(path string) (string, bool) {
		return path, true
	})
}

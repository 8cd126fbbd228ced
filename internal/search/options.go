package search

import (
	"strings"
)

// matchesFilters reports whether f's file record satisfies filters.
// Filters apply uniformly regardless of which source(s) surfaced the
// file. It runs on aggregated files, so a file excluded by filters is
// still fused and scored but never reaches sorting or evidence building.
func matchesFilters(f aggregatedFile, filters Filters) bool {
	if len(filters.Extensions) > 0 && !containsFoldCase(filters.Extensions, f.record.Extension) {
		return false
	}

	if !filters.ModifiedAfter.IsZero() && f.record.ModifiedAt < float64(filters.ModifiedAfter.Unix()) {
		return false
	}
	if !filters.ModifiedBefore.IsZero() && f.record.ModifiedAt > float64(filters.ModifiedBefore.Unix()) {
		return false
	}

	if len(filters.FolderPrefixes) > 0 {
		matched := false
		for _, prefix := range filters.FolderPrefixes {
			if strings.HasPrefix(f.record.Path, prefix) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	return true
}

func containsFoldCase(set []string, want string) bool {
	for _, s := range set {
		if strings.EqualFold(s, want) {
			return true
		}
	}
	return false
}

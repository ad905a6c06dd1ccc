package lib

import (
	"slices"

	"github.com/fiffu/listingwatch/lib/models"
)

// Diff compares two listing collections as sets of raw text. Duplicates
// collapse and order is ignored for membership.
//
// Updated holds every listing present in both collections, and is only
// populated when the two sequences are not element-wise equal. It does not
// say which shared listing changed.
func Diff(older, newer []string) models.DiffResult {
	olderSet := toSet(older)
	newerSet := toSet(newer)

	result := models.DiffResult{
		Added:   difference(newer, olderSet),
		Removed: difference(older, newerSet),
		Updated: []string{},
	}
	if !slices.Equal(older, newer) {
		result.Updated = intersection(newer, olderSet)
	}
	return result
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}

// difference returns the distinct items of seq absent from exclude, in order of first appearance.
func difference(seq []string, exclude map[string]struct{}) []string {
	return filterDistinct(seq, func(s string) bool {
		_, found := exclude[s]
		return !found
	})
}

func intersection(seq []string, include map[string]struct{}) []string {
	return filterDistinct(seq, func(s string) bool {
		_, found := include[s]
		return found
	})
}

func filterDistinct(seq []string, keep func(string) bool) []string {
	seen := make(map[string]struct{}, len(seq))
	out := make([]string, 0)
	for _, s := range seq {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}

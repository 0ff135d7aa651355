package domain

import (
	"slices"
	"strings"
)

// Matches applies the filter the way the menu screen does: any listed tag is
// enough, and the search term hits the name, description or Chinese name.
func (f Filter) Matches(it Item) bool {
	if f.AvailableOnly && !it.IsAvailable {
		return false
	}
	if f.Category != "" && it.Category != f.Category {
		return false
	}
	if f.Search != "" {
		term := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(it.Name), term) &&
			!strings.Contains(strings.ToLower(it.Description), term) &&
			!strings.Contains(it.NameChinese, f.Search) {
			return false
		}
	}
	if len(f.Tags) > 0 && !slices.ContainsFunc(f.Tags, func(t string) bool { return slices.Contains(it.Tags, t) }) {
		return false
	}
	return true
}

package domain

import (
	"strings"
	"time"
)

// Name prefix markers that derive the category flags.
const (
	ProjectMarker  = "[PROJECT]"
	ActivityMarker = "[ACTIVITY]"
)

// Category is a shared tag in the category dictionary. Names are stored with
// their first-seen casing but the dictionary is logically case-insensitive.
type Category struct {
	CategoryID int64     `json:"category_id"`
	Name       string    `json:"name"`
	IsProject  bool      `json:"is_project"`
	IsActivity bool      `json:"is_activity"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// IsProjectName reports whether a category name carries the project marker.
func IsProjectName(name string) bool {
	return strings.HasPrefix(name, ProjectMarker)
}

// IsActivityName reports whether a category name carries the activity marker.
func IsActivityName(name string) bool {
	return strings.HasPrefix(name, ActivityMarker)
}

// NormalizeCategoryNames trims each name, drops empties and deduplicates
// case-insensitively. The first-seen casing wins and input order is kept.
func NormalizeCategoryNames(names []string) []string {
	if len(names) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, name)
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

// DiffCategories computes the link changes that turn the existing category
// set into next. Comparison is case-insensitive; both inputs are expected to
// be normalized already. Empty results mean the no-op fast path.
func DiffCategories(existing, next []string) (added, removed []string) {
	existingSet := make(map[string]struct{}, len(existing))
	for _, name := range existing {
		existingSet[strings.ToLower(name)] = struct{}{}
	}
	nextSet := make(map[string]struct{}, len(next))
	for _, name := range next {
		nextSet[strings.ToLower(name)] = struct{}{}
	}

	for _, name := range next {
		if _, ok := existingSet[strings.ToLower(name)]; !ok {
			added = append(added, name)
		}
	}
	for _, name := range existing {
		if _, ok := nextSet[strings.ToLower(name)]; !ok {
			removed = append(removed, name)
		}
	}
	return added, removed
}

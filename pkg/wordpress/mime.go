package wordpress

import "sort"

var fileTypeMimePatterns = map[string][]string{
	"image":    {"image/%"},
	"video":    {"video/%"},
	"audio":    {"audio/%"},
	"document": {"application/%", "text/%"},
}

// MimePatterns turns file type groups into LIKE patterns on post_mime_type.
// No groups, or every group, means no filter.
func MimePatterns(fileTypes []string) []string {
	if len(fileTypes) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var patterns []string
	for _, group := range fileTypes {
		if seen[group] {
			continue
		}
		seen[group] = true
		patterns = append(patterns, fileTypeMimePatterns[group]...)
	}

	if len(seen) >= len(fileTypeMimePatterns) {
		all := true
		for group := range fileTypeMimePatterns {
			if !seen[group] {
				all = false
			}
		}
		if all {
			return nil
		}
	}

	sort.Strings(patterns)
	return patterns
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

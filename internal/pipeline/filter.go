package pipeline

import "github.com/Uttutt17/akari/internal/catalog"

// FilterAvailable restricts the requested attribute list to attributes
// present on at least one of the supplied products, preserving the
// requested order. An empty product map yields an empty list.
func FilterAvailable(requested []string, perProduct map[string]map[string]catalog.Value) []string {
	if len(perProduct) == 0 {
		return []string{}
	}

	union := make(map[string]struct{})
	for _, attrs := range perProduct {
		for name := range attrs {
			union[name] = struct{}{}
		}
	}

	available := []string{}
	for _, attr := range requested {
		if _, ok := union[attr]; ok {
			available = append(available, attr)
		}
	}
	return available
}

package validation

import (
	"sort"
	"strings"

	"github.com/agext/levenshtein"

	"github.com/goliatone/go-flexforms/pkg/definition"
	"github.com/goliatone/go-flexforms/pkg/expr"
)

// suggest returns the candidate closest to name within maxDist edits,
// comparing case-insensitively. Ties go to the earlier candidate.
func suggest(name string, candidates []string, maxDist int) string {
	target := strings.ToLower(name)
	best, bestDist := "", maxDist+1
	for _, candidate := range candidates {
		if candidate == name {
			continue
		}
		if d := levenshtein.Distance(target, strings.ToLower(candidate), nil); d < bestDist {
			best, bestDist = candidate, d
		}
	}
	return best
}

// readingAttributes joins the attributes of field whose compiled
// expressions read ref, in modifier order.
func readingAttributes(field definition.Field, programs []expr.Program, ref string) string {
	var attrs []string
	seen := map[string]bool{}
	for i, prog := range programs {
		if prog == nil || i >= len(field.Modifiers) {
			continue
		}
		mod := field.Modifiers[i]
		if seen[mod.Attribute] {
			continue
		}
		for _, r := range prog.References() {
			if r == ref {
				attrs = append(attrs, mod.Attribute)
				seen[mod.Attribute] = true
				break
			}
		}
	}
	return strings.Join(attrs, ",")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

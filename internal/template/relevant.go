package template

import (
	"slices"
	"strings"

	"k8s.io/apimachinery/pkg/labels"

	"kv-shepherd.io/vmwizard/internal/domain"
)

// flavorOrder ranks common templates that otherwise match equally.
var flavorOrder = []string{"large", "medium", "small", "tiny"}

// Selection is the part of the wizard state that picks templates.
type Selection struct {
	UserTemplate string
	OS           string
	Workload     string
	Flavor       string
}

// Relevant returns the template whose settings apply to sel. A selected user template
// always wins; otherwise the common templates labeled for every selected os, workload
// and flavor are ranked by flavor (large, medium, small, tiny, then the rest) and by name.
func Relevant(sel Selection, user, common []domain.Template) (domain.Template, bool) {
	if sel.UserTemplate != "" {
		for _, t := range user {
			if t.Name() == sel.UserTemplate {
				return t, true
			}
		}
		return domain.Template{}, false
	}

	candidates := Matching(sel, common)
	if len(candidates) == 0 {
		return domain.Template{}, false
	}
	return candidates[0], true
}

// Matching returns the common templates labeled for every selected os, workload and
// flavor, best first.
func Matching(sel Selection, common []domain.Template) []domain.Template {
	selector := sel.Selector()
	var out []domain.Template
	for _, t := range common {
		if selector.Matches(labels.Set(t.Metadata.Labels)) {
			out = append(out, t)
		}
	}
	slices.SortStableFunc(out, func(a, b domain.Template) int {
		if d := flavorRank(a) - flavorRank(b); d != 0 {
			return d
		}
		return strings.Compare(a.Name(), b.Name())
	})
	return out
}

func flavorRank(t domain.Template) int {
	best := len(flavorOrder)
	for i, f := range flavorOrder {
		if hasLabel(t, FlavorLabel(f)) && i < best {
			best = i
		}
	}
	return best
}

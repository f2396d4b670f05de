// Package template reads the labels and validation rules of VM templates and picks
// the template relevant to a wizard selection.
//
// Import Path: kv-shepherd.io/vmwizard/internal/template
package template

import (
	"slices"
	"strings"

	"k8s.io/apimachinery/pkg/labels"

	"kv-shepherd.io/vmwizard/internal/domain"
)

// Label and annotation keys of common templates.
const (
	OSLabelPrefix       = "os.template.kubevirt.io/"
	WorkloadLabelPrefix = "workload.template.kubevirt.io/"
	FlavorLabelPrefix   = "flavor.template.kubevirt.io/"

	TypeLabel     = "template.kubevirt.io/type"
	TypeBaseValue = "base"

	ValidationsAnnotation = "validations"
)

func OSLabel(os string) string             { return OSLabelPrefix + os }
func WorkloadLabel(workload string) string { return WorkloadLabelPrefix + workload }
func FlavorLabel(flavor string) string     { return FlavorLabelPrefix + flavor }

var commonTemplates = labels.SelectorFromSet(labels.Set{TypeLabel: TypeBaseValue})

// IsCommonTemplate reports whether the template is a base template shipped with the cluster.
func IsCommonTemplate(t domain.Template) bool {
	return commonTemplates.Matches(labels.Set(t.Metadata.Labels))
}

// OS returns the first operating system the template is labeled for.
func OS(t domain.Template) string { return firstLabeled(t, OSLabelPrefix) }

// Workload returns the first workload profile the template is labeled for.
func Workload(t domain.Template) string { return firstLabeled(t, WorkloadLabelPrefix) }

// Flavor returns the first flavor the template is labeled for.
func Flavor(t domain.Template) string { return firstLabeled(t, FlavorLabelPrefix) }

// Labeled returns every value the template is labeled for under prefix, sorted.
func Labeled(t domain.Template, prefix string) []string {
	var out []string
	for k, v := range t.Metadata.Labels {
		if v == "true" && strings.HasPrefix(k, prefix) {
			out = append(out, strings.TrimPrefix(k, prefix))
		}
	}
	slices.Sort(out)
	return out
}

func firstLabeled(t domain.Template, prefix string) string {
	values := Labeled(t, prefix)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// Selector matches the templates labeled for every selected os, workload and flavor.
// An empty selection matches everything.
func (sel Selection) Selector() labels.Selector {
	set := labels.Set{}
	if sel.OS != "" {
		set[OSLabel(sel.OS)] = "true"
	}
	if sel.Workload != "" {
		set[WorkloadLabel(sel.Workload)] = "true"
	}
	if sel.Flavor != "" {
		set[FlavorLabel(sel.Flavor)] = "true"
	}
	return labels.SelectorFromSet(set)
}

func hasLabel(t domain.Template, key string) bool {
	return labels.Set(t.Metadata.Labels).Get(key) == "true"
}

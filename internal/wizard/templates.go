package wizard

import (
	"kv-shepherd.io/vmwizard/internal/domain"
	"kv-shepherd.io/vmwizard/internal/template"
)

// Selection returns the template selection made on the VM settings tab.
func (s Snapshot) Selection() template.Selection {
	v := s.VMSettings
	return template.Selection{
		UserTemplate: v.UserTemplate.Value,
		OS:           v.OperatingSystem.Value,
		Workload:     v.WorkloadProfile.Value,
		Flavor:       v.Flavor.Value,
	}
}

// RelevantTemplate returns the template whose settings and validations apply. Common
// templates become relevant once an operating system is selected.
func (s Snapshot) RelevantTemplate() (domain.Template, bool) {
	sel := s.Selection()
	if sel.UserTemplate == "" && sel.OS == "" {
		return domain.Template{}, false
	}
	return template.Relevant(sel, s.References.UserTemplates, s.References.CommonTemplates)
}

// SelectedUserTemplate returns the user template chosen on the VM settings tab.
func (s Snapshot) SelectedUserTemplate() (domain.Template, bool) {
	name := s.VMSettings.UserTemplate.Value
	if name == "" {
		return domain.Template{}, false
	}
	for _, t := range s.References.UserTemplates {
		if t.Name() == name {
			return t, true
		}
	}
	return domain.Template{}, false
}

// Validations returns the rules of the relevant template. Only the top ranked template
// contributes; without one the result is empty.
func (s Snapshot) Validations() (template.Validations, error) {
	t, ok := s.RelevantTemplate()
	if !ok {
		return template.New(), nil
	}
	return template.FromTemplates(t)
}

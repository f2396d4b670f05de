package wizard

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"k8s.io/apimachinery/pkg/api/resource"
	kvalidation "k8s.io/apimachinery/pkg/util/validation"

	"kv-shepherd.io/vmwizard/internal/domain"
	apperrors "kv-shepherd.io/vmwizard/internal/pkg/errors"
	"kv-shepherd.io/vmwizard/internal/storage/combined"
	"kv-shepherd.io/vmwizard/internal/storage/source"
	"kv-shepherd.io/vmwizard/internal/template"
)

// ValidationResult is the outcome of validating a tab or a row. Warnings never make a
// result invalid.
type ValidationResult struct {
	IsValid              bool                   `json:"isValid"`
	HasAllRequiredFilled bool                   `json:"hasAllRequiredFilled"`
	FieldErrors          []apperrors.FieldError `json:"fieldErrors,omitempty"`
	Warnings             []apperrors.FieldError `json:"warnings,omitempty"`
}

type validator struct {
	res ValidationResult
}

func newValidator() *validator {
	return &validator{res: ValidationResult{IsValid: true, HasAllRequiredFilled: true}}
}

func (v *validator) fail(field, code, message string) {
	v.res.IsValid = false
	v.res.FieldErrors = append(v.res.FieldErrors, apperrors.FieldError{Field: field, Code: code, Message: message})
}

func (v *validator) missing(field string) {
	v.res.HasAllRequiredFilled = false
	v.fail(field, apperrors.CodeFieldRequired, "")
}

func (v *validator) warn(field, code, message string) {
	v.res.Warnings = append(v.res.Warnings, apperrors.FieldError{Field: field, Code: code, Message: message})
}

func (v *validator) merge(other ValidationResult) {
	v.res.IsValid = v.res.IsValid && other.IsValid
	v.res.HasAllRequiredFilled = v.res.HasAllRequiredFilled && other.HasAllRequiredFilled
	v.res.FieldErrors = append(v.res.FieldErrors, other.FieldErrors...)
	v.res.Warnings = append(v.res.Warnings, other.Warnings...)
}

func storageField(id int, name string) string { return fmt.Sprintf("storages[%d].%s", id, name) }

// ValidateStorage checks one storage row against its source's requirements, the other
// rows of the snapshot, the live references and the relevant template. References that
// are still loading are not reported missing.
func ValidateStorage(s Snapshot, st Storage) ValidationResult {
	rules, _ := s.Validations()
	return validateStorage(s, s.CombinedDisks(), st, rules)
}

func validateStorage(s Snapshot, set *combined.Set, st Storage, rules template.Validations) ValidationResult {
	v := newValidator()
	d := s.CombinedDisk(st)
	field := func(name string) string { return storageField(st.ID, name) }

	name := d.Name()
	switch {
	case name == "":
		v.missing(field("name"))
	case len(kvalidation.IsDNS1123Label(name)) > 0:
		v.fail(field("name"), apperrors.CodeNameInvalid, strings.Join(kvalidation.IsDNS1123Label(name), "; "))
	case set.UsedDiskNames(st.ID).Has(name):
		v.fail(field("name"), apperrors.CodeNameDuplicate, "disk name "+name+" is already used")
	}

	src := d.Source()
	if !src.CanChangeTo(d.Type()) {
		v.fail(field("source"), apperrors.CodeSourceNotAllowed,
			fmt.Sprintf("%s cannot back a %s", src.Label(), d.Type()))
	}
	if !src.IsEditingSupported() {
		return v.res
	}

	if dv := d.DataVolume(); dv != nil && dv.Name() != "" && set.UsedDataVolumeNames(st.ID).Has(dv.Name()) {
		v.fail(field("dataVolume.name"), apperrors.CodeNameDuplicate, "data volume name "+dv.Name()+" is already used")
	}
	if src.RequiresClaim() || src.RequiresNewClaim() {
		if c := d.ClaimName(); c != "" && set.UsedClaimNames(st.ID).Has(c) {
			v.fail(field("claim.name"), apperrors.CodeNameDuplicate, "claim "+c+" is already used by another disk")
		}
	}

	if src.RequiresSize() {
		size, res := d.Size()
		if res != combined.Unknown && size.IsZero() {
			v.missing(field("size"))
		}
	}

	if src.RequiresURL() {
		validateURL(v, field("url"), d.Content())
	}
	if src.RequiresContainerImage() {
		switch image := d.Content(); {
		case image == "":
			v.missing(field("image"))
		case strings.ContainsAny(image, " \t\n"):
			v.fail(field("image"), apperrors.CodeImageInvalid, "image reference contains whitespace")
		}
	}

	if src.RequiresClaim() {
		validateClaimReference(v, s, d, field("claim"))
	}

	if t := d.Type(); t != domain.DiskTypeFloppy && t != "" {
		if !rules.IsBusAllowed(t, d.Bus()) {
			v.fail(field("bus"), apperrors.CodeBusNotAllowed,
				fmt.Sprintf("bus %s is not allowed, use one of %v", d.Bus(), rules.AllowedBuses(t)))
		}
	}
	return v.res
}

func validateURL(v *validator, field, raw string) {
	if raw == "" {
		v.missing(field)
		return
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		v.fail(field, apperrors.CodeURLInvalid, "URL must be an absolute http or https URL")
	}
}

func validateClaimReference(v *validator, s Snapshot, d combined.Disk, field string) {
	var name, ns string
	switch d.Source() {
	case source.AttachDisk:
		name, ns = d.Volume().ClaimName(), s.Namespace
	case source.AttachClonedDisk:
		if dv := d.DataVolume(); dv != nil {
			name, ns = dv.PVCSourceName(), namespaceOr(dv.PVCSourceNamespace(), s.Namespace)
		}
	default:
		return
	}
	if name == "" {
		v.missing(field)
		return
	}
	if s.References.Claims.Loading || s.liveClaim(name, ns) != nil || s.isBaseImage(name, ns) {
		return
	}
	v.fail(field, apperrors.CodeClaimNotFound, "claim "+name+" does not exist")
}

func (s Snapshot) isBaseImage(name, namespace string) bool {
	for _, img := range s.References.BaseImages {
		if img.Claim.Metadata.Name == name && img.Claim.Metadata.Namespace == namespace {
			return true
		}
	}
	return false
}

// ValidateSnapshot checks every tab of the wizard.
func ValidateSnapshot(s Snapshot) ValidationResult {
	v := newValidator()
	settings := s.VMSettings
	rules, err := s.Validations()
	if err != nil {
		v.warn("vmSettings."+string(FieldUserTemplate), apperrors.CodeValidationFailed, err.Error())
	}

	for _, key := range FieldKeys() {
		f, _ := settings.Field(key)
		if f.IsRequired && !f.IsHidden && f.Value == "" {
			v.missing("vmSettings." + string(key))
		}
	}

	if name := settings.Name.Value; name != "" {
		if errs := kvalidation.IsDNS1123Label(name); len(errs) > 0 {
			v.fail("vmSettings.name", apperrors.CodeNameInvalid, strings.Join(errs, "; "))
		}
	}
	if name := settings.UserTemplate.Value; name != "" && !s.References.TemplatesLoading {
		if _, ok := s.SelectedUserTemplate(); !ok {
			v.fail("vmSettings.userTemplate", apperrors.CodeValidationFailed, "template "+name+" does not exist")
		}
	}
	if settings.ImageURL.Value != "" && !settings.ImageURL.IsHidden {
		validateURL(v, "vmSettings.imageURL", settings.ImageURL.Value)
	}
	validateMemory(v, rules, settings.Memory.Value)
	if cpu := settings.CPU.Value; cpu != "" {
		if n, err := strconv.Atoi(cpu); err != nil || n < 1 {
			v.fail("vmSettings.cpu", apperrors.CodeValidationFailed, "CPU count must be a positive integer")
		}
	}

	set := s.CombinedDisks()
	for _, st := range s.Storages {
		v.merge(validateStorage(s, set, st, rules))
	}
	validateBootSource(v, s, set)
	return v.res
}

func validateMemory(v *validator, rules template.Validations, value string) {
	if value == "" {
		return
	}
	q, err := resource.ParseQuantity(value)
	if err != nil {
		v.fail("vmSettings.memory", apperrors.CodeSizeInvalid, "memory must be a quantity such as 2Gi")
		return
	}
	res := rules.ValidateMemory(q.Value())
	switch {
	case !res.Valid:
		v.fail("vmSettings.memory", apperrors.CodeMemoryOutOfRange, memoryMessage(res))
	case res.IsWarning:
		v.warn("vmSettings.memory", apperrors.CodeMemoryOutOfRange, memoryMessage(res))
	}
}

func memoryMessage(res template.IntegerResult) string {
	if res.Message != "" {
		return res.Message
	}
	var parts []string
	if b := res.Bounds.Min; b != nil {
		parts = append(parts, "min "+resource.NewQuantity(b.Value, resource.BinarySI).String())
	}
	if b := res.Bounds.Max; b != nil {
		parts = append(parts, "max "+resource.NewQuantity(b.Value, resource.BinarySI).String())
	}
	return "memory is out of range (" + strings.Join(parts, ", ") + ")"
}

// validateBootSource requires a usable boot disk for disk provisioned VMs and a boot
// interface for PXE.
func validateBootSource(v *validator, s Snapshot, set *combined.Set) {
	ps := source.ProvisionSourceFromKey(s.VMSettings.ProvisionSource.Value)
	switch {
	case ps == nil:
	case ps.IsNetworkBoot():
		for _, n := range s.Networks {
			if n.Interface.BootOrder != nil && *n.Interface.BootOrder == 1 {
				return
			}
		}
		v.fail("networks", apperrors.CodeBootSourceInvalid, "no bootable network interface found")
	case ps.RequiresBootableDisk():
		boot := set.ValidateBootSource()
		if !boot.Valid && !boot.Unknown {
			v.fail("storages", apperrors.CodeBootSourceInvalid, boot.Message)
		}
	}
}

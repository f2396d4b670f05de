package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"kv-shepherd.io/vmwizard/internal/domain"
)

// Validation paths understood by the wizard.
const (
	MemoryPath   = "jsonpath::.spec.domain.resources.requests.memory"
	DiskBusPath  = "jsonpath::.spec.domain.devices.disks[*].disk.bus"
	CDRomBusPath = "jsonpath::.spec.domain.devices.disks[*].cdrom.bus"
	LUNBusPath   = "jsonpath::.spec.domain.devices.disks[*].lun.bus"
)

// Rule kinds.
const (
	RuleInteger = "integer"
	RuleEnum    = "enum"
)

// FallbackBus is the default bus when no template constrains buses.
const FallbackBus = domain.DiskBusVirtio

// Rule is one entry of the validations annotation of a template.
type Rule struct {
	Name         string   `json:"name"`
	Path         string   `json:"path"`
	Rule         string   `json:"rule"`
	Message      string   `json:"message,omitempty"`
	Min          *int64   `json:"min,omitempty"`
	Max          *int64   `json:"max,omitempty"`
	ExclusiveMin bool     `json:"exclusiveMin,omitempty"`
	ExclusiveMax bool     `json:"exclusiveMax,omitempty"`
	Values       []string `json:"values,omitempty"`
	JustWarning  bool     `json:"justWarning,omitempty"`
}

// ParseRules decodes a validations annotation. An empty annotation has no rules.
func ParseRules(annotation string) ([]Rule, error) {
	if annotation == "" {
		return nil, nil
	}
	var rules []Rule
	if err := json.Unmarshal([]byte(annotation), &rules); err != nil {
		return nil, fmt.Errorf("decode validations annotation: %w", err)
	}
	return rules, nil
}

// Validations is the rule set of one or more templates, one group per template.
type Validations struct {
	groups [][]Rule
}

// New builds validations from explicit rule groups.
func New(groups ...[]Rule) Validations {
	return Validations{groups: groups}
}

// FromTemplates builds validations from the annotations of templates. Templates whose
// annotation cannot be decoded contribute no rules; their errors are joined.
func FromTemplates(templates ...domain.Template) (Validations, error) {
	var (
		v    Validations
		errs []error
	)
	for _, t := range templates {
		rules, err := ParseRules(t.Metadata.Annotations[ValidationsAnnotation])
		if err != nil {
			errs = append(errs, fmt.Errorf("template %s: %w", t.Name(), err))
			continue
		}
		v.groups = append(v.groups, rules)
	}
	return v, errors.Join(errs...)
}

// IsEmpty reports whether no rule is known.
func (v Validations) IsEmpty() bool {
	for _, g := range v.groups {
		if len(g) > 0 {
			return false
		}
	}
	return true
}

// Bound is one end of an integer range.
type Bound struct {
	Value     int64 `json:"value"`
	Exclusive bool  `json:"exclusive,omitempty"`
}

// Bounds is an effective integer range; a nil end is open.
type Bounds struct {
	Min *Bound `json:"min,omitempty"`
	Max *Bound `json:"max,omitempty"`
}

// Contains reports whether value lies within the bounds.
func (b Bounds) Contains(value int64) bool {
	if b.Min != nil {
		if value < b.Min.Value || (b.Min.Exclusive && value == b.Min.Value) {
			return false
		}
	}
	if b.Max != nil {
		if value > b.Max.Value || (b.Max.Exclusive && value == b.Max.Value) {
			return false
		}
	}
	return true
}

// tighten narrows b with rule; a bound is replaced only by a stricter one.
func (b Bounds) tighten(r Rule) Bounds {
	if r.Min != nil {
		next := Bound{Value: *r.Min, Exclusive: r.ExclusiveMin}
		if b.Min == nil || next.Value > b.Min.Value || (next.Value == b.Min.Value && next.Exclusive && !b.Min.Exclusive) {
			b.Min = &next
		}
	}
	if r.Max != nil {
		next := Bound{Value: *r.Max, Exclusive: r.ExclusiveMax}
		if b.Max == nil || next.Value < b.Max.Value || (next.Value == b.Max.Value && next.Exclusive && !b.Max.Exclusive) {
			b.Max = &next
		}
	}
	return b
}

// IntegerResult is the outcome of an integer validation.
type IntegerResult struct {
	Valid     bool   `json:"valid"`
	IsWarning bool   `json:"isWarning,omitempty"`
	Bounds    Bounds `json:"bounds"`
	Message   string `json:"message,omitempty"`
}

// ValidateInteger folds every integer rule on path, starting from defaults, and checks
// value against the result. Warning-only rules are folded separately: violating only
// them yields a valid result flagged as a warning.
func (v Validations) ValidateInteger(value int64, path string, defaults Bounds) IntegerResult {
	hard, soft := defaults, Bounds{}
	var hardMsg, softMsg string
	for _, g := range v.groups {
		for _, r := range g {
			if r.Path != path || r.Rule != RuleInteger {
				continue
			}
			if r.JustWarning {
				soft = soft.tighten(r)
				if !r.satisfiedBy(value) && softMsg == "" {
					softMsg = r.Message
				}
				continue
			}
			hard = hard.tighten(r)
			if !r.satisfiedBy(value) && hardMsg == "" {
				hardMsg = r.Message
			}
		}
	}

	if !hard.Contains(value) {
		return IntegerResult{Bounds: hard, Message: hardMsg}
	}
	if !soft.Contains(value) {
		return IntegerResult{Valid: true, IsWarning: true, Bounds: soft, Message: softMsg}
	}
	return IntegerResult{Valid: true, Bounds: hard}
}

// ValidateMemory checks a memory request in bytes.
func (v Validations) ValidateMemory(bytes int64) IntegerResult {
	return v.ValidateInteger(bytes, MemoryPath, Bounds{Min: &Bound{Value: 0, Exclusive: true}})
}

func (r Rule) satisfiedBy(value int64) bool {
	return Bounds{}.tighten(r).Contains(value)
}

// BusPath returns the validation path of the bus of a disk type; floppies have none.
func BusPath(diskType domain.DiskType) string {
	switch diskType {
	case domain.DiskTypeDisk:
		return DiskBusPath
	case domain.DiskTypeCDRom:
		return CDRomBusPath
	case domain.DiskTypeLUN:
		return LUNBusPath
	}
	return ""
}

// AllowedBuses returns the buses a disk of diskType may use. Within one template the
// enum rules on the bus path are united; across templates the sets are intersected.
// A nil result means every bus is legal. A non-nil empty result means the templates
// disagree and no bus is legal.
func (v Validations) AllowedBuses(diskType domain.DiskType) []domain.DiskBus {
	path := BusPath(diskType)
	if path == "" {
		return nil
	}

	var (
		allowed     []domain.DiskBus
		constrained bool
	)
	for _, g := range v.groups {
		var union []domain.DiskBus
		seen := false
		for _, r := range g {
			if r.Path != path || r.Rule != RuleEnum || r.JustWarning {
				continue
			}
			seen = true
			for _, value := range r.Values {
				if bus := domain.DiskBus(value); !slices.Contains(union, bus) {
					union = append(union, bus)
				}
			}
		}
		if !seen {
			continue
		}
		if !constrained {
			allowed, constrained = union, true
			continue
		}
		allowed = slices.DeleteFunc(allowed, func(bus domain.DiskBus) bool {
			return !slices.Contains(union, bus)
		})
	}
	if constrained && allowed == nil {
		allowed = []domain.DiskBus{}
	}
	return allowed
}

// IsBusAllowed reports whether bus is legal for a disk of diskType.
func (v Validations) IsBusAllowed(diskType domain.DiskType, bus domain.DiskBus) bool {
	allowed := v.AllowedBuses(diskType)
	return allowed == nil || slices.Contains(allowed, bus)
}

// DefaultBus returns the first allowed bus of diskType, or virtio when unconstrained.
func (v Validations) DefaultBus(diskType domain.DiskType) domain.DiskBus {
	if allowed := v.AllowedBuses(diskType); len(allowed) > 0 {
		return allowed[0]
	}
	return FallbackBus
}

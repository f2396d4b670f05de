package wrapper

import (
	"fmt"
	"strconv"

	"k8s.io/apimachinery/pkg/api/resource"
)

// Size is a storage quantity split into a value and a binary unit.
type Size struct {
	Value int64  `json:"value"`
	Unit  string `json:"unit"`
}

var binaryUnits = []struct {
	name   string
	factor int64
}{
	{"Ti", 1 << 40},
	{"Gi", 1 << 30},
	{"Mi", 1 << 20},
	{"Ki", 1 << 10},
}

// SizeUnits are the units offered when a size is entered by hand.
var SizeUnits = []string{"Mi", "Gi", "Ti"}

// ParseSize converts a Kubernetes quantity ("10Gi", "512M") into the largest
// binary unit that represents it exactly.
func ParseSize(quantity string) (Size, error) {
	q, err := resource.ParseQuantity(quantity)
	if err != nil {
		return Size{}, fmt.Errorf("parse size %q: %w", quantity, err)
	}
	return sizeFromBytes(q.Value()), nil
}

func sizeFromBytes(bytes int64) Size {
	for _, u := range binaryUnits {
		if bytes >= u.factor && bytes%u.factor == 0 {
			return Size{Value: bytes / u.factor, Unit: u.name}
		}
	}
	return Size{Value: bytes}
}

// String renders the size as a Kubernetes quantity.
func (s Size) String() string {
	return strconv.FormatInt(s.Value, 10) + s.Unit
}

// Bytes returns the size in bytes.
func (s Size) Bytes() int64 {
	for _, u := range binaryUnits {
		if u.name == s.Unit {
			return s.Value * u.factor
		}
	}
	return s.Value
}

// IsZero reports whether the size is empty.
func (s Size) IsZero() bool {
	return s.Value == 0
}

func readableSize(quantity string) (Size, bool) {
	if quantity == "" {
		return Size{}, false
	}
	size, err := ParseSize(quantity)
	if err != nil {
		return Size{}, false
	}
	return size, true
}

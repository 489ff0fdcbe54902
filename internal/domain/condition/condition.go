package condition

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// CardFields is the read surface a condition evaluates against.
type CardFields interface {
	Numeric(field string) (float64, bool)
}

// Kind discriminates numeric condition variants.
type Kind string

// Condition kinds.
const (
	KindRange       Kind = "range"
	KindMultiple    Kind = "multiple"
	KindApproximate Kind = "approximate"
	KindEquality    Kind = "equality"
)

// Condition is one numeric constraint extracted from a query.
// Exactly one variant payload is populated, selected by Kind.
type Condition struct {
	kind      Kind
	field     string
	min       float64
	max       float64
	values    map[float64]struct{}
	value     float64
	tolerance float64
}

// NewRange creates an inclusive range condition.
func NewRange(field string, minVal, maxVal float64) (Condition, error) {
	if field == "" {
		return Condition{}, fmt.Errorf("range condition requires a field")
	}
	if minVal > maxVal {
		return Condition{}, fmt.Errorf("range min %g exceeds max %g", minVal, maxVal)
	}
	return Condition{kind: KindRange, field: field, min: minVal, max: maxVal}, nil
}

// NewMultiple creates a set-membership condition.
func NewMultiple(field string, values []float64) (Condition, error) {
	if field == "" {
		return Condition{}, fmt.Errorf("multiple condition requires a field")
	}
	if len(values) == 0 {
		return Condition{}, fmt.Errorf("multiple condition requires at least one value")
	}
	set := make(map[float64]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return Condition{kind: KindMultiple, field: field, values: set}, nil
}

// NewApproximate creates a tolerance-window condition. Tolerance must be positive.
func NewApproximate(field string, value, tolerance float64) (Condition, error) {
	if field == "" {
		return Condition{}, fmt.Errorf("approximate condition requires a field")
	}
	if tolerance <= 0 {
		return Condition{}, fmt.Errorf("approximate tolerance must be positive, got %g", tolerance)
	}
	return Condition{kind: KindApproximate, field: field, value: value, tolerance: tolerance}, nil
}

// NewEquality creates an exact-value condition.
func NewEquality(field string, value float64) (Condition, error) {
	if field == "" {
		return Condition{}, fmt.Errorf("equality condition requires a field")
	}
	return Condition{kind: KindEquality, field: field, value: value}, nil
}

// Kind returns the variant discriminator.
func (c *Condition) Kind() Kind { return c.kind }

// Field returns the canonical card field the condition applies to.
func (c *Condition) Field() string { return c.field }

// Min returns the range lower bound (range variant only).
func (c *Condition) Min() float64 { return c.min }

// Max returns the range upper bound (range variant only).
func (c *Condition) Max() float64 { return c.max }

// Value returns the target value (approximate and equality variants).
func (c *Condition) Value() float64 { return c.value }

// Tolerance returns the approximate window half-width.
func (c *Condition) Tolerance() float64 { return c.tolerance }

// Values returns the member values in ascending order (multiple variant only).
func (c *Condition) Values() []float64 {
	out := make([]float64, 0, len(c.values))
	for v := range c.values {
		out = append(out, v)
	}
	sort.Float64s(out)
	return out
}

// Matches evaluates the condition against a card. A card whose field is
// absent never matches; no variant ever raises.
func (c *Condition) Matches(card CardFields) bool {
	v, ok := card.Numeric(c.field)
	if !ok {
		return false
	}
	switch c.kind {
	case KindRange:
		return v >= c.min && v <= c.max
	case KindMultiple:
		_, hit := c.values[v]
		return hit
	case KindApproximate:
		return math.Abs(v-c.value) <= c.tolerance
	case KindEquality:
		return v == c.value
	default:
		return false
	}
}

// String renders the condition for logging and classifier keyword lists.
func (c *Condition) String() string {
	switch c.kind {
	case KindRange:
		lo, hi := formatBound(c.min), formatBound(c.max)
		return fmt.Sprintf("%s:%s-%s", c.field, lo, hi)
	case KindMultiple:
		parts := make([]string, 0, len(c.values))
		for _, v := range c.Values() {
			parts = append(parts, formatBound(v))
		}
		return fmt.Sprintf("%s:%s", c.field, strings.Join(parts, "|"))
	case KindApproximate:
		return fmt.Sprintf("%s:~%s±%g", c.field, formatBound(c.value), c.tolerance)
	case KindEquality:
		return fmt.Sprintf("%s:%s", c.field, formatBound(c.value))
	default:
		return c.field
	}
}

func formatBound(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	if math.IsInf(v, -1) {
		return "-inf"
	}
	return fmt.Sprintf("%g", v)
}

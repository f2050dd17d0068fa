package feed

import (
	"encoding/json"
	"fmt"
	"math"
)

// Bound is an optional maximum inclusion. The zero value is unbounded.
type Bound struct {
	value   float64
	bounded bool
}

// Unbounded returns a Bound with no upper limit.
func Unbounded() Bound {
	return Bound{}
}

// UpTo returns a Bound limiting inclusion to kg of dry matter.
func UpTo(kg float64) Bound {
	return Bound{value: kg, bounded: true}
}

// BoundFromPtr converts an optional configuration value into a Bound.
func BoundFromPtr(kg *float64) Bound {
	if kg == nil {
		return Unbounded()
	}
	return UpTo(*kg)
}

// Value returns the limit and whether one is set.
func (b Bound) Value() (float64, bool) {
	return b.value, b.bounded
}

// Limit returns the limit, or +Inf when unbounded.
func (b Bound) Limit() float64 {
	if !b.bounded {
		return math.Inf(1)
	}
	return b.value
}

// Ptr returns the limit as an optional value.
func (b Bound) Ptr() *float64 {
	if !b.bounded {
		return nil
	}
	v := b.value
	return &v
}

func (b Bound) String() string {
	if !b.bounded {
		return "unbounded"
	}
	return fmt.Sprintf("%g", b.value)
}

// MarshalJSON encodes an unbounded limit as null.
func (b Bound) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Ptr())
}

// UnmarshalJSON decodes null as unbounded.
func (b *Bound) UnmarshalJSON(data []byte) error {
	var v *float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("max inclusion must be a number or null: %w", err)
	}
	*b = BoundFromPtr(v)
	return nil
}

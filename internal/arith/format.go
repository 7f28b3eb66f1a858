// Package arith builds reversible fixed-point arithmetic circuits: number
// formats, the affine-max estimator and the strike comparator. All range
// checking happens at circuit-build time; a width that cannot hold the
// declared domain is a validation failure, never a silent runtime truncation.
package arith

import (
	"errors"
	"fmt"
	"math"
)

// ErrValidation reports a fixed-point range or width problem detected while
// building a circuit.
var ErrValidation = errors.New("fixed-point validation failed")

// Format declares how a register's raw bits are read as a number: total bit
// width, number of fractional bits and signedness (two's complement).
type Format struct {
	Width    int
	FracBits int
	Signed   bool
}

// Validate rejects widths the engine cannot host.
func (f Format) Validate() error {
	if f.Width < 1 || f.Width > 32 {
		return fmt.Errorf("width %d out of [1,32]: %w", f.Width, ErrValidation)
	}
	if f.FracBits < 0 || f.FracBits >= f.Width+16 {
		return fmt.Errorf("fractional bits %d invalid for width %d: %w", f.FracBits, f.Width, ErrValidation)
	}
	return nil
}

// Resolution returns the value of one least significant bit.
func (f Format) Resolution() float64 {
	return math.Exp2(-float64(f.FracBits))
}

// Min returns the smallest representable value.
func (f Format) Min() float64 {
	if !f.Signed {
		return 0
	}
	return -math.Exp2(float64(f.Width-1)) * f.Resolution()
}

// Max returns the largest representable value.
func (f Format) Max() float64 {
	if f.Signed {
		return (math.Exp2(float64(f.Width-1)) - 1) * f.Resolution()
	}
	return (math.Exp2(float64(f.Width)) - 1) * f.Resolution()
}

// Covers reports whether the whole interval [lo, hi] is representable.
func (f Format) Covers(lo, hi float64) bool {
	return lo >= f.Min() && hi <= f.Max()
}

// Decode reads raw register bits as a value.
func (f Format) Decode(raw uint64) float64 {
	raw &= (1 << f.Width) - 1
	n := int64(raw)
	if f.Signed && raw >= 1<<(f.Width-1) {
		n -= 1 << f.Width
	}
	return float64(n) * f.Resolution()
}

// Encode rounds a value to the format's resolution (half away from zero) and
// returns its raw bits, or a validation error when the rounded value falls
// outside the representable range.
func (f Format) Encode(v float64) (uint64, error) {
	steps := math.Round(v / f.Resolution())
	if rounded := steps * f.Resolution(); rounded < f.Min() || rounded > f.Max() {
		return 0, fmt.Errorf("value %v does not fit %+v: %w", v, f, ErrValidation)
	}
	return uint64(int64(steps)) & ((1 << f.Width) - 1), nil
}

// EncodeClamp is Encode with saturation instead of an error. It is used only
// inside control predicates, which must be total functions over raw register
// patterns; build-time validation guarantees the reachable domain never
// actually saturates.
func (f Format) EncodeClamp(v float64) uint64 {
	clamped := math.Min(math.Max(v, f.Min()), f.Max())
	raw, err := f.Encode(clamped)
	if err != nil {
		// Min/Max are exactly representable, so this cannot happen.
		panic(err)
	}
	return raw
}

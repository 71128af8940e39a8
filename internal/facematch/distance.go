package facematch

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// DefaultTolerance is the maximum Euclidean distance at which two faces are
// considered the same person.
const DefaultTolerance = 0.6

// DimensionMismatchError is returned when two embeddings of different length are compared.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("embedding dimension mismatch: expected %d, got %d", e.Want, e.Got)
}

// Matcher compares embeddings against a fixed tolerance.
// The zero value is not usable; construct with NewMatcher.
type Matcher struct {
	tolerance float64
}

// NewMatcher returns a Matcher with the given tolerance.
// A non-positive or NaN tolerance falls back to DefaultTolerance.
func NewMatcher(tolerance float64) Matcher {
	if math.IsNaN(tolerance) || tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return Matcher{tolerance: tolerance}
}

// WithTolerance returns a copy of m using tolerance instead.
func (m Matcher) WithTolerance(tolerance float64) Matcher {
	return NewMatcher(tolerance)
}

// Tolerance returns the configured tolerance.
func (m Matcher) Tolerance() float64 {
	return m.tolerance
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Embedding) (float64, error) {
	if len(a) != len(b) {
		return 0, &DimensionMismatchError{Want: len(a), Got: len(b)}
	}
	if len(a) == 0 {
		return 0, nil
	}
	return floats.Distance(a, b, 2), nil
}

// IsMatch reports whether a and b are within the matcher's tolerance.
func (m Matcher) IsMatch(a, b Embedding) (bool, error) {
	return m.IsMatchWithin(a, b, m.tolerance)
}

// IsMatchWithin reports whether a and b are within tolerance. A NaN distance never matches.
func (m Matcher) IsMatchWithin(a, b Embedding, tolerance float64) (bool, error) {
	d, err := Distance(a, b)
	if err != nil {
		return false, err
	}
	return d <= tolerance, nil
}

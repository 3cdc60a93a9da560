package rope

import (
	"fmt"
	"math"
)

// ComputeFreqs returns the geometric frequency progression for a rotation
// dimension: freqs[i] = 1 / theta^(2i/dim) for i in [0, dim/2). A token at
// position p rotates pair i by p * freqs[i] radians. dim must be even and
// non-negative.
func ComputeFreqs(dim int, theta float64) ([]float64, error) {
	if dim < 0 || dim%2 != 0 {
		return nil, fmt.Errorf("%w: rotation dim must be a non-negative even number, got %d", ErrInvalidConfig, dim)
	}
	if theta <= 0 {
		return nil, fmt.Errorf("%w: theta must be positive, got %v", ErrInvalidConfig, theta)
	}

	freqs := make([]float64, dim/2)
	for i := range freqs {
		freqs[i] = 1 / math.Pow(theta, float64(2*i)/float64(dim))
	}
	return freqs, nil
}

// Table holds the precomputed rotations for one axis: a (cosine, sine) pair
// for every position in [0, maxPosition) and every frequency index in
// [0, dim/2). Tables are immutable once built.
type Table struct {
	cos    []float64 // [maxPosition * pairs], row-major by position
	sin    []float64
	freqs  []float64
	maxPos int
	pairs  int
}

// NewTable builds the rotation table for one axis. Trigonometric evaluation
// happens in float64 regardless of the storage precision the rotations are
// later applied to. Rebuilding with the same parameters yields an
// independent table with no shared state.
func NewTable(maxPosition, dim int, theta float64) (*Table, error) {
	if maxPosition <= 0 {
		return nil, fmt.Errorf("%w: max position must be positive, got %d", ErrInvalidConfig, maxPosition)
	}
	freqs, err := ComputeFreqs(dim, theta)
	if err != nil {
		return nil, err
	}

	pairs := dim / 2
	t := &Table{
		cos:    make([]float64, maxPosition*pairs),
		sin:    make([]float64, maxPosition*pairs),
		freqs:  freqs,
		maxPos: maxPosition,
		pairs:  pairs,
	}
	for p := 0; p < maxPosition; p++ {
		row := p * pairs
		for i, f := range freqs {
			angle := float64(p) * f
			t.cos[row+i] = math.Cos(angle)
			t.sin[row+i] = math.Sin(angle)
		}
	}
	return t, nil
}

// MaxPosition returns the exclusive position bound the table was built with.
func (t *Table) MaxPosition() int { return t.maxPos }

// Pairs returns the number of (cos, sin) pairs per position, dim/2.
func (t *Table) Pairs() int { return t.pairs }

// Freqs returns the frequency progression the table was built from. The
// slice aliases the table and must not be modified.
func (t *Table) Freqs() []float64 { return t.freqs }

// Row returns the cosine and sine values for one position. The slices alias
// the table and must not be modified.
func (t *Table) Row(pos int) (cos, sin []float64, err error) {
	if pos < 0 || pos >= t.maxPos {
		return nil, nil, fmt.Errorf("%w: position %d outside [0, %d)", ErrInvalidArgument, pos, t.maxPos)
	}
	cos, sin = t.row(pos)
	return cos, sin, nil
}

func (t *Table) row(pos int) (cos, sin []float64) {
	start := pos * t.pairs
	return t.cos[start : start+t.pairs], t.sin[start : start+t.pairs]
}

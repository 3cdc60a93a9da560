package rope

import "fmt"

// SplitDim splits a per-head rotation dimension across the three
// spatiotemporal axes. The temporal band absorbs the remainder, so the
// split is non-equal whenever dim is not a multiple of six:
// SplitDim(128) = (44, 42, 42). The parts always sum to dim.
func SplitDim(dim int) (frames, height, width int) {
	sixth := dim / 6
	return dim - 4*sixth, 2 * sixth, 2 * sixth
}

// Bands holds one frequency table per spatiotemporal axis, all sharing the
// same position bound. A Bands value is the per-model-configuration
// rotation state for the grid path; it is read-only after construction.
type Bands struct {
	T *Table // temporal axis (frames)
	H *Table // height axis
	W *Table // width axis

	dim    int
	maxPos int
}

// NewBands splits dim with SplitDim and builds the three axis tables. dim
// must be even and positive; dims below six leave the height and width
// bands empty, which rotates the temporal axis only.
func NewBands(maxPosition, dim int, theta float64) (*Bands, error) {
	if dim <= 0 || dim%2 != 0 {
		return nil, fmt.Errorf("%w: rotation dim must be a positive even number, got %d", ErrInvalidConfig, dim)
	}

	fd, hd, wd := SplitDim(dim)
	t, err := NewTable(maxPosition, fd, theta)
	if err != nil {
		return nil, err
	}
	h, err := NewTable(maxPosition, hd, theta)
	if err != nil {
		return nil, err
	}
	w, err := NewTable(maxPosition, wd, theta)
	if err != nil {
		return nil, err
	}
	return &Bands{T: t, H: h, W: w, dim: dim, maxPos: maxPosition}, nil
}

// Dim returns the full rotation dimension covered by the three bands.
func (b *Bands) Dim() int { return b.dim }

// MaxPosition returns the per-axis position bound shared by the bands.
func (b *Bands) MaxPosition() int { return b.maxPos }

// Pairs returns the total number of coordinate pairs, dim/2.
func (b *Bands) Pairs() int { return b.dim / 2 }

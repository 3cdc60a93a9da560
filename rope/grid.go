package rope

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gyrelab/gyre/envconfig"
	"github.com/gyrelab/gyre/logutil"
)

// Grid is one sample's patchified video extent: temporal frames, height
// cells, width cells. Its flattened token order is row-major with frames
// outermost and width innermost.
type Grid struct {
	Frames int
	Height int
	Width  int
}

// Tokens returns the real token count of the grid, Frames*Height*Width.
func (g Grid) Tokens() int { return g.Frames * g.Height * g.Width }

func (g Grid) String() string {
	return fmt.Sprintf("%dx%dx%d", g.Frames, g.Height, g.Width)
}

// GridForVideo returns the grid a patchifier with the given patch size
// produces from a raw video extent of frames x height x width. Every extent
// must divide evenly by its patch dimension.
func GridForVideo(frames, height, width int, patch [3]int) (Grid, error) {
	dims := [3]int{frames, height, width}
	names := [3]string{"frames", "height", "width"}
	for i := range dims {
		if patch[i] < 1 {
			return Grid{}, fmt.Errorf("%w: patch size %v has a non-positive %s extent", ErrInvalidArgument, patch, names[i])
		}
		if dims[i] < 1 || dims[i]%patch[i] != 0 {
			return Grid{}, fmt.Errorf("%w: %s extent %d is not divisible by patch %d", ErrInvalidArgument, names[i], dims[i], patch[i])
		}
	}
	return Grid{Frames: frames / patch[0], Height: height / patch[1], Width: width / patch[2]}, nil
}

func (b *Bands) validateGrid(g Grid) error {
	if g.Frames < 1 || g.Height < 1 || g.Width < 1 {
		return fmt.Errorf("%w: grid %v has a non-positive extent", ErrGridDimension, g)
	}
	if g.Frames > b.maxPos || g.Height > b.maxPos || g.Width > b.maxPos {
		return fmt.Errorf("%w: grid %v exceeds the axis bound %d", ErrGridDimension, g, b.maxPos)
	}
	return nil
}

// TokenTable is the expanded rotation state for one grid: a (cos, sin) row
// of Pairs() values per flattened token, the concatenation of the temporal,
// height, and width band rows selected by the token's axis positions.
type TokenTable struct {
	cos    []float64
	sin    []float64
	pairs  int
	tokens int
}

// Tokens returns the number of rows in the table.
func (tt *TokenTable) Tokens() int { return tt.tokens }

// Pairs returns the number of (cos, sin) values per row.
func (tt *TokenTable) Pairs() int { return tt.pairs }

// Row returns the cosine and sine values for one flattened token. The
// slices alias the table and must not be modified.
func (tt *TokenTable) Row(i int) (cos, sin []float64, err error) {
	if i < 0 || i >= tt.tokens {
		return nil, nil, fmt.Errorf("%w: token %d outside [0, %d)", ErrInvalidArgument, i, tt.tokens)
	}
	start := i * tt.pairs
	return tt.cos[start : start+tt.pairs], tt.sin[start : start+tt.pairs], nil
}

// Expand broadcasts the three axis bands over a grid, producing one
// rotation row per flattened token.
func (b *Bands) Expand(g Grid) (*TokenTable, error) {
	if err := b.validateGrid(g); err != nil {
		return nil, err
	}

	pairs := b.Pairs()
	tt := &TokenTable{
		cos:    make([]float64, g.Tokens()*pairs),
		sin:    make([]float64, g.Tokens()*pairs),
		pairs:  pairs,
		tokens: g.Tokens(),
	}
	row := 0
	for f := 0; f < g.Frames; f++ {
		fcos, fsin := b.T.row(f)
		for h := 0; h < g.Height; h++ {
			hcos, hsin := b.H.row(h)
			for w := 0; w < g.Width; w++ {
				wcos, wsin := b.W.row(w)
				n := copy(tt.cos[row:], fcos)
				n += copy(tt.cos[row+n:], hcos)
				copy(tt.cos[row+n:], wcos)
				n = copy(tt.sin[row:], fsin)
				n += copy(tt.sin[row+n:], hsin)
				copy(tt.sin[row+n:], wsin)
				row += pairs
			}
		}
	}
	return tt, nil
}

// Rotate applies grid-factorized rotations to x in place. Sample i owns the
// token range [i*paddedLen, (i+1)*paddedLen); its first grids[i].Tokens()
// tokens rotate by their axis positions and the rest pass through
// untouched. x must have the bands' rotation dimension. Every sample is
// validated before anything is mutated; on error x is unchanged.
func (b *Bands) Rotate(x *Heads, grids []Grid, paddedLen int) error {
	if x == nil {
		return fmt.Errorf("%w: nil heads buffer", ErrInvalidArgument)
	}
	if x.dim != b.dim {
		return fmt.Errorf("%w: heads dim %d does not match bands dim %d", ErrInvalidArgument, x.dim, b.dim)
	}
	if len(grids) == 0 {
		return fmt.Errorf("%w: no grids", ErrInvalidArgument)
	}
	if paddedLen < 1 {
		return fmt.Errorf("%w: padded length must be positive, got %d", ErrInvalidArgument, paddedLen)
	}
	if x.tokens != len(grids)*paddedLen {
		return fmt.Errorf("%w: buffer holds %d tokens, %d samples of padded length %d need %d",
			ErrInvalidArgument, x.tokens, len(grids), paddedLen, len(grids)*paddedLen)
	}
	for _, g := range grids {
		if err := b.validateGrid(g); err != nil {
			return err
		}
		if g.Tokens() > paddedLen {
			return fmt.Errorf("%w: grid %v has %d tokens, padded length is %d", ErrSequenceTooLong, g, g.Tokens(), paddedLen)
		}
	}

	workers := envconfig.Workers
	if workers > len(grids) {
		workers = len(grids)
	}
	slog.Debug("grid rotation", "samples", len(grids), "padded_len", paddedLen, "dim", b.dim, "dtype", x.dtype, "workers", workers)

	if workers <= 1 {
		for i, g := range grids {
			b.rotateSample(x, g, i*paddedLen)
			logutil.Trace("rotated sample", "sample", i, "grid", g, "tokens", g.Tokens())
		}
		return nil
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(start int) {
			defer wg.Done()
			for i := start; i < len(grids); i += workers {
				b.rotateSample(x, grids[i], i*paddedLen)
				logutil.Trace("rotated sample", "sample", i, "grid", grids[i], "tokens", grids[i].Tokens())
			}
		}(w)
	}
	wg.Wait()
	return nil
}

// rotateSample rotates the real tokens of one sample. base is the sample's
// first token index in x. Rotation math runs in float64, the table
// precision; padding tokens after the grid are never loaded or stored.
func (b *Bands) rotateSample(x *Heads, g Grid, base int) {
	fp := b.T.pairs
	hp := b.H.pairs
	scratch := make([]float32, x.dim)

	tok := base
	for f := 0; f < g.Frames; f++ {
		fcos, fsin := b.T.row(f)
		for h := 0; h < g.Height; h++ {
			hcos, hsin := b.H.row(h)
			for w := 0; w < g.Width; w++ {
				wcos, wsin := b.W.row(w)
				for head := 0; head < x.heads; head++ {
					gi := tok*x.heads + head
					x.loadRow(gi, scratch)
					rotateRow(scratch[:2*fp], fcos, fsin)
					rotateRow(scratch[2*fp:2*(fp+hp)], hcos, hsin)
					rotateRow(scratch[2*(fp+hp):], wcos, wsin)
					x.storeRow(gi, scratch)
				}
				tok++
			}
		}
	}
}

// rotateRow rotates each (re, im) pair of row by the matching table entry:
// re' = re*cos - im*sin, im' = im*cos + re*sin.
func rotateRow(row []float32, cos, sin []float64) {
	for j := range cos {
		re := float64(row[2*j])
		im := float64(row[2*j+1])
		row[2*j] = float32(re*cos[j] - im*sin[j])
		row[2*j+1] = float32(im*cos[j] + re*sin[j])
	}
}

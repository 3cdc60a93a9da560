package rope

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/gyrelab/gyre/envconfig"
)

func TestGridForVideo(t *testing.T) {
	g, err := GridForVideo(8, 32, 32, [3]int{1, 2, 2})
	if err != nil {
		t.Fatalf("GridForVideo: %v", err)
	}
	want := Grid{Frames: 8, Height: 16, Width: 16}
	if g != want {
		t.Errorf("expected %v, got %v", want, g)
	}
	if g.Tokens() != 2048 {
		t.Errorf("expected 2048 tokens, got %d", g.Tokens())
	}

	if _, err := GridForVideo(8, 33, 32, [3]int{1, 2, 2}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("indivisible height: expected ErrInvalidArgument, got %v", err)
	}
	if _, err := GridForVideo(0, 32, 32, [3]int{1, 2, 2}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("zero frames: expected ErrInvalidArgument, got %v", err)
	}
	if _, err := GridForVideo(8, 32, 32, [3]int{0, 2, 2}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("zero patch: expected ErrInvalidArgument, got %v", err)
	}
}

func TestGridString(t *testing.T) {
	g := Grid{Frames: 2, Height: 3, Width: 4}
	if g.Tokens() != 24 {
		t.Errorf("expected 24 tokens, got %d", g.Tokens())
	}
	if g.String() != "2x3x4" {
		t.Errorf("expected 2x3x4, got %s", g.String())
	}
}

// TestExpand verifies that every expanded row is the concatenation of the
// band rows selected by the token's (frame, height, width) coordinates, with
// width varying fastest.
func TestExpand(t *testing.T) {
	b, err := NewBands(8, 12, 10000)
	if err != nil {
		t.Fatalf("NewBands: %v", err)
	}
	g := Grid{Frames: 2, Height: 2, Width: 2}
	tt, err := b.Expand(g)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if tt.Tokens() != 8 || tt.Pairs() != 6 {
		t.Fatalf("expected (8 tokens, 6 pairs), got (%d, %d)", tt.Tokens(), tt.Pairs())
	}

	for f := 0; f < g.Frames; f++ {
		for h := 0; h < g.Height; h++ {
			for w := 0; w < g.Width; w++ {
				tok := (f*g.Height+h)*g.Width + w
				cos, sin, err := tt.Row(tok)
				if err != nil {
					t.Fatalf("Row(%d): %v", tok, err)
				}
				fcos, fsin, _ := b.T.Row(f)
				hcos, hsin, _ := b.H.Row(h)
				wcos, wsin, _ := b.W.Row(w)
				wantCos := append(append(append([]float64{}, fcos...), hcos...), wcos...)
				wantSin := append(append(append([]float64{}, fsin...), hsin...), wsin...)
				for j := range wantCos {
					if cos[j] != wantCos[j] || sin[j] != wantSin[j] {
						t.Fatalf("token %d pair %d: expected (%v, %v), got (%v, %v)",
							tok, j, wantCos[j], wantSin[j], cos[j], sin[j])
					}
				}
			}
		}
	}

	// Token (1, 0, 1): one frame and one width step, band frequencies
	// (1, 0.01) per axis.
	cos, sin, err := tt.Row(5)
	if err != nil {
		t.Fatalf("Row(5): %v", err)
	}
	wantCos := []float64{0.5403023058681398, 0.9999500004166653, 1, 1, 0.5403023058681398, 0.9999500004166653}
	wantSin := []float64{0.8414709848078965, 0.009999833334166664, 0, 0, 0.8414709848078965, 0.009999833334166664}
	for j := range wantCos {
		if diff := math.Abs(cos[j] - wantCos[j]); diff > 1e-12 {
			t.Errorf("cos[%d]: expected %.15f, got %.15f", j, wantCos[j], cos[j])
		}
		if diff := math.Abs(sin[j] - wantSin[j]); diff > 1e-12 {
			t.Errorf("sin[%d]: expected %.15f, got %.15f", j, wantSin[j], sin[j])
		}
	}
}

func TestExpandInvalid(t *testing.T) {
	b, err := NewBands(8, 12, 10000)
	if err != nil {
		t.Fatalf("NewBands: %v", err)
	}
	if _, err := b.Expand(Grid{Frames: 0, Height: 1, Width: 1}); !errors.Is(err, ErrGridDimension) {
		t.Errorf("zero extent: expected ErrGridDimension, got %v", err)
	}
	if _, err := b.Expand(Grid{Frames: 9, Height: 1, Width: 1}); !errors.Is(err, ErrGridDimension) {
		t.Errorf("extent beyond bound: expected ErrGridDimension, got %v", err)
	}
}

func TestTokenTableRowBounds(t *testing.T) {
	b, err := NewBands(8, 12, 10000)
	if err != nil {
		t.Fatalf("NewBands: %v", err)
	}
	tt, err := b.Expand(Grid{Frames: 2, Height: 1, Width: 1})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	for _, i := range []int{-1, 2} {
		if _, _, err := tt.Row(i); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("Row(%d): expected ErrInvalidArgument, got %v", i, err)
		}
	}
}

// TestRotateGrid rotates a two-token temporal grid: the first token sits at
// position zero and passes through, the second rotates by one radian.
func TestRotateGrid(t *testing.T) {
	b, err := NewBands(4, 2, 10000)
	if err != nil {
		t.Fatalf("NewBands: %v", err)
	}
	g := Grid{Frames: 2, Height: 1, Width: 1}

	data := []float32{
		1, 0, // token 0
		1, 0, // token 1
		7, -3, // padding
		-2, 5, // padding
	}
	x, err := NewHeadsF32(data, 4, 1, 2)
	if err != nil {
		t.Fatalf("NewHeadsF32: %v", err)
	}
	if err := b.Rotate(x, []Grid{g}, 4); err != nil {
		t.Fatalf("Rotate: %v", err)
	}

	if data[0] != 1 || data[1] != 0 {
		t.Errorf("token 0: expected identity (1, 0), got (%v, %v)", data[0], data[1])
	}
	if diff := math.Abs(float64(data[2]) - 0.5403023058681398); diff > 1e-6 {
		t.Errorf("token 1 re: expected cos(1), got %v", data[2])
	}
	if diff := math.Abs(float64(data[3]) - 0.8414709848078965); diff > 1e-6 {
		t.Errorf("token 1 im: expected sin(1), got %v", data[3])
	}
	if data[4] != 7 || data[5] != -3 || data[6] != -2 || data[7] != 5 {
		t.Errorf("padding tokens changed: %v", data[4:])
	}
}

// Padding tokens are never loaded, so even bit patterns that do not survive
// an upcast round trip stay intact.
func TestRotatePaddingUntouched(t *testing.T) {
	b, err := NewBands(4, 2, 10000)
	if err != nil {
		t.Fatalf("NewBands: %v", err)
	}
	g := Grid{Frames: 1, Height: 1, Width: 1}

	bits := []uint16{
		0x3C00, 0x0000, // token 0: (1.0, 0.0)
		0x7FFF, 0xDEAD, // padding
		0xFFFF, 0x0001, // padding
	}
	x, err := NewHeadsF16(bits, 3, 1, 2)
	if err != nil {
		t.Fatalf("NewHeadsF16: %v", err)
	}
	if err := b.Rotate(x, []Grid{g}, 3); err != nil {
		t.Fatalf("Rotate: %v", err)
	}

	if bits[0] != 0x3C00 || bits[1] != 0x0000 {
		t.Errorf("identity rotation changed token 0 bits: %04X %04X", bits[0], bits[1])
	}
	want := []uint16{0x7FFF, 0xDEAD, 0xFFFF, 0x0001}
	for i, w := range want {
		if bits[2+i] != w {
			t.Errorf("padding bits[%d]: expected 0x%04X, got 0x%04X", 2+i, w, bits[2+i])
		}
	}
}

// TestRotateMultiSample checks that each sample in a padded batch rotates
// from its own grid and its own position zero.
func TestRotateMultiSample(t *testing.T) {
	b, err := NewBands(4, 2, 10000)
	if err != nil {
		t.Fatalf("NewBands: %v", err)
	}
	grids := []Grid{
		{Frames: 2, Height: 1, Width: 1},
		{Frames: 1, Height: 1, Width: 1},
	}

	const paddedLen = 3
	data := make([]float32, 2*paddedLen*2)
	for i := 0; i < len(data); i += 2 {
		data[i] = 1
		data[i+1] = 2
	}
	x, err := NewHeadsF32(data, 2*paddedLen, 1, 2)
	if err != nil {
		t.Fatalf("NewHeadsF32: %v", err)
	}
	if err := b.Rotate(x, grids, paddedLen); err != nil {
		t.Fatalf("Rotate: %v", err)
	}

	// Sample 0, token 0 and sample 1, token 0 both sit at position zero.
	for _, base := range []int{0, paddedLen * 2} {
		if data[base] != 1 || data[base+1] != 2 {
			t.Errorf("token at offset %d: expected identity (1, 2), got (%v, %v)", base, data[base], data[base+1])
		}
	}

	// Sample 0, token 1 rotates (1, 2) by one radian.
	if diff := math.Abs(float64(data[2]) - (-1.1426396637476532)); diff > 1e-6 {
		t.Errorf("sample 0 token 1 re: expected -1.1426, got %v", data[2])
	}
	if diff := math.Abs(float64(data[3]) - 1.922075596544176); diff > 1e-6 {
		t.Errorf("sample 0 token 1 im: expected 1.9221, got %v", data[3])
	}

	// Sample 0 padding and sample 1 padding stay put.
	for _, off := range []int{4, 8, 10} {
		if data[off] != 1 || data[off+1] != 2 {
			t.Errorf("padding at offset %d changed: (%v, %v)", off, data[off], data[off+1])
		}
	}
}

// TestRotateMatchesExpand cross-checks the in-place path against manual
// application of the expanded per-token rows.
func TestRotateMatchesExpand(t *testing.T) {
	b, err := NewBands(8, 12, 10000)
	if err != nil {
		t.Fatalf("NewBands: %v", err)
	}
	g := Grid{Frames: 2, Height: 2, Width: 2}
	const (
		paddedLen = 10
		heads     = 2
		dim       = 12
	)

	rng := rand.New(rand.NewSource(42))
	data := make([]float32, paddedLen*heads*dim)
	for i := range data {
		data[i] = rng.Float32()*2 - 1
	}
	want := append([]float32{}, data...)

	x, err := NewHeadsF32(data, paddedLen, heads, dim)
	if err != nil {
		t.Fatalf("NewHeadsF32: %v", err)
	}
	if err := b.Rotate(x, []Grid{g}, paddedLen); err != nil {
		t.Fatalf("Rotate: %v", err)
	}

	tt, err := b.Expand(g)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	for tok := 0; tok < g.Tokens(); tok++ {
		cos, sin, err := tt.Row(tok)
		if err != nil {
			t.Fatalf("Row(%d): %v", tok, err)
		}
		for head := 0; head < heads; head++ {
			base := (tok*heads + head) * dim
			for j := range cos {
				re := float64(want[base+2*j])
				im := float64(want[base+2*j+1])
				want[base+2*j] = float32(re*cos[j] - im*sin[j])
				want[base+2*j+1] = float32(im*cos[j] + re*sin[j])
			}
		}
	}
	for i := range want {
		if data[i] != want[i] {
			t.Fatalf("element %d: expected %v, got %v", i, want[i], data[i])
		}
	}
}

// Rotations are isometries: every coordinate pair keeps its Euclidean norm.
func TestRotateIsometry(t *testing.T) {
	b, err := NewBands(16, 12, 10000)
	if err != nil {
		t.Fatalf("NewBands: %v", err)
	}
	g := Grid{Frames: 3, Height: 4, Width: 2}
	const (
		heads = 2
		dim   = 12
	)

	rng := rand.New(rand.NewSource(7))
	data := make([]float32, g.Tokens()*heads*dim)
	for i := range data {
		data[i] = rng.Float32()*4 - 2
	}
	before := append([]float32{}, data...)

	x, err := NewHeadsF32(data, g.Tokens(), heads, dim)
	if err != nil {
		t.Fatalf("NewHeadsF32: %v", err)
	}
	if err := b.Rotate(x, []Grid{g}, g.Tokens()); err != nil {
		t.Fatalf("Rotate: %v", err)
	}

	for i := 0; i < len(data); i += 2 {
		n0 := math.Hypot(float64(before[i]), float64(before[i+1]))
		n1 := math.Hypot(float64(data[i]), float64(data[i+1]))
		if diff := math.Abs(n0 - n1); diff > 1e-4 {
			t.Fatalf("pair %d: norm %v became %v", i/2, n0, n1)
		}
	}
}

func TestRotateValidation(t *testing.T) {
	b, err := NewBands(4, 2, 10000)
	if err != nil {
		t.Fatalf("NewBands: %v", err)
	}
	g := Grid{Frames: 2, Height: 1, Width: 1}

	data := []float32{1, 2, 3, 4, 5, 6, 7, 8}
	x, err := NewHeadsF32(data, 4, 1, 2)
	if err != nil {
		t.Fatalf("NewHeadsF32: %v", err)
	}

	if err := b.Rotate(nil, []Grid{g}, 4); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("nil buffer: expected ErrInvalidArgument, got %v", err)
	}
	if err := b.Rotate(x, nil, 4); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("no grids: expected ErrInvalidArgument, got %v", err)
	}
	if err := b.Rotate(x, []Grid{g}, 0); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("zero padded length: expected ErrInvalidArgument, got %v", err)
	}
	if err := b.Rotate(x, []Grid{g}, 3); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("token count mismatch: expected ErrInvalidArgument, got %v", err)
	}
	if err := b.Rotate(x, []Grid{{Frames: 2, Height: 2, Width: 2}}, 4); !errors.Is(err, ErrSequenceTooLong) {
		t.Errorf("grid beyond padded length: expected ErrSequenceTooLong, got %v", err)
	}
	if err := b.Rotate(x, []Grid{{Frames: 1, Height: 5, Width: 1}}, 4); !errors.Is(err, ErrGridDimension) {
		t.Errorf("extent beyond bound: expected ErrGridDimension, got %v", err)
	}

	wrongDim, err := NewHeadsF32(make([]float32, 16), 4, 1, 4)
	if err != nil {
		t.Fatalf("NewHeadsF32: %v", err)
	}
	if err := b.Rotate(wrongDim, []Grid{g}, 4); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("dim mismatch: expected ErrInvalidArgument, got %v", err)
	}

	// Failed calls validate before mutating.
	for i, v := range []float32{1, 2, 3, 4, 5, 6, 7, 8} {
		if data[i] != v {
			t.Fatalf("buffer changed by rejected call: element %d is %v", i, data[i])
		}
	}
}

func TestRotateParallelMatchesSerial(t *testing.T) {
	b, err := NewBands(8, 12, 10000)
	if err != nil {
		t.Fatalf("NewBands: %v", err)
	}
	grids := make([]Grid, 8)
	for i := range grids {
		grids[i] = Grid{Frames: 1 + i%3, Height: 2, Width: 2}
	}
	const (
		paddedLen = 12
		heads     = 2
		dim       = 12
	)

	rng := rand.New(rand.NewSource(3))
	serial := make([]float32, len(grids)*paddedLen*heads*dim)
	for i := range serial {
		serial[i] = rng.Float32()*2 - 1
	}
	parallel := append([]float32{}, serial...)

	oldWorkers := envconfig.Workers
	defer func() { envconfig.Workers = oldWorkers }()

	envconfig.Workers = 1
	xs, err := NewHeadsF32(serial, len(grids)*paddedLen, heads, dim)
	if err != nil {
		t.Fatalf("NewHeadsF32: %v", err)
	}
	if err := b.Rotate(xs, grids, paddedLen); err != nil {
		t.Fatalf("serial Rotate: %v", err)
	}

	envconfig.Workers = 4
	xp, err := NewHeadsF32(parallel, len(grids)*paddedLen, heads, dim)
	if err != nil {
		t.Fatalf("NewHeadsF32: %v", err)
	}
	if err := b.Rotate(xp, grids, paddedLen); err != nil {
		t.Fatalf("parallel Rotate: %v", err)
	}

	for i := range serial {
		if serial[i] != parallel[i] {
			t.Fatalf("element %d: serial %v, parallel %v", i, serial[i], parallel[i])
		}
	}
}

func BenchmarkRotateGrid(b *testing.B) {
	bands, err := NewBands(64, 128, 10000)
	if err != nil {
		b.Fatal(err)
	}
	g := Grid{Frames: 4, Height: 16, Width: 16}
	const heads = 8

	data := make([]float32, g.Tokens()*heads*128)
	x, err := NewHeadsF32(data, g.Tokens(), heads, 128)
	if err != nil {
		b.Fatal(err)
	}
	grids := []Grid{g}

	b.SetBytes(x.SizeBytes())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := bands.Rotate(x, grids, g.Tokens()); err != nil {
			b.Fatal(err)
		}
	}
}

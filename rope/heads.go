package rope

import (
	"fmt"

	"github.com/d4l3k/go-bfloat16"
	"github.com/x448/float16"
)

// DType identifies the storage element type of a Heads buffer. Rotation
// math never runs in storage precision; elements are upcast at load and
// cast back at store.
type DType int

const (
	DTypeF32 DType = iota
	DTypeF16
	DTypeBF16
)

// ElemSize returns the storage width in bytes.
func (d DType) ElemSize() int {
	if d == DTypeF32 {
		return 4
	}
	return 2
}

func (d DType) String() string {
	switch d {
	case DTypeF32:
		return "f32"
	case DTypeF16:
		return "f16"
	case DTypeBF16:
		return "bf16"
	}
	return fmt.Sprintf("DType(%d)", int(d))
}

// ParseDType maps the element type names accepted by tooling to a DType.
func ParseDType(s string) (DType, error) {
	switch s {
	case "f32", "fp32", "float32":
		return DTypeF32, nil
	case "f16", "fp16", "float16", "half":
		return DTypeF16, nil
	case "bf16", "bfloat16":
		return DTypeBF16, nil
	}
	return 0, fmt.Errorf("%w: unknown dtype %q", ErrInvalidArgument, s)
}

// Heads is a dense row-major [tokens, heads, dim] buffer of attention head
// vectors, the in-place rotation target. Exactly one backing slice is set
// depending on the element type; f16 and bf16 buffers carry raw bits.
type Heads struct {
	dtype  DType
	f32    []float32
	u16    []uint16
	tokens int
	heads  int
	dim    int
}

// NewHeadsF32 wraps a float32 buffer of tokens*heads*dim elements.
func NewHeadsF32(data []float32, tokens, heads, dim int) (*Heads, error) {
	if err := checkHeadsShape(len(data), tokens, heads, dim); err != nil {
		return nil, err
	}
	return &Heads{dtype: DTypeF32, f32: data, tokens: tokens, heads: heads, dim: dim}, nil
}

// NewHeadsF16 wraps raw IEEE 754 half-precision bits.
func NewHeadsF16(bits []uint16, tokens, heads, dim int) (*Heads, error) {
	if err := checkHeadsShape(len(bits), tokens, heads, dim); err != nil {
		return nil, err
	}
	return &Heads{dtype: DTypeF16, u16: bits, tokens: tokens, heads: heads, dim: dim}, nil
}

// NewHeadsBF16 wraps raw bfloat16 bits.
func NewHeadsBF16(bits []uint16, tokens, heads, dim int) (*Heads, error) {
	if err := checkHeadsShape(len(bits), tokens, heads, dim); err != nil {
		return nil, err
	}
	return &Heads{dtype: DTypeBF16, u16: bits, tokens: tokens, heads: heads, dim: dim}, nil
}

func checkHeadsShape(n, tokens, heads, dim int) error {
	if tokens < 1 || heads < 1 || dim < 1 {
		return fmt.Errorf("%w: non-positive shape [%d, %d, %d]", ErrInvalidArgument, tokens, heads, dim)
	}
	if n != tokens*heads*dim {
		return fmt.Errorf("%w: buffer holds %d elements, shape [%d, %d, %d] needs %d",
			ErrInvalidArgument, n, tokens, heads, dim, tokens*heads*dim)
	}
	return nil
}

// Tokens returns the number of tokens in the buffer.
func (x *Heads) Tokens() int { return x.tokens }

// NumHeads returns the number of heads per token.
func (x *Heads) NumHeads() int { return x.heads }

// Dim returns the per-head dimension.
func (x *Heads) Dim() int { return x.dim }

// DType returns the storage element type.
func (x *Heads) DType() DType { return x.dtype }

// SizeBytes returns the storage footprint of the buffer.
func (x *Heads) SizeBytes() int64 {
	return int64(x.tokens) * int64(x.heads) * int64(x.dim) * int64(x.dtype.ElemSize())
}

// At returns element i of the given token and head, upcast to float32.
func (x *Heads) At(token, head, i int) float32 {
	idx := (token*x.heads+head)*x.dim + i
	if x.dtype == DTypeF32 {
		return x.f32[idx]
	}
	return x.load(idx)
}

// SetAt stores v at element i of the given token and head, cast to the
// buffer's storage precision.
func (x *Heads) SetAt(token, head, i int, v float32) {
	idx := (token*x.heads+head)*x.dim + i
	if x.dtype == DTypeF32 {
		x.f32[idx] = v
		return
	}
	x.store(idx, v)
}

func (x *Heads) load(idx int) float32 {
	if x.dtype == DTypeF16 {
		return float16.Frombits(x.u16[idx]).Float32()
	}
	return bfloat16.ToFloat32(bfloat16.BF16(x.u16[idx]))
}

func (x *Heads) store(idx int, v float32) {
	if x.dtype == DTypeF16 {
		x.u16[idx] = float16.Fromfloat32(v).Bits()
		return
	}
	x.u16[idx] = uint16(bfloat16.FromFloat32(v))
}

// loadRow copies head vector gi (token-major over tokens*heads) into dst,
// upcasting to float32. len(dst) must be x.Dim().
func (x *Heads) loadRow(gi int, dst []float32) {
	start := gi * x.dim
	switch x.dtype {
	case DTypeF32:
		copy(dst, x.f32[start:start+x.dim])
	case DTypeF16:
		for i, b := range x.u16[start : start+x.dim] {
			dst[i] = float16.Frombits(b).Float32()
		}
	case DTypeBF16:
		for i, b := range x.u16[start : start+x.dim] {
			dst[i] = bfloat16.ToFloat32(bfloat16.BF16(b))
		}
	}
}

// storeRow writes src back over head vector gi in storage precision.
func (x *Heads) storeRow(gi int, src []float32) {
	start := gi * x.dim
	switch x.dtype {
	case DTypeF32:
		copy(x.f32[start:start+x.dim], src)
	case DTypeF16:
		for i, v := range src {
			x.u16[start+i] = float16.Fromfloat32(v).Bits()
		}
	case DTypeBF16:
		for i, v := range src {
			x.u16[start+i] = uint16(bfloat16.FromFloat32(v))
		}
	}
}

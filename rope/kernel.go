package rope

import (
	"fmt"
	"log/slog"
	"math"
	"math/bits"
	"sync"
	"sync/atomic"

	"github.com/chewxy/math32"

	"github.com/gyrelab/gyre/envconfig"
)

// groupThreshold is the total head-vector count below which work is
// dispatched one vector at a time instead of in width-adaptive blocks.
const groupThreshold = 2048

// KernelConfig tunes the parallel rotation kernel. Zero values take the
// environment defaults (GYRE_WORKERS, GYRE_BLOCK_BYTES, GYRE_GROUP_BYTES).
// Block and group sizing affect throughput only, never results.
type KernelConfig struct {
	// Workers caps the number of goroutines rotating concurrently.
	Workers int

	// ApproxTrig selects float32-native trigonometric evaluation. It is
	// accurate only for angle magnitudes within about ±100π; callers whose
	// position*frequency products exceed that must keep the exact path.
	// Requesting it outside the range degrades accuracy silently.
	ApproxTrig bool

	// BlockBytes sizes a work block: a block covers as many head vectors
	// as fit in BlockBytes of storage.
	BlockBytes int

	// GroupBytes sizes the dispatch grain, in bytes of head-vector
	// storage, that each worker claims per grab.
	GroupBytes int
}

// Kernel rotates flat head-vector buffers in place from a single shared
// frequency vector and one integer position per token. A Kernel carries
// only configuration and is safe for concurrent use on disjoint buffers.
type Kernel struct {
	workers    int
	approx     bool
	blockBytes int
	groupBytes int
}

// NewKernel returns a kernel with cfg's tuning, filling zero values from
// the environment.
func NewKernel(cfg KernelConfig) *Kernel {
	k := &Kernel{
		workers:    cfg.Workers,
		approx:     cfg.ApproxTrig,
		blockBytes: cfg.BlockBytes,
		groupBytes: cfg.GroupBytes,
	}
	if k.workers <= 0 {
		k.workers = envconfig.Workers
	}
	if k.blockBytes <= 0 {
		k.blockBytes = envconfig.BlockBytes
	}
	if k.groupBytes <= 0 {
		k.groupBytes = envconfig.GroupBytes
	}
	return k
}

// Rotate rotates every (re, im) pair of every head vector in x by
// pos[token] * freqs[pair] radians. All shape checks run before anything is
// touched; on error x is unchanged. On success every head vector has been
// rotated exactly once.
func (k *Kernel) Rotate(x *Heads, pos []int32, freqs []float64) error {
	if x == nil {
		return fmt.Errorf("%w: nil heads buffer", ErrInvalidArgument)
	}
	if x.dim%2 != 0 {
		return fmt.Errorf("%w: head dim %d must be even", ErrInvalidArgument, x.dim)
	}
	if len(pos) != x.tokens {
		return fmt.Errorf("%w: %d positions for %d tokens", ErrInvalidArgument, len(pos), x.tokens)
	}
	if len(freqs) != x.dim/2 {
		return fmt.Errorf("%w: %d frequencies for head dim %d, want %d", ErrInvalidArgument, len(freqs), x.dim, x.dim/2)
	}
	for i, p := range pos {
		if p < 0 {
			return fmt.Errorf("%w: negative position %d at token %d", ErrInvalidArgument, p, i)
		}
	}

	f32 := make([]float32, len(freqs))
	for i, f := range freqs {
		f32[i] = float32(f)
	}

	total := x.tokens * x.heads
	hpb, grain := k.sizing(total, x.dim, x.dtype)
	blocks := (total + hpb - 1) / hpb

	workers := k.workers
	if workers > blocks {
		workers = blocks
	}
	slog.Debug("rotation kernel", "tokens", x.tokens, "heads", x.heads, "dim", x.dim,
		"dtype", x.dtype, "heads_per_block", hpb, "grain", grain, "workers", workers, "approx", k.approx)

	if workers <= 1 {
		k.run(x, pos, f32, 0, blocks, hpb, make([]float32, x.dim))
		return nil
	}

	// Keep the dispatch overhead bounded when the heuristic grain is tiny
	// relative to the input.
	if floor := blocks / (workers * 128); grain < floor {
		grain = floor
	}

	var cursor atomic.Int64
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			scratch := make([]float32, x.dim)
			for {
				start := int(cursor.Add(int64(grain))) - grain
				if start >= blocks {
					return
				}
				end := start + grain
				if end > blocks {
					end = blocks
				}
				k.run(x, pos, f32, start, end, hpb, scratch)
			}
		}()
	}
	wg.Wait()
	return nil
}

// sizing picks heads-per-block and the dispatch grain (in blocks) from the
// total head-vector count and the element width. Below groupThreshold a
// block is a single vector; above it both scale with how many vectors fit
// the configured byte limits.
func (k *Kernel) sizing(total, dim int, dtype DType) (hpb, grain int) {
	if total < groupThreshold {
		return 1, 1
	}
	headBytes := dim * dtype.ElemSize()
	hpb = k.blockBytes / headBytes
	if hpb < 1 {
		hpb = 1
	}
	return hpb, nextPow2(k.groupBytes / headBytes)
}

func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// run rotates the head vectors covered by blocks [start, end).
func (k *Kernel) run(x *Heads, pos []int32, freqs []float32, start, end, hpb int, scratch []float32) {
	total := x.tokens * x.heads
	for b := start; b < end; b++ {
		lo := b * hpb
		hi := lo + hpb
		if hi > total {
			hi = total
		}
		for gi := lo; gi < hi; gi++ {
			p := float32(pos[gi/x.heads])
			x.loadRow(gi, scratch)
			if k.approx {
				rotateRowApprox(scratch, p, freqs)
			} else {
				rotateRowExact(scratch, p, freqs)
			}
			x.storeRow(gi, scratch)
		}
	}
}

// rotateRowExact evaluates angles with float64 trig and applies the
// rotation in float32.
func rotateRowExact(row []float32, p float32, freqs []float32) {
	for j, f := range freqs {
		angle := float64(p * f)
		c := float32(math.Cos(angle))
		s := float32(math.Sin(angle))
		re, im := row[2*j], row[2*j+1]
		row[2*j] = re*c - im*s
		row[2*j+1] = im*c + re*s
	}
}

// rotateRowApprox is the fast path: float32-native trig, accurate within
// about ±100π of angle.
func rotateRowApprox(row []float32, p float32, freqs []float32) {
	for j, f := range freqs {
		angle := p * f
		c := math32.Cos(angle)
		s := math32.Sin(angle)
		re, im := row[2*j], row[2*j+1]
		row[2*j] = re*c - im*s
		row[2*j+1] = im*c + re*s
	}
}

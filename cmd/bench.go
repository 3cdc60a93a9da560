package cmd

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gyrelab/gyre/format"
	"github.com/gyrelab/gyre/progress"
	"github.com/gyrelab/gyre/rope"
)

func NewBenchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark rotation throughput",
		Long:  "Rotate synthetic query and key buffers concurrently and report throughput.\nWith --grids the positions come from grid factorization; otherwise every\ntoken rotates by its index from a single frequency vector.",
		RunE:  benchHandler,
	}

	f := cmd.Flags()
	f.Int("tokens", 4096, "Token count for the flat path")
	f.Int("heads", 8, "Attention heads per token")
	f.Int("dim", 128, "Per-head dimension")
	f.String("dtype", "f32", "Element type: f32, f16, or bf16")
	f.String("grids", "", "Comma-separated FxHxW grids, one per sample; selects the grid path")
	f.Int("padded-len", 0, "Padded token count per sample (default: largest grid)")
	f.Int("iters", 10, "Rotation iterations")
	f.Bool("approx", false, "Use float32-native trig on the flat path")
	f.Int("workers", 0, "Goroutines for the flat path (default: GYRE_WORKERS)")
	f.Float64("theta", rope.DefaultTheta, "Frequency base")
	f.Int("max-pos", rope.DefaultMaxPosition, "Per-axis position bound for the grid path")

	return cmd
}

type benchOptions struct {
	tokens  int
	heads   int
	dim     int
	dtype   rope.DType
	grids   []rope.Grid
	padded  int
	iters   int
	approx  bool
	workers int
	theta   float64
	maxPos  int
}

func benchHandler(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()

	var opts benchOptions
	var err error
	if opts.tokens, err = flags.GetInt("tokens"); err != nil {
		return err
	}
	if opts.heads, err = flags.GetInt("heads"); err != nil {
		return err
	}
	if opts.dim, err = flags.GetInt("dim"); err != nil {
		return err
	}
	if opts.padded, err = flags.GetInt("padded-len"); err != nil {
		return err
	}
	if opts.iters, err = flags.GetInt("iters"); err != nil {
		return err
	}
	if opts.approx, err = flags.GetBool("approx"); err != nil {
		return err
	}
	if opts.workers, err = flags.GetInt("workers"); err != nil {
		return err
	}
	if opts.theta, err = flags.GetFloat64("theta"); err != nil {
		return err
	}
	if opts.maxPos, err = flags.GetInt("max-pos"); err != nil {
		return err
	}

	dtype, err := flags.GetString("dtype")
	if err != nil {
		return err
	}
	if opts.dtype, err = rope.ParseDType(dtype); err != nil {
		return err
	}

	grids, err := flags.GetString("grids")
	if err != nil {
		return err
	}
	if grids != "" {
		if opts.grids, err = parseGrids(grids); err != nil {
			return err
		}
	}

	p := progress.NewProgress(os.Stderr)
	defer p.StopAndClear()

	return runBench(os.Stdout, p, opts)
}

// parseGrids parses a comma-separated list of FxHxW extents.
func parseGrids(s string) ([]rope.Grid, error) {
	var grids []rope.Grid
	for _, spec := range strings.Split(s, ",") {
		parts := strings.Split(spec, "x")
		if len(parts) != 3 {
			return nil, fmt.Errorf("grid %q is not of the form FxHxW", spec)
		}
		var dims [3]int
		for i, p := range parts {
			d, err := strconv.Atoi(p)
			if err != nil {
				return nil, fmt.Errorf("grid %q is not of the form FxHxW", spec)
			}
			if d < 1 {
				return nil, fmt.Errorf("grid %q has a non-positive extent", spec)
			}
			dims[i] = d
		}
		grids = append(grids, rope.Grid{Frames: dims[0], Height: dims[1], Width: dims[2]})
	}
	return grids, nil
}

func runBench(out io.Writer, p *progress.Progress, opts benchOptions) error {
	if opts.iters < 1 {
		return fmt.Errorf("iters must be positive, got %d", opts.iters)
	}
	if opts.maxPos < 1 {
		return fmt.Errorf("max-pos must be positive, got %d", opts.maxPos)
	}

	mode := "flat"
	tokens := opts.tokens
	if len(opts.grids) > 0 {
		mode = "grid"
		if opts.padded == 0 {
			for _, g := range opts.grids {
				if t := g.Tokens(); t > opts.padded {
					opts.padded = t
				}
			}
		}
		tokens = len(opts.grids) * opts.padded
	}

	spinner := progress.NewSpinner("preparing buffers")
	p.Add(spinner)

	// Query and key buffers, rotated concurrently the way a transformer
	// block applies them.
	q, err := newBenchHeads(opts.dtype, tokens, opts.heads, opts.dim, 0)
	if err != nil {
		return err
	}
	k, err := newBenchHeads(opts.dtype, tokens, opts.heads, opts.dim, 1)
	if err != nil {
		return err
	}

	rotate, err := newRotateFunc(opts)
	if err != nil {
		return err
	}
	spinner.Stop()

	bar := progress.NewBar(fmt.Sprintf("rotating %s", mode), int64(opts.iters), 0)
	p.Add(bar)

	start := time.Now()
	for i := 0; i < opts.iters; i++ {
		var g errgroup.Group
		g.Go(func() error { return rotate(q) })
		g.Go(func() error { return rotate(k) })
		if err := g.Wait(); err != nil {
			return err
		}
		bar.Set(int64(i + 1))
	}
	elapsed := time.Since(start)
	p.StopAndClear()

	vectors := float64(tokens) * float64(opts.heads) * 2 * float64(opts.iters)
	bytes := float64(q.SizeBytes()+k.SizeBytes()) * float64(opts.iters)
	perIter := (elapsed / time.Duration(opts.iters)).Round(time.Microsecond)

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"MODE", "DTYPE", "TOKENS", "HEADS", "DIM", "ITERS", "TIME/ITER", "VEC/S", "THROUGHPUT"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.Append([]string{
		mode,
		opts.dtype.String(),
		format.HumanNumber(uint64(tokens)),
		strconv.Itoa(opts.heads),
		strconv.Itoa(opts.dim),
		strconv.Itoa(opts.iters),
		perIter.String(),
		format.HumanRate(vectors / elapsed.Seconds()),
		format.HumanBytes(int64(bytes/elapsed.Seconds())) + "/s",
	})
	table.Render()

	return nil
}

// newRotateFunc binds the selected path to its rotation state.
func newRotateFunc(opts benchOptions) (func(*rope.Heads) error, error) {
	if len(opts.grids) > 0 {
		bands, err := rope.NewBands(opts.maxPos, opts.dim, opts.theta)
		if err != nil {
			return nil, err
		}
		return func(x *rope.Heads) error {
			return bands.Rotate(x, opts.grids, opts.padded)
		}, nil
	}

	freqs, err := rope.ComputeFreqs(opts.dim, opts.theta)
	if err != nil {
		return nil, err
	}
	pos := make([]int32, opts.tokens)
	for i := range pos {
		pos[i] = int32(i % opts.maxPos)
	}
	kern := rope.NewKernel(rope.KernelConfig{Workers: opts.workers, ApproxTrig: opts.approx})
	return func(x *rope.Heads) error {
		return kern.Rotate(x, pos, freqs)
	}, nil
}

func newBenchHeads(dtype rope.DType, tokens, heads, dim int, seed int64) (*rope.Heads, error) {
	var x *rope.Heads
	var err error
	switch dtype {
	case rope.DTypeF32:
		x, err = rope.NewHeadsF32(make([]float32, tokens*heads*dim), tokens, heads, dim)
	case rope.DTypeF16:
		x, err = rope.NewHeadsF16(make([]uint16, tokens*heads*dim), tokens, heads, dim)
	case rope.DTypeBF16:
		x, err = rope.NewHeadsBF16(make([]uint16, tokens*heads*dim), tokens, heads, dim)
	default:
		return nil, fmt.Errorf("unknown dtype %v", dtype)
	}
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(seed))
	for tok := 0; tok < tokens; tok++ {
		for h := 0; h < heads; h++ {
			for i := 0; i < dim; i++ {
				x.SetAt(tok, h, i, rng.Float32()*2-1)
			}
		}
	}
	return x, nil
}

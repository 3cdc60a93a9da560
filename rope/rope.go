// Package rope applies rotary position embeddings to per-token attention
// head vectors for video diffusion transformers.
//
// Rotation state comes in two shapes. The grid path precomputes per-axis
// cosine/sine tables (Table, built per axis by NewBands) and rotates
// patchified video tokens with per-sample 3D grids and explicit padding
// (Bands.Rotate). The flat path (Kernel.Rotate) takes a single shared
// frequency vector plus one integer position per token and suits callers
// that manage positions themselves.
//
// Tables are plain values owned by whoever built them: read-only after
// construction and safe for any number of concurrent readers. Heads buffers
// passed to the rotation entry points are mutated in place; the caller owns
// them exclusively for the duration of the call. Angle and trigonometric
// math always runs in float32 or wider, no matter how narrow the storage
// element type is.
package rope

// Reference configuration of the video diffusion backbones this engine was
// written for.
const (
	// DefaultMaxPosition bounds per-axis token positions in prebuilt tables.
	DefaultMaxPosition = 1024

	// DefaultTheta is the base of the geometric frequency progression.
	DefaultTheta = 10000
)

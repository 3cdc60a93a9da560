package rope

import "errors"

var (
	// ErrInvalidConfig reports an unusable table configuration: an odd
	// rotation dimension, a non-positive position bound, or theta <= 0.
	// It is returned at build time, never at apply time.
	ErrInvalidConfig = errors.New("invalid rotary configuration")

	// ErrInvalidArgument reports a shape, length, or layout violation at a
	// call boundary. Nothing has been mutated when it is returned.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrGridDimension reports a grid extent outside [1, max position] for
	// the bands it is rotated with.
	ErrGridDimension = errors.New("grid dimension out of range")

	// ErrSequenceTooLong reports a sample whose real token count exceeds
	// the padded batch length.
	ErrSequenceTooLong = errors.New("sequence too long")
)

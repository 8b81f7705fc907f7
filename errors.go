package backdrop

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDimensions is returned when a buffer or a resize target has a non-positive width or height.
	ErrInvalidDimensions = errors.New("backdrop: invalid dimensions")
	// ErrOutOfBounds is returned on pixel access outside of the buffer.
	ErrOutOfBounds = errors.New("backdrop: pixel out of bounds")
	// ErrDimensionMismatch signals that two buffers which should have the same size do not.
	ErrDimensionMismatch = errors.New("backdrop: dimension mismatch")
	// ErrUpstreamFailure is reported when the background removal collaborator fails.
	ErrUpstreamFailure = errors.New("backdrop: background removal failed")

	ErrUnknownFilter    = errors.New("backdrop: unknown filter")
	ErrUnknownResampler = errors.New("backdrop: unknown resampler")
	ErrNoImage          = errors.New("backdrop: no image loaded")
	ErrNoForeground     = errors.New("backdrop: no foreground available, remove the background first")
	ErrNoRemover        = errors.New("backdrop: no background remover configured")
)

// UpstreamError wraps the error returned by a Remover.
// It matches ErrUpstreamFailure with errors.Is.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", ErrUpstreamFailure, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstreamFailure
}

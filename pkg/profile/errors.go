package profile

import (
	"errors"
	"fmt"
)

// Error categories shared by the profile, segment and collection packages.
// Callers branch on them with errors.Is.
var (
	// ErrInvalidArgument marks malformed input: bad indices, empty or
	// mismatched arrays, non-finite operands.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrSegmentUpdate marks a rejected segment edit. The target is unchanged.
	ErrSegmentUpdate = errors.New("segment update failed")

	// ErrNotFound marks a missing landmark, segment or profile type.
	ErrNotFound = errors.New("not found")

	// ErrInterpolation marks a segmentation that could not be carried
	// across a change of profile length.
	ErrInterpolation = errors.New("interpolation inconsistency")
)

// Invalidf returns an ErrInvalidArgument with a formatted message.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// NotFoundf returns an ErrNotFound with a formatted message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Interpolationf returns an ErrInterpolation with a formatted message.
func Interpolationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInterpolation, fmt.Sprintf(format, args...))
}

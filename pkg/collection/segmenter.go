package collection

import (
	"github.com/google/uuid"

	"morphoprofile/pkg/profile"
	"morphoprofile/pkg/segment"
	"morphoprofile/pkg/segmented"
)

// Segmenter places segment boundaries at the turning points of a consensus
// angle profile.
type Segmenter struct {
	// Smoothing is the half-width of the moving average applied first.
	Smoothing int
	// Window is the half-width used to detect local minima and maxima.
	Window int
	// MinimumSpacing is the least distance between boundaries. Values below
	// the minimum segment length are raised to it.
	MinimumSpacing int
	// NewID generates segment ids. Defaults to uuid.New.
	NewID func() uuid.UUID
}

// DefaultSegmenter returns the settings used when none are configured.
func DefaultSegmenter() Segmenter {
	return Segmenter{Smoothing: 2, Window: 5, MinimumSpacing: segment.MinimumLength}
}

// Boundaries returns the candidate boundary indexes of p, ascending and
// starting from 0, the reference point.
func (s Segmenter) Boundaries(p profile.Profile) ([]int, error) {
	smoothed := p
	if s.Smoothing > 0 {
		var err error
		if smoothed, err = p.Smooth(s.Smoothing); err != nil {
			return nil, err
		}
	}
	minima, err := smoothed.LocalMinima(s.Window)
	if err != nil {
		return nil, err
	}
	maxima, err := smoothed.LocalMaxima(s.Window)
	if err != nil {
		return nil, err
	}
	turning, err := minima.Or(maxima)
	if err != nil {
		return nil, err
	}

	// a boundary closes one segment and opens the next, so spacing counts
	// both ends
	spacing := max(s.MinimumSpacing, segment.MinimumLength) - 1
	n := p.Len()
	out := []int{0}
	for _, idx := range turning.Indexes() {
		last := out[len(out)-1]
		if idx-last < spacing || n-idx < spacing {
			continue
		}
		out = append(out, idx)
	}
	return out, nil
}

// Segment splits the default segment of p at each boundary in turn and
// returns the resulting segments. A profile without usable turning points
// gets the default segment.
func (s Segmenter) Segment(p profile.Profile) ([]segment.Segment, error) {
	newID := s.NewID
	if newID == nil {
		newID = uuid.New
	}
	bounds, err := s.Boundaries(p)
	if err != nil {
		return nil, err
	}
	sp, err := segmented.NewUnsegmented(p)
	if err != nil {
		return nil, err
	}
	if len(bounds) < 2 {
		return sp.Segments(), nil
	}

	// the remainder always runs from the latest boundary round to 0
	remainder := segment.DefaultID
	for _, b := range bounds[1:] {
		if !sp.IsSplittable(remainder, b) {
			continue
		}
		head, tail := newID(), newID()
		if err := sp.SplitSegment(remainder, b, head, tail); err != nil {
			return nil, err
		}
		remainder = tail
	}
	return sp.Segments(), nil
}

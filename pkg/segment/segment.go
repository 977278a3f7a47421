// Package segment models contiguous arcs over the index space of a circular
// profile, and the ring that keeps a set of arcs covering a profile exactly.
//
// A Segment only knows the length of the profile it lies on, never the
// values. Bounds are inclusive: a segment [start, end] wraps past the last
// index when end <= start, and a segment with start == end covers the whole
// profile.
package segment

import (
	"fmt"

	"github.com/google/uuid"

	"morphoprofile/pkg/profile"
)

// MinimumLength is the fewest indexes a segment may span, boundaries included.
const MinimumLength = 10

// DefaultID identifies the single segment of an unsegmented profile.
var DefaultID = uuid.MustParse("11111111-2222-3333-4444-555566667777")

// Segment is an arc [start, end] over a profile of total indexes. The zero
// value is not valid; use New or NewDefault.
type Segment struct {
	id       uuid.UUID
	start    int
	end      int
	total    int
	locked   bool
	position int

	// sources records the segments this one was merged from, in arc order
	sources []Segment
}

// New creates a segment after checking its bounds against total.
func New(id uuid.UUID, start, end, total int) (Segment, error) {
	if err := validate(id, start, end, total); err != nil {
		return Segment{}, err
	}
	return Segment{id: id, start: start, end: end, total: total}, nil
}

// NewDefault creates the whole-profile segment [0,0] carrying DefaultID.
func NewDefault(total int) (Segment, error) {
	return New(DefaultID, 0, 0, total)
}

func validate(id uuid.UUID, start, end, total int) error {
	if total < profile.MinimumLength {
		return profile.Invalidf("profile length %d below minimum %d", total, profile.MinimumLength)
	}
	if start < 0 || end < 0 || start >= total || end >= total {
		return profile.Invalidf("segment [%d,%d] outside profile of length %d", start, end, total)
	}
	if start == end {
		return nil
	}
	if id == DefaultID {
		return profile.Invalidf("default segment must span the whole profile")
	}
	l := arcLength(start, end, total)
	if l < MinimumLength {
		return profile.Invalidf("segment [%d,%d] length %d below minimum %d", start, end, l, MinimumLength)
	}
	if l > maximumLength(total) {
		return profile.Invalidf("segment [%d,%d] length %d leaves too little room in profile of length %d",
			start, end, l, total)
	}
	return nil
}

// maximumLength is the longest partial arc that still leaves room for one
// minimum-length neighbour.
func maximumLength(total int) int {
	return total + 2 - MinimumLength
}

func wraps(start, end int) bool {
	return end <= start
}

func arcLength(start, end, total int) int {
	if wraps(start, end) {
		return end + total + 1 - start
	}
	return end - start + 1
}

func contains(start, end, index, total int) bool {
	if index < 0 || index >= total {
		return false
	}
	if wraps(start, end) {
		return index <= end || index >= start
	}
	return index >= start && index <= end
}

// ID returns the stable identifier.
func (s Segment) ID() uuid.UUID { return s.id }

// Start returns the first index of the arc.
func (s Segment) Start() int { return s.start }

// End returns the last index of the arc.
func (s Segment) End() int { return s.end }

// TotalLength returns the length of the profile the segment lies on.
func (s Segment) TotalLength() int { return s.total }

// Locked reports whether the bounds are fixed. Updates that would move
// either end of a locked segment, directly or from a neighbour, fail.
func (s Segment) Locked() bool { return s.locked }

// SetLocked fixes or frees both bounds.
func (s *Segment) SetLocked(locked bool) { s.locked = locked }

// Position returns the display ordinal within the owning ring.
func (s Segment) Position() int { return s.position }

// Name returns the display name derived from the position.
func (s Segment) Name() string {
	return fmt.Sprintf("Seg_%d", s.position)
}

// IsDefault reports whether this is the whole-profile default segment.
func (s Segment) IsDefault() bool { return s.id == DefaultID }

// Wraps reports whether the arc crosses index 0 going forwards.
func (s Segment) Wraps() bool { return wraps(s.start, s.end) }

// Length returns the number of indexes in the arc, both ends included.
func (s Segment) Length() int { return arcLength(s.start, s.end, s.total) }

// Contains reports whether index lies on the arc.
func (s Segment) Contains(index int) bool {
	return contains(s.start, s.end, index, s.total)
}

// ContainsInterior reports whether index lies on the arc and is neither endpoint.
func (s Segment) ContainsInterior(index int) bool {
	return s.Contains(index) && index != s.start && index != s.end
}

// Overlaps reports whether the two arcs share any index.
func (s Segment) Overlaps(o Segment) bool {
	if s.total != o.total {
		return false
	}
	return s.Contains(o.start) || s.Contains(o.end) || o.Contains(s.start) || o.Contains(s.end)
}

// OverlapsBeyondEndpoints reports whether the arcs share an index other than
// a boundary they have in common.
func (s Segment) OverlapsBeyondEndpoints(o Segment) bool {
	if s.total != o.total {
		return false
	}
	return s.ContainsInterior(o.start) || s.ContainsInterior(o.end) ||
		o.ContainsInterior(s.start) || o.ContainsInterior(s.end) ||
		(s.start == o.start && s.end == o.end)
}

// Indexes returns every index on the arc from start to end.
func (s Segment) Indexes() []int {
	out := make([]int, 0, s.Length())
	for i := 0; i < s.Length(); i++ {
		out = append(out, profile.Wrap(s.start+i, s.total))
	}
	return out
}

// MidpointIndex returns the index halfway along the arc.
func (s Segment) MidpointIndex() int {
	return profile.Wrap(s.start+(s.Length()-1)/2, s.total)
}

// ProportionalIndex returns the index at the given fraction along the arc.
func (s Segment) ProportionalIndex(proportion float64) (int, error) {
	if proportion < 0 || proportion > 1 {
		return 0, profile.Invalidf("proportion %v outside [0,1]", proportion)
	}
	steps := int(float64(s.Length()-1) * proportion)
	return profile.Wrap(s.start+steps, s.total), nil
}

// IndexProportion returns how far along the arc index lies, in [0,1].
func (s Segment) IndexProportion(index int) (float64, error) {
	if !s.Contains(index) {
		return 0, profile.Invalidf("index %d not in segment [%d,%d]", index, s.start, s.end)
	}
	if s.Length() == 1 {
		return 0, nil
	}
	return float64(s.InternalDistanceToStart(index)) / float64(s.Length()-1), nil
}

// InternalDistanceToStart counts the steps from start to index along the arc.
func (s Segment) InternalDistanceToStart(index int) int {
	return profile.Wrap(index-s.start, s.total)
}

// ShortestDistanceToStart returns the circular distance from index to start.
func (s Segment) ShortestDistanceToStart(index int) int {
	return circularDistance(index, s.start, s.total)
}

// ShortestDistanceToEnd returns the circular distance from index to end.
func (s Segment) ShortestDistanceToEnd(index int) int {
	return circularDistance(index, s.end, s.total)
}

func circularDistance(a, b, total int) int {
	d := profile.Wrap(a-b, total)
	if total-d < d {
		return total - d
	}
	return d
}

// Reverse mirrors the arc about the profile midpoint. The id is kept.
func (s Segment) Reverse() Segment {
	r := s.Clone()
	r.start = s.total - 1 - s.end
	r.end = s.total - 1 - s.start
	for i := range r.sources {
		r.sources[i] = r.sources[i].Reverse()
	}
	// arc order flips with the indexes
	for i, j := 0, len(r.sources)-1; i < j; i, j = i+1, j-1 {
		r.sources[i], r.sources[j] = r.sources[j], r.sources[i]
	}
	return r
}

// Offset shifts both bounds by delta, wrapping around the profile. Merge
// sources move with the segment and the lock state is kept.
func (s Segment) Offset(delta int) Segment {
	o := s.Clone()
	o.start = profile.Wrap(s.start+delta, s.total)
	o.end = profile.Wrap(s.end+delta, s.total)
	for i := range o.sources {
		o.sources[i] = o.sources[i].Offset(delta)
	}
	return o
}

// Clone returns a deep copy including merge sources.
func (s Segment) Clone() Segment {
	c := s
	if len(s.sources) > 0 {
		c.sources = make([]Segment, len(s.sources))
		for i, src := range s.sources {
			c.sources[i] = src.Clone()
		}
	}
	return c
}

// Equal compares identity, bounds and lock state, ignoring provenance.
func (s Segment) Equal(o Segment) bool {
	return s.id == o.id && s.start == o.start && s.end == o.end &&
		s.total == o.total && s.locked == o.locked
}

func (s Segment) String() string {
	lock := ""
	if s.locked {
		lock = " locked"
	}
	return fmt.Sprintf("%s [%d,%d]/%d%s", s.id, s.start, s.end, s.total, lock)
}

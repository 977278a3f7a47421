// Package segmented ties a profile to a ring of segments that covers it
// exactly, and provides the structural edits (boundary moves, merge, split,
// resampling, rotation and reversal) that keep both consistent.
//
// A Profile is not safe for concurrent mutation. Accessors always return
// copies, so values handed out cannot disturb the ring.
package segmented

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"morphoprofile/pkg/profile"
	"morphoprofile/pkg/segment"
)

// Profile is a profile plus the segments partitioning it.
type Profile struct {
	values profile.Profile
	ring   *segment.Ring
}

// New combines values with segs. An empty segs gives the unsegmented
// profile holding only the default segment.
func New(values profile.Profile, segs []segment.Segment) (*Profile, error) {
	if values.IsEmpty() {
		return nil, profile.Invalidf("segmented profile needs values")
	}
	if len(segs) == 0 {
		return NewUnsegmented(values)
	}
	for _, s := range segs {
		if s.TotalLength() != values.Len() {
			return nil, profile.Invalidf("segment %s has profile length %d, profile has %d",
				s.ID(), s.TotalLength(), values.Len())
		}
	}
	ring, err := segment.NewRing(segs)
	if err != nil {
		return nil, err
	}
	return &Profile{values: values, ring: ring}, nil
}

// NewUnsegmented wraps values with the single default segment.
func NewUnsegmented(values profile.Profile) (*Profile, error) {
	d, err := segment.NewDefault(values.Len())
	if err != nil {
		return nil, err
	}
	ring, err := segment.NewRing([]segment.Segment{d})
	if err != nil {
		return nil, err
	}
	return &Profile{values: values, ring: ring}, nil
}

// Profile returns the underlying values.
func (sp *Profile) Profile() profile.Profile { return sp.values }

// Len returns the profile length.
func (sp *Profile) Len() int { return sp.values.Len() }

// Clone returns a deep copy.
func (sp *Profile) Clone() *Profile {
	return &Profile{values: sp.values, ring: sp.ring.Clone()}
}

// SegmentCount returns the number of segments.
func (sp *Profile) SegmentCount() int { return sp.ring.Len() }

// IsSegmented reports whether the profile holds more than the default segment.
func (sp *Profile) IsSegmented() bool {
	return sp.ring.Len() > 1 || !sp.ring.At(0).IsDefault()
}

// Segments returns copies of the segments in ring order.
func (sp *Profile) Segments() []segment.Segment { return sp.ring.Segments() }

// SegmentIDs returns the segment ids in ring order.
func (sp *Profile) SegmentIDs() []uuid.UUID {
	ids := make([]uuid.UUID, sp.ring.Len())
	for i := range ids {
		ids[i] = sp.ring.At(i).ID()
	}
	return ids
}

// OrderedSegments returns the segments starting from the one that begins the
// profile: the segment containing index 0, preferring one that does not end
// there.
func (sp *Profile) OrderedSegments() []segment.Segment {
	segs := sp.ring.Segments()
	n := len(segs)
	first := 0
	for i, s := range segs {
		if s.Contains(0) && (n == 1 || s.End() != 0) {
			first = i
			break
		}
	}
	out := make([]segment.Segment, 0, n)
	out = append(out, segs[first:]...)
	return append(out, segs[:first]...)
}

// HasSegment reports whether a segment with id exists.
func (sp *Profile) HasSegment(id uuid.UUID) bool {
	_, ok := sp.ring.IndexOf(id)
	return ok
}

// Segment returns a copy of the segment with id.
func (sp *Profile) Segment(id uuid.UUID) (segment.Segment, error) {
	i, err := sp.position(id)
	if err != nil {
		return segment.Segment{}, err
	}
	return sp.ring.At(i), nil
}

// SegmentByName returns the segment whose display name is name.
func (sp *Profile) SegmentByName(name string) (segment.Segment, error) {
	for _, s := range sp.ring.Segments() {
		if s.Name() == name {
			return s, nil
		}
	}
	return segment.Segment{}, profile.NotFoundf("segment named %q", name)
}

// SegmentContaining returns the segment covering index. At a boundary the
// segment starting there wins.
func (sp *Profile) SegmentContaining(index int) (segment.Segment, error) {
	if index < 0 || index >= sp.Len() {
		return segment.Segment{}, profile.Invalidf("index %d outside profile of length %d", index, sp.Len())
	}
	var found *segment.Segment
	for _, s := range sp.ring.Segments() {
		if !s.Contains(index) {
			continue
		}
		if s.Start() == index || found == nil {
			s := s
			found = &s
		}
	}
	if found == nil {
		return segment.Segment{}, profile.NotFoundf("segment containing index %d", index)
	}
	return *found, nil
}

func (sp *Profile) position(id uuid.UUID) (int, error) {
	i, ok := sp.ring.IndexOf(id)
	if !ok {
		return 0, profile.NotFoundf("segment %s", id)
	}
	return i, nil
}

// SegmentValues returns the samples covered by the segment with id.
func (sp *Profile) SegmentValues(id uuid.UUID) (profile.Profile, error) {
	s, err := sp.Segment(id)
	if err != nil {
		return profile.Profile{}, err
	}
	return sp.values.Subregion(s.Start(), s.End())
}

// Displacement returns the absolute change in value from the start to the
// end of the segment with id.
func (sp *Profile) Displacement(id uuid.UUID) (float64, error) {
	s, err := sp.Segment(id)
	if err != nil {
		return 0, err
	}
	start, _ := sp.values.At(s.Start())
	end, _ := sp.values.At(s.End())
	return math.Abs(end - start), nil
}

// SetLocked locks or unlocks the segment with id.
func (sp *Profile) SetLocked(id uuid.UUID, locked bool) error {
	i, err := sp.position(id)
	if err != nil {
		return err
	}
	sp.ring.SetLocked(i, locked)
	return nil
}

// SetAllLocked locks or unlocks every segment.
func (sp *Profile) SetAllLocked(locked bool) {
	for i := 0; i < sp.ring.Len(); i++ {
		sp.ring.SetLocked(i, locked)
	}
}

// ClearMergeSources drops the merge provenance of the segment with id.
func (sp *Profile) ClearMergeSources(id uuid.UUID) error {
	i, err := sp.position(id)
	if err != nil {
		return err
	}
	sp.ring.ClearMergeSources(i)
	return nil
}

// SetSegments replaces the segmentation.
func (sp *Profile) SetSegments(segs []segment.Segment) error {
	next, err := New(sp.values, segs)
	if err != nil {
		return err
	}
	sp.ring = next.ring
	return nil
}

// ClearSegments returns the profile to the single default segment.
func (sp *Profile) ClearSegments() error {
	next, err := NewUnsegmented(sp.values)
	if err != nil {
		return err
	}
	sp.ring = next.ring
	return nil
}

// Update moves the segment with id to [start, end], dragging its neighbours'
// shared boundaries. The edit is refused if start or end would land inside
// any segment other than the target and its two neighbours.
func (sp *Profile) Update(id uuid.UUID, start, end int) error {
	i, err := sp.position(id)
	if err != nil {
		return err
	}
	n := sp.ring.Len()
	prev, next := sp.ring.Prev(i), sp.ring.Next(i)
	for j := 0; j < n; j++ {
		if j == i || j == prev || j == next {
			continue
		}
		other := sp.ring.At(j)
		if other.Contains(start) || other.Contains(end) {
			return &segment.UpdateError{
				ID: id, Start: start, End: end,
				Reason: fmt.Sprintf("boundary would pass over segment %s", other.ID()),
			}
		}
	}
	return sp.ring.Update(i, start, end)
}

// Equal reports whether both profiles hold the same values and segments.
func (sp *Profile) Equal(o *Profile) bool {
	if !sp.values.Equal(o.values) || sp.ring.Len() != o.ring.Len() {
		return false
	}
	for i := 0; i < sp.ring.Len(); i++ {
		if !sp.ring.At(i).Equal(o.ring.At(i)) {
			return false
		}
	}
	return true
}

func (sp *Profile) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "profile length %d, %d segments", sp.Len(), sp.ring.Len())
	for _, s := range sp.ring.Segments() {
		fmt.Fprintf(&sb, "\n  %s %s", s.Name(), s)
	}
	return sb.String()
}

package segment

import (
	"fmt"

	"github.com/google/uuid"

	"morphoprofile/pkg/profile"
)

// UpdateError reports why a boundary edit was refused. It matches
// profile.ErrSegmentUpdate under errors.Is.
type UpdateError struct {
	ID     uuid.UUID
	Start  int
	End    int
	Reason string
}

func (e *UpdateError) Error() string {
	return fmt.Sprintf("segment %s to [%d,%d]: %s", e.ID, e.Start, e.End, e.Reason)
}

// Unwrap returns profile.ErrSegmentUpdate.
func (e *UpdateError) Unwrap() error {
	return profile.ErrSegmentUpdate
}

// Ring is an ordered set of segments covering a profile exactly. Segment i
// ends where segment i+1 starts and the last segment ends where the first
// starts. Neighbours are resolved by position.
type Ring struct {
	segs []Segment
}

// NewRing copies segs into a ring after checking they share a profile
// length, have distinct ids and close up end to start.
func NewRing(segs []Segment) (*Ring, error) {
	if len(segs) == 0 {
		return nil, profile.Invalidf("a ring needs at least one segment")
	}
	total := segs[0].total
	seen := make(map[uuid.UUID]bool, len(segs))
	r := &Ring{segs: make([]Segment, len(segs))}
	for i, s := range segs {
		if s.total != total {
			return nil, profile.Invalidf("segment %s has profile length %d, expected %d", s.id, s.total, total)
		}
		if seen[s.id] {
			return nil, profile.Invalidf("duplicate segment id %s", s.id)
		}
		seen[s.id] = true
		r.segs[i] = s.Clone()
	}
	if err := r.checkClosed(); err != nil {
		return nil, err
	}
	r.renumber()
	return r, nil
}

func (r *Ring) checkClosed() error {
	if len(r.segs) == 1 {
		if s := r.segs[0]; s.start != s.end {
			return profile.Invalidf("a single segment must span the whole profile, got [%d,%d]", s.start, s.end)
		}
		return nil
	}
	for i, s := range r.segs {
		next := r.segs[r.Next(i)]
		if s.IsDefault() {
			return profile.Invalidf("default segment cannot share a ring")
		}
		if s.end != next.start {
			return profile.Invalidf("segment %s ends at %d but the next starts at %d", s.id, s.end, next.start)
		}
	}
	return nil
}

func (r *Ring) renumber() {
	for i := range r.segs {
		r.segs[i].position = i
	}
}

// Len returns the number of segments.
func (r *Ring) Len() int { return len(r.segs) }

// TotalLength returns the profile length the ring covers.
func (r *Ring) TotalLength() int { return r.segs[0].total }

// Next returns the position after i.
func (r *Ring) Next(i int) int { return profile.Wrap(i+1, len(r.segs)) }

// Prev returns the position before i.
func (r *Ring) Prev(i int) int { return profile.Wrap(i-1, len(r.segs)) }

// At returns a copy of the segment at position i.
func (r *Ring) At(i int) Segment { return r.segs[i].Clone() }

// IndexOf returns the position of the segment with id.
func (r *Ring) IndexOf(id uuid.UUID) (int, bool) {
	for i, s := range r.segs {
		if s.id == id {
			return i, true
		}
	}
	return 0, false
}

// Segments returns deep copies of every segment in ring order.
func (r *Ring) Segments() []Segment {
	out := make([]Segment, len(r.segs))
	for i, s := range r.segs {
		out[i] = s.Clone()
	}
	return out
}

// Clone returns a deep copy of the ring.
func (r *Ring) Clone() *Ring {
	return &Ring{segs: r.Segments()}
}

// SetLocked changes the lock on the segment at position i.
func (r *Ring) SetLocked(i int, locked bool) {
	r.segs[i].locked = locked
}

// ClearMergeSources drops provenance on the segment at position i.
func (r *Ring) ClearMergeSources(i int) {
	r.segs[i].sources = nil
}

// Update moves the segment at position i to [start, end] and drags the
// shared boundaries of its neighbours along. Either the whole edit applies
// or the ring is left untouched.
func (r *Ring) Update(i, start, end int) error {
	if i < 0 || i >= len(r.segs) {
		return profile.NotFoundf("segment position %d in ring of %d", i, len(r.segs))
	}
	c := &cascade{ring: r.Clone(), limit: 4*len(r.segs) + 4}
	if err := c.update(i, start, end); err != nil {
		return err
	}
	r.segs = c.ring.segs
	return nil
}

// cascade applies one edit and the neighbour edits it implies. Each step
// either changes a bound or stops, and a ring of n segments has 2n bounds,
// so limit is never reached by a consistent ring.
type cascade struct {
	ring  *Ring
	steps int
	limit int
}

func (c *cascade) update(i, start, end int) error {
	r := c.ring
	s := &r.segs[i]
	if c.steps++; c.steps > c.limit {
		return c.refuse(s, start, end, "neighbour updates did not settle")
	}
	if s.start == start && s.end == end {
		return nil
	}
	if reason := c.check(i, start, end); reason != "" {
		return c.refuse(s, start, end, reason)
	}

	if len(r.segs) == 1 {
		// the sources of a whole-profile segment meet at its start, so
		// both ends move together
		s.start, s.end = start, end
		if err := s.nudgeStart(start); err != nil {
			return c.refuse(s, start, end, err.Error())
		}
		if err := s.nudgeEnd(end); err != nil {
			return c.refuse(s, start, end, err.Error())
		}
		return nil
	}

	if s.start != start {
		if err := s.nudgeStart(start); err != nil {
			return c.refuse(s, start, end, err.Error())
		}
		s.start = start
		p := r.Prev(i)
		if err := c.update(p, r.segs[p].start, start); err != nil {
			return err
		}
	}
	// re-read: the neighbour cascade may have come back round
	s = &r.segs[i]
	if s.end != end {
		if err := s.nudgeEnd(end); err != nil {
			return c.refuse(s, start, end, err.Error())
		}
		s.end = end
		n := r.Next(i)
		if err := c.update(n, end, r.segs[n].end); err != nil {
			return err
		}
	}
	return nil
}

// check returns why [start, end] is not acceptable for the segment at
// position i, or "" when it is.
func (c *cascade) check(i, start, end int) string {
	r := c.ring
	s := r.segs[i]
	total := s.total

	if start < 0 || end < 0 || start >= total || end >= total {
		return fmt.Sprintf("index outside profile of length %d", total)
	}
	if s.locked {
		return "segment is locked"
	}
	if len(r.segs) == 1 {
		if start != end {
			return "a lone segment must span the whole profile"
		}
		return ""
	}
	if s.IsDefault() {
		return "default segment cannot be resized"
	}
	if start == end {
		return "segment would cover the whole profile"
	}
	l := arcLength(start, end, total)
	if l < MinimumLength {
		return fmt.Sprintf("length %d below minimum %d", l, MinimumLength)
	}
	if l > maximumLength(total) {
		return fmt.Sprintf("length %d leaves no room for other segments", l)
	}

	prev := r.segs[r.Prev(i)]
	next := r.segs[r.Next(i)]
	if prev.start == start || arcLength(prev.start, start, total) < MinimumLength {
		return "previous segment would be too short"
	}
	if end == next.end || arcLength(end, next.end, total) < MinimumLength {
		return "next segment would be too short"
	}
	if !s.Contains(start) && !prev.Contains(start) {
		return "start would move beyond the previous segment"
	}
	if !s.Contains(end) && !next.Contains(end) {
		return "end would move beyond the next segment"
	}
	if prev.start > start {
		if !prev.Wraps() && wraps(start, end) {
			return "previous segment would start wrapping"
		}
		if wraps(start, end) && !contains(start, end, 0, total) {
			return "segment would wrap without covering index 0"
		}
	}
	if next.end < end {
		if !next.Wraps() && wraps(start, end) {
			return "next segment would start wrapping"
		}
		if wraps(start, end) && !contains(start, end, 0, total) {
			return "segment would wrap without covering index 0"
		}
	}
	return ""
}

func (c *cascade) refuse(s *Segment, start, end int, reason string) error {
	return &UpdateError{ID: s.id, Start: start, End: end, Reason: reason}
}

// AddMergeSource records src as provenance of the segment at position i.
func (r *Ring) AddMergeSource(i int, src Segment) error {
	return r.segs[i].AddMergeSource(src)
}

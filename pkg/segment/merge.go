package segment

import (
	"github.com/google/uuid"

	"morphoprofile/pkg/profile"
)

// MaxMergeSources is the number of segments a merge combines.
const MaxMergeSources = 2

// AddMergeSource records src as one of the segments this one was built from.
// The source must lie wholly within this arc.
func (s *Segment) AddMergeSource(src Segment) error {
	switch {
	case src.id == DefaultID:
		return profile.Invalidf("default segment cannot be a merge source")
	case src.id == s.id:
		return profile.Invalidf("segment %s cannot be its own merge source", s.id)
	case len(s.sources) >= MaxMergeSources:
		return profile.Invalidf("segment %s already has %d merge sources", s.id, MaxMergeSources)
	case src.total != s.total:
		return profile.Invalidf("merge source length %d does not match %d", src.total, s.total)
	case !s.Contains(src.start) || !s.Contains(src.end):
		return profile.Invalidf("merge source [%d,%d] not inside [%d,%d]", src.start, src.end, s.start, s.end)
	case src.Length() > s.Length():
		return profile.Invalidf("merge source [%d,%d] longer than [%d,%d]", src.start, src.end, s.start, s.end)
	}
	for _, existing := range s.sources {
		if existing.id == src.id {
			return profile.Invalidf("merge source %s already present", src.id)
		}
	}
	s.sources = append(s.sources, src.Clone())
	return nil
}

// HasMergeSources reports whether the segment was created by a merge.
func (s Segment) HasMergeSources() bool {
	return len(s.sources) > 0
}

// MergeSources returns deep copies of the direct merge sources in arc order.
func (s Segment) MergeSources() []Segment {
	out := make([]Segment, len(s.sources))
	for i, src := range s.sources {
		out[i] = src.Clone()
	}
	return out
}

// HasMergeSource searches the provenance tree, including this segment, for id.
func (s Segment) HasMergeSource(id uuid.UUID) bool {
	_, ok := s.find(id)
	return ok
}

// MergeSource returns a copy of the segment with id from the provenance tree.
func (s Segment) MergeSource(id uuid.UUID) (Segment, error) {
	found, ok := s.find(id)
	if !ok {
		return Segment{}, profile.NotFoundf("merge source %s in segment %s", id, s.id)
	}
	return found.Clone(), nil
}

func (s Segment) find(id uuid.UUID) (Segment, bool) {
	if s.id == id {
		return s, true
	}
	for _, src := range s.sources {
		if found, ok := src.find(id); ok {
			return found, true
		}
	}
	return Segment{}, false
}

// ClearMergeSources drops the merge provenance.
func (s *Segment) ClearMergeSources() {
	s.sources = nil
}

// nudgeStart moves the start of the first source, recursively, to start.
func (s *Segment) nudgeStart(start int) error {
	if len(s.sources) == 0 {
		return nil
	}
	first := &s.sources[0]
	if first.start == start {
		return nil
	}
	if first.end == start || !contains(start, s.end, first.end, s.total) ||
		arcLength(start, first.end, first.total) < MinimumLength {
		return profile.Invalidf("merge source %s would shrink below minimum length", first.id)
	}
	if err := first.nudgeStart(start); err != nil {
		return err
	}
	first.start = start
	return nil
}

// nudgeEnd moves the end of the last source, recursively, to end.
func (s *Segment) nudgeEnd(end int) error {
	if len(s.sources) == 0 {
		return nil
	}
	last := &s.sources[len(s.sources)-1]
	if last.end == end {
		return nil
	}
	if last.start == end || !contains(s.start, end, last.start, s.total) ||
		arcLength(last.start, end, last.total) < MinimumLength {
		return profile.Invalidf("merge source %s would shrink below minimum length", last.id)
	}
	if err := last.nudgeEnd(end); err != nil {
		return err
	}
	last.end = end
	return nil
}

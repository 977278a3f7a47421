package segmented

import (
	"math"

	"github.com/google/uuid"

	"morphoprofile/pkg/profile"
	"morphoprofile/pkg/segment"
)

// Interpolate resamples the profile to length and moves every segment start
// to the same proportion of the new length. Starts that end up closer than
// the minimum segment length are pushed apart. Merge sources follow their
// parent, each inner boundary kept at the same proportion along it.
func (sp *Profile) Interpolate(length int) (*Profile, error) {
	values, err := sp.values.Interpolate(length)
	if err != nil {
		return nil, err
	}
	old := sp.ring.Segments()
	oldLen := sp.Len()
	scale := func(i int) int {
		return profile.Wrap(int(math.Round(float64(i)/float64(oldLen)*float64(length))), length)
	}

	if len(old) == 1 {
		start := scale(old[0].Start())
		s, err := segment.New(old[0].ID(), start, start, length)
		if err != nil {
			return nil, err
		}
		s.SetLocked(old[0].Locked())
		if s, err = carrySources(old[0], s); err != nil {
			return nil, err
		}
		return New(values, []segment.Segment{s})
	}

	// unwrapped starts, ascending round the ring from the first segment
	base := old[0].Start()
	starts := make([]int, len(old))
	for i, s := range old {
		u := base + profile.Wrap(s.Start()-base, oldLen)
		starts[i] = int(math.Round(float64(u) / float64(oldLen) * float64(length)))
	}
	if err := spaceStarts(starts, length); err != nil {
		return nil, err
	}
	for i := range starts {
		starts[i] = profile.Wrap(starts[i], length)
	}

	segs := make([]segment.Segment, len(old))
	for i, s := range old {
		ns, err := segment.New(s.ID(), starts[i], starts[(i+1)%len(starts)], length)
		if err != nil {
			return nil, profile.Interpolationf("segment %s at length %d: %v", s.ID(), length, err)
		}
		ns.SetLocked(s.Locked())
		if ns, err = carrySources(s, ns); err != nil {
			return nil, err
		}
		segs[i] = ns
	}
	out, err := New(values, segs)
	if err != nil {
		return nil, profile.Interpolationf("%v", err)
	}
	if out.SegmentCount() != len(old) {
		return nil, profile.Interpolationf("expected %d segments, built %d", len(old), out.SegmentCount())
	}
	return out, nil
}

// spaceStarts pushes each unwrapped start forward until the gap behind it
// spans the minimum segment length, then pulls the last start back if the
// gap closing the ring is too short.
func spaceStarts(starts []int, length int) error {
	step := segment.MinimumLength - 1
	n := len(starts)
	for i := 1; i < n; i++ {
		if starts[i]-starts[i-1] < step {
			starts[i] = starts[i-1] + step
		}
	}
	last := n - 1
	if starts[0]+length-starts[last] < step {
		starts[last] = starts[0] + length - step
		if starts[last]-starts[last-1] < step {
			return profile.Interpolationf("%d segments do not fit in length %d", n, length)
		}
	}
	return nil
}

// carrySources rebuilds the merge sources of old inside resized, its
// counterpart at another length. Inner boundaries are pushed forward to
// keep every source at the minimum length.
func carrySources(old, resized segment.Segment) (segment.Segment, error) {
	sources := old.MergeSources()
	if len(sources) == 0 {
		return resized, nil
	}
	span := resized.Length() - 1
	step := segment.MinimumLength - 1
	dist := make([]int, len(sources)+1)
	dist[len(sources)] = span
	for i := 1; i < len(sources); i++ {
		p, err := old.IndexProportion(sources[i].Start())
		if err != nil {
			return segment.Segment{}, profile.Interpolationf("merge source %s: %v", sources[i].ID(), err)
		}
		dist[i] = int(math.Round(p * float64(span)))
		if dist[i]-dist[i-1] < step {
			dist[i] = dist[i-1] + step
		}
	}

	total := resized.TotalLength()
	for i, src := range sources {
		start := profile.Wrap(resized.Start()+dist[i], total)
		end := profile.Wrap(resized.Start()+dist[i+1], total)
		ns, err := segment.New(src.ID(), start, end, total)
		if err != nil {
			return segment.Segment{}, profile.Interpolationf("merge source %s of %s at length %d: %v", src.ID(), old.ID(), total, err)
		}
		ns.SetLocked(src.Locked())
		if ns, err = carrySources(src, ns); err != nil {
			return segment.Segment{}, err
		}
		if err := resized.AddMergeSource(ns); err != nil {
			return segment.Segment{}, profile.Interpolationf("%v", err)
		}
	}
	return resized, nil
}

// StartFrom returns a copy rotated so that index becomes index 0, with the
// segments shifted to stay on the same values.
func (sp *Profile) StartFrom(index int) (*Profile, error) {
	segs := sp.ring.Segments()
	for i, s := range segs {
		segs[i] = s.Offset(-index)
	}
	return New(sp.values.StartFrom(index), segs)
}

// Reverse inverts the order of the values and mirrors every segment so the
// segmentation still covers the same samples.
func (sp *Profile) Reverse() error {
	segs := sp.ring.Segments()
	rev := make([]segment.Segment, len(segs))
	for i, s := range segs {
		rev[len(segs)-1-i] = s.Reverse()
	}
	next, err := New(sp.values.Reversed(), rev)
	if err != nil {
		return err
	}
	*sp = *next
	return nil
}

// MergeSegments replaces two adjacent segments with one spanning both,
// identified by newID. The originals are kept as merge sources.
func (sp *Profile) MergeSegments(a, b, newID uuid.UUID) error {
	ia, err := sp.position(a)
	if err != nil {
		return err
	}
	ib, err := sp.position(b)
	if err != nil {
		return err
	}
	if ia == ib {
		return profile.Invalidf("cannot merge segment %s with itself", a)
	}
	if sp.HasSegment(newID) {
		return profile.Invalidf("segment id %s already in use", newID)
	}
	var first, second int
	switch {
	case sp.ring.Next(ia) == ib:
		first, second = ia, ib
	case sp.ring.Next(ib) == ia:
		first, second = ib, ia
	default:
		return profile.Invalidf("segments %s and %s are not adjacent", a, b)
	}

	fs, ss := sp.ring.At(first), sp.ring.At(second)
	merged, err := segment.New(newID, fs.Start(), ss.End(), sp.Len())
	if err != nil {
		return err
	}
	merged.SetLocked(fs.Locked())
	if err := merged.AddMergeSource(fs); err != nil {
		return err
	}
	if err := merged.AddMergeSource(ss); err != nil {
		return err
	}

	segs := make([]segment.Segment, 0, sp.ring.Len()-1)
	for i, s := range sp.ring.Segments() {
		switch i {
		case first:
			segs = append(segs, merged)
		case second:
		default:
			segs = append(segs, s)
		}
	}
	return sp.SetSegments(segs)
}

// UnmergeSegment replaces the segment with id by its merge sources. A
// segment without merge sources is left alone.
func (sp *Profile) UnmergeSegment(id uuid.UUID) error {
	i, err := sp.position(id)
	if err != nil {
		return err
	}
	target := sp.ring.At(i)
	if !target.HasMergeSources() {
		return nil
	}
	sources := target.MergeSources()
	if sources[0].Start() != target.Start() || sources[len(sources)-1].End() != target.End() {
		return profile.Invalidf("merge sources of %s no longer match its bounds", id)
	}
	segs := make([]segment.Segment, 0, sp.ring.Len()+len(sources)-1)
	for j, s := range sp.ring.Segments() {
		if j == i {
			segs = append(segs, sources...)
			continue
		}
		segs = append(segs, s)
	}
	return sp.SetSegments(segs)
}

// IsSplittable reports whether the segment with id can be cut at index into
// two segments of at least the minimum length.
func (sp *Profile) IsSplittable(id uuid.UUID, index int) bool {
	s, err := sp.Segment(id)
	if err != nil || !s.ContainsInterior(index) {
		return false
	}
	if _, err := segment.New(uuid.New(), s.Start(), index, sp.Len()); err != nil {
		return false
	}
	_, err = segment.New(uuid.New(), index, s.End(), sp.Len())
	return err == nil
}

// SplitSegment cuts the segment with id at index into [start,index] with id1
// and [index,end] with id2.
func (sp *Profile) SplitSegment(id uuid.UUID, index int, id1, id2 uuid.UUID) error {
	i, err := sp.position(id)
	if err != nil {
		return err
	}
	if !sp.IsSplittable(id, index) {
		return profile.Invalidf("segment %s cannot be split at %d", id, index)
	}
	if id1 == id2 {
		return profile.Invalidf("split halves need distinct ids")
	}
	for _, nid := range []uuid.UUID{id1, id2} {
		if nid == id || sp.HasSegment(nid) {
			return profile.Invalidf("segment id %s already in use", nid)
		}
	}
	s := sp.ring.At(i)
	first, err := segment.New(id1, s.Start(), index, sp.Len())
	if err != nil {
		return err
	}
	first.SetLocked(s.Locked())
	second, err := segment.New(id2, index, s.End(), sp.Len())
	if err != nil {
		return err
	}

	work := sp.Clone()
	work.ring.ClearMergeSources(i)
	if err := work.ring.AddMergeSource(i, first); err != nil {
		return err
	}
	if err := work.ring.AddMergeSource(i, second); err != nil {
		return err
	}
	if err := work.UnmergeSegment(id); err != nil {
		return err
	}
	*sp = *work
	return nil
}

package collection

import (
	"sync"

	"github.com/google/uuid"

	"morphoprofile/internal/monitoring"
	"morphoprofile/pkg/profile"
	"morphoprofile/pkg/segment"
	"morphoprofile/pkg/segmented"
)

// TestSegmentsMergeable reports whether a and b can be merged: b must follow
// a directly and their shared boundary must not be the reference point.
func (m *Manager) TestSegmentsMergeable(a, b uuid.UUID) (bool, error) {
	median, err := m.median()
	if err != nil {
		return false, err
	}
	sa, err := median.Segment(a)
	if err != nil {
		return false, err
	}
	if _, err := median.Segment(b); err != nil {
		return false, err
	}
	_, next, err := adjacent(median, a)
	if err != nil {
		return false, err
	}
	if next.ID() != b {
		return false, nil
	}
	rp, err := m.pc.Landmark(ReferencePoint)
	if err != nil {
		return false, err
	}
	return sa.End() != rp, nil
}

// memberEdit prepares a new segmentation for one member without applying it.
type memberEdit func(sp *segmented.Profile) error

// propagate applies edit to the consensus median and to every member. All
// edits are computed before any is committed, so a failure anywhere leaves
// the consensus and members untouched.
func (m *Manager) propagate(medianEdit, edit memberEdit) error {
	median, err := m.median()
	if err != nil {
		return err
	}
	if err := medianEdit(median); err != nil {
		return err
	}

	var mu sync.Mutex
	pending := make(map[uuid.UUID][]segment.Segment, len(m.members))
	err = m.forEach(nil, func(mem Member) error {
		sp, err := mem.Profile(profile.Angle, ReferencePoint)
		if err != nil {
			return err
		}
		if err := edit(sp); err != nil {
			return err
		}
		mu.Lock()
		pending[mem.ID()] = sp.Segments()
		mu.Unlock()
		return nil
	})
	if err != nil {
		return err
	}

	if err := m.pc.SetSegments(median.Segments()); err != nil {
		return err
	}
	for _, mem := range m.members {
		if err := mem.SetSegments(ReferencePoint, pending[mem.ID()]); err != nil {
			return err
		}
	}
	return nil
}

// MergeSegments merges consensus segments a and b into newID and does the
// same on every member, locked or not.
func (m *Manager) MergeSegments(a, b, newID uuid.UUID) error {
	edit := func(sp *segmented.Profile) error {
		return sp.MergeSegments(a, b, newID)
	}
	if err := m.propagate(edit, edit); err != nil {
		return err
	}
	monitoring.Logger().Debug("merged segments", "first", a, "second", b, "merged", newID)
	return nil
}

// UnmergeSegment restores the merge sources of consensus segment id on the
// consensus and on every member. A consensus segment without sources is left
// alone. A member that lost the sources fails the whole edit.
func (m *Manager) UnmergeSegment(id uuid.UUID) error {
	median, err := m.median()
	if err != nil {
		return err
	}
	seg, err := median.Segment(id)
	if err != nil {
		return err
	}
	if !seg.HasMergeSources() {
		monitoring.Logger().Debug("segment has no merge sources", "segment", id)
		return nil
	}
	medianEdit := func(sp *segmented.Profile) error {
		return sp.UnmergeSegment(id)
	}
	edit := func(sp *segmented.Profile) error {
		s, err := sp.Segment(id)
		if err != nil {
			return err
		}
		if !s.HasMergeSources() {
			return profile.NotFoundf("merge sources of segment %s", id)
		}
		return sp.UnmergeSegment(id)
	}
	return m.propagate(medianEdit, edit)
}

// SplitSegment splits consensus segment id at its midpoint into id1 and
// id2. Nothing changes unless every profile can be split.
func (m *Manager) SplitSegment(id, id1, id2 uuid.UUID) error {
	median, err := m.median()
	if err != nil {
		return err
	}
	seg, err := median.Segment(id)
	if err != nil {
		return err
	}
	return m.SplitSegmentAt(id, seg.MidpointIndex(), id1, id2)
}

// SplitSegmentAt splits consensus segment id at index into id1 and id2.
// Each member splits its own copy at the same proportion along the segment.
func (m *Manager) SplitSegmentAt(id uuid.UUID, index int, id1, id2 uuid.UUID) error {
	median, err := m.median()
	if err != nil {
		return err
	}
	seg, err := median.Segment(id)
	if err != nil {
		return err
	}
	proportion, err := seg.IndexProportion(index)
	if err != nil {
		return err
	}

	splitAt := func(sp *segmented.Profile) error {
		s, err := sp.Segment(id)
		if err != nil {
			return err
		}
		idx, err := s.ProportionalIndex(proportion)
		if err != nil {
			return err
		}
		if !sp.IsSplittable(id, idx) {
			return profile.Invalidf("segment %s cannot be split at %d", id, idx)
		}
		return sp.SplitSegment(id, idx, id1, id2)
	}
	medianSplit := func(sp *segmented.Profile) error {
		return sp.SplitSegment(id, index, id1, id2)
	}
	if err := m.propagate(medianSplit, splitAt); err != nil {
		return err
	}
	monitoring.Logger().Debug("split segment", "segment", id, "index", index, "proportion", proportion)
	return nil
}

// SetLockOnAllMemberSegments locks or unlocks every consensus segment in
// every member.
func (m *Manager) SetLockOnAllMemberSegments(locked bool) error {
	return m.setMemberLocks(func(uuid.UUID) bool { return locked })
}

// SetLockOnAllMemberSegmentsExcept sets every member segment to locked,
// except id which gets the opposite state.
func (m *Manager) SetLockOnAllMemberSegmentsExcept(id uuid.UUID, locked bool) error {
	return m.setMemberLocks(func(seg uuid.UUID) bool { return (seg == id) != locked })
}

func (m *Manager) setMemberLocks(state func(uuid.UUID) bool) error {
	ids := m.pc.SegmentIDs()
	return m.forEach(nil, func(mem Member) error {
		sp, err := mem.Profile(profile.Angle, ReferencePoint)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if err := sp.SetLocked(id, state(id)); err != nil {
				return err
			}
		}
		return mem.SetSegments(ReferencePoint, sp.Segments())
	})
}

package collection

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"morphoprofile/internal/monitoring"
	"morphoprofile/pkg/profile"
	"morphoprofile/pkg/segment"
	"morphoprofile/pkg/segmented"
)

// Manager owns a set of members and their profile collection. Consensus
// edits are applied to the collection first and then pushed down to every
// member. The Manager is not safe for concurrent use; it fans work out to
// members internally, one worker per member.
type Manager struct {
	members []Member
	pc      *ProfileCollection
	workers int
}

// NewManager creates a manager for members. workers bounds the goroutines
// used for per-member work; 0 means one per CPU.
func NewManager(members []Member, workers int) (*Manager, error) {
	if len(members) == 0 {
		return nil, profile.Invalidf("a collection needs at least one member")
	}
	seen := make(map[uuid.UUID]bool, len(members))
	for _, m := range members {
		if seen[m.ID()] {
			return nil, profile.Invalidf("duplicate member %s", m.ID())
		}
		seen[m.ID()] = true
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Manager{
		members: slices.Clone(members),
		pc:      NewProfileCollection(),
		workers: workers,
	}, nil
}

// Collection returns the consensus profile collection.
func (m *Manager) Collection() *ProfileCollection { return m.pc }

// Members returns the members in insertion order.
func (m *Manager) Members() []Member { return slices.Clone(m.members) }

// Member returns the member with id.
func (m *Manager) Member(id uuid.UUID) (Member, error) {
	for _, mem := range m.members {
		if mem.ID() == id {
			return mem, nil
		}
	}
	return nil, profile.NotFoundf("member %s", id)
}

// MedianLength returns the median member length, used as the consensus
// length.
func (m *Manager) MedianLength() int {
	lengths := make([]float64, len(m.members))
	for i, mem := range m.members {
		lengths[i] = float64(mem.Length())
	}
	slices.Sort(lengths)
	return int(stat.Quantile(0.5, stat.Empirical, lengths, nil))
}

// CalculateProfiles rebuilds the consensus aggregates at the median member
// length.
func (m *Manager) CalculateProfiles() error {
	length := m.MedianLength()
	if err := m.pc.CalculateProfiles(m.members, length); err != nil {
		return err
	}
	monitoring.Logger().Debug("calculated consensus profiles",
		"members", len(m.members), "length", length, "segments", m.pc.SegmentCount())
	return nil
}

// RecalculateProfileAggregates rebuilds the aggregates at the current
// consensus length so that segments do not slip.
func (m *Manager) RecalculateProfileAggregates() error {
	length := m.pc.Length()
	if length == 0 {
		length = m.MedianLength()
	}
	return m.pc.CalculateProfiles(m.members, length)
}

// forEach runs fn for every member selected by keep on a bounded pool of
// goroutines and returns the first error.
func (m *Manager) forEach(keep func(Member) bool, fn func(Member) error) error {
	g, _ := errgroup.WithContext(context.Background())
	g.SetLimit(m.workers)
	for _, mem := range m.members {
		if keep != nil && !keep(mem) {
			continue
		}
		g.Go(func() error {
			if err := fn(mem); err != nil {
				return fmt.Errorf("member %s: %w", mem.Name(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

func unlocked(mem Member) bool { return !mem.Locked() }

// median returns the consensus median angle profile with segments, started
// at the reference point.
func (m *Manager) median() (*segmented.Profile, error) {
	return m.pc.SegmentedProfile(profile.Angle, ReferencePoint, Median)
}

// UpdateLandmarkToMedianBestFit moves lm on every unlocked member to the
// offset at which its own profile of type t best matches median.
func (m *Manager) UpdateLandmarkToMedianBestFit(lm Landmark, t profile.Type, median profile.Profile) error {
	fits, err := m.bestFits(t, median)
	if err != nil {
		return err
	}
	return m.setMemberLandmarks(lm, fits)
}

// bestFits returns, for every unlocked member, the raw index at which its
// profile of type t best matches median.
func (m *Manager) bestFits(t profile.Type, median profile.Profile) (map[uuid.UUID]int, error) {
	var mu sync.Mutex
	fits := make(map[uuid.UUID]int, len(m.members))
	err := m.forEach(unlocked, func(mem Member) error {
		raw, err := mem.RawProfile(t)
		if err != nil {
			return err
		}
		idx, err := raw.BestFitOffset(median)
		if err != nil {
			return err
		}
		mu.Lock()
		fits[mem.ID()] = idx
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fits, nil
}

// setMemberLandmarks sets lm on each member in fits. If any member refuses,
// the members already changed get their previous index back.
func (m *Manager) setMemberLandmarks(lm Landmark, fits map[uuid.UUID]int) error {
	type change struct {
		mem Member
		old int
		had bool
	}
	var done []change
	undo := func() {
		for _, c := range slices.Backward(done) {
			if c.had {
				_ = c.mem.SetLandmark(lm, c.old)
			}
		}
	}
	for _, mem := range m.members {
		idx, ok := fits[mem.ID()]
		if !ok {
			continue
		}
		old, err := mem.Landmark(lm)
		c := change{mem: mem, old: old, had: err == nil}
		if err := mem.SetLandmark(lm, idx); err != nil {
			undo()
			return fmt.Errorf("member %s: %w", mem.Name(), err)
		}
		done = append(done, c)
	}
	return nil
}

// UpdateLandmark moves lm on the consensus to index, counted from the
// reference point, and refits the members. Moving the reference point
// re-zeroes the consensus and rebuilds the aggregates.
func (m *Manager) UpdateLandmark(lm Landmark, index int) error {
	if !m.pc.IsCalculated() {
		return profile.Invalidf("profiles have not been calculated")
	}
	index = profile.Wrap(index, m.pc.Length())
	if lm == ReferencePoint {
		return m.moveReferencePoint(index)
	}

	// a landmark placed on another one shares its member indexes
	for _, other := range m.pc.Landmarks() {
		if other == lm {
			continue
		}
		if idx, _ := m.pc.Landmark(other); idx == index {
			if err := m.pc.SetLandmark(lm, index); err != nil {
				return err
			}
			return m.forEach(unlocked, func(mem Member) error {
				raw, err := mem.Landmark(other)
				if err != nil {
					return err
				}
				return mem.SetLandmark(lm, raw)
			})
		}
	}

	if err := m.pc.SetLandmark(lm, index); err != nil {
		return err
	}
	median, err := m.pc.Profile(profile.Angle, lm, Median)
	if err != nil {
		return err
	}
	monitoring.Logger().Debug("refitting landmark", "landmark", lm, "index", index)
	return m.UpdateLandmarkToMedianBestFit(lm, profile.Angle, median)
}

func (m *Manager) moveReferencePoint(index int) error {
	if index == 0 {
		return nil
	}
	fits, err := m.referenceFits(index)
	if err != nil {
		return err
	}
	saved := m.pc.save()
	if err := m.commitReferencePoint(fits, index); err != nil {
		m.pc.restore(saved)
		return err
	}
	return nil
}

// referenceFits returns the member reference points that match the
// consensus re-zeroed at index.
func (m *Manager) referenceFits(index int) (map[uuid.UUID]int, error) {
	old, err := m.pc.Profile(profile.Angle, ReferencePoint, Median)
	if err != nil {
		return nil, err
	}
	return m.bestFits(profile.Angle, old.StartFrom(index))
}

// commitReferencePoint installs fits as member reference points, re-zeroes
// the consensus at index and rebuilds the aggregates. Member reference
// points are put back on failure; the caller restores the collection.
func (m *Manager) commitReferencePoint(fits map[uuid.UUID]int, index int) error {
	previous := make(map[uuid.UUID]int, len(fits))
	for _, mem := range m.members {
		if _, ok := fits[mem.ID()]; !ok {
			continue
		}
		idx, err := mem.Landmark(ReferencePoint)
		if err != nil {
			return err
		}
		previous[mem.ID()] = idx
	}
	if err := m.setMemberLandmarks(ReferencePoint, fits); err != nil {
		return err
	}
	m.pc.rezero(index)
	if err := m.RecalculateProfileAggregates(); err != nil {
		if undoErr := m.setMemberLandmarks(ReferencePoint, previous); undoErr != nil {
			monitoring.Logger().Error("could not restore reference points", "error", undoErr)
		}
		return err
	}
	monitoring.Logger().Debug("moved reference point", "offset", index)
	return nil
}

// CopySegmentsAndLandmarksTo rebuilds dest's consensus and copies this
// collection's landmarks, by proportion, and segments, by interpolating the
// median, onto it.
func (m *Manager) CopySegmentsAndLandmarksTo(dest *Manager) error {
	src := m.pc
	srcSegs, err := src.Segments(ReferencePoint)
	if err != nil {
		return err
	}
	median, err := m.median()
	if err != nil {
		return err
	}
	if err := dest.CalculateProfiles(); err != nil {
		return err
	}
	dpc := dest.pc

	for _, lm := range src.Landmarks() {
		if lm == ReferencePoint {
			continue
		}
		idx, _ := src.Landmark(lm)
		prop, err := src.ProportionOfIndex(idx)
		if err != nil {
			return err
		}
		adj, err := dpc.IndexOfProportion(prop)
		if err != nil {
			return err
		}
		if err := dpc.SetLandmark(lm, adj); err != nil {
			return err
		}
	}

	resized, err := median.Interpolate(dpc.Length())
	if err != nil {
		return err
	}
	if err := dpc.SetSegments(resized.Segments()); err != nil {
		return err
	}

	copied, err := dpc.Segments(ReferencePoint)
	if err != nil {
		return err
	}
	if len(copied) != len(srcSegs) {
		return profile.Interpolationf("copied %d segments, source has %d", len(copied), len(srcSegs))
	}
	for i := range copied {
		if copied[i].ID() != srcSegs[i].ID() {
			return profile.Interpolationf("segment ids are not consistent with the source at position %d", i)
		}
		if copied[i].Locked() != srcSegs[i].Locked() {
			return profile.Interpolationf("segment %s lock state changed in copy", copied[i].ID())
		}
	}
	monitoring.Logger().Debug("copied segments and landmarks",
		"segments", len(copied), "from_length", src.Length(), "to_length", dpc.Length())
	return nil
}

// AssignSegmentsToMembers installs the consensus segmentation on every
// unlocked member, interpolated to the member's own length.
func (m *Manager) AssignSegmentsToMembers() error {
	median, err := m.median()
	if err != nil {
		return err
	}
	err = m.forEach(unlocked, func(mem Member) error {
		resized, err := median.Interpolate(mem.Length())
		if err != nil {
			return err
		}
		return mem.SetSegments(ReferencePoint, resized.Segments())
	})
	if err != nil {
		return err
	}
	monitoring.Logger().Debug("assigned segments to members", "segments", median.SegmentCount())
	return nil
}

// Segment runs s over the consensus median, installs the result and pushes
// it to the members.
func (m *Manager) Segment(s Segmenter) error {
	median, err := m.pc.Profile(profile.Angle, ReferencePoint, Median)
	if err != nil {
		return err
	}
	segs, err := s.Segment(median)
	if err != nil {
		return err
	}
	if err := m.pc.SetSegments(segs); err != nil {
		return err
	}
	monitoring.Logger().Info("segmented consensus", "segments", len(segs))
	return m.AssignSegmentsToMembers()
}

// SegmentCount returns the number of consensus segments.
func (m *Manager) SegmentCount() int { return m.pc.SegmentCount() }

// UpdateMemberSegmentStart moves the start of segment id in mem's angle
// profile, counted from its reference point. A landmark that sat on the
// old boundary moves with it.
func (m *Manager) UpdateMemberSegmentStart(mem Member, id uuid.UUID, index int) error {
	sp, err := mem.Profile(profile.Angle, ReferencePoint)
	if err != nil {
		return err
	}
	seg, err := sp.Segment(id)
	if err != nil {
		return err
	}
	rp, err := mem.Landmark(ReferencePoint)
	if err != nil {
		return err
	}
	oldRaw := profile.Wrap(rp+seg.Start(), mem.Length())

	if err := sp.Update(id, index, seg.End()); err != nil {
		monitoring.Logger().Debug("member segment update refused",
			"member", mem.Name(), "segment", seg.Name(), "from", seg.Start(), "to", index, "error", err)
		return err
	}
	if err := mem.SetSegments(ReferencePoint, sp.Segments()); err != nil {
		return err
	}

	newRaw := profile.Wrap(rp+index, mem.Length())
	for lm, idx := range mem.Landmarks() {
		if idx == oldRaw {
			if err := mem.SetLandmark(lm, newRaw); err != nil {
				return err
			}
		}
	}
	return nil
}

// UpdateMedianSegmentStart moves the start of consensus segment id to index.
func (m *Manager) UpdateMedianSegmentStart(id uuid.UUID, index int) error {
	return m.updateMedianSegment(true, id, index)
}

// UpdateMedianSegmentEnd moves the end of consensus segment id to index.
func (m *Manager) UpdateMedianSegmentEnd(id uuid.UUID, index int) error {
	return m.updateMedianSegment(false, id, index)
}

// updateMedianSegment edits one consensus boundary. Merge provenance on the
// segments sharing the boundary is dropped first, as the move may leave it
// invalid. Landmarks on a moved start travel with it.
func (m *Manager) updateMedianSegment(start bool, id uuid.UUID, index int) error {
	median, err := m.median()
	if err != nil {
		return err
	}
	seg, err := median.Segment(id)
	if err != nil {
		return err
	}
	index = profile.Wrap(index, median.Len())
	newStart, newEnd := seg.Start(), seg.End()
	if start {
		newStart = index
	} else {
		newEnd = index
	}

	prev, next, err := adjacent(median, id)
	if err != nil {
		return err
	}
	neighbour := next
	if start {
		neighbour = prev
	}
	if err := median.ClearMergeSources(id); err != nil {
		return err
	}
	if err := median.ClearMergeSources(neighbour.ID()); err != nil {
		return err
	}

	if err := median.Update(id, newStart, newEnd); err != nil {
		return err
	}

	// work out everything the edit moves before changing anything
	var moved []Landmark
	var fits map[uuid.UUID]int
	if start && seg.Start() != index {
		for _, lm := range m.pc.Landmarks() {
			if idx, _ := m.pc.Landmark(lm); lm != ReferencePoint && idx == seg.Start() {
				moved = append(moved, lm)
			}
		}
		if seg.Start() == 0 {
			if fits, err = m.referenceFits(index); err != nil {
				return err
			}
		}
	}

	saved := m.pc.save()
	if err := m.commitMedianEdit(median.Segments(), moved, fits, index); err != nil {
		m.pc.restore(saved)
		return err
	}
	return nil
}

func (m *Manager) commitMedianEdit(segs []segment.Segment, moved []Landmark, fits map[uuid.UUID]int, index int) error {
	if err := m.pc.SetSegments(segs); err != nil {
		return err
	}
	for _, lm := range moved {
		if err := m.pc.SetLandmark(lm, index); err != nil {
			return err
		}
	}
	if fits == nil {
		return nil
	}
	return m.commitReferencePoint(fits, index)
}

// adjacent returns the segments before and after id in ring order.
func adjacent(sp *segmented.Profile, id uuid.UUID) (prev, next segment.Segment, err error) {
	segs := sp.Segments()
	for i, s := range segs {
		if s.ID() == id {
			n := len(segs)
			return segs[(i+n-1)%n], segs[(i+1)%n], nil
		}
	}
	return prev, next, profile.NotFoundf("segment %s", id)
}

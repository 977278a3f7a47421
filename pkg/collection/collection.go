// Package collection aggregates the profiles of many members into consensus
// profiles, keeps the landmarks and segmentation of that consensus, and
// propagates segment edits back to the members.
package collection

import (
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/google/uuid"

	"morphoprofile/pkg/profile"
	"morphoprofile/pkg/segment"
	"morphoprofile/pkg/segmented"
)

// Median is the quartile of the consensus median profile.
const Median = 50.0

type cacheKey struct {
	t  profile.Type
	lm Landmark
	q  float64
}

// ProfileCollection holds one aggregate per profile type, built from member
// profiles started at their reference points and resampled to a common
// length. Landmarks and segments are stored in that space, so the reference
// point is always index 0.
type ProfileCollection struct {
	length     int
	landmarks  map[Landmark]int
	segments   []segment.Segment
	aggregates map[profile.Type]*profile.Aggregate
	cache      map[cacheKey]profile.Profile
}

// NewProfileCollection returns an empty collection with the reference
// point at 0.
func NewProfileCollection() *ProfileCollection {
	return &ProfileCollection{
		landmarks: map[Landmark]int{ReferencePoint: 0},
		cache:     make(map[cacheKey]profile.Profile),
	}
}

// Length returns the consensus length, or 0 before CalculateProfiles.
func (pc *ProfileCollection) Length() int { return pc.length }

// IsCalculated reports whether aggregates have been built.
func (pc *ProfileCollection) IsCalculated() bool { return pc.aggregates != nil }

// CalculateProfiles discards the aggregates and cached quartiles and
// rebuilds them from members at the given length. Existing segments are
// carried across a change of length. It fails if any member lacks a
// profile type.
func (pc *ProfileCollection) CalculateProfiles(members []Member, length int) error {
	if len(members) == 0 {
		return profile.Invalidf("cannot build profiles from an empty collection")
	}
	if length < profile.MinimumLength {
		return profile.Invalidf("consensus length %d below minimum %d", length, profile.MinimumLength)
	}

	aggs := make(map[profile.Type]*profile.Aggregate, len(profile.Types))
	for _, t := range profile.Types {
		agg, err := profile.NewAggregate(length, len(members))
		if err != nil {
			return err
		}
		for _, m := range members {
			sp, err := m.Profile(t, ReferencePoint)
			if err != nil {
				return fmt.Errorf("member %s: %w", m.Name(), err)
			}
			if err := agg.Add(sp.Profile()); err != nil {
				return fmt.Errorf("member %s: %w", m.Name(), err)
			}
		}
		aggs[t] = agg
	}

	segs, err := pc.segmentsAtLength(length)
	if err != nil {
		return err
	}
	landmarks := make(map[Landmark]int, len(pc.landmarks))
	for lm, idx := range pc.landmarks {
		landmarks[lm] = rescaleIndex(idx, pc.length, length)
	}

	pc.aggregates = aggs
	pc.segments = segs
	pc.landmarks = landmarks
	pc.length = length
	clear(pc.cache)
	return nil
}

// segmentsAtLength returns the current segments moved onto a profile of
// length. An unsegmented collection gets the default segment.
func (pc *ProfileCollection) segmentsAtLength(length int) ([]segment.Segment, error) {
	if len(pc.segments) == 0 {
		d, err := segment.NewDefault(length)
		if err != nil {
			return nil, err
		}
		return []segment.Segment{d}, nil
	}
	if pc.length == length {
		return pc.segments, nil
	}
	flat, err := profile.Constant(0, pc.length)
	if err != nil {
		return nil, err
	}
	sp, err := segmented.New(flat, pc.segments)
	if err != nil {
		return nil, err
	}
	resized, err := sp.Interpolate(length)
	if err != nil {
		return nil, err
	}
	return resized.Segments(), nil
}

func rescaleIndex(index, from, to int) int {
	if from == 0 || from == to {
		return index
	}
	return profile.Wrap(int(math.Round(float64(index)/float64(from)*float64(to))), to)
}

// Profile returns quartile q of type t, started at lm.
func (pc *ProfileCollection) Profile(t profile.Type, lm Landmark, q float64) (profile.Profile, error) {
	idx, err := pc.Landmark(lm)
	if err != nil {
		return profile.Profile{}, err
	}
	key := cacheKey{t, lm, q}
	if p, ok := pc.cache[key]; ok {
		return p, nil
	}
	agg, ok := pc.aggregates[t]
	if !ok {
		return profile.Profile{}, profile.NotFoundf("%s profiles have not been calculated", t)
	}
	p, err := agg.Quartile(q)
	if err != nil {
		return profile.Profile{}, err
	}
	p = p.StartFrom(idx)
	pc.cache[key] = p
	return p, nil
}

// SegmentedProfile returns quartile q of type t started at lm, carrying the
// collection's segments.
func (pc *ProfileCollection) SegmentedProfile(t profile.Type, lm Landmark, q float64) (*segmented.Profile, error) {
	p, err := pc.Profile(t, lm, q)
	if err != nil {
		return nil, err
	}
	segs, err := pc.Segments(lm)
	if err != nil {
		return nil, err
	}
	return segmented.New(p, segs)
}

// Segments returns copies of the segments shifted so that lm is index 0.
func (pc *ProfileCollection) Segments(lm Landmark) ([]segment.Segment, error) {
	idx, err := pc.Landmark(lm)
	if err != nil {
		return nil, err
	}
	out := make([]segment.Segment, len(pc.segments))
	for i, s := range pc.segments {
		out[i] = s.Offset(-idx)
	}
	return out, nil
}

// SegmentIDs returns the segment ids in ring order.
func (pc *ProfileCollection) SegmentIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(pc.segments))
	for i, s := range pc.segments {
		ids[i] = s.ID()
	}
	return ids
}

// SegmentCount returns the number of segments.
func (pc *ProfileCollection) SegmentCount() int { return len(pc.segments) }

// IsSegmented reports whether the collection holds more than the default
// segment.
func (pc *ProfileCollection) IsSegmented() bool {
	return len(pc.segments) > 1 || (len(pc.segments) == 1 && !pc.segments[0].IsDefault())
}

// SetSegments replaces the segmentation. segs are relative to the reference
// point and must form a closed ring over the consensus length.
func (pc *ProfileCollection) SetSegments(segs []segment.Segment) error {
	if len(segs) == 0 {
		return profile.Invalidf("segment list is empty")
	}
	if segs[0].TotalLength() != pc.length {
		return profile.Invalidf("segment profile length %d does not fit aggregate length %d",
			segs[0].TotalLength(), pc.length)
	}
	ring, err := segment.NewRing(segs)
	if err != nil {
		return err
	}
	pc.segments = ring.Segments()
	return nil
}

// Landmark returns the index of lm relative to the reference point.
func (pc *ProfileCollection) Landmark(lm Landmark) (int, error) {
	idx, ok := pc.landmarks[lm]
	if !ok {
		return 0, profile.NotFoundf("landmark %s", lm)
	}
	return idx, nil
}

// HasLandmark reports whether lm has been set.
func (pc *ProfileCollection) HasLandmark(lm Landmark) bool {
	_, ok := pc.landmarks[lm]
	return ok
}

// Landmarks returns the landmarks in a stable order.
func (pc *ProfileCollection) Landmarks() []Landmark {
	return slices.Sorted(maps.Keys(pc.landmarks))
}

// SetLandmark places lm at index. The reference point stays at 0; moving it
// means rebuilding the aggregates, which the Manager does.
func (pc *ProfileCollection) SetLandmark(lm Landmark, index int) error {
	if pc.length == 0 {
		return profile.Invalidf("profiles have not been calculated")
	}
	if index < 0 || index >= pc.length {
		return profile.Invalidf("landmark index %d outside profile of length %d", index, pc.length)
	}
	if lm == ReferencePoint {
		if index != 0 {
			return profile.Invalidf("the reference point is fixed at index 0")
		}
		return nil
	}
	pc.landmarks[lm] = index
	for k := range pc.cache {
		if k.lm == lm {
			delete(pc.cache, k)
		}
	}
	return nil
}

// state is the part of a collection an edit changes.
type state struct {
	length     int
	aggregates map[profile.Type]*profile.Aggregate
	segments   []segment.Segment
	landmarks  map[Landmark]int
}

func (pc *ProfileCollection) save() state {
	return state{
		length:     pc.length,
		aggregates: pc.aggregates,
		segments:   slices.Clone(pc.segments),
		landmarks:  maps.Clone(pc.landmarks),
	}
}

func (pc *ProfileCollection) restore(s state) {
	pc.length = s.length
	pc.aggregates = s.aggregates
	pc.segments = s.segments
	pc.landmarks = s.landmarks
	clear(pc.cache)
}

// rezero moves the reference point to index and shifts every other landmark
// and segment to keep their positions on the values.
func (pc *ProfileCollection) rezero(index int) {
	for lm, idx := range pc.landmarks {
		if lm != ReferencePoint {
			pc.landmarks[lm] = profile.Wrap(idx-index, pc.length)
		}
	}
	for i, s := range pc.segments {
		pc.segments[i] = s.Offset(-index)
	}
	clear(pc.cache)
}

// ProportionOfIndex returns index as a fraction of the consensus, with the
// last index mapping to 1.
func (pc *ProfileCollection) ProportionOfIndex(index int) (float64, error) {
	if index < 0 || index >= pc.length {
		return 0, profile.Invalidf("index %d outside profile of length %d", index, pc.length)
	}
	if index == pc.length-1 {
		return 1, nil
	}
	return float64(index) / float64(pc.length-1), nil
}

// IndexOfProportion converts a fraction in [0,1] back to an index.
func (pc *ProfileCollection) IndexOfProportion(proportion float64) (int, error) {
	if proportion < 0 || proportion > 1 {
		return 0, profile.Invalidf("proportion %v outside [0,1]", proportion)
	}
	if proportion == 1 {
		return pc.length - 1, nil
	}
	return int(float64(pc.length) * proportion), nil
}

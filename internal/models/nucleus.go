package models

import (
	"maps"

	"github.com/google/uuid"

	"morphoprofile/pkg/collection"
	"morphoprofile/pkg/profile"
	"morphoprofile/pkg/segment"
	"morphoprofile/pkg/segmented"
)

// Nucleus is one outlined object with its measured profiles. Profiles,
// landmarks and segments are all held in the raw index space of the border,
// where index 0 is the first border point.
type Nucleus struct {
	id        uuid.UUID
	name      string
	length    int
	locked    bool
	profiles  map[profile.Type]profile.Profile
	landmarks map[collection.Landmark]int

	// segments are empty until a segmentation is assigned
	segments []segment.Segment
}

var _ collection.Member = (*Nucleus)(nil)

// NewNucleus creates a nucleus from one profile per type, all of the same
// length, with the reference point at rp.
func NewNucleus(id uuid.UUID, name string, profiles map[profile.Type]profile.Profile, rp int) (*Nucleus, error) {
	if len(profiles) == 0 {
		return nil, profile.Invalidf("nucleus %s has no profiles", name)
	}
	length := -1
	for t, p := range profiles {
		if p.Len() < profile.MinimumLength {
			return nil, profile.Invalidf("nucleus %s %s profile has length %d", name, t, p.Len())
		}
		if length >= 0 && p.Len() != length {
			return nil, profile.Invalidf("nucleus %s profiles differ in length", name)
		}
		length = p.Len()
	}
	if rp < 0 || rp >= length {
		return nil, profile.Invalidf("reference point %d outside border of length %d", rp, length)
	}
	return &Nucleus{
		id:        id,
		name:      name,
		length:    length,
		profiles:  maps.Clone(profiles),
		landmarks: map[collection.Landmark]int{collection.ReferencePoint: rp},
	}, nil
}

// ID returns the nucleus id.
func (n *Nucleus) ID() uuid.UUID { return n.id }

// Name returns the display name.
func (n *Nucleus) Name() string { return n.name }

// Length returns the number of border points.
func (n *Nucleus) Length() int { return n.length }

// Locked reports whether the landmarks are fixed by hand.
func (n *Nucleus) Locked() bool { return n.locked }

// SetLocked fixes or frees the landmarks.
func (n *Nucleus) SetLocked(locked bool) { n.locked = locked }

// RawProfile returns the profile of type t from border index 0.
func (n *Nucleus) RawProfile(t profile.Type) (profile.Profile, error) {
	p, ok := n.profiles[t]
	if !ok {
		return profile.Profile{}, profile.NotFoundf("%s profile in nucleus %s", t, n.name)
	}
	return p, nil
}

// Landmarks returns a copy of the raw landmark indexes.
func (n *Nucleus) Landmarks() map[collection.Landmark]int {
	return maps.Clone(n.landmarks)
}

// Landmark returns the raw index of lm.
func (n *Nucleus) Landmark(lm collection.Landmark) (int, error) {
	idx, ok := n.landmarks[lm]
	if !ok {
		return 0, profile.NotFoundf("landmark %s in nucleus %s", lm, n.name)
	}
	return idx, nil
}

// SetLandmark places lm at a raw index.
func (n *Nucleus) SetLandmark(lm collection.Landmark, index int) error {
	if index < 0 || index >= n.length {
		return profile.Invalidf("landmark index %d outside border of length %d", index, n.length)
	}
	n.landmarks[lm] = index
	return nil
}

// Profile returns the profile of type t started at lm, with segments.
func (n *Nucleus) Profile(t profile.Type, lm collection.Landmark) (*segmented.Profile, error) {
	raw, err := n.RawProfile(t)
	if err != nil {
		return nil, err
	}
	idx, err := n.Landmark(lm)
	if err != nil {
		return nil, err
	}
	segs := make([]segment.Segment, len(n.segments))
	for i, s := range n.segments {
		segs[i] = s.Offset(-idx)
	}
	return segmented.New(raw.StartFrom(idx), segs)
}

// SetSegments installs segs, given relative to lm.
func (n *Nucleus) SetSegments(lm collection.Landmark, segs []segment.Segment) error {
	idx, err := n.Landmark(lm)
	if err != nil {
		return err
	}
	if len(segs) == 0 {
		n.segments = nil
		return nil
	}
	if segs[0].TotalLength() != n.length {
		return profile.Invalidf("segments of length %d do not fit nucleus %s of length %d",
			segs[0].TotalLength(), n.name, n.length)
	}
	raw := make([]segment.Segment, len(segs))
	for i, s := range segs {
		raw[i] = s.Offset(idx)
	}
	ring, err := segment.NewRing(raw)
	if err != nil {
		return err
	}
	n.segments = ring.Segments()
	return nil
}

// Segments returns the segments in raw index space.
func (n *Nucleus) Segments() []segment.Segment {
	out := make([]segment.Segment, len(n.segments))
	for i, s := range n.segments {
		out[i] = s.Clone()
	}
	return out
}

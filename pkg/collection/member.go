package collection

import (
	"github.com/google/uuid"

	"morphoprofile/pkg/profile"
	"morphoprofile/pkg/segment"
	"morphoprofile/pkg/segmented"
)

// Member is one object contributing profiles to a collection. Landmark
// indexes are in the member's own raw index space. Profile and SetSegments
// work relative to a landmark, which becomes index 0.
//
// A member is written by one goroutine at a time. The Manager never hands
// the same member to two workers.
type Member interface {
	ID() uuid.UUID
	Name() string

	// Length is the number of border points, shared by every profile type.
	Length() int

	// Locked members keep their landmarks when the consensus is refitted.
	Locked() bool

	RawProfile(t profile.Type) (profile.Profile, error)
	Landmarks() map[Landmark]int
	Landmark(lm Landmark) (int, error)
	SetLandmark(lm Landmark, index int) error

	// Profile returns the profile of type t started at lm, with the
	// member's segments shifted to match.
	Profile(t profile.Type, lm Landmark) (*segmented.Profile, error)

	// SetSegments installs segs, given relative to lm.
	SetSegments(lm Landmark, segs []segment.Segment) error
}

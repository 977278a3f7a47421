package collection

import (
	"strings"

	"morphoprofile/pkg/profile"
)

// Landmark names a reference index on a profile.
type Landmark string

const (
	// ReferencePoint anchors every profile. It sits at index 0 of the
	// consensus and at a segment boundary.
	ReferencePoint Landmark = "RP"

	// OrientationPoint is used to orient outlines for display.
	OrientationPoint Landmark = "OP"
)

// ParseLandmark accepts a landmark abbreviation in any case.
func ParseLandmark(s string) (Landmark, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(ReferencePoint):
		return ReferencePoint, nil
	case string(OrientationPoint):
		return OrientationPoint, nil
	}
	return "", profile.Invalidf("unknown landmark %q", s)
}

func (l Landmark) String() string { return string(l) }

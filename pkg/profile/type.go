package profile

import "strings"

// Type identifies which outline measurement a profile samples.
type Type int

const (
	// Angle is the interior angle at each border point.
	Angle Type = iota
	// Radius is the distance from each border point to the centroid.
	Radius
	// Diameter is the distance from each border point to the opposite border.
	Diameter
)

// Types lists every profile type in canonical order.
var Types = []Type{Angle, Radius, Diameter}

func (t Type) String() string {
	switch t {
	case Angle:
		return "angle"
	case Radius:
		return "radius"
	case Diameter:
		return "diameter"
	default:
		return "unknown"
	}
}

// ParseType converts a type name back into a Type.
func ParseType(s string) (Type, error) {
	for _, t := range Types {
		if strings.EqualFold(s, t.String()) {
			return t, nil
		}
	}
	return 0, Invalidf("unknown profile type %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(b []byte) error {
	parsed, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

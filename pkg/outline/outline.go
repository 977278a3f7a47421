// Package outline measures the border of a closed outline. Each border
// point gets an angle, a radius and a diameter, giving the raw profiles a
// collection member is built from.
package outline

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"morphoprofile/pkg/profile"
)

// DefaultWindowProportion is the fraction of the border either side of a
// point used to measure its angle.
const DefaultWindowProportion = 0.05

// Outline is a closed polygon whose vertices are the border points, in
// order. The closing vertex is not repeated.
type Outline struct {
	points   []orb.Point
	polygon  orb.Polygon
	centroid orb.Point
	window   int
}

// FromPoints builds an outline from x,y pairs.
func FromPoints(points [][2]float64, windowProportion float64) (*Outline, error) {
	ring := make(orb.Ring, len(points))
	for i, p := range points {
		ring[i] = orb.Point{p[0], p[1]}
	}
	return New(ring, windowProportion)
}

// New builds an outline from ring. The angle window is the given
// proportion of the border length, at least one point and less than half
// the border.
func New(ring orb.Ring, windowProportion float64) (*Outline, error) {
	if windowProportion <= 0 || windowProportion >= 0.5 {
		return nil, profile.Invalidf("window proportion %v must be in (0, 0.5)", windowProportion)
	}
	points := []orb.Point(ring.Clone())
	if len(points) > 1 && ring.Closed() {
		points = points[:len(points)-1]
	}
	n := len(points)
	if n < profile.MinimumLength {
		return nil, profile.Invalidf("outline has %d points, minimum is %d", n, profile.MinimumLength)
	}
	for i, p := range points {
		if p.Equal(points[profile.Wrap(i+1, n)]) {
			return nil, profile.Invalidf("outline repeats point %v at index %d", p, i)
		}
	}

	closed := append(orb.Ring(nil), points...)
	closed = append(closed, points[0])
	polygon := orb.Polygon{closed}
	centroid, area := planar.CentroidArea(polygon)
	if area == 0 {
		return nil, profile.Invalidf("outline encloses no area")
	}

	window := int(math.Round(float64(n) * windowProportion))
	window = min(max(window, 1), (n-1)/2)
	return &Outline{points: points, polygon: polygon, centroid: centroid, window: window}, nil
}

// Len returns the number of border points.
func (o *Outline) Len() int { return len(o.points) }

// Window returns the angle window in points.
func (o *Outline) Window() int { return o.window }

// Centroid returns the area centroid.
func (o *Outline) Centroid() orb.Point { return o.centroid }

// Point returns border point i, wrapping round the outline.
func (o *Outline) Point(i int) orb.Point { return o.points[profile.Wrap(i, len(o.points))] }

// Contains reports whether p lies inside the outline.
func (o *Outline) Contains(p orb.Point) bool {
	return planar.PolygonContains(o.polygon, p)
}

// Angle returns the interior angle in degrees at border point i, between
// the points a window away either side. Where the midpoint of those two
// points falls outside the outline the border is concave and the angle is
// reflex.
func (o *Outline) Angle(i int) float64 {
	p := o.Point(i)
	a := o.Point(i - o.window)
	b := o.Point(i + o.window)

	angle := vectorAngle(orb.Point{a[0] - p[0], a[1] - p[1]}, orb.Point{b[0] - p[0], b[1] - p[1]})
	mid := orb.Point{(a[0] + b[0]) / 2, (a[1] + b[1]) / 2}
	if !o.Contains(mid) {
		return 360 - angle
	}
	return angle
}

// vectorAngle returns the unsigned angle between u and v in degrees.
func vectorAngle(u, v orb.Point) float64 {
	dot := u[0]*v[0] + u[1]*v[1]
	cross := u[0]*v[1] - u[1]*v[0]
	return math.Abs(math.Atan2(cross, dot)) * 180 / math.Pi
}

// Radius returns the distance from border point i to the centroid.
func (o *Outline) Radius(i int) float64 {
	return planar.Distance(o.Point(i), o.centroid)
}

// Opposite returns the index of the border point most nearly opposite i
// through the centroid.
func (o *Outline) Opposite(i int) int {
	p := o.Point(i)
	toP := orb.Point{p[0] - o.centroid[0], p[1] - o.centroid[1]}
	best, bestAngle := i, -1.0
	for j, q := range o.points {
		if j == i {
			continue
		}
		a := vectorAngle(toP, orb.Point{q[0] - o.centroid[0], q[1] - o.centroid[1]})
		if a > bestAngle {
			best, bestAngle = j, a
		}
	}
	return best
}

// Diameter returns the distance from border point i to its opposite point.
func (o *Outline) Diameter(i int) float64 {
	return planar.Distance(o.Point(i), o.points[o.Opposite(i)])
}

// Profile measures every border point for profile type t.
func (o *Outline) Profile(t profile.Type) (profile.Profile, error) {
	var measure func(int) float64
	switch t {
	case profile.Angle:
		measure = o.Angle
	case profile.Radius:
		measure = o.Radius
	case profile.Diameter:
		measure = o.Diameter
	default:
		return profile.Profile{}, profile.Invalidf("no measure for profile type %s", t)
	}
	values := make([]float64, len(o.points))
	for i := range values {
		values[i] = measure(i)
	}
	return profile.New(values)
}

// Profiles measures every profile type.
func (o *Outline) Profiles() (map[profile.Type]profile.Profile, error) {
	out := make(map[profile.Type]profile.Profile, len(profile.Types))
	for _, t := range profile.Types {
		p, err := o.Profile(t)
		if err != nil {
			return nil, err
		}
		out[t] = p
	}
	return out, nil
}

// ReferenceIndex returns the border index of the sharpest angle, the
// default reference point.
func (o *Outline) ReferenceIndex() (int, error) {
	angles, err := o.Profile(profile.Angle)
	if err != nil {
		return 0, err
	}
	return angles.IndexOfMin(), nil
}

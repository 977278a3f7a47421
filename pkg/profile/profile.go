// Package profile provides the circular sample container used to describe
// closed outlines, together with the aggregate that turns many per-object
// profiles into consensus quartiles.
//
// A Profile is immutable. Every transformation returns a new Profile and the
// receiver is never modified, so profiles can be shared freely between
// goroutines.
package profile

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// MinimumLength is the shortest length a profile can be resampled to.
const MinimumLength = 3

// Profile is a fixed-length circular sequence of samples. Index length wraps
// to 0 and negative indices wrap backwards.
type Profile struct {
	values []float64
}

// New creates a profile from raw samples. The input slice is copied.
func New(values []float64) (Profile, error) {
	if len(values) == 0 {
		return Profile{}, Invalidf("profile must contain at least one value")
	}
	v := make([]float64, len(values))
	copy(v, values)
	return Profile{values: v}, nil
}

// Constant creates a profile of the given length with every sample set to value.
func Constant(value float64, length int) (Profile, error) {
	if length < 1 {
		return Profile{}, Invalidf("profile length %d must be positive", length)
	}
	v := make([]float64, length)
	for i := range v {
		v[i] = value
	}
	return Profile{values: v}, nil
}

// fromOwned wraps a slice the caller will not touch again.
func fromOwned(values []float64) Profile {
	return Profile{values: values}
}

// Wrap maps any index onto [0, length).
func Wrap(index, length int) int {
	if length <= 0 {
		return 0
	}
	i := index % length
	if i < 0 {
		i += length
	}
	return i
}

// Len returns the number of samples.
func (p Profile) Len() int {
	return len(p.values)
}

// IsEmpty reports whether p is the zero Profile.
func (p Profile) IsEmpty() bool {
	return len(p.values) == 0
}

// Values returns a copy of the samples.
func (p Profile) Values() []float64 {
	v := make([]float64, len(p.values))
	copy(v, p.values)
	return v
}

// Wrap maps index onto this profile's index space.
func (p Profile) Wrap(index int) int {
	return Wrap(index, len(p.values))
}

// At returns the sample at index.
func (p Profile) At(index int) (float64, error) {
	if index < 0 || index >= len(p.values) {
		return 0, Invalidf("index %d outside profile of length %d", index, len(p.values))
	}
	return p.values[index], nil
}

// AtWrapped returns the sample at index after wrapping it into range.
func (p Profile) AtWrapped(index int) float64 {
	return p.values[p.Wrap(index)]
}

// AtProportion returns the sample at floor(length * proportion). A proportion
// of exactly 1 wraps to index 0.
func (p Profile) AtProportion(proportion float64) (float64, error) {
	i, err := p.IndexOfFraction(proportion)
	if err != nil {
		return 0, err
	}
	return p.values[i], nil
}

// IndexOfFraction converts a fraction of the perimeter into an index.
func (p Profile) IndexOfFraction(fraction float64) (int, error) {
	if math.IsNaN(fraction) || fraction < 0 || fraction > 1 {
		return 0, Invalidf("proportion %v outside [0,1]", fraction)
	}
	return p.Wrap(int(math.Floor(float64(len(p.values)) * fraction))), nil
}

// FractionOfIndex converts an index into a fraction of the perimeter.
func (p Profile) FractionOfIndex(index int) (float64, error) {
	if index < 0 || index >= len(p.values) {
		return 0, Invalidf("index %d outside profile of length %d", index, len(p.values))
	}
	return float64(index) / float64(len(p.values)), nil
}

// Equal reports whether both profiles hold identical samples.
func (p Profile) Equal(other Profile) bool {
	return floats.Equal(p.values, other.values)
}

// EqualApprox reports whether both profiles match within tol at every index.
func (p Profile) EqualApprox(other Profile, tol float64) bool {
	return len(p.values) == len(other.values) && floats.EqualApprox(p.values, other.values, tol)
}

// Max returns the largest sample.
func (p Profile) Max() float64 {
	return floats.Max(p.values)
}

// Min returns the smallest sample.
func (p Profile) Min() float64 {
	return floats.Min(p.values)
}

// Sum returns the sum of all samples.
func (p Profile) Sum() float64 {
	return floats.Sum(p.values)
}

// Mean returns the arithmetic mean of the samples.
func (p Profile) Mean() float64 {
	return floats.Sum(p.values) / float64(len(p.values))
}

// IndexOfMax returns the index of the largest sample.
func (p Profile) IndexOfMax() int {
	return floats.MaxIdx(p.values)
}

// IndexOfMin returns the index of the smallest sample.
func (p Profile) IndexOfMin() int {
	return floats.MinIdx(p.values)
}

// IndexOfMaxWithin returns the index of the largest sample among the positions
// set in limits.
func (p Profile) IndexOfMaxWithin(limits Mask) (int, error) {
	return p.extremeWithin(limits, func(a, b float64) bool { return a > b })
}

// IndexOfMinWithin returns the index of the smallest sample among the positions
// set in limits.
func (p Profile) IndexOfMinWithin(limits Mask) (int, error) {
	return p.extremeWithin(limits, func(a, b float64) bool { return a < b })
}

func (p Profile) extremeWithin(limits Mask, better func(a, b float64) bool) (int, error) {
	if limits.Len() != len(p.values) {
		return 0, Invalidf("mask length %d does not match profile length %d", limits.Len(), len(p.values))
	}
	best := -1
	for i, v := range p.values {
		if !limits.values[i] {
			continue
		}
		if best < 0 || better(v, p.values[best]) {
			best = i
		}
	}
	if best < 0 {
		return 0, NotFoundf("no index allowed by mask")
	}
	return best, nil
}

// Smooth returns the circular moving average over 2*window+1 points.
func (p Profile) Smooth(window int) (Profile, error) {
	if window < 1 {
		return Profile{}, Invalidf("smoothing window %d must be positive", window)
	}
	n := len(p.values)
	out := make([]float64, n)
	width := float64(2*window + 1)
	for i := range p.values {
		sum := p.values[i]
		for k := 1; k <= window; k++ {
			sum += p.values[Wrap(i-k, n)] + p.values[Wrap(i+k, n)]
		}
		out[i] = sum / width
	}
	return fromOwned(out), nil
}

// Deltas returns, for each index, the summed stepwise change across the
// window points either side of it.
func (p Profile) Deltas(window int) (Profile, error) {
	if window < 1 {
		return Profile{}, Invalidf("delta window %d must be positive", window)
	}
	n := len(p.values)
	out := make([]float64, n)
	for i, v := range p.values {
		prev, next := v, v
		var delta float64
		for k := 1; k <= window; k++ {
			pk := p.values[Wrap(i-k, n)]
			nk := p.values[Wrap(i+k, n)]
			delta += (prev - pk) + (nk - next)
			prev, next = pk, nk
		}
		out[i] = delta
	}
	return fromOwned(out), nil
}

// Derivative returns the difference between each sample and its successor.
func (p Profile) Derivative() Profile {
	n := len(p.values)
	out := make([]float64, n)
	for i, v := range p.values {
		out[i] = v - p.values[Wrap(i+1, n)]
	}
	return fromOwned(out)
}

// LocalMinima flags every index whose window neighbours on each side rise
// strictly away from it.
func (p Profile) LocalMinima(window int) (Mask, error) {
	return p.extrema(window, func(outer, inner float64) bool { return outer > inner }, nil)
}

// LocalMinimaBelow is LocalMinima restricted to samples below threshold.
func (p Profile) LocalMinimaBelow(window int, threshold float64) (Mask, error) {
	return p.extrema(window, func(outer, inner float64) bool { return outer > inner },
		func(v float64) bool { return v < threshold })
}

// LocalMaxima flags every index whose window neighbours on each side fall
// strictly away from it.
func (p Profile) LocalMaxima(window int) (Mask, error) {
	return p.extrema(window, func(outer, inner float64) bool { return outer < inner }, nil)
}

// LocalMaximaAbove is LocalMaxima restricted to samples above threshold.
func (p Profile) LocalMaximaAbove(window int, threshold float64) (Mask, error) {
	return p.extrema(window, func(outer, inner float64) bool { return outer < inner },
		func(v float64) bool { return v > threshold })
}

func (p Profile) extrema(window int, diverges func(outer, inner float64) bool, accept func(float64) bool) (Mask, error) {
	if window < 1 {
		return Mask{}, Invalidf("extremum window %d must be positive", window)
	}
	n := len(p.values)
	out := make([]bool, n)
	for i, v := range p.values {
		if accept != nil && !accept(v) {
			continue
		}
		ok := true
		for k := 1; k <= window && ok; k++ {
			ok = diverges(p.values[Wrap(i-k, n)], p.values[Wrap(i-k+1, n)]) &&
				diverges(p.values[Wrap(i+k, n)], p.values[Wrap(i+k-1, n)])
		}
		out[i] = ok
	}
	return Mask{values: out}, nil
}

// Interpolate resamples the profile to length samples using piecewise-linear
// interpolation over the circular domain.
func (p Profile) Interpolate(length int) (Profile, error) {
	if length < MinimumLength {
		return Profile{}, Invalidf("cannot interpolate to length %d, minimum is %d", length, MinimumLength)
	}
	if length == len(p.values) {
		return p, nil
	}
	return fromOwned(interpolate(p.values, length)), nil
}

func interpolate(values []float64, length int) []float64 {
	n := len(values)
	ratio := float64(n) / float64(length)
	out := make([]float64, length)
	for i := range out {
		pos := float64(i) * ratio
		j0 := int(pos)
		if j0 >= n {
			j0 = n - 1
		}
		frac := pos - float64(j0)
		j1 := Wrap(j0+1, n)
		out[i] = values[j0] + (values[j1]-values[j0])*frac
	}
	return out
}

// BestFitOffset returns the rotation k in [0, Len) for which StartFrom(k)
// most closely matches other.
func (p Profile) BestFitOffset(other Profile) (int, error) {
	return p.BestFitOffsetRange(other, 0, len(p.values))
}

// BestFitOffsetRange returns the rotation k in [from, to) minimising the sum of
// squared differences between StartFrom(k) and other. other is interpolated
// to this profile's length first when the lengths differ. Ties keep the
// lowest k.
func (p Profile) BestFitOffsetRange(other Profile, from, to int) (int, error) {
	if from >= to {
		return 0, Invalidf("offset range [%d,%d) is empty", from, to)
	}
	if other.IsEmpty() {
		return 0, Invalidf("cannot fit against an empty profile")
	}
	target, err := other.resampledTo(len(p.values))
	if err != nil {
		return 0, err
	}
	n := len(p.values)
	best, bestScore := from, math.Inf(1)
	for k := from; k < to; k++ {
		var score float64
		for i, t := range target {
			d := p.values[Wrap(i+k, n)] - t
			score += d * d
		}
		if score < bestScore {
			best, bestScore = k, score
		}
	}
	return best, nil
}

func (p Profile) resampledTo(length int) ([]float64, error) {
	if len(p.values) == length {
		return p.values, nil
	}
	if length < MinimumLength {
		return nil, Invalidf("cannot interpolate to length %d, minimum is %d", length, MinimumLength)
	}
	return interpolate(p.values, length), nil
}

// SquareDifference returns the sum of squared differences to other, first
// stretching the shorter profile to the longer length.
func (p Profile) SquareDifference(other Profile) (float64, error) {
	length := len(p.values)
	if other.Len() > length {
		length = other.Len()
	}
	return p.SquareDifferenceAt(other, length)
}

// SquareDifferenceAt returns the sum of squared differences after resampling
// both profiles to length.
func (p Profile) SquareDifferenceAt(other Profile, length int) (float64, error) {
	if other.IsEmpty() {
		return 0, Invalidf("cannot compare against an empty profile")
	}
	a, err := p.resampledTo(length)
	if err != nil {
		return 0, err
	}
	b, err := other.resampledTo(length)
	if err != nil {
		return 0, err
	}
	diff := make([]float64, length)
	floats.SubTo(diff, a, b)
	return floats.Dot(diff, diff), nil
}

// Subregion returns the samples from start to end inclusive, wrapping past
// the last index when end <= start.
func (p Profile) Subregion(start, end int) (Profile, error) {
	n := len(p.values)
	if start < 0 || end < 0 || start >= n || end >= n {
		return Profile{}, Invalidf("subregion [%d,%d] outside profile of length %d", start, end, n)
	}
	if start < end {
		out := make([]float64, end-start+1)
		copy(out, p.values[start:end+1])
		return fromOwned(out), nil
	}
	out := make([]float64, 0, n-start+end+1)
	out = append(out, p.values[start:]...)
	out = append(out, p.values[:end+1]...)
	return fromOwned(out), nil
}

// Window returns the 2*window+1 samples centred on index.
func (p Profile) Window(index, window int) (Profile, error) {
	if window < 0 {
		return Profile{}, Invalidf("window %d must not be negative", window)
	}
	out := make([]float64, 2*window+1)
	for k := -window; k <= window; k++ {
		out[k+window] = p.AtWrapped(index + k)
	}
	return fromOwned(out), nil
}

// StartFrom returns the profile rotated so that index becomes index 0.
func (p Profile) StartFrom(index int) Profile {
	n := len(p.values)
	j := Wrap(index, n)
	out := make([]float64, 0, n)
	out = append(out, p.values[j:]...)
	out = append(out, p.values[:j]...)
	return fromOwned(out)
}

// Reversed returns the profile with sample order inverted.
func (p Profile) Reversed() Profile {
	n := len(p.values)
	out := make([]float64, n)
	for i, v := range p.values {
		out[n-1-i] = v
	}
	return fromOwned(out)
}

// Absolute returns the absolute value of each sample.
func (p Profile) Absolute() Profile {
	return p.apply(math.Abs)
}

// PowerOf raises each sample to exponent.
func (p Profile) PowerOf(exponent float64) (Profile, error) {
	if err := checkScalar(exponent); err != nil {
		return Profile{}, err
	}
	return p.apply(func(v float64) float64 { return math.Pow(v, exponent) }), nil
}

func (p Profile) apply(fn func(float64) float64) Profile {
	out := make([]float64, len(p.values))
	for i, v := range p.values {
		out[i] = fn(v)
	}
	return fromOwned(out)
}

func checkScalar(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Invalidf("scalar operand %v is not finite", v)
	}
	return nil
}

func (p Profile) checkSameLength(other Profile) error {
	if len(p.values) != len(other.values) {
		return Invalidf("profile lengths differ: %d and %d", len(p.values), len(other.values))
	}
	return nil
}

// AddScalar adds v to each sample.
func (p Profile) AddScalar(v float64) (Profile, error) {
	if err := checkScalar(v); err != nil {
		return Profile{}, err
	}
	out := p.Values()
	floats.AddConst(v, out)
	return fromOwned(out), nil
}

// SubtractScalar subtracts v from each sample.
func (p Profile) SubtractScalar(v float64) (Profile, error) {
	if err := checkScalar(v); err != nil {
		return Profile{}, err
	}
	return p.AddScalar(-v)
}

// MultiplyScalar multiplies each sample by v.
func (p Profile) MultiplyScalar(v float64) (Profile, error) {
	if err := checkScalar(v); err != nil {
		return Profile{}, err
	}
	out := p.Values()
	floats.Scale(v, out)
	return fromOwned(out), nil
}

// DivideScalar divides each sample by v.
func (p Profile) DivideScalar(v float64) (Profile, error) {
	if err := checkScalar(v); err != nil {
		return Profile{}, err
	}
	if v == 0 {
		return Profile{}, Invalidf("division by zero")
	}
	return p.apply(func(x float64) float64 { return x / v }), nil
}

// Add returns the element-wise sum of both profiles.
func (p Profile) Add(other Profile) (Profile, error) {
	if err := p.checkSameLength(other); err != nil {
		return Profile{}, err
	}
	out := make([]float64, len(p.values))
	floats.AddTo(out, p.values, other.values)
	return fromOwned(out), nil
}

// Subtract returns the element-wise difference p - other.
func (p Profile) Subtract(other Profile) (Profile, error) {
	if err := p.checkSameLength(other); err != nil {
		return Profile{}, err
	}
	out := make([]float64, len(p.values))
	floats.SubTo(out, p.values, other.values)
	return fromOwned(out), nil
}

// Multiply returns the element-wise product of both profiles.
func (p Profile) Multiply(other Profile) (Profile, error) {
	if err := p.checkSameLength(other); err != nil {
		return Profile{}, err
	}
	out := make([]float64, len(p.values))
	floats.MulTo(out, p.values, other.values)
	return fromOwned(out), nil
}

// Divide returns the element-wise quotient p / other.
func (p Profile) Divide(other Profile) (Profile, error) {
	if err := p.checkSameLength(other); err != nil {
		return Profile{}, err
	}
	out := make([]float64, len(p.values))
	floats.DivTo(out, p.values, other.values)
	return fromOwned(out), nil
}

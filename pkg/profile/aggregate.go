package profile

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Aggregate collects many profiles resampled to a common length and reports
// per-position statistics across them.
type Aggregate struct {
	length   int
	capacity int
	// columns[i] holds every sample seen at position i
	columns [][]float64
	count   int
}

// NewAggregate creates an aggregate of profiles resampled to length, holding
// at most capacity profiles.
func NewAggregate(length, capacity int) (*Aggregate, error) {
	if length < MinimumLength {
		return nil, Invalidf("aggregate length %d below minimum %d", length, MinimumLength)
	}
	if capacity < 1 {
		return nil, Invalidf("aggregate capacity %d must be positive", capacity)
	}
	cols := make([][]float64, length)
	for i := range cols {
		cols[i] = make([]float64, 0, capacity)
	}
	return &Aggregate{length: length, capacity: capacity, columns: cols}, nil
}

// Len returns the common profile length.
func (a *Aggregate) Len() int { return a.length }

// Count returns the number of profiles added.
func (a *Aggregate) Count() int { return a.count }

// Capacity returns the maximum number of profiles.
func (a *Aggregate) Capacity() int { return a.capacity }

// Add resamples p to the aggregate length and stores it.
func (a *Aggregate) Add(p Profile) error {
	if a.count >= a.capacity {
		return Invalidf("aggregate is full at %d profiles", a.capacity)
	}
	if p.IsEmpty() {
		return Invalidf("cannot aggregate an empty profile")
	}
	values, err := p.resampledTo(a.length)
	if err != nil {
		return err
	}
	for i, v := range values {
		a.columns[i] = append(a.columns[i], v)
	}
	a.count++
	return nil
}

// Quartile returns, at each position, the q-th percentile (0-100) of the
// stored samples.
func (a *Aggregate) Quartile(q float64) (Profile, error) {
	if q < 0 || q > 100 {
		return Profile{}, Invalidf("percentile %v outside [0,100]", q)
	}
	if a.count == 0 {
		return Profile{}, NotFoundf("aggregate holds no profiles")
	}
	out := make([]float64, a.length)
	sorted := make([]float64, a.count)
	for i, col := range a.columns {
		copy(sorted, col)
		sort.Float64s(sorted)
		out[i] = stat.Quantile(q/100, stat.Empirical, sorted, nil)
	}
	return fromOwned(out), nil
}

// Median returns the 50th percentile profile.
func (a *Aggregate) Median() (Profile, error) {
	return a.Quartile(50)
}

// Mean returns the per-position mean profile.
func (a *Aggregate) Mean() (Profile, error) {
	if a.count == 0 {
		return Profile{}, NotFoundf("aggregate holds no profiles")
	}
	out := make([]float64, a.length)
	for i, col := range a.columns {
		out[i] = stat.Mean(col, nil)
	}
	return fromOwned(out), nil
}

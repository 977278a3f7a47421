package segment

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"morphoprofile/pkg/profile"
)

// threeSegmentRing returns [0,30] [30,70] [70,0] over 100 indexes
func threeSegmentRing(t *testing.T) *Ring {
	t.Helper()
	r, err := NewRing([]Segment{
		mustSegment(t, 0, 30, 100),
		mustSegment(t, 30, 70, 100),
		mustSegment(t, 70, 0, 100),
	})
	require.NoError(t, err)
	return r
}

func bounds(r *Ring) [][2]int {
	out := make([][2]int, r.Len())
	for i, s := range r.Segments() {
		out[i] = [2]int{s.Start(), s.End()}
	}
	return out
}

func TestNewRing(t *testing.T) {
	r := threeSegmentRing(t)
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, 100, r.TotalLength())
	assert.Equal(t, 0, r.Next(2))
	assert.Equal(t, 2, r.Prev(0))
	assert.Equal(t, "Seg_1", r.At(1).Name())

	_, err := NewRing(nil)
	assert.ErrorIs(t, err, profile.ErrInvalidArgument)

	_, err = NewRing([]Segment{mustSegment(t, 0, 30, 100), mustSegment(t, 40, 0, 100)})
	assert.ErrorIs(t, err, profile.ErrInvalidArgument, "gap")

	a := mustSegment(t, 0, 50, 100)
	dup, _ := New(a.ID(), 50, 0, 100)
	_, err = NewRing([]Segment{a, dup})
	assert.ErrorIs(t, err, profile.ErrInvalidArgument, "duplicate ids")

	_, err = NewRing([]Segment{mustSegment(t, 10, 40, 100)})
	assert.ErrorIs(t, err, profile.ErrInvalidArgument, "lone partial segment")

	d, _ := NewDefault(100)
	_, err = NewRing([]Segment{d})
	assert.NoError(t, err)
}

func TestUpdateMovesNeighbour(t *testing.T) {
	r := threeSegmentRing(t)

	require.NoError(t, r.Update(0, 0, 35))
	assert.Equal(t, [][2]int{{0, 35}, {35, 70}, {70, 0}}, bounds(r))

	require.NoError(t, r.Update(0, 5, 35))
	assert.Equal(t, [][2]int{{5, 35}, {35, 70}, {70, 5}}, bounds(r))

	require.NoError(t, r.Update(0, 95, 35))
	assert.Equal(t, [][2]int{{95, 35}, {35, 70}, {70, 95}}, bounds(r))
}

func TestUpdateTwoSegmentRing(t *testing.T) {
	r, err := NewRing([]Segment{mustSegment(t, 0, 50, 100), mustSegment(t, 50, 0, 100)})
	require.NoError(t, err)

	require.NoError(t, r.Update(0, 10, 60))
	assert.Equal(t, [][2]int{{10, 60}, {60, 10}}, bounds(r))
}

func TestUpdateIsAtomic(t *testing.T) {
	r := threeSegmentRing(t)
	before := bounds(r)

	tests := []struct {
		name       string
		i          int
		start, end int
	}{
		{"neighbour too short", 0, 0, 65},
		{"self too short", 1, 30, 35},
		{"out of range", 1, 30, 100},
		{"jumps past neighbour", 1, 30, 5},
		{"start beyond previous", 1, 80, 90},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Update(tt.i, tt.start, tt.end)
			require.Error(t, err)
			assert.ErrorIs(t, err, profile.ErrSegmentUpdate)
			assert.Equal(t, before, bounds(r))
		})
	}

	var ue *UpdateError
	err := r.Update(0, 0, 65)
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, r.At(0).ID(), ue.ID)
	assert.NotEmpty(t, ue.Reason)
}

func TestUpdateRespectsLocks(t *testing.T) {
	r := threeSegmentRing(t)
	r.SetLocked(0, true)
	before := bounds(r)

	tests := []struct {
		name       string
		i          int
		start, end int
	}{
		{"own start", 0, 95, 30},
		{"own end", 0, 0, 35},
		{"next segment moves the end", 1, 40, 70},
		{"previous segment moves the start", 2, 70, 95},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Update(tt.i, tt.start, tt.end)
			assert.ErrorIs(t, err, profile.ErrSegmentUpdate)
			var ue *UpdateError
			require.ErrorAs(t, err, &ue)
			assert.Equal(t, r.At(0).ID(), ue.ID, "refused by the locked segment")
			assert.Equal(t, before, bounds(r))
		})
	}

	require.NoError(t, r.Update(0, 0, 30), "a no-op is accepted")
	require.NoError(t, r.Update(1, 30, 75), "segments clear of the lock still move")
	assert.Equal(t, 75, r.At(2).Start())

	r.SetLocked(0, false)
	require.NoError(t, r.Update(1, 35, 75))
	assert.Equal(t, [2]int{0, 35}, bounds(r)[0])
}

func TestUpdateNudgesMergeSources(t *testing.T) {
	parent := mustSegment(t, 0, 60, 100)
	a := mustSegment(t, 0, 30, 100)
	b := mustSegment(t, 30, 60, 100)
	require.NoError(t, parent.AddMergeSource(a))
	require.NoError(t, parent.AddMergeSource(b))

	r, err := NewRing([]Segment{parent, mustSegment(t, 60, 0, 100)})
	require.NoError(t, err)

	require.NoError(t, r.Update(0, 5, 65))
	srcs := r.At(0).MergeSources()
	assert.Equal(t, 5, srcs[0].Start())
	assert.Equal(t, 30, srcs[0].End())
	assert.Equal(t, 30, srcs[1].Start())
	assert.Equal(t, 65, srcs[1].End())

	err = r.Update(0, 25, 65)
	assert.ErrorIs(t, err, profile.ErrSegmentUpdate, "first source would become too short")
	assert.Equal(t, 5, r.At(0).Start())
}

func TestUpdateLoneSegment(t *testing.T) {
	s, _ := New(uuid.New(), 0, 0, 50)
	r, err := NewRing([]Segment{s})
	require.NoError(t, err)

	require.NoError(t, r.Update(0, 7, 7))
	assert.Equal(t, [][2]int{{7, 7}}, bounds(r))
	assert.Error(t, r.Update(0, 7, 20))

	_, err = NewRing([]Segment{s, s})
	assert.Error(t, err)
}

func TestUpdateLoneMergedSegment(t *testing.T) {
	whole := mustSegment(t, 0, 0, 100)
	require.NoError(t, whole.AddMergeSource(mustSegment(t, 0, 40, 100)))
	require.NoError(t, whole.AddMergeSource(mustSegment(t, 40, 0, 100)))
	r, err := NewRing([]Segment{whole})
	require.NoError(t, err)

	sourceBounds := func() [][2]int {
		var out [][2]int
		for _, src := range r.At(0).MergeSources() {
			out = append(out, [2]int{src.Start(), src.End()})
		}
		return out
	}

	require.NoError(t, r.Update(0, 7, 7))
	assert.Equal(t, [][2]int{{7, 40}, {40, 7}}, sourceBounds())

	require.NoError(t, r.Update(0, 50, 50), "the boundary can cross into the last source")
	assert.Equal(t, [][2]int{{50, 40}, {40, 50}}, sourceBounds())

	err = r.Update(0, 45, 45)
	assert.ErrorIs(t, err, profile.ErrSegmentUpdate, "last source would be too short")
	assert.Equal(t, [][2]int{{50, 40}, {40, 50}}, sourceBounds())
}

package segment

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"morphoprofile/pkg/profile"
)

func mustSegment(t *testing.T, start, end, total int) Segment {
	t.Helper()
	s, err := New(uuid.New(), start, end, total)
	require.NoError(t, err)
	return s
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name       string
		id         uuid.UUID
		start, end int
		total      int
	}{
		{"too short", uuid.New(), 0, 5, 100},
		{"negative start", uuid.New(), -1, 20, 100},
		{"end past profile", uuid.New(), 0, 100, 100},
		{"too long", uuid.New(), 0, 95, 100},
		{"partial default", DefaultID, 0, 50, 100},
		{"tiny profile", uuid.New(), 0, 0, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.id, tt.start, tt.end, tt.total)
			assert.ErrorIs(t, err, profile.ErrInvalidArgument)
		})
	}

	_, err := New(uuid.New(), 0, 91, 100)
	assert.NoError(t, err, "longest partial arc")
	_, err = NewDefault(100)
	assert.NoError(t, err)
}

func TestLengthAndWrapping(t *testing.T) {
	a := mustSegment(t, 0, 40, 100)
	b := mustSegment(t, 40, 0, 100)

	assert.False(t, a.Wraps())
	assert.True(t, b.Wraps())
	assert.Equal(t, 41, a.Length())
	assert.Equal(t, 61, b.Length())
	assert.Equal(t, 102, a.Length()+b.Length())

	d, err := NewDefault(100)
	require.NoError(t, err)
	assert.Equal(t, 101, d.Length())
	assert.True(t, d.IsDefault())
}

func TestContains(t *testing.T) {
	s := mustSegment(t, 90, 10, 100)
	for _, i := range []int{90, 95, 99, 0, 5, 10} {
		assert.True(t, s.Contains(i), "index %d", i)
	}
	for _, i := range []int{11, 50, 89, -1, 100} {
		assert.False(t, s.Contains(i), "index %d", i)
	}
	assert.True(t, s.ContainsInterior(0))
	assert.False(t, s.ContainsInterior(90))
	assert.False(t, s.ContainsInterior(10))
}

func TestOverlaps(t *testing.T) {
	a := mustSegment(t, 0, 30, 100)
	b := mustSegment(t, 30, 70, 100)
	c := mustSegment(t, 20, 50, 100)

	assert.True(t, a.Overlaps(b))
	assert.False(t, a.OverlapsBeyondEndpoints(b))
	assert.True(t, a.OverlapsBeyondEndpoints(c))
	assert.True(t, b.OverlapsBeyondEndpoints(c))
}

func TestIndexHelpers(t *testing.T) {
	s := mustSegment(t, 95, 14, 100)

	assert.Equal(t, 20, s.Length())
	assert.Equal(t, 4, s.MidpointIndex())
	assert.Equal(t, []int{95, 96, 97, 98, 99, 0, 1}, s.Indexes()[:7])

	i, err := s.ProportionalIndex(0.5)
	require.NoError(t, err)
	assert.Equal(t, 4, i)

	p, err := s.IndexProportion(14)
	require.NoError(t, err)
	assert.Equal(t, 1.0, p)

	_, err = s.IndexProportion(50)
	assert.ErrorIs(t, err, profile.ErrInvalidArgument)

	assert.Equal(t, 5, s.ShortestDistanceToStart(0))
	assert.Equal(t, 4, s.ShortestDistanceToEnd(10))
	assert.Equal(t, 6, s.InternalDistanceToStart(1))
}

func TestReverseAndOffset(t *testing.T) {
	s := mustSegment(t, 10, 30, 100)
	s.SetLocked(true)

	r := s.Reverse()
	assert.Equal(t, s.ID(), r.ID())
	assert.Equal(t, 69, r.Start())
	assert.Equal(t, 89, r.End())

	w := mustSegment(t, 90, 10, 100)
	o := w.Offset(20)
	assert.Equal(t, 10, o.Start())
	assert.Equal(t, 30, o.End())

	o = s.Offset(-15)
	assert.Equal(t, 95, o.Start())
	assert.Equal(t, 15, o.End())
	assert.True(t, o.Locked())
}

func TestMergeSources(t *testing.T) {
	parent := mustSegment(t, 0, 60, 100)
	a := mustSegment(t, 0, 30, 100)
	b := mustSegment(t, 30, 60, 100)

	require.NoError(t, parent.AddMergeSource(a))
	require.NoError(t, parent.AddMergeSource(b))
	assert.True(t, parent.HasMergeSources())
	assert.True(t, parent.HasMergeSource(b.ID()))
	assert.True(t, parent.HasMergeSource(parent.ID()))

	got, err := parent.MergeSource(a.ID())
	require.NoError(t, err)
	assert.True(t, got.Equal(a))

	_, err = parent.MergeSource(uuid.New())
	assert.ErrorIs(t, err, profile.ErrNotFound)

	t.Run("rejections", func(t *testing.T) {
		p := mustSegment(t, 0, 60, 100)
		assert.ErrorIs(t, p.AddMergeSource(mustSegment(t, 50, 80, 100)), profile.ErrInvalidArgument)
		assert.ErrorIs(t, p.AddMergeSource(mustSegment(t, 0, 30, 200)), profile.ErrInvalidArgument)

		same, _ := New(p.ID(), 0, 30, 100)
		assert.ErrorIs(t, p.AddMergeSource(same), profile.ErrInvalidArgument)

		require.NoError(t, p.AddMergeSource(a))
		assert.ErrorIs(t, p.AddMergeSource(a), profile.ErrInvalidArgument)
		require.NoError(t, p.AddMergeSource(b))
		assert.ErrorIs(t, p.AddMergeSource(mustSegment(t, 10, 40, 100)), profile.ErrInvalidArgument)
	})

	t.Run("nested lookup", func(t *testing.T) {
		outer := mustSegment(t, 0, 80, 100)
		require.NoError(t, outer.AddMergeSource(parent))
		require.NoError(t, outer.AddMergeSource(mustSegment(t, 60, 80, 100)))
		assert.True(t, outer.HasMergeSource(a.ID()))
	})

	t.Run("copies are independent", func(t *testing.T) {
		srcs := parent.MergeSources()
		srcs[0].SetLocked(true)
		again := parent.MergeSources()
		assert.False(t, again[0].Locked())
	})

	parent.ClearMergeSources()
	assert.False(t, parent.HasMergeSources())
}

func TestRecordRoundTrip(t *testing.T) {
	parent := mustSegment(t, 90, 40, 100)
	parent.SetLocked(true)
	require.NoError(t, parent.AddMergeSource(mustSegment(t, 90, 10, 100)))
	require.NoError(t, parent.AddMergeSource(mustSegment(t, 10, 40, 100)))

	out, err := yaml.Marshal(parent)
	require.NoError(t, err)

	var back Segment
	require.NoError(t, yaml.Unmarshal(out, &back))
	if diff := cmp.Diff(parent.Record(), back.Record()); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}

	bad := parent.Record()
	bad.End = 95
	_, err = FromRecord(bad)
	assert.Error(t, err)
}

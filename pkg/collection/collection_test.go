package collection_test

import (
	"fmt"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"morphoprofile/internal/models"
	"morphoprofile/pkg/collection"
	"morphoprofile/pkg/profile"
	"morphoprofile/pkg/segment"
)

// shape samples an asymmetric outline at fraction x of the way round from
// the reference point.
func shape(x float64) (angle, radius, diameter float64) {
	angle = 180 + 50*math.Cos(2*math.Pi*x) + 20*math.Sin(4*math.Pi*x)
	radius = 10 + 2*math.Cos(2*math.Pi*x)
	diameter = 20 + 3*math.Sin(4*math.Pi*x)
	return
}

// newNucleus builds a nucleus of length points whose reference point sits
// at raw index rp.
func newNucleus(t *testing.T, name string, length, rp int) *models.Nucleus {
	t.Helper()
	ang := make([]float64, length)
	rad := make([]float64, length)
	dia := make([]float64, length)
	for j := range ang {
		x := float64(j-rp) / float64(length)
		ang[j], rad[j], dia[j] = shape(x)
	}
	profiles := map[profile.Type]profile.Profile{}
	for typ, v := range map[profile.Type][]float64{profile.Angle: ang, profile.Radius: rad, profile.Diameter: dia} {
		p, err := profile.New(v)
		require.NoError(t, err)
		profiles[typ] = p
	}
	n, err := models.NewNucleus(uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)), name, profiles, rp)
	require.NoError(t, err)
	return n
}

type fixture struct {
	mgr    *collection.Manager
	nuclei []*models.Nucleus
	ids    []uuid.UUID
}

// newFixture builds a calculated collection of three nuclei of lengths
// 100, 104 and 96, segmented at 0, 25, 50 and 75 of the consensus.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, []int{100, 104, 96}, []int{7, 0, 40})
}

func newFixtureWith(t *testing.T, lengths, rps []int) *fixture {
	t.Helper()
	f := &fixture{}
	var members []collection.Member
	for i := range lengths {
		n := newNucleus(t, fmt.Sprintf("n%d_%d", i, lengths[i]), lengths[i], rps[i])
		f.nuclei = append(f.nuclei, n)
		members = append(members, n)
	}
	mgr, err := collection.NewManager(members, 2)
	require.NoError(t, err)
	require.NoError(t, mgr.CalculateProfiles())
	f.mgr = mgr

	length := mgr.Collection().Length()
	starts := []int{0, 25, 50, 75}
	segs := make([]segment.Segment, len(starts))
	for i, s := range starts {
		id := uuid.New()
		seg, err := segment.New(id, s*length/100, starts[(i+1)%len(starts)]*length/100, length)
		require.NoError(t, err)
		segs[i] = seg
		f.ids = append(f.ids, id)
	}
	require.NoError(t, mgr.Collection().SetSegments(segs))
	require.NoError(t, mgr.AssignSegmentsToMembers())
	return f
}

func expectedAngles(t *testing.T, length, offset int) profile.Profile {
	t.Helper()
	v := make([]float64, length)
	for j := range v {
		v[j], _, _ = shape(float64(j+offset) / float64(length))
	}
	p, err := profile.New(v)
	require.NoError(t, err)
	return p
}

func TestCalculateProfiles(t *testing.T) {
	f := newFixture(t)
	pc := f.mgr.Collection()
	assert.Equal(t, 100, pc.Length())
	assert.Equal(t, 100, f.mgr.MedianLength())

	median, err := pc.Profile(profile.Angle, collection.ReferencePoint, collection.Median)
	require.NoError(t, err)
	assert.True(t, median.EqualApprox(expectedAngles(t, 100, 0), 0.5), "median %v", median)

	for _, q := range []float64{25, 75} {
		p, err := pc.Profile(profile.Radius, collection.ReferencePoint, q)
		require.NoError(t, err)
		assert.Equal(t, 100, p.Len())
	}
	_, err = pc.Profile(profile.Angle, collection.OrientationPoint, collection.Median)
	assert.ErrorIs(t, err, profile.ErrNotFound)
}

func TestCalculateProfilesMissingType(t *testing.T) {
	p, err := profile.New(make([]float64, 50))
	require.NoError(t, err)
	n, err := models.NewNucleus(uuid.New(), "angle only", map[profile.Type]profile.Profile{profile.Angle: p}, 0)
	require.NoError(t, err)

	mgr, err := collection.NewManager([]collection.Member{n}, 1)
	require.NoError(t, err)
	assert.ErrorIs(t, mgr.CalculateProfiles(), profile.ErrNotFound)
	assert.False(t, mgr.Collection().IsCalculated())
}

func TestNewManagerRejects(t *testing.T) {
	_, err := collection.NewManager(nil, 1)
	assert.ErrorIs(t, err, profile.ErrInvalidArgument)

	n := newNucleus(t, "dup", 50, 0)
	_, err = collection.NewManager([]collection.Member{n, n}, 1)
	assert.ErrorIs(t, err, profile.ErrInvalidArgument)
}

func TestLandmarks(t *testing.T) {
	f := newFixture(t)
	pc := f.mgr.Collection()

	assert.Error(t, pc.SetLandmark(collection.ReferencePoint, 5))
	assert.NoError(t, pc.SetLandmark(collection.ReferencePoint, 0))
	assert.Error(t, pc.SetLandmark(collection.OrientationPoint, 100))
	require.NoError(t, pc.SetLandmark(collection.OrientationPoint, 30))
	assert.Equal(t, []collection.Landmark{collection.OrientationPoint, collection.ReferencePoint}, pc.Landmarks())

	rp, err := pc.Profile(profile.Angle, collection.ReferencePoint, collection.Median)
	require.NoError(t, err)
	op, err := pc.Profile(profile.Angle, collection.OrientationPoint, collection.Median)
	require.NoError(t, err)
	assert.True(t, op.Equal(rp.StartFrom(30)))

	segs, err := pc.Segments(collection.OrientationPoint)
	require.NoError(t, err)
	assert.Equal(t, 95, segs[1].Start(), "segment at 25 seen from 30")

	sp, err := pc.SegmentedProfile(profile.Angle, collection.OrientationPoint, collection.Median)
	require.NoError(t, err)
	assert.Equal(t, 4, sp.SegmentCount())
}

func TestParseLandmark(t *testing.T) {
	tests := []struct {
		in   string
		want collection.Landmark
	}{
		{"RP", collection.ReferencePoint},
		{" op ", collection.OrientationPoint},
		{"rp", collection.ReferencePoint},
	}
	for _, tt := range tests {
		got, err := collection.ParseLandmark(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
	_, err := collection.ParseLandmark("tail")
	assert.ErrorIs(t, err, profile.ErrInvalidArgument)
	assert.ErrorContains(t, err, `"tail"`)
}

func TestProportions(t *testing.T) {
	f := newFixture(t)
	pc := f.mgr.Collection()

	tests := []struct {
		index int
		want  float64
	}{
		{0, 0},
		{99, 1},
		{33, 1.0 / 3},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.index), func(t *testing.T) {
			got, err := pc.ProportionOfIndex(tt.index)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
	_, err := pc.ProportionOfIndex(100)
	assert.Error(t, err)

	idx, err := pc.IndexOfProportion(1)
	require.NoError(t, err)
	assert.Equal(t, 99, idx)
	idx, err = pc.IndexOfProportion(0.305)
	require.NoError(t, err)
	assert.Equal(t, 30, idx)
	_, err = pc.IndexOfProportion(1.5)
	assert.ErrorIs(t, err, profile.ErrInvalidArgument)
}

func TestAssignSegmentsToMembers(t *testing.T) {
	f := newFixture(t)
	for _, n := range f.nuclei {
		sp, err := n.Profile(profile.Angle, collection.ReferencePoint)
		require.NoError(t, err)
		assert.Equal(t, f.ids, sp.SegmentIDs(), n.Name())
		assert.Equal(t, 0, sp.Segments()[0].Start())
	}
	sp, err := f.nuclei[1].Profile(profile.Angle, collection.ReferencePoint)
	require.NoError(t, err)
	second, _ := sp.Segment(f.ids[1])
	assert.Equal(t, 26, second.Start(), "25% of 104")

	// raw space keeps the member's own reference point
	raw := f.nuclei[0].Segments()
	assert.Equal(t, 7, raw[0].Start())
}

func TestAssignSkipsLockedMembers(t *testing.T) {
	f := newFixture(t)
	locked := f.nuclei[2]
	locked.SetLocked(true)
	before := locked.Segments()

	merged := uuid.New()
	pc := f.mgr.Collection()
	segs, err := pc.Segments(collection.ReferencePoint)
	require.NoError(t, err)
	whole, err := segment.New(merged, 0, 50, pc.Length())
	require.NoError(t, err)
	require.NoError(t, pc.SetSegments([]segment.Segment{whole, segs[2], segs[3]}))
	require.NoError(t, f.mgr.AssignSegmentsToMembers())

	assert.Equal(t, before, locked.Segments())
	sp, err := f.nuclei[0].Profile(profile.Angle, collection.ReferencePoint)
	require.NoError(t, err)
	assert.Equal(t, 3, sp.SegmentCount())
}

func TestSegmentsAtNewLength(t *testing.T) {
	f := newFixture(t)
	pc := f.mgr.Collection()
	require.NoError(t, pc.SetLandmark(collection.OrientationPoint, 50))

	require.NoError(t, pc.CalculateProfiles(f.mgr.Members(), 200))
	assert.Equal(t, 200, pc.Length())
	assert.Equal(t, f.ids, pc.SegmentIDs())
	segs, err := pc.Segments(collection.ReferencePoint)
	require.NoError(t, err)
	assert.Equal(t, 50, segs[1].Start())
	op, err := pc.Landmark(collection.OrientationPoint)
	require.NoError(t, err)
	assert.Equal(t, 100, op)
}

func TestSetSegmentsRejectsWrongLength(t *testing.T) {
	f := newFixture(t)
	s, err := segment.NewDefault(50)
	require.NoError(t, err)
	assert.ErrorIs(t, f.mgr.Collection().SetSegments([]segment.Segment{s}), profile.ErrInvalidArgument)
	assert.ErrorIs(t, f.mgr.Collection().SetSegments(nil), profile.ErrInvalidArgument)
	assert.Equal(t, 4, f.mgr.SegmentCount())
}

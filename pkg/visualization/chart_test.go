package visualization

import (
	"bytes"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"morphoprofile/pkg/profile"
	"morphoprofile/pkg/segment"
)

func wave(t *testing.T, offset float64) profile.Profile {
	t.Helper()
	v := make([]float64, 60)
	for i := range v {
		v[i] = 180 + offset + 40*math.Sin(2*math.Pi*float64(i)/60)
	}
	p, err := profile.New(v)
	require.NoError(t, err)
	return p
}

func segments(t *testing.T) []segment.Segment {
	t.Helper()
	a, err := segment.New(uuid.New(), 0, 30, 60)
	require.NoError(t, err)
	b, err := segment.New(uuid.New(), 30, 0, 60)
	require.NoError(t, err)
	return []segment.Segment{a, b}
}

func TestPlot(t *testing.T) {
	c := NewProfileChart("angle", wave(t, 0), wave(t, -5), wave(t, 5), segments(t))
	p, err := c.Plot()
	require.NoError(t, err)
	assert.Equal(t, "angle", p.Title.Text)
	assert.Equal(t, 59.0, p.X.Max)
}

func TestPlotRejects(t *testing.T) {
	_, err := NewProfileChart("empty", profile.Profile{}, profile.Profile{}, profile.Profile{}, nil).Plot()
	assert.ErrorIs(t, err, profile.ErrInvalidArgument)

	short, err := profile.Constant(1, 10)
	require.NoError(t, err)
	_, err = NewProfileChart("mismatch", wave(t, 0), short, wave(t, 5), nil).Plot()
	assert.ErrorIs(t, err, profile.ErrInvalidArgument)
}

func TestRenderPNG(t *testing.T) {
	c := NewProfileChart("median only", wave(t, 0), profile.Profile{}, profile.Profile{}, nil)
	var buf bytes.Buffer
	require.NoError(t, c.Render(&buf, 8, 5, "png"))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Positive(t, img.Bounds().Dx())
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "charts", "angle.png")
	c := NewProfileChart("angle", wave(t, 0), wave(t, -5), wave(t, 5), segments(t))
	require.NoError(t, c.Save(path, 10, 6))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	assert.Error(t, c.Save(filepath.Join(t.TempDir(), "angle.unknown"), 10, 6))
}

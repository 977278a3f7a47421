package profile

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestTextRoundTripIsExact(t *testing.T) {
	p := mustProfile(t, 0.1, 1.0/3, -2.5e-9, 180, math.Pi)

	text, err := p.MarshalText()
	require.NoError(t, err)

	back, err := Parse(string(text))
	require.NoError(t, err)
	assert.True(t, back.Equal(p), "got %s", back)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse("[]")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = Parse("[1, two]")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestYAMLRoundTrip(t *testing.T) {
	type doc struct {
		Median Profile `yaml:"median"`
	}
	in := doc{Median: mustProfile(t, 1.5, 2, 170.25)}

	out, err := yaml.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(out), "[1.5, 2, 170.25]")

	var back doc
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.True(t, back.Median.Equal(in.Median))

	require.NoError(t, yaml.Unmarshal([]byte(`median: "[4, 5, 6]"`), &back))
	assert.Equal(t, []float64{4, 5, 6}, back.Median.Values())
}

func TestTypeText(t *testing.T) {
	for _, ty := range Types {
		parsed, err := ParseType(ty.String())
		require.NoError(t, err)
		assert.Equal(t, ty, parsed)
	}
	_, err := ParseType("perimeter")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

package render

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCubeDistributionBounds(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	pc, err := NewPointCloud(1000, Cube{Spread: 30}, rng)
	require.NoError(t, err)
	require.Equal(t, 1000, pc.Len())
	for _, p := range pc.Positions() {
		for _, c := range []float32{p.X, p.Y, p.Z} {
			assert.GreaterOrEqual(t, c, float32(-15))
			assert.LessOrEqual(t, c, float32(15))
		}
	}
}

func TestShellDistributionRadius(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	pc, err := NewPointCloud(500, Shell{Inner: 3, Outer: 5}, rng)
	require.NoError(t, err)
	for _, p := range pc.Positions() {
		l := p.Len()
		assert.GreaterOrEqual(t, l, float32(3)-1e-4)
		assert.LessOrEqual(t, l, float32(5)+1e-4)
	}
}

func TestRingDistribution(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	pc, err := NewPointCloud(50, Ring{Radius: 2, Jitter: 0.5}, rng)
	require.NoError(t, err)
	first := pc.Positions()[0]
	assert.InDelta(t, 2, first.X, 1e-6)
	assert.InDelta(t, 0, first.Y, 1e-6)
	for _, p := range pc.Positions() {
		assert.InDelta(t, 2, Vec3{X: p.X, Y: p.Y}.Len(), 1e-4)
		assert.LessOrEqual(t, p.Z, float32(0.25))
		assert.GreaterOrEqual(t, p.Z, float32(-0.25))
	}
}

func TestPointCloudRejectsBadInput(t *testing.T) {
	_, err := NewPointCloud(0, Cube{Spread: 1}, nil)
	assert.Error(t, err)
	_, err = NewPointCloud(3, nil, nil)
	assert.Error(t, err)
}

func TestDisposeTwiceReportsDisposed(t *testing.T) {
	pc, err := NewPointCloud(3, Cube{Spread: 1}, nil)
	require.NoError(t, err)
	require.NoError(t, pc.Dispose())
	assert.Zero(t, pc.Len())
	assert.ErrorIs(t, pc.Dispose(), ErrDisposed)

	m := &PointsMaterial{}
	require.NoError(t, m.Dispose())
	assert.ErrorIs(t, m.Dispose(), ErrDisposed)
}

func TestParseHex(t *testing.T) {
	c, err := ParseHex("#915eff")
	require.NoError(t, err)
	assert.Equal(t, "#915eff", c.Hex())

	c, err = ParseHex("0xFF1EFF")
	require.NoError(t, err)
	assert.Equal(t, "#ff1eff", c.Hex())

	_, err = ParseHex("#12")
	assert.Error(t, err)
	_, err = ParseHex("zzzzzz")
	assert.Error(t, err)
}

func TestParseBlending(t *testing.T) {
	b, err := ParseBlending("")
	require.NoError(t, err)
	assert.Equal(t, Normal, b)
	b, err = ParseBlending("Additive")
	require.NoError(t, err)
	assert.Equal(t, Additive, b)
	_, err = ParseBlending("multiply")
	assert.Error(t, err)
}

package geo

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const epsilon = 1e-9

func TestNormalizeLongitude(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"already canonical", 12.5, 12.5},
		{"zero", 0, 0},
		{"east of the seam", 190, -170},
		{"west of the seam", -200, 160},
		{"antimeridian east", 180, 180},
		{"antimeridian west", -180, 180},
		{"full turn", 360, 0},
		{"several world copies east", 539.9, 179.9},
		{"several world copies west", -899.5, -179.5},
		{"drag just past the seam", -180.05, 179.95},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, NormalizeLongitude(tt.in), epsilon)
		})
	}
}

func TestNormalizeLongitude_RangeAndIdempotence(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 10000; i++ {
		x := (rng.Float64() - 0.5) * 1e5
		once := NormalizeLongitude(x)
		if once <= -180 || once > 180 {
			t.Fatalf("NormalizeLongitude(%v) = %v, outside (-180, 180]", x, once)
		}
		twice := NormalizeLongitude(once)
		if math.Abs(twice-once) > epsilon && math.Abs(math.Abs(twice-once)-360) > epsilon {
			t.Fatalf("NormalizeLongitude not idempotent for %v: %v then %v", x, once, twice)
		}
	}
}

func TestNormalizeLongitude_NonFinite(t *testing.T) {
	assert.True(t, math.IsNaN(NormalizeLongitude(math.NaN())))
	assert.True(t, math.IsNaN(NormalizeLongitude(math.Inf(1))))
	assert.True(t, math.IsNaN(NormalizeLongitude(math.Inf(-1))))
}

func TestIsValidCoordinate(t *testing.T) {
	assert.True(t, IsValidCoordinate(48.85, 2.35))
	assert.True(t, IsValidCoordinate(120, 720), "range is not enforced")
	assert.False(t, IsValidCoordinate(math.NaN(), 0))
	assert.False(t, IsValidCoordinate(0, math.NaN()))
	assert.False(t, IsValidCoordinate(math.Inf(1), 0))
	assert.False(t, IsValidCoordinate(0, math.Inf(-1)))
}

func TestNewPoint(t *testing.T) {
	p, err := NewPoint(95, 190)
	require.NoError(t, err)
	assert.Equal(t, 90.0, p.Lat)
	assert.InDelta(t, -170, p.Lng, epsilon)

	_, err = NewPoint(math.NaN(), 10)
	assert.True(t, errors.Is(err, ErrInvalidCoordinate))
}

// A pin entered directly at 179.9 and a pin dragged to -180.05 are the same
// neighbourhood seen from two world copies; both must land in range and
// 0.05 degrees apart.
func TestCapturePathsConverge(t *testing.T) {
	direct, err := NewPoint(-16.5, 179.9)
	require.NoError(t, err)
	dragged, err := NewPoint(-16.5, -180.05)
	require.NoError(t, err)

	for _, p := range []Point{direct, dragged} {
		assert.Greater(t, p.Lng, -180.0)
		assert.LessOrEqual(t, p.Lng, 180.0)
	}
	assert.InDelta(t, 179.9, direct.Lng, epsilon)
	assert.InDelta(t, 179.95, dragged.Lng, epsilon)
	assert.InDelta(t, 0.05, LongitudeDelta(direct.Lng, dragged.Lng), epsilon)

	// Same physical place reached after extra world-copy wraps.
	again, err := NewPoint(-16.5, -180.05+720)
	require.NoError(t, err)
	assert.InDelta(t, dragged.Lng, again.Lng, 1e-7)
}

func TestLongitudeDelta(t *testing.T) {
	assert.InDelta(t, 20, LongitudeDelta(170, -170), epsilon)
	assert.InDelta(t, -20, LongitudeDelta(-170, 170), epsilon)
	assert.InDelta(t, 0, LongitudeDelta(10, 370), epsilon)
}

func TestDistance(t *testing.T) {
	paris := Point{Lat: 48.8566, Lng: 2.3522}
	london := Point{Lat: 51.5074, Lng: -0.1278}
	assert.InDelta(t, 343.5, Distance(paris, london), 2)

	// Across the antimeridian the short way round is used.
	west := Point{Lat: 0, Lng: 179.5}
	east := Point{Lat: 0, Lng: -179.5}
	assert.InDelta(t, 111.2, Distance(west, east), 0.5)
}

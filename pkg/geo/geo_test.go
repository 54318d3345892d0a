package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHaversine(t *testing.T) {
	t.Run("known distance bangalore", func(t *testing.T) {
		// MG Road to Koramangala, roughly 5.4 km straight line
		d := Haversine(12.9752, 77.6068, 12.9352, 77.6245)
		assert.InDelta(t, 4.85, d, 0.5)
	})

	t.Run("reflexive", func(t *testing.T) {
		assert.Equal(t, 0.0, Haversine(12.9716, 77.5946, 12.9716, 77.5946))
	})

	t.Run("symmetric", func(t *testing.T) {
		a := Haversine(12.9716, 77.5946, 13.0827, 80.2707)
		b := Haversine(13.0827, 80.2707, 12.9716, 77.5946)
		assert.Equal(t, a, b)
	})

	t.Run("keeps sub-hectometre precision", func(t *testing.T) {
		// One ten-thousandth of a degree of latitude is about 11.1 metres.
		// A two-decimal quantization would collapse this to 0.01.
		d := Haversine(12.0, 77.0, 12.0001, 77.0)
		assert.InDelta(t, 0.01112, d, 1e-4)
		assert.NotEqual(t, math.Round(d*100)/100, d)
	})
}

func TestPointInPolygon(t *testing.T) {
	// Square around central Bangalore, [lng, lat] order
	square := Ring{
		{77.50, 12.90},
		{77.70, 12.90},
		{77.70, 13.05},
		{77.50, 13.05},
		{77.50, 12.90},
	}

	tests := []struct {
		name string
		lat  float64
		lng  float64
		want bool
	}{
		{"inside center", 12.9716, 77.5946, true},
		{"outside north", 13.20, 77.60, false},
		{"outside west", 12.97, 77.40, false},
		{"far away", 28.61, 77.20, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PointInPolygon(tt.lat, tt.lng, square))
		})
	}

	t.Run("degenerate ring", func(t *testing.T) {
		assert.False(t, PointInPolygon(12.97, 77.59, Ring{{77.5, 12.9}, {77.7, 12.9}}))
	})
}

func TestParsePolygon(t *testing.T) {
	wantFirst := [2]float64{77.50, 12.90}

	t.Run("geojson polygon object", func(t *testing.T) {
		raw := []byte(`{"type":"Polygon","coordinates":[[[77.50,12.90],[77.70,12.90],[77.70,13.05],[77.50,12.90]]]}`)
		ring, err := ParsePolygon(raw)
		require.NoError(t, err)
		assert.Len(t, ring, 4)
		assert.Equal(t, wantFirst, ring[0])
	})

	t.Run("bare coordinates object", func(t *testing.T) {
		raw := []byte(`{"coordinates":[[[77.50,12.90],[77.70,12.90],[77.70,13.05],[77.50,12.90]]]}`)
		ring, err := ParsePolygon(raw)
		require.NoError(t, err)
		assert.Len(t, ring, 4)
	})

	t.Run("raw ring list", func(t *testing.T) {
		raw := []byte(`[[[77.50,12.90],[77.70,12.90],[77.70,13.05]]]`)
		ring, err := ParsePolygon(raw)
		require.NoError(t, err)
		assert.Len(t, ring, 3)
	})

	t.Run("bare single ring", func(t *testing.T) {
		raw := []byte(`[[77.50,12.90],[77.70,12.90],[77.70,13.05]]`)
		ring, err := ParsePolygon(raw)
		require.NoError(t, err)
		assert.Len(t, ring, 3)
	})

	t.Run("rejects non polygon geometry", func(t *testing.T) {
		_, err := ParsePolygon([]byte(`{"type":"LineString","coordinates":[[77.5,12.9],[77.7,12.9]]}`))
		assert.Error(t, err)
	})

	t.Run("rejects too few points", func(t *testing.T) {
		_, err := ParsePolygon([]byte(`[[77.5,12.9],[77.7,12.9]]`))
		assert.Error(t, err)
	})

	t.Run("rejects empty input", func(t *testing.T) {
		_, err := ParsePolygon(nil)
		assert.Error(t, err)
	})
}

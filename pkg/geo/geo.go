package geo

import (
	"encoding/json"
	"fmt"
	"math"
)

const earthRadiusKm = 6371.0

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Ring is a polygon outer ring as [lng, lat] pairs, GeoJSON order.
type Ring [][2]float64

// Haversine calculates the great-circle distance in kilometres between two
// coordinates. The result is exact; callers that display distances round at
// the presentation layer.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180.0
	dLng := (lng2 - lng1) * math.Pi / 180.0

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180.0)*math.Cos(lat2*math.Pi/180.0)*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// Distance is Haversine over two Points.
func Distance(a, b Point) float64 {
	return Haversine(a.Lat, a.Lng, b.Lat, b.Lng)
}

// PointInPolygon reports whether the point lies inside the outer ring using
// ray casting. Points exactly on an edge may land on either side; city
// boundaries are coarse enough that this does not matter in practice.
func PointInPolygon(lat, lng float64, ring Ring) bool {
	n := len(ring)
	if n < 3 {
		return false
	}

	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		xi, yi := ring[i][0], ring[i][1]
		xj, yj := ring[j][0], ring[j][1]

		if (yi > lat) != (yj > lat) &&
			lng < (xj-xi)*(lat-yi)/(yj-yi)+xi {
			inside = !inside
		}
		j = i
	}
	return inside
}

// ParsePolygon extracts the outer ring from raw boundary JSON. It accepts a
// GeoJSON Polygon object, a bare {"coordinates": [...]} object, or a raw ring
// (nested coordinate array). Holes are ignored.
func ParsePolygon(raw []byte) (Ring, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty polygon")
	}

	var obj struct {
		Type        string          `json:"type"`
		Coordinates json.RawMessage `json:"coordinates"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && len(obj.Coordinates) > 0 {
		if obj.Type != "" && obj.Type != "Polygon" {
			return nil, fmt.Errorf("unsupported geometry type %q", obj.Type)
		}
		return parseRings(obj.Coordinates)
	}

	return parseRings(raw)
}

// parseRings accepts either [[ [lng,lat], ... ]] (rings) or [ [lng,lat], ... ]
// (a single bare ring) and returns the outer ring.
func parseRings(raw []byte) (Ring, error) {
	var rings []Ring
	if err := json.Unmarshal(raw, &rings); err == nil && len(rings) > 0 {
		return validateRing(rings[0])
	}

	var ring Ring
	if err := json.Unmarshal(raw, &ring); err == nil {
		return validateRing(ring)
	}

	return nil, fmt.Errorf("polygon is neither a ring list nor a bare ring")
}

func validateRing(ring Ring) (Ring, error) {
	if len(ring) < 3 {
		return nil, fmt.Errorf("ring has %d points, need at least 3", len(ring))
	}
	return ring, nil
}

package services

import (
	"math"
	"strings"
)

// Geocoder resolves a seller's declared ZIP to a coordinate. The built-in
// implementation is coarse scaffolding (national-area centroids keyed on the
// leading ZIP digit); a real geocoding adapter can be swapped in without
// touching the scoring engine.
type Geocoder interface {
	Locate(zip string) (lat float64, lng float64, ok bool)
}

type zipCentroidGeocoder struct{}

func NewZIPCentroidGeocoder() Geocoder {
	return &zipCentroidGeocoder{}
}

// Centroids of the ten US national ZIP areas.
var zipAreaCentroids = map[byte][2]float64{
	'0': {42.9, -71.6},
	'1': {41.0, -74.3},
	'2': {37.5, -78.7},
	'3': {32.8, -84.6},
	'4': {39.9, -84.9},
	'5': {44.4, -93.6},
	'6': {38.6, -92.9},
	'7': {32.8, -96.7},
	'8': {39.9, -105.6},
	'9': {37.9, -120.9},
}

func (g *zipCentroidGeocoder) Locate(zip string) (float64, float64, bool) {
	zip = strings.TrimSpace(zip)
	if len(zip) < 5 {
		return 0, 0, false
	}
	centroid, ok := zipAreaCentroids[zip[0]]
	if !ok {
		return 0, 0, false
	}
	return centroid[0], centroid[1], true
}

const earthRadiusKM = 6371.0

// HaversineKM returns the great-circle distance between two coordinates.
func HaversineKM(lat1, lng1, lat2, lng2 float64) float64 {
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := rad(lat2 - lat1)
	dLng := rad(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKM * math.Asin(math.Min(1, math.Sqrt(a)))
}

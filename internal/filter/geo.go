package filter

import (
	"math"
	"strings"

	"github.com/seekr-cli/seekr/pkg/models"
)

const earthRadiusMiles = 3958.8

// MilesBetween returns the great-circle distance between two points.
func MilesBetween(a, b models.Coordinates) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusMiles * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// TableResolver resolves locations against a fixed place table by
// case-insensitive substring match. Keys are city names.
type TableResolver struct {
	places map[string]models.Coordinates
}

// NewTableResolver builds a resolver over the given table. Passing nil uses
// a built-in table of common US metro areas.
func NewTableResolver(places map[string]models.Coordinates) *TableResolver {
	if places == nil {
		places = defaultPlaces
	}
	return &TableResolver{places: places}
}

func (r *TableResolver) Resolve(location string) (models.Coordinates, bool) {
	locLower := strings.ToLower(location)
	for name, coords := range r.places {
		if strings.Contains(locLower, name) {
			return coords, true
		}
	}
	return models.Coordinates{}, false
}

// defaultPlaces covers the metros the default search config cares about.
var defaultPlaces = map[string]models.Coordinates{
	"san jose":      {Lat: 37.3382, Lon: -121.8863},
	"san francisco": {Lat: 37.7749, Lon: -122.4194},
	"oakland":       {Lat: 37.8044, Lon: -122.2712},
	"sunnyvale":     {Lat: 37.3688, Lon: -122.0363},
	"mountain view": {Lat: 37.3861, Lon: -122.0839},
	"palo alto":     {Lat: 37.4419, Lon: -122.1430},
	"seattle":       {Lat: 47.6062, Lon: -122.3321},
	"austin":        {Lat: 30.2672, Lon: -97.7431},
	"new york":      {Lat: 40.7128, Lon: -74.0060},
	"los angeles":   {Lat: 34.0522, Lon: -118.2437},
	"san diego":     {Lat: 32.7157, Lon: -117.1611},
	"denver":        {Lat: 39.7392, Lon: -104.9903},
	"chicago":       {Lat: 41.8781, Lon: -87.6298},
	"boston":        {Lat: 42.3601, Lon: -71.0589},
}

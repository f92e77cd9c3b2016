// Package geo compares monument coordinates: great-circle distance and
// confidence tiers against per-source thresholds.
package geo

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/monument-cli/internal/model"
)

// EarthRadiusM is the mean Earth radius in meters.
const EarthRadiusM = 6_371_000.0

// ErrInvalidCoordinate is returned for out-of-range or non-finite coordinates.
var ErrInvalidCoordinate = eris.New("geo: invalid coordinate")

// Validate checks that c is a finite latitude/longitude in range.
func Validate(c model.Coordinates) error {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || c.Lat < -90 || c.Lat > 90 {
		return eris.Wrapf(ErrInvalidCoordinate, "latitude %v", c.Lat)
	}
	if math.IsNaN(c.Lon) || math.IsInf(c.Lon, 0) || c.Lon < -180 || c.Lon > 180 {
		return eris.Wrapf(ErrInvalidCoordinate, "longitude %v", c.Lon)
	}
	return nil
}

// Distance returns the haversine distance between a and b in meters.
func Distance(a, b model.Coordinates) (float64, error) {
	if err := Validate(a); err != nil {
		return 0, err
	}
	if err := Validate(b); err != nil {
		return 0, err
	}

	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	s1 := math.Sin(dLat / 2)
	s2 := math.Sin(dLon / 2)
	h := s1*s1 + math.Cos(lat1)*math.Cos(lat2)*s2*s2
	if h > 1 {
		h = 1
	}
	return 2 * EarthRadiusM * math.Asin(math.Sqrt(h)), nil
}

// DistanceOpt returns the distance when both sides are present, nil when
// either is missing.
func DistanceOpt(a, b *model.Coordinates) (*float64, error) {
	if a == nil || b == nil {
		return nil, nil
	}
	d, err := Distance(*a, *b)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

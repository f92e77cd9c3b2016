package geo

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/sells-group/monument-cli/internal/model"
)

// SRID is the spatial reference of every stored point (WGS 84).
const SRID = 4326

// Point converts coordinates to a go-geom point with SRID 4326.
// Coordinates are stored X=longitude, Y=latitude.
func Point(c model.Coordinates) *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{c.Lon, c.Lat}).SetSRID(SRID)
}

// EncodeEWKB encodes c as little-endian EWKB. Returns nil, nil for nil input.
func EncodeEWKB(c *model.Coordinates) ([]byte, error) {
	if c == nil {
		return nil, nil
	}
	if err := Validate(*c); err != nil {
		return nil, err
	}
	data, err := ewkb.Marshal(Point(*c), ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "geo: encode EWKB")
	}
	return data, nil
}

// DecodeEWKB parses an EWKB point back into coordinates.
func DecodeEWKB(data []byte) (*model.Coordinates, error) {
	if len(data) == 0 {
		return nil, nil
	}
	g, err := ewkb.Unmarshal(data)
	if err != nil {
		return nil, eris.Wrap(err, "geo: decode EWKB")
	}
	p, ok := g.(*geom.Point)
	if !ok {
		return nil, eris.Errorf("geo: expected point, got %T", g)
	}
	return &model.Coordinates{Lat: p.Y(), Lon: p.X()}, nil
}

package export

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/monument-cli/internal/model"
)

// DBF attribute names are limited to 10 characters.
var shapeFields = []shp.Field{
	shp.StringField("ID", 64),
	shp.StringField("NAME", 128),
	shp.StringField("CATEGORY", 64),
	shp.StringField("CITY", 64),
	shp.StringField("REGION", 64),
	shp.StringField("COORD_SRC", 32),
}

// Shapefile writes records with coordinates as a point shapefile (plus the
// .shx and .dbf siblings) at path. Records without coordinates are skipped.
// It returns the number of points written.
func Shapefile(path string, records []model.BaseRecord) (int, error) {
	w, err := shp.Create(path, shp.POINT)
	if err != nil {
		return 0, eris.Wrapf(err, "export: create shapefile %s", path)
	}
	defer w.Close()

	if err := w.SetFields(shapeFields); err != nil {
		return 0, eris.Wrap(err, "export: set shapefile fields")
	}

	written, skipped := 0, 0
	for _, r := range records {
		if r.Coordinates == nil {
			skipped++
			continue
		}
		idx := int(w.Write(&shp.Point{X: r.Coordinates.Lon, Y: r.Coordinates.Lat}))

		src := string(model.SourcePrimary)
		if p, ok := r.Provenance[model.FieldCoordinates]; ok {
			src = string(p.Source)
		}
		for field, val := range []string{r.ID, r.Name, r.Category, r.City, r.Region, src} {
			if err := w.WriteAttribute(idx, field, val); err != nil {
				return written, eris.Wrapf(err, "export: write attributes for %s", r.ID)
			}
		}
		written++
	}

	if skipped > 0 {
		zap.L().Debug("export: skipped records without coordinates", zap.Int("skipped", skipped))
	}
	zap.L().Info("export: shapefile written", zap.String("path", path), zap.Int("points", written))
	return written, nil
}

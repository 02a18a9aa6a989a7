package geo

import (
	"fmt"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/geom/proj"
)

// PointsFromShapefile reads every Point and MultiPoint geometry in the
// shapefile. Geometries of any other type cause an error. If targetDef is
// non-empty the points are reprojected from the shapefile's spatial
// reference into the given Proj4 definition.
func PointsFromShapefile(path, targetDef string) ([]geom.Point, error) {
	d, err := shp.NewDecoder(path)
	if err != nil {
		return nil, fmt.Errorf("opening shapefile %s: %w", path, err)
	}
	defer d.Close()

	var t proj.Transformer
	if targetDef != "" {
		srcSR, err := d.SR()
		if err != nil {
			return nil, fmt.Errorf("reading shapefile projection: %w", err)
		}
		dst, err := proj.Parse(targetDef)
		if err != nil {
			return nil, fmt.Errorf("parsing target projection: %w", err)
		}
		if t, err = srcSR.NewTransform(dst); err != nil {
			return nil, fmt.Errorf("creating transform: %w", err)
		}
	}

	var pts []geom.Point
	for {
		g, _, more := d.DecodeRowFields()
		if !more {
			break
		}
		if t != nil {
			if g, err = g.Transform(t); err != nil {
				return nil, fmt.Errorf("reprojecting shapefile row: %w", err)
			}
		}
		switch gg := g.(type) {
		case geom.Point:
			pts = append(pts, gg)
		case geom.MultiPoint:
			pts = append(pts, gg...)
		default:
			return nil, fmt.Errorf("shapefile geometry must be Point or MultiPoint, got %T", g)
		}
	}
	if err := d.Error(); err != nil {
		return nil, fmt.Errorf("decoding shapefile %s: %w", path, err)
	}
	return pts, nil
}

// PolygonsFromShapefile reads every polygonal geometry in the shapefile,
// for loading lease areas and exclusion zones.
func PolygonsFromShapefile(path string) ([]geom.Polygonal, error) {
	d, err := shp.NewDecoder(path)
	if err != nil {
		return nil, fmt.Errorf("opening shapefile %s: %w", path, err)
	}
	defer d.Close()

	var polys []geom.Polygonal
	for {
		g, _, more := d.DecodeRowFields()
		if !more {
			break
		}
		p, ok := g.(geom.Polygonal)
		if !ok {
			return nil, fmt.Errorf("shapefile geometry must be polygonal, got %T", g)
		}
		polys = append(polys, p)
	}
	if err := d.Error(); err != nil {
		return nil, fmt.Errorf("decoding shapefile %s: %w", path, err)
	}
	return polys, nil
}

// shapefileRow is the attribute schema used when exporting layouts.
type shapefileRow struct {
	geom.Point
	ID int
}

// PointsToShapefile writes points to a shapefile with a sequential ID
// attribute, numbered from 1.
func PointsToShapefile(path string, pts []geom.Point) error {
	e, err := shp.NewEncoder(path, shapefileRow{})
	if err != nil {
		return fmt.Errorf("creating shapefile %s: %w", path, err)
	}
	defer e.Close()

	for i, p := range pts {
		if err := e.Encode(shapefileRow{Point: p, ID: i + 1}); err != nil {
			return fmt.Errorf("writing shapefile row %d: %w", i, err)
		}
	}
	return nil
}

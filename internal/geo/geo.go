// Package geo wraps the geometry I/O used by layouts: shapefile and
// PostGIS sources, coordinate reprojection, and polygon unions. CRS are
// expressed as Proj4 definition strings throughout.
package geo

import (
	"fmt"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
)

// Proj4 definitions for spatial references that come up routinely in
// offshore work.
const (
	// WGS84 geographic coordinates.
	WGS84 = "+proj=longlat +datum=WGS84 +no_defs"

	// WebMercator is the spatial reference for web mapping.
	WebMercator = "+proj=merc +a=6378137 +b=6378137 +lat_ts=0.0 +lon_0=0.0 +x_0=0.0 +y_0=0 +k=1.0 +units=m +nadgrids=@null +no_defs"

	// UTM zones covering the North Sea and Atlantic margin.
	UTM29N = "+proj=utm +zone=29 +datum=WGS84 +units=m +no_defs"
	UTM30N = "+proj=utm +zone=30 +datum=WGS84 +units=m +no_defs"
	UTM31N = "+proj=utm +zone=31 +datum=WGS84 +units=m +no_defs"
)

// NewTransform builds a coordinate transformer between two Proj4
// definitions.
func NewTransform(srcDef, dstDef string) (proj.Transformer, error) {
	src, err := proj.Parse(srcDef)
	if err != nil {
		return nil, fmt.Errorf("parsing source projection: %w", err)
	}
	dst, err := proj.Parse(dstDef)
	if err != nil {
		return nil, fmt.Errorf("parsing target projection: %w", err)
	}
	t, err := src.NewTransform(dst)
	if err != nil {
		return nil, fmt.Errorf("creating transform: %w", err)
	}
	return t, nil
}

// TransformPoints reprojects points through t.
func TransformPoints(pts []geom.Point, t proj.Transformer) ([]geom.Point, error) {
	out := make([]geom.Point, len(pts))
	for i, p := range pts {
		g, err := p.Transform(t)
		if err != nil {
			return nil, fmt.Errorf("transforming point %d: %w", i, err)
		}
		out[i] = g.(geom.Point)
	}
	return out, nil
}

// UnionAll merges polygons into a single geometry, the unary-union of the
// inputs. Returns nil for an empty input.
func UnionAll(polys []geom.Polygonal) geom.Polygonal {
	if len(polys) == 0 {
		return nil
	}
	u := polys[0]
	for _, p := range polys[1:] {
		u = u.Union(p)
	}
	return u
}

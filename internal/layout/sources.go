package layout

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/ctessum/geom"

	"github.com/layowt/layowt/internal/geo"
)

// CSVOptions controls how turbine positions are read from a CSV file.
type CSVOptions struct {
	// XColumn and YColumn name the coordinate columns. Both empty means
	// the first two columns hold x and y and the file has no header.
	XColumn, YColumn string
	// SourceDef and TargetDef are Proj4 definitions. When both are set
	// the positions are reprojected from source to target.
	SourceDef, TargetDef string
}

// FromCSV builds a layout from positions listed in a CSV file.
func FromCSV(path string, csvOpts CSVOptions, opts ...Option) (*Layout, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s is empty", path)
	}

	xi, yi := 0, 1
	rows := records
	if csvOpts.XColumn != "" || csvOpts.YColumn != "" {
		xi, yi = -1, -1
		for i, name := range records[0] {
			switch name {
			case csvOpts.XColumn:
				xi = i
			case csvOpts.YColumn:
				yi = i
			}
		}
		if xi < 0 || yi < 0 {
			return nil, fmt.Errorf("%s: columns %q, %q not found in header %v",
				path, csvOpts.XColumn, csvOpts.YColumn, records[0])
		}
		rows = records[1:]
	}

	pts := make([]geom.Point, 0, len(rows))
	for i, rec := range rows {
		if len(rec) <= xi || len(rec) <= yi {
			return nil, fmt.Errorf("%s row %d: too few columns", path, i+1)
		}
		x, err := strconv.ParseFloat(rec[xi], 64)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: parsing x: %w", path, i+1, err)
		}
		y, err := strconv.ParseFloat(rec[yi], 64)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: parsing y: %w", path, i+1, err)
		}
		pts = append(pts, geom.Point{X: x, Y: y})
	}

	if csvOpts.SourceDef != "" && csvOpts.TargetDef != "" {
		tr, err := geo.NewTransform(csvOpts.SourceDef, csvOpts.TargetDef)
		if err != nil {
			return nil, err
		}
		if pts, err = geo.TransformPoints(pts, tr); err != nil {
			return nil, err
		}
	}

	return FromPoints(pts, opts...)
}

// FromShapefile builds a layout from a point shapefile, reprojecting to
// targetDef when non-empty.
func FromShapefile(path, targetDef string, opts ...Option) (*Layout, error) {
	pts, err := geo.PointsFromShapefile(path, targetDef)
	if err != nil {
		return nil, err
	}
	return FromPoints(pts, opts...)
}

// FromPostGIS builds a layout from the point geometries in a PostGIS
// table, reprojecting from srcDef to targetDef when both are non-empty.
func FromPostGIS(ctx context.Context, dsn, schema, table, geomCol, srcDef, targetDef string, opts ...Option) (*Layout, error) {
	pts, err := geo.PointsFromPostGIS(ctx, dsn, schema, table, geomCol)
	if err != nil {
		return nil, err
	}
	if srcDef != "" && targetDef != "" {
		tr, err := geo.NewTransform(srcDef, targetDef)
		if err != nil {
			return nil, err
		}
		if pts, err = geo.TransformPoints(pts, tr); err != nil {
			return nil, err
		}
	}
	return FromPoints(pts, opts...)
}

// ToCSV writes the active positions to a CSV file with an x,y header.
func (l *Layout) ToCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"x", "y"}); err != nil {
		return err
	}
	for _, p := range l.points {
		rec := []string{
			strconv.FormatFloat(p.X, 'f', -1, 64),
			strconv.FormatFloat(p.Y, 'f', -1, 64),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// ToShapefile writes the active positions to a point shapefile.
func (l *Layout) ToShapefile(path string) error {
	return geo.PointsToShapefile(path, l.points)
}

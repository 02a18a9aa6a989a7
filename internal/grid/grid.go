// Package grid generates the uniform point grids that seed turbine
// layouts. A Grid is defined in non-dimensional row/column space and
// projected into real coordinates by a scale factor (typically the rotor
// diameter in meters) and an origin.
package grid

import "github.com/ctessum/geom"

// Grid holds the parameters that define a uniform grid of points.
//
// The zero value is not useful; start from Default and adjust. Grid is a
// comparable value type, so it can key maps of per-configuration results.
type Grid struct {
	NRows, NCols int

	// RowStep and ColStep are non-dimensional spacings between rows and
	// columns, usually expressed in rotor diameters.
	RowStep, ColStep float64

	// RowOffset shifts every other row by half a column step; ColOffset
	// shifts every other column by half a row step. Both produce a
	// diamond arrangement and they are mutually exclusive.
	RowOffset, ColOffset bool

	// Angle orients the grid columns in degrees, clockwise to match the
	// wind direction convention.
	Angle float64

	// XShear and YShear slant the columns from vertical (clockwise) and
	// the rows from horizontal (anticlockwise), in degrees.
	XShear, YShear float64

	// Origin is the real-space centroid of the grid.
	Origin geom.Point

	// Scale converts the non-dimensional spacings into real space.
	Scale float64
}

// Default returns the baseline grid: 10x10 points at 6 diameter spacing,
// unrotated, unscaled, centered on the coordinate origin.
func Default() Grid {
	return Grid{
		NRows:   10,
		NCols:   10,
		RowStep: 6,
		ColStep: 6,
		Scale:   1,
	}
}

// Validate reports whether the grid parameters are internally consistent.
func (g Grid) Validate() error {
	if _, err := createCoords(g.NRows, g.NCols, g.RowStep, g.ColStep, g.RowOffset, g.ColOffset, g.Angle, g.XShear, g.YShear); err != nil {
		return err
	}
	return nil
}

// Coords returns the real-space coordinates of every point in the grid.
func (g Grid) Coords() ([]geom.Point, error) {
	pts, err := createCoords(g.NRows, g.NCols, g.RowStep, g.ColStep, g.RowOffset, g.ColOffset, g.Angle, g.XShear, g.YShear)
	if err != nil {
		return nil, err
	}
	for i, p := range pts {
		pts[i] = geom.Point{
			X: p.X*g.Scale + g.Origin.X,
			Y: p.Y*g.Scale + g.Origin.Y,
		}
	}
	return pts, nil
}

// X returns the x coordinates of the grid points.
func (g Grid) X() ([]float64, error) {
	pts, err := g.Coords()
	if err != nil {
		return nil, err
	}
	xs := make([]float64, len(pts))
	for i, p := range pts {
		xs[i] = p.X
	}
	return xs, nil
}

// Y returns the y coordinates of the grid points.
func (g Grid) Y() ([]float64, error) {
	pts, err := g.Coords()
	if err != nil {
		return nil, err
	}
	ys := make([]float64, len(pts))
	for i, p := range pts {
		ys[i] = p.Y
	}
	return ys, nil
}

// WithScale returns a copy of the grid with the scale factor replaced,
// typically with a turbine rotor diameter in meters.
func (g Grid) WithScale(rotorDiameter float64) Grid {
	g.Scale = rotorDiameter
	return g
}

// Translate returns a copy of the grid with the origin shifted.
func (g Grid) Translate(dx, dy float64) Grid {
	g.Origin = geom.Point{X: g.Origin.X + dx, Y: g.Origin.Y + dy}
	return g
}

// Rotate returns a copy of the grid rotated clockwise by the given angle
// in degrees.
func (g Grid) Rotate(angle float64) Grid {
	g.Angle += angle
	return g
}

// Key returns the grid itself as a comparable identity, usable as a map
// key for per-configuration results.
func (g Grid) Key() Grid {
	return g
}

// MultiPoint returns the grid points as a single geometry.
func (g Grid) MultiPoint() (geom.MultiPoint, error) {
	pts, err := g.Coords()
	if err != nil {
		return nil, err
	}
	return geom.MultiPoint(pts), nil
}

package grid

import (
	"fmt"
	"math"

	"github.com/ctessum/geom"
)

// baseCoords builds a rectangular grid of points centered on (0, 0) in
// non-dimensional space. Points are emitted row-major, bottom row first.
//
// rowOffset shifts every other row east by half a column step; colOffset
// shifts every other column north by half a row step. Either produces a
// diamond pattern. Callers must not set both.
func baseCoords(nRows, nCols int, rowStep, colStep float64, rowOffset, colOffset bool) []geom.Point {
	xMax := colStep * float64(nCols-1) / 2
	yMax := rowStep * float64(nRows-1) / 2

	pts := make([]geom.Point, 0, nRows*nCols)
	for j := 0; j < nRows; j++ {
		for i := 0; i < nCols; i++ {
			x := -xMax + colStep*float64(i)
			y := -yMax + rowStep*float64(j)
			if rowOffset && j%2 == 0 {
				x += colStep / 2
			}
			if colOffset && i%2 == 0 {
				y += rowStep / 2
			}
			pts = append(pts, geom.Point{X: x, Y: y})
		}
	}
	return pts
}

// rotationMatrix returns the 2x2 rotation matrix for an angle in degrees,
// positive anticlockwise.
func rotationMatrix(angle float64) [2][2]float64 {
	rad := angle * math.Pi / 180
	return [2][2]float64{
		{math.Cos(rad), -math.Sin(rad)},
		{math.Sin(rad), math.Cos(rad)},
	}
}

// rotateCoords rotates points by an angle in degrees clockwise, matching
// the wind direction convention.
func rotateCoords(pts []geom.Point, angle float64) []geom.Point {
	m := rotationMatrix(-angle)
	out := make([]geom.Point, len(pts))
	for i, p := range pts {
		out[i] = geom.Point{
			X: m[0][0]*p.X + m[0][1]*p.Y,
			Y: m[1][0]*p.X + m[1][1]*p.Y,
		}
	}
	return out
}

// shearMatrix returns the 2x2 shear matrix for horizontal and vertical
// shear angles in degrees.
func shearMatrix(xShear, yShear float64) [2][2]float64 {
	return [2][2]float64{
		{1, math.Atan(xShear * math.Pi / 180)},
		{math.Atan(yShear * math.Pi / 180), 1},
	}
}

// shearCoords shears points by horizontal and vertical shear angles in
// degrees.
func shearCoords(pts []geom.Point, xShear, yShear float64) []geom.Point {
	m := shearMatrix(xShear, yShear)
	out := make([]geom.Point, len(pts))
	for i, p := range pts {
		out[i] = geom.Point{
			X: m[0][0]*p.X + m[0][1]*p.Y,
			Y: m[1][0]*p.X + m[1][1]*p.Y,
		}
	}
	return out
}

// createCoords builds the non-dimensional point grid for the given
// parameters: base rectangle, then shear, then rotation.
func createCoords(nRows, nCols int, rowStep, colStep float64, rowOffset, colOffset bool, angle, xShear, yShear float64) ([]geom.Point, error) {
	if nRows < 1 || nCols < 1 {
		return nil, fmt.Errorf("grid must have at least one row and one column, got %dx%d", nRows, nCols)
	}
	if rowOffset && colOffset {
		return nil, fmt.Errorf("row and column offsets cannot both be set")
	}

	pts := baseCoords(nRows, nCols, rowStep, colStep, rowOffset, colOffset)

	if xShear != 0 || yShear != 0 {
		pts = shearCoords(pts, xShear, yShear)
	}
	if angle != 0 {
		pts = rotateCoords(pts, angle)
	}
	return pts, nil
}

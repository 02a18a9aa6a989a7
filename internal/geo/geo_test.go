package geo

import (
	"math"
	"testing"

	"github.com/ctessum/geom"
)

func square(x0, y0, size float64) geom.Polygon {
	return geom.Polygon{{
		{X: x0, Y: y0},
		{X: x0 + size, Y: y0},
		{X: x0 + size, Y: y0 + size},
		{X: x0, Y: y0 + size},
	}}
}

func TestUnionAllEmpty(t *testing.T) {
	if u := UnionAll(nil); u != nil {
		t.Errorf("UnionAll(nil) = %v, want nil", u)
	}
}

func TestUnionAllSingle(t *testing.T) {
	s := square(0, 0, 1)
	u := UnionAll([]geom.Polygonal{s})
	if math.Abs(u.Area()-1) > 1e-9 {
		t.Errorf("union area = %v, want 1", u.Area())
	}
}

func TestUnionAllOverlapping(t *testing.T) {
	// Two unit squares overlapping by half share an area of 1.5.
	a := square(0, 0, 1)
	b := square(0.5, 0, 1)
	u := UnionAll([]geom.Polygonal{a, b})
	if math.Abs(u.Area()-1.5) > 1e-9 {
		t.Errorf("union area = %v, want 1.5", u.Area())
	}
}

func TestUnionAllDisjoint(t *testing.T) {
	a := square(0, 0, 1)
	b := square(5, 5, 2)
	u := UnionAll([]geom.Polygonal{a, b})
	if math.Abs(u.Area()-5) > 1e-9 {
		t.Errorf("union area = %v, want 5", u.Area())
	}
}

func TestNewTransformBadDefinition(t *testing.T) {
	if _, err := NewTransform("not a projection", WGS84); err == nil {
		t.Fatal("expected error for invalid source definition")
	}
	if _, err := NewTransform(WGS84, "not a projection"); err == nil {
		t.Fatal("expected error for invalid target definition")
	}
}

func TestTransformPointsLonLatToWebMercator(t *testing.T) {
	tr, err := NewTransform(WGS84, WebMercator)
	if err != nil {
		t.Fatalf("NewTransform: %v", err)
	}
	pts, err := TransformPoints([]geom.Point{{X: 1, Y: 0}}, tr)
	if err != nil {
		t.Fatalf("TransformPoints: %v", err)
	}
	// One degree of longitude on the equator in spherical mercator.
	want := 6378137 * math.Pi / 180
	if math.Abs(pts[0].X-want) > 1 {
		t.Errorf("x = %v, want %v", pts[0].X, want)
	}
	if math.Abs(pts[0].Y) > 1 {
		t.Errorf("y = %v, want 0", pts[0].Y)
	}
}

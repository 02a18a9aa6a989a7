package layout

import (
	"math"
	"testing"

	"github.com/ctessum/geom"
	"github.com/stretchr/testify/require"

	"github.com/layowt/layowt/internal/grid"
	"github.com/layowt/layowt/internal/raster"
	"github.com/layowt/layowt/internal/turbine"
)

// square returns an axis-aligned square polygon.
func square(minX, minY, side float64) geom.Polygon {
	return geom.Polygon{{
		{X: minX, Y: minY},
		{X: minX + side, Y: minY},
		{X: minX + side, Y: minY + side},
		{X: minX, Y: minY + side},
	}}
}

// testGrid is a 4x4 grid with unit spacing centered on the origin:
// coordinates at -1.5, -0.5, 0.5, 1.5 in both axes.
func testGrid() grid.Grid {
	g := grid.Default()
	g.NRows = 4
	g.NCols = 4
	g.RowStep = 1
	g.ColStep = 1
	return g
}

func TestNewUnconstrained(t *testing.T) {
	l, err := New(testGrid())
	require.NoError(t, err)

	if got := l.NumTurbines(); got != 16 {
		t.Errorf("NumTurbines() = %d, want 16", got)
	}
	if l.IsConstrained() {
		t.Error("IsConstrained() = true for unconstrained layout")
	}
	if !l.HasGeom() {
		t.Error("HasGeom() = false for layout built from a grid")
	}
	if l.Grid() == nil {
		t.Error("Grid() = nil for layout built from a grid")
	}
}

func TestNewInvalidGrid(t *testing.T) {
	g := testGrid()
	g.NRows = 0
	if _, err := New(g); err == nil {
		t.Fatal("expected error for invalid grid")
	}
}

func TestClipToArea(t *testing.T) {
	l, err := New(testGrid())
	require.NoError(t, err)

	// Covers only the quadrant with x,y in {0.5, 1.5}.
	err = l.ClipToArea([]geom.Polygonal{square(0, 0, 2)}, Write)
	require.NoError(t, err)

	if got := l.NumTurbines(); got != 4 {
		t.Errorf("NumTurbines() = %d, want 4", got)
	}
	for _, p := range l.Points() {
		if p.X < 0 || p.Y < 0 {
			t.Errorf("point %v outside clip area", p)
		}
	}
	if !l.HasArea() {
		t.Error("HasArea() = false after ClipToArea")
	}
}

func TestClipToAreaAppendMode(t *testing.T) {
	l, err := New(testGrid())
	require.NoError(t, err)

	require.NoError(t, l.ClipToArea([]geom.Polygonal{square(0, 0, 2)}, Write))
	require.Equal(t, 4, l.NumTurbines())

	// Appending the opposite quadrant widens the buildable region.
	require.NoError(t, l.ClipToArea([]geom.Polygonal{square(-2, -2, 2)}, Append))
	if got := l.NumTurbines(); got != 8 {
		t.Errorf("NumTurbines() after append = %d, want 8", got)
	}

	// Write mode replaces rather than widens.
	require.NoError(t, l.ClipToArea([]geom.Polygonal{square(0, 0, 2)}, Write))
	if got := l.NumTurbines(); got != 4 {
		t.Errorf("NumTurbines() after write = %d, want 4", got)
	}
}

func TestClipToAreaBoundaryKept(t *testing.T) {
	l, err := New(testGrid())
	require.NoError(t, err)

	// Boundary passes exactly through the x = 0.5 column.
	err = l.ClipToArea([]geom.Polygonal{square(0.5, -2, 4)}, Write)
	require.NoError(t, err)

	if got := l.NumTurbines(); got != 8 {
		t.Errorf("NumTurbines() = %d, want 8 (boundary points kept)", got)
	}
}

func TestClipToAreaInvalidInput(t *testing.T) {
	l, err := New(testGrid())
	require.NoError(t, err)

	if err := l.ClipToArea([]geom.Polygonal{square(0, 0, 2)}, Mode("x")); err == nil {
		t.Error("expected error for invalid mode")
	}
	if err := l.ClipToArea(nil, Write); err == nil {
		t.Error("expected error for empty area list")
	}
}

func TestAvoidExclusions(t *testing.T) {
	l, err := New(testGrid())
	require.NoError(t, err)

	err = l.AvoidExclusions([]geom.Polygonal{square(0, 0, 2)}, Write)
	require.NoError(t, err)

	if got := l.NumTurbines(); got != 12 {
		t.Errorf("NumTurbines() = %d, want 12", got)
	}
	for _, p := range l.Points() {
		if p.X > 0 && p.Y > 0 {
			t.Errorf("point %v inside exclusion", p)
		}
	}

	// Appending a second zone removes another quadrant.
	err = l.AvoidExclusions([]geom.Polygonal{square(-2, -2, 2)}, Append)
	require.NoError(t, err)
	if got := l.NumTurbines(); got != 8 {
		t.Errorf("NumTurbines() after append = %d, want 8", got)
	}
}

func TestConstraintsCommute(t *testing.T) {
	area := []geom.Polygonal{square(-2, -2, 4)}
	excl := []geom.Polygonal{square(0, 0, 2)}

	a, err := New(testGrid())
	require.NoError(t, err)
	require.NoError(t, a.ClipToArea(area, Write))
	require.NoError(t, a.AvoidExclusions(excl, Write))

	b, err := New(testGrid())
	require.NoError(t, err)
	require.NoError(t, b.AvoidExclusions(excl, Write))
	require.NoError(t, b.ClipToArea(area, Write))

	require.Equal(t, a.Points(), b.Points())
}

// depthSource is a bathymetry fixture: a 4x4 cell raster covering
// [-2,2]x[-2,2] whose west half is 10 m deep, east half 100 m deep,
// except the northeast corner cell which has no data.
func depthSource() *raster.GridSource {
	vals := make([]float64, 16)
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			d := 10.0
			if col >= 2 {
				d = 100.0
			}
			vals[row*4+col] = d
		}
	}
	vals[3*4+3] = math.NaN()
	return &raster.GridSource{
		X0: -2, Y0: -2, Dx: 1, Dy: 1, Nx: 4, Ny: 4, Values: vals,
	}
}

func TestApplyBathymetry(t *testing.T) {
	l, err := New(testGrid())
	require.NoError(t, err)

	err = l.ApplyBathymetry(depthSource(), Limits{Min: 0, Max: 60}, DepthsPositive, false)
	require.NoError(t, err)

	// West half passes the limit, plus the kept no-data corner.
	if got := l.NumTurbines(); got != 9 {
		t.Errorf("NumTurbines() = %d, want 9", got)
	}
	if !l.HasBathymetry() {
		t.Error("HasBathymetry() = false after ApplyBathymetry")
	}
}

func TestApplyBathymetryDropNA(t *testing.T) {
	l, err := New(testGrid())
	require.NoError(t, err)

	err = l.ApplyBathymetry(depthSource(), Limits{Min: 0, Max: 60}, DepthsPositive, true)
	require.NoError(t, err)

	if got := l.NumTurbines(); got != 8 {
		t.Errorf("NumTurbines() = %d, want 8", got)
	}
}

func TestApplyBathymetryNegativeSign(t *testing.T) {
	src := depthSource()
	for i := range src.Values {
		src.Values[i] = -src.Values[i]
	}

	l, err := New(testGrid())
	require.NoError(t, err)
	err = l.ApplyBathymetry(src, Limits{Min: 0, Max: 60}, DepthsNegative, true)
	require.NoError(t, err)

	if got := l.NumTurbines(); got != 8 {
		t.Errorf("NumTurbines() = %d, want 8", got)
	}
}

func TestApplyBathymetryInvalidSign(t *testing.T) {
	l, err := New(testGrid())
	require.NoError(t, err)
	if err := l.ApplyBathymetry(depthSource(), DefaultDepthLimits, Sign("x"), false); err == nil {
		t.Error("expected error for invalid sign")
	}
}

func TestResets(t *testing.T) {
	l, err := New(testGrid())
	require.NoError(t, err)

	require.NoError(t, l.ClipToArea([]geom.Polygonal{square(-2, -2, 4)}, Write))
	require.NoError(t, l.AvoidExclusions([]geom.Polygonal{square(-2, 0, 2)}, Write))
	require.NoError(t, l.ApplyBathymetry(depthSource(), Limits{Min: 0, Max: 60}, DepthsPositive, true))

	// Shallow west half minus its excluded northern quadrant.
	require.Equal(t, 4, l.NumTurbines())

	// Dropping the exclusion recovers the shallow excluded points while
	// area and bathymetry still apply.
	l.ResetExclusion()
	require.Equal(t, 8, l.NumTurbines())

	l.ResetBathymetry()
	require.Equal(t, 16, l.NumTurbines())

	l.ResetArea()
	require.Equal(t, 16, l.NumTurbines())
	if l.IsConstrained() {
		t.Error("IsConstrained() = true after all resets")
	}
}

func TestResetGeom(t *testing.T) {
	l, err := New(testGrid(),
		WithAreas(square(0, 0, 2)),
		WithExclusions(square(0.9, 0.9, 2)),
	)
	require.NoError(t, err)
	require.Equal(t, 3, l.NumTurbines())

	l.ResetGeom()
	require.Equal(t, 16, l.NumTurbines())
	if l.IsConstrained() {
		t.Error("IsConstrained() = true after ResetGeom")
	}
}

func TestXY(t *testing.T) {
	l, err := FromPoints([]geom.Point{{X: 1, Y: 2}, {X: 3, Y: 4}})
	require.NoError(t, err)
	require.Equal(t, []float64{1, 3}, l.X())
	require.Equal(t, []float64{2, 4}, l.Y())
	require.Equal(t, geom.MultiPoint{{X: 1, Y: 2}, {X: 3, Y: 4}}, l.MultiPoint())
}

func flatTurbine() *turbine.Turbine {
	speeds := make([]float64, 101)
	powers := make([]float64, 101)
	for i := range speeds {
		speeds[i] = float64(i)
		powers[i] = 1e6
	}
	return &turbine.Turbine{Name: "flat", RotorDiameter: 100, WindSpeeds: speeds, Power: powers}
}

func TestAEP(t *testing.T) {
	l, err := FromPoints(
		[]geom.Point{{X: 0, Y: 0}, {X: 500, Y: 0}, {X: 1000, Y: 0}},
		WithTurbine(flatTurbine()),
	)
	require.NoError(t, err)

	got, err := l.AEP(9, 2, "gwh")
	require.NoError(t, err)

	// Each turbine at constant 1 MW yields 8.766 GWh over a year.
	want := 3 * 8.766
	if math.Abs(got-want) > 0.2 {
		t.Errorf("AEP = %f, want about %f", got, want)
	}
}

func TestAEPErrors(t *testing.T) {
	noTurbine, err := FromPoints([]geom.Point{{X: 0, Y: 0}})
	require.NoError(t, err)
	if _, err := noTurbine.AEP(9, 2, "gwh"); err == nil {
		t.Error("expected error for layout without a turbine")
	}

	l, err := FromPoints([]geom.Point{{X: 0, Y: 0}}, WithTurbine(flatTurbine()))
	require.NoError(t, err)
	if _, err := l.AEP(9, 2, "joules"); err == nil {
		t.Error("expected error for invalid unit")
	}
	if _, err := l.AEP(0, 2, "gwh"); err == nil {
		t.Error("expected error for non-positive Weibull scale")
	}
}

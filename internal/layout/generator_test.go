package layout

import (
	"context"
	"testing"

	"github.com/ctessum/geom"
	"github.com/stretchr/testify/require"
)

func TestGeneratorCombinations(t *testing.T) {
	gen := &GriddedGenerator{
		Base:     testGrid(),
		RowSteps: []float64{1, 2, 3},
		ColSteps: []float64{1, 2},
		Angles:   []float64{0, 45},
	}
	if got := gen.Combinations(); got != 12 {
		t.Errorf("Combinations() = %d, want 12", got)
	}
	if got := len(gen.Grids()); got != 12 {
		t.Errorf("len(Grids()) = %d, want 12", got)
	}
}

func TestGeneratorGridsOrder(t *testing.T) {
	gen := &GriddedGenerator{
		Base:     testGrid(),
		RowSteps: []float64{1, 2},
		Angles:   []float64{0, 90},
	}
	grids := gen.Grids()
	require.Len(t, grids, 4)

	// Row steps vary slowest, angles fastest.
	wantRowSteps := []float64{1, 1, 2, 2}
	wantAngles := []float64{0, 90, 0, 90}
	for i, g := range grids {
		if g.RowStep != wantRowSteps[i] || g.Angle != wantAngles[i] {
			t.Errorf("grids[%d] = rowStep %v angle %v, want rowStep %v angle %v",
				i, g.RowStep, g.Angle, wantRowSteps[i], wantAngles[i])
		}
		// Unswept parameters inherit from the base grid.
		if g.ColStep != 1 || g.NRows != 4 {
			t.Errorf("grids[%d] did not inherit base parameters: %+v", i, g)
		}
	}
}

func TestGeneratorGenerate(t *testing.T) {
	gen := &GriddedGenerator{
		Base:   testGrid(),
		Angles: []float64{0, 30, 60, 90},
		Scales: []float64{1, 2},
	}
	results, err := gen.Generate(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 8)

	// Results keep the deterministic sweep order.
	grids := gen.Grids()
	for i, r := range results {
		if r.Grid != grids[i] {
			t.Errorf("results[%d].Grid = %+v, want %+v", i, r.Grid, grids[i])
		}
		if r.Layout.NumTurbines() != 16 {
			t.Errorf("results[%d] has %d turbines, want 16", i, r.Layout.NumTurbines())
		}
	}
}

func TestGeneratorTargetCount(t *testing.T) {
	// Scaled-up grids spill out of the fixed clip area, changing the
	// turbine count per candidate.
	gen := &GriddedGenerator{
		Base:        testGrid(),
		Scales:      []float64{1, 10},
		Options:     []Option{WithAreas(square(-2, -2, 4))},
		TargetCount: 16,
	}
	results, err := gen.Generate(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	if results[0].Grid.Scale != 1 {
		t.Errorf("kept grid has scale %v, want 1", results[0].Grid.Scale)
	}
}

func TestGeneratorInvalidBase(t *testing.T) {
	base := testGrid()
	base.NCols = 0
	gen := &GriddedGenerator{Base: base}
	if _, err := gen.Generate(context.Background()); err == nil {
		t.Fatal("expected error for invalid base grid")
	}
}

func TestGeneratorCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := &GriddedGenerator{
		Base:   testGrid(),
		Angles: Range{Min: 0, Max: 89, Step: 1}.Values(),
		Scales: []float64{1, 2, 3, 4},
	}
	if _, err := gen.Generate(ctx); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestGeneratorOrigins(t *testing.T) {
	gen := &GriddedGenerator{
		Base:    testGrid(),
		Origins: []geom.Point{{X: 0, Y: 0}, {X: 100, Y: 100}},
	}
	results, err := gen.Generate(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)

	p0 := results[0].Layout.Points()[0]
	p1 := results[1].Layout.Points()[0]
	if p1.X-p0.X != 100 || p1.Y-p0.Y != 100 {
		t.Errorf("origin shift not applied: %v vs %v", p0, p1)
	}
}

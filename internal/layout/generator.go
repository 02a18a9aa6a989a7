package layout

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/ctessum/geom"

	"github.com/layowt/layowt/internal/grid"
)

// GriddedGenerator sweeps grid parameter combinations and produces a
// constrained layout for each. Parameter slices left empty inherit the
// value from Base.
type GriddedGenerator struct {
	// Base supplies the fixed parameters (row/column counts, offsets)
	// and the defaults for any unswept parameter.
	Base grid.Grid

	RowSteps []float64
	ColSteps []float64
	Angles   []float64
	XShears  []float64
	YShears  []float64
	Origins  []geom.Point
	Scales   []float64

	// Options are applied to every candidate layout.
	Options []Option

	// TargetCount, when positive, discards candidates whose constrained
	// layout does not hold exactly this many turbines.
	TargetCount int
}

// Result pairs a parameter combination with the layout it produced.
type Result struct {
	Grid   grid.Grid
	Layout *Layout
}

func orDefaultF(vals []float64, def float64) []float64 {
	if len(vals) == 0 {
		return []float64{def}
	}
	return vals
}

func orDefaultP(vals []geom.Point, def geom.Point) []geom.Point {
	if len(vals) == 0 {
		return []geom.Point{def}
	}
	return vals
}

// Combinations returns the number of parameter combinations the
// generator will sweep.
func (g *GriddedGenerator) Combinations() int {
	n := len(orDefaultF(g.RowSteps, g.Base.RowStep))
	n *= len(orDefaultF(g.ColSteps, g.Base.ColStep))
	n *= len(orDefaultF(g.Angles, g.Base.Angle))
	n *= len(orDefaultF(g.XShears, g.Base.XShear))
	n *= len(orDefaultF(g.YShears, g.Base.YShear))
	n *= len(orDefaultP(g.Origins, g.Base.Origin))
	n *= len(orDefaultF(g.Scales, g.Base.Scale))
	return n
}

// Grids returns every grid in the sweep, in deterministic order: row
// steps vary slowest, then column steps, angles, x shears, y shears,
// origins, and scales fastest.
func (g *GriddedGenerator) Grids() []grid.Grid {
	rowSteps := orDefaultF(g.RowSteps, g.Base.RowStep)
	colSteps := orDefaultF(g.ColSteps, g.Base.ColStep)
	angles := orDefaultF(g.Angles, g.Base.Angle)
	xShears := orDefaultF(g.XShears, g.Base.XShear)
	yShears := orDefaultF(g.YShears, g.Base.YShear)
	origins := orDefaultP(g.Origins, g.Base.Origin)
	scales := orDefaultF(g.Scales, g.Base.Scale)

	grids := make([]grid.Grid, 0, g.Combinations())
	for _, rs := range rowSteps {
		for _, cs := range colSteps {
			for _, a := range angles {
				for _, xs := range xShears {
					for _, ys := range yShears {
						for _, o := range origins {
							for _, s := range scales {
								cand := g.Base
								cand.RowStep = rs
								cand.ColStep = cs
								cand.Angle = a
								cand.XShear = xs
								cand.YShear = ys
								cand.Origin = o
								cand.Scale = s
								grids = append(grids, cand)
							}
						}
					}
				}
			}
		}
	}
	return grids
}

// Generate builds a layout for every parameter combination, filtered by
// TargetCount when set. Results keep the order of Grids regardless of
// which worker produced them.
func (g *GriddedGenerator) Generate(ctx context.Context) ([]Result, error) {
	if err := g.Base.Validate(); err != nil {
		return nil, fmt.Errorf("invalid base grid: %w", err)
	}
	grids := g.Grids()
	if len(grids) == 0 {
		return nil, fmt.Errorf("no parameter combinations to sweep")
	}

	type indexed struct {
		i   int
		res Result
		ok  bool
		err error
	}

	jobs := make(chan int)
	out := make(chan indexed, len(grids))

	workers := runtime.GOMAXPROCS(0)
	if workers > len(grids) {
		workers = len(grids)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				l, err := New(grids[i], g.Options...)
				if err != nil {
					out <- indexed{i: i, err: fmt.Errorf("grid %d: %w", i, err)}
					continue
				}
				keep := g.TargetCount <= 0 || l.NumTurbines() == g.TargetCount
				out <- indexed{i: i, res: Result{Grid: grids[i], Layout: l}, ok: keep}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range grids {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(out)
	}()

	slots := make([]*indexed, len(grids))
	var n int
	for r := range out {
		r := r
		if r.err != nil {
			return nil, r.err
		}
		slots[r.i] = &r
		n++
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n != len(grids) {
		return nil, fmt.Errorf("generation stopped after %d of %d grids", n, len(grids))
	}

	results := make([]Result, 0, len(grids))
	for _, s := range slots {
		if s.ok {
			results = append(results, s.res)
		}
	}
	return results, nil
}

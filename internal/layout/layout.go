// Package layout holds the project-scenario data structure for turbine
// layouts: a set of candidate positions constrained by buildable areas,
// exclusion zones, and water depth limits.
package layout

import (
	"fmt"
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"

	"github.com/layowt/layowt/internal/geo"
	"github.com/layowt/layowt/internal/grid"
	"github.com/layowt/layowt/internal/raster"
	"github.com/layowt/layowt/internal/turbine"
	"github.com/layowt/layowt/internal/units"
)

// Mode controls how new constraint geometries combine with existing ones.
type Mode string

const (
	// Append adds the new geometries to any existing constraint set.
	Append Mode = "a"
	// Write replaces the existing constraint set.
	Write Mode = "w"
)

func (m Mode) validate() error {
	if m != Append && m != Write {
		return fmt.Errorf("mode must be %q or %q, got %q", Append, Write, m)
	}
	return nil
}

// Sign declares whether a bathymetry raster stores water depths as
// negative or positive values.
type Sign string

const (
	DepthsNegative Sign = "-"
	DepthsPositive Sign = "+"
)

func (s Sign) factor() (float64, error) {
	switch s {
	case DepthsNegative:
		return -1, nil
	case DepthsPositive:
		return 1, nil
	}
	return 0, fmt.Errorf("sign must be %q or %q, got %q", DepthsNegative, DepthsPositive, s)
}

// Limits is a closed interval of acceptable water depths, in the raster's
// units after sign correction (positive down).
type Limits struct {
	Min, Max float64
}

// DefaultDepthLimits covers the range where fixed-bottom foundations are
// typically viable.
var DefaultDepthLimits = Limits{Min: 0, Max: 60}

// bathymetry records an applied depth constraint so it can be replayed
// when other constraints are reset.
type bathymetry struct {
	path   string // empty when applied from an already-open source
	source raster.Source
	limits Limits
	sign   Sign
	dropNA bool
}

// Layout is a project scenario: turbine positions plus the constraints
// that produced them. The raw positions set at construction never change;
// every constraint operation re-derives the active set from them.
type Layout struct {
	grid *grid.Grid // provenance, nil for layouts loaded from files

	raw    []geom.Point
	points []geom.Point

	area      geom.Polygonal
	exclusion geom.Polygonal
	bathy     *bathymetry

	turbine *turbine.Turbine
}

// Option configures a Layout under construction.
type Option func(*Layout) error

// WithAreas constrains the layout to the union of the given buildable
// areas.
func WithAreas(areas ...geom.Polygonal) Option {
	return func(l *Layout) error {
		l.area = geo.UnionAll(areas)
		return nil
	}
}

// WithExclusions removes positions falling inside the union of the given
// exclusion zones.
func WithExclusions(exclusions ...geom.Polygonal) Option {
	return func(l *Layout) error {
		l.exclusion = geo.UnionAll(exclusions)
		return nil
	}
}

// WithBathymetry applies a depth constraint from an open raster source.
func WithBathymetry(src raster.Source, limits Limits, sign Sign, dropNA bool) Option {
	return func(l *Layout) error {
		if _, err := sign.factor(); err != nil {
			return err
		}
		l.bathy = &bathymetry{source: src, limits: limits, sign: sign, dropNA: dropNA}
		return nil
	}
}

// WithBathymetryFile applies a depth constraint read from a raster file.
func WithBathymetryFile(path string, limits Limits, sign Sign, dropNA bool) Option {
	return func(l *Layout) error {
		src, err := raster.Open(path)
		if err != nil {
			return err
		}
		if err := WithBathymetry(src, limits, sign, dropNA)(l); err != nil {
			return err
		}
		l.bathy.path = path
		return nil
	}
}

// WithTurbine attaches a turbine definition to the layout.
func WithTurbine(t *turbine.Turbine) Option {
	return func(l *Layout) error {
		l.turbine = t
		return nil
	}
}

// WithWTG attaches a turbine read from a WAsP .wtg file.
func WithWTG(path string) Option {
	return func(l *Layout) error {
		t, err := turbine.FromWTG(path)
		if err != nil {
			return err
		}
		l.turbine = t
		return nil
	}
}

// New builds a layout from a grid, applying any constraint options.
func New(g grid.Grid, opts ...Option) (*Layout, error) {
	pts, err := g.Coords()
	if err != nil {
		return nil, err
	}
	l := &Layout{grid: &g, raw: pts}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}
	l.recompute()
	return l, nil
}

// FromPoints builds a layout from explicit positions.
func FromPoints(pts []geom.Point, opts ...Option) (*Layout, error) {
	l := &Layout{raw: append([]geom.Point(nil), pts...)}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}
	l.recompute()
	return l, nil
}

// recompute re-derives the active positions from the raw set and the
// current constraints. Constraints commute, so one application order
// serves every mutation path.
func (l *Layout) recompute() {
	pts := append([]geom.Point(nil), l.raw...)
	if l.area != nil {
		idx := newRegionIndex(l.area)
		kept := pts[:0]
		for _, p := range pts {
			if idx.contains(p) {
				kept = append(kept, p)
			}
		}
		pts = kept
	}
	if l.exclusion != nil {
		idx := newRegionIndex(l.exclusion)
		kept := pts[:0]
		for _, p := range pts {
			if !idx.contains(p) {
				kept = append(kept, p)
			}
		}
		pts = kept
	}
	if l.bathy != nil {
		pts = l.bathy.filter(pts)
	}
	l.points = pts
}

// ClipToArea constrains the layout to the union of the given areas. In
// Append mode the areas join any existing area constraint; in Write mode
// they replace it and positions previously removed by the old area are
// recovered where the remaining constraints allow.
func (l *Layout) ClipToArea(areas []geom.Polygonal, mode Mode) error {
	if err := mode.validate(); err != nil {
		return err
	}
	if !l.HasGeom() {
		return fmt.Errorf("layout has no geometry to clip")
	}
	u := geo.UnionAll(areas)
	if u == nil {
		return fmt.Errorf("no area geometries given")
	}
	if l.area != nil && mode == Append {
		l.area = l.area.Union(u)
	} else {
		l.area = u
	}
	l.recompute()
	return nil
}

// AvoidExclusions removes positions inside the union of the given
// exclusion zones, combined with any existing exclusions per mode.
func (l *Layout) AvoidExclusions(exclusions []geom.Polygonal, mode Mode) error {
	if err := mode.validate(); err != nil {
		return err
	}
	if !l.HasGeom() {
		return fmt.Errorf("layout has no geometry to clip")
	}
	u := geo.UnionAll(exclusions)
	if u == nil {
		return fmt.Errorf("no exclusion geometries given")
	}
	if l.exclusion != nil && mode == Append {
		l.exclusion = l.exclusion.Union(u)
	} else {
		l.exclusion = u
	}
	l.recompute()
	return nil
}

// ApplyBathymetry removes positions whose sampled water depth falls
// outside limits. Positions sampling NaN (outside the raster or no-data)
// are kept unless dropNA is set. The source is retained so the constraint
// survives resets of other constraints.
func (l *Layout) ApplyBathymetry(src raster.Source, limits Limits, sign Sign, dropNA bool) error {
	if _, err := sign.factor(); err != nil {
		return err
	}
	if !l.HasGeom() {
		return fmt.Errorf("layout has no geometry to filter")
	}
	l.bathy = &bathymetry{source: src, limits: limits, sign: sign, dropNA: dropNA}
	l.recompute()
	return nil
}

// LoadBathymetry opens a raster file and applies it as a depth
// constraint, recording the source path.
func (l *Layout) LoadBathymetry(path string, limits Limits, sign Sign, dropNA bool) error {
	src, err := raster.Open(path)
	if err != nil {
		return err
	}
	if err := l.ApplyBathymetry(src, limits, sign, dropNA); err != nil {
		return err
	}
	l.bathy.path = path
	return nil
}

func (b *bathymetry) filter(pts []geom.Point) []geom.Point {
	sign, _ := b.sign.factor()
	samples := b.source.Sample(pts)
	kept := pts[:0]
	for i, p := range pts {
		depth := samples[i] * sign
		switch {
		case math.IsNaN(depth):
			if !b.dropNA {
				kept = append(kept, p)
			}
		case depth >= b.limits.Min && depth <= b.limits.Max:
			kept = append(kept, p)
		}
	}
	return kept
}

// ResetArea removes the area constraint, recovering positions the
// remaining constraints allow.
func (l *Layout) ResetArea() {
	l.area = nil
	l.recompute()
}

// ResetExclusion removes the exclusion constraint, recovering positions
// the remaining constraints allow.
func (l *Layout) ResetExclusion() {
	l.exclusion = nil
	l.recompute()
}

// ResetBathymetry removes the depth constraint, recovering positions the
// remaining constraints allow.
func (l *Layout) ResetBathymetry() {
	l.bathy = nil
	l.recompute()
}

// ResetGeom restores the layout to its constructed state with no
// constraints.
func (l *Layout) ResetGeom() {
	l.area = nil
	l.exclusion = nil
	l.bathy = nil
	l.recompute()
}

// IsConstrained reports whether any area, exclusion or bathymetry
// constraint is active.
func (l *Layout) IsConstrained() bool {
	return l.area != nil || l.exclusion != nil || l.bathy != nil
}

// HasGeom reports whether the layout was constructed with any positions.
func (l *Layout) HasGeom() bool { return len(l.raw) > 0 }

// HasArea reports whether an area constraint is active.
func (l *Layout) HasArea() bool { return l.area != nil }

// HasExclusion reports whether an exclusion constraint is active.
func (l *Layout) HasExclusion() bool { return l.exclusion != nil }

// HasBathymetry reports whether a depth constraint is active.
func (l *Layout) HasBathymetry() bool { return l.bathy != nil }

// Grid returns the grid the layout was built from, or nil.
func (l *Layout) Grid() *grid.Grid { return l.grid }

// Area returns the active buildable-area union, or nil.
func (l *Layout) Area() geom.Polygonal { return l.area }

// Exclusion returns the active exclusion union, or nil.
func (l *Layout) Exclusion() geom.Polygonal { return l.exclusion }

// BathymetryPath returns the path of the applied bathymetry raster, or
// empty if none was loaded from a file.
func (l *Layout) BathymetryPath() string {
	if l.bathy == nil {
		return ""
	}
	return l.bathy.path
}

// Points returns the active turbine positions.
func (l *Layout) Points() []geom.Point {
	return append([]geom.Point(nil), l.points...)
}

// MultiPoint returns the active positions as a single geometry.
func (l *Layout) MultiPoint() geom.MultiPoint {
	return geom.MultiPoint(l.Points())
}

// X returns the x coordinates of the active positions.
func (l *Layout) X() []float64 {
	xs := make([]float64, len(l.points))
	for i, p := range l.points {
		xs[i] = p.X
	}
	return xs
}

// Y returns the y coordinates of the active positions.
func (l *Layout) Y() []float64 {
	ys := make([]float64, len(l.points))
	for i, p := range l.points {
		ys[i] = p.Y
	}
	return ys
}

// NumTurbines returns the number of active positions.
func (l *Layout) NumTurbines() int { return len(l.points) }

// Turbine returns the attached turbine definition, or nil.
func (l *Layout) Turbine() *turbine.Turbine { return l.turbine }

// LoadWTG attaches a turbine read from a WAsP .wtg file.
func (l *Layout) LoadWTG(path string) error {
	t, err := turbine.FromWTG(path)
	if err != nil {
		return err
	}
	l.turbine = t
	return nil
}

// AEP computes the gross annual energy production of the layout in a
// Weibull wind climate: the single-turbine yield times the number of
// active positions. Wake losses are out of scope.
func (l *Layout) AEP(weibullA, weibullK float64, unit string) (float64, error) {
	if l.turbine == nil {
		return 0, fmt.Errorf("layout has no turbine; call LoadWTG first")
	}
	if !units.IsValid(unit) {
		return 0, fmt.Errorf("unit must be one of %s, got %q", units.GetValidUnitsString(), unit)
	}
	perTurbine, err := turbine.WeibullAEP(l.turbine, weibullA, weibullK, unit)
	if err != nil {
		return 0, err
	}
	return perTurbine * float64(l.NumTurbines()), nil
}

// regionIndex answers point-in-region queries against a polygonal union,
// prefiltering candidate polygons with an r-tree.
type regionIndex struct {
	tree *rtree.Rtree
}

func newRegionIndex(p geom.Polygonal) *regionIndex {
	t := rtree.NewTree(25, 50)
	for _, poly := range p.Polygons() {
		t.Insert(poly)
	}
	return &regionIndex{tree: t}
}

// contains reports whether the point lies inside or on the boundary of
// the region.
func (ri *regionIndex) contains(pt geom.Point) bool {
	for _, s := range ri.tree.SearchIntersect(pt.Bounds()) {
		if pt.Within(s.(geom.Polygon)) != geom.Outside {
			return true
		}
	}
	return false
}

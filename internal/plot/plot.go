// Package plot renders turbine layouts to PNG images for quick visual
// inspection of sweep candidates.
package plot

import (
	"bytes"
	"fmt"
	"image/color"

	"github.com/ctessum/geom"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/layowt/layowt/internal/grid"
	"github.com/layowt/layowt/internal/layout"
)

var (
	turbineColor   = color.RGBA{G: 128, A: 255}
	areaColor      = color.RGBA{R: 200, A: 255}
	exclusionColor = color.RGBA{R: 128, G: 128, B: 128, A: 120}
)

// GridPNG renders the positions of a bare grid.
func GridPNG(g grid.Grid) ([]byte, error) {
	pts, err := g.Coords()
	if err != nil {
		return nil, err
	}
	p := plot.New()
	p.Title.Text = "grid"
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"

	if err := addTurbines(p, pts); err != nil {
		return nil, err
	}
	return render(p)
}

// LayoutPNG renders a layout's active positions with its area outlines
// and filled exclusion zones.
func LayoutPNG(l *layout.Layout) ([]byte, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("layout (%d turbines)", l.NumTurbines())
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"

	if area := l.Area(); area != nil {
		if err := addOutlines(p, area, areaColor); err != nil {
			return nil, err
		}
	}
	if excl := l.Exclusion(); excl != nil {
		if err := addFilled(p, excl, exclusionColor); err != nil {
			return nil, err
		}
	}
	if err := addTurbines(p, l.Points()); err != nil {
		return nil, err
	}
	return render(p)
}

func addTurbines(p *plot.Plot, pts []geom.Point) error {
	xys := make(plotter.XYs, len(pts))
	for i, pt := range pts {
		xys[i] = plotter.XY{X: pt.X, Y: pt.Y}
	}
	s, err := plotter.NewScatter(xys)
	if err != nil {
		return fmt.Errorf("failed to build scatter: %w", err)
	}
	s.GlyphStyle.Color = turbineColor
	s.GlyphStyle.Radius = vg.Points(2)
	p.Add(s)
	return nil
}

// addOutlines draws every ring of the polygonal as a closed line,
// exterior shells and holes alike.
func addOutlines(p *plot.Plot, poly geom.Polygonal, c color.Color) error {
	for _, pg := range poly.Polygons() {
		for _, ring := range pg {
			if len(ring) == 0 {
				continue
			}
			xys := make(plotter.XYs, 0, len(ring)+1)
			for _, pt := range ring {
				xys = append(xys, plotter.XY{X: pt.X, Y: pt.Y})
			}
			xys = append(xys, plotter.XY{X: ring[0].X, Y: ring[0].Y})
			line, err := plotter.NewLine(xys)
			if err != nil {
				return fmt.Errorf("failed to build outline: %w", err)
			}
			line.Color = c
			line.Width = vg.Points(1)
			p.Add(line)
		}
	}
	return nil
}

func addFilled(p *plot.Plot, poly geom.Polygonal, c color.Color) error {
	for _, pg := range poly.Polygons() {
		rings := make([]plotter.XYer, 0, len(pg))
		for _, ring := range pg {
			xys := make(plotter.XYs, len(ring))
			for i, pt := range ring {
				xys[i] = plotter.XY{X: pt.X, Y: pt.Y}
			}
			rings = append(rings, xys)
		}
		filled, err := plotter.NewPolygon(rings...)
		if err != nil {
			return fmt.Errorf("failed to build polygon: %w", err)
		}
		filled.Color = c
		filled.LineStyle.Color = c
		p.Add(filled)
	}
	return nil
}

func render(p *plot.Plot) ([]byte, error) {
	wt, err := p.WriterTo(8*vg.Inch, 8*vg.Inch, "png")
	if err != nil {
		return nil, fmt.Errorf("failed to render plot: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

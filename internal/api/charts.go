package api

import (
	"bytes"
	"fmt"
	"math"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/layowt/layowt/internal/httputil"
)

// chartLayout renders an interactive scatter page for a stored layout.
func (s *Server) chartLayout(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.loadLayout(w, r)
	if !ok {
		return
	}

	data := make([]opts.ScatterData, 0, len(rec.Points))
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, p := range rec.Points {
		data = append(data, opts.ScatterData{Value: []interface{}{p.X, p.Y}})
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}

	// Pad the axes so edge turbines are not clipped by the frame.
	var padX, padY float64
	if len(rec.Points) > 0 {
		padX = (maxX-minX)*0.05 + 1
		padY = (maxY-minY)*0.05 + 1
	} else {
		minX, maxX, minY, maxY = -1, 1, -1, 1
	}

	subtitle := fmt.Sprintf("n_wtg=%d", rec.NumTurbines)
	if rec.AEPUnits != "" {
		subtitle = fmt.Sprintf("%s aep=%.2f %s", subtitle, rec.AEP, rec.AEPUnits)
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "layout " + rec.Name, Width: "900px", Height: "900px",
		}),
		charts.WithTitleOpts(opts.Title{Title: "layout " + rec.Name, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: minX - padX, Max: maxX + padX, Name: "x (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: minY - padY, Max: maxY + padY, Name: "y (m)", NameLocation: "middle", NameGap: 30}),
	)
	scatter.AddSeries("turbines", data,
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		httputil.InternalServerError(w, "failed to render chart")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

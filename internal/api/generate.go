package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ctessum/geom"

	"github.com/layowt/layowt/internal/db"
	"github.com/layowt/layowt/internal/geo"
	"github.com/layowt/layowt/internal/grid"
	"github.com/layowt/layowt/internal/httputil"
	"github.com/layowt/layowt/internal/layout"
	"github.com/layowt/layowt/internal/monitoring"
	"github.com/layowt/layowt/internal/raster"
	"github.com/layowt/layowt/internal/security"
	"github.com/layowt/layowt/internal/turbine"
)

// GenerateRequest describes a gridded generation run. The sweep
// parameters are "min:max:step" range specs; empty specs hold the base
// grid's value fixed.
type GenerateRequest struct {
	Name string `json:"name"`

	NRows     int  `json:"n_rows"`
	NCols     int  `json:"n_cols"`
	RowOffset bool `json:"row_offset"`
	ColOffset bool `json:"col_offset"`

	RowSteps string       `json:"row_steps,omitempty"`
	ColSteps string       `json:"col_steps,omitempty"`
	Angles   string       `json:"angles,omitempty"`
	XShears  string       `json:"x_shears,omitempty"`
	YShears  string       `json:"y_shears,omitempty"`
	Scales   []float64    `json:"scales,omitempty"`
	Origins  []geom.Point `json:"origins,omitempty"`

	TargetCount int `json:"n_wtg,omitempty"`

	// Optional constraint inputs, as paths readable by the server.
	AreaShapefile      string  `json:"area_shapefile,omitempty"`
	ExclusionShapefile string  `json:"exclusion_shapefile,omitempty"`
	BathymetryPath string  `json:"bathymetry_path,omitempty"`
	DepthMin       float64 `json:"depth_min,omitempty"`
	DepthMax       float64 `json:"depth_max,omitempty"`

	// DepthSign is "-" when the raster stores depths below sea level as
	// negative values, "+" when it stores them positive. Defaults to "-",
	// the common bathymetry convention.
	DepthSign string `json:"depth_sign,omitempty"`

	// Optional yield assessment. All three must be set together.
	WTGPath  string  `json:"wtg_path,omitempty"`
	WeibullA float64 `json:"weibull_a,omitempty"`
	WeibullK float64 `json:"weibull_k,omitempty"`
	AEPUnits string  `json:"aep_units,omitempty"`
}

// runState tracks the single in-flight generation run.
type runState struct {
	State        string     `json:"state"` // running, complete, error
	Name         string     `json:"name"`
	Combinations int        `json:"combinations"`
	Saved        int        `json:"saved"`
	Error        string     `json:"error,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

func (req *GenerateRequest) generator() (*layout.GriddedGenerator, error) {
	base := grid.Default()
	base.NRows = req.NRows
	base.NCols = req.NCols
	base.RowOffset = req.RowOffset
	base.ColOffset = req.ColOffset

	gen := &layout.GriddedGenerator{
		Base:        base,
		Scales:      req.Scales,
		Origins:     req.Origins,
		TargetCount: req.TargetCount,
	}

	for _, p := range []struct {
		spec string
		dst  *[]float64
	}{
		{req.RowSteps, &gen.RowSteps},
		{req.ColSteps, &gen.ColSteps},
		{req.Angles, &gen.Angles},
		{req.XShears, &gen.XShears},
		{req.YShears, &gen.YShears},
	} {
		if p.spec == "" {
			continue
		}
		r, err := layout.ParseRange(p.spec)
		if err != nil {
			return nil, err
		}
		*p.dst = r.Values()
	}

	var opts []layout.Option
	if req.AreaShapefile != "" {
		polys, err := geo.PolygonsFromShapefile(req.AreaShapefile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, layout.WithAreas(polys...))
	}
	if req.ExclusionShapefile != "" {
		polys, err := geo.PolygonsFromShapefile(req.ExclusionShapefile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, layout.WithExclusions(polys...))
	}
	if req.BathymetryPath != "" {
		src, err := raster.Open(req.BathymetryPath)
		if err != nil {
			return nil, err
		}
		limits := layout.Limits{Min: req.DepthMin, Max: req.DepthMax}
		if limits == (layout.Limits{}) {
			limits = layout.DefaultDepthLimits
		}
		sign := layout.Sign(req.DepthSign)
		if sign == "" {
			sign = layout.DepthsNegative
		}
		opts = append(opts, layout.WithBathymetry(src, limits, sign, false))
	}
	if req.WTGPath != "" {
		// Parse once rather than per candidate.
		t, err := turbine.FromWTG(req.WTGPath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, layout.WithTurbine(t))
	}
	gen.Options = opts
	return gen, nil
}

func (s *Server) startGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, "invalid request body: "+err.Error())
		return
	}

	for _, path := range []string{req.AreaShapefile, req.ExclusionShapefile, req.BathymetryPath, req.WTGPath} {
		if path == "" {
			continue
		}
		if err := security.ValidateDataPath(path, s.DataDir); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
	}

	gen, err := req.generator()
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if err := gen.Base.Validate(); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if req.WTGPath != "" && !(req.WeibullA > 0 && req.WeibullK > 0) {
		httputil.BadRequest(w, "weibull_a and weibull_k must be positive when wtg_path is set")
		return
	}

	s.mu.Lock()
	if s.run != nil && s.run.State == "running" {
		s.mu.Unlock()
		httputil.WriteJSONError(w, http.StatusConflict, "a generation run is already in progress")
		return
	}
	state := &runState{
		State:        "running",
		Name:         req.Name,
		Combinations: gen.Combinations(),
		StartedAt:    time.Now(),
	}
	s.run = state
	resp := *state
	s.mu.Unlock()

	go s.runGenerate(gen, req, state)

	httputil.WriteJSON(w, http.StatusAccepted, resp)
}

func (s *Server) runGenerate(gen *layout.GriddedGenerator, req GenerateRequest, state *runState) {
	var err error
	// A panic in the run must land in the run state, not kill the server.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("generation run panicked: %v", r)
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		now := time.Now()
		state.FinishedAt = &now
		if err != nil {
			state.State = "error"
			state.Error = err.Error()
			monitoring.Logf("generate %q failed: %v", req.Name, err)
			return
		}
		state.State = "complete"
		monitoring.Logf("generate %q saved %d of %d layouts", req.Name, state.Saved, state.Combinations)
	}()
	err = s.executeGenerate(gen, req, state)
}

func (s *Server) executeGenerate(gen *layout.GriddedGenerator, req GenerateRequest, state *runState) error {
	results, err := gen.Generate(context.Background())
	if err != nil {
		return err
	}

	for i, res := range results {
		rec := db.StoredLayout{
			Name:        fmt.Sprintf("%s-%04d", req.Name, i),
			NumTurbines: res.Layout.NumTurbines(),
			GridParams:  &res.Grid,
			Points:      res.Layout.Points(),
		}
		if req.WTGPath != "" {
			aep, err := res.Layout.AEP(req.WeibullA, req.WeibullK, req.AEPUnits)
			if err != nil {
				return err
			}
			rec.AEP = aep
			rec.AEPUnits = req.AEPUnits
		}
		if _, err := s.db.SaveLayout(rec); err != nil {
			return err
		}
		s.mu.Lock()
		state.Saved++
		s.mu.Unlock()
	}
	return nil
}

func (s *Server) generateStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.run == nil {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"state": "idle"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, s.run)
}

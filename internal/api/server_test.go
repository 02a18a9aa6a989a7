package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ctessum/geom"
	"github.com/stretchr/testify/require"

	"github.com/layowt/layowt/internal/db"
	"github.com/layowt/layowt/internal/grid"
	"github.com/layowt/layowt/internal/layout"
)

func testServer(t *testing.T) (*Server, *db.DB) {
	t.Helper()
	database, err := db.NewDB(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return NewServer(database), database
}

func saveSample(t *testing.T, database *db.DB) string {
	t.Helper()
	g := grid.Default()
	id, err := database.SaveLayout(db.StoredLayout{
		Name:        "sample",
		NumTurbines: 2,
		GridParams:  &g,
		Points:      []geom.Point{{X: 0, Y: 0}, {X: 100, Y: 0}},
		AEP:         50,
		AEPUnits:    "gwh",
	})
	require.NoError(t, err)
	return id
}

func doRequest(t *testing.T, s *Server, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.ServeMux().ServeHTTP(rec, req)
	return rec
}

func TestListLayoutsEmpty(t *testing.T) {
	s, _ := testServer(t)
	rec := doRequest(t, s, http.MethodGet, "/api/layouts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "[]\n", rec.Body.String())
}

func TestListLayouts(t *testing.T) {
	s, database := testServer(t)
	saveSample(t, database)
	saveSample(t, database)

	rec := doRequest(t, s, http.MethodGet, "/api/layouts", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got []db.StoredLayout
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
}

func TestGetLayout(t *testing.T) {
	s, database := testServer(t)
	id := saveSample(t, database)

	rec := doRequest(t, s, http.MethodGet, "/api/layouts/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got db.StoredLayout
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, id, got.ID)
	require.Equal(t, 2, got.NumTurbines)
}

func TestGetLayoutNotFound(t *testing.T) {
	s, _ := testServer(t)
	rec := doRequest(t, s, http.MethodGet, "/api/layouts/00000000-0000-0000-0000-000000000000", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetLayoutBadID(t *testing.T) {
	s, _ := testServer(t)
	rec := doRequest(t, s, http.MethodGet, "/api/layouts/not-a-uuid", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteLayout(t *testing.T) {
	s, database := testServer(t)
	id := saveSample(t, database)

	rec := doRequest(t, s, http.MethodDelete, "/api/layouts/"+id, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, s, http.MethodDelete, "/api/layouts/"+id, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlotLayout(t *testing.T) {
	s, database := testServer(t)
	id := saveSample(t, database)

	rec := doRequest(t, s, http.MethodGet, "/api/layouts/"+id+"/plot.png", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	require.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
}

func TestChartLayout(t *testing.T) {
	s, database := testServer(t)
	id := saveSample(t, database)

	rec := doRequest(t, s, http.MethodGet, "/debug/layouts/"+id+"/scatter", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	require.Contains(t, rec.Body.String(), "echarts")
}

func TestGenerateStatusIdle(t *testing.T) {
	s, _ := testServer(t)
	rec := doRequest(t, s, http.MethodGet, "/api/generate/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "idle")
}

func TestGenerateBadRequests(t *testing.T) {
	s, _ := testServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", "{"},
		{"invalid grid", `{"name":"x","n_rows":0,"n_cols":5}`},
		{"bad range spec", `{"name":"x","n_rows":3,"n_cols":3,"angles":"0:90"}`},
		{"wtg without weibull", `{"name":"x","n_rows":3,"n_cols":3,"wtg_path":"turbine.wtg"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, s, http.MethodPost, "/api/generate", []byte(tt.body))
			require.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func waitForRun(t *testing.T, s *Server) runState {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		rec := doRequest(t, s, http.MethodGet, "/api/generate/status", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var state runState
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
		if state.State != "running" {
			return state
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("generation run did not finish in time")
	return runState{}
}

func TestGenerateRun(t *testing.T) {
	s, database := testServer(t)

	body := `{
		"name": "sweep",
		"n_rows": 3,
		"n_cols": 3,
		"angles": "0:45:45",
		"scales": [1, 2]
	}`
	rec := doRequest(t, s, http.MethodPost, "/api/generate", []byte(body))
	require.Equal(t, http.StatusAccepted, rec.Code)

	state := waitForRun(t, s)
	require.Equal(t, "complete", state.State)
	require.Equal(t, 4, state.Combinations)
	require.Equal(t, 4, state.Saved)

	recs, err := database.Layouts()
	require.NoError(t, err)
	require.Len(t, recs, 4)
	for _, r := range recs {
		require.True(t, strings.HasPrefix(r.Name, "sweep-"), "name %q", r.Name)
		require.Equal(t, 9, r.NumTurbines)
		require.NotNil(t, r.GridParams)
	}
}

func TestVersion(t *testing.T) {
	s, _ := testServer(t)
	rec := doRequest(t, s, http.MethodGet, "/api/version", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "version")
}

func TestGeneratePathOutsideDataDir(t *testing.T) {
	s, _ := testServer(t)
	s.DataDir = t.TempDir()

	body := `{"name":"x","n_rows":3,"n_cols":3,"area_shapefile":"/etc/areas.shp"}`
	rec := doRequest(t, s, http.MethodPost, "/api/generate", []byte(body))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "data directory")
}

func TestGenerateMissingShapefile(t *testing.T) {
	s, _ := testServer(t)

	body := `{"name":"x","n_rows":3,"n_cols":3,"area_shapefile":"/does/not/exist.shp"}`
	rec := doRequest(t, s, http.MethodPost, "/api/generate", []byte(body))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunGenerateRecoversPanic(t *testing.T) {
	s, _ := testServer(t)
	state := &runState{State: "running", Name: "boom", StartedAt: time.Now()}
	s.run = state

	// A nil generator panics inside the run. The failure must land in the
	// run state rather than crash the server.
	s.runGenerate(nil, GenerateRequest{Name: "boom"}, state)

	s.mu.Lock()
	defer s.mu.Unlock()
	require.Equal(t, "error", state.State)
	require.Contains(t, state.Error, "panicked")
	require.NotNil(t, state.FinishedAt)
}

func TestGenerateDefaultDepthSign(t *testing.T) {
	// Bathymetry rasters commonly store depths below sea level as
	// negative values. With no depth_sign in the request a -30 m cell
	// must pass the default 0..60 m depth window.
	asc := filepath.Join(t.TempDir(), "depths.asc")
	data := "ncols 1\nnrows 1\nxllcorner -10\nyllcorner -10\ncellsize 20\nNODATA_value -9999\n-30\n"
	require.NoError(t, os.WriteFile(asc, []byte(data), 0o644))

	req := GenerateRequest{Name: "bathy", NRows: 2, NCols: 2, BathymetryPath: asc}
	gen, err := req.generator()
	require.NoError(t, err)

	l, err := layout.New(gen.Base, gen.Options...)
	require.NoError(t, err)
	require.Equal(t, 4, l.NumTurbines())
}

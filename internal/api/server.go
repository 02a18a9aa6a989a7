// Package api exposes stored layouts and gridded generation runs over
// HTTP.
package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/layowt/layowt/internal/db"
	"github.com/layowt/layowt/internal/httputil"
	"github.com/layowt/layowt/internal/layout"
	"github.com/layowt/layowt/internal/monitoring"
	"github.com/layowt/layowt/internal/plot"
	"github.com/layowt/layowt/internal/version"
)

type Server struct {
	db *db.DB

	// DataDir, when non-empty, restricts file paths in generation
	// requests to this directory.
	DataDir string

	mu  sync.Mutex
	run *runState
}

func NewServer(database *db.DB) *Server {
	return &Server{db: database}
}

// ServeMux returns the route table for the server.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/layouts", s.listLayouts)
	mux.HandleFunc("GET /api/layouts/{id}", s.getLayout)
	mux.HandleFunc("DELETE /api/layouts/{id}", s.deleteLayout)
	mux.HandleFunc("GET /api/layouts/{id}/plot.png", s.plotLayout)
	mux.HandleFunc("GET /debug/layouts/{id}/scatter", s.chartLayout)
	mux.HandleFunc("POST /api/generate", s.startGenerate)
	mux.HandleFunc("GET /api/generate/status", s.generateStatus)
	mux.HandleFunc("GET /api/version", s.showVersion)
	return mux
}

func (s *Server) showVersion(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"version":    version.Version,
		"git_sha":    version.GitSHA,
		"build_time": version.BuildTime,
	})
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs method, path, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf("[%d] %s %s %vms",
			lrw.statusCode, r.Method, r.RequestURI,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) listLayouts(w http.ResponseWriter, r *http.Request) {
	recs, err := s.db.Layouts()
	if err != nil {
		httputil.InternalServerError(w, "failed to list layouts")
		return
	}
	if recs == nil {
		recs = []db.StoredLayout{}
	}
	httputil.WriteJSON(w, http.StatusOK, recs)
}

// loadLayout fetches the record for the {id} path value, writing the
// error response itself when the lookup fails.
func (s *Server) loadLayout(w http.ResponseWriter, r *http.Request) (db.StoredLayout, bool) {
	id := r.PathValue("id")
	rec, err := s.db.Layout(id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		httputil.NotFound(w, "layout "+id+" not found")
		return db.StoredLayout{}, false
	case err != nil:
		httputil.BadRequest(w, err.Error())
		return db.StoredLayout{}, false
	}
	return rec, true
}

func (s *Server) getLayout(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.loadLayout(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

func (s *Server) deleteLayout(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := s.db.DeleteLayout(id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		httputil.NotFound(w, "layout "+id+" not found")
	case err != nil:
		httputil.BadRequest(w, err.Error())
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) plotLayout(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.loadLayout(w, r)
	if !ok {
		return
	}
	// Constraint geometries are not persisted, so the render carries
	// positions only.
	l, err := layout.FromPoints(rec.Points)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	png, err := plot.LayoutPNG(l)
	if err != nil {
		httputil.InternalServerError(w, "failed to render layout")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Write(png)
}

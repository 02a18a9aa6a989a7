// Package raster samples gridded bathymetry data at layout positions.
// Two on-disk formats are supported: NetCDF grids following the
// x0/y0/dx/dy attribute convention, and ESRI ASCII grids (.asc).
package raster

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ctessum/cdf"
	"github.com/ctessum/geom"
)

// Source supplies raster values at arbitrary coordinates.
type Source interface {
	// Sample returns the raster value at each point, NaN where a point
	// falls outside the raster extent or on a no-data cell.
	Sample(pts []geom.Point) []float64

	// Bounds returns the raster extent.
	Bounds() *geom.Bounds
}

// GridSource is a regular row-major raster held in memory. Row 0 is the
// southernmost row.
type GridSource struct {
	X0, Y0 float64 // lower-left corner
	Dx, Dy float64 // cell size, m
	Nx, Ny int
	Values []float64 // len Nx*Ny, NaN for no-data
}

// Sample returns the value of the cell containing each point.
func (g *GridSource) Sample(pts []geom.Point) []float64 {
	out := make([]float64, len(pts))
	for i, p := range pts {
		col := int(math.Floor((p.X - g.X0) / g.Dx))
		row := int(math.Floor((p.Y - g.Y0) / g.Dy))
		if col < 0 || col >= g.Nx || row < 0 || row >= g.Ny {
			out[i] = math.NaN()
			continue
		}
		out[i] = g.Values[row*g.Nx+col]
	}
	return out
}

// Bounds returns the raster extent.
func (g *GridSource) Bounds() *geom.Bounds {
	return &geom.Bounds{
		Min: geom.Point{X: g.X0, Y: g.Y0},
		Max: geom.Point{X: g.X0 + g.Dx*float64(g.Nx), Y: g.Y0 + g.Dy*float64(g.Ny)},
	}
}

// Open reads a raster file, dispatching on the file extension. NetCDF
// files are expected to carry the variable named "depth".
func Open(path string) (*GridSource, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".nc", ".ncf":
		return OpenNetCDF(path, "depth")
	case ".asc":
		return OpenASC(path)
	default:
		return nil, fmt.Errorf("unsupported raster format %q; supported: .nc, .ncf, .asc", ext)
	}
}

// OpenNetCDF reads one variable of a NetCDF raster. The file must carry
// global attributes x0, y0, dx and dy locating the grid, and the variable
// must be dimensioned (y, x).
func OpenNetCDF(path, varName string) (*GridSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening raster %s: %w", path, err)
	}
	defer f.Close()

	nc, err := cdf.Open(f)
	if err != nil {
		return nil, fmt.Errorf("reading netcdf %s: %w", path, err)
	}

	g := new(GridSource)
	for attr, dst := range map[string]*float64{"x0": &g.X0, "y0": &g.Y0, "dx": &g.Dx, "dy": &g.Dy} {
		v, ok := nc.Header.GetAttribute("", attr).([]float64)
		if !ok || len(v) == 0 {
			return nil, fmt.Errorf("netcdf %s: missing attribute %s", path, attr)
		}
		*dst = v[0]
	}

	dims := nc.Header.Lengths(varName)
	if len(dims) != 2 {
		return nil, fmt.Errorf("netcdf %s: variable %s must have 2 dimensions, has %d", path, varName, len(dims))
	}
	g.Ny, g.Nx = dims[0], dims[1]

	tmp := make([]float32, g.Nx*g.Ny)
	r := nc.Reader(varName, nil, nil)
	if _, err := r.Read(tmp); err != nil {
		return nil, fmt.Errorf("netcdf %s: reading %s: %w", path, varName, err)
	}
	g.Values = make([]float64, len(tmp))
	for i, v := range tmp {
		g.Values[i] = float64(v)
	}
	return g, nil
}

// OpenASC reads an ESRI ASCII grid. The header's NODATA_value cells are
// stored as NaN. ASCII grids are written north row first, so rows are
// flipped on load to keep row 0 southernmost.
func OpenASC(path string) (*GridSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening raster %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 1024*1024), 1024*1024)

	// Header lines are "key value" pairs; the data section starts at the
	// first line whose leading token parses as a number.
	header := make(map[string]float64)
	var firstDataLine string
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if _, err := strconv.ParseFloat(fields[0], 64); err == nil {
			firstDataLine = sc.Text()
			break
		}
		if len(fields) != 2 {
			return nil, fmt.Errorf("asc %s: malformed header line %q", path, sc.Text())
		}
		key := strings.ToLower(fields[0])
		val, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("asc %s: header %s: %w", path, key, err)
		}
		header[key] = val
	}
	for _, req := range []string{"ncols", "nrows", "xllcorner", "yllcorner", "cellsize"} {
		if _, ok := header[req]; !ok {
			return nil, fmt.Errorf("asc %s: missing header %s", path, req)
		}
	}

	g := new(GridSource)
	g.Nx = int(header["ncols"])
	g.Ny = int(header["nrows"])
	if g.Nx <= 0 || g.Ny <= 0 {
		return nil, fmt.Errorf("asc %s: invalid dimensions %dx%d", path, g.Nx, g.Ny)
	}
	cell, ok := header["cellsize"]
	if !ok || cell <= 0 {
		return nil, fmt.Errorf("asc %s: missing or invalid cellsize", path)
	}
	g.Dx, g.Dy = cell, cell
	g.X0 = header["xllcorner"]
	g.Y0 = header["yllcorner"]
	nodata, hasNodata := header["nodata_value"]

	g.Values = make([]float64, g.Nx*g.Ny)
	// File rows run north to south; store them south-up.
	row := g.Ny - 1
	col := 0
	store := func(line string) error {
		for _, tok := range strings.Fields(line) {
			if row < 0 {
				return fmt.Errorf("asc %s: more values than %dx%d cells", path, g.Nx, g.Ny)
			}
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return fmt.Errorf("asc %s: row %d: %w", path, g.Ny-1-row, err)
			}
			if hasNodata && v == nodata {
				v = math.NaN()
			}
			g.Values[row*g.Nx+col] = v
			col++
			if col == g.Nx {
				col = 0
				row--
			}
		}
		return nil
	}
	if err := store(firstDataLine); err != nil {
		return nil, err
	}
	for sc.Scan() {
		if err := store(sc.Text()); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("asc %s: %w", path, err)
	}
	if row != -1 || col != 0 {
		return nil, fmt.Errorf("asc %s: expected %d values, file ended early", path, g.Nx*g.Ny)
	}
	return g, nil
}

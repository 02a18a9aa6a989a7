// sweep runs a gridded layout generation from the command line, saving
// every candidate to the layout store and optionally rendering PNGs.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/layowt/layowt/internal/db"
	"github.com/layowt/layowt/internal/geo"
	"github.com/layowt/layowt/internal/grid"
	"github.com/layowt/layowt/internal/layout"
	"github.com/layowt/layowt/internal/plot"
	"github.com/layowt/layowt/internal/raster"
	"github.com/layowt/layowt/internal/turbine"
)

func main() {
	dbPath := flag.String("db", "layouts.db", "Path to the SQLite layout store")
	name := flag.String("name", "", "Run name (defaults to sweep-<timestamp>)")

	nRows := flag.Int("rows", 10, "Number of grid rows")
	nCols := flag.Int("cols", 10, "Number of grid columns")
	rowOffset := flag.Bool("row-offset", false, "Offset alternate rows by half a column step")
	colOffset := flag.Bool("col-offset", false, "Offset alternate columns by half a row step")

	rowSteps := flag.String("row-steps", "", "Row step sweep as min:max:step")
	colSteps := flag.String("col-steps", "", "Column step sweep as min:max:step")
	angles := flag.String("angles", "", "Rotation angle sweep as min:max:step (degrees clockwise)")
	xShears := flag.String("x-shears", "", "X shear sweep as min:max:step (degrees)")
	yShears := flag.String("y-shears", "", "Y shear sweep as min:max:step (degrees)")
	scales := flag.String("scales", "", "Scale factor sweep as min:max:step")

	targetCount := flag.Int("n-wtg", 0, "Keep only candidates with exactly this many turbines (0 keeps all)")

	areaShp := flag.String("area", "", "Buildable area shapefile")
	exclShp := flag.String("exclusions", "", "Exclusion zone shapefile")
	bathyPath := flag.String("bathymetry", "", "Bathymetry raster (.nc or .asc)")
	depthMin := flag.Float64("depth-min", layout.DefaultDepthLimits.Min, "Minimum acceptable water depth")
	depthMax := flag.Float64("depth-max", layout.DefaultDepthLimits.Max, "Maximum acceptable water depth")
	depthSign := flag.String("depth-sign", "-", "Raster depth sign convention: '-' for depths stored negative, '+' for positive")

	wtgPath := flag.String("wtg", "", "WAsP .wtg turbine file for yield assessment")
	weibullA := flag.Float64("weibull-a", 0, "Weibull scale parameter (m/s)")
	weibullK := flag.Float64("weibull-k", 0, "Weibull shape parameter")
	aepUnits := flag.String("aep-units", "gwh", "AEP output units")

	plotDir := flag.String("plot-dir", "", "Directory for per-candidate PNGs (empty disables plotting)")

	flag.Parse()

	if *name == "" {
		*name = "sweep-" + time.Now().Format("20060102_150405")
	}

	base := grid.Default()
	base.NRows = *nRows
	base.NCols = *nCols
	base.RowOffset = *rowOffset
	base.ColOffset = *colOffset
	if err := base.Validate(); err != nil {
		log.Fatalf("invalid grid: %v", err)
	}

	gen := &layout.GriddedGenerator{Base: base, TargetCount: *targetCount}
	for _, p := range []struct {
		spec string
		dst  *[]float64
	}{
		{*rowSteps, &gen.RowSteps},
		{*colSteps, &gen.ColSteps},
		{*angles, &gen.Angles},
		{*xShears, &gen.XShears},
		{*yShears, &gen.YShears},
		{*scales, &gen.Scales},
	} {
		if p.spec == "" {
			continue
		}
		r, err := layout.ParseRange(p.spec)
		if err != nil {
			log.Fatalf("invalid range spec %q: %v", p.spec, err)
		}
		*p.dst = r.Values()
	}

	opts, err := buildOptions(*areaShp, *exclShp, *bathyPath, *depthMin, *depthMax, *depthSign, *wtgPath)
	if err != nil {
		log.Fatal(err)
	}
	gen.Options = opts

	if *wtgPath != "" && !(*weibullA > 0 && *weibullK > 0) {
		log.Fatal("-weibull-a and -weibull-k must be positive when -wtg is set")
	}

	database, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("sweeping %d combinations", gen.Combinations())
	start := time.Now()
	results, err := gen.Generate(ctx)
	if err != nil {
		log.Fatalf("generation failed: %v", err)
	}
	log.Printf("generated %d candidate layouts in %v", len(results), time.Since(start).Round(time.Millisecond))

	if *plotDir != "" {
		if err := os.MkdirAll(*plotDir, 0755); err != nil {
			log.Fatalf("failed to create plot dir: %v", err)
		}
	}

	for i, res := range results {
		rec := db.StoredLayout{
			Name:        fmt.Sprintf("%s-%04d", *name, i),
			NumTurbines: res.Layout.NumTurbines(),
			GridParams:  &res.Grid,
			Points:      res.Layout.Points(),
		}
		if *wtgPath != "" {
			aep, err := res.Layout.AEP(*weibullA, *weibullK, *aepUnits)
			if err != nil {
				log.Fatalf("AEP for candidate %d: %v", i, err)
			}
			rec.AEP = aep
			rec.AEPUnits = *aepUnits
		}
		id, err := database.SaveLayout(rec)
		if err != nil {
			log.Fatalf("failed to save candidate %d: %v", i, err)
		}

		if *plotDir != "" {
			png, err := plot.LayoutPNG(res.Layout)
			if err != nil {
				log.Fatalf("failed to render candidate %d: %v", i, err)
			}
			file := filepath.Join(*plotDir, rec.Name+".png")
			if err := os.WriteFile(file, png, 0644); err != nil {
				log.Fatalf("failed to write %s: %v", file, err)
			}
		}

		log.Printf("saved %s as %s (n_wtg=%d)", rec.Name, id, rec.NumTurbines)
	}
}

func buildOptions(areaShp, exclShp, bathyPath string, depthMin, depthMax float64, depthSign, wtgPath string) ([]layout.Option, error) {
	var opts []layout.Option
	if areaShp != "" {
		polys, err := geo.PolygonsFromShapefile(areaShp)
		if err != nil {
			return nil, fmt.Errorf("failed to read area shapefile: %w", err)
		}
		opts = append(opts, layout.WithAreas(polys...))
	}
	if exclShp != "" {
		polys, err := geo.PolygonsFromShapefile(exclShp)
		if err != nil {
			return nil, fmt.Errorf("failed to read exclusion shapefile: %w", err)
		}
		opts = append(opts, layout.WithExclusions(polys...))
	}
	if bathyPath != "" {
		// Open once rather than per candidate.
		src, err := raster.Open(bathyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read bathymetry raster: %w", err)
		}
		limits := layout.Limits{Min: depthMin, Max: depthMax}
		opts = append(opts, layout.WithBathymetry(src, limits, layout.Sign(depthSign), false))
	}
	if wtgPath != "" {
		t, err := turbine.FromWTG(wtgPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read turbine file: %w", err)
		}
		opts = append(opts, layout.WithTurbine(t))
	}
	return opts, nil
}

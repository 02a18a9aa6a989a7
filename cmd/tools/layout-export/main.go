// layout-export dumps a stored layout to a CSV file or point shapefile
// for use in GIS tooling.
package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"

	"github.com/layowt/layowt/internal/db"
	"github.com/layowt/layowt/internal/layout"
)

var (
	dbPath   = flag.String("db", "layouts.db", "Path to the SQLite layout store")
	layoutID = flag.String("id", "", "Layout ID to export")
	outPath  = flag.String("out", "", "Output path (.csv or .shp)")
	list     = flag.Bool("list", false, "List stored layouts and exit")
)

func main() {
	flag.Parse()

	database, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	if *list {
		recs, err := database.Layouts()
		if err != nil {
			log.Fatalf("failed to list layouts: %v", err)
		}
		for _, rec := range recs {
			fmt.Printf("%s  %-30s  n_wtg=%-4d  %s\n",
				rec.ID, rec.Name, rec.NumTurbines, rec.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return
	}

	if *layoutID == "" || *outPath == "" {
		log.Fatal("both -id and -out are required (or use -list)")
	}

	rec, err := database.Layout(*layoutID)
	if err != nil {
		log.Fatalf("failed to load layout %s: %v", *layoutID, err)
	}

	l, err := layout.FromPoints(rec.Points)
	if err != nil {
		log.Fatalf("failed to rebuild layout: %v", err)
	}

	switch filepath.Ext(*outPath) {
	case ".csv":
		err = l.ToCSV(*outPath)
	case ".shp":
		err = l.ToShapefile(*outPath)
	default:
		log.Fatalf("unsupported output extension %q: want .csv or .shp", filepath.Ext(*outPath))
	}
	if err != nil {
		log.Fatalf("export failed: %v", err)
	}
	log.Printf("exported %d positions to %s", rec.NumTurbines, *outPath)
}

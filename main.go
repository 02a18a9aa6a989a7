package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/layowt/layowt/internal/api"
	"github.com/layowt/layowt/internal/db"
	"github.com/layowt/layowt/internal/version"
)

var (
	dbPath        = flag.String("db", "layouts.db", "Path to the SQLite layout store")
	listen        = flag.String("listen", ":8080", "Listen address")
	dataDir       = flag.String("data", "", "Restrict generation input files to this directory (empty allows any path)")
	migrationsDir = flag.String("migrations", "internal/db/migrations", "Path to the migrations directory")
	showVersion   = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("layowt %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	// The migrate subcommand manages the schema and exits.
	if flag.Arg(0) == "migrate" {
		runMigrate(flag.Args()[1:])
		return
	}

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	database, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	apiServer := api.NewServer(database)
	apiServer.DataDir = *dataDir

	srv := &http.Server{
		Addr:    *listen,
		Handler: api.LoggingMiddleware(apiServer.ServeMux()),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("server shutdown: %v", err)
		}
	}()

	log.Printf("listening on %s (db %s)", *listen, *dbPath)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server failed: %v", err)
	}
}

func runMigrate(args []string) {
	if len(args) < 1 {
		printMigrateHelp()
		os.Exit(1)
	}

	database, err := db.OpenDB(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	switch args[0] {
	case "up":
		if err := database.MigrateUp(*migrationsDir); err != nil {
			log.Fatalf("migrate up failed: %v", err)
		}
		log.Print("migrations applied")

	case "down":
		if err := database.MigrateDown(*migrationsDir); err != nil {
			log.Fatalf("migrate down failed: %v", err)
		}
		log.Print("rolled back one migration")

	case "status":
		version, dirty, err := database.MigrateVersion(*migrationsDir)
		if err != nil {
			log.Fatalf("migrate status failed: %v", err)
		}
		log.Printf("version %d, dirty=%v", version, dirty)

	case "force":
		if len(args) < 2 {
			log.Fatal("Usage: layowt migrate force <version>")
		}
		var version int
		if _, err := fmt.Sscanf(args[1], "%d", &version); err != nil {
			log.Fatalf("invalid version %q: %v", args[1], err)
		}
		if err := database.MigrateForce(*migrationsDir, version); err != nil {
			log.Fatalf("migrate force failed: %v", err)
		}
		log.Printf("forced version %d", version)

	default:
		printMigrateHelp()
		os.Exit(1)
	}
}

func printMigrateHelp() {
	fmt.Fprintln(os.Stderr, `Usage: layowt migrate <up|down|status|force> [version]`)
}

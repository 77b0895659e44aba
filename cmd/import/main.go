// Command import loads reference charts from a YAML fixture file into the
// SQLite database.
//
// Usage:
//
//	go run ./cmd/import -file data/references.yaml -db data/ganzhi.db
//	go run ./cmd/import -db data/ganzhi.db -export out.yaml
//
// This tool:
// 1. Creates/opens the SQLite database
// 2. Runs migrations to ensure schema is current
// 3. Parses and validates the fixture file
// 4. Upserts every chart in a single transaction
//
// The import is idempotent: a chart with the same date, time and zi rule is
// updated in place. With -export the stored charts are written back out as
// YAML instead.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/zapponejosh/ganzhi-api/internal/database"
	"github.com/zapponejosh/ganzhi-api/internal/fixtures"
)

func main() {
	// Parse command line flags
	filePath := flag.String("file", "data/references.yaml", "Path to fixture YAML file")
	dbPath := flag.String("db", "data/ganzhi.db", "Path to SQLite database")
	exportPath := flag.String("export", "", "Write stored charts to this YAML file instead of importing")
	check := flag.Bool("check", false, "Validate all stored charts after import and record the run")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	// Setup logger
	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))

	var err error
	if *exportPath != "" {
		err = runExport(*dbPath, *exportPath, logger)
	} else {
		err = run(*filePath, *dbPath, *check, logger)
	}
	if err != nil {
		logger.Error("import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("import complete")
}

func openDB(ctx context.Context, dbPath string, logger *slog.Logger) (*database.DB, error) {
	logger.Info("opening database", slog.String("path", dbPath))

	db, err := database.Open(database.DefaultConfig(dbPath), logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	migrated, err := db.Migrate(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("migrations complete", slog.Any("applied", migrated))

	return db, nil
}

func run(filePath, dbPath string, check bool, logger *slog.Logger) error {
	ctx := context.Background()
	startTime := time.Now()

	// =========================================================================
	// Step 1: Read and validate fixtures
	// =========================================================================
	logger.Info("reading fixture file", slog.String("path", filePath))

	list, err := fixtures.LoadFile(filePath)
	if err != nil {
		return err
	}
	logger.Info("parsed fixtures", slog.Int("charts", len(list)))

	// =========================================================================
	// Step 2: Open database and run migrations
	// =========================================================================
	db, err := openDB(ctx, dbPath, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	// =========================================================================
	// Step 3: Import charts in a transaction
	// =========================================================================
	logger.Info("starting import")

	var stats ImportStats
	err = db.WithTx(ctx, func(tx *database.Tx) error {
		return importCharts(ctx, tx, list, logger, &stats)
	})
	if err != nil {
		return fmt.Errorf("import data: %w", err)
	}

	// =========================================================================
	// Step 4: Verify import
	// =========================================================================
	total, err := db.CountReferences(ctx)
	if err != nil {
		return fmt.Errorf("count reference charts: %w", err)
	}

	elapsed := time.Since(startTime)
	logger.Info("import verified",
		slog.Int("stored", total),
		slog.Duration("elapsed", elapsed),
	)

	// Print summary
	fmt.Println()
	fmt.Println("=== Import Summary ===")
	fmt.Printf("Charts in file:      %d\n", len(list))
	fmt.Printf("Inserted:            %d\n", stats.Inserted)
	fmt.Printf("Updated:             %d\n", stats.Updated)
	fmt.Printf("Stored in database:  %d\n", total)
	fmt.Printf("Time elapsed:        %v\n", elapsed.Round(time.Millisecond))

	if !check {
		return nil
	}

	// =========================================================================
	// Step 5: Validate stored charts
	// =========================================================================
	refs, err := db.ListReferences(ctx)
	if err != nil {
		return err
	}
	summary := fixtures.NewChecker().Run("import", refs)
	if err := db.SaveRun(ctx, summary); err != nil {
		return fmt.Errorf("save validation run: %w", err)
	}

	fmt.Println()
	fmt.Println("=== Check Summary ===")
	fmt.Printf("Run ID:   %d\n", summary.Run.ID)
	fmt.Printf("Passed:   %d/%d\n", summary.Run.Passed, summary.Run.Total)
	for _, r := range summary.Results {
		switch {
		case r.Error != nil:
			fmt.Printf("  ERROR %s: %s\n", r.Label, *r.Error)
		case !r.Match:
			fmt.Printf("  FAIL  %s: expected %s, got %s\n", r.Label, r.Expected, r.Actual)
		}
	}

	if summary.Run.Failed+summary.Run.Errored > 0 {
		return fmt.Errorf("%d chart(s) did not validate", summary.Run.Failed+summary.Run.Errored)
	}
	return nil
}

// ImportStats tracks import statistics.
type ImportStats struct {
	Inserted int
	Updated  int
}

// importCharts upserts every fixture as a reference chart.
func importCharts(ctx context.Context, tx *database.Tx, list []fixtures.Fixture, logger *slog.Logger, stats *ImportStats) error {
	for i, f := range list {
		chart := f.Chart()

		inserted, err := tx.UpsertReference(ctx, &chart)
		if err != nil {
			return fmt.Errorf("upsert chart %d (%s %s): %w", i+1, f.Date, f.Time, err)
		}

		if inserted {
			stats.Inserted++
		} else {
			stats.Updated++
		}

		logger.Debug("imported chart",
			slog.Int64("id", chart.ID),
			slog.String("label", chart.Label),
			slog.Bool("inserted", inserted),
		)
	}

	return nil
}

func runExport(dbPath, exportPath string, logger *slog.Logger) error {
	ctx := context.Background()

	db, err := openDB(ctx, dbPath, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	refs, err := db.ListReferences(ctx)
	if err != nil {
		return err
	}

	list := make([]fixtures.Fixture, 0, len(refs))
	for _, ref := range refs {
		list = append(list, fixtures.FromChart(ref))
	}

	out, err := os.Create(exportPath)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer out.Close()

	if err := fixtures.Encode(out, list); err != nil {
		return err
	}

	logger.Info("exported charts", slog.Int("count", len(list)), slog.String("path", exportPath))
	return nil
}

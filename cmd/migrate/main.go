package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"event-checkout/internal/config"
	"event-checkout/internal/database"
	"event-checkout/internal/logger"
)

func main() {
	var (
		statusFlag = flag.Bool("status", false, "Show migration status")
		upFlag     = flag.Bool("up", false, "Run pending migrations")
	)
	flag.Parse()

	if !*statusFlag && !*upFlag {
		fmt.Println("Usage:")
		fmt.Println("  go run ./cmd/migrate -status   # Show migration status")
		fmt.Println("  go run ./cmd/migrate -up       # Run pending migrations")
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: "console"})
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	ctx := context.Background()

	db, err := database.NewConnection(ctx, cfg.Database, zlog)
	if err != nil {
		zlog.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	switch {
	case *statusFlag:
		states, err := db.MigrationStatus(ctx)
		if err != nil {
			zlog.Fatal("Failed to get migration status", zap.Error(err))
		}
		fmt.Println("Migration Status:")
		fmt.Println("=================")
		for _, s := range states {
			status := "pending"
			if s.Applied {
				status = "applied"
			}
			fmt.Printf("%03d_%-45s %s\n", s.Version, s.Name, status)
		}
	case *upFlag:
		if err := db.RunMigrations(ctx); err != nil {
			zlog.Fatal("Failed to run migrations", zap.Error(err))
		}
		fmt.Println("All migrations completed successfully!")
	}
}

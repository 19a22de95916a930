package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.uber.org/zap"

	"event-checkout/internal/config"
	"event-checkout/internal/database"
	"event-checkout/internal/logger"
	"event-checkout/internal/repositories"
)

func main() {
	fmt.Println("Seeding sample events")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	zlog, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: "console"})
	if err != nil {
		log.Fatal("Failed to build logger:", err)
	}
	defer zlog.Sync()

	ctx := context.Background()

	db, err := database.NewConnection(ctx, cfg.Database, zlog)
	if err != nil {
		zlog.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.RunMigrations(ctx); err != nil {
		zlog.Fatal("Failed to run migrations", zap.Error(err))
	}

	eventRepo := repositories.NewEventRepository(db.DB)

	for _, event := range repositories.SampleEvents(time.Now()) {
		if err := eventRepo.Upsert(ctx, event); err != nil {
			zlog.Fatal("Failed to seed event", zap.String("event_id", event.ID), zap.Error(err))
		}
		fmt.Printf("  %s  %s (%s)\n", event.ID, event.Title, event.StartDate.Format("2006-01-02 15:04"))
		for _, tier := range event.Tiers {
			fmt.Printf("      %-12s %-12s R%s  %d available, max %d per order\n",
				tier.ID, tier.Name, tier.UnitPrice.StringFixed(2), tier.Available, tier.MaxPerOrder)
		}
	}

	fmt.Println("Done.")
}

package main

import (
	"context"
	"fmt"
	"log"

	"go.uber.org/zap"

	"event-checkout/internal/config"
	"event-checkout/internal/database"
	"event-checkout/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
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

	fmt.Println("Checking Events")

	var totalEvents int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events").Scan(&totalEvents); err != nil {
		zlog.Fatal("Failed to count events", zap.Error(err))
	}
	fmt.Printf("Total Events: %d\n\n", totalEvents)

	rows, err := db.QueryContext(ctx, `
		SELECT e.id, e.title, e.attendee_count,
		       COUNT(o.reference) AS orders,
		       COALESCE(SUM((o.document->>'total')::numeric), 0) AS revenue
		FROM events e
		LEFT JOIN orders o ON o.event_id = e.id AND o.status = 'completed'
		GROUP BY e.id, e.title, e.attendee_count
		ORDER BY e.start_date`)
	if err != nil {
		zlog.Fatal("Failed to query events", zap.Error(err))
	}
	defer rows.Close()

	fmt.Printf("%-24s %-30s %9s %7s %12s\n", "ID", "TITLE", "ATTENDEES", "ORDERS", "REVENUE")
	for rows.Next() {
		var (
			id, title string
			attendees int
			orders    int
			revenue   string
		)
		if err := rows.Scan(&id, &title, &attendees, &orders, &revenue); err != nil {
			zlog.Fatal("Failed to scan event", zap.Error(err))
		}
		fmt.Printf("%-24s %-30s %9d %7d %12s\n", id, title, attendees, orders, revenue)
	}
	if err := rows.Err(); err != nil {
		zlog.Fatal("Failed to read events", zap.Error(err))
	}
}

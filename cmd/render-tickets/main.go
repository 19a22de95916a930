package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"event-checkout/internal/config"
	"event-checkout/internal/database"
	"event-checkout/internal/logger"
	"event-checkout/internal/repositories"
	"event-checkout/internal/services"
)

func main() {
	var (
		ref = flag.String("ref", "", "Order reference to render")
		out = flag.String("out", "", "Output file (default tickets-<ref>.pdf in the current directory)")
	)
	flag.Parse()

	if *ref == "" {
		fmt.Println("Usage:")
		fmt.Println("  go run ./cmd/render-tickets -ref ORD-1736501400000-k3x9q2ab [-out tickets.pdf]")
		os.Exit(1)
	}

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

	order, err := repositories.NewOrderRepository(db.DB).Get(ctx, *ref)
	if err != nil {
		zlog.Fatal("Failed to load order", zap.String("reference", *ref), zap.Error(err))
	}

	doc, err := services.NewPDFService(nil, zlog).Render(ctx, order)
	if err != nil {
		zlog.Fatal("Failed to render tickets", zap.String("reference", *ref), zap.Error(err))
	}

	path := *out
	if path == "" {
		path = doc.Filename()
	}
	if err := os.WriteFile(path, doc.PDF, 0o644); err != nil {
		zlog.Fatal("Failed to write PDF", zap.String("path", path), zap.Error(err))
	}

	abs, _ := filepath.Abs(path)
	fmt.Printf("Order %s (%s), %s\n", order.Reference, order.GetStatusDisplayName(), order.Event.Title)
	fmt.Printf("Rendered %d ticket(s) on %d page(s) to %s\n", len(doc.Tickets), doc.Pages, abs)
	for _, f := range doc.Failures {
		fmt.Printf("  warning: %s rendered without a code: %s\n", f.TicketID, f.Reason)
	}
}

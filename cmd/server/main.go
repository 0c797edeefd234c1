package main

import (
	"fmt"
	"log"

	"election-results-api/internal/cache"
	"election-results-api/internal/config"
	"election-results-api/internal/database"
	"election-results-api/internal/dataservice"
	"election-results-api/internal/handlers"
	"election-results-api/internal/livequery"
	"election-results-api/internal/realtime"
	"election-results-api/internal/routes"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	// Init database
	db := database.InitDB(cfg.DatabasePath)

	// Change-notification hub and data service
	hub := realtime.NewHub()
	svc := dataservice.New(db, hub)

	// Live query cache over the data service
	live := livequery.New(svc, hub, livequery.Options{
		TTL:          cache.TTL{Active: cfg.ActiveTTL, Ended: cfg.EndedTTL},
		PollInterval: cfg.PollInterval,
	})
	defer live.Close()

	h := handlers.NewElectionHandler(svc, live)
	defer h.Close()

	// Setup the routes
	ginRoutes := routes.SetupRoutes(h, hub)

	// Start server
	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("Server starting on port %s", addr)
	log.Println("API endpoints:")
	log.Println("  GET    /api/elections")
	log.Println("  POST   /api/elections")
	log.Println("  GET    /api/elections/:id/results")
	log.Println("  POST   /api/elections/:id/votes")
	log.Println("  POST   /api/elections/:id/end")
	log.Println("  GET    /ws")
	log.Println("  GET    /health")

	if err := ginRoutes.Run(addr); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}

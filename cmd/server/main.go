package main

import (
	"fmt"
	"log"
	"os"

	"github.com/bidlens/backend/config"
	httpDelivery "github.com/bidlens/backend/internal/delivery/http"
	"github.com/bidlens/backend/internal/infrastructure/bidfile"
	"github.com/bidlens/backend/internal/infrastructure/cache"
	"github.com/bidlens/backend/internal/infrastructure/xlsxreport"
	"github.com/bidlens/backend/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting BidLens Backend v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Port: %s", cfg.Server.Port)

	// Initialize infrastructure dependencies
	limiterStore := cache.NewMemoryCache()

	reader := bidfile.NewReader()

	// Enable debug mode in development environment
	if cfg.Server.Environment == "development" || cfg.Compare.Debug {
		reader.SetDebug(true)
		log.Printf("Bid file parser debug mode enabled")
	}

	// Initialize usecase layer
	compareService := usecase.NewCompareService(
		reader,
		usecase.CompareServiceConfig{
			MaxParseWorkers:    cfg.Compare.MaxParseWorkers,
			EnableDebugLogging: cfg.Compare.Debug,
		},
	)

	reportBuilder := xlsxreport.NewBuilder(cfg.Export.Currency)

	log.Printf("Compare: workers=%d, debug=%v, currency=%s",
		cfg.Compare.MaxParseWorkers,
		cfg.Compare.Debug,
		cfg.Export.Currency)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(compareService, reportBuilder)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler, limiterStore)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Server listening on %s", addr)

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func init() {
	// Set log flags for better debugging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}

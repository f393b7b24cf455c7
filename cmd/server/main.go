/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the Bursar Engine server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (optional), parse command-line flags
  2. Initialize SQLite store
  3. Load the fee catalog (file, or built-in standard schedule)
  4. Wire the bursar service and API handler
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS (env var fallback in parentheses):
  -port     HTTP server port (PORT, default: 8080)
  -db       SQLite database path (DATABASE_PATH, default: bursar.db)
            Use ":memory:" for an in-memory database
  -catalog  Fee catalog JSON path (CATALOG_PATH). Empty means the built-in
            standard schedule for -year.
  -year     Academic year for the built-in schedule (ACADEMIC_YEAR,
            default: 2025/2026)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database and the built-in catalog
  ./server -db="./data/bursar.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Run with a custom fee catalog
  ./server -catalog="./fees-2026.json"

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - catalog/catalog.go: Fee catalog format
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/meridian/bursar-engine/api"
	"github.com/meridian/bursar-engine/bursar"
	"github.com/meridian/bursar-engine/catalog"
	"github.com/meridian/bursar-engine/store/sqlite"
)

func main() {
	// .env is a development convenience; absence is fine
	_ = godotenv.Load()

	// Flags, with environment fallbacks
	port := flag.Int("port", envInt("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", envStr("DATABASE_PATH", "bursar.db"), "SQLite database path")
	catalogPath := flag.String("catalog", envStr("CATALOG_PATH", ""), "fee catalog JSON path (empty: built-in schedule)")
	year := flag.String("year", envStr("ACADEMIC_YEAR", "2025/2026"), "academic year for the built-in schedule")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Load the fee catalog
	var schedule *catalog.FeeSchedule
	if *catalogPath != "" {
		schedule, err = catalog.Load(*catalogPath)
		if err != nil {
			log.Fatalf("Failed to load fee catalog %s: %v", *catalogPath, err)
		}
		log.Printf("Fee catalog loaded from %s", *catalogPath)
	} else {
		schedule, err = catalog.StandardSchedule(*year)
		if err != nil {
			log.Fatalf("Failed to build standard fee schedule for %s: %v", *year, err)
		}
		log.Printf("Using built-in standard fee schedule for %s", *year)
	}

	// Wire the service and handler
	service := bursar.New(store, schedule, schedule, api.ContextIdentity())
	handler := api.NewHandler(service, store, schedule)
	router := api.NewRouter(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on http://localhost:%d", *port)
		log.Printf("📊 API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

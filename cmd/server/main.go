package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"

	"liblend/internal/adapters/http/middleware"
	"liblend/internal/adapters/http/routes"
	"liblend/internal/adapters/persistence/models"
	"liblend/internal/adapters/persistence/repositories"
	"liblend/internal/config"
	"liblend/internal/core/services"
)

// @title LibLend API
// @version 1.0
// @description Physical item lending service for a campus library.

// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer config.CloseDatabase()

	// Auto migrate (creates tables if not exist)
	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("❌ Failed to auto migrate: %v", err)
	}
	log.Println("✅ Database migration completed")

	// Seed policy row, departments and default admin
	if err := config.NewSeeder(db).Run(); err != nil {
		log.Fatalf("❌ Failed to seed database: %v", err)
	}

	// Start the nightly overdue sweep
	if cfg.Sweep.Enabled {
		overdueService := services.NewOverdueService(repositories.NewLoanRepository(db))
		sweeper := services.NewSweepAutoService(overdueService, cfg.Sweep.Schedule)
		if err := sweeper.Start(); err != nil {
			log.Fatalf("❌ Failed to start overdue sweeper: %v", err)
		}
		defer sweeper.Stop()
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "LibLend API v1.0",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	// Setup middlewares
	middleware.Setup(app, cfg)

	// Setup routes (pass db and cfg for dependency injection)
	routes.Setup(app, db, cfg)

	// Graceful shutdown
	go gracefulShutdown(app)

	// Start server
	log.Printf("🚀 Server starting on port %s [MODE: %s]", cfg.Port, cfg.AppMode)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("❌ Error during shutdown: %v", err)
	}
	log.Println("✅ Server stopped gracefully")
}

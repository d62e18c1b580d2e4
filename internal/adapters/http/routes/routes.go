package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"liblend/internal/adapters/http/handlers"
	"liblend/internal/adapters/http/middleware"
	"liblend/internal/adapters/persistence/repositories"
	"liblend/internal/config"
	"liblend/internal/core/services"
)

// Setup configures all routes for the application
func Setup(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	refreshTokenRepo := repositories.NewRefreshTokenRepository(db)
	bookRepo := repositories.NewBookRepository(db)
	loanRepo := repositories.NewLoanRepository(db)
	auditRepo := repositories.NewAuditLogRepository(db)
	lendingStore := repositories.NewGormLendingStore(db)

	// Initialize services
	auditService := services.NewAuditService(auditRepo)
	authService := services.NewAuthService(userRepo, refreshTokenRepo, &cfg.JWT)
	userService := services.NewUserService(userRepo, auditService)
	catalogService := services.NewCatalogService(lendingStore, bookRepo, userRepo, auditService)
	lendingService := services.NewLendingService(lendingStore, userRepo, auditService)
	settingsService := services.NewSettingsService(lendingStore, userRepo, auditService)
	overdueService := services.NewOverdueService(loanRepo)
	statsService := services.NewStatsService(db)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(authService, userService)
	userHandler := handlers.NewUserHandler(userService)
	bookHandler := handlers.NewBookHandler(catalogService)
	loanHandler := handlers.NewLoanHandler(lendingService, loanRepo)
	adminHandler := handlers.NewAdminHandler(
		catalogService,
		lendingService,
		settingsService,
		statsService,
		userService,
		auditService,
		overdueService,
		loanRepo,
	)

	// Health check
	app.Get("/health", healthHandler.Health)

	// API v1 group
	apiV1 := app.Group("/api/v1")
	setupAuthRoutes(apiV1, authHandler, cfg)
	setupPublicRoutes(apiV1, bookHandler, userHandler, cfg)
	setupLoanRoutes(apiV1, loanHandler, userHandler, cfg)
	setupAdminRoutes(apiV1, adminHandler, cfg)
}

// setupAuthRoutes configures authentication routes
func setupAuthRoutes(router fiber.Router, h *handlers.AuthHandler, cfg *config.Config) {
	auth := router.Group("/auth")

	// Stricter rate limit on credential endpoints
	auth.Post("/register", middleware.AuthRateLimiter(), h.Register)
	auth.Post("/login", middleware.AuthRateLimiter(), h.Login)
	auth.Post("/refresh", h.Refresh)
	auth.Post("/logout", h.Logout)

	auth.Post("/logout-all", middleware.AuthMiddleware(cfg), h.LogoutAll)
	auth.Post("/change-password", middleware.AuthMiddleware(cfg), h.ChangePassword)
	auth.Get("/me", middleware.AuthMiddleware(cfg), h.Me)
}

// setupPublicRoutes configures catalog browse routes
func setupPublicRoutes(router fiber.Router, books *handlers.BookHandler, users *handlers.UserHandler, cfg *config.Config) {
	router.Get("/departments", users.ListDepartments)

	bookGroup := router.Group("/books")
	bookGroup.Get("/", books.List)
	bookGroup.Get("/categories", books.Categories)
	bookGroup.Get("/:id", books.Get)
}

// setupLoanRoutes configures authenticated patron routes
func setupLoanRoutes(router fiber.Router, loans *handlers.LoanHandler, users *handlers.UserHandler, cfg *config.Config) {
	router.Put("/users/me", middleware.AuthMiddleware(cfg), users.UpdateProfile)

	loanGroup := router.Group("/loans", middleware.AuthMiddleware(cfg))
	loanGroup.Get("/me", loans.MyLoans)
	loanGroup.Post("/borrow", loans.Borrow)
	loanGroup.Post("/:id/return", loans.Return)
	loanGroup.Post("/:id/renew", loans.Renew)
}

// setupAdminRoutes configures admin-only routes
func setupAdminRoutes(router fiber.Router, h *handlers.AdminHandler, cfg *config.Config) {
	admin := router.Group("/admin", middleware.AuthMiddleware(cfg), middleware.AdminOnly())

	// Catalog management
	admin.Post("/books", h.CreateBook)
	admin.Post("/books/bulk", h.BulkUpsertBooks)
	admin.Put("/books/:id", h.UpdateBook)
	admin.Delete("/books/:id", h.DeleteBook)
	admin.Patch("/books/:id/total", h.AdjustBookTotal)

	// Loan management
	admin.Get("/loans", h.ListLoans)
	admin.Post("/loans/sweep", h.RunOverdueSweep)
	admin.Post("/loans/:id/return", h.OverrideReturn)
	admin.Post("/loans/:id/extend", h.ExtendDueDate)

	// Policy, stats, students, audit
	admin.Get("/settings", h.GetSettings)
	admin.Put("/settings", h.UpdateSettings)
	admin.Get("/stats", h.GetStats)
	admin.Get("/students", h.ListStudents)
	admin.Put("/students/:id", h.UpdateStudent)
	admin.Get("/audit-logs", h.ListAuditLogs)
}

package main

import (
	"fmt"
	"net/http"
	"os"

	"costwise/internal/config"
	"costwise/internal/database"
	"costwise/internal/handlers"
	"costwise/internal/logger"
	"costwise/internal/metrics"
	"costwise/internal/middleware"
	"costwise/internal/services"
	"costwise/internal/validator"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "costwise/internal/docs" // Import swagger docs
)

// @title           Costwise API
// @version         1.0
// @description     Costwise records recurring business costs per organization and shop and reports monthly statistics.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dbManager, err := database.NewManager(appConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	validator.Register()
	metrics.Register()

	// Initialize services
	db := dbManager.DB()
	auditService := services.NewAuditService(db)
	userService := services.NewUserService(db, auditService)
	orgService := services.NewOrganizationService(db, auditService)
	shopService := services.NewShopService(db, auditService)
	categoryService := services.NewCategoryService(db, auditService)
	entryService := services.NewEntryService(db, shopService, auditService)
	statsService := services.NewStatisticsService(db, shopService)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService, orgService)
	orgHandler := handlers.NewOrganizationHandler(orgService, userService)
	shopHandler := handlers.NewShopHandler(shopService, orgService)
	categoryHandler := handlers.NewCategoryHandler(categoryService, orgService)
	entryHandler := handlers.NewEntryHandler(entryService)
	statsHandler := handlers.NewStatisticsHandler(statsService)
	auditHandler := handlers.NewAuditHandler(auditService)
	userHandler := handlers.NewUserHandler(userService)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.Metrics())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group
	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.RefreshToken)
	auth.POST("/status", authHandler.AccountStatus)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/profile", authHandler.GetProfile)
	protected.POST("/auth/logout", authHandler.Logout)

	// Organization routes
	orgs := protected.Group("/organizations")
	orgs.POST("", orgHandler.Create)
	orgs.GET("", orgHandler.ListMine)
	orgs.GET("/current", orgHandler.GetCurrent)
	orgs.POST("/switch", orgHandler.Switch)
	orgs.GET("/members", orgHandler.ListMembers)
	orgs.POST("/members", orgHandler.Invite)
	orgs.PUT("/members/:id", orgHandler.UpdateMemberRole)
	orgs.DELETE("/members/:id", orgHandler.RemoveMember)

	// Shop routes
	shops := protected.Group("/shops")
	shops.GET("", shopHandler.List)
	shops.POST("", shopHandler.Create)
	shops.PUT("/reorder", shopHandler.Reorder)
	shops.GET("/:id", shopHandler.Get)
	shops.PUT("/:id", shopHandler.Update)
	shops.DELETE("/:id", shopHandler.Delete)

	// Category and cost item routes
	categories := protected.Group("/categories")
	categories.GET("", categoryHandler.List)
	categories.POST("", categoryHandler.Create)
	categories.GET("/:id", categoryHandler.Get)
	categories.PUT("/:id", categoryHandler.Update)
	categories.DELETE("/:id", categoryHandler.Delete)
	categories.POST("/:id/items", categoryHandler.CreateItem)

	items := protected.Group("/items")
	items.PUT("/:id", categoryHandler.UpdateItem)
	items.DELETE("/:id", categoryHandler.DeleteItem)

	// Entry routes
	entries := protected.Group("/entries")
	entries.GET("", entryHandler.List)
	entries.POST("", entryHandler.Upsert)
	entries.POST("/bulk", entryHandler.BulkUpsert)

	// Statistics routes
	statistics := protected.Group("/statistics")
	statistics.GET("", statsHandler.Get)
	statistics.GET("/categories", statsHandler.Categories)

	// Platform admin routes
	admin := protected.Group("/admin")
	admin.Use(middleware.RequireAdmin())
	admin.GET("/users", userHandler.List)
	admin.POST("/users", userHandler.Create)
	admin.PUT("/users/:id", userHandler.Update)
	admin.PUT("/users/:id/password", userHandler.ResetPassword)
	admin.DELETE("/users/:id", userHandler.Delete)
	admin.GET("/audit", auditHandler.List)
	admin.GET("/audit/stats", auditHandler.Stats)

	log.Infof("Starting Costwise backend server on port %s", appConfig.Port)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}

package main

import (
	"genealogy-service/internal/handler"
	"genealogy-service/internal/middleware"
	"genealogy-service/pkg/config"
	"genealogy-service/pkg/database"
	"genealogy-service/pkg/jwtutil"
	"genealogy-service/pkg/logger"
	"genealogy-service/prometheus"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	logger.InitLogger(cfg)
	log := logger.GetLogger()
	log.Info("Starting genealogy service...", zap.String("environment", cfg.Server.Env))

	// Initialize database
	if err := database.InitDB(cfg); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	// Initialize JWT utility
	jwtutil.Initialize(&cfg.JWT)
	log.Info("JWT utility initialized")

	// Initialize Prometheus metrics
	prometheus.InitMetrics(cfg)
	log.Info("Prometheus metrics initialized")

	// Initialize handler-level settings
	handler.Initialize(cfg)

	// Initialize Echo framework
	e := echo.New()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover()) // Add recovery middleware
	e.Use(echomiddleware.CORS())    // Add CORS middleware
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)

	// Authentication routes - these don't belong under /api since they're for getting access to the API
	auth := e.Group("/auth")
	auth.POST("/login", handler.Login)
	auth.POST("/register", handler.Register)

	// Readable resources accept anonymous callers; the access evaluator
	// decides per record whether an anonymous read is allowed
	public := e.Group("/api", middleware.OptionalAuthMiddleware)
	public.GET("/family-trees/:id", handler.GetTree)
	public.GET("/family-trees/:id/stats", handler.TreeStats)
	public.GET("/persons/tree/:treeId", handler.ListTreePersons)
	public.GET("/persons/:id", handler.GetPerson)
	public.GET("/persons/:id/media", handler.ListPersonMedia)
	public.GET("/relationships/person/:personId", handler.ListPersonRelationships)

	// API routes - all require authentication
	api := e.Group("/api")
	api.Use(middleware.AuthMiddleware)

	// User management
	users := api.Group("/users")
	users.GET("/profile", handler.GetProfile)
	users.PATCH("/profile", handler.UpdateProfile)
	users.POST("/change-password", handler.ChangePassword)
	users.POST("/logout", handler.Logout)
	users.DELETE("/profile", handler.DeactivateAccount)

	// Family trees
	trees := api.Group("/family-trees")
	trees.GET("", handler.ListTrees)
	trees.POST("", handler.CreateTree)
	trees.PUT("/:id", handler.UpdateTree)
	trees.DELETE("/:id", handler.DeleteTree)
	trees.POST("/:id/recount", handler.RecountTree)

	// Persons
	persons := api.Group("/persons")
	persons.POST("", handler.CreatePerson)
	persons.PUT("/:id", handler.UpdatePerson)
	persons.DELETE("/:id", handler.DeletePerson)
	persons.POST("/:id/media", handler.AttachPersonMedia)

	// Relationships
	relationships := api.Group("/relationships")
	relationships.POST("", handler.CreateRelationship)
	relationships.DELETE("/:id", handler.DeleteRelationship)

	// Media items
	media := api.Group("/media")
	media.DELETE("/:id", handler.DeleteMediaItem)

	// DNA profiles
	dna := api.Group("/dna-profiles")
	dna.GET("", handler.ListDnaProfiles)
	dna.POST("", handler.CreateDnaProfile)
	dna.GET("/:id", handler.GetDnaProfile)
	dna.DELETE("/:id", handler.DeleteDnaProfile)
	dna.GET("/:id/ethnicity", handler.GetEthnicityEstimates)
	dna.GET("/:id/matches", handler.GetDnaMatches)

	// Collaboration groups
	groups := api.Group("/groups")
	groups.GET("", handler.ListGroups)
	groups.POST("", handler.CreateGroup)
	groups.GET("/:id", handler.GetGroup)
	groups.GET("/:id/permissions", handler.ListGroupPermissions)
	groups.POST("/:id/permissions", handler.GrantPermission)
	groups.DELETE("/:id/permissions/:permissionId", handler.RevokePermission)
	groups.GET("/:id/messages", handler.ListGroupMessages)
	groups.POST("/:id/messages", handler.PostGroupMessage)

	// Get server port from configuration
	port := cfg.Server.Port

	// Start server
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}

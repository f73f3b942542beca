// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"strings"
	"time"

	"minbar/internal/cache"
	"minbar/internal/config"
	"minbar/internal/database"
	"minbar/internal/middleware"
	"minbar/internal/models"
	"minbar/internal/moderation"
	"minbar/internal/notifications"
	"minbar/internal/observability"
	"minbar/internal/repository"
	"minbar/internal/service"
	"minbar/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers.
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	recitationRepo repository.RecitationRepository
	mediaStore     storage.MediaStore
	notifier       *notifications.Notifier
	adminIDs       map[string]struct{}

	recitationService     *service.RecitationService
	engagementService     *service.EngagementService
	recommendationService *service.RecommendationService
}

// NewServer creates a new server instance with all dependencies.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	redisClient := cache.GetClient()

	return NewServerWithDeps(cfg, db, redisClient, storage.NewDiskStore(cfg),
		moderation.NewCascade(
			moderation.NewOpenAITranscriber(cfg),
			moderation.NewOpenAIClassifier(cfg),
		))
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Tests and the bootstrap layer use it to substitute collaborators.
func NewServerWithDeps(
	cfg *config.Config,
	db *gorm.DB,
	redisClient *redis.Client,
	mediaStore storage.MediaStore,
	moderator service.ContentModerator,
) (*Server, error) {
	middleware.InitMiddleware(cfg)

	recitationRepo := repository.NewRecitationRepository(db)
	prom := middleware.InitMetrics("minbar-api")

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: prom,
		recitationRepo: recitationRepo,
		mediaStore:     mediaStore,
		adminIDs:       parseAdminIDs(cfg.AdminUserIDs),
	}

	if redisClient != nil {
		server.notifier = notifications.NewNotifier(redisClient)
	}

	server.recitationService = service.NewRecitationService(recitationRepo, mediaStore, moderator, server.notifier)
	server.engagementService = service.NewEngagementService(recitationRepo, server.notifier)
	server.recommendationService = service.NewRecommendationService(recitationRepo)

	return server, nil
}

// logEvent mirrors published pipeline events into the structured log when
// EVENT_LOG_ENABLED is set.
func logEvent(channel, payload string) {
	observability.GlobalLogger.Info("pipeline event",
		slog.String("channel", channel),
		slog.String("payload", payload),
	)
}

func parseAdminIDs(raw string) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, id := range strings.Split(raw, ",") {
		id = strings.TrimSpace(id)
		if id != "" {
			ids[id] = struct{}{}
		}
	}
	return ids
}

// SetupMiddleware configures middleware for the Fiber app.
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.TracingMiddleware())

	if s.promMiddleware != nil {
		app.Use(s.promMiddleware.Middleware)
	}

	app.Use(helmet.New())
	app.Use(middleware.RequestLogger())

	// CORS runs before middlewares that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")

	recitations := api.Group("/recitations")
	recitations.Get("/", middleware.OptionalAuth, s.GetRecitations)
	recitations.Get("/search", middleware.OptionalAuth, s.SearchRecitations)
	recitations.Get("/recommendations", middleware.AuthRequired, s.GetRecommendations)
	recitations.Post("/url", middleware.AuthRequired, s.CreateRecitationFromURL)
	recitations.Post("/", middleware.AuthRequired, s.CreateRecitation)
	recitations.Get("/:id", middleware.OptionalAuth, s.GetRecitation)
	recitations.Put("/:id", middleware.AuthRequired, s.UpdateRecitation)
	recitations.Delete("/:id", middleware.AuthRequired, s.DeleteRecitation)

	api.Post("/likes", middleware.AuthRequired, s.ToggleLike)

	admin := api.Group("/admin", middleware.AuthRequired, s.AdminRequired())
	admin.Put("/recitations/:id/status", s.SetRecitationStatus)
	admin.Get("/recitations", s.GetAdminRecitations)
}

// AdminRequired returns middleware that rejects subjects outside the
// configured admin list. Must be placed after AuthRequired so that
// userID is available in locals.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _ := c.Locals("userID").(string)
		if _, ok := s.adminIDs[userID]; !ok {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewNotOwnedError("Admin access required"))
		}
		return c.Next()
	}
}

// LivenessCheck handles liveness probe requests.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is a degraded
// dependency, not a required one: the API serves without it.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start starts the server.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	if s.notifier != nil && s.config.EventLogEnabled {
		if err := s.notifier.StartPatternSubscriber(ctx, logEvent); err != nil {
			log.Printf("event log subscriber failed to start: %v", err)
		}
	}

	app := fiber.New(fiber.Config{
		AppName:   "Minbar API",
		BodyLimit: (s.config.MediaMaxUploadSizeMB + 1) << 20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}

// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"quill/internal/cache"
	"quill/internal/config"
	"quill/internal/featureflags"
	"quill/internal/middleware"
	"quill/internal/models"
	"quill/internal/notifications"
	"quill/internal/repository"
	"quill/internal/service"
	"quill/internal/session"
	"quill/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const pushTimeout = 10 * time.Second

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	tokens       *session.Tokens
	userRepo     repository.UserRepository
	notifier     *notifications.Notifier
	hub          *notifications.Hub
	dispatcher   *notifications.Dispatcher
	featureFlags *featureflags.Manager

	postService         *service.PostService
	socialService       *service.SocialService
	commentService      *service.CommentService
	tagService          *service.TagService
	userService         *service.UserService
	recommendations     *service.RecommendationService
	notificationService *service.NotificationService
	uploadService       *service.UploadService
}

// NewServer creates a Server using already-initialized dependencies. A nil
// Redis client disables caching, realtime delivery and per-route limits.
func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg == nil || db == nil {
		return nil, fmt.Errorf("server requires config and database")
	}

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	socialRepo := repository.NewSocialRepository(db)
	tagRepo := repository.NewTagRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	flags := featureflags.NewManager(cfg.FeatureFlags)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("quill-api"),
		tokens:         session.NewTokens(cfg.JWTSecret),
		userRepo:       userRepo,
		featureFlags:   flags,
		hub:            notifications.NewHub(),
	}
	if redisClient != nil {
		s.notifier = notifications.NewNotifier(redisClient)
	}

	push := notifications.NewPushSender(notifications.VAPIDConfig{
		PublicKey:  cfg.VAPIDPublicKey,
		PrivateKey: cfg.VAPIDPrivateKey,
		Subject:    cfg.VAPIDSubject,
	}, &http.Client{Timeout: pushTimeout})

	var publisher notifications.Publisher
	if s.notifier != nil {
		publisher = s.notifier
	}
	s.dispatcher = notifications.NewDispatcher(userRepo, socialRepo, notificationRepo, publisher, push, flags,
		notifications.DispatcherConfig{Concurrency: cfg.PushConcurrency, RatePerSec: cfg.PushRatePerSec})

	store := storage.NewLocalStore(cfg.UploadDir, cfg.UploadBaseURL)

	s.postService = service.NewPostService(postRepo, tagRepo, s.dispatcher)
	s.socialService = service.NewSocialService(postRepo, userRepo, socialRepo, s.dispatcher)
	s.commentService = service.NewCommentService(commentRepo, postRepo, s.dispatcher)
	s.tagService = service.NewTagService(tagRepo)
	s.userService = service.NewUserService(userRepo, postRepo, socialRepo)
	s.recommendations = service.NewRecommendationService(postRepo, tagRepo, socialRepo)
	s.notificationService = service.NewNotificationService(notificationRepo, cfg.VAPIDPublicKey)
	s.uploadService = service.NewUploadService(store, cfg.UploadMaxSizeMB)

	return s, nil
}

// Dispatcher exposes the notification dispatcher for graceful shutdown.
func (s *Server) Dispatcher() *notifications.Dispatcher {
	return s.dispatcher
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	app.Use(middleware.TracingMiddleware())

	// Resolve the acting user before the context middleware copies it.
	if s.tokens != nil {
		app.Use(middleware.Authenticate(s.tokens))
	}

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS middleware should run before middlewares that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests; they should be handled by CORS.
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

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.HealthCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Quill Backend Metrics Dashboard",
	}))

	// Uploaded files
	app.Static("/uploads", filepath.Join(s.config.UploadDir, "uploads"), fiber.Static{
		MaxAge: 86400,
	})

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", middleware.RateLimit(s.redis, middleware.SignupLimit), s.Register)
	auth.Post("/login", middleware.RateLimit(s.redis, middleware.LoginLimit), s.Login)

	// Posts. Specific routes before the generic /:slug route.
	posts := api.Group("/posts")
	posts.Get("/", s.ListPosts)
	posts.Post("/", middleware.AuthRequired, s.CreatePost)
	posts.Get("/featured", s.GetFeaturedPost)
	posts.Get("/:slug/like", s.GetLikeStatus)
	posts.Post("/:slug/like", middleware.AuthRequired, s.ToggleLike)
	posts.Get("/:slug/bookmark", middleware.AuthRequired, s.GetBookmarkStatus)
	posts.Post("/:slug/bookmark", middleware.AuthRequired, s.ToggleBookmark)
	posts.Get("/:slug", s.GetPost)
	posts.Put("/:slug", middleware.AuthRequired, s.UpdatePost)
	posts.Delete("/:slug", middleware.AuthRequired, s.DeletePost)

	// Comments
	comments := api.Group("/comments")
	comments.Get("/", s.GetComments)
	comments.Post("/", middleware.AuthRequired, middleware.RateLimit(s.redis, middleware.CommentLimit), s.CreateComment)
	comments.Put("/:id", middleware.AuthRequired, s.UpdateComment)
	comments.Delete("/:id", middleware.AuthRequired, s.DeleteComment)

	// Tags
	tags := api.Group("/tags")
	tags.Get("/", s.GetTags)
	tags.Post("/", middleware.AuthRequired, s.CreateTag)

	// Upload
	api.Post("/upload", middleware.AuthRequired, middleware.RateLimit(s.redis, middleware.UploadLimit), s.Upload)

	// Users. /me routes before /:id.
	users := api.Group("/users")
	users.Get("/me", middleware.AuthRequired, s.GetMyProfile)
	users.Put("/me", middleware.AuthRequired, s.UpdateMyProfile)
	users.Get("/me/notification-settings", middleware.AuthRequired, s.GetNotificationSettings)
	users.Put("/me/notification-settings", middleware.AuthRequired, s.UpdateNotificationSettings)
	users.Get("/:id/follow", middleware.AuthRequired, s.GetFollowStatus)
	users.Post("/:id/follow", middleware.AuthRequired, s.ToggleFollow)
	users.Delete("/:id/follow", middleware.AuthRequired, s.Unfollow)
	users.Get("/:id/bookmarks", middleware.AuthRequired, s.GetUserBookmarks)
	users.Get("/:id/recommendations", middleware.AuthRequired, s.GetRecommendations)
	users.Get("/:id/posts", s.GetUserPosts)
	users.Get("/:id", s.GetUserProfile)

	// Notifications
	inbox := api.Group("/notifications", middleware.AuthRequired)
	inbox.Get("/", s.GetNotifications)
	inbox.Post("/", s.MarkNotificationsRead)
	inbox.Post("/mark-all-read", s.MarkAllNotificationsRead)
	inbox.Get("/subscribe", s.GetPushSubscriptions)
	inbox.Post("/subscribe", s.Subscribe)
	inbox.Delete("/subscribe", s.Unsubscribe)
	inbox.Get("/vapid-public-key", s.GetVAPIDPublicKey)
	inbox.Patch("/:id", s.UpdateNotification)

	// Feature flags evaluated for the caller
	api.Get("/feature-flags", s.GetFeatureFlags)

	// Realtime notification stream
	api.Get("/ws/notifications", middleware.WebSocketAuthRequired(s.tokens), s.WebSocketUpgrade, s.NotificationStream())
}

// HealthCheck is a legacy/simple alias for ReadinessCheck
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	return s.ReadinessCheck(c)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
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
		// Without Redis the API still serves requests, uncached.
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	switch {
	case dbStatus == "unhealthy" || redisStatus == "unhealthy":
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	case redisStatus == "unavailable":
		overallStatus = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"message": "Quill API",
		"version": "1.0.0",
		"status":  overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// NewApp builds the Fiber application with middleware and routes.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "Quill API",
		BodyLimit: (s.config.UploadMaxSizeMB + 1) << 20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok && fe.Code < fiber.StatusInternalServerError {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.NewApp()

	// Forward Redis notification messages to websocket clients
	if s.notifier != nil {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				middleware.Logger.Error("failed to start hub wiring",
					slog.String("hub", s.hub.Name()), slog.String("error", err.Error()))
			}
		}()
	}

	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Cancel the server-scoped context to stop the wiring goroutine
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	// Shutdown the HTTP/WS server
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	// Close WebSocket connections gracefully
	if err := s.hub.Shutdown(ctx); err != nil {
		middleware.Logger.Error("error shutting down hub", slog.String("error", err.Error()))
	}

	// Let in-flight notifications finish before closing their stores
	if err := s.dispatcher.Wait(ctx); err != nil {
		middleware.Logger.Warn("notification tasks did not finish", slog.String("error", err.Error()))
	}

	// Close database connection
	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	// Close Redis connection
	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
		cache.SetClient(nil)
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}

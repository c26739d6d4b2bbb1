// Package server contains the HTTP handlers for the engagement API.
package server

import (
	"context"
	"sync"
	"time"

	"inkpost/internal/cache"
	"inkpost/internal/config"
	"inkpost/internal/featureflags"
	"inkpost/internal/geo"
	"inkpost/internal/identity"
	"inkpost/internal/middleware"
	"inkpost/internal/moderation"
	"inkpost/internal/notifications"
	"inkpost/internal/observability"
	"inkpost/internal/repository"
	"inkpost/internal/service"

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

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	promMiddleware *fiberprometheus.FiberPrometheus
	auth           *middleware.Authenticator
	rateLimiter    *middleware.RateLimiter
	resolver       *identity.Resolver
	cache          *cache.Store
	featureFlags   *featureflags.Manager
	notifier       *notifications.Notifier
	userRepo       repository.UserRepository
	commentService *service.CommentService
	likeService    *service.LikeService
	reconciler     *service.Reconciler
	closers        []func() error
}

var (
	promOnce sync.Once
	prom     *fiberprometheus.FiberPrometheus
)

// httpMetrics returns the process-wide Prometheus middleware. Its collectors
// can only be registered once.
func httpMetrics() *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		prom = middleware.InitMetrics("inkpost-api")
	})
	return prom
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; caching, events and rate limiting are then disabled.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	likeLedger := repository.NewLikeLedger(db)

	store := cache.NewStore(redisClient)
	flags := featureflags.NewManager(cfg.FeatureFlags)
	notifier := notifications.NewNotifier(redisClient)

	gate, err := moderation.NewDefaultGate(cfg.ModerationExtraTerms(),
		moderation.WithRejectHook(func(locale string) {
			observability.ModerationRejections.WithLabelValues(locale).Inc()
		}),
	)
	if err != nil {
		return nil, err
	}

	locator, closeLocator := geo.New(cfg.GeoIPDBPath, store)

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: httpMetrics(),
		auth:           middleware.NewAuthenticator(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience),
		resolver:       identity.NewResolver(cfg.VisitorCookieMaxAge()),
		cache:          store,
		featureFlags:   flags,
		notifier:       notifier,
		userRepo:       userRepo,
		closers:        []func() error{closeLocator},
	}
	// keep the limiter's Cmdable a true nil when Redis is down
	if redisClient != nil {
		server.rateLimiter = middleware.NewRateLimiter(redisClient, cfg.Env)
	} else {
		server.rateLimiter = middleware.NewRateLimiter(nil, cfg.Env)
	}

	server.commentService = service.NewCommentService(service.CommentServiceDeps{
		Comments: commentRepo,
		Posts:    postRepo,
		Gate:     gate,
		Cache:    store,
		Events:   notifier,
		Flags:    flags,
		Options: service.CommentOptions{
			MaxLength:    cfg.CommentMaxLength,
			OrphanPolicy: cfg.OrphanPolicy(),
			TreeCacheTTL: cfg.CommentTreeCacheTTL(),
		},
	})
	server.likeService = service.NewLikeService(service.LikeServiceDeps{
		Ledger:  likeLedger,
		Posts:   postRepo,
		Locator: locator,
		Events:  notifier,
		Flags:   flags,
	})
	server.reconciler = service.NewReconciler(server.likeService, cfg.LikeReconcileInterval())

	return server, nil
}

// StartBackground launches background workers that stop with ctx.
func (s *Server) StartBackground(ctx context.Context) {
	go s.reconciler.Run(ctx)
}

// Close releases resources opened by the server.
func (s *Server) Close() error {
	var firstErr error
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	// Context Middleware to propagate Request ID and Trace ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so browser clients still receive CORS
	// headers on 429 responses. Credentials are required for the visitor cookie.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
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
				"code":  "RATE_LIMITED",
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

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api.Get("/feature-flags", s.auth.Optional(), s.GetFeatureFlags)

	// Public comment reads
	posts := api.Group("/posts")
	posts.Get("/:id/comments/tree", s.GetCommentTree)
	posts.Get("/:id/comments", s.GetComments)

	// Likes accept an account or an anonymous visitor
	posts.Post("/:id/like", s.auth.Optional(), s.LikePost)
	posts.Delete("/:id/like", s.auth.Optional(), s.UnlikePost)

	// Protected routes
	protected := api.Group("", s.auth.Required())

	protectedPosts := protected.Group("/posts")
	protectedPosts.Post("/:id/comments", s.rateLimiter.Handler(
		"create_comment", s.config.CommentRateLimitPerMinute, time.Minute, middleware.FailOpen), s.CreateComment)
	protectedPosts.Put("/:id/comments/:commentId", s.UpdateComment)
	protectedPosts.Delete("/:id/comments/:commentId", s.DeleteComment)

	users := protected.Group("/users")
	users.Get("/:id/likes", s.GetUserLikes)

	// Admin routes; capabilities are checked per operation
	admin := protected.Group("/admin")
	admin.Get("/comments", s.GetAllComments)
	admin.Post("/posts/:id/likes/reconcile", s.ReconcilePostLikes)
}

package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/websocket/v2"
	"github.com/noteduco342/OMChat-backend/internal/cache"
	"github.com/noteduco342/OMChat-backend/internal/config"
	"github.com/noteduco342/OMChat-backend/internal/handlers"
	"github.com/noteduco342/OMChat-backend/internal/handlers/ws"
	"github.com/noteduco342/OMChat-backend/internal/httpx"
	"github.com/noteduco342/OMChat-backend/internal/logger"
	"github.com/noteduco342/OMChat-backend/internal/metrics"
	"github.com/noteduco342/OMChat-backend/internal/middleware"
	"github.com/noteduco342/OMChat-backend/internal/repository"
	"github.com/noteduco342/OMChat-backend/internal/service"
	"github.com/noteduco342/OMChat-backend/internal/storage"
	"github.com/noteduco342/OMChat-backend/internal/validation"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.IsDevelopment())
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	metrics.Register()

	// Initialize database connection
	db, err := repository.InitDB(cfg.DSN())
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	redisCache := cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err := redisCache.Ping(); err != nil {
		log.Warn("redis connection failed, running without cache", zap.Error(err))
		_ = redisCache.Close()
		redisCache = nil
	} else {
		log.Info("redis cache connected", zap.String("addr", cfg.Redis.Addr))
	}
	listCache := cache.NewConversationCache(redisCache)
	onlineTracker := cache.NewOnlineTracker(redisCache)

	// Object storage is best-effort; attachment endpoints answer 503 without it.
	var objects handlers.ObjectGetter
	var attachments handlers.AttachmentSaver
	if cfg.S3Configured() {
		s3Store, err := storage.NewS3Storage(storage.S3Config{
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			Bucket:    cfg.S3.Bucket,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			UseSSL:    cfg.S3.UseSSL,
		})
		if err != nil {
			log.Warn("failed to initialize S3 storage", zap.Error(err))
		} else {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := s3Store.EnsureBucket(ctx, cfg.S3.Region); err != nil {
				log.Warn("failed to ensure S3 bucket", zap.String("bucket", cfg.S3.Bucket), zap.Error(err))
			}
			cancel()
			objects = s3Store
			attachments = storage.NewAttachmentStore(s3Store, validation.MaxAttachmentBytes())
			log.Info("S3 storage initialized", zap.String("bucket", cfg.S3.Bucket))
		}
	} else {
		log.Warn("S3 storage not configured, attachments disabled")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	participantRepo := repository.NewParticipantRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// Initialize services
	userService := service.NewUserService(userRepo, onlineTracker)
	participationService := service.NewParticipationService(participantRepo)
	hub := ws.NewHub(ws.NewParticipantAuthorizer(participationService), onlineTracker, log.Named("ws"))
	notificationService := service.NewNotificationService(notificationRepo, hub, log.Named("notifications"))
	conversationService := service.NewConversationService(userRepo, conversationRepo, messageRepo, participationService, listCache, log.Named("conversations"))
	messageService := service.NewMessageService(conversationRepo, messageRepo, participationService, notificationService, listCache, log.Named("messages"))

	// Initialize handlers
	wsHandler := handlers.NewWebSocketHandler(hub, userService, log.Named("ws"))
	userHandler := handlers.NewUserHandler(userService, log)
	conversationHandler := handlers.NewConversationHandler(conversationService, messageService, attachments, hub, log)
	notificationHandler := handlers.NewNotificationHandler(notificationService, log)
	mediaHandler := handlers.NewMediaHandler(objects, log.Named("media"))

	app := fiber.New(fiber.Config{
		AppName:   "OM Chat Backend",
		BodyLimit: cfg.Server.BodyLimitMB * 1024 * 1024,
	})

	// Middleware
	app.Use(requestid.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-OM-CSRF, " + handlers.SocketIDHeader,
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		AllowCredentials: cfg.Server.AllowedOrigins != "" && cfg.Server.AllowedOrigins != "*",
	}))

	origins := cfg.Origins()
	api := app.Group("/api",
		middleware.OriginAllowed(origins),
		middleware.AuthRequired(cfg.JWTSecret),
		middleware.CSRFRequired(cfg.Server.CSRFMode, origins),
		limiter.New(limiter.Config{
			Max:        cfg.Server.RateLimit,
			Expiration: time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				if uid, err := httpx.LocalUint(c, "userID"); err == nil {
					return "user:" + strconv.FormatUint(uint64(uid), 10)
				}
				return c.IP()
			},
		}),
	)
	api.Get("/users", userHandler.ListUsers)
	api.Get("/conversations", conversationHandler.ListConversations)
	api.Post("/conversations", conversationHandler.CreateConversation)
	api.Get("/conversations/:id", conversationHandler.GetConversation)
	api.Get("/conversations/:id/messages", conversationHandler.ListMessages)
	api.Post("/conversations/:id/messages", conversationHandler.SendMessage)
	api.Post("/conversations/:id/read", conversationHandler.MarkRead)
	api.Post("/conversations/:id/participants", conversationHandler.AddParticipants)
	api.Post("/conversations/:id/leave", conversationHandler.Leave)
	api.Put("/conversations/:id/mute", conversationHandler.Mute)
	api.Get("/notifications", notificationHandler.List)
	api.Post("/notifications/mark-all-read", notificationHandler.MarkAllRead)
	api.Post("/notifications/:id/read", notificationHandler.MarkRead)

	// Attachment keys are unguessable uuids; downloads are public.
	app.Get("/media/attachments/*", mediaHandler.GetAttachment)

	// WebSocket route (websocket upgrade needs special handling)
	app.Use(
		"/ws",
		middleware.OriginAllowed(origins),
		middleware.AuthRequired(cfg.JWTSecret),
		func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		},
	)
	app.Get("/ws", websocket.New(wsHandler.HandleWebSocket))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":      "ok",
			"message":     "OM Chat is running",
			"connections": hub.Count(),
		})
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("shutting down", zap.String("signal", sig.String()))
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Warn("server shutdown incomplete", zap.Error(err))
		}
	}()

	log.Info("server starting", zap.String("port", cfg.Server.Port))
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}

	if redisCache != nil {
		if err := redisCache.Close(); err != nil {
			log.Warn("redis close failed", zap.Error(err))
		}
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("server stopped")
}

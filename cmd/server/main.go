package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"dayflow/internal/config"
	"dayflow/internal/database"
	"dayflow/internal/handlers"
	"dayflow/internal/jobs"
	"dayflow/internal/logging"
	"dayflow/internal/middleware"
	"dayflow/internal/services"
	"dayflow/pkg/auth"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting Dayflow Server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// Load configuration
	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s)", cfg.Port)

	// Initialize MongoDB (primary storage for tasks, events, preferences)
	log.Println("🔗 Connecting to MongoDB...")
	mongoDB, err := database.NewMongoDB(cfg.MongoURI)
	if err != nil {
		log.Fatalf("❌ Failed to connect to MongoDB: %v", err)
	}
	defer mongoDB.Close(context.Background())
	log.Println("✅ MongoDB connected successfully")

	if err := mongoDB.Initialize(context.Background()); err != nil {
		log.Fatalf("❌ Failed to initialize database indexes: %v", err)
	}

	// Initialize Redis (sessions, turn locks, reminder pub/sub)
	var redisService *services.RedisService
	if cfg.RedisURL != "" {
		log.Println("🔗 Connecting to Redis...")
		redisService, err = services.NewRedisService(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️ Failed to connect to Redis: %v (scheduler disabled)", err)
			redisService = nil
		} else {
			log.Println("✅ Redis connected successfully")
		}
	} else {
		log.Println("⚠️ REDIS_URL not set - scheduler disabled")
	}

	// Initialize Prometheus metrics
	services.InitMetrics()
	log.Println("✅ Prometheus metrics initialized")

	// Load scheduling policy and watch it for changes
	policy, err := config.LoadSchedulingPolicy(cfg.SchedulingConfigPath)
	if err != nil {
		log.Fatalf("❌ Failed to load scheduling policy: %v", err)
	}
	policyStore := config.NewPolicyStore(policy)
	go config.WatchSchedulingPolicy(cfg.SchedulingConfigPath, policyStore, nil)

	// Initialize storage services
	taskService := services.NewTaskService(mongoDB)
	eventService := services.NewEventService(mongoDB)
	preferenceService := services.NewPreferenceService(mongoDB)
	log.Println("✅ Task, event, and preference services initialized")

	commitService := services.NewCommitService(taskService, eventService, policy.DefaultEventMinutes)

	// Initialize interpreter client (optional - keyword fallback without it)
	interpreterService := services.NewInterpreterService(cfg.InterpreterURL, cfg.InterpreterTimeout, cfg.InterpreterRPS)
	if interpreterService.Available() {
		log.Printf("✅ Interpreter client initialized (%s, timeout %v)", cfg.InterpreterURL, cfg.InterpreterTimeout)
	} else {
		log.Println("⚠️ INTERPRETER_URL not set - falling back to local keyword parsing")
	}

	// Initialize scheduler service (requires Redis for sessions and turn locks)
	var schedulerService *services.SchedulerService
	if redisService != nil {
		sessionService := services.NewSessionService(redisService, cfg.SessionTTLDays)
		schedulerService = services.NewSchedulerService(
			interpreterService,
			sessionService,
			commitService,
			taskService,
			eventService,
			preferenceService,
			redisService,
			policyStore,
		)
		log.Println("✅ Scheduler service initialized")
	}

	// Initialize reminder service (requires Redis pub/sub)
	var reminderService *services.ReminderService
	if redisService != nil {
		reminderService, err = services.NewReminderService(mongoDB, redisService, preferenceService, policy.DigestCron)
		if err != nil {
			log.Printf("⚠️ Failed to initialize reminder service: %v", err)
		} else {
			reminderService.Start()
			log.Println("✅ Reminder service started")
		}
	}

	// Initialize authentication (Local JWT)
	var jwtAuth *auth.LocalJWTAuth
	if cfg.JWTSecret == "" {
		if cfg.Environment == "production" {
			log.Fatal("❌ CRITICAL SECURITY ERROR: JWT_SECRET is required in production. Generate with: openssl rand -hex 64")
		}
		log.Println("⚠️  JWT_SECRET not set - authentication disabled (development mode)")
	} else {
		jwtAuth, err = auth.NewLocalJWTAuth(cfg.JWTSecret, 0)
		if err != nil {
			log.Fatalf("❌ Failed to initialize JWT authentication: %v", err)
		}
		log.Println("✅ Local JWT authentication initialized")
	}

	// Background jobs
	jobScheduler := jobs.NewJobScheduler()
	jobScheduler.Register("retention_cleanup", jobs.NewRetentionCleanupJob(mongoDB, retentionDays()))
	if err := jobScheduler.Start(); err != nil {
		log.Printf("⚠️ Failed to start job scheduler: %v", err)
	}
	log.Println("🕐 Background jobs: retention cleanup (daily 2 AM)")

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Dayflow v1.0",
		ReadTimeout:  120 * time.Second, // interpreter calls can take up to 60s twice
		WriteTimeout: 150 * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    1 * 1024 * 1024, // 1MB - conversation turns are small
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())

	// Prometheus metrics middleware
	prometheus := fiberprometheus.New("dayflow")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	// Load rate limiting configuration
	rateLimitConfig := middleware.LoadRateLimitConfig()
	log.Printf("🛡️  [RATE-LIMIT] Loaded config: Global=%d/min, Auth=%d/min, Turns=%d/min",
		rateLimitConfig.GlobalAPIMax,
		rateLimitConfig.AuthenticatedMax,
		rateLimitConfig.TurnMax,
	)

	// CORS configuration with environment-based origins
	allowedOrigins := cfg.AllowedOrigins
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:5173,http://localhost:3000"
		log.Println("⚠️  ALLOWED_ORIGINS not set, using development defaults")
	}
	allowCredentials := allowedOrigins != "*"

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: allowCredentials,
	}))
	log.Printf("🔒 [SECURITY] CORS allowed origins: %s", allowedOrigins)

	// Global API rate limiter - first line of defense
	app.Use("/api", middleware.GlobalAPIRateLimiter(rateLimitConfig))

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(mongoDB, redisService)
	taskHandler := handlers.NewTaskHandler(taskService)
	eventHandler := handlers.NewEventHandler(eventService)
	preferencesHandler := handlers.NewPreferencesHandler(preferenceService)

	var schedulerHandler *handlers.SchedulerHandler
	if schedulerService != nil {
		schedulerHandler = handlers.NewSchedulerHandler(schedulerService)
		log.Println("✅ Scheduler handler initialized")
	}

	authLimiter := middleware.AuthenticatedRateLimiter(rateLimitConfig)
	turnLimiter := middleware.TurnRateLimiter(rateLimitConfig)

	// Routes

	// Health check (public)
	app.Get("/health", healthHandler.Handle)

	api := app.Group("/api")
	{
		// Task routes
		tasks := api.Group("/tasks", middleware.LocalAuthMiddleware(jwtAuth), authLimiter)
		tasks.Post("/", taskHandler.Create)
		tasks.Get("/", taskHandler.List)
		tasks.Get("/:id", taskHandler.Get)
		tasks.Put("/:id", taskHandler.Update)
		tasks.Delete("/:id", taskHandler.Delete)

		// Event routes
		events := api.Group("/events", middleware.LocalAuthMiddleware(jwtAuth), authLimiter)
		events.Post("/", eventHandler.Create)
		events.Get("/", eventHandler.List)
		events.Get("/window", eventHandler.Window) // Must be before /:id to avoid route conflict
		events.Get("/:id", eventHandler.Get)
		events.Put("/:id", eventHandler.Update)
		events.Delete("/:id", eventHandler.Delete)

		// Preferences routes
		api.Get("/preferences", middleware.LocalAuthMiddleware(jwtAuth), authLimiter, preferencesHandler.Get)
		api.Put("/preferences", middleware.LocalAuthMiddleware(jwtAuth), authLimiter, preferencesHandler.Update)

		// Conversational scheduler routes (requires Redis)
		if schedulerHandler != nil {
			scheduler := api.Group("/scheduler", middleware.LocalAuthMiddleware(jwtAuth))
			scheduler.Post("/message", turnLimiter, schedulerHandler.Message)
			scheduler.Post("/proposals/confirm", authLimiter, schedulerHandler.Confirm)
			scheduler.Post("/proposals/reslot", authLimiter, schedulerHandler.Reslot)
			scheduler.Get("/proposals/:id/slots", authLimiter, schedulerHandler.Slots)
			scheduler.Post("/conflicts/replace", authLimiter, schedulerHandler.Replace)
			scheduler.Post("/undo", authLimiter, schedulerHandler.Undo)
			scheduler.Post("/reset", authLimiter, schedulerHandler.Reset)
			scheduler.Get("/session", authLimiter, schedulerHandler.Session)
			log.Println("✅ Scheduler routes registered (/api/scheduler/*)")
		}
	}

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n🛑 Shutting down server...")

		// Stop background jobs
		if jobScheduler != nil {
			jobScheduler.Stop()
		}

		// Stop reminder loops
		if reminderService != nil {
			if err := reminderService.Stop(); err != nil {
				log.Printf("⚠️ Error stopping reminder service: %v", err)
			}
		}

		// Close Redis
		if redisService != nil {
			if err := redisService.Close(); err != nil {
				log.Printf("⚠️ Error closing Redis: %v", err)
			}
		}

		// Shutdown Fiber
		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// retentionDays reads the retention window from the environment (default 90)
func retentionDays() int {
	if v := os.Getenv("RETENTION_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return 90
}

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/idoneo-api/internal/config"
	"github.com/yourusername/idoneo-api/internal/handler"
	"github.com/yourusername/idoneo-api/internal/middleware"
	pgRepo "github.com/yourusername/idoneo-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/idoneo-api/internal/repository/redis"
	"github.com/yourusername/idoneo-api/internal/repository/sqlite"
	"github.com/yourusername/idoneo-api/internal/service"
	"github.com/yourusername/idoneo-api/pkg/database"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Loading configuration from %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	// PostgreSQL: the remote store
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	if err := database.MigrateDB(db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Redis: rank zsets and page caches
	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	log.Println("Successfully connected to Redis")

	// SQLite: session snapshots and the offline queue
	localStore, err := sqlite.NewLocalStore(cfg.Local.Path)
	if err != nil {
		log.Printf("Failed to open local store: %v", err)
		os.Exit(1)
	}

	// Repositories
	userRepo := pgRepo.NewUserRepo(db)
	quizRepo := pgRepo.NewQuizRepo(db)
	questionRepo := pgRepo.NewQuestionRepo(db)
	resultRepo := pgRepo.NewResultRepo(db)
	attemptRepo := pgRepo.NewAttemptRepo(db)
	xpRepo := pgRepo.NewXPRepo(db)
	leaderboardRepo := pgRepo.NewLeaderboardRepo(db)
	badgeRepo := pgRepo.NewBadgeRepo(db)

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		log.Printf("Failed to initialize CacheRepo: %v", err)
		os.Exit(1)
	}

	// Progression services
	xpService := service.NewXPService(xpRepo, userRepo, attemptRepo)
	leaderboardService := service.NewLeaderboardService(leaderboardRepo, xpRepo, userRepo, cacheRepo)
	badgeService := service.NewBadgeService(badgeRepo, attemptRepo, xpRepo)

	// Sync coordinator and connectivity monitor. The monitor probes the
	// database and triggers a drain on every offline-to-online transition.
	syncService := service.NewSyncService(
		localStore,
		attemptRepo,
		quizRepo,
		questionRepo,
		xpService,
		leaderboardService,
		badgeService,
		service.SyncConfig{
			Interval:   time.Duration(cfg.Sync.IntervalSec) * time.Second,
			BackoffMin: time.Duration(cfg.Sync.BackoffMinSec) * time.Second,
			BackoffMax: time.Duration(cfg.Sync.BackoffMaxSec) * time.Second,
		},
	)

	sqlDB, err := database.GetSQLDB(db)
	if err != nil {
		log.Printf("Failed to get sql.DB for connectivity probe: %v", err)
		os.Exit(1)
	}
	prober := service.ProberFunc(func() bool {
		return sqlDB.Ping() == nil
	})
	monitor := service.NewConnectivityMonitor(
		prober,
		time.Duration(cfg.Sync.ProbeIntervalSec)*time.Second,
		func() {
			if _, err := syncService.DrainNow(); err != nil {
				log.Printf("Reconnect drain failed: %v", err)
			}
		},
	)
	syncService.SetMonitor(monitor)

	offlineQueue := service.NewOfflineQueue(localStore)

	attemptService := service.NewAttemptService(
		attemptRepo,
		quizRepo,
		questionRepo,
		resultRepo,
		localStore,
		offlineQueue,
		monitor,
		syncService,
		xpService,
		leaderboardService,
		badgeService,
	)

	// Handlers
	attemptHandler := handler.NewAttemptHandler(attemptService)
	syncHandler := handler.NewSyncHandler(syncService, offlineQueue)
	quizHandler := handler.NewQuizHandler(quizRepo, questionRepo)
	profileHandler := handler.NewProfileHandler(xpService, badgeService)
	leaderboardHandler := handler.NewLeaderboardHandler(leaderboardService)

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)

	router := gin.Default()

	isProduction := gin.Mode() == gin.ReleaseMode
	if isProduction {
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else {
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"https://idoneo.app", "http://localhost:5173", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := router.Group("/api")
	{
		// Quiz catalog (public)
		quizzes := api.Group("/quizzes")
		{
			quizzes.GET("", quizHandler.ListQuizzes)

			quizWithID := quizzes.Group("/:id")
			quizWithID.Use(middleware.ExtractUUIDParam("id", "quizID"))
			{
				quizWithID.GET("", quizHandler.GetQuiz)
				quizWithID.GET("/questions", quizHandler.GetQuizQuestions)
			}
		}

		// Attempt lifecycle
		attempts := api.Group("/attempts")
		attempts.Use(authMiddleware.RequireAuth())
		{
			attempts.POST("", attemptHandler.StartAttempt)
			attempts.GET("/current", attemptHandler.ResumeAttempt)

			attemptWithID := attempts.Group("/:id")
			attemptWithID.Use(middleware.ExtractAttemptIDParam("id", "attemptID"))
			{
				attemptWithID.GET("", attemptHandler.GetAttempt)
				attemptWithID.POST("/answers", attemptHandler.SubmitAnswer)
				attemptWithID.POST("/lock", attemptHandler.LockAnswer)
				attemptWithID.POST("/finish", attemptHandler.FinishAttempt)
				attemptWithID.POST("/abandon", attemptHandler.AbandonAttempt)
				attemptWithID.GET("/result", attemptHandler.GetAttemptResult)
			}
		}

		// Offline queue
		sync := api.Group("/sync")
		sync.Use(authMiddleware.RequireAuth())
		{
			sync.POST("", syncHandler.TriggerSync)
			sync.GET("/pending", syncHandler.GetPending)
		}

		// Leaderboard (public listing, authenticated rank)
		api.GET("/leaderboard", leaderboardHandler.GetLeaderboard)
		api.GET("/leaderboard/me", authMiddleware.RequireAuth(), leaderboardHandler.GetMyRank)

		// Progression
		profile := api.Group("/profile")
		profile.Use(authMiddleware.RequireAuth())
		{
			profile.GET("/xp", profileHandler.GetXP)
			profile.GET("/badges", profileHandler.GetBadges)
		}
	}

	// Background loops: periodic drains plus connectivity polling. An
	// initial drain flushes anything staged before the last shutdown.
	syncService.Start()
	monitor.Start()
	go func() {
		if _, err := syncService.DrainNow(); err != nil {
			log.Printf("Startup drain failed: %v", err)
		}
	}()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	monitor.Stop()
	syncService.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	if err := localStore.Close(); err != nil {
		log.Printf("Error closing local store: %v", err)
	}
	if err := redisClient.Close(); err != nil {
		log.Printf("Error closing Redis client: %v", err)
	}

	log.Println("Server exited properly")
}

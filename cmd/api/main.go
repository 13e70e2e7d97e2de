package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"labstock-api/internal/cache"
	"labstock-api/internal/config"
	"labstock-api/internal/handler"
	"labstock-api/internal/ledger"
	"labstock-api/internal/middleware"
	"labstock-api/internal/repository"
	"labstock-api/internal/router"
	"labstock-api/internal/service"

	_ "github.com/go-sql-driver/mysql"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting LabStock API...")

	// Load configuration
	cfg := config.MustLoad()
	log.Printf("Environment: %s", cfg.App.Environment)

	// Initialize ledger repository based on config
	var ledgerRepo repository.LedgerRepository
	switch cfg.LedgerDB.Type {
	case "mongodb", "mongo":
		mongoRepo, err := repository.NewMongoLedgerRepository(cfg.LedgerDB.MongoURI, cfg.LedgerDB.MongoDatabase)
		if err != nil {
			log.Fatalf("Failed to initialize MongoDB: %v", err)
		}
		ledgerRepo = mongoRepo
		log.Println("MongoDB ledger repository initialized")
	case "postgres", "postgresql":
		pgRepo, err := repository.NewPostgresLedgerRepository(cfg.LedgerDB.PostgresDSN())
		if err != nil {
			log.Fatalf("Failed to initialize PostgreSQL: %v", err)
		}
		ledgerRepo = pgRepo
		log.Println("PostgreSQL ledger repository initialized")
	default: // sqlite
		sqliteRepo, err := repository.NewSQLiteLedgerRepository(cfg.LedgerDB.Path)
		if err != nil {
			log.Fatalf("Failed to initialize SQLite: %v", err)
		}
		ledgerRepo = sqliteRepo
		log.Println("SQLite ledger repository initialized")
	}
	defer ledgerRepo.Close()

	// Initialize user repository
	var userRepo repository.UserRepository
	switch cfg.UserDB.Type {
	case "mysql":
		mysqlDB, err := sql.Open("mysql", cfg.UserDB.DSN())
		if err != nil {
			log.Fatalf("Failed to open MySQL: %v", err)
		}
		mysqlDB.SetMaxOpenConns(10)
		mysqlDB.SetMaxIdleConns(5)
		mysqlDB.SetConnMaxLifetime(5 * time.Minute)
		if err := mysqlDB.Ping(); err != nil {
			log.Fatalf("Failed to ping MySQL: %v", err)
		}
		defer mysqlDB.Close()

		mysqlRepo := repository.NewMySQLUserRepository(mysqlDB)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := mysqlRepo.EnsureSchema(ctx); err != nil {
			cancel()
			log.Fatalf("Failed to ensure MySQL schema: %v", err)
		}
		cancel()
		userRepo = mysqlRepo
		log.Println("MySQL user repository initialized")
	default: // sqlite
		sqliteUsers, err := repository.NewSQLiteUserRepository(cfg.LedgerDB.Path)
		if err != nil {
			log.Fatalf("Failed to initialize SQLite user repository: %v", err)
		}
		defer sqliteUsers.Close()
		userRepo = sqliteUsers
		log.Println("SQLite user repository initialized")
	}

	// Initialize session cache
	var sessionCache cache.Cache
	if cfg.Cache.Type == "redis" {
		redisCache, err := cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddress(),
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		if err != nil {
			log.Printf("Warning: Redis connection failed, using memory cache: %v", err)
			sessionCache = cache.NewMemoryCache()
		} else {
			sessionCache = redisCache
			log.Println("Redis session cache initialized")
		}
	} else {
		sessionCache = cache.NewMemoryCache()
		log.Println("Memory session cache initialized")
	}
	defer sessionCache.Close()

	// Initialize core components
	stockLedger := ledger.New(ledgerRepo, cfg.App.SeedDemo)
	sessionService := service.NewSessionService(userRepo, sessionCache, cfg.Cache.SessionTTL)

	// Stock alert scheduler
	var alertScheduler *service.AlertScheduler
	if cfg.Alerts.Enabled {
		alertScheduler = service.NewAlertScheduler(stockLedger, service.AlertConfig{
			SweepInterval: cfg.Alerts.SweepInterval,
			ExpiryWindow:  cfg.Alerts.ExpiryWindow,
		})
		alertScheduler.Start()
	}

	// Initialize handlers
	healthHandler := handler.New(cfg.App.Version)
	authHandler := handler.NewAuthHandler(sessionService, stockLedger)
	itemHandler := handler.NewItemHandler(stockLedger)
	transactionHandler := handler.NewTransactionHandler(stockLedger)
	reportHandler := handler.NewReportHandler(stockLedger)
	adminHandler := handler.NewAdminHandler(ledgerRepo, cfg.LedgerDB.Type, cfg.App.AdminKey)

	// Create auth middleware with injected dependencies
	authMiddleware := middleware.NewAuthMiddleware(middleware.AuthConfig{
		SessionService: sessionService,
	})

	// Create router
	r := router.New(router.Config{
		Handler:            healthHandler,
		AuthHandler:        authHandler,
		ItemHandler:        itemHandler,
		TransactionHandler: transactionHandler,
		ReportHandler:      reportHandler,
		AdminHandler:       adminHandler,
		AuthMiddleware:     authMiddleware,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on %s", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	if alertScheduler != nil {
		alertScheduler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}

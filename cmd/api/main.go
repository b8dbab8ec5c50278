package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/jobizaaa/network/internal/api"
	"github.com/jobizaaa/network/internal/auth"
	"github.com/jobizaaa/network/internal/config"
	"github.com/jobizaaa/network/internal/domain"
	"github.com/jobizaaa/network/internal/fcm"
	"github.com/jobizaaa/network/internal/middleware"
	"github.com/jobizaaa/network/internal/repository"
	"github.com/jobizaaa/network/internal/storage"
)

const version = "1.0.0"

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting Jobizaaa Network API",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
		zap.String("version", version),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := initDatabase(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Connected to database")

	repo := repository.NewPostgresRepository(db)
	if cfg.Database.AutoMigrate {
		if err := repo.Migrate(ctx); err != nil {
			logger.Fatal("Failed to apply migrations", zap.Error(err))
		}
		logger.Info("Database migrations applied")
	}

	fileStorage, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal("Failed to initialize file storage", zap.Error(err))
	}
	var uploadsDir string
	if local, ok := fileStorage.(*storage.LocalFileStorage); ok {
		uploadsDir = local.BasePath()
	}

	// Push is optional; a nil PushSender disables it.
	var push domain.PushSender
	if fcmClient, err := fcm.NewClient(ctx, logger, cfg.Firebase.CredentialsFile); err != nil {
		logger.Warn("Failed to initialize Firebase client - push notifications will be disabled", zap.Error(err))
	} else {
		push = fcmClient
		logger.Info("Firebase client initialized")
	}

	wsManager := api.NewWebSocketManager(logger, originChecker(cfg.Server.AllowedOrigins))
	go wsManager.Run(ctx)

	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessExpiry, cfg.JWT.RefreshExpiry)

	// Initialize services
	notificationService := domain.NewNotificationService(repo, repo, push, wsManager, logger)
	connectionService := domain.NewConnectionService(repo, repo, notificationService, logger)
	authService := domain.NewAuthService(repo, repo, jwtManager, auth.NewLogOTPSender(logger), domain.AuthOptions{
		OTPTTL:         cfg.OTP.TTL,
		OTPMaxAttempts: cfg.OTP.MaxAttempts,
	})
	memberService := domain.NewMemberService(repo, fileStorage)
	postService := domain.NewPostService(repo, repo, fileStorage)
	eventService := domain.NewEventService(repo)
	adminService := domain.NewAdminService(repo, repo, repo)

	for _, email := range cfg.Admin.Emails {
		if _, err := authService.EnsureAdmin(ctx, email, adminName(email)); err != nil {
			logger.Fatal("Failed to ensure admin", zap.String("email", email), zap.Error(err))
		}
	}

	router := &api.Router{
		Auth:           api.NewAuthHandler(authService, middleware.NewIPRateLimiter(cfg.RateLimit.OTPRequests, cfg.RateLimit.OTPWindow, cfg.RateLimit.OTPBurst, 10*time.Minute), logger),
		Members:        api.NewMemberHandler(memberService, logger),
		Connections:    api.NewConnectionHandler(connectionService, logger),
		Notifications:  api.NewNotificationHandler(notificationService, logger),
		Posts:          api.NewPostHandler(postService, logger),
		Events:         api.NewEventHandler(eventService, logger),
		Admin:          api.NewAdminHandler(adminService, logger),
		Health:         api.NewHealthHandler(repo, version),
		WebSocket:      wsManager,
		JWT:            jwtManager,
		OTPLimiter:     middleware.NewIPRateLimiter(cfg.RateLimit.OTPRequests, cfg.RateLimit.OTPWindow, cfg.RateLimit.OTPBurst, 10*time.Minute),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		TrustProxy:     cfg.Server.TrustProxy,
		UploadsDir:     uploadsDir,
		Logger:         logger,
	}

	// Start cleanup worker
	repo.StartCleanupWorker(ctx, time.Hour, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.Setup(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	logger.Info("Server stopped")
}

func initLogger(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.Log.Level, err)
	}
	zcfg.Level = level
	return zcfg.Build()
}

func initDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Connection pool settings
	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// originChecker restricts websocket upgrades to the configured CORS origins.
func originChecker(allowed []string) func(r *http.Request) bool {
	for _, o := range allowed {
		if o == "*" {
			return nil
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// native clients
			return true
		}
		for _, o := range allowed {
			if strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

func adminName(email string) string {
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}

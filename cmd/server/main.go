package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prudhvinik1/equiptrack/internal/config"
	"github.com/prudhvinik1/equiptrack/internal/database"
	"github.com/prudhvinik1/equiptrack/internal/handlers"
	"github.com/prudhvinik1/equiptrack/internal/logger"
	"github.com/prudhvinik1/equiptrack/internal/repositories"
	"github.com/prudhvinik1/equiptrack/internal/services"
	"github.com/prudhvinik1/equiptrack/internal/session"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logg, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	err = run(cfg, logg)
	_ = logg.Sync()
	if err != nil {
		os.Exit(1)
	}
}

// run serves until SIGINT/SIGTERM. Every error is logged before it is
// returned, and all deferred cleanup has run by the time it returns.
func run(cfg *config.Config, logg *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for _, key := range cfg.InsecureDefaults() {
		logg.Warn("Using built-in default; set it for production", zap.String("setting", key))
	}

	repo, closeStorage, err := newEquipmentRepository(ctx, cfg, logg)
	if err != nil {
		logg.Error("Failed to initialise storage", zap.String("backend", cfg.StorageBackend), zap.Error(err))
		return err
	}
	defer closeStorage()

	authService := services.NewAuthService(
		newVerifier(cfg),
		cfg.JWTSecret,
		cfg.SessionTimeout,
		services.WithLogger(logg),
	)
	defer authService.Close()

	equipmentService := services.NewEquipmentService(repo, cfg.StorageBackend, logg)

	router := handlers.NewRouter(handlers.RouterConfig{
		Log:                logg,
		Auth:               authService,
		Equipment:          equipmentService,
		MaxBodyBytes:       cfg.MaxBodyBytes,
		RequireAuthForSave: cfg.RequireAuthForSave,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logg.Info("Starting server", zap.String("port", cfg.ServerPort), zap.String("storage", cfg.StorageBackend))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	// graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		logg.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logg.Error("Server error", zap.Error(err))
		return err
	}

	logg.Info("Server stopped gracefully")
	return nil
}

func newVerifier(cfg *config.Config) session.Verifier {
	if cfg.AuthPasswordHash != "" {
		return session.NewBcryptVerifier(cfg.AuthUsername, cfg.AuthPasswordHash)
	}
	return session.NewStaticVerifier(cfg.AuthUsername, cfg.AuthPassword)
}

// newEquipmentRepository opens the configured backend. The returned func
// releases its connections.
func newEquipmentRepository(ctx context.Context, cfg *config.Config, logg *zap.Logger) (repositories.EquipmentRepository, func(), error) {
	noop := func() {}

	switch cfg.StorageBackend {
	case config.BackendRedis:
		client, err := database.NewRedisClient(ctx, cfg.RedisURL, logg)
		if err != nil {
			return nil, noop, err
		}
		return repositories.NewRedisEquipmentRepository(client, cfg.RedisKey), func() { client.Close() }, nil

	case config.BackendPostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL, logg)
		if err != nil {
			return nil, noop, err
		}
		repo := repositories.NewPostgresEquipmentRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, noop, err
		}
		return repo, pool.Close, nil

	case config.BackendS3:
		client, err := database.NewS3Client(cfg.S3)
		if err != nil {
			return nil, noop, err
		}
		repo := repositories.NewS3EquipmentRepository(client, cfg.S3.Bucket, cfg.S3.ObjectKey)
		if err := repo.EnsureBucket(ctx); err != nil {
			return nil, noop, err
		}
		logg.Info("s3 storage ready", zap.String("bucket", cfg.S3.Bucket), zap.String("key", cfg.S3.ObjectKey))
		return repo, noop, nil

	default:
		logg.Info("file storage ready", zap.String("path", cfg.EquipmentFile))
		return repositories.NewFileEquipmentRepository(cfg.EquipmentFile), noop, nil
	}
}

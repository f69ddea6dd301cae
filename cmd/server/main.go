package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/todo-api/internal/config"
	"github.com/yukikurage/todo-api/internal/database"
	"github.com/yukikurage/todo-api/internal/handlers"
	"github.com/yukikurage/todo-api/internal/logger"
	"github.com/yukikurage/todo-api/internal/middleware"
	"github.com/yukikurage/todo-api/internal/repository"
	"github.com/yukikurage/todo-api/internal/services"
	"github.com/yukikurage/todo-api/internal/storage"
)

func main() {
	// Load configuration
	cfg := config.Load()

	l := logger.New(logger.Options{
		Level: cfg.LogLevel,
		JSON:  cfg.GinMode == gin.ReleaseMode,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, l); err != nil {
		l.Fatal("server stopped", "err", err)
	}
}

func run(ctx context.Context, cfg *config.Config, l *log.Logger) error {
	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	userRepo, todoRepo, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	assetStore, closeAssets, err := openAssetStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeAssets()

	// Initialize services
	tokens := services.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	authService := services.NewAuthService(userRepo, tokens)
	todoService := services.NewTodoService(todoRepo)

	r := gin.New()
	r.Use(gin.Recovery(), logger.RequestLogger(l), middleware.CORS())

	handlers.RegisterRoutes(r, handlers.Routes{
		Auth:     handlers.NewAuthHandler(authService, l),
		Todos:    handlers.NewTodoHandler(todoService, storage.NewUploader(assetStore, cfg.PublicBaseURL), l, cfg.MaxUploadBytes),
		Assets:   handlers.NewAssetHandler(assetStore, l),
		Verifier: authService,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		l.Info("server starting", "addr", srv.Addr, "store", cfg.StoreBackend, "storage", cfg.StorageBackend)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	l.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.Config) (repository.UserRepository, repository.TodoRepository, func(), error) {
	switch cfg.StoreBackend {
	case "sql":
		// Connect to database
		db, err := database.Connect(cfg)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		// Run migrations
		if err := database.Migrate(db); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}

		closeDB := func() {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		}
		return repository.NewUserRepository(db), repository.NewTodoRepository(db), closeDB, nil

	case "firestore":
		if cfg.FirestoreProject == "" {
			return nil, nil, nil, errors.New("FIRESTORE_PROJECT is required for the firestore backend")
		}
		client, err := firestore.NewClient(ctx, cfg.FirestoreProject)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to create Firestore client: %w", err)
		}
		closeClient := func() { client.Close() }
		return repository.NewFirestoreUserRepository(client), repository.NewFirestoreTodoRepository(client), closeClient, nil

	default:
		return nil, nil, nil, fmt.Errorf("unsupported STORE_BACKEND %q", cfg.StoreBackend)
	}
}

func openAssetStore(ctx context.Context, cfg *config.Config) (storage.Store, func(), error) {
	switch cfg.StorageBackend {
	case "local":
		store, err := storage.NewLocalStore(cfg.UploadDir)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil

	case "gcs":
		if cfg.GCSBucket == "" {
			return nil, nil, errors.New("GCS_BUCKET is required for the gcs storage backend")
		}
		store, err := storage.NewGCSStore(ctx, cfg.GCSBucket)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unsupported STORAGE_BACKEND %q", cfg.StorageBackend)
	}
}

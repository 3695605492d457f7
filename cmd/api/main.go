package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/jingelab/pathreview/internal/application"
	appreview "github.com/jingelab/pathreview/internal/application/review"
	"github.com/jingelab/pathreview/internal/config"
	domain "github.com/jingelab/pathreview/internal/domain/review"
	"github.com/jingelab/pathreview/internal/infra/httpserver"
	"github.com/jingelab/pathreview/internal/infra/staging"
	"github.com/jingelab/pathreview/internal/infra/storage"
	"github.com/jingelab/pathreview/internal/middleware"
)

func main() {
	// .env is optional; deployments may supply credentials directly
	_ = godotenv.Load()

	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx := context.Background()

	// init artifact store
	var (
		store   domain.ArtifactStore
		checker middleware.HealthChecker
	)
	switch cfg.Storage.Backend {
	case config.BackendMinio:
		m, err := storage.NewMinio(ctx,
			cfg.Storage.Minio.Endpoint,
			cfg.Storage.Minio.Region,
			cfg.Storage.Minio.BucketName,
			cfg.Storage.Minio.AccessKey,
			cfg.Storage.Minio.SecretKey,
			cfg.Storage.Minio.UseSSL,
		)
		if err != nil {
			log.Fatalf("minio init error: %v", err)
		}
		store, checker = m, m
	case config.BackendFS:
		f, err := storage.NewFS(cfg.Storage.FS.Root)
		if err != nil {
			log.Fatalf("fs store init error: %v", err)
		}
		store, checker = f, f
	}

	// staging area
	if err := os.MkdirAll(cfg.Staging.Dir, 0o755); err != nil {
		log.Fatalf("staging dir error: %v", err)
	}
	staging.Sweep(cfg.Staging.Dir)
	cleaner := staging.NewCleaner(cfg.Staging.Workers, cfg.Staging.QueueSize)

	// init service
	svc := &appreview.Service{
		Store: store,
		Locator: domain.NewLocator(domain.Prefixes{
			PDF:        cfg.Storage.Prefixes.PDF,
			OCR:        cfg.Storage.Prefixes.OCR,
			Indicators: cfg.Storage.Prefixes.Indicators,
			Annotated:  cfg.Storage.Prefixes.Annotated,
		}),
		Reclaimer:  cleaner,
		Clock:      application.SystemClock{},
		StagingDir: cfg.Staging.Dir,
		PDFSuffix:  cfg.Storage.PDFSuffix,
		Timeout:    cfg.StoreTimeout(),
	}

	// router + middleware chain
	var handler http.Handler = httpserver.NewRouter(svc, cleaner, map[string]middleware.HealthChecker{
		"store": checker,
	})
	if len(cfg.CORS.AllowedOrigins) > 0 {
		handler = cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
		})(handler)
	}
	if cfg.RateLimit.Enabled {
		handler = middleware.RateLimitMiddleware(cfg.RateLimit.Capacity, cfg.RateLimit.RefillRate)(handler)
	}
	handler = middleware.APIKeyAuth(cfg.Auth.Keys)(handler)
	handler = middleware.MetricsMiddleware(handler)
	handler = middleware.LoggingMiddleware(handler)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("server listening on %s (backend=%s)", addr, cfg.Storage.Backend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Printf("shutdown error: %v", err)
	}
	cleaner.Close()
}

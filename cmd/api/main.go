package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/piracy-text/internal/application"
	appanalysis "github.com/bryanwahyu/piracy-text/internal/application/analysis"
	"github.com/bryanwahyu/piracy-text/internal/config"
	domain "github.com/bryanwahyu/piracy-text/internal/domain/analysis"
	mysqlp "github.com/bryanwahyu/piracy-text/internal/infra/db/mysql"
	postgresp "github.com/bryanwahyu/piracy-text/internal/infra/db/postgres"
	sqlitep "github.com/bryanwahyu/piracy-text/internal/infra/db/sqlite"
	"github.com/bryanwahyu/piracy-text/internal/infra/detect"
	"github.com/bryanwahyu/piracy-text/internal/infra/httpserver"
	"github.com/bryanwahyu/piracy-text/internal/infra/pdf"
	minioStore "github.com/bryanwahyu/piracy-text/internal/infra/storage"
	"github.com/bryanwahyu/piracy-text/internal/infra/translate"
	"github.com/bryanwahyu/piracy-text/internal/logging"
	"github.com/bryanwahyu/piracy-text/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	// connect database
	db, repo, err := openRepository(ctx, cfg)
	if err != nil {
		logger.Fatal("database connect error", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
	defer db.Close()

	checkers := map[string]middleware.HealthChecker{
		"database": middleware.SQLPing{DB: db},
	}

	// init translator
	translator, err := translate.New(translate.Options{
		Provider:      cfg.Translator.Provider,
		APIKey:        cfg.Translator.APIKey,
		APIHost:       cfg.Translator.APIHost,
		OpenAIKey:     cfg.Translator.OpenAIKey,
		OpenAIModel:   cfg.Translator.OpenAIModel,
		OpenAIBaseURL: cfg.Translator.OpenAIBaseURL,
		Timeout:       cfg.TranslatorTimeout(),
	})
	if err != nil {
		logger.Fatal("translator init error", zap.Error(err))
	}

	// init service
	svc := &appanalysis.Service{
		Repo:           repo,
		Detector:       detect.NewDetector(),
		Translator:     translator,
		Extractor:      pdf.NewExtractor(),
		Clock:          application.SystemClock{},
		Logger:         logger,
		MaxUploadBytes: cfg.MaxUploadBytes(),
	}

	// init minio (optional)
	if cfg.Minio.Enabled {
		store, err := minioStore.New(ctx, minioStore.Options{
			Endpoint:   cfg.Minio.Endpoint,
			Region:     cfg.Minio.Region,
			Bucket:     cfg.Minio.BucketName,
			AccessKey:  cfg.Minio.AccessKey,
			SecretKey:  cfg.Minio.SecretKey,
			UseSSL:     cfg.Minio.UseSSL,
			PublicBase: cfg.Minio.PublicBase,
		})
		if err != nil {
			logger.Fatal("minio init error", zap.Error(err))
		}
		svc.Documents = store
		checkers["storage"] = middleware.CheckFunc(store.Ping)
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.Capacity, cfg.RateLimit.RefillRate)
	stopSweeper := make(chan struct{})
	go limiter.RunSweeper(time.Minute, stopSweeper)

	handler := httpserver.NewRouter(httpserver.Deps{
		Service:        svc,
		Logger:         logger,
		Metrics:        middleware.NewMetrics(),
		Limiter:        limiter,
		HealthCheckers: checkers,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxUploadBytes: cfg.MaxUploadBytes(),
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.TranslatorTimeout() + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		logger.Info("server listening", zap.String("addr", addr), zap.String("driver", cfg.Database.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down server...")
	close(stopSweeper)

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}

// openRepository connects the configured driver and makes sure the table exists.
func openRepository(ctx context.Context, cfg *config.Config) (*sql.DB, domain.Repository, error) {
	dsn := cfg.DatabaseDSN()
	switch cfg.Database.Driver {
	case "mysql":
		db, err := mysqlp.Connect(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		if err := mysqlp.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		return db, mysqlp.NewAnalysisRepository(db), nil
	case "postgres":
		db, err := postgresp.Connect(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		if err := postgresp.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		return db, postgresp.NewAnalysisRepository(db), nil
	default:
		db, err := sqlitep.Connect(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		if err := sqlitep.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		return db, sqlitep.NewAnalysisRepository(db), nil
	}
}

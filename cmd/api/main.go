package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/oracare/oracare-api/internal/application"
	appanalysis "github.com/oracare/oracare-api/internal/application/analysis"
	apppatients "github.com/oracare/oracare-api/internal/application/patients"
	"github.com/oracare/oracare-api/internal/config"
	domanalysis "github.com/oracare/oracare-api/internal/domain/analysis"
	dompatients "github.com/oracare/oracare-api/internal/domain/patients"
	openaiclient "github.com/oracare/oracare-api/internal/infra/ai/openai"
	"github.com/oracare/oracare-api/internal/infra/cache"
	mysqlp "github.com/oracare/oracare-api/internal/infra/db/mysql"
	postgresp "github.com/oracare/oracare-api/internal/infra/db/postgres"
	"github.com/oracare/oracare-api/internal/infra/httpserver"
	minioStore "github.com/oracare/oracare-api/internal/infra/storage"
	"github.com/oracare/oracare-api/internal/middleware"
	"github.com/oracare/oracare-api/pkg/logger"
)

func main() {
	// .env is optional, real deployments set env vars directly
	_ = godotenv.Load()

	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config; aborts when the AI provider key is missing
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	zlog, err := logger.New()
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer zlog.Sync()

	ctx := context.Background()

	// connect database, driver dipilih lewat config
	var (
		db           *sql.DB
		analysisRepo domanalysis.Repository
		patientRepo  dompatients.Repository
	)
	switch cfg.Database.Driver {
	case "postgres":
		db, err = postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			zlog.Fatal("postgres connect error", zap.Error(err))
		}
		analysisRepo = postgresp.NewAnalysisRepository(db)
		patientRepo = postgresp.NewPatientRepository(db)
	default:
		db, err = mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			zlog.Fatal("mysql connect error", zap.Error(err))
		}
		analysisRepo = mysqlp.NewAnalysisRepository(db)
		patientRepo = mysqlp.NewPatientRepository(db)
	}
	defer db.Close()

	// init minio
	store, err := minioStore.New(ctx,
		cfg.Minio.Endpoint,
		cfg.Minio.Region,
		cfg.Minio.BucketName,
		cfg.Minio.AccessKey,
		cfg.Minio.SecretKey,
		cfg.Minio.UseSSL,
	)
	if err != nil {
		zlog.Fatal("minio init error", zap.Error(err))
	}

	// init AI relay + result cache
	classifier := openaiclient.NewClient(cfg.AI.APIKey, cfg.AI.Model, cfg.AITimeout())
	capacity := cfg.Cache.Capacity
	if capacity <= 0 {
		capacity = cache.DefaultCapacity
	}
	resultCache := cache.New(capacity, cfg.CacheTTL())

	// init services
	analysisSvc := &appanalysis.Service{
		Repo:       analysisRepo,
		Classifier: classifier,
		Cache:      resultCache,
		Images:     store,
		Clock:      application.SystemClock{},
		Log:        zlog,
		FailOpen:   cfg.FailOpen(),
	}
	patientsSvc := &apppatients.Service{
		Repo:  patientRepo,
		Clock: application.SystemClock{},
		Log:   zlog,
	}

	// init router
	handler := httpserver.NewRouter(httpserver.Deps{
		Analysis: analysisSvc,
		Patients: patientsSvc,
		Cache:    resultCache,
		Health: map[string]middleware.HealthChecker{
			"database": &middleware.DatabaseHealthChecker{DB: db},
			"storage":  middleware.CheckerFunc(store.Ping),
		},
		Log:            zlog,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		APIKeys:        cfg.Server.APIKeys,
		RateCapacity:   cfg.RateLimit.Capacity,
		RateRefill:     cfg.RateLimit.RefillRate,
		BodyLimit:      cfg.Server.BodyLimitMB * 1024 * 1024,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 30 * time.Second,
		// analyze holds the connection through one relay attempt plus one
		// retry, so the write timeout must cover both
		WriteTimeout: 2*cfg.AITimeout() + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		zlog.Info("server listening", zap.String("addr", addr), zap.String("driver", cfg.Database.Driver))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("server error", zap.Error(err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	zlog.Info("shutting down server")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		zlog.Error("shutdown error", zap.Error(err))
	}
}

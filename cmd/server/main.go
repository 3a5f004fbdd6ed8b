package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"safetysnap/internal/app/config"
	"safetysnap/internal/app/di"
	"safetysnap/internal/app/router"
	"safetysnap/internal/app/seed"
	analyticshandler "safetysnap/internal/feature/analytics/transport/handler"
	analyticsusecase "safetysnap/internal/feature/analytics/usecase"
	imagehandler "safetysnap/internal/feature/images/transport/handler"
	imageusecase "safetysnap/internal/feature/images/usecase"
	labeladapters "safetysnap/internal/feature/labels/adapters"
	labelhandler "safetysnap/internal/feature/labels/transport/handler"
	labelusecase "safetysnap/internal/feature/labels/usecase"
	"safetysnap/internal/platform/blobstore"
	platformdb "safetysnap/internal/platform/db"
	platformhandler "safetysnap/internal/platform/http/handler"
	"safetysnap/internal/platform/http/middleware"
	"safetysnap/internal/platform/rabbitmq"
	platformredis "safetysnap/internal/platform/redis"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("[INFO] .env not found; using system environment variables")
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// db
	db, err := platformdb.OpenDB(platformdb.LoadConfigFromEnv())
	if err != nil {
		log.Fatal(err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal(err)
	}
	defer sqlDB.Close()

	ledger := labeladapters.NewLabelLedger(db)
	if err := seed.Labels(ctx, ledger); err != nil {
		log.Fatal(err)
	}

	// Redis
	rdb, err := platformredis.NewRedisClient(ctx, platformredis.LoadConfigFromEnv())
	if err != nil {
		log.Println("[WARN] Redis unavailable. Running without cache.")
		rdb = nil
	}
	if rdb != nil {
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Println("[ERROR] Failed to close Redis client:", err)
			}
		}()
	}

	// 外部コラボレーター
	storage, err := di.NewBlobStorage(ctx, blobstore.LoadConfigFromEnv())
	if err != nil {
		log.Fatal(err)
	}
	detector, closeDetector, err := di.NewDetector(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer closeDetector()
	publisher, closePublisher := di.NewEventPublisher(rabbitmq.LoadURLFromEnv())
	defer closePublisher()

	// Repository
	imageRepo := di.NewImageRepository(db, rdb, cfg.CacheTTL)

	// Usecase
	ingestUC := imageusecase.NewIngestUsecase(imageRepo, detector, storage, publisher, imageusecase.IngestConfig{
		DetectTimeout: cfg.DetectorTimeout,
		MaxImageSize:  cfg.MaxImageSize,
	})
	imagesUC := imageusecase.NewImagesUsecase(imageRepo, storage, publisher)
	labelsUC := labelusecase.NewLabelsUsecase(ledger)
	analyticsUC := analyticsusecase.NewAnalyticsUsecase(imageRepo, ledger)

	// アクセスログは固定長キュー経由で保存し、終了時に書き切る
	accessLog := middleware.NewAsyncWriter(platformdb.NewAPILogStore(db), middleware.DefaultQueueSize)
	defer accessLog.Close()

	// ルータ生成
	r := router.NewRouter(router.Handlers{
		Health:    platformhandler.NewHealthHandler(sqlDB),
		Images:    imagehandler.NewImageHandler(ingestUC, imagesUC, int64(cfg.MaxImageSize)),
		Labels:    labelhandler.NewLabelHandler(labelsUC),
		Analytics: analyticshandler.NewAnalyticsHandler(analyticsUC),
	}, router.Options{
		CORSOrigins:  cfg.CORSOrigins,
		LogWriter:    accessLog,
		MaxImageSize: int64(cfg.MaxImageSize),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Println("[ERROR] graceful shutdown failed:", err)
		}
	}()

	log.Printf("SafetySnap listening on :%d", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	// 処理中のリクエストが終わるまで待つ
	<-shutdownDone
}

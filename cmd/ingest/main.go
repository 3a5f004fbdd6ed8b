package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/joho/godotenv"

	"safetysnap/internal/app/config"
	"safetysnap/internal/app/di"
	"safetysnap/internal/app/seed"
	imageusecase "safetysnap/internal/feature/images/usecase"
	labeladapters "safetysnap/internal/feature/labels/adapters"
	"safetysnap/internal/platform/blobstore"
	platformdb "safetysnap/internal/platform/db"
	"safetysnap/internal/platform/rabbitmq"
)

// ディレクトリ内の画像を取り込みパイプラインに一括投入します。
func main() {
	dir := flag.String("dir", ".", "directory containing images")
	workers := flag.Int("workers", 4, "concurrent uploads")
	timeout := flag.Duration("timeout", 10*time.Minute, "overall timeout")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("[INFO] .env not found; using system environment variables")
	}
	cfg := config.Load()

	db, err := platformdb.OpenDB(platformdb.LoadConfigFromEnv())
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := seed.Labels(ctx, labeladapters.NewLabelLedger(db)); err != nil {
		log.Fatal(err)
	}

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

	uc := imageusecase.NewIngestUsecase(di.NewImageRepository(db, nil, 0), detector, storage, publisher, imageusecase.IngestConfig{
		DetectTimeout: cfg.DetectorTimeout,
		MaxImageSize:  cfg.MaxImageSize,
	})

	res, err := ingestDir(ctx, uc, *dir, *workers)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("ingest ok: created=%d duplicates=%d failed=%d", res.Created, res.Duplicates, res.Failed)
}

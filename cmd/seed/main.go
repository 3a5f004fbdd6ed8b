package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/joho/godotenv"

	"safetysnap/internal/app/seed"
	imageadapters "safetysnap/internal/feature/images/adapters"
	labeladapters "safetysnap/internal/feature/labels/adapters"
	platformdb "safetysnap/internal/platform/db"
)

func main() {
	samples := flag.Bool("samples", false, "insert sample image records")
	reconcile := flag.Bool("reconcile", false, "recount label totals from the images table")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("[INFO] .env not found; using system environment variables")
	}

	db, err := platformdb.OpenDB(platformdb.LoadConfigFromEnv())
	if err != nil {
		log.Fatal(err)
	}
	// RUN_MIGRATIONSに関わらずテーブルを作成する
	if err := platformdb.Migrate(db); err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ledger := labeladapters.NewLabelLedger(db)
	if err := seed.Labels(ctx, ledger); err != nil {
		log.Fatal(err)
	}
	log.Println("labels ok")

	if *samples {
		n, err := seed.Samples(ctx, imageadapters.NewImageRepository(db, ledger), time.Now())
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("samples ok (%d created)", n)
	}

	if *reconcile {
		drift, err := seed.Reconcile(ctx, ledger)
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("reconcile ok (%d labels repaired)", len(drift))
	}
}

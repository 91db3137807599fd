// Command reconcile realigns the image bucket with the products table. It is
// a one-shot maintenance tool meant to run while the API is idle, since it
// overwrites image URLs unconditionally.
//
// Modes:
//
//	reconcile                 list the bucket and backfill image URLs by id
//	reconcile -inline         move inline base64 images into the bucket first
//	reconcile -inline -dry-run
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/vitrine/catalog/internal/config"
	"github.com/vitrine/catalog/internal/db"
	"github.com/vitrine/catalog/internal/product"
	"github.com/vitrine/catalog/internal/reconcile"
	"github.com/vitrine/catalog/internal/storage"
)

func main() {
	var (
		prefix   = flag.String("prefix", "", "only consider bucket keys under this prefix")
		pageSize = flag.Int("page-size", 1000, "bucket listing page size")
		inline   = flag.Bool("inline", false, "migrate inline base64 images to the bucket instead of reconciling keys")
		dryRun   = flag.Bool("dry-run", false, "with -inline: upload but do not write the database")
		timeout  = flag.Duration("timeout", 10*time.Minute, "abort the run after this long")
	)
	flag.Parse()

	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer pool.Close()

	store, err := storage.NewMinioStorage(
		cfg.StorageEndpoint,
		cfg.StorageAccessKey,
		cfg.StorageSecretKey,
		cfg.StorageBucket,
		cfg.StoragePublicBase,
		cfg.StorageUseSSL,
	)
	if err != nil {
		log.Fatalf("object storage init failed: %v", err)
	}

	repo := product.NewRepository(pool)

	if *inline {
		sum, err := reconcile.NewMigrator(store, repo).MigrateInline(ctx, *dryRun)
		if err != nil {
			log.Fatalf("inline migration failed: %v", err)
		}
		log.Printf("inline migration done: migrated=%d skipped=%d failed=%d (dry-run=%v)",
			sum.Migrated, sum.Skipped, sum.Failed, *dryRun)
		return
	}

	sum, err := reconcile.New(store, repo, *pageSize).Reconcile(ctx, *prefix)
	if err != nil {
		log.Fatalf("reconciliation failed: %v", err)
	}
	log.Printf("reconciliation done: updated=%d skipped=%d", sum.Updated, sum.Skipped)
}

// Command importer loads products from a CSV file and then reconciles the
// image bucket so imported rows pick up their images.
//
// Expected CSV header: id,name,description,price,category
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/vitrine/catalog/internal/config"
	"github.com/vitrine/catalog/internal/db"
	"github.com/vitrine/catalog/internal/product"
	"github.com/vitrine/catalog/internal/reconcile"
	"github.com/vitrine/catalog/internal/storage"
)

func main() {
	var (
		file     = flag.String("file", "products.csv", "CSV file to import")
		prefix   = flag.String("prefix", "", "bucket prefix for the post-import reconcile")
		skipSync = flag.Bool("skip-sync", false, "do not reconcile the bucket after importing")
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

	repo := product.NewRepository(pool)

	imported, err := importCSV(ctx, repo, *file)
	if err != nil {
		log.Fatalf("import failed: %v", err)
	}
	log.Printf("imported %d products from %s", imported, *file)

	if *skipSync {
		return
	}

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

	sum, err := reconcile.New(store, repo, 0).Reconcile(ctx, *prefix)
	if err != nil {
		log.Fatalf("post-import reconcile failed: %v", err)
	}
	log.Printf("post-import reconcile done: updated=%d skipped=%d", sum.Updated, sum.Skipped)
}

// importCSV upserts every row of the file and returns how many were written.
func importCSV(ctx context.Context, repo *product.Repository, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}

	col := map[string]int{}
	for i, name := range header {
		col[name] = i
	}
	for _, required := range []string{"id", "name", "description", "price", "category"} {
		if _, ok := col[required]; !ok {
			return 0, fmt.Errorf("missing CSV column %q", required)
		}
	}

	imported := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			return imported, nil
		}
		if err != nil {
			return imported, fmt.Errorf("read record: %w", err)
		}

		id, err := strconv.ParseInt(record[col["id"]], 10, 64)
		if err != nil {
			return imported, fmt.Errorf("row %d: invalid id %q", imported+1, record[col["id"]])
		}
		price, err := strconv.ParseFloat(record[col["price"]], 64)
		if err != nil {
			return imported, fmt.Errorf("row %d: invalid price %q", imported+1, record[col["price"]])
		}

		in := product.Input{
			Name:        record[col["name"]],
			Description: record[col["description"]],
			Price:       price,
			Category:    record[col["category"]],
		}
		if err := repo.Upsert(ctx, id, in); err != nil {
			return imported, err
		}
		imported++
	}
}

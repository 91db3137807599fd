package reconcile

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/vitrine/catalog/internal/imagekey"
	"github.com/vitrine/catalog/internal/product"
)

// Uploader is the slice of the object store the inline migrator needs.
type Uploader interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	PublicURL(key string) string
}

// InlineSource lists and relinks rows whose image column still holds an inline
// base64 payload from before storage integration existed.
type InlineSource interface {
	ListInlineImages(ctx context.Context) ([]product.InlineImage, error)
	SetImageURL(ctx context.Context, id int64, url string) (int64, error)
}

// InlineSummary reports the outcome of one inline migration sweep.
type InlineSummary struct {
	Migrated int `json:"migrated"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// Migrator moves inline base64 images out of the products table and into the
// bucket, replacing the column value with the object's public URL.
type Migrator struct {
	store Uploader
	repo  InlineSource
}

// NewMigrator creates an inline image Migrator.
func NewMigrator(store Uploader, repo InlineSource) *Migrator {
	return &Migrator{store: store, repo: repo}
}

// MigrateInline uploads every inline image under an id-prefixed key and
// backfills the row with the resulting URL. Malformed payloads and upload
// failures are counted and logged, not fatal — the sweep continues. With
// dryRun the uploads happen but no row is written.
func (m *Migrator) MigrateInline(ctx context.Context, dryRun bool) (InlineSummary, error) {
	var sum InlineSummary

	rows, err := m.repo.ListInlineImages(ctx)
	if err != nil {
		return sum, fmt.Errorf("list inline images: %w", err)
	}

	for _, row := range rows {
		contentType, data, err := parseDataURI(row.Data)
		if err != nil {
			log.Printf("migrate: product %d has unusable inline image: %v", row.ID, err)
			sum.Failed++
			continue
		}

		key := imagekey.Encode("", contentType, row.ID)
		if err := m.store.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
			log.Printf("migrate: upload for product %d failed: %v", row.ID, err)
			sum.Failed++
			continue
		}

		url := m.store.PublicURL(key)
		if dryRun {
			log.Printf("migrate: dry-run, product %d would get %s", row.ID, url)
			sum.Migrated++
			continue
		}

		rowsTouched, err := m.repo.SetImageURL(ctx, row.ID, url)
		if err != nil {
			log.Printf("migrate: backfill for product %d failed: %v", row.ID, err)
			sum.Failed++
			continue
		}
		if rowsTouched == 0 {
			sum.Skipped++
			continue
		}
		sum.Migrated++
	}
	return sum, nil
}

// parseDataURI splits a "data:<mime>;base64,<payload>" string into its content
// type and decoded bytes.
func parseDataURI(s string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return "", nil, errors.New("not a data URI")
	}
	contentType, payload, ok := strings.Cut(rest, ";base64,")
	if !ok || contentType == "" {
		return "", nil, errors.New("missing base64 marker")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode payload: %w", err)
	}
	return contentType, data, nil
}

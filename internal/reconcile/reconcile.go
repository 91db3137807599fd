// Package reconcile realigns bucket contents with the products table. It is
// run out-of-band (cmd/reconcile), single-threaded, before normal traffic —
// it overwrites image URLs unconditionally.
package reconcile

import (
	"context"
	"fmt"
	"log"

	"github.com/vitrine/catalog/internal/imagekey"
)

// defaultPageSize is used when the caller does not set a listing page size.
const defaultPageSize = 1000

// KeyLister is the slice of the object store the reconciler needs.
type KeyLister interface {
	ListKeys(ctx context.Context, prefix, startAfter string, limit int) ([]string, error)
	PublicURL(key string) string
}

// Linker writes a derived image URL into a product row and reports how many
// rows were touched.
type Linker interface {
	SetImageURL(ctx context.Context, id int64, url string) (int64, error)
}

// Summary reports the outcome of one reconciliation run.
type Summary struct {
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// Reconciler matches bucket keys back to product rows via the id embedded in
// the key name.
type Reconciler struct {
	store    KeyLister
	repo     Linker
	pageSize int
}

// New creates a Reconciler. pageSize <= 0 selects the default.
func New(store KeyLister, repo Linker, pageSize int) *Reconciler {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Reconciler{store: store, repo: repo, pageSize: pageSize}
}

// Reconcile lists every key under prefix, decodes a product id from each, and
// writes the key's public URL into the matching row. Keys with no decodable id
// and writes that touch zero rows count as skipped — shared buckets are
// expected to hold unrelated files. Storage or database errors abort the run.
func (r *Reconciler) Reconcile(ctx context.Context, prefix string) (Summary, error) {
	var sum Summary
	startAfter := ""

	for {
		keys, err := r.store.ListKeys(ctx, prefix, startAfter, r.pageSize)
		if err != nil {
			return sum, fmt.Errorf("list bucket page: %w", err)
		}
		if len(keys) == 0 {
			return sum, nil
		}

		for _, key := range keys {
			id, ok := imagekey.Decode(key)
			if !ok {
				sum.Skipped++
				continue
			}

			url := r.store.PublicURL(key)
			rows, err := r.repo.SetImageURL(ctx, id, url)
			if err != nil {
				return sum, fmt.Errorf("link key %q to product %d: %w", key, id, err)
			}
			if rows == 0 {
				log.Printf("reconcile: key %q decodes to id %d but no such row", key, id)
				sum.Skipped++
				continue
			}
			sum.Updated++
		}

		if len(keys) < r.pageSize {
			return sum, nil
		}
		startAfter = keys[len(keys)-1]
	}
}

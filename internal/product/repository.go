// Package product manages catalog products and their image lifecycle.
package product

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Product represents one catalog entry.
type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Category    string    `json:"category"`
	ImageURL    *string   `json:"imageUrl"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Input carries the writable product fields of a create/update request.
// ImageURL is only set when a JSON update passes an explicit URL through;
// uploaded files take precedence over it.
type Input struct {
	Name        string
	Description string
	Price       float64
	Category    string
	ImageURL    *string
}

// InlineImage is a row whose image column still holds an inline payload
// instead of a public URL.
type InlineImage struct {
	ID   int64
	Data string
}

// ErrNotFound is returned when a product does not exist.
var ErrNotFound = errors.New("product not found")

const productColumns = `id, name, description, price, category, image_url, created_at, updated_at`

// Repository handles all product database operations.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create inserts a new product and returns the created record.
func (r *Repository) Create(ctx context.Context, in Input, imageURL *string) (*Product, error) {
	p := &Product{}
	err := r.db.QueryRow(ctx,
		`INSERT INTO products (name, description, price, category, image_url)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+productColumns,
		in.Name, in.Description, in.Price, in.Category, imageURL,
	).Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Category, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return p, nil
}

// GetByID fetches a product by id.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Product, error) {
	p := &Product{}
	err := r.db.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Category, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product by id: %w", err)
	}
	return p, nil
}

// Update overwrites all writable fields of an existing product.
func (r *Repository) Update(ctx context.Context, id int64, in Input, imageURL *string) (*Product, error) {
	p := &Product{}
	err := r.db.QueryRow(ctx,
		`UPDATE products
		 SET name = $1, description = $2, price = $3, category = $4, image_url = $5, updated_at = NOW()
		 WHERE id = $6
		 RETURNING `+productColumns,
		in.Name, in.Description, in.Price, in.Category, imageURL, id,
	).Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Category, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	return p, nil
}

// Delete removes a product row.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns all products, newest first.
func (r *Repository) List(ctx context.Context) ([]Product, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	return scanProducts(rows)
}

// ListByCategory returns the products of one category, newest first.
func (r *Repository) ListByCategory(ctx context.Context, category string) ([]Product, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE category = $1 ORDER BY id DESC`,
		category)
	if err != nil {
		return nil, fmt.Errorf("list products by category: %w", err)
	}
	defer rows.Close()
	return scanProducts(rows)
}

// SetImageURL overwrites a product's image URL unconditionally and reports how
// many rows were touched. Writing to an absent id is a no-op, not an error —
// the reconciler counts it as skipped.
func (r *Repository) SetImageURL(ctx context.Context, id int64, url string) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE products SET image_url = $1, updated_at = NOW() WHERE id = $2`,
		url, id)
	if err != nil {
		return 0, fmt.Errorf("set image url: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListInlineImages returns the rows whose image column still carries an inline
// data URI from before storage integration existed.
func (r *Repository) ListInlineImages(ctx context.Context) ([]InlineImage, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, image_url FROM products WHERE image_url LIKE 'data:%' ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list inline images: %w", err)
	}
	defer rows.Close()

	var out []InlineImage
	for rows.Next() {
		var img InlineImage
		if err := rows.Scan(&img.ID, &img.Data); err != nil {
			return nil, fmt.Errorf("scan inline image: %w", err)
		}
		out = append(out, img)
	}
	return out, rows.Err()
}

// Upsert inserts a product with a fixed id or overwrites its fields if the id
// already exists. Used by the CSV importer.
func (r *Repository) Upsert(ctx context.Context, id int64, in Input) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO products (id, name, description, price, category)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE
		 SET name = EXCLUDED.name,
		     description = EXCLUDED.description,
		     price = EXCLUDED.price,
		     category = EXCLUDED.category,
		     updated_at = NOW()`,
		id, in.Name, in.Description, in.Price, in.Category)
	if err != nil {
		return fmt.Errorf("upsert product %d: %w", id, err)
	}
	return nil
}

func scanProducts(rows pgx.Rows) ([]Product, error) {
	products := []Product{}
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Category, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

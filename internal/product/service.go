package product

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/vitrine/catalog/internal/imagekey"
	"github.com/vitrine/catalog/internal/storage"
)

// ErrStorageUnavailable is returned when the object store rejects an upload.
// The enclosing create/update aborts before any relational write.
var ErrStorageUnavailable = errors.New("object storage unavailable")

// Upload is the file part of a multipart request, valid only for the duration
// of that request.
type Upload struct {
	Filename    string
	ContentType string
	Data        io.Reader
	Size        int64
}

// Repo is the subset of repository operations the service needs.
type Repo interface {
	Create(ctx context.Context, in Input, imageURL *string) (*Product, error)
	GetByID(ctx context.Context, id int64) (*Product, error)
	Update(ctx context.Context, id int64, in Input, imageURL *string) (*Product, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]Product, error)
	ListByCategory(ctx context.Context, category string) ([]Product, error)
}

// Service contains the product business logic, including the image lifecycle:
// upload-then-persist on create, replace-or-keep on update, and best-effort
// object cleanup on delete.
type Service struct {
	repo  Repo
	store storage.Storage

	// deleteReplaced controls whether replacing an image also removes the
	// previous object. The removal happens after the row update commits, so a
	// failed update never destroys the image the row still references.
	deleteReplaced bool
}

// NewService creates a new product Service.
func NewService(repo Repo, store storage.Storage, deleteReplaced bool) *Service {
	return &Service{repo: repo, store: store, deleteReplaced: deleteReplaced}
}

// Create stores a new product. If an upload is present its bytes go to the
// object store first; only a successful upload is followed by the row insert.
// The two writes are not transactional — an insert failure after a successful
// upload leaves an orphan object behind, cleaned up out-of-band.
func (s *Service) Create(ctx context.Context, in Input, up *Upload) (*Product, error) {
	var imageURL *string
	if up != nil {
		// The id is store-assigned, so the key carries no id prefix.
		url, err := s.putObject(ctx, up, 0)
		if err != nil {
			return nil, err
		}
		imageURL = &url
	}

	p, err := s.repo.Create(ctx, in, imageURL)
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return p, nil
}

// Update overwrites an existing product. A new upload replaces the image URL;
// without one the stored URL is preserved (or an explicit JSON imageUrl is
// passed through). The previous object is removed only when the service is
// configured to do so, and only after the row update succeeds.
func (s *Service) Update(ctx context.Context, id int64, in Input, up *Upload) (*Product, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	imageURL := current.ImageURL
	if in.ImageURL != nil {
		imageURL = in.ImageURL
	}
	if up != nil {
		url, err := s.putObject(ctx, up, id)
		if err != nil {
			return nil, err
		}
		imageURL = &url
	}

	p, err := s.repo.Update(ctx, id, in, imageURL)
	if err != nil {
		return nil, err
	}

	if up != nil && s.deleteReplaced && current.ImageURL != nil && *current.ImageURL != *imageURL {
		s.removeObject(ctx, id, *current.ImageURL)
	}
	return p, nil
}

// Delete removes the product row and then tries to remove its stored image.
// Once the row is gone the operation reports success: object cleanup is
// best-effort and a storage failure is only logged.
func (s *Service) Delete(ctx context.Context, id int64) error {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if current.ImageURL != nil {
		s.removeObject(ctx, id, *current.ImageURL)
	}
	return nil
}

// GetByID returns a single product.
func (s *Service) GetByID(ctx context.Context, id int64) (*Product, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns all products, newest first.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	return s.repo.List(ctx)
}

// ListByCategory returns one category's products. The literal category "all"
// returns everything.
func (s *Service) ListByCategory(ctx context.Context, category string) ([]Product, error) {
	if category == "all" {
		return s.repo.List(ctx)
	}
	return s.repo.ListByCategory(ctx, category)
}

// IsNotFound returns true when the error indicates a missing product.
func (s *Service) IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// putObject uploads the file part under a freshly encoded key and returns the
// object's public URL.
func (s *Service) putObject(ctx context.Context, up *Upload, id int64) (string, error) {
	key := imagekey.Encode(up.Filename, up.ContentType, id)
	if err := s.store.Upload(ctx, key, up.Data, up.Size, up.ContentType); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return s.store.PublicURL(key), nil
}

// removeObject deletes the object referenced by imageURL. Failures are logged
// and swallowed: the relational write has already committed and must not be
// rolled back by a storage-side problem.
func (s *Service) removeObject(ctx context.Context, id int64, imageURL string) {
	key, ok := imagekey.KeyFromURL(imageURL)
	if !ok {
		log.Printf("product %d: image url %q has no derivable key, skipping cleanup", id, imageURL)
		return
	}
	if err := s.store.Delete(ctx, key); err != nil {
		log.Printf("product %d: delete object %q failed: %v", id, key, err)
	}
}

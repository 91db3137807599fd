package product

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	uploaded  []string
	deleted   []string
	uploadErr error
	deleteErr error
}

func (f *fakeStore) Upload(_ context.Context, key string, _ io.Reader, _ int64, _ string) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.uploaded = append(f.uploaded, key)
	return nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeStore) ListKeys(context.Context, string, string, int) ([]string, error) {
	return nil, nil
}

func (f *fakeStore) PublicURL(key string) string {
	return "http://cdn.test/products/" + key
}

type fakeRepo struct {
	rows    map[int64]*Product
	nextID  int64
	creates int
	updates int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: map[int64]*Product{}, nextID: 1}
}

func (f *fakeRepo) Create(_ context.Context, in Input, imageURL *string) (*Product, error) {
	p := &Product{
		ID:       f.nextID,
		Name:     in.Name,
		Price:    in.Price,
		Category: in.Category,
		ImageURL: imageURL,
	}
	f.nextID++
	f.rows[p.ID] = p
	f.creates++
	return p, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id int64) (*Product, error) {
	p, ok := f.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeRepo) Update(_ context.Context, id int64, in Input, imageURL *string) (*Product, error) {
	p, ok := f.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	p.Name, p.Description, p.Price, p.Category = in.Name, in.Description, in.Price, in.Category
	p.ImageURL = imageURL
	f.updates++
	cp := *p
	return &cp, nil
}

func (f *fakeRepo) Delete(_ context.Context, id int64) error {
	if _, ok := f.rows[id]; !ok {
		return ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeRepo) List(context.Context) ([]Product, error) { return nil, nil }

func (f *fakeRepo) ListByCategory(context.Context, string) ([]Product, error) { return nil, nil }

func upload(name string) *Upload {
	return &Upload{
		Filename:    name,
		ContentType: "image/png",
		Data:        strings.NewReader("png bytes"),
		Size:        9,
	}
}

func strptr(s string) *string { return &s }

func TestCreateWithImage(t *testing.T) {
	repo, store := newFakeRepo(), &fakeStore{}
	svc := NewService(repo, store, false)

	p, err := svc.Create(context.Background(), Input{Name: "Shampoo", Price: 9.9, Category: "hair"}, upload("shampoo.png"))
	require.NoError(t, err)

	require.Len(t, store.uploaded, 1)
	require.NotNil(t, p.ImageURL)
	assert.Equal(t, store.PublicURL(store.uploaded[0]), *p.ImageURL)
}

func TestCreateWithoutImage(t *testing.T) {
	repo, store := newFakeRepo(), &fakeStore{}
	svc := NewService(repo, store, false)

	p, err := svc.Create(context.Background(), Input{Name: "Soap", Price: 3, Category: "body"}, nil)
	require.NoError(t, err)
	assert.Nil(t, p.ImageURL)
	assert.Empty(t, store.uploaded)
}

func TestCreateUploadFailureWritesNoRow(t *testing.T) {
	repo := newFakeRepo()
	store := &fakeStore{uploadErr: errors.New("bucket down")}
	svc := NewService(repo, store, false)

	_, err := svc.Create(context.Background(), Input{Name: "Soap", Price: 3, Category: "body"}, upload("soap.jpg"))
	require.ErrorIs(t, err, ErrStorageUnavailable)
	assert.Zero(t, repo.creates)
}

func TestUpdateWithoutFileKeepsImage(t *testing.T) {
	repo, store := newFakeRepo(), &fakeStore{}
	repo.rows[7] = &Product{ID: 7, Name: "Shampoo", ImageURL: strptr("http://cdn.test/products/7_old.png")}
	svc := NewService(repo, store, false)

	p, err := svc.Update(context.Background(), 7, Input{Name: "Shampoo Plus", Price: 12, Category: "hair"}, nil)
	require.NoError(t, err)
	require.NotNil(t, p.ImageURL)
	assert.Equal(t, "http://cdn.test/products/7_old.png", *p.ImageURL)
	assert.Empty(t, store.uploaded)
}

func TestUpdateWithFileReplacesImage(t *testing.T) {
	repo, store := newFakeRepo(), &fakeStore{}
	repo.rows[7] = &Product{ID: 7, Name: "Shampoo", ImageURL: strptr("http://cdn.test/products/7_old.png")}
	svc := NewService(repo, store, false)

	p, err := svc.Update(context.Background(), 7, Input{Name: "Shampoo", Price: 12, Category: "hair"}, upload("new.png"))
	require.NoError(t, err)
	require.Len(t, store.uploaded, 1)
	require.NotNil(t, p.ImageURL)
	assert.Equal(t, store.PublicURL(store.uploaded[0]), *p.ImageURL)
	assert.Empty(t, store.deleted, "predecessor kept when deleteReplaced is off")
}

func TestUpdateDeletesReplacedImageWhenConfigured(t *testing.T) {
	repo, store := newFakeRepo(), &fakeStore{}
	repo.rows[7] = &Product{ID: 7, Name: "Shampoo", ImageURL: strptr("http://cdn.test/products/7_old.png")}
	svc := NewService(repo, store, true)

	_, err := svc.Update(context.Background(), 7, Input{Name: "Shampoo", Price: 12, Category: "hair"}, upload("new.png"))
	require.NoError(t, err)
	assert.Equal(t, []string{"7_old.png"}, store.deleted)
}

func TestUpdateUploadFailureWritesNothing(t *testing.T) {
	repo := newFakeRepo()
	repo.rows[7] = &Product{ID: 7, Name: "Shampoo", ImageURL: strptr("http://cdn.test/products/7_old.png")}
	store := &fakeStore{uploadErr: errors.New("bucket down")}
	svc := NewService(repo, store, true)

	_, err := svc.Update(context.Background(), 7, Input{Name: "Shampoo", Price: 12, Category: "hair"}, upload("new.png"))
	require.ErrorIs(t, err, ErrStorageUnavailable)
	assert.Zero(t, repo.updates)
	assert.NotNil(t, repo.rows[7].ImageURL)
}

func TestUpdateJSONImageURLPassthrough(t *testing.T) {
	repo, store := newFakeRepo(), &fakeStore{}
	repo.rows[7] = &Product{ID: 7, Name: "Shampoo", ImageURL: strptr("http://cdn.test/products/7_old.png")}
	svc := NewService(repo, store, false)

	p, err := svc.Update(context.Background(), 7,
		Input{Name: "Shampoo", Price: 12, Category: "hair", ImageURL: strptr("http://cdn.test/products/other.png")}, nil)
	require.NoError(t, err)
	require.NotNil(t, p.ImageURL)
	assert.Equal(t, "http://cdn.test/products/other.png", *p.ImageURL)
}

func TestUpdateMissingProduct(t *testing.T) {
	svc := NewService(newFakeRepo(), &fakeStore{}, false)
	_, err := svc.Update(context.Background(), 99, Input{Name: "x", Category: "y"}, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteRemovesRowAndObject(t *testing.T) {
	repo, store := newFakeRepo(), &fakeStore{}
	repo.rows[7] = &Product{ID: 7, ImageURL: strptr("http://cdn.test/products/7_shampoo.png")}
	svc := NewService(repo, store, false)

	require.NoError(t, svc.Delete(context.Background(), 7))
	assert.NotContains(t, repo.rows, int64(7))
	assert.Equal(t, []string{"7_shampoo.png"}, store.deleted)
}

func TestDeleteSucceedsWhenObjectCleanupFails(t *testing.T) {
	repo := newFakeRepo()
	repo.rows[7] = &Product{ID: 7, ImageURL: strptr("http://cdn.test/products/7_shampoo.png")}
	store := &fakeStore{deleteErr: errors.New("bucket down")}
	svc := NewService(repo, store, false)

	require.NoError(t, svc.Delete(context.Background(), 7))
	assert.NotContains(t, repo.rows, int64(7))
}

func TestDeleteSkipsCleanupOnUnparseableURL(t *testing.T) {
	repo, store := newFakeRepo(), &fakeStore{}
	repo.rows[7] = &Product{ID: 7, ImageURL: strptr("://not a url")}
	svc := NewService(repo, store, false)

	require.NoError(t, svc.Delete(context.Background(), 7))
	assert.Empty(t, store.deleted)
	assert.NotContains(t, repo.rows, int64(7))
}

func TestDeleteMissingProduct(t *testing.T) {
	svc := NewService(newFakeRepo(), &fakeStore{}, false)
	assert.ErrorIs(t, svc.Delete(context.Background(), 99), ErrNotFound)
}

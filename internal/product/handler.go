package product

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vitrine/catalog/internal/response"
)

// maxUploadBytes bounds the in-memory portion of multipart parsing.
const maxUploadBytes = 10 << 20

// Handler holds HTTP handlers for product endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a new product Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// List returns every product, newest first. Public.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.List(r.Context())
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, products)
}

// ListByCategory returns one category's products; "all" matches everything. Public.
func (h *Handler) ListByCategory(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	products, err := h.svc.ListByCategory(r.Context(), category)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, products)
}

// Create registers a new product from a multipart form with an optional image
// file. Admin only.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	in, up, err := parseMultipart(r)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	p, err := h.svc.Create(r.Context(), in, up)
	if err != nil {
		if errors.Is(err, ErrStorageUnavailable) {
			response.Error(w, http.StatusBadGateway, "image upload failed")
			return
		}
		response.InternalError(w)
		return
	}
	response.Created(w, p)
}

// Update overwrites an existing product. Accepts either a multipart form (with
// an optional replacement image) or a JSON body. Admin only.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.BadRequest(w, "invalid product id")
		return
	}

	var (
		in Input
		up *Upload
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		in, up, err = parseMultipart(r)
	} else {
		in, err = parseJSON(r)
	}
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	p, err := h.svc.Update(r.Context(), id, in, up)
	if err != nil {
		switch {
		case h.svc.IsNotFound(err):
			response.NotFound(w, "product not found")
		case errors.Is(err, ErrStorageUnavailable):
			response.Error(w, http.StatusBadGateway, "image upload failed")
		default:
			response.InternalError(w)
		}
		return
	}
	response.OK(w, p)
}

// Delete removes a product and, best-effort, its stored image. Admin only.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.BadRequest(w, "invalid product id")
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		if h.svc.IsNotFound(err) {
			response.NotFound(w, "product not found")
			return
		}
		response.InternalError(w)
		return
	}
	response.OK(w, map[string]string{"message": "product deleted"})
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// parseMultipart reads the product fields and the optional "image" file part
// from a multipart form.
func parseMultipart(r *http.Request) (Input, *Upload, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return Input{}, nil, errors.New("invalid multipart form")
	}

	price, err := strconv.ParseFloat(r.FormValue("price"), 64)
	if err != nil {
		return Input{}, nil, errors.New("invalid price")
	}

	in := Input{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		Price:       price,
		Category:    r.FormValue("category"),
	}
	if in.Name == "" || in.Category == "" {
		return Input{}, nil, errors.New("name and category are required")
	}

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return in, nil, nil
	}
	if err != nil {
		return Input{}, nil, errors.New("invalid image file part")
	}

	up := &Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        file,
		Size:        header.Size,
	}
	return in, up, nil
}

type updateJSONBody struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	ImageURL    *string `json:"imageUrl"`
}

// parseJSON reads the product fields from a JSON update body. An imageUrl
// field, when present, is passed through as-is; when absent the stored URL is
// preserved.
func parseJSON(r *http.Request) (Input, error) {
	var body updateJSONBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return Input{}, errors.New("invalid JSON body")
	}
	if body.Name == "" || body.Category == "" {
		return Input{}, errors.New("name and category are required")
	}
	return Input{
		Name:        body.Name,
		Description: body.Description,
		Price:       body.Price,
		Category:    body.Category,
		ImageURL:    body.ImageURL,
	}, nil
}

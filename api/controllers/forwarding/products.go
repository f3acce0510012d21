package forwarding

import (
	"errors"
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	internalforwarding "github.com/angelmondragon/storefront/internal/forwarding"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

const (
	productField = "product"
	imagesField  = "images"
)

// ListProducts relays the public product listing.
func ListProducts(f *internalforwarding.Forwarder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if f == nil {
			unavailable(w, r, logg, "forwarder")
			return
		}
		t := target("/api/products", "products.list", "")
		t.Query = r.URL.Query()
		t.NoStore = true
		f.Relay(w, r, t)
	}
}

func GetProduct(f *internalforwarding.Forwarder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if f == nil {
			unavailable(w, r, logg, "forwarder")
			return
		}
		id, err := validators.ResourceID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		f.Relay(w, r, target("/api/products/"+id, "products.get", ""))
	}
}

// CreateProduct re-encodes the admin form (product JSON plus at least one image).
func CreateProduct(f *internalforwarding.Forwarder, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return productForm(f, maxBytes, true, logg)
}

// UpdateProduct is CreateProduct for an existing id; images are optional.
func UpdateProduct(f *internalforwarding.Forwarder, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return productForm(f, maxBytes, false, logg)
}

func productForm(f *internalforwarding.Forwarder, maxBytes int64, create bool, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if f == nil {
			unavailable(w, r, logg, "forwarder")
			return
		}
		token, ok := bearer(w, r, logg)
		if !ok {
			return
		}

		path, route := "/api/admin/products", "admin.products.create"
		if !create {
			id, err := validators.ResourceID(r, "id")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			path, route = path+"/"+id, "admin.products.update"
		}

		if err := parseMultipart(w, r, maxBytes); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product := strings.TrimSpace(r.FormValue(productField))
		images := r.MultipartForm.File[imagesField]
		if product == "" || (create && len(images) == 0) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Missing fields"))
			return
		}

		files := make([]internalforwarding.FilePart, 0, len(images))
		for _, fh := range images {
			files = append(files, internalforwarding.FilePart{Field: imagesField, Header: fh})
		}
		body, contentType, err := internalforwarding.EncodeMultipart(map[string]string{productField: product}, files)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid upload"))
			return
		}

		t := target(path, route, token)
		t.Body = body
		t.ContentType = contentType
		f.Relay(w, r, t)
	}
}

func DeleteProduct(f *internalforwarding.Forwarder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if f == nil {
			unavailable(w, r, logg, "forwarder")
			return
		}
		token, ok := bearer(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.ResourceID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		f.Relay(w, r, target("/api/admin/products/"+id, "admin.products.delete", token))
	}
}

func parseMultipart(w http.ResponseWriter, r *http.Request, maxBytes int64) error {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return pkgerrors.New(pkgerrors.CodeValidation, "upload too large")
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form")
	}
	return nil
}

// Package uploads stores product images and returns their public URL.
package uploads

import (
	"context"
	"io"
	"mime/multipart"
	"path"
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

// ObjectStore is implemented by the S3 client.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string, size int64) error
	URL(key string) string
}

// Result is returned to the caller after a successful upload.
type Result struct {
	URL string `json:"url"`
}

type Service struct {
	store    ObjectStore
	maxBytes int64
	newID    func() string
}

// NewService limits uploads to maxMB megabytes (no limit when <= 0).
func NewService(store ObjectStore, maxMB int) (*Service, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "object store required")
	}
	return &Service{store: store, maxBytes: int64(maxMB) << 20, newID: uuid.NewString}, nil
}

// Upload writes the file under "<uuid>-<filename>".
func (s *Service) Upload(ctx context.Context, fh *multipart.FileHeader) (Result, error) {
	if fh == nil {
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "File missing")
	}
	if s.maxBytes > 0 && fh.Size > s.maxBytes {
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "file too large")
	}

	src, err := fh.Open()
	if err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read upload")
	}
	defer src.Close()

	key := s.newID() + "-" + cleanName(fh.Filename)
	contentType := fh.Header.Get("Content-Type")
	if err := s.store.Put(ctx, key, src, contentType, fh.Size); err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store upload")
	}
	return Result{URL: s.store.URL(key)}, nil
}

func cleanName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "upload"
	}
	return name
}

package uploads

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

type fakeStore struct {
	key         string
	contentType string
	body        []byte
	err         error
}

func (f *fakeStore) Put(_ context.Context, key string, body io.Reader, contentType string, _ int64) error {
	f.key = key
	f.contentType = contentType
	f.body, _ = io.ReadAll(body)
	return f.err
}

func (f *fakeStore) URL(key string) string {
	return "https://bucket.s3.region.amazonaws.com/" + key
}

func fileHeader(t *testing.T, filename, contentType string, content []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, _ = part.Write(content)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["file"][0]
}

func newTestService(t *testing.T, store *fakeStore, maxMB int) *Service {
	t.Helper()
	svc, err := NewService(store, maxMB)
	require.NoError(t, err)
	svc.newID = func() string { return "id" }
	return svc
}

func TestUploadStoresUnderUUIDKey(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(t, store, 1)

	res, err := svc.Upload(context.Background(), fileHeader(t, "shirt.png", "image/png", []byte("png")))
	require.NoError(t, err)
	assert.Equal(t, "id-shirt.png", store.key)
	assert.Equal(t, "image/png", store.contentType)
	assert.Equal(t, []byte("png"), store.body)
	assert.Equal(t, "https://bucket.s3.region.amazonaws.com/id-shirt.png", res.URL)
}

func TestUploadRejectsMissingAndOversized(t *testing.T) {
	svc := newTestService(t, &fakeStore{}, 1)
	_, err := svc.Upload(context.Background(), nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	fh := fileHeader(t, "big.bin", "application/octet-stream", bytes.Repeat([]byte("x"), 10))
	fh.Size = 2 << 20
	_, err = svc.Upload(context.Background(), fh)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestUploadStoreFailure(t *testing.T) {
	svc := newTestService(t, &fakeStore{err: errors.New("denied")}, 0)
	_, err := svc.Upload(context.Background(), fileHeader(t, "a.png", "image/png", []byte("a")))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestCleanName(t *testing.T) {
	assert.Equal(t, "shirt.png", cleanName("../../shirt.png"))
	assert.Equal(t, "shirt.png", cleanName(`C:\photos\shirt.png`))
	assert.Equal(t, "upload", cleanName(""))
}

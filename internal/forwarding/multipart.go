package forwarding

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
)

// FilePart is one uploaded file to re-encode.
type FilePart struct {
	Field  string
	Header *multipart.FileHeader
}

// EncodeMultipart rebuilds a multipart body from parsed form values and files so it
// can be sent to the backend under a fresh boundary.
func EncodeMultipart(values map[string]string, files []FilePart) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for name, value := range values {
		if err := mw.WriteField(name, value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", name, err)
		}
	}
	for _, fp := range files {
		if err := copyFile(mw, fp); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

func copyFile(mw *multipart.Writer, fp FilePart) error {
	src, err := fp.Header.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", fp.Field, err)
	}
	defer src.Close()

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fp.Field, fp.Header.Filename))
	contentType := fp.Header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)

	dst, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create part %s: %w", fp.Field, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("copy %s: %w", fp.Field, err)
	}
	return nil
}

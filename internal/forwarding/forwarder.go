// Package forwarding relays storefront API calls to the backend REST API: the caller's
// bearer token is attached, backend statuses and bodies are passed through and
// transport failures become a generic 500.
package forwarding

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/pkg/backend"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

const (
	connectFailureMessage = "Failed to connect to backend"
	invalidFormatMessage  = "Invalid data format"
	upstreamFailedMessage = "Backend request failed"
)

// Backend is the slice of the backend client used for relaying.
type Backend interface {
	Do(ctx context.Context, req backend.Request) (*backend.Response, error)
	Stream(ctx context.Context, req backend.Request) (*http.Response, error)
}

// Target describes the backend side of one forwarded call.
type Target struct {
	// Method defaults to the incoming request method.
	Method string
	Path   string
	Query  url.Values
	Token  string
	Body   io.Reader
	// ContentType of Body; defaults to the incoming Content-Type when Body is set.
	ContentType string
	// Route labels upstream metrics.
	Route string
	// NoStore marks listing responses as uncacheable on both legs.
	NoStore bool
	// NotFoundMessage replaces a backend 404 with a NOT_FOUND envelope.
	NotFoundMessage string
	// ExpectArray rejects 2xx bodies that are not a JSON array.
	ExpectArray bool
	// AsMessage wraps the backend body as {"message": <text>}, whatever its status.
	AsMessage bool
}

type Forwarder struct {
	backend Backend
	logg    *logger.Logger
}

func New(b Backend, logg *logger.Logger) (*Forwarder, error) {
	if b == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "forwarding backend is required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Forwarder{backend: b, logg: logg}, nil
}

// Relay performs the call and writes the backend answer to w.
func (f *Forwarder) Relay(w http.ResponseWriter, r *http.Request, t Target) {
	ctx := r.Context()
	resp, err := f.backend.Do(ctx, f.request(w, r, t))
	if err != nil {
		f.connectFailure(ctx, w, t, err)
		return
	}

	if t.AsMessage {
		writeMessage(w, resp.Status, resp.Body)
		return
	}
	if !resp.OK() {
		f.upstreamFailure(ctx, w, t, resp.Status, resp.Header.Get("Content-Type"), resp.Body)
		return
	}
	if t.ExpectArray && !isJSONArray(resp.Body) {
		f.logg.Warn(f.logg.WithField(ctx, "upstream_route", t.Route), "forwarding.unexpected_format")
		responses.WriteErrorStatus(w, http.StatusInternalServerError, pkgerrors.CodeInternal, invalidFormatMessage)
		return
	}
	if t.NoStore {
		w.Header().Set("Cache-Control", "no-store")
	}
	if len(resp.Body) == 0 {
		w.WriteHeader(resp.Status)
		return
	}
	responses.WriteRaw(w, resp.Status, resp.Header.Get("Content-Type"), resp.Body)
}

// Exchange performs the call and returns the buffered response for handlers that
// reshape it. Transport failures are written to w and reported as ok=false.
func (f *Forwarder) Exchange(w http.ResponseWriter, r *http.Request, t Target) (*backend.Response, bool) {
	resp, err := f.backend.Do(r.Context(), f.request(w, r, t))
	if err != nil {
		f.connectFailure(r.Context(), w, t, err)
		return nil, false
	}
	return resp, true
}

// Stream relays a 2xx body without buffering it (receipts and other downloads).
func (f *Forwarder) Stream(w http.ResponseWriter, r *http.Request, t Target) {
	ctx := r.Context()
	resp, err := f.backend.Stream(ctx, f.request(w, r, t))
	if err != nil {
		f.connectFailure(ctx, w, t, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		f.upstreamFailure(ctx, w, t, resp.StatusCode, resp.Header.Get("Content-Type"), body)
		return
	}

	for _, h := range []string{"Content-Type", "Content-Disposition", "Content-Length"} {
		if v := resp.Header.Get(h); v != "" {
			w.Header().Set(h, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		f.logg.Warn(f.logg.WithField(ctx, "error", err.Error()), "forwarding.stream_interrupted")
	}
}

func (f *Forwarder) request(w http.ResponseWriter, r *http.Request, t Target) backend.Request {
	method := t.Method
	if method == "" {
		method = r.Method
	}
	header := http.Header{}
	if accept := r.Header.Get("Accept"); accept != "" {
		header.Set("Accept", accept)
	}
	// the inbound header is never trusted; the client sets the sanitised id from ctx
	if backend.RequestIDFromContext(r.Context()) == "" {
		if requestID := w.Header().Get(backend.RequestIDHeader); requestID != "" {
			header.Set(backend.RequestIDHeader, requestID)
		}
	}
	if t.NoStore {
		header.Set("Cache-Control", "no-store")
	}
	contentType := t.ContentType
	if contentType == "" && t.Body != nil {
		contentType = r.Header.Get("Content-Type")
	}
	return backend.Request{
		Method:      method,
		Path:        t.Path,
		Query:       t.Query,
		Token:       t.Token,
		Body:        t.Body,
		ContentType: contentType,
		Header:      header,
		Route:       t.Route,
	}
}

func (f *Forwarder) connectFailure(ctx context.Context, w http.ResponseWriter, t Target, err error) {
	f.logg.Error(f.logg.WithField(ctx, "upstream_route", t.Route), "forwarding.connect_failed", err)
	responses.WriteErrorStatus(w, http.StatusInternalServerError, pkgerrors.CodeInternal, connectFailureMessage)
}

func (f *Forwarder) upstreamFailure(ctx context.Context, w http.ResponseWriter, t Target, status int, contentType string, body []byte) {
	f.logg.Warn(f.logg.WithFields(ctx, map[string]any{
		"upstream_route":  t.Route,
		"upstream_status": status,
	}), "forwarding.upstream_error")

	if status == http.StatusNotFound && t.NotFoundMessage != "" {
		responses.WriteErrorStatus(w, http.StatusNotFound, pkgerrors.CodeNotFound, t.NotFoundMessage)
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		responses.WriteErrorStatus(w, status, CodeForStatus(status), upstreamFailedMessage)
		return
	}
	responses.WriteRaw(w, status, contentType, body)
}

// CodeForStatus maps a backend status onto the closest error code.
func CodeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return pkgerrors.CodeValidation
	case http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	case http.StatusGatewayTimeout:
		return pkgerrors.CodeTimeout
	default:
		if status >= 500 {
			return pkgerrors.CodeDependency
		}
		return pkgerrors.CodeInternal
	}
}

func isJSONArray(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) > 0 && trimmed[0] == '[' && json.Valid(trimmed)
}

func writeMessage(w http.ResponseWriter, status int, body []byte) {
	payload, err := json.Marshal(map[string]string{"message": string(bytes.TrimSpace(body))})
	if err != nil {
		payload = []byte(`{"message":""}`)
	}
	responses.WriteRaw(w, status, "application/json", payload)
}

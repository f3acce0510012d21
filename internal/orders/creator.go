package orders

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/storefront/pkg/backend"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

// Creator creates orders. Both the direct checkout path and the card return path go
// through it.
type Creator interface {
	Create(ctx context.Context, token string, submission Submission) (Summary, error)
}

// Requester is the slice of the backend client needed to create orders.
type Requester interface {
	Do(ctx context.Context, req backend.Request) (*backend.Response, error)
}

type backendCreator struct {
	backend Requester
	timeout time.Duration
}

// NewBackendCreator returns a Creator posting to the backend order endpoint. Each call
// is bounded by timeout.
func NewBackendCreator(b Requester, timeout time.Duration) (Creator, error) {
	if b == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order backend is required")
	}
	return &backendCreator{backend: b, timeout: timeout}, nil
}

func (c *backendCreator) Create(ctx context.Context, token string, submission Submission) (Summary, error) {
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if err := submission.Validate(); err != nil {
		return nil, err
	}
	body, err := backend.JSONBody(submission)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode order")
	}

	ctx, cancel := backend.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.backend.Do(ctx, backend.Request{
		Method:      http.MethodPost,
		Path:        "/api/orders",
		Token:       token,
		Body:        body,
		ContentType: "application/json",
		Route:       "POST /api/orders",
	})
	if err != nil {
		return nil, backend.Classify(err, "create order")
	}
	if !resp.OK() {
		return nil, backend.Classify(&backend.UpstreamError{Status: resp.Status, Body: resp.Body, Header: resp.Header}, "create order")
	}

	summary := bytes.TrimSpace(resp.Body)
	if len(summary) == 0 {
		summary = []byte("{}")
	}
	return Summary(summary), nil
}

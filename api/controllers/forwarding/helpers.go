// Package forwarding exposes the storefront's /api routes. Most handlers relay to the
// backend REST API with the caller's bearer token; a few validate the payload first.
package forwarding

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/api/responses"
	internalforwarding "github.com/angelmondragon/storefront/internal/forwarding"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

const orderNotFoundMessage = "Order not found"

func bearer(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (string, bool) {
	token := middleware.TokenFromContext(r.Context())
	if token == "" {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
		return "", false
	}
	return token, true
}

func unavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger, what string) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, what+" unavailable"))
}

// writePlain writes v without the data envelope, for routes whose callers expect the
// backend's own shapes.
func writePlain(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		responses.WriteErrorStatus(w, http.StatusInternalServerError, pkgerrors.CodeInternal, "encode response")
		return
	}
	responses.WriteRaw(w, status, "application/json", body)
}

func jsonBody(v any) (*bytes.Reader, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode request")
	}
	return bytes.NewReader(body), nil
}

// flexibleID accepts both JSON numbers and strings.
type flexibleID string

func (id *flexibleID) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*id = ""
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = unquoted
	}
	*id = flexibleID(strings.TrimSpace(raw))
	return nil
}

func target(path, route string, token string) internalforwarding.Target {
	return internalforwarding.Target{Path: path, Route: route, Token: token}
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

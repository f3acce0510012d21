package forwarding

import (
	"net/http"

	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	internalforwarding "github.com/angelmondragon/storefront/internal/forwarding"
	"github.com/angelmondragon/storefront/internal/orders"
	"github.com/angelmondragon/storefront/pkg/logger"
)

// relayGet builds a bearer-protected GET relay whose backend path is derived from the
// request.
func relayGet(f *internalforwarding.Forwarder, route string, path func(*http.Request) (string, error), configure func(*internalforwarding.Target), logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if f == nil {
			unavailable(w, r, logg, "forwarder")
			return
		}
		token, ok := bearer(w, r, logg)
		if !ok {
			return
		}
		p, err := path(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		t := target(p, route, token)
		t.Method = http.MethodGet
		if configure != nil {
			configure(&t)
		}
		f.Relay(w, r, t)
	}
}

func fixed(path string) func(*http.Request) (string, error) {
	return func(*http.Request) (string, error) { return path, nil }
}

func withParam(prefix, key, suffix string) func(*http.Request) (string, error) {
	return func(r *http.Request) (string, error) {
		v, err := validators.ResourceID(r, key)
		if err != nil {
			return "", err
		}
		return prefix + v + suffix, nil
	}
}

func notFoundAsOrder(t *internalforwarding.Target) {
	t.NotFoundMessage = orderNotFoundMessage
}

// AdminListOrders requires the backend to answer with a JSON array.
func AdminListOrders(f *internalforwarding.Forwarder, logg *logger.Logger) http.HandlerFunc {
	return relayGet(f, "admin.orders.list", fixed("/api/orders/admin"), func(t *internalforwarding.Target) {
		t.ExpectArray = true
		t.NoStore = true
	}, logg)
}

func AdminGetOrder(f *internalforwarding.Forwarder, logg *logger.Logger) http.HandlerFunc {
	return relayGet(f, "admin.orders.get", withParam("/api/admin/orders/", "orderId", ""), notFoundAsOrder, logg)
}

func AdminListUsers(f *internalforwarding.Forwarder, logg *logger.Logger) http.HandlerFunc {
	return relayGet(f, "admin.users.list", fixed("/api/users"), func(t *internalforwarding.Target) { t.NoStore = true }, logg)
}

func ListOrders(f *internalforwarding.Forwarder, logg *logger.Logger) http.HandlerFunc {
	return relayGet(f, "orders.list", fixed("/api/orders"), func(t *internalforwarding.Target) { t.NoStore = true }, logg)
}

func UserOrders(f *internalforwarding.Forwarder, logg *logger.Logger) http.HandlerFunc {
	return relayGet(f, "orders.user", fixed("/api/orders/user"), func(t *internalforwarding.Target) { t.NoStore = true }, logg)
}

func GetOrder(f *internalforwarding.Forwarder, logg *logger.Logger) http.HandlerFunc {
	return relayGet(f, "orders.get", withParam("/api/orders/", "id", ""), notFoundAsOrder, logg)
}

type orderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// AdminUpdateOrderStatus forwards only the status field.
func AdminUpdateOrderStatus(f *internalforwarding.Forwarder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if f == nil {
			unavailable(w, r, logg, "forwarder")
			return
		}
		token, ok := bearer(w, r, logg)
		if !ok {
			return
		}
		orderID, err := validators.ResourceID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload orderStatusRequest
		if err := validators.DecodeJSONBodyLenient(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		body, err := jsonBody(payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		t := target("/api/orders/"+orderID+"/status", "admin.orders.status", token)
		t.Method = http.MethodPut
		t.Body = body
		t.ContentType = "application/json"
		t.NotFoundMessage = orderNotFoundMessage
		f.Relay(w, r, t)
	}
}

// CreateOrder validates the unified submission before relaying it.
func CreateOrder(f *internalforwarding.Forwarder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if f == nil {
			unavailable(w, r, logg, "forwarder")
			return
		}
		token, ok := bearer(w, r, logg)
		if !ok {
			return
		}
		var submission orders.Submission
		if err := validators.DecodeJSONBodyLenient(r, &submission); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		body, err := jsonBody(submission)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		t := target("/api/orders", "orders.create", token)
		t.Body = body
		t.ContentType = "application/json"
		f.Relay(w, r, t)
	}
}

// DownloadReceipt streams the backend PDF.
func DownloadReceipt(f *internalforwarding.Forwarder, logg *logger.Logger) http.HandlerFunc {
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
		t := target("/api/receipts/download/"+id, "orders.receipt", token)
		t.Method = http.MethodGet
		t.NotFoundMessage = orderNotFoundMessage
		f.Stream(w, r, t)
	}
}

package forwarding

import (
	"context"
	"mime/multipart"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	internalforwarding "github.com/angelmondragon/storefront/internal/forwarding"
	"github.com/angelmondragon/storefront/internal/payments"
	"github.com/angelmondragon/storefront/internal/uploads"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

// relayBody builds a bearer-protected relay of the incoming JSON body to a fixed path.
func relayBody(f *internalforwarding.Forwarder, path, route string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if f == nil {
			unavailable(w, r, logg, "forwarder")
			return
		}
		token, ok := bearer(w, r, logg)
		if !ok {
			return
		}
		t := target(path, route, token)
		t.Body = r.Body
		f.Relay(w, r, t)
	}
}

func Checkout(f *internalforwarding.Forwarder, logg *logger.Logger) http.HandlerFunc {
	return relayBody(f, "/api/orders/checkout", "orders.checkout", logg)
}

func SaveCart(f *internalforwarding.Forwarder, logg *logger.Logger) http.HandlerFunc {
	return relayBody(f, "/api/cart", "cart.save", logg)
}

func ProcessPayment(f *internalforwarding.Forwarder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ResourceID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		relayBody(f, "/api/payment/process/"+id, "payment.process", logg)(w, r)
	}
}

type paymentIntentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// CreatePaymentIntent answers {"clientSecret": ...} from the configured provider.
func CreatePaymentIntent(provider payments.IntentProvider, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if provider == nil {
			unavailable(w, r, logg, "payment provider")
			return
		}
		token, ok := bearer(w, r, logg)
		if !ok {
			return
		}
		var payload paymentIntentRequest
		if err := validators.DecodeJSONBodyLenient(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !payload.Amount.IsPositive() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive"))
			return
		}

		intent, err := provider.CreateIntent(r.Context(), token, payload.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writePlain(w, http.StatusOK, intent)
	}
}

// Uploader stores one image file.
type Uploader interface {
	Upload(ctx context.Context, fh *multipart.FileHeader) (uploads.Result, error)
}

// Upload stores the "file" part and answers {"url": ...}.
func Upload(svc Uploader, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "upload storage")
			return
		}
		if _, ok := bearer(w, r, logg); !ok {
			return
		}
		if err := parseMultipart(w, r, maxBytes); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		files := r.MultipartForm.File["file"]
		if len(files) == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "File missing"))
			return
		}
		res, err := svc.Upload(r.Context(), files[0])
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writePlain(w, http.StatusOK, res)
	}
}

package forwarding

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	internalforwarding "github.com/angelmondragon/storefront/internal/forwarding"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

// Login is public; the backend issues the token.
func Login(f *internalforwarding.Forwarder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if f == nil {
			unavailable(w, r, logg, "forwarder")
			return
		}
		t := target("/api/auth/login", "auth.login", "")
		t.Body = r.Body
		t.NoStore = true
		f.Relay(w, r, t)
	}
}

// Me relays GET and PUT of the caller's profile.
func Me(f *internalforwarding.Forwarder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if f == nil {
			unavailable(w, r, logg, "forwarder")
			return
		}
		token, ok := bearer(w, r, logg)
		if !ok {
			return
		}
		t := target("/api/users/me", "users.me", token)
		if r.Method != http.MethodGet {
			t.Body = r.Body
		}
		f.Relay(w, r, t)
	}
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8"`
}

type updatePasswordBody struct {
	CurrentPassword string `json:"currentPassword"`
	Password        string `json:"password"`
}

const passwordFailedMessage = "Failed to update password"

// ChangePassword answers {"success": true} or the backend's message under its status.
func ChangePassword(f *internalforwarding.Forwarder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if f == nil {
			unavailable(w, r, logg, "forwarder")
			return
		}
		token, ok := bearer(w, r, logg)
		if !ok {
			return
		}
		var payload changePasswordRequest
		if err := validators.DecodeJSONBodyLenient(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		body, err := jsonBody(updatePasswordBody{CurrentPassword: payload.CurrentPassword, Password: payload.NewPassword})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		t := target("/api/auth/updatePassword", "auth.update_password", token)
		t.Method = http.MethodPut
		t.Body = body
		t.ContentType = "application/json"
		resp, ok := f.Exchange(w, r, t)
		if !ok {
			return
		}
		if !resp.OK() {
			responses.WriteErrorStatus(w, resp.Status, internalforwarding.CodeForStatus(resp.Status), backendMessage(resp.Body, passwordFailedMessage))
			return
		}
		writePlain(w, http.StatusOK, map[string]bool{"success": true})
	}
}

func backendMessage(body []byte, fallback string) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && strings.TrimSpace(payload.Message) != "" {
		return payload.Message
	}
	return fallback
}

type wishlistAddRequest struct {
	UserID    flexibleID `json:"userId"`
	ProductID flexibleID `json:"productId"`
}

// WishlistAdd wraps the backend's plain-text answer as {"message": ...}.
func WishlistAdd(f *internalforwarding.Forwarder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if f == nil {
			unavailable(w, r, logg, "forwarder")
			return
		}
		token, ok := bearer(w, r, logg)
		if !ok {
			return
		}
		var payload wishlistAddRequest
		if err := validators.DecodeJSONBodyLenient(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.UserID == "" || payload.ProductID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Missing data"))
			return
		}
		if err := firstErr(
			validators.CheckResourceID("userId", string(payload.UserID)),
			validators.CheckResourceID("productId", string(payload.ProductID)),
		); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		t := target("/api/wishlist/"+string(payload.UserID)+"/add/"+string(payload.ProductID), "wishlist.add", token)
		t.Method = http.MethodPost
		t.AsMessage = true
		f.Relay(w, r, t)
	}
}

// WishlistRemove takes the user id from the userId query parameter.
func WishlistRemove(f *internalforwarding.Forwarder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if f == nil {
			unavailable(w, r, logg, "forwarder")
			return
		}
		token, ok := bearer(w, r, logg)
		if !ok {
			return
		}
		productID, err := validators.ResourceID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID := validators.SanitizeString(r.URL.Query().Get("userId"), 128)
		if userID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Missing user or token"))
			return
		}
		if err := validators.CheckResourceID("userId", userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		t := target("/api/wishlist/"+userID+"/remove/"+productID, "wishlist.remove", token)
		t.Method = http.MethodDelete
		t.AsMessage = true
		f.Relay(w, r, t)
	}
}

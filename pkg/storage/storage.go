// Package storage defines the visitor-scoped key-value store that backs the cart,
// wishlist and staged checkout state. Every visitor owns a private namespace and values
// are opaque strings (JSON in practice).
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Well-known keys inside a visitor namespace.
const (
	KeyCart                   = "cart"
	KeyWishlist               = "wishlist"
	KeyPendingShippingAddress = "pending-shipping-address"
	KeyPendingCartItems       = "pending-cart-items"
	KeyLastOrderSummary       = "last-order-summary"
)

// ErrUnavailable reports that no usable storage backs the namespace.
var ErrUnavailable = errors.New("storage unavailable")

// Store is implemented by every visitor storage backend.
type Store interface {
	Get(ctx context.Context, visitorID, key string) (string, bool, error)
	Set(ctx context.Context, visitorID, key, value string) error
	Delete(ctx context.Context, visitorID string, keys ...string) error
	// Take returns the value and removes it atomically. Two concurrent callers never
	// both observe the same value.
	Take(ctx context.Context, visitorID, key string) (string, bool, error)
	Ping(ctx context.Context) error
	Close() error
}

// Namespace binds a Store to a single visitor so domain code never handles ids.
type Namespace struct {
	store     Store
	visitorID string
}

// For returns the namespace of visitorID. A nil store or blank visitor yields a
// namespace whose operations report ErrUnavailable.
func For(store Store, visitorID string) Namespace {
	return Namespace{store: store, visitorID: visitorID}
}

func (n Namespace) usable() bool {
	return n.store != nil && n.visitorID != ""
}

// VisitorID returns the owner of the namespace.
func (n Namespace) VisitorID() string {
	return n.visitorID
}

func (n Namespace) Get(ctx context.Context, key string) (string, bool, error) {
	if !n.usable() {
		return "", false, ErrUnavailable
	}
	return n.store.Get(ctx, n.visitorID, key)
}

func (n Namespace) Set(ctx context.Context, key, value string) error {
	if !n.usable() {
		return ErrUnavailable
	}
	return n.store.Set(ctx, n.visitorID, key, value)
}

func (n Namespace) Delete(ctx context.Context, keys ...string) error {
	if !n.usable() {
		return ErrUnavailable
	}
	return n.store.Delete(ctx, n.visitorID, keys...)
}

func (n Namespace) Take(ctx context.Context, key string) (string, bool, error) {
	if !n.usable() {
		return "", false, ErrUnavailable
	}
	return n.store.Take(ctx, n.visitorID, key)
}

// GetJSON decodes the value stored at key into dst. found is false when the key is
// absent. Decode failures are returned wrapped so callers can decide to treat them as
// empty.
func GetJSON(ctx context.Context, ns Namespace, key string, dst any) (found bool, err error) {
	raw, ok, err := ns.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return true, &DecodeError{Key: key, Err: err}
	}
	return true, nil
}

// SetJSON encodes value and stores it at key.
func SetJSON(ctx context.Context, ns Namespace, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return ns.Set(ctx, key, string(payload))
}

// TakeJSON atomically removes key and decodes its previous value into dst.
func TakeJSON(ctx context.Context, ns Namespace, key string, dst any) (found bool, err error) {
	raw, ok, err := ns.Take(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return true, &DecodeError{Key: key, Err: err}
	}
	return true, nil
}

// DecodeError marks a stored value that could not be decoded.
type DecodeError struct {
	Key string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Key, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsDecodeError reports whether err came from a corrupt stored value.
func IsDecodeError(err error) bool {
	var target *DecodeError
	return errors.As(err, &target)
}

package orders

import (
	"context"
	"errors"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/storage"
)

var (
	// ErrIntentMissing means no staged checkout exists: it was already consumed or
	// never written.
	ErrIntentMissing = errors.New("pending checkout not found")
	// ErrIntentEmpty means the staged checkout holds no items.
	ErrIntentEmpty = errors.New("pending checkout has no items")
)

// Stage writes the pending intent for the visitor. Both keys must be written before
// the caller hands the visitor to the payment processor.
func Stage(ctx context.Context, store storage.Store, visitorID string, intent PendingIntent) error {
	ns := storage.For(store, visitorID)
	if err := storage.SetJSON(ctx, ns, storage.KeyPendingShippingAddress, intent.ShippingAddress); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stage checkout")
	}
	if err := storage.SetJSON(ctx, ns, storage.KeyPendingCartItems, intent.Items); err != nil {
		_ = ns.Delete(ctx, storage.KeyPendingShippingAddress)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stage checkout")
	}
	return nil
}

// Consume takes the staged intent out of storage. The item list is the claim: only
// the caller that took it goes on to take the address, so concurrent callers never
// split one intent between them.
func Consume(ctx context.Context, store storage.Store, visitorID string) (PendingIntent, error) {
	ns := storage.For(store, visitorID)

	var intent PendingIntent
	itemsFound, err := storage.TakeJSON(ctx, ns, storage.KeyPendingCartItems, &intent.Items)
	switch {
	case errors.Is(err, storage.ErrUnavailable):
		return PendingIntent{}, ErrIntentMissing
	case err != nil && !storage.IsDecodeError(err):
		return PendingIntent{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read pending checkout")
	case !itemsFound:
		return PendingIntent{}, ErrIntentMissing
	}
	itemsCorrupt := err != nil

	addrFound, err := storage.TakeJSON(ctx, ns, storage.KeyPendingShippingAddress, &intent.ShippingAddress)
	if err != nil && !storage.IsDecodeError(err) {
		return PendingIntent{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read pending checkout")
	}
	if !addrFound || err != nil {
		return PendingIntent{}, ErrIntentMissing
	}
	if itemsCorrupt || len(intent.Items) == 0 {
		return PendingIntent{}, ErrIntentEmpty
	}
	return intent, nil
}

// CacheSummary stores the last created order for the visitor.
func CacheSummary(ctx context.Context, store storage.Store, visitorID string, summary Summary) error {
	err := storage.For(store, visitorID).Set(ctx, storage.KeyLastOrderSummary, string(summary))
	if err != nil && !errors.Is(err, storage.ErrUnavailable) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cache order summary")
	}
	return nil
}

// LastSummary returns the cached summary of the visitor's last order.
func LastSummary(ctx context.Context, store storage.Store, visitorID string) (Summary, error) {
	raw, ok, err := storage.For(store, visitorID).Get(ctx, storage.KeyLastOrderSummary)
	if errors.Is(err, storage.ErrUnavailable) || (err == nil && !ok) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no recent order")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read order summary")
	}
	return Summary(raw), nil
}

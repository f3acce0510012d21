package sqlstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/storefront/pkg/db"
	"github.com/angelmondragon/storefront/pkg/migrate"
	"github.com/angelmondragon/storefront/pkg/storage"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestStore(t *testing.T, ttl time.Duration) *Store {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)

	client := db.Wrap(conn, db.DialectSQLite)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	require.NoError(t, migrate.Run(context.Background(), sqlDB, client.Dialect(), migrate.EmbeddedDir, "up"))

	return New(client, ttl)
}

func TestSetGetOverwrite(t *testing.T) {
	ctx := context.Background()
	ns := storage.For(newTestStore(t, 0), "visitor-1")

	require.NoError(t, ns.Set(ctx, storage.KeyCart, `[{"productId":1,"quantity":2}]`))
	require.NoError(t, ns.Set(ctx, storage.KeyCart, `[{"productId":1,"quantity":5}]`))

	v, ok, err := ns.Get(ctx, storage.KeyCart)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `[{"productId":1,"quantity":5}]`, v)
}

func TestTakeReturnsOnce(t *testing.T) {
	ctx := context.Background()
	ns := storage.For(newTestStore(t, 0), "visitor-1")
	require.NoError(t, ns.Set(ctx, storage.KeyPendingCartItems, "[1]"))

	v, ok, err := ns.Take(ctx, storage.KeyPendingCartItems)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "[1]", v)

	_, ok, err = ns.Take(ctx, storage.KeyPendingCartItems)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDeleteScopesToVisitor(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, 0)
	a := storage.For(store, "a")
	b := storage.For(store, "b")

	require.NoError(t, a.Set(ctx, storage.KeyWishlist, "a"))
	require.NoError(t, b.Set(ctx, storage.KeyWishlist, "b"))
	require.NoError(t, a.Delete(ctx, storage.KeyWishlist))

	_, ok, _ := a.Get(ctx, storage.KeyWishlist)
	require.False(t, ok)
	v, ok, _ := b.Get(ctx, storage.KeyWishlist)
	require.True(t, ok)
	require.Equal(t, "b", v)
}

func TestExpiredEntriesAreHiddenAndPurged(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, time.Minute)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }

	require.NoError(t, store.Set(ctx, "v", storage.KeyCart, "[]"))

	store.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, ok, err := store.Get(ctx, "v", storage.KeyCart)
	require.NoError(t, err)
	require.False(t, ok)

	purged, err := store.PurgeExpired(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, purged)
}

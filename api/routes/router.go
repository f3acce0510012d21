package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront/api/controllers"
	forwardcontrollers "github.com/angelmondragon/storefront/api/controllers/forwarding"
	storefrontcontrollers "github.com/angelmondragon/storefront/api/controllers/storefront"
	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/forwarding"
	"github.com/angelmondragon/storefront/internal/payments"
	"github.com/angelmondragon/storefront/internal/wishlist"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/logger"
	pkgredis "github.com/angelmondragon/storefront/pkg/redis"
	"github.com/angelmondragon/storefront/pkg/storage"
)

// Dependencies are the services the router mounts. Optional ones may be nil: their
// routes then answer with an "unavailable" error.
type Dependencies struct {
	Config *config.Config
	Logger *logger.Logger

	Store       storage.Store
	Idempotency pkgredis.IdempotencyStore

	Carts        cart.Service
	Wishlist     wishlist.Service
	Catalog      storefrontcontrollers.Catalog
	Checkout     storefrontcontrollers.CheckoutRunner
	Confirmation storefrontcontrollers.Confirmer

	Forwarder *forwarding.Forwarder
	Intents   payments.IntentProvider
	Uploads   forwardcontrollers.Uploader

	Gatherer prometheus.Gatherer
}

func NewRouter(d Dependencies) http.Handler {
	cfg, logg := d.Config, d.Logger
	maxUpload := int64(cfg.S3.MaxUploadMB) << 20

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	checks := map[string]controllers.Pinger{}
	if d.Store != nil {
		checks["storage"] = d.Store
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, checks))
	})

	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	visitor := middleware.Visitor(cfg.Storage.VisitorTTL, cfg.App.IsProd(), logg)

	r.Route("/storefront", func(r chi.Router) {
		r.Use(visitor)
		r.Use(middleware.ReadBearer(cfg.Auth, logg))
		r.Use(middleware.Idempotency(d.Idempotency, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", storefrontcontrollers.CartGet(d.Carts, logg))
			r.Post("/", storefrontcontrollers.CartAdd(d.Carts, logg))
			r.Delete("/", storefrontcontrollers.CartClear(d.Carts, logg))
			r.Get("/summary", storefrontcontrollers.CartSummary(d.Carts, d.Catalog, logg))
			r.Put("/{productId}", storefrontcontrollers.CartSetQuantity(d.Carts, logg))
			r.Delete("/{productId}", storefrontcontrollers.CartRemove(d.Carts, logg))
		})
		r.Route("/wishlist", func(r chi.Router) {
			r.Get("/", storefrontcontrollers.WishlistGet(d.Wishlist, logg))
			r.Post("/", storefrontcontrollers.WishlistAdd(d.Wishlist, d.Catalog, logg))
			r.Delete("/{productId}", storefrontcontrollers.WishlistRemove(d.Wishlist, logg))
			r.Post("/{productId}/cart", storefrontcontrollers.WishlistMoveToCart(d.Wishlist, d.Carts, logg))
		})
		r.Get("/products", storefrontcontrollers.Products(d.Catalog, logg))
		r.Get("/products/{id}", storefrontcontrollers.Product(d.Catalog, logg))
		r.Get("/categories", storefrontcontrollers.Categories(d.Catalog, logg))
		r.Post("/checkout/payment-session", storefrontcontrollers.PaymentSession(d.Checkout, logg))
		r.Post("/checkout", storefrontcontrollers.Checkout(d.Checkout, logg))
		r.Get("/orders/last", storefrontcontrollers.LastOrder(d.Store, logg))
	})

	r.With(visitor, middleware.ReadBearer(cfg.Auth, logg)).
		Get("/payment-confirmation", storefrontcontrollers.PaymentConfirmation(d.Confirmation, logg))

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", forwardcontrollers.Login(d.Forwarder, logg))
		r.Get("/products", forwardcontrollers.ListProducts(d.Forwarder, logg))
		r.Get("/products/{id}", forwardcontrollers.GetProduct(d.Forwarder, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireBearer(cfg.Auth, logg))
			r.Use(middleware.Idempotency(d.Idempotency, logg))

			r.Route("/admin/orders", func(r chi.Router) {
				r.Get("/", forwardcontrollers.AdminListOrders(d.Forwarder, logg))
				r.Get("/{orderId}", forwardcontrollers.AdminGetOrder(d.Forwarder, logg))
				r.Put("/{orderId}/status", forwardcontrollers.AdminUpdateOrderStatus(d.Forwarder, logg))
			})
			r.Get("/admin/users", forwardcontrollers.AdminListUsers(d.Forwarder, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", forwardcontrollers.ListOrders(d.Forwarder, logg))
				r.Post("/", forwardcontrollers.CreateOrder(d.Forwarder, logg))
				r.Get("/user", forwardcontrollers.UserOrders(d.Forwarder, logg))
				r.Get("/{id}", forwardcontrollers.GetOrder(d.Forwarder, logg))
				r.Get("/{id}/receipt", forwardcontrollers.DownloadReceipt(d.Forwarder, logg))
			})
			r.Post("/checkout", forwardcontrollers.Checkout(d.Forwarder, logg))
			r.Post("/cart", forwardcontrollers.SaveCart(d.Forwarder, logg))
			r.Post("/wishlist", forwardcontrollers.WishlistAdd(d.Forwarder, logg))
			r.Delete("/wishlist/{productId}", forwardcontrollers.WishlistRemove(d.Forwarder, logg))
			r.Get("/users/me", forwardcontrollers.Me(d.Forwarder, logg))
			r.Put("/users/me", forwardcontrollers.Me(d.Forwarder, logg))
			r.Put("/users/change-password", forwardcontrollers.ChangePassword(d.Forwarder, logg))
			r.Post("/payment/process/{id}", forwardcontrollers.ProcessPayment(d.Forwarder, logg))
			r.Post("/create-payment-intent", forwardcontrollers.CreatePaymentIntent(d.Intents, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin(logg))
				r.Post("/admin/products", forwardcontrollers.CreateProduct(d.Forwarder, maxUpload, logg))
				r.Put("/admin/products/{id}", forwardcontrollers.UpdateProduct(d.Forwarder, maxUpload, logg))
				r.Delete("/admin/products/{id}", forwardcontrollers.DeleteProduct(d.Forwarder, logg))
				r.Post("/upload", forwardcontrollers.Upload(d.Uploads, maxUpload, logg))
			})
		})
	})

	return r
}

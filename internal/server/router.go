// Package server assembles the HTTP API.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"event-checkout/internal/handlers"
	"event-checkout/internal/middleware"
)

// Handlers are the endpoint groups mounted by NewRouter
type Handlers struct {
	Checkout *handlers.CheckoutHandler
	Orders   *handlers.OrderHandler
	Cart     *handlers.CartHandler
	Health   *handlers.HealthHandler
}

// Options tune the router's middleware
type Options struct {
	AllowedOrigins []string
	// CheckoutLimiter throttles POST /api/checkout per client; nil disables it
	CheckoutLimiter middleware.Limiter
	RequestTimeout  time.Duration
}

// NewRouter builds the chi router for the checkout API
func NewRouter(h Handlers, opts Options, log *zap.Logger) http.Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.Recoverer(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(opts.AllowedOrigins))

	r.NotFound(middleware.NotFoundHandler().ServeHTTP)
	r.MethodNotAllowed(middleware.MethodNotAllowedHandler().ServeHTTP)

	r.Get("/health", h.Health.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(chimw.Timeout(opts.RequestTimeout))

		r.Group(func(r chi.Router) {
			if opts.CheckoutLimiter != nil {
				r.Use(middleware.RateLimit(opts.CheckoutLimiter, log))
			}
			r.Post("/checkout", h.Checkout.Checkout)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.Orders.ListOrders)
			r.Get("/{reference}", h.Orders.GetOrder)
			r.Post("/{reference}/tickets/download", h.Orders.DownloadTickets)
			r.Post("/{reference}/tickets/email", h.Orders.EmailTickets)
		})

		r.Route("/events/{id}/cart", func(r chi.Router) {
			r.Get("/", h.Cart.ViewCart)
			r.Post("/quantity", h.Cart.UpdateQuantity)
			r.Post("/clear", h.Cart.ClearCart)
		})
	})

	return r
}

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/SigNoz/retail-order-engine/internal/metrics"
	"github.com/SigNoz/retail-order-engine/internal/middleware"
	"github.com/SigNoz/retail-order-engine/internal/services"
	"github.com/SigNoz/retail-order-engine/pkg/config"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// App holds application dependencies
type App struct {
	config   *config.Config
	metrics  *metrics.AppMetrics
	logger   zerolog.Logger
	catalog  *services.CatalogService
	cart     *services.CartService
	checkout *services.CheckoutService
	orders   *services.OrderService
	ratings  *services.RatingService
}

// NewApp creates a new application instance
func NewApp(
	cfg *config.Config,
	m *metrics.AppMetrics,
	logger zerolog.Logger,
	catalog *services.CatalogService,
	cart *services.CartService,
	checkout *services.CheckoutService,
	orders *services.OrderService,
	ratings *services.RatingService,
) *App {
	return &App{
		config:   cfg,
		metrics:  m,
		logger:   logger.With().Str("component", "api").Logger(),
		catalog:  catalog,
		cart:     cart,
		checkout: checkout,
		orders:   orders,
		ratings:  ratings,
	}
}

// SetupRoutes configures the HTTP routes
func (a *App) SetupRoutes(r *mux.Router) {
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.CORSMiddleware)
	r.Use(middleware.MetricsMiddleware(a.metrics, a.logger))
	r.Use(middleware.RecoverMiddleware(a.logger))

	api := r.PathPrefix("/api/v1").Subrouter()

	// Catalog
	api.HandleFunc("/products", a.ListProductsHandler).Methods("GET")
	api.HandleFunc("/products/{id}", a.GetProductHandler).Methods("GET")
	api.HandleFunc("/products/{id}/reviews", a.ListReviewsHandler).Methods("GET")
	api.Handle("/products/{id}/reviews", a.authed(a.AddReviewHandler)).Methods("POST")
	api.Handle("/products/{id}/reviews/{reviewId}", a.authed(a.RemoveReviewHandler)).Methods("DELETE")

	// Cart
	api.Handle("/cart", a.authed(a.GetCartHandler)).Methods("GET")
	api.Handle("/cart/add", a.authed(a.AddToCartHandler)).Methods("POST")
	api.Handle("/cart/remove", a.authed(a.RemoveFromCartHandler)).Methods("POST")
	api.Handle("/cart/{lineId}", a.authed(a.AdjustCartHandler)).Methods("PATCH")

	// Checkout; the gateway posts the receipt without identity headers
	api.Handle("/checkout/key", a.authed(a.PaymentKeyHandler)).Methods("GET")
	api.HandleFunc("/checkout/verify", a.VerifyPaymentHandler).Methods("POST")

	// Orders
	api.Handle("/orders", a.authed(a.PlaceOrderHandler)).Methods("POST")
	api.Handle("/orders", a.authed(a.ListOrdersHandler)).Methods("GET")
	api.Handle("/orders/{id}", a.authed(a.GetOrderHandler)).Methods("GET")
	api.Handle("/orders/{id}/cancel", a.authed(a.CancelOrderHandler)).Methods("POST")
	api.Handle("/orders/{id}/status", a.authed(a.UpdateOrderStatusHandler)).Methods("PUT")
	api.Handle("/admin/orders", a.authed(a.ListAllOrdersHandler)).Methods("GET")

	// Health
	r.HandleFunc("/health", a.HealthHandler).Methods("GET")
}

func (a *App) authed(h http.HandlerFunc) http.Handler {
	return middleware.IdentityMiddleware(h)
}

// HealthHandler handles health check requests
func (a *App) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

type successResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type failureResponse struct {
	Status  string `json:"status"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, successResponse{Status: "success", Message: message, Data: data})
}

func writeFailure(w http.ResponseWriter, status int, kind services.Kind, message string) {
	writeJSON(w, status, failureResponse{Status: "failed", Kind: string(kind), Message: message})
}

// statusFor maps a failure kind to its HTTP status.
func statusFor(e *services.Error) int {
	switch e.Kind {
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindCapacityExceeded:
		return http.StatusUnprocessableEntity
	case services.KindStateConflict:
		return http.StatusConflict
	case services.KindForbidden:
		return http.StatusForbidden
	case services.KindUpstream:
		if e.Retryable {
			return http.StatusServiceUnavailable
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err. Untyped errors are logged and hidden behind a
// generic message.
func (a *App) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var e *services.Error
	if errors.As(err, &e) {
		status := statusFor(e)
		if status >= 500 {
			a.logger.Warn().Err(err).Str("request_id", middleware.RequestID(r.Context())).Msg("upstream failure")
		}
		writeFailure(w, status, e.Kind, e.Message)
		return
	}
	a.logger.Error().Err(err).
		Str("request_id", middleware.RequestID(r.Context())).
		Str("path", r.URL.Path).
		Msg("request failed")
	writeFailure(w, http.StatusInternalServerError, "", "Server error, Please try again later!")
}

func actor(r *http.Request) services.Actor {
	a, _ := middleware.ActorFrom(r.Context())
	return a
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	return id, err == nil && id > 0
}

func queryInt(q url.Values, key string, def int) int {
	if v := q.Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func decode(r *http.Request, v any) bool {
	return json.NewDecoder(r.Body).Decode(v) == nil
}

// formValues reads a JSON object or form encoded body into string values.
func formValues(r *http.Request, keys ...string) (map[string]string, bool) {
	out := make(map[string]string, len(keys))
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body map[string]string
		if !decode(r, &body) {
			return nil, false
		}
		for _, k := range keys {
			out[k] = body[k]
		}
		return out, true
	}
	if err := r.ParseForm(); err != nil {
		return nil, false
	}
	for _, k := range keys {
		out[k] = r.PostForm.Get(k)
	}
	return out, true
}

package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/SigNoz/retail-order-engine/internal/metrics"
	"github.com/SigNoz/retail-order-engine/internal/models"
	"github.com/SigNoz/retail-order-engine/internal/services"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	actorKey
)

// Identity headers set by the account directory in front of this service.
const (
	HeaderRequestID   = "X-Request-ID"
	HeaderAccountID   = "X-Account-ID"
	HeaderAccountRole = "X-Account-Role"
)

// Identity failures. IdentityMiddleware answers them with 401.
var (
	ErrNoIdentity     = errors.New("no identity provided")
	ErrInvalidAccount = errors.New("invalid account id")
	ErrUnknownRole    = errors.New("unknown role")
)

// MetricsMiddleware records HTTP request metrics and logs every request
func MetricsMiddleware(m *metrics.AppMetrics, logger zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap response writer to capture status code
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)

			duration := time.Since(start).Milliseconds()

			routePattern := "unknown"
			if route := mux.CurrentRoute(r); route != nil {
				if pathTemplate, err := route.GetPathTemplate(); err == nil {
					routePattern = pathTemplate
				}
			}

			ctx := r.Context()
			attrs := m.WithServiceName([]attribute.KeyValue{
				attribute.String("http.method", r.Method),
				attribute.String("http.route", routePattern),
				attribute.Int("http.status_code", rw.statusCode),
			})
			m.HTTPRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
			if rw.statusCode >= 400 {
				m.HTTPRequestsErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
			}
			m.HTTPRequestDuration.Record(ctx, float64(duration), metric.WithAttributes(attrs...))

			ev := logger.Info()
			if rw.statusCode >= 500 {
				ev = logger.Error()
			}
			ev.Str("request_id", RequestID(ctx)).
				Str("method", r.Method).
				Str("route", routePattern).
				Str("remote_addr", r.RemoteAddr).
				Int("status", rw.statusCode).
				Int64("duration_ms", duration).
				Msg("request handled")
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

// RequestIDMiddleware adds a request ID to the context
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, requestID)
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestID returns the id assigned by RequestIDMiddleware.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// CORSMiddleware adds CORS headers
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", strings.Join([]string{
			"Content-Type", "Authorization", HeaderRequestID, HeaderAccountID, HeaderAccountRole,
		}, ", "))

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RecoverMiddleware turns a panic into a 500 JSON response and logs the stack
func RecoverMiddleware(logger zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error().
						Str("request_id", RequestID(r.Context())).
						Interface("panic", rec).
						Bytes("stack", debug.Stack()).
						Msg("handler panicked")
					writeFailure(w, http.StatusInternalServerError, "", "Server error, Please try again later!")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// IdentityMiddleware resolves the caller from the identity headers. Requests
// without a valid account id are rejected with 401.
func IdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := parseActor(r.Header.Get(HeaderAccountID), r.Header.Get(HeaderAccountRole))
		if err != nil {
			writeFailure(w, http.StatusUnauthorized, string(services.KindForbidden), "Unauthorized user, "+err.Error()+"!")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

func parseActor(id, role string) (services.Actor, error) {
	if id == "" {
		return services.Actor{}, ErrNoIdentity
	}
	accountID, err := strconv.ParseInt(id, 10, 64)
	if err != nil || accountID <= 0 {
		return services.Actor{}, ErrInvalidAccount
	}

	actor := services.Actor{AccountID: accountID, Role: models.RoleUser}
	switch {
	case role == "":
	case strings.EqualFold(role, string(models.RoleUser)):
	case strings.EqualFold(role, string(models.RoleManager)):
		actor.Role = models.RoleManager
	case strings.EqualFold(role, string(models.RoleAdmin)):
		actor.Role = models.RoleAdmin
	default:
		return services.Actor{}, ErrUnknownRole
	}
	return actor, nil
}

// WithActor stores actor in ctx.
func WithActor(ctx context.Context, actor services.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFrom returns the caller resolved by IdentityMiddleware.
func ActorFrom(ctx context.Context) (services.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(services.Actor)
	return actor, ok
}

func writeFailure(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]string{"status": "failed", "message": message}
	if kind != "" {
		body["kind"] = kind
	}
	_ = json.NewEncoder(w).Encode(body)
}

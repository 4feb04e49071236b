package api

import (
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lakegate/lakegate/internal/logger"
	"github.com/lakegate/lakegate/pkg/api/auth"
	"github.com/lakegate/lakegate/pkg/api/handlers"
	"github.com/lakegate/lakegate/pkg/api/middleware"
	"github.com/lakegate/lakegate/pkg/metrics"
	"github.com/lakegate/lakegate/pkg/share/service"
)

// NewRouter creates and configures the chi router with all middleware and routes.
//
// The router is configured with:
//   - Request ID middleware for request tracking
//   - Real IP extraction for proper client identification
//   - Custom request logging using the internal logger
//   - Panic recovery to prevent server crashes
//   - Request timeout to prevent hung requests
//
// Health endpoints and /metrics are unauthenticated; everything under /v1
// except the token refresh endpoint requires a valid access token.
func NewRouter(svc *service.Service, jwtService *auth.JWTService) http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))

	healthHandler := handlers.NewHealthHandler(svc.Store())
	shareHandler := handlers.NewShareHandler(svc)
	itemHandler := handlers.NewItemHandler(svc)
	notificationHandler := handlers.NewNotificationHandler(svc.Store())
	tokenHandler := handlers.NewTokenHandler(jwtService)

	// Health routes - unauthenticated
	r.Route("/health", func(r chi.Router) {
		r.Get("/", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
	})

	if metrics.IsEnabled() {
		r.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/refresh", tokenHandler.Refresh)

		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTAuth(jwtService))

			r.Route("/shares", func(r chi.Router) {
				r.Post("/", shareHandler.Create)
				r.Get("/", shareHandler.List)

				r.Route("/{shareURI}", func(r chi.Router) {
					r.Get("/", shareHandler.Get)
					r.Delete("/", shareHandler.Delete)
					r.Post("/submit", shareHandler.Submit)
					r.Post("/approve", shareHandler.Approve)
					r.Post("/reject", shareHandler.Reject)
					r.Post("/revoke", shareHandler.Revoke)
					r.Patch("/purpose", shareHandler.UpdatePurpose)
					r.Post("/verify", itemHandler.Verify)
					r.Post("/reapply", itemHandler.Reapply)

					r.Route("/extension", func(r chi.Router) {
						r.Post("/", shareHandler.RequestExtension)
						r.Delete("/", shareHandler.CancelExtension)
						r.Post("/approve", shareHandler.ApproveExtension)
						r.Post("/reject", shareHandler.RejectExtension)
					})

					r.Route("/items", func(r chi.Router) {
						r.Post("/", itemHandler.Add)
						r.Get("/", itemHandler.List)
						r.Delete("/{itemURI}", itemHandler.Remove)
						r.Post("/{itemURI}/filter", itemHandler.AttachFilter)
						r.Delete("/{itemURI}/filter/{filterURI}", itemHandler.RemoveFilter)
					})
				})
			})

			r.Post("/datasets/{datasetURI}/reapply", itemHandler.ReapplyDataset)

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", notificationHandler.List)
				r.Post("/{id}/read", notificationHandler.MarkRead)
			})
		})
	})

	// Root redirect to health for convenience
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	return r
}

// requestLogger is a custom middleware that logs requests using the internal logger.
//
// It logs:
//   - Request start (DEBUG level): method, path, remote addr
//   - Request completion (INFO level): method, path, status, duration
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := chimiddleware.GetReqID(r.Context())

		clientIP := r.RemoteAddr
		if host, _, err := net.SplitHostPort(clientIP); err == nil {
			clientIP = host
		}
		r = r.WithContext(logger.WithContext(r.Context(), &logger.LogContext{
			RequestID: requestID,
			ClientIP:  clientIP,
			StartTime: start,
		}))

		logger.Debug("API request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		// Wrap response writer to capture status code
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		duration := time.Since(start)

		logger.Info("API request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", duration.String(),
		)
	})
}

package adminapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	adminmw "github.com/marmos91/sdbus/internal/adminapi/middleware"
	"github.com/marmos91/sdbus/internal/logger"
	"github.com/marmos91/sdbus/pkg/busobj"
)

// NewRouter builds the chi router for the admin debug surface.
//
// Routes:
//   - GET /health            - liveness probe, unauthenticated
//   - GET /debug/tree        - every registered object path, bearer-token gated
//   - GET /debug/vtables/*   - vtables registered at a path, bearer-token gated
func NewRouter(store *busobj.Store, tokens *TokenService) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	handler := NewDebugHandler(store)

	r.Get("/health", handler.Health)

	r.Group(func(r chi.Router) {
		r.Use(adminmw.JWTAuth(tokens))
		r.Get("/debug/tree", handler.Tree)
		r.Get("/debug/vtables/*", handler.Vtables)
	})

	return r
}

// requestLogger logs every request using the package-wide structured logger,
// mirroring the teacher's custom chi request-logging middleware.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("admin API request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.Info("admin API request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
		)
	})
}

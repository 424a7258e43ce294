package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/frostline/frostline-backend/pkg/logger"
	"github.com/frostline/frostline-backend/pkg/metrics"
)

// responseTap captures the status and size written by downstream handlers.
type responseTap struct {
	http.ResponseWriter
	code    int
	written int
}

func (t *responseTap) WriteHeader(code int) {
	if t.code == 0 {
		t.code = code
	}
	t.ResponseWriter.WriteHeader(code)
}

func (t *responseTap) Write(b []byte) (int, error) {
	if t.code == 0 {
		t.code = http.StatusOK
	}
	n, err := t.ResponseWriter.Write(b)
	t.written += n
	return n, err
}

func (t *responseTap) status() int {
	if t.code == 0 {
		return http.StatusOK
	}
	return t.code
}

// Logging writes one request.complete line per request and feeds the HTTP
// metrics. Health probes log at debug. Either dependency may be nil.
func Logging(logg *logger.Logger, m *metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			began := time.Now()
			tap := &responseTap{ResponseWriter: w}
			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{"method": r.Method, "path": r.URL.Path})
				logg.Debug(ctx, "request.start")
			}

			next.ServeHTTP(tap, r.WithContext(ctx))

			took := time.Since(began)
			route := matchedRoute(r)
			m.ObserveRequest(r.Method, route, tap.status(), took)
			if logg == nil {
				return
			}

			ctx = logg.WithFields(ctx, map[string]any{
				"status":      tap.status(),
				"route":       route,
				"bytes":       tap.written,
				"duration_ms": took.Milliseconds(),
			})
			switch {
			case tap.status() >= http.StatusInternalServerError:
				logg.Warn(ctx, "request.complete")
			case strings.HasPrefix(r.URL.Path, "/health/"):
				logg.Debug(ctx, "request.complete")
			default:
				logg.Info(ctx, "request.complete")
			}
		})
	}
}

// matchedRoute reads the chi pattern after routing has run; the outer request
// shares its route context with the routed one.
func matchedRoute(r *http.Request) string {
	rc := chi.RouteContext(r.Context())
	if rc == nil {
		return ""
	}
	return rc.RoutePattern()
}

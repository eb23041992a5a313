package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/radiusdt/funnelpulse/internal/config"
	"github.com/radiusdt/funnelpulse/internal/metrics"
	"github.com/radiusdt/funnelpulse/internal/storage"
)

// contextKey is a custom type for context keys.
type contextKey string

const (
	TenantContextKey contextKey = "tenant_id"
	AuthHeaderName              = "X-API-Key"
	AuthQueryParam              = "api_key"

	// MasterTenantID is the tenant assigned to requests authenticated
	// with the master key.
	MasterTenantID = "master"
)

// TenantID returns the authenticated tenant from the request context.
func TenantID(ctx context.Context) string {
	if v, ok := ctx.Value(TenantContextKey).(string); ok {
		return v
	}
	return ""
}

// statusRecorder captures the response status for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs each request and records HTTP metrics.
type LoggingMiddleware struct {
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewLoggingMiddleware(logger *zap.Logger, m *metrics.Metrics) *LoggingMiddleware {
	return &LoggingMiddleware{logger: logger, metrics: m}
}

func (lm *LoggingMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		began := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		elapsed := time.Since(began)
		lm.metrics.RecordHTTPRequest(r.URL.Path, r.Method, http.StatusText(rec.status), elapsed)
		lm.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", elapsed),
			zap.String("remote_addr", r.RemoteAddr),
		)
	})
}

// RecoveryMiddleware recovers from panics.
type RecoveryMiddleware struct {
	logger *zap.Logger
}

func NewRecoveryMiddleware(logger *zap.Logger) *RecoveryMiddleware {
	return &RecoveryMiddleware{logger: logger}
}

func (rm *RecoveryMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				rm.logger.Error("panic recovered",
					zap.Any("error", err),
					zap.String("path", r.URL.Path),
					zap.String("method", r.Method),
					zap.String("stack", string(debug.Stack())),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"error":"internal server error"}`))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// AuthMiddleware resolves API keys to tenants. The master key authenticates
// as a synthetic tenant; everything else goes through the tenant repo.
type AuthMiddleware struct {
	cfg     config.AuthConfig
	tenants storage.TenantRepo
	logger  *zap.Logger
}

func NewAuthMiddleware(cfg config.AuthConfig, tenants storage.TenantRepo, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		cfg:     cfg,
		tenants: tenants,
		logger:  logger,
	}
}

func (am *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !am.cfg.Enabled || am.skip(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get(AuthHeaderName)
		if key == "" {
			key = r.URL.Query().Get(AuthQueryParam)
		}
		if key == "" {
			am.unauthorized(w)
			return
		}

		if am.cfg.MasterKey != "" &&
			subtle.ConstantTimeCompare([]byte(key), []byte(am.cfg.MasterKey)) == 1 {
			next.ServeHTTP(w, r.WithContext(
				context.WithValue(r.Context(), TenantContextKey, MasterTenantID)))
			return
		}

		if am.tenants != nil {
			tenant, err := am.tenants.GetByAPIKey(r.Context(), key)
			if err != nil {
				am.logger.Error("tenant lookup failed", zap.Error(err))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"error":"authentication unavailable"}`))
				return
			}
			if tenant != nil {
				next.ServeHTTP(w, r.WithContext(
					context.WithValue(r.Context(), TenantContextKey, tenant.ID)))
				return
			}
		}

		am.unauthorized(w)
	})
}

func (am *AuthMiddleware) skip(path string) bool {
	for _, p := range am.cfg.SkipPaths {
		if p == path {
			return true
		}
	}
	return false
}

func (am *AuthMiddleware) unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"invalid or missing API key"}`))
}

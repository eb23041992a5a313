package httpserver

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/radiusdt/funnelpulse/internal/adplatform"
	"github.com/radiusdt/funnelpulse/internal/config"
	"github.com/radiusdt/funnelpulse/internal/database"
	"github.com/radiusdt/funnelpulse/internal/funnel"
	"github.com/radiusdt/funnelpulse/internal/geo"
	"github.com/radiusdt/funnelpulse/internal/live"
	"github.com/radiusdt/funnelpulse/internal/metrics"
	"github.com/radiusdt/funnelpulse/internal/middleware"
	"github.com/radiusdt/funnelpulse/internal/models"
	"github.com/radiusdt/funnelpulse/internal/storage"
)

const maxIngestBatch = 1000

// Dependencies holds all external dependencies for the server. Any of the
// backing connections may be nil; the server degrades per-endpoint rather
// than refusing to start.
type Dependencies struct {
	DB         *database.PostgresDB
	Redis      *database.RedisDB
	ClickHouse *database.ClickHouseDB
	Geo        *geo.Resolver
	Config     *config.Config
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
}

// Server wraps the HTTP handlers and the funnel service.
type Server struct {
	funnelService *funnel.Service
	adClient      *adplatform.Client
	geo           *geo.Resolver
	logger        *zap.Logger
	config        *config.Config
	metrics       *metrics.Metrics

	db         *database.PostgresDB
	redis      *database.RedisDB
	clickhouse *database.ClickHouseDB
}

// NewServer constructs a new http.Handler with all routes registered.
func NewServer(deps *Dependencies) http.Handler {
	cfg := deps.Config

	var eventStore storage.EventStore
	switch {
	case deps.ClickHouse != nil:
		eventStore = storage.NewClickHouseEventStore(deps.ClickHouse.Conn)
	case cfg.IsDevelopment():
		deps.Logger.Warn("no event store configured, using in-memory storage")
		eventStore = storage.NewInMemoryEventStore()
	default:
		// Metrics queries soft-fail to the all-zero shape.
		deps.Logger.Warn("no event store configured, metrics will be empty")
	}

	var tenantRepo storage.TenantRepo
	if deps.DB != nil {
		tenantRepo = storage.NewPostgresTenantRepo(deps.DB.Pool)
	} else {
		tenantRepo = storage.NewInMemoryTenantRepo()
	}

	var tracker live.Tracker
	if deps.Redis != nil {
		tracker = live.NewRedisTracker(deps.Redis.Client, cfg.Funnel.ActiveWindow)
	}

	var adClient *adplatform.Client
	if cfg.AdPlatform.Enabled {
		adClient = adplatform.NewClient(cfg.AdPlatform, deps.Logger, deps.Metrics)
	}

	s := &Server{
		funnelService: funnel.NewService(eventStore, tracker, cfg.Funnel, deps.Logger, deps.Metrics),
		adClient:      adClient,
		geo:           deps.Geo,
		logger:        deps.Logger,
		config:        cfg,
		metrics:       deps.Metrics,
		db:            deps.DB,
		redis:         deps.Redis,
		clickhouse:    deps.ClickHouse,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/track", s.handleTrack)
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/active-sessions", s.handleActiveSessions)
	mux.HandleFunc("/ad-spend", s.handleAdSpend)

	authMW := middleware.NewAuthMiddleware(cfg.Auth, tenantRepo, deps.Logger)
	rateMW := middleware.NewRateLimitMiddleware(cfg.RateLimit, deps.Logger, deps.Metrics)
	logMW := middleware.NewLoggingMiddleware(deps.Logger, deps.Metrics)
	recoveryMW := middleware.NewRecoveryMiddleware(deps.Logger)

	return recoveryMW.Handler(logMW.Handler(rateMW.Handler(authMW.Handler(mux))))
}

// ===========================================
// Handlers
// ===========================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	components := map[string]string{}
	check := func(name string, err error) {
		if err != nil {
			components[name] = "unreachable"
			return
		}
		components[name] = "ok"
	}
	if s.db != nil {
		check("postgres", s.db.Health(ctx))
	}
	if s.redis != nil {
		check("redis", s.redis.Health(ctx))
	}
	if s.clickhouse != nil {
		check("clickhouse", s.clickhouse.Health(ctx))
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"components": components,
	})
}

func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w)
		return
	}

	var events []models.FunnelEvent
	if err := json.NewDecoder(r.Body).Decode(&events); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(events) > maxIngestBatch {
		s.writeError(w, http.StatusBadRequest, "batch too large")
		return
	}

	if s.geo != nil {
		ip := clientIP(r)
		for i := range events {
			if events[i].GeoCountry == "" {
				events[i].GeoCountry = s.geo.Country(ip)
			}
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	accepted, err := s.funnelService.Ingest(ctx, s.tenantID(r), events)
	if err != nil {
		s.logger.Error("failed to ingest events", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to record events")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]int{"accepted": accepted})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w)
		return
	}

	start, ok := s.parseTimeParam(w, r, "startDate")
	if !ok {
		return
	}
	end, ok := s.parseTimeParam(w, r, "endDate")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	report, err := s.funnelService.Report(ctx, s.tenantID(r), start, end)
	if err != nil {
		s.metrics.RecordMetricsRequest("error")
		s.logger.Error("failed to build metrics report", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to retrieve funnel metrics")
		return
	}

	s.metrics.RecordMetricsRequest("ok")
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleActiveSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// Best-effort by contract: the service degrades to zero on any
	// backend failure, so this always responds 200.
	s.writeJSON(w, http.StatusOK, s.funnelService.ActiveSessions(ctx, s.tenantID(r)))
}

func (s *Server) handleAdSpend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w)
		return
	}

	start, ok := s.parseTimeParam(w, r, "startDate")
	if !ok {
		return
	}
	end, ok := s.parseTimeParam(w, r, "endDate")
	if !ok {
		return
	}
	start, end = s.funnelService.Window(start, end)

	// Unconfigured integration renders an empty report, same policy as an
	// unconfigured event store.
	if s.adClient == nil {
		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"spend": []adplatform.SpendSummary{},
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	spend, err := s.adClient.FetchSpend(ctx, s.tenantID(r), start, end)
	if err != nil {
		s.logger.Error("failed to fetch ad spend", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to retrieve ad spend")
		return
	}
	if spend == nil {
		spend = []adplatform.SpendSummary{}
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{"spend": spend})
}

// ===========================================
// Helpers
// ===========================================

func (s *Server) tenantID(r *http.Request) string {
	if id := middleware.TenantID(r.Context()); id != "" {
		return id
	}
	// Auth disabled (development); everything lands in one bucket.
	return middleware.MasterTenantID
}

func (s *Server) parseTimeParam(w http.ResponseWriter, r *http.Request, name string) (time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		s.writeError(w, http.StatusBadRequest,
			"invalid '"+name+"' timestamp, use RFC3339 (e.g. 2006-01-02T15:04:05Z)")
		return time.Time{}, false
	}
	return t, true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) methodNotAllowed(w http.ResponseWriter) {
	s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

package httpx

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/PietroNozella/PetWalker/internal/service/activity"
	"github.com/PietroNozella/PetWalker/internal/service/auth"
	"github.com/PietroNozella/PetWalker/internal/service/dog"
	"github.com/PietroNozella/PetWalker/internal/service/media"
	"github.com/PietroNozella/PetWalker/internal/service/schedule"
	"github.com/PietroNozella/PetWalker/internal/service/stats"
	"github.com/PietroNozella/PetWalker/internal/ws"
)

// Services bundles the domain services the router dispatches to.
type Services struct {
	Auth     auth.Service
	Dogs     dog.Service
	Schedule schedule.Service
	Media    media.Service
	Stats    stats.Service
	Activity activity.Service
}

// Options carries transport level settings.
type Options struct {
	Limiter        RateLimiter
	DBHealth       func(context.Context) error
	CORSOrigins    []string
	StaticDir      string
	UploadsDir     string
	MaxUploadBytes int64
	MetricsEnabled bool
}

// Router wires HTTP endpoints to services.
type Router struct {
	mux            *http.ServeMux
	logger         *slog.Logger
	services       Services
	upgrader       websocket.Upgrader
	limiter        RateLimiter
	dbHealth       func(context.Context) error
	cors           corsPolicy
	staticDir      string
	uploadsDir     string
	maxUploadBytes int64

	metricsOnce        sync.Once
	metricsInitialized bool
	requestTotal       *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec
	rateLimitHits      *prometheus.CounterVec
	publicLookups      *prometheus.CounterVec
}

const (
	rateWindowDefault  = time.Minute
	rateWindowRealtime = 30 * time.Second
	rateLimitRegister  = 5
	rateLimitLogin     = 12
	rateLimitPublic    = 60
	rateLimitUserRead  = 120
	rateLimitAdmin     = 240
	rateLimitUpload    = 30
	rateLimitWebsocket = 30
	healthCheckTimeout = 2 * time.Second
	sseHeartbeat       = 25 * time.Second
	defaultUploadBytes = 50 << 20
)

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, services Services, opts Options) *Router {
	r := &Router{
		mux:      http.NewServeMux(),
		logger:   logger,
		services: services,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		limiter:        opts.Limiter,
		dbHealth:       opts.DBHealth,
		cors:           newCORSPolicy(opts.CORSOrigins),
		staticDir:      strings.TrimSpace(opts.StaticDir),
		uploadsDir:     strings.TrimSpace(opts.UploadsDir),
		maxUploadBytes: opts.MaxUploadBytes,
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	if r.maxUploadBytes <= 0 {
		r.maxUploadBytes = defaultUploadBytes
	}
	if opts.MetricsEnabled {
		r.initMetrics()
	}
	r.register(opts.MetricsEnabled)
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

// handle registers pattern with audit logging, metrics and CORS applied.
func (r *Router) handle(pattern, route string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, r.audit(r.instrument(route, r.withCORS(h))))
}

func (r *Router) register(metrics bool) {
	r.handle("/healthz", "healthz", r.handleHealthz)
	if metrics {
		r.mux.Handle("/metrics", promhttp.Handler())
	}

	r.handle("/api/auth/register", "auth_register", r.withRateLimit("auth_register", rateLimitRegister, rateWindowDefault, rateLimitKeyIP, r.handleRegister))
	r.handle("/api/auth/login", "auth_login", r.withRateLimit("auth_login", rateLimitLogin, rateWindowDefault, rateLimitKeyIP, r.handleLogin))
	r.handle("/api/auth/me", "auth_me", r.handlerAuthRate("auth_me", rateLimitUserRead, rateWindowDefault, r.handleMe))

	r.handle("/api/users", "users", r.handlerAdminRate("users", rateLimitAdmin, rateWindowDefault, r.handleUsers))
	r.handle("/api/dogs", "dogs", r.handlerAdminRate("dogs", rateLimitAdmin, rateWindowDefault, r.handleDogs))
	r.handle("/api/dogs/{id}", "dog", r.handlerAdminRate("dog", rateLimitAdmin, rateWindowDefault, r.handleDog))
	r.handle("/api/dogs/{id}/access-code", "dog_access_code", r.handlerAdminRate("dog_access_code", rateLimitAdmin, rateWindowDefault, r.handleAccessCode))
	r.handle("/api/dogs/{id}/media", "dog_media", r.handlerAdminRate("dog_media", rateLimitUpload, rateWindowDefault, r.handleDogMedia))
	r.handle("/api/media/{id}", "media", r.handlerAdminRate("media", rateLimitAdmin, rateWindowDefault, r.handleMedia))
	r.handle("/api/walks", "walks", r.handlerAdminRate("walks", rateLimitAdmin, rateWindowDefault, r.handleWalks))
	r.handle("/api/walks/{id}", "walk", r.handlerAdminRate("walk", rateLimitAdmin, rateWindowDefault, r.handleWalk))
	r.handle("/api/trainings", "trainings", r.handlerAdminRate("trainings", rateLimitAdmin, rateWindowDefault, r.handleTrainings))
	r.handle("/api/trainings/{id}", "training", r.handlerAdminRate("training", rateLimitAdmin, rateWindowDefault, r.handleTraining))
	r.handle("/api/stats", "stats", r.handlerAdminRate("stats", rateLimitAdmin, rateWindowDefault, r.handleStats))
	r.handle("/api/activity", "activity", r.handlerAdminRate("activity", rateLimitAdmin, rateWindowDefault, r.handleActivity))
	r.handle("/api/activity/stream", "activity_stream", r.handlerAdminRate("activity_stream", rateLimitWebsocket, rateWindowRealtime, r.handleActivityStream))
	r.handle("/api/ws/activity", "activity_ws", r.handlerAdminRate("activity_ws", rateLimitWebsocket, rateWindowRealtime, r.handleActivityWS))

	r.handle("/api/public/dog/{code}", "public_dog", r.withRateLimit("public_dog", rateLimitPublic, rateWindowDefault, rateLimitKeyIP, r.handlePublicDog))
	r.handle("/api/", "api_fallback", r.handleAPIFallback)

	r.registerFrontend()
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	components := make(map[string]any)
	status := "ok"
	if r.dbHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.dbHealth(ctx); err != nil {
			status = "degraded"
			components["database"] = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
		} else {
			components["database"] = map[string]any{"status": "up"}
		}
	}
	if hub := r.services.Activity.Hub(); hub != nil {
		components["activity_stream"] = map[string]any{
			"status":      "up",
			"subscribers": hub.Subscribers(ws.TopicAll),
		}
	}
	payload := map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

func (r *Router) handleAPIFallback(w http.ResponseWriter, req *http.Request) {
	r.notFound(w)
}

func (r *Router) audit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		reqID := strings.TrimSpace(req.Header.Get("X-Request-ID"))
		if reqID == "" || len(reqID) > 128 {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		ctx := recorder.ctx
		if ctx == nil {
			ctx = req.Context()
		}
		duration := time.Since(start)
		actor := "anonymous"
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
			"request_id", reqID,
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if info, ok := authInfoFromContext(ctx); ok {
			actor = "owner"
			if info.IsAdmin {
				actor = "admin"
			}
			fields = append(fields, "user_id", info.UserID)
		} else if strings.HasPrefix(req.URL.Path, "/api/public/") {
			actor = "public"
		}
		fields = append(fields, "actor", actor)

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	ctx    context.Context
}

func (sr *statusRecorder) WriteHeader(code int) {
	if sr.status == 0 {
		sr.status = code
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

// SetContext stores ctx and hands it to any recorder further out.
func (sr *statusRecorder) SetContext(ctx context.Context) {
	sr.ctx = ctx
	if setter, ok := sr.ResponseWriter.(contextSetter); ok {
		setter.SetContext(ctx)
	}
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}

func (sr *statusRecorder) Push(target string, opts *http.PushOptions) error {
	if p, ok := sr.ResponseWriter.(http.Pusher); ok {
		return p.Push(target, opts)
	}
	return http.ErrNotSupported
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}

func (r *Router) applyRateHeaders(w http.ResponseWriter, limit int, decision rateDecision) {
	if limit <= 0 {
		return
	}
	remaining := limit - decision.count
	if remaining < 0 {
		remaining = 0
	}
	headers := w.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	if !decision.windowEnd.IsZero() {
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(decision.windowEnd.Unix(), 10))
	}
}

// pathID parses the {id} wildcard; a malformed id is reported as a missing resource.
func pathID(w http.ResponseWriter, req *http.Request, resource string) (int64, bool) {
	id, err := strconv.ParseInt(req.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusNotFound, resource+" not found")
		return 0, false
	}
	return id, true
}

// queryID parses an optional positive integer query parameter.
func queryID(req *http.Request, name string) (*int64, error) {
	raw := strings.TrimSpace(req.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, errors.New(name + " must be a positive integer")
	}
	return &id, nil
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func (r *Router) notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "not found")
}

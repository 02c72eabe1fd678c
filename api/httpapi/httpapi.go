package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	wsadapter "gimmefy/adapters/websocket"
	"gimmefy/core"
	"gimmefy/engine"
	"gimmefy/realtime"
)

// Options configures the HTTP API surface.
type Options struct {
	// PathPrefix, if set, is prepended to all routes (e.g., "/zpg").
	PathPrefix string
	// AllowCORSOrigin, if non-empty, enables basic CORS with the given origin (use "*" for any).
	AllowCORSOrigin string
	// APIKeys, if non-empty, enables static API key auth via Authorization: Bearer or X-API-Key.
	APIKeys []string
	// RateLimitEnabled toggles rate limiting.
	RateLimitEnabled bool
	// RateLimitRPM is the allowed requests per minute per client key.
	RateLimitRPM int
	// RateLimitBurst defines burst capacity.
	RateLimitBurst int
	// Logger receives request logs; nil disables request logging.
	Logger *slog.Logger
	// AssetBaseURL is the base URL the avatar render endpoint redirects to.
	AssetBaseURL string
}

// NewMux builds an http.Handler exposing the progression REST API and the
// WebSocket event stream.
// Routes:
//   - POST {prefix}/users/{name}?default_exp=&default_money=
//   - GET  {prefix}/users/{name}
//   - GET  {prefix}/users/{name}/filled
//   - POST {prefix}/users/{name}/promote?exp_added=10
//   - POST {prefix}/users/{name}/pay?money_added=50
//   - POST {prefix}/users/{name}/purchase/{kind}/{id}?select_after_purchase=true
//   - POST {prefix}/users/{name}/gender
//   - POST {prefix}/users/{name}/theme
//   - GET  {prefix}/users/{name}/avatar?expavg_score=&cpus=&registration_time=&total_score=&has_android=
//   - GET  {prefix}/users/{name}/avatar/render?...  (redirects to the rendered asset)
//   - GET  {prefix}/users/{name}/tip?...  (same telemetry query)
//   - GET  {prefix}/users/{name}/level?...
//   - GET  {prefix}/store
//   - POST {prefix}/store
//   - POST {prefix}/store/reload
//   - GET  {prefix}/healthz
//   - WS   {prefix}/ws
func NewMux(svc *engine.Service, hub *realtime.Hub, opts Options) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(withPrefix(opts.PathPrefix, "/healthz"), func(w http.ResponseWriter, r *http.Request) {
		healthCheck(w, r, svc)
	})

	// WebSocket events
	if hub != nil {
		mux.Handle(withPrefix(opts.PathPrefix, "/ws"), wsadapter.Handler(hub))
	}

	mux.HandleFunc(withPrefix(opts.PathPrefix, "/store"), func(w http.ResponseWriter, r *http.Request) {
		handleStore(w, r, svc)
	})
	mux.HandleFunc(withPrefix(opts.PathPrefix, "/store/reload"), func(w http.ResponseWriter, r *http.Request) {
		handleStoreReload(w, r, svc)
	})

	mux.HandleFunc(withPrefix(opts.PathPrefix, "/users/"), func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, opts.PathPrefix)
		if path == "" || path[0] != '/' {
			path = "/" + path
		}
		parts := split(path, '/')
		if len(parts) < 2 {
			writeError(w, http.StatusNotFound, "not_found", "route not found", nil)
			return
		}
		username := core.Username(parts[1])
		rest := parts[2:]
		handleUser(w, r, svc, username, rest, opts.AssetBaseURL)
	})

	var handler http.Handler = mux
	if opts.AllowCORSOrigin != "" {
		handler = withCORS(handler, opts.AllowCORSOrigin)
	}
	if len(opts.APIKeys) > 0 {
		handler = withAPIKeyAuth(handler, opts.APIKeys)
	}
	if opts.RateLimitEnabled && opts.RateLimitRPM > 0 && opts.RateLimitBurst > 0 {
		handler = withRateLimit(handler, opts.RateLimitRPM, opts.RateLimitBurst)
	}
	if opts.Logger != nil {
		handler = withRequestLog(handler, opts.Logger)
	}
	return handler
}

func handleUser(w http.ResponseWriter, r *http.Request, svc *engine.Service, username core.Username, rest []string, assetBase string) {
	ctx := r.Context()

	switch {
	case len(rest) == 0 && r.Method == http.MethodPost:
		exp, money := svc.Defaults()
		q := r.URL.Query()
		if v := q.Get("default_exp"); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_input", "default_exp must be a number", nil)
				return
			}
			exp = f
		}
		if v := q.Get("default_money"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_input", "default_money must be an integer", nil)
				return
			}
			money = n
		}
		u, err := svc.Create(ctx, username, exp, money)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, u)

	case len(rest) == 0 && r.Method == http.MethodGet:
		u, err := svc.Get(ctx, username)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, u)

	case len(rest) == 1 && rest[0] == "filled" && r.Method == http.MethodGet:
		fu, err := svc.Fill(ctx, username)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, fu)

	case len(rest) == 1 && rest[0] == "promote" && r.Method == http.MethodPost:
		delta, err := strconv.ParseFloat(r.URL.Query().Get("exp_added"), 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_input", "exp_added must be a number", nil)
			return
		}
		u, err := svc.Promote(ctx, username, delta)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, u)

	case len(rest) == 1 && rest[0] == "pay" && r.Method == http.MethodPost:
		delta, err := strconv.Atoi(r.URL.Query().Get("money_added"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_input", "money_added must be an integer", nil)
			return
		}
		u, err := svc.Pay(ctx, username, delta)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, u)

	case len(rest) == 3 && rest[0] == "purchase" && r.Method == http.MethodPost:
		kind, err := core.ParseObjectKind(rest[1])
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)
			return
		}
		selectAfter := true
		if v := r.URL.Query().Get("select_after_purchase"); v != "" {
			selectAfter, err = strconv.ParseBool(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_input", "select_after_purchase must be a boolean", nil)
				return
			}
		}
		u, err := svc.Purchase(ctx, username, kind, rest[2], selectAfter)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, u)

	case len(rest) == 1 && rest[0] == "gender" && r.Method == http.MethodPost:
		if err := svc.SwitchGender(ctx, username); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, map[string]any{"ok": true})

	case len(rest) == 1 && rest[0] == "theme" && r.Method == http.MethodPost:
		if err := svc.SwitchTheme(ctx, username); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, map[string]any{"ok": true})

	case len(rest) == 1 && rest[0] == "avatar" && r.Method == http.MethodGet:
		t, hasAndroid, err := parseTelemetry(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)
			return
		}
		info, err := svc.Avatar(ctx, username, t, hasAndroid)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, info)

	case len(rest) == 2 && rest[0] == "avatar" && rest[1] == "render" && r.Method == http.MethodGet:
		t, hasAndroid, err := parseTelemetry(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)
			return
		}
		info, err := svc.Avatar(ctx, username, t, hasAndroid)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		http.Redirect(w, r, joinAssetURL(assetBase, info.Path), http.StatusFound)

	case len(rest) == 1 && rest[0] == "tip" && r.Method == http.MethodGet:
		t, hasAndroid, err := parseTelemetry(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)
			return
		}
		tip, err := svc.Tip(ctx, username, t, hasAndroid)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, tip)

	case len(rest) == 1 && rest[0] == "level" && r.Method == http.MethodGet:
		t, hasAndroid, err := parseTelemetry(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)
			return
		}
		u, err := svc.Level(ctx, username, t, hasAndroid)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, u)

	default:
		writeError(w, http.StatusNotFound, "not_found", "route not found", nil)
	}
}

func handleStore(w http.ResponseWriter, r *http.Request, svc *engine.Service) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		snap, err := svc.Export(ctx)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, snap)
	case http.MethodPost:
		var snap core.Snapshot
		if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_input", "malformed snapshot: "+err.Error(), nil)
			return
		}
		res, err := svc.Reconcile(ctx, snap)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, res)
	default:
		writeError(w, http.StatusNotFound, "not_found", "route not found", nil)
	}
}

func handleStoreReload(w http.ResponseWriter, r *http.Request, svc *engine.Service) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusNotFound, "not_found", "route not found", nil)
		return
	}
	res, err := svc.ReloadCatalog(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, res)
}

// parseTelemetry extracts the activity signal from query parameters.
func parseTelemetry(r *http.Request) (engine.Telemetry, bool, error) {
	q := r.URL.Query()
	var t engine.Telemetry
	var err error

	if v := q.Get("total_score"); v != "" {
		if t.TotalScore, err = strconv.ParseFloat(v, 64); err != nil {
			return t, false, errors.New("total_score must be a number")
		}
	}
	if v := q.Get("expavg_score"); v != "" {
		if t.ExpavgScore, err = strconv.ParseFloat(v, 64); err != nil {
			return t, false, errors.New("expavg_score must be a number")
		}
	}
	if v := q.Get("cpus"); v != "" {
		if t.CPUs, err = strconv.Atoi(v); err != nil {
			return t, false, errors.New("cpus must be an integer")
		}
	}
	reg := q.Get("registration_time")
	if reg == "" {
		return t, false, errors.New("registration_time is required")
	}
	if t.RegistrationTime, err = time.Parse(time.RFC3339, reg); err != nil {
		return t, false, errors.New("registration_time must be RFC 3339")
	}
	hasAndroid := false
	if v := q.Get("has_android"); v != "" {
		if hasAndroid, err = strconv.ParseBool(v); err != nil {
			return t, false, errors.New("has_android must be a boolean")
		}
	}
	return t, hasAndroid, nil
}

// Helpers

// healthCheck verifies the storage is reachable and reports the user count.
func healthCheck(w http.ResponseWriter, r *http.Request, svc *engine.Service) {
	count, err := svc.CountUsers(r.Context())

	status := map[string]any{
		"status": "healthy",
		"users":  count,
		"checks": map[string]any{
			"storage": "ok",
		},
	}

	if err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		status["status"] = "unhealthy"
		status["checks"].(map[string]any)["storage"] = "failed"
	} else {
		w.WriteHeader(http.StatusOK)
	}

	writeJSON(w, status)
}

func joinAssetURL(base, path string) string {
	if base == "" {
		return "/" + path
	}
	return strings.TrimRight(base, "/") + "/" + path
}

func withPrefix(prefix, path string) string {
	if prefix == "" || prefix == "/" {
		return path
	}
	if prefix[len(prefix)-1] == '/' {
		return prefix[:len(prefix)-1] + path
	}
	return prefix + path
}

func split(p string, sep rune) []string {
	var parts []string
	cur := make([]rune, 0, len(p))
	// trim leading '/'
	for len(p) > 0 && p[0] == '/' {
		p = p[1:]
	}
	for _, r := range p {
		if r == sep {
			if len(cur) > 0 {
				parts = append(parts, string(cur))
				cur = cur[:0]
			}
			continue
		}
		cur = append(cur, r)
	}
	if len(cur) > 0 {
		parts = append(parts, string(cur))
	}
	return parts
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string, details any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiError{Code: code, Message: msg, Details: details})
}

// writeServiceError maps the engine error taxonomy to client-facing statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, core.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err.Error(), nil)
	case errors.Is(err, core.ErrAlreadyOwned):
		writeError(w, http.StatusBadRequest, "already_owned", err.Error(), nil)
	case errors.Is(err, core.ErrInsufficientFunds):
		writeError(w, http.StatusBadRequest, "insufficient_funds", err.Error(), nil)
	case errors.Is(err, core.ErrInvalidState):
		writeError(w, http.StatusBadRequest, "invalid_state", err.Error(), nil)
	case errors.Is(err, core.ErrGeneration):
		writeError(w, http.StatusBadGateway, "generation_failed", err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, "internal", err.Error(), nil)
	}
}

// withCORS wraps a handler with a minimal CORS policy.
func withCORS(next http.Handler, origin string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Vary", "Origin")
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withAPIKeyAuth enforces a shared API key list.
func withAPIKeyAuth(next http.Handler, apiKeys []string) http.Handler {
	allowed := make(map[string]struct{}, len(apiKeys))
	for _, k := range apiKeys {
		k = strings.TrimSpace(k)
		if k != "" {
			allowed[k] = struct{}{}
		}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := extractAPIKey(r)
		if key == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing API key", nil)
			return
		}
		if _, ok := allowed[key]; !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid API key", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRequestLog logs each request with a correlation id.
func withRequestLog(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r)
		logger.Info("request",
			"request_id", reqID,
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start))
	})
}

// withRateLimit applies a simple token-bucket limiter per client key.
func withRateLimit(next http.Handler, rpm int, burst int) http.Handler {
	limiter := newRateLimiter(rpm, burst)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		if !limiter.allow(key) {
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractAPIKey(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	return ""
}

// clientKey uses API key if present, otherwise remote IP.
func clientKey(r *http.Request) string {
	if key := extractAPIKey(r); key != "" {
		return key
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type rateLimiter struct {
	rpm   float64
	burst float64
	mu    sync.Mutex
	b     map[string]*bucket
}

type bucket struct {
	tokens float64
	last   time.Time
}

func newRateLimiter(rpm, burst int) *rateLimiter {
	return &rateLimiter{
		rpm:   float64(rpm),
		burst: float64(burst),
		b:     make(map[string]*bucket),
	}
}

func (l *rateLimiter) allow(key string) bool {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.b[key]
	if !ok {
		l.b[key] = &bucket{tokens: l.burst - 1, last: now}
		return true
	}

	elapsed := now.Sub(b.last).Minutes()
	b.tokens += elapsed * l.rpm
	if b.tokens > l.burst {
		b.tokens = l.burst
	}
	if b.tokens < 1 {
		b.last = now
		return false
	}
	b.tokens--
	b.last = now
	return true
}

package httpapi

import (
	"context"
	"net/http"
	"time"

	"bazaar.dev/internal/audit"
	"bazaar.dev/internal/auth"
	"bazaar.dev/internal/catalog"
	"bazaar.dev/internal/obs"
	"bazaar.dev/internal/ratelimit"
)

// Pinger is satisfied by stores that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadyProbe checks readiness of backing dependencies.
type ReadyProbe struct {
	DB Pinger
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.Ping(ctx)
}

type readinessChecker interface {
	Check(ctx context.Context) error
}

// Deps wires the HTTP layer to the domain services.
type Deps struct {
	Version       string
	Service       *auth.Service
	Authenticator *auth.Authenticator
	Policy        *auth.Policy
	Catalog       catalog.Store
	Limiter       *ratelimit.Gate
	Recorder      audit.Recorder
	Ready         readinessChecker
	CORSOrigins   []string
	MaxBodyBytes  int64
}

// API is the HTTP layer.
type API struct {
	mux           *http.ServeMux
	version       string
	service       *auth.Service
	authenticator *auth.Authenticator
	policy        *auth.Policy
	catalog       catalog.Store
	limiter       *ratelimit.Gate
	recorder      audit.Recorder
	ready         readinessChecker
	corsOrigins   []string
	maxBody       int64
	now           func() time.Time
}

func New(d Deps) *API {
	a := &API{
		mux:           http.NewServeMux(),
		version:       d.Version,
		service:       d.Service,
		authenticator: d.Authenticator,
		policy:        d.Policy,
		catalog:       d.Catalog,
		limiter:       d.Limiter,
		recorder:      d.Recorder,
		ready:         d.Ready,
		corsOrigins:   d.CORSOrigins,
		maxBody:       d.MaxBodyBytes,
		now:           time.Now,
	}
	if a.recorder == nil {
		a.recorder = audit.NewTrail()
	}
	if a.ready == nil {
		a.ready = ReadyProbe{}
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/api/auth/register", a.handleRegister)
	a.mux.HandleFunc("/api/auth/login", a.handleLogin)
	a.mux.HandleFunc("/api/auth/refresh", a.handleRefresh)
	a.mux.HandleFunc("/api/auth/logout", a.handleLogout)
	a.mux.HandleFunc("/api/auth/me", a.handleMe)

	a.mux.HandleFunc("/api/shops", a.handleShops)
	a.mux.HandleFunc("/api/shops/{slug}", a.handleShop)
	a.mux.HandleFunc("/api/products", a.handleProducts)
	a.mux.HandleFunc("/api/products/{id}", a.handleProduct)
	a.mux.HandleFunc("/api/upload", a.handleUpload)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not found")
	})

	return a
}

// Handler returns the mux wrapped in the middleware chain. Authentication
// runs before rate limiting and never rejects on its own.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withRateLimit(h)
	h = a.withAuth(h)
	h = MaxBodyBytes(h, a.maxBody)
	h = obs.Instrument(h)
	h = CORS(h, a.corsOrigins)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	h = Recover(h)
	return h
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "bazaar-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.ready.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "bazaar-api",
		"time":    a.now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

package httpapi

import (
	"net/http"
	"strconv"

	"bazaar.dev/internal/audit"
	"bazaar.dev/internal/auth"
	"bazaar.dev/internal/ratelimit"
)

const authHeader = "Authorization"

// withAuth attaches the authenticated identity to the request context.
// It never rejects: handlers decide whether anonymous access is allowed.
func (a *API) withAuth(next http.Handler) http.Handler {
	if a.authenticator == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		header := r.Header.Get(authHeader)
		identity, ok := a.authenticator.Authenticate(r.Context(), header, clientIP(r))
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		token, _ := auth.BearerToken(header)
		ctx := auth.ContextWithIdentity(r.Context(), identity)
		ctx = auth.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// withRateLimit applies the sliding-window gate after authentication so
// admin quotas and per-user buckets see the resolved identity.
func (a *API) withRateLimit(next http.Handler) http.Handler {
	if a.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		req := ratelimit.Request{
			IP:     clientIP(r),
			Method: r.Method,
			Path:   r.URL.Path,
		}
		var actor *int64
		if identity, ok := auth.IdentityFromContext(r.Context()); ok {
			req.UserID = strconv.FormatInt(identity.ID, 10)
			req.Admin = identity.Role == auth.RoleAdmin
			actor = audit.ID(identity.ID)
		}

		d := a.limiter.Check(req)
		if d.Allowed {
			next.ServeHTTP(w, r)
			return
		}
		a.recorder.Record(r.Context(), audit.RateLimitExceeded, actor, map[string]string{
			"endpoint":  d.Endpoint,
			"limit":     strconv.Itoa(d.Limit),
			"scope":     string(d.Scope),
			"class":     string(d.Class),
			"client_ip": req.IP,
		})
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": d.Message()})
	})
}


package httpapi

import (
	"net/http"
	"time"

	"bazaar.dev/internal/auth"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type identityResponse struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Authority string    `json:"authority"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

type tokenResponse struct {
	AccessToken      string           `json:"access_token"`
	AccessExpiresAt  time.Time        `json:"access_expires_at"`
	RefreshToken     string           `json:"refresh_token"`
	RefreshExpiresAt time.Time        `json:"refresh_expires_at"`
	TokenType        string           `json:"token_type"`
	User             identityResponse `json:"user"`
}

func toIdentityResponse(id auth.Identity) identityResponse {
	return identityResponse{
		ID:        id.ID,
		Email:     id.Email,
		Role:      string(id.Role),
		Authority: id.Authority(),
		CreatedAt: id.CreatedAt,
	}
}

func toTokenResponse(pair auth.TokenPair, id auth.Identity) tokenResponse {
	return tokenResponse{
		AccessToken:      pair.Access.Value,
		AccessExpiresAt:  pair.Access.ExpiresAt,
		RefreshToken:     pair.Refresh.Value,
		RefreshExpiresAt: pair.Refresh.ExpiresAt,
		TokenType:        "Bearer",
		User:             toIdentityResponse(id),
	}
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, r, err)
		return
	}
	id, err := a.service.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toIdentityResponse(id))
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, r, err)
		return
	}
	pair, id, err := a.service.Login(r.Context(), req.Email, req.Password, clientIP(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTokenResponse(pair, id))
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, r, err)
		return
	}
	pair, id, err := a.service.Refresh(r.Context(), req.RefreshToken, clientIP(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTokenResponse(pair, id))
}

// handleLogout revokes the presented bearer token and an optional refresh
// token from the body. An empty body is accepted.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req refreshRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeDecodeError(w, r, err)
			return
		}
	}
	access, ok := auth.TokenFromContext(r.Context())
	if !ok {
		access, _ = auth.BearerToken(r.Header.Get(authHeader))
	}
	if access == "" && req.RefreshToken == "" {
		writeDomainError(w, r, auth.ErrAuthenticationRequired)
		return
	}
	n := a.service.Logout(r.Context(), access, req.RefreshToken)
	writeJSON(w, http.StatusOK, map[string]any{"revoked": n})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	id, err := a.policy.VerifyAuthenticated(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toIdentityResponse(id))
}

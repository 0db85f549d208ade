package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bazaar.dev/internal/audit"
)

// Service implements registration, login, refresh and logout on top of the codec.
type Service struct {
	users   UserStore
	codec   *TokenCodec
	revoked RevocationStore
	audit   audit.Recorder
}

// TokenPair represents access and refresh tokens along with their expirations.
type TokenPair struct {
	Access  Token
	Refresh Token
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithRevocations sets the deny-list used by Refresh and Logout.
func WithRevocations(store RevocationStore) ServiceOption {
	return func(s *Service) error {
		if store == nil {
			return errors.New("auth: revocation store is nil")
		}
		s.revoked = store
		return nil
	}
}

// WithRecorder sets the audit sink.
func WithRecorder(rec audit.Recorder) ServiceOption {
	return func(s *Service) error {
		if rec != nil {
			s.audit = rec
		}
		return nil
	}
}

// NewService constructs Service with optional configuration.
func NewService(users UserStore, codec *TokenCodec, opts ...ServiceOption) (*Service, error) {
	if users == nil || codec == nil {
		return nil, errors.New("auth: user store and token codec are required")
	}
	svc := &Service{
		users:   users,
		codec:   codec,
		revoked: NewMemoryRevocations(),
		audit:   audit.NewTrail(),
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// Revocations exposes the deny-list shared with the authenticator.
func (s *Service) Revocations() RevocationStore { return s.revoked }

// Register creates an enabled, active SELLER identity.
func (s *Service) Register(ctx context.Context, email, password string) (Identity, error) {
	email = NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return Identity{}, fmt.Errorf("email is invalid: %w", ErrInvalidInput)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return Identity{}, err
	}
	identity, err := s.users.CreateUser(ctx, Identity{
		Email:        email,
		Role:         RoleSeller,
		Enabled:      true,
		Active:       true,
		PasswordHash: hash,
	})
	if err != nil {
		return Identity{}, err
	}
	s.audit.Record(ctx, audit.UserRegistered, audit.ID(identity.ID), map[string]string{"email": email})
	return identity, nil
}

// Login checks credentials and issues a token pair. Every credential failure
// returns ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password, clientIP string) (TokenPair, Identity, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		s.loginFailure(ctx, nil, email, clientIP, "missing credentials")
		return TokenPair{}, Identity{}, ErrInvalidCredentials
	}
	identity, err := s.users.FindActiveByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return TokenPair{}, Identity{}, err
		}
		s.loginFailure(ctx, nil, email, clientIP, "unknown or inactive user")
		return TokenPair{}, Identity{}, ErrInvalidCredentials
	}
	if err := VerifyPassword(identity.PasswordHash, password); err != nil {
		s.loginFailure(ctx, audit.ID(identity.ID), email, clientIP, "bad password")
		return TokenPair{}, Identity{}, ErrInvalidCredentials
	}
	pair, err := s.mintTokens(identity)
	if err != nil {
		return TokenPair{}, Identity{}, err
	}
	s.audit.Record(ctx, audit.LoginSuccess, audit.ID(identity.ID), map[string]string{
		"method":    "password",
		"client_ip": clientIP,
	})
	return pair, identity, nil
}

// Refresh rotates a refresh token: the presented one is revoked and a new pair
// carrying the identity's current role and id is issued.
func (s *Service) Refresh(ctx context.Context, refreshToken, clientIP string) (TokenPair, Identity, error) {
	claims, err := s.codec.ParseAndVerify(refreshToken)
	if err != nil {
		return TokenPair{}, Identity{}, err
	}
	if !claims.IsRefresh() {
		return TokenPair{}, Identity{}, fmt.Errorf("not a refresh token: %w", ErrInvalidToken)
	}
	if s.revoked.IsRevoked(refreshToken) {
		s.loginFailure(ctx, nil, claims.Subject, clientIP, "revoked refresh token")
		return TokenPair{}, Identity{}, ErrInvalidToken
	}
	identity, err := s.users.FindActiveByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return TokenPair{}, Identity{}, ErrInvalidToken
		}
		return TokenPair{}, Identity{}, err
	}
	if !s.revoked.RevokeIfAbsent(refreshToken) {
		s.loginFailure(ctx, audit.ID(identity.ID), claims.Subject, clientIP, "refresh token already redeemed")
		return TokenPair{}, Identity{}, ErrInvalidToken
	}
	pair, err := s.mintTokens(identity)
	if err != nil {
		return TokenPair{}, Identity{}, err
	}
	s.audit.Record(ctx, audit.TokenRefreshed, audit.ID(identity.ID), map[string]string{"client_ip": clientIP})
	return pair, identity, nil
}

// Logout revokes the given tokens and returns how many were newly revoked.
// Only tokens this codec issued and that are still within their lifetime are
// added to the deny-list. The identity bound to ctx, if any, is audited.
func (s *Service) Logout(ctx context.Context, tokens ...string) int {
	revoked := 0
	for _, t := range tokens {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, err := s.codec.ParseAndVerify(t); err != nil {
			continue
		}
		if s.revoked.RevokeIfAbsent(t) {
			revoked++
		}
	}
	var actor *int64
	if id, ok := IdentityFromContext(ctx); ok {
		actor = audit.ID(id.ID)
	}
	s.audit.Record(ctx, audit.Logout, actor, nil)
	return revoked
}

func (s *Service) mintTokens(identity Identity) (TokenPair, error) {
	access, err := s.codec.IssueAccessToken(identity.Email, AccessClaims{Role: identity.Role, UID: identity.ID})
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.codec.IssueRefreshToken(identity.Email)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

func (s *Service) loginFailure(ctx context.Context, identityID *int64, email, clientIP, reason string) {
	s.audit.Record(ctx, audit.LoginFailure, identityID, map[string]string{
		"email":     email,
		"client_ip": clientIP,
		"reason":    reason,
	})
}

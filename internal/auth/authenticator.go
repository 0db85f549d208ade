package auth

import (
	"context"
	"errors"
	"strconv"

	"bazaar.dev/internal/audit"
	"bazaar.dev/internal/obs"
)

// Authenticator turns an Authorization header into a live identity.
// It never fails a request: every rejected credential yields anonymous.
type Authenticator struct {
	codec      *TokenCodec
	revoked    RevocationStore
	identities IdentityFinder
	audit      audit.Recorder
}

// NewAuthenticator wires the codec, deny-list, identity lookup and audit sink.
func NewAuthenticator(codec *TokenCodec, revoked RevocationStore, identities IdentityFinder, recorder audit.Recorder) *Authenticator {
	if recorder == nil {
		recorder = audit.NewTrail()
	}
	return &Authenticator{codec: codec, revoked: revoked, identities: identities, audit: recorder}
}

// Authenticate returns the identity the bearer token proves, or false when the
// request must proceed anonymously.
func (a *Authenticator) Authenticate(ctx context.Context, header, clientIP string) (Identity, bool) {
	token, ok := BearerToken(header)
	if !ok {
		obs.AuthOutcome("anonymous")
		return Identity{}, false
	}

	claims, err := a.codec.ParseAndVerify(token)
	if err != nil {
		outcome, reason := "invalid", "invalid token"
		if errors.Is(err, ErrExpiredToken) {
			outcome, reason = "expired", "token expired"
		}
		a.loginFailure(ctx, outcome, nil, clientIP, reason)
		return Identity{}, false
	}
	if claims.IsRefresh() {
		a.loginFailure(ctx, "refresh_as_access", nil, clientIP, "refresh token used for access")
		return Identity{}, false
	}
	if a.revoked != nil && a.revoked.IsRevoked(token) {
		a.loginFailure(ctx, "revoked", nil, clientIP, "token revoked")
		return Identity{}, false
	}

	identity, err := a.identities.FindActiveByEmail(ctx, claims.Subject)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			obs.Warn("identity lookup failed", map[string]any{"error": err.Error()})
			obs.AuthOutcome("lookup_error")
			return Identity{}, false
		}
		obs.AuthOutcome("unknown_subject")
		a.audit.Record(ctx, audit.SuspiciousActivity, nil, map[string]string{
			"reason":    "token valid but user not found",
			"subject":   claims.Subject,
			"client_ip": clientIP,
		})
		return Identity{}, false
	}

	if claims.Role != identity.Role {
		obs.AuthOutcome("role_mismatch")
		a.audit.Record(ctx, audit.SuspiciousActivity, audit.ID(identity.ID), map[string]string{
			"reason":      "role mismatch",
			"token_role":  string(claims.Role),
			"actual_role": string(identity.Role),
			"client_ip":   clientIP,
		})
		a.audit.Record(ctx, audit.LoginFailure, audit.ID(identity.ID), map[string]string{
			"reason":    "possible token tampering",
			"client_ip": clientIP,
		})
		return Identity{}, false
	}

	if claims.UID != identity.ID {
		obs.AuthOutcome("uid_mismatch")
		a.audit.Record(ctx, audit.SuspiciousActivity, audit.ID(identity.ID), map[string]string{
			"reason":     "uid mismatch",
			"token_uid":  strconv.FormatInt(claims.UID, 10),
			"actual_uid": strconv.FormatInt(identity.ID, 10),
			"client_ip":  clientIP,
		})
		return Identity{}, false
	}

	obs.AuthOutcome("success")
	a.audit.Record(ctx, audit.LoginSuccess, audit.ID(identity.ID), map[string]string{
		"authority": identity.Authority(),
		"client_ip": clientIP,
	})
	return identity, true
}

func (a *Authenticator) loginFailure(ctx context.Context, outcome string, identityID *int64, clientIP, reason string) {
	obs.AuthOutcome(outcome)
	a.audit.Record(ctx, audit.LoginFailure, identityID, map[string]string{
		"reason":    reason,
		"client_ip": clientIP,
	})
}

package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// DefaultIssuer is the iss claim stamped on and required from every token.
	DefaultIssuer = "bazaar"
	// MinSecretBytes is the shortest HS256 key the codec accepts.
	MinSecretBytes = 32
	// TokenTypeRefresh marks refresh tokens in the type claim.
	TokenTypeRefresh = "refresh"

	defaultAccessTTL  = 60 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// Claims is the closed claim set carried by bazaar tokens.
type Claims struct {
	Role Role   `json:"role,omitempty"`
	UID  int64  `json:"uid,omitempty"`
	Type string `json:"type,omitempty"`
	jwt.RegisteredClaims
}

// IsRefresh reports whether the claims belong to a refresh token.
func (c *Claims) IsRefresh() bool {
	return c != nil && c.Type == TokenTypeRefresh
}

// AccessClaims are the identity-bound claims of an access token.
type AccessClaims struct {
	Role Role
	UID  int64
}

// Token is a signed compact JWT and its expiry.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// TokenCodec mints and verifies HS256 tokens with a single symmetric key.
type TokenCodec struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// CodecOption configures TokenCodec behavior.
type CodecOption func(*TokenCodec)

// WithIssuer overrides the token issuer claim.
func WithIssuer(issuer string) CodecOption {
	return func(c *TokenCodec) {
		if issuer = strings.TrimSpace(issuer); issuer != "" {
			c.issuer = issuer
		}
	}
}

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) CodecOption {
	return func(c *TokenCodec) {
		if ttl > 0 {
			c.accessTTL = ttl
		}
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) CodecOption {
	return func(c *TokenCodec) {
		if ttl > 0 {
			c.refreshTTL = ttl
		}
	}
}

// WithClock overrides time source (useful for tests).
func WithClock(fn func() time.Time) CodecOption {
	return func(c *TokenCodec) {
		if fn != nil {
			c.now = fn
		}
	}
}

// NewTokenCodec constructs a codec. Secrets shorter than MinSecretBytes are rejected.
func NewTokenCodec(secret []byte, opts ...CodecOption) (*TokenCodec, error) {
	if len(secret) < MinSecretBytes {
		return nil, fmt.Errorf("auth: signing secret must be at least %d bytes", MinSecretBytes)
	}
	c := &TokenCodec{
		secret:     append([]byte(nil), secret...),
		issuer:     DefaultIssuer,
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// AccessTTL returns the configured access token lifetime.
func (c *TokenCodec) AccessTTL() time.Duration { return c.accessTTL }

// IssueAccessToken signs an access token for subject carrying role and uid.
func (c *TokenCodec) IssueAccessToken(subject string, claims AccessClaims) (Token, error) {
	if _, ok := ParseRole(string(claims.Role)); !ok {
		return Token{}, fmt.Errorf("unknown role %q: %w", claims.Role, ErrInvalidInput)
	}
	return c.sign(subject, Claims{Role: claims.Role, UID: claims.UID}, c.accessTTL)
}

// IssueRefreshToken signs a refresh token. It carries no role or uid.
func (c *TokenCodec) IssueRefreshToken(subject string) (Token, error) {
	return c.sign(subject, Claims{Type: TokenTypeRefresh}, c.refreshTTL)
}

func (c *TokenCodec) sign(subject string, claims Claims, ttl time.Duration) (Token, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return Token{}, fmt.Errorf("subject is required: %w", ErrInvalidInput)
	}
	now := c.now().UTC()
	expires := now.Add(ttl)
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    c.issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
		ID:        uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{Value: signed, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// ParseAndVerify checks signature, algorithm, issuer and expiry. It returns
// ErrExpiredToken for a genuine token past its expiry and ErrInvalidToken for
// everything else. Revocation is not consulted here.
func (c *TokenCodec) ParseAndVerify(raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidToken
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	claims := &Claims{}
	parsed, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		return nil, classifyParseError(err)
	}
	if !parsed.Valid || strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenInvalidIssuer),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return ErrInvalidToken
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpiredToken
	default:
		return ErrInvalidToken
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var testNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestCodec(t *testing.T, opts ...CodecOption) *TokenCodec {
	t.Helper()
	opts = append([]CodecOption{WithClock(fixedClock(testNow))}, opts...)
	codec, err := NewTokenCodec([]byte(testSecret), opts...)
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}
	return codec
}

func TestAccessTokenRoundTrip(t *testing.T) {
	codec := newTestCodec(t, WithAccessTTL(30*time.Minute))

	tok, err := codec.IssueAccessToken("seller@example.com", AccessClaims{Role: RoleSeller, UID: 5})
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	if !tok.ExpiresAt.Equal(testNow.Add(30 * time.Minute)) {
		t.Fatalf("unexpected expiry: %v", tok.ExpiresAt)
	}

	claims, err := codec.ParseAndVerify(tok.Value)
	if err != nil {
		t.Fatalf("ParseAndVerify: %v", err)
	}
	if claims.Subject != "seller@example.com" || claims.Role != RoleSeller || claims.UID != 5 {
		t.Fatalf("claims not preserved: %+v", claims)
	}
	if claims.Issuer != DefaultIssuer {
		t.Fatalf("unexpected issuer: %s", claims.Issuer)
	}
	if !claims.IssuedAt.Time.Equal(testNow) {
		t.Fatalf("unexpected iat: %v", claims.IssuedAt)
	}
	if claims.ID == "" {
		t.Fatalf("expected jti")
	}
	if claims.IsRefresh() {
		t.Fatalf("access token reported as refresh")
	}
}

func TestRefreshTokenIsMinimal(t *testing.T) {
	codec := newTestCodec(t, WithRefreshTTL(10080*time.Minute))

	tok, err := codec.IssueRefreshToken("seller@example.com")
	if err != nil {
		t.Fatalf("IssueRefreshToken: %v", err)
	}
	claims, err := codec.ParseAndVerify(tok.Value)
	if err != nil {
		t.Fatalf("ParseAndVerify: %v", err)
	}
	if !claims.IsRefresh() {
		t.Fatalf("expected refresh type, got %q", claims.Type)
	}
	if claims.Role != "" || claims.UID != 0 {
		t.Fatalf("refresh token must not carry role/uid: %+v", claims)
	}
	if !tok.ExpiresAt.Equal(testNow.Add(7 * 24 * time.Hour)) {
		t.Fatalf("unexpected refresh expiry: %v", tok.ExpiresAt)
	}
}

func TestExpiredTokenFails(t *testing.T) {
	issuer := newTestCodec(t)
	issuer.now = fixedClock(testNow.Add(-2 * time.Hour))
	tok, err := issuer.IssueAccessToken("seller@example.com", AccessClaims{Role: RoleSeller, UID: 5})
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	verifier := newTestCodec(t)
	if _, err := verifier.ParseAndVerify(tok.Value); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestForeignKeyFailsAsInvalid(t *testing.T) {
	other, err := NewTokenCodec([]byte(strings.Repeat("z", 40)), WithClock(fixedClock(testNow.Add(-2*time.Hour))))
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}
	codec := newTestCodec(t)

	fresh, _ := other.IssueAccessToken("a@example.com", AccessClaims{Role: RoleAdmin, UID: 1})
	other.now = fixedClock(testNow)
	current, _ := other.IssueAccessToken("a@example.com", AccessClaims{Role: RoleAdmin, UID: 1})

	for name, raw := range map[string]string{"expired": fresh.Value, "current": current.Value} {
		if _, err := codec.ParseAndVerify(raw); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}

func TestIssuerAndAlgorithmEnforced(t *testing.T) {
	codec := newTestCodec(t)
	foreign := newTestCodec(t, WithIssuer("someone-else"))
	tok, _ := foreign.IssueAccessToken("a@example.com", AccessClaims{Role: RoleSeller, UID: 1})
	if _, err := codec.ParseAndVerify(tok.Value); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("foreign issuer: expected ErrInvalidToken, got %v", err)
	}

	claims := Claims{Role: RoleAdmin, UID: 1, RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    DefaultIssuer,
		Subject:   "a@example.com",
		ExpiresAt: jwt.NewNumericDate(testNow.Add(time.Hour)),
	}}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := codec.ParseAndVerify(unsigned); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("alg none: expected ErrInvalidToken, got %v", err)
	}

	for _, raw := range []string{"", "garbage", "a.b.c"} {
		if _, err := codec.ParseAndVerify(raw); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%q: expected ErrInvalidToken, got %v", raw, err)
		}
	}
}

func TestIssueRejectsBadInput(t *testing.T) {
	codec := newTestCodec(t)
	if _, err := codec.IssueAccessToken(" ", AccessClaims{Role: RoleSeller}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty subject, got %v", err)
	}
	if _, err := codec.IssueAccessToken("a@example.com", AccessClaims{Role: "ROOT"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown role, got %v", err)
	}
}

func TestNewTokenCodecRejectsShortSecret(t *testing.T) {
	if _, err := NewTokenCodec([]byte("short")); err == nil {
		t.Fatalf("expected error for short secret")
	}
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer   abc ", "abc", true},
		{"Basic abc", "", false},
		{"Bearer ", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := BearerToken(tc.header)
		if got != tc.token || ok != tc.ok {
			t.Fatalf("BearerToken(%q) = %q, %v", tc.header, got, ok)
		}
	}
}

func TestRoleAuthority(t *testing.T) {
	if RoleAdmin.Authority() != "ROLE_ADMIN" || RoleSeller.Authority() != "ROLE_SELLER" {
		t.Fatalf("unexpected authorities")
	}
	if r, ok := ParseRole(" admin "); !ok || r != RoleAdmin {
		t.Fatalf("ParseRole admin = %q, %v", r, ok)
	}
	if _, ok := ParseRole("guest"); ok {
		t.Fatalf("guest must not parse")
	}
}

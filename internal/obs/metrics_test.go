package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                           "/",
		"/metrics":                   "/metrics",
		"/api/shops":                 "/api/shops",
		"/api/shops/best-cafe-17":    "/api/shops/:slug",
		"/api/shops/17?expand=owner": "/api/shops/:slug",
		"/api/shops/17/reviews":      "/api/shops/17/reviews",
		"/api/products/42":           "/api/products/:id",
		"/api/auth/login":            "/api/auth/login",
		"/api/auth/login?next=/x":    "/api/auth/login",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}

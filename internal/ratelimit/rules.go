package ratelimit

import (
	"net/http"
	"strings"
)

// Class groups endpoints sharing a quota.
type Class string

const (
	ClassAuth    Class = "auth"
	ClassUpload  Class = "upload"
	ClassCreate  Class = "create"
	ClassDefault Class = "default"
)

// Rules holds per-class quotas, in requests per window.
type Rules struct {
	Auth    int
	Upload  int
	Create  int
	Default int
	Admin   int
}

// DefaultRules returns the stock quotas.
func DefaultRules() Rules {
	return Rules{Auth: 10, Upload: 20, Create: 30, Default: 60, Admin: 200}
}

// Classify reports the class of a request. Only POSTs to auth, upload and
// create endpoints are limited; everything else bypasses the limiter.
func (r Rules) Classify(method, path string) (Class, bool) {
	if !strings.EqualFold(method, http.MethodPost) {
		return "", false
	}
	p := NormalizePath(path)
	switch {
	case strings.HasPrefix(p, "/api/auth/"):
		return ClassAuth, true
	case p == "/api/upload" || strings.HasPrefix(p, "/api/upload/"):
		return ClassUpload, true
	case p == "/api/shops" || p == "/api/products":
		return ClassCreate, true
	}
	return "", false
}

// Limit returns the quota for class. Admins always get the admin quota.
func (r Rules) Limit(class Class, admin bool) int {
	if admin {
		return r.Admin
	}
	switch class {
	case ClassAuth:
		return r.Auth
	case ClassUpload:
		return r.Upload
	case ClassCreate:
		return r.Create
	}
	return r.Default
}

// NormalizePath strips the query, lower-cases, trims trailing slashes and
// replaces numeric segments with ":id".
func NormalizePath(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = strings.ToLower(strings.TrimRight(path, "/"))
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	segments := strings.Split(path, "/")
	for i, s := range segments {
		if s != "" && isDigits(s) {
			segments[i] = ":id"
		}
	}
	return strings.Join(segments, "/")
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

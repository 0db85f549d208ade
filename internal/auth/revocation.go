package auth

import (
	"crypto/sha256"
	"strings"
	"sync"
	"time"

	"bazaar.dev/internal/obs"
)

// RevocationStore is a deny-list of tokens that must not be honoured even
// when their signature and expiry are valid.
type RevocationStore interface {
	Revoke(token string)
	RevokeIfAbsent(token string) bool
	IsRevoked(token string) bool
	Len() int
}

// MemoryRevocations keeps revoked tokens for the lifetime of the process.
// Entries never expire and are not shared between instances.
type MemoryRevocations struct {
	mu      sync.RWMutex
	entries map[[sha256.Size]byte]time.Time
}

// NewMemoryRevocations returns an empty deny-list.
func NewMemoryRevocations() *MemoryRevocations {
	return &MemoryRevocations{entries: make(map[[sha256.Size]byte]time.Time)}
}

// Revoke adds the token to the deny-list. Revoking twice is a no-op.
func (m *MemoryRevocations) Revoke(token string) { m.RevokeIfAbsent(token) }

// RevokeIfAbsent adds the token and reports whether this call added it.
// Exactly one of any number of concurrent callers for the same token wins.
func (m *MemoryRevocations) RevokeIfAbsent(token string) bool {
	token = strings.TrimSpace(token)
	if token == "" {
		return false
	}
	key := sha256.Sum256([]byte(token))
	m.mu.Lock()
	_, exists := m.entries[key]
	if !exists {
		m.entries[key] = time.Now().UTC()
	}
	n := len(m.entries)
	m.mu.Unlock()
	if !exists {
		obs.RevokedTokens(n)
	}
	return !exists
}

// IsRevoked reports whether the token was revoked.
func (m *MemoryRevocations) IsRevoked(token string) bool {
	token = strings.TrimSpace(token)
	if token == "" {
		return false
	}
	key := sha256.Sum256([]byte(token))
	m.mu.RLock()
	_, ok := m.entries[key]
	m.mu.RUnlock()
	return ok
}

// Len returns the number of revoked tokens.
func (m *MemoryRevocations) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

package auth

import (
	"context"
	"sync"
	"time"
)

// MemoryUsers is an in-process UserStore for development and tests.
type MemoryUsers struct {
	mu     sync.RWMutex
	nextID int64
	byMail map[string]Identity
}

// NewMemoryUsers returns an empty store.
func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{byMail: make(map[string]Identity)}
}

// Put inserts or replaces an identity keyed by email. A zero ID is assigned.
func (m *MemoryUsers) Put(id Identity) Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id.ID == 0 {
		m.nextID++
		id.ID = m.nextID
	} else if id.ID > m.nextID {
		m.nextID = id.ID
	}
	id.Email = NormalizeEmail(id.Email)
	m.byMail[id.Email] = id
	return id
}

func (m *MemoryUsers) FindActiveByEmail(ctx context.Context, email string) (Identity, error) {
	id, err := m.FindByEmail(ctx, email)
	if err != nil {
		return Identity{}, err
	}
	if !id.Enabled || !id.Active {
		return Identity{}, ErrNotFound
	}
	return id, nil
}

func (m *MemoryUsers) FindByEmail(_ context.Context, email string) (Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byMail[NormalizeEmail(email)]
	if !ok {
		return Identity{}, ErrNotFound
	}
	return id, nil
}

// CreateUser inserts a new identity; a duplicate email yields ErrConflict.
func (m *MemoryUsers) CreateUser(_ context.Context, u Identity) (Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.Email = NormalizeEmail(u.Email)
	if _, ok := m.byMail[u.Email]; ok {
		return Identity{}, ErrConflict
	}
	m.nextID++
	u.ID = m.nextID
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	m.byMail[u.Email] = u
	return u, nil
}

// SetRole changes the role of the identity with the given id.
func (m *MemoryUsers) SetRole(_ context.Context, id int64, role Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for email, u := range m.byMail {
		if u.ID == id {
			u.Role = role
			m.byMail[email] = u
			return nil
		}
	}
	return ErrNotFound
}

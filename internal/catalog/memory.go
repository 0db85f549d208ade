package catalog

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Memory is an in-process Store used when no database is configured.
type Memory struct {
	mu       sync.RWMutex
	nextShop int64
	nextProd int64
	shops    map[int64]Shop
	products map[int64]Product
	now      func() time.Time
}

// NewMemory returns an empty catalog.
func NewMemory() *Memory {
	return &Memory{
		shops:    make(map[int64]Shop),
		products: make(map[int64]Product),
		now:      time.Now,
	}
}

func (m *Memory) CreateShop(_ context.Context, s Shop) (Shop, error) {
	if err := ValidateShop(s); err != nil {
		return Shop{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextShop++
	s.ID = m.nextShop
	s.Name = strings.TrimSpace(s.Name)
	s.Slug = Slugify(s.Name, s.ID)
	s.CreatedAt = m.now().UTC()
	m.shops[s.ID] = s
	return s, nil
}

func (m *Memory) GetShop(_ context.Context, id int64) (Shop, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.shops[id]
	if !ok {
		return Shop{}, ErrNotFound
	}
	return s, nil
}

func (m *Memory) UpdateShop(_ context.Context, id int64, upd ShopUpdate) (Shop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shops[id]
	if !ok {
		return Shop{}, ErrNotFound
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return Shop{}, ErrInvalidInput
		}
		s.Name = name
		s.Slug = Slugify(name, id)
	}
	if upd.Description != nil {
		s.Description = *upd.Description
	}
	m.shops[id] = s
	return s, nil
}

// DeleteShop removes the shop and its products.
func (m *Memory) DeleteShop(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.shops[id]; !ok {
		return ErrNotFound
	}
	delete(m.shops, id)
	for pid, p := range m.products {
		if p.ShopID == id {
			delete(m.products, pid)
		}
	}
	return nil
}

func (m *Memory) CreateProduct(_ context.Context, p Product) (Product, error) {
	if err := ValidateProduct(p); err != nil {
		return Product{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.shops[p.ShopID]; !ok {
		return Product{}, ErrNotFound
	}
	m.nextProd++
	p.ID = m.nextProd
	p.Name = strings.TrimSpace(p.Name)
	p.CreatedAt = m.now().UTC()
	m.products[p.ID] = p
	return p, nil
}

func (m *Memory) DeleteProduct(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return ErrNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *Memory) ShopOwner(_ context.Context, shopID int64) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.shops[shopID]
	if !ok {
		return 0, ErrNotFound
	}
	return s.OwnerID, nil
}

// ShopIDByName matches a shop by exact name (case-insensitive) or by slug base.
func (m *Memory) ShopIDByName(_ context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	base := SlugBase(name)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var found int64
	for id, s := range m.shops {
		if strings.EqualFold(s.Name, name) || (base != "" && SlugBase(s.Name) == base) {
			if found == 0 || id < found {
				found = id
			}
		}
	}
	if found == 0 {
		return 0, ErrNotFound
	}
	return found, nil
}

func (m *Memory) ProductOwner(_ context.Context, productID int64) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[productID]
	if !ok {
		return 0, ErrNotFound
	}
	s, ok := m.shops[p.ShopID]
	if !ok {
		return 0, ErrNotFound
	}
	return s.OwnerID, nil
}

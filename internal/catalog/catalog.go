package catalog

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	ErrNotFound     = errors.New("catalog: not found")
	ErrInvalidInput = errors.New("catalog: invalid input")
)

// Shop is a seller storefront.
type Shop struct {
	ID          int64     `json:"id"`
	OwnerID     int64     `json:"owner_id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Product belongs to a shop.
type Product struct {
	ID         int64     `json:"id"`
	ShopID     int64     `json:"shop_id"`
	Name       string    `json:"name"`
	PriceCents int64     `json:"price_cents"`
	CreatedAt  time.Time `json:"created_at"`
}

// ShopUpdate carries optional shop fields.
type ShopUpdate struct {
	Name        *string
	Description *string
}

// Store is the shop/product persistence consumed by the HTTP layer.
// It doubles as the ownership directory of the authorization policy.
type Store interface {
	CreateShop(ctx context.Context, s Shop) (Shop, error)
	GetShop(ctx context.Context, id int64) (Shop, error)
	UpdateShop(ctx context.Context, id int64, upd ShopUpdate) (Shop, error)
	DeleteShop(ctx context.Context, id int64) error
	CreateProduct(ctx context.Context, p Product) (Product, error)
	DeleteProduct(ctx context.Context, id int64) error

	ShopOwner(ctx context.Context, shopID int64) (int64, error)
	ShopIDByName(ctx context.Context, name string) (int64, error)
	ProductOwner(ctx context.Context, productID int64) (int64, error)
}

// Slugify renders "Best Cafe" with id 17 as "best-cafe-17".
func Slugify(name string, id int64) string {
	base := SlugBase(name)
	if base == "" {
		return strconv.FormatInt(id, 10)
	}
	return base + "-" + strconv.FormatInt(id, 10)
}

// SlugBase lower-cases name and joins alphanumeric runs with '-'.
func SlugBase(name string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(name) {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !isAlnum {
			pendingDash = b.Len() > 0
			continue
		}
		if pendingDash {
			b.WriteByte('-')
			pendingDash = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ValidateShop checks the fields required to create a shop.
func ValidateShop(s Shop) error {
	if strings.TrimSpace(s.Name) == "" {
		return errors.Join(ErrInvalidInput, errors.New("name is required"))
	}
	if s.OwnerID <= 0 {
		return errors.Join(ErrInvalidInput, errors.New("owner is required"))
	}
	return nil
}

// ValidateProduct checks the fields required to create a product.
func ValidateProduct(p Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.Join(ErrInvalidInput, errors.New("name is required"))
	}
	if p.ShopID <= 0 {
		return errors.Join(ErrInvalidInput, errors.New("shop_id is required"))
	}
	if p.PriceCents < 0 {
		return errors.Join(ErrInvalidInput, errors.New("price must not be negative"))
	}
	return nil
}

package catalog

import (
	"context"
	"errors"
	"testing"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		name string
		id   int64
		want string
	}{
		{"Best Cafe", 17, "best-cafe-17"},
		{"  Tea & Co.  ", 3, "tea-co-3"},
		{"!!!", 9, "9"},
	}
	for _, tc := range cases {
		if got := Slugify(tc.name, tc.id); got != tc.want {
			t.Fatalf("Slugify(%q, %d) = %q, want %q", tc.name, tc.id, got, tc.want)
		}
	}
}

func TestMemoryShopLifecycle(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	shop, err := m.CreateShop(ctx, Shop{OwnerID: 5, Name: "Best Cafe"})
	if err != nil {
		t.Fatalf("CreateShop: %v", err)
	}
	if shop.ID != 1 || shop.Slug != "best-cafe-1" {
		t.Fatalf("unexpected shop: %+v", shop)
	}
	if _, err := m.CreateShop(ctx, Shop{OwnerID: 5}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	owner, err := m.ShopOwner(ctx, shop.ID)
	if err != nil || owner != 5 {
		t.Fatalf("ShopOwner = %d, %v", owner, err)
	}
	for _, name := range []string{"best cafe", "best-cafe", "BEST CAFE"} {
		id, err := m.ShopIDByName(ctx, name)
		if err != nil || id != shop.ID {
			t.Fatalf("ShopIDByName(%q) = %d, %v", name, id, err)
		}
	}

	prod, err := m.CreateProduct(ctx, Product{ShopID: shop.ID, Name: "Latte", PriceCents: 450})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	if owner, _ := m.ProductOwner(ctx, prod.ID); owner != 5 {
		t.Fatalf("ProductOwner = %d", owner)
	}
	if _, err := m.CreateProduct(ctx, Product{ShopID: 99, Name: "Ghost"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown shop, got %v", err)
	}

	name := "Better Cafe"
	updated, err := m.UpdateShop(ctx, shop.ID, ShopUpdate{Name: &name})
	if err != nil || updated.Slug != "better-cafe-1" {
		t.Fatalf("UpdateShop = %+v, %v", updated, err)
	}

	if err := m.DeleteShop(ctx, shop.ID); err != nil {
		t.Fatalf("DeleteShop: %v", err)
	}
	if _, err := m.ProductOwner(ctx, prod.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("products must go with their shop, got %v", err)
	}
	if err := m.DeleteShop(ctx, shop.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

package auth

import (
	"context"
	"errors"
	"strings"
	"testing"

	"bazaar.dev/internal/audit"
)

var errNoShop = errors.New("no such shop")

type fakeDirectory struct {
	shops    map[int64]int64 // shop id -> owner id
	names    map[string]int64
	products map[int64]int64 // product id -> owner id
	byName   []string
}

func (d *fakeDirectory) ShopOwner(_ context.Context, id int64) (int64, error) {
	owner, ok := d.shops[id]
	if !ok {
		return 0, errNoShop
	}
	return owner, nil
}

func (d *fakeDirectory) ShopIDByName(_ context.Context, name string) (int64, error) {
	d.byName = append(d.byName, name)
	id, ok := d.names[strings.ToLower(name)]
	if !ok {
		return 0, errNoShop
	}
	return id, nil
}

func (d *fakeDirectory) ProductOwner(_ context.Context, id int64) (int64, error) {
	owner, ok := d.products[id]
	if !ok {
		return 0, errNoShop
	}
	return owner, nil
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		shops:    map[int64]int64{17: 5, 3: 8},
		names:    map[string]int64{"corner-store": 3},
		products: map[int64]int64{100: 5},
	}
}

func as(id Identity) context.Context {
	return ContextWithIdentity(context.Background(), id)
}

func TestCanManageShopBySlug(t *testing.T) {
	p := NewPolicy(newFakeDirectory(), audit.NewMemory())
	owner := Identity{ID: 5, Email: "owner@example.com", Role: RoleSeller}
	stranger := Identity{ID: 6, Email: "other@example.com", Role: RoleSeller}
	admin := Identity{ID: 1, Email: "admin@example.com", Role: RoleAdmin}

	if !p.CanManageShopBySlug(as(owner), "best-cafe-17") {
		t.Fatalf("owner must manage best-cafe-17")
	}
	if p.CanManageShopBySlug(as(stranger), "best-cafe-17") {
		t.Fatalf("stranger must not manage best-cafe-17")
	}
	if !p.CanManageShopBySlug(as(admin), "best-cafe-17") {
		t.Fatalf("admin must manage any existing shop")
	}
	if p.CanManageShopBySlug(context.Background(), "best-cafe-17") {
		t.Fatalf("anonymous must not manage")
	}
	if p.CanManageShopBySlug(as(admin), "missing-999") {
		t.Fatalf("unknown shop must not be manageable")
	}
}

func TestResolveShopIDOrder(t *testing.T) {
	dir := newFakeDirectory()
	p := NewPolicy(dir, audit.NewMemory())
	ctx := context.Background()

	cases := []struct {
		slug string
		want int64
	}{
		{"17", 17},
		{"best-cafe-17", 17},
		{"corner-store", 3},
		{"-42", -42},
	}
	for _, tc := range cases {
		got, err := p.ResolveShopID(ctx, tc.slug)
		if err != nil {
			t.Fatalf("ResolveShopID(%q): %v", tc.slug, err)
		}
		if got != tc.want {
			t.Fatalf("ResolveShopID(%q) = %d, want %d", tc.slug, got, tc.want)
		}
	}
	if len(dir.byName) != 1 || dir.byName[0] != "corner-store" {
		t.Fatalf("name lookup must only run as the last resort: %v", dir.byName)
	}
	if _, err := p.ResolveShopID(ctx, "nowhere"); !errors.Is(err, errNoShop) {
		t.Fatalf("expected directory error, got %v", err)
	}
	if _, err := p.ResolveShopID(ctx, "  "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestVerifyVariants(t *testing.T) {
	rec := audit.NewMemory()
	p := NewPolicy(newFakeDirectory(), rec)
	seller := Identity{ID: 6, Email: "s@example.com", Role: RoleSeller}
	admin := Identity{ID: 1, Email: "a@example.com", Role: RoleAdmin}

	if err := p.VerifyAdmin(context.Background()); !errors.Is(err, ErrAuthenticationRequired) {
		t.Fatalf("anonymous VerifyAdmin: %v", err)
	}
	if err := p.VerifyAdmin(as(seller)); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("seller VerifyAdmin: %v", err)
	}
	if err := p.VerifyAdmin(as(admin)); err != nil {
		t.Fatalf("admin VerifyAdmin: %v", err)
	}
	if err := p.VerifySeller(as(seller)); err != nil {
		t.Fatalf("seller VerifySeller: %v", err)
	}
	if err := p.VerifyOwner(as(seller), 6); err != nil {
		t.Fatalf("VerifyOwner self: %v", err)
	}
	if err := p.VerifyOwner(as(admin), 6); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("admin is not owner: %v", err)
	}
	if err := p.VerifyCanManage(as(admin), 6); err != nil {
		t.Fatalf("admin VerifyCanManage: %v", err)
	}
	if _, err := p.VerifyCanManageShopBySlug(as(seller), "best-cafe-17"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("non-owner shop: %v", err)
	}
	if _, err := p.VerifyCanManageShopBySlug(as(seller), "ghost-404"); !errors.Is(err, errNoShop) {
		t.Fatalf("missing shop: %v", err)
	}
	if err := p.VerifyCanManageProduct(as(seller), 100); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("foreign product: %v", err)
	}
	if !p.CanManageProduct(as(Identity{ID: 5, Role: RoleSeller}), 100) {
		t.Fatalf("owner must manage own product")
	}

	// seller VerifyAdmin, admin VerifyOwner, seller shop, seller product
	if rec.Count(audit.PermissionDenied) != 4 {
		t.Fatalf("expected 4 PERMISSION_DENIED entries, got %d", rec.Count(audit.PermissionDenied))
	}
	if !IsDenied(p.VerifyAdmin(as(seller))) {
		t.Fatalf("IsDenied must recognise permission errors")
	}
}

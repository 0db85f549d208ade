package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"bazaar.dev/internal/audit"
)

// Policy answers capability questions for the identity bound to a context.
type Policy struct {
	directory ResourceDirectory
	audit     audit.Recorder
}

// NewPolicy constructs a policy over the given ownership directory.
func NewPolicy(directory ResourceDirectory, recorder audit.Recorder) *Policy {
	if recorder == nil {
		recorder = audit.NewTrail()
	}
	return &Policy{directory: directory, audit: recorder}
}

// CurrentIdentity returns the identity bound by the authentication middleware.
func (p *Policy) CurrentIdentity(ctx context.Context) (Identity, bool) {
	return IdentityFromContext(ctx)
}

func (p *Policy) IsAdmin(ctx context.Context) bool {
	id, ok := p.CurrentIdentity(ctx)
	return ok && id.Role == RoleAdmin
}

func (p *Policy) IsSeller(ctx context.Context) bool {
	id, ok := p.CurrentIdentity(ctx)
	return ok && id.Role == RoleSeller
}

// IsOwner reports whether the current identity's id equals ownerID.
func (p *Policy) IsOwner(ctx context.Context, ownerID int64) bool {
	id, ok := p.CurrentIdentity(ctx)
	return ok && id.ID == ownerID
}

// CanManage is IsAdmin or IsOwner.
func (p *Policy) CanManage(ctx context.Context, ownerID int64) bool {
	return p.IsAdmin(ctx) || p.IsOwner(ctx, ownerID)
}

// VerifyAuthenticated returns ErrAuthenticationRequired when no identity is bound.
func (p *Policy) VerifyAuthenticated(ctx context.Context) (Identity, error) {
	id, ok := p.CurrentIdentity(ctx)
	if !ok {
		return Identity{}, ErrAuthenticationRequired
	}
	return id, nil
}

func (p *Policy) VerifyAdmin(ctx context.Context) error {
	return p.verify(ctx, "admin", "", p.IsAdmin(ctx))
}

func (p *Policy) VerifySeller(ctx context.Context) error {
	return p.verify(ctx, "seller", "", p.IsSeller(ctx))
}

func (p *Policy) VerifyOwner(ctx context.Context, ownerID int64) error {
	return p.verify(ctx, "owner", "owner:"+strconv.FormatInt(ownerID, 10), p.IsOwner(ctx, ownerID))
}

func (p *Policy) VerifyCanManage(ctx context.Context, ownerID int64) error {
	return p.verify(ctx, "manage", "owner:"+strconv.FormatInt(ownerID, 10), p.CanManage(ctx, ownerID))
}

func (p *Policy) verify(ctx context.Context, action, resource string, allowed bool) error {
	id, err := p.VerifyAuthenticated(ctx)
	if err != nil {
		return err
	}
	if allowed {
		return nil
	}
	p.audit.Record(ctx, audit.PermissionDenied, audit.ID(id.ID), map[string]string{
		"action":    action,
		"resource":  resource,
		"authority": id.Authority(),
	})
	return fmt.Errorf("%s: %w", action, ErrPermissionDenied)
}

// ResolveShopID maps a slug to a shop id: the whole slug as an integer, then
// the segment after the last '-' as an integer, then a lookup by name.
func (p *Policy) ResolveShopID(ctx context.Context, slug string) (int64, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return 0, fmt.Errorf("empty slug: %w", ErrInvalidInput)
	}
	if id, err := strconv.ParseInt(slug, 10, 64); err == nil {
		return id, nil
	}
	if i := strings.LastIndexByte(slug, '-'); i >= 0 {
		if id, err := strconv.ParseInt(slug[i+1:], 10, 64); err == nil {
			return id, nil
		}
	}
	return p.directory.ShopIDByName(ctx, slug)
}

// CanManageShop reports whether the current identity may manage the shop.
// Unknown shops are never manageable.
func (p *Policy) CanManageShop(ctx context.Context, shopID int64) bool {
	owner, err := p.directory.ShopOwner(ctx, shopID)
	if err != nil {
		return false
	}
	return p.CanManage(ctx, owner)
}

func (p *Policy) CanManageShopBySlug(ctx context.Context, slug string) bool {
	id, err := p.ResolveShopID(ctx, slug)
	if err != nil {
		return false
	}
	return p.CanManageShop(ctx, id)
}

// VerifyCanManageShop fails with ErrAuthenticationRequired, ErrNotFound or ErrPermissionDenied.
func (p *Policy) VerifyCanManageShop(ctx context.Context, shopID int64) error {
	if _, err := p.VerifyAuthenticated(ctx); err != nil {
		return err
	}
	owner, err := p.directory.ShopOwner(ctx, shopID)
	if err != nil {
		return err
	}
	return p.verify(ctx, "manage_shop", "shop:"+strconv.FormatInt(shopID, 10), p.CanManage(ctx, owner))
}

// VerifyCanManageShopBySlug resolves the slug and verifies management rights, returning the shop id.
func (p *Policy) VerifyCanManageShopBySlug(ctx context.Context, slug string) (int64, error) {
	if _, err := p.VerifyAuthenticated(ctx); err != nil {
		return 0, err
	}
	id, err := p.ResolveShopID(ctx, slug)
	if err != nil {
		return 0, err
	}
	if err := p.VerifyCanManageShop(ctx, id); err != nil {
		return 0, err
	}
	return id, nil
}

func (p *Policy) CanManageProduct(ctx context.Context, productID int64) bool {
	owner, err := p.directory.ProductOwner(ctx, productID)
	if err != nil {
		return false
	}
	return p.CanManage(ctx, owner)
}

func (p *Policy) VerifyCanManageProduct(ctx context.Context, productID int64) error {
	if _, err := p.VerifyAuthenticated(ctx); err != nil {
		return err
	}
	owner, err := p.directory.ProductOwner(ctx, productID)
	if err != nil {
		return err
	}
	return p.verify(ctx, "manage_product", "product:"+strconv.FormatInt(productID, 10), p.CanManage(ctx, owner))
}

// IsDenied reports whether err is an authorization failure the HTTP layer maps to 401/403.
func IsDenied(err error) bool {
	return errors.Is(err, ErrAuthenticationRequired) || errors.Is(err, ErrPermissionDenied)
}

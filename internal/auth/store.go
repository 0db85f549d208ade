package auth

import "context"

// IdentityFinder looks up identities that may authenticate.
// FindActiveByEmail must only return enabled and active records; ErrNotFound otherwise.
type IdentityFinder interface {
	FindActiveByEmail(ctx context.Context, email string) (Identity, error)
}

// UserStore is the persistence used by registration and login.
type UserStore interface {
	IdentityFinder
	FindByEmail(ctx context.Context, email string) (Identity, error)
	CreateUser(ctx context.Context, u Identity) (Identity, error)
}

// ResourceDirectory answers ownership questions for the authorization policy.
// Lookups return the directory's own not-found error for missing resources.
type ResourceDirectory interface {
	ShopOwner(ctx context.Context, shopID int64) (int64, error)
	ShopIDByName(ctx context.Context, name string) (int64, error)
	ProductOwner(ctx context.Context, productID int64) (int64, error)
}

package pg

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"bazaar.dev/internal/catalog"
)

func (s *Store) CreateShop(ctx context.Context, shop catalog.Shop) (catalog.Shop, error) {
	if err := catalog.ValidateShop(shop); err != nil {
		return catalog.Shop{}, err
	}
	var out catalog.Shop
	var desc sql.NullString
	err := s.db.QueryRowContext(ctx, `
		insert into shops (owner_id, name, description)
		values ($1, $2, $3)
		returning id, owner_id, name, description, created_at
	`, shop.OwnerID, strings.TrimSpace(shop.Name), nullIfEmpty(shop.Description)).
		Scan(&out.ID, &out.OwnerID, &out.Name, &desc, &out.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return catalog.Shop{}, catalog.ErrNotFound
		}
		return catalog.Shop{}, err
	}
	out.Description = desc.String
	out.Slug = catalog.Slugify(out.Name, out.ID)
	return out, nil
}

func (s *Store) GetShop(ctx context.Context, id int64) (catalog.Shop, error) {
	var out catalog.Shop
	var desc sql.NullString
	err := s.db.QueryRowContext(ctx, `
		select id, owner_id, name, description, created_at
		from shops
		where id = $1
	`, id).Scan(&out.ID, &out.OwnerID, &out.Name, &desc, &out.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Shop{}, catalog.ErrNotFound
	}
	if err != nil {
		return catalog.Shop{}, err
	}
	out.Description = desc.String
	out.Slug = catalog.Slugify(out.Name, out.ID)
	return out, nil
}

func (s *Store) UpdateShop(ctx context.Context, id int64, upd catalog.ShopUpdate) (catalog.Shop, error) {
	var name sql.NullString
	if upd.Name != nil {
		trimmed := strings.TrimSpace(*upd.Name)
		if trimmed == "" {
			return catalog.Shop{}, catalog.ErrInvalidInput
		}
		name = sql.NullString{String: trimmed, Valid: true}
	}
	var desc sql.NullString
	if upd.Description != nil {
		desc = sql.NullString{String: *upd.Description, Valid: true}
	}
	res, err := s.db.ExecContext(ctx, `
		update shops
		set name = coalesce($2, name),
		    description = coalesce($3, description)
		where id = $1
	`, id, name, desc)
	if err != nil {
		return catalog.Shop{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return catalog.Shop{}, catalog.ErrNotFound
	}
	return s.GetShop(ctx, id)
}

// DeleteShop removes the shop; products cascade in the schema.
func (s *Store) DeleteShop(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from shops where id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func (s *Store) CreateProduct(ctx context.Context, p catalog.Product) (catalog.Product, error) {
	if err := catalog.ValidateProduct(p); err != nil {
		return catalog.Product{}, err
	}
	var out catalog.Product
	err := s.db.QueryRowContext(ctx, `
		insert into products (shop_id, name, price_cents)
		values ($1, $2, $3)
		returning id, shop_id, name, price_cents, created_at
	`, p.ShopID, strings.TrimSpace(p.Name), p.PriceCents).
		Scan(&out.ID, &out.ShopID, &out.Name, &out.PriceCents, &out.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return catalog.Product{}, catalog.ErrNotFound
		}
		return catalog.Product{}, err
	}
	return out, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from products where id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func (s *Store) ShopOwner(ctx context.Context, shopID int64) (int64, error) {
	return s.queryID(ctx, `select owner_id from shops where id = $1`, shopID)
}

// ShopIDByName matches on the exact name, case-insensitively, then on the
// slug form of the name ("best-cafe" for "Best Cafe"). The oldest shop wins.
func (s *Store) ShopIDByName(ctx context.Context, name string) (int64, error) {
	return s.queryID(ctx, `
		select id
		from shops
		where lower(name) = lower($1)
		   or trim(both '-' from regexp_replace(lower(name), '[^a-z0-9]+', '-', 'g')) = $2
		order by id
		limit 1
	`, strings.TrimSpace(name), catalog.SlugBase(name))
}

func (s *Store) ProductOwner(ctx context.Context, productID int64) (int64, error) {
	return s.queryID(ctx, `
		select s.owner_id
		from products p
		join shops s on s.id = p.shop_id
		where p.id = $1
	`, productID)
}

func (s *Store) queryID(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, catalog.ErrNotFound
	}
	return id, err
}

func nullIfEmpty(s string) sql.NullString {
	s = strings.TrimSpace(s)
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

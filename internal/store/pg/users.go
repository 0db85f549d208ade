package pg

import (
	"context"
	"database/sql"
	"errors"

	"bazaar.dev/internal/auth"
)

const identityColumns = `id, email, role, enabled, active, password_hash, created_at`

// FindActiveByEmail returns an enabled, active identity or auth.ErrNotFound.
func (s *Store) FindActiveByEmail(ctx context.Context, email string) (auth.Identity, error) {
	return s.queryIdentity(ctx, `
		select `+identityColumns+`
		from users
		where lower(email) = lower($1) and enabled and active
	`, auth.NormalizeEmail(email))
}

// FindByEmail returns an identity regardless of status.
func (s *Store) FindByEmail(ctx context.Context, email string) (auth.Identity, error) {
	return s.queryIdentity(ctx, `
		select `+identityColumns+`
		from users
		where lower(email) = lower($1)
	`, auth.NormalizeEmail(email))
}

// CreateUser inserts an identity; a duplicate email yields auth.ErrConflict.
func (s *Store) CreateUser(ctx context.Context, u auth.Identity) (auth.Identity, error) {
	if s.db == nil {
		return auth.Identity{}, errors.New("database connection unavailable")
	}
	row := s.db.QueryRowContext(ctx, `
		insert into users (email, role, enabled, active, password_hash)
		values ($1, $2, $3, $4, $5)
		returning `+identityColumns,
		auth.NormalizeEmail(u.Email), string(u.Role), u.Enabled, u.Active, u.PasswordHash)
	out, err := scanIdentity(row)
	if err != nil {
		if isUniqueViolation(err) {
			return auth.Identity{}, auth.ErrConflict
		}
		return auth.Identity{}, err
	}
	return out, nil
}

// SetRole changes an identity's role. Outstanding tokens carrying the old role stop authenticating.
func (s *Store) SetRole(ctx context.Context, id int64, role auth.Role) error {
	res, err := s.db.ExecContext(ctx, `update users set role = $2 where id = $1`, id, string(role))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func (s *Store) queryIdentity(ctx context.Context, query string, args ...any) (auth.Identity, error) {
	if s.db == nil {
		return auth.Identity{}, errors.New("database connection unavailable")
	}
	id, err := scanIdentity(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Identity{}, auth.ErrNotFound
	}
	return id, err
}

func scanIdentity(row *sql.Row) (auth.Identity, error) {
	var (
		id   auth.Identity
		role string
	)
	if err := row.Scan(&id.ID, &id.Email, &role, &id.Enabled, &id.Active, &id.PasswordHash, &id.CreatedAt); err != nil {
		return auth.Identity{}, err
	}
	// unknown stored roles never match a token claim
	id.Role = auth.Role(role)
	if parsed, ok := auth.ParseRole(role); ok {
		id.Role = parsed
	}
	return id, nil
}

package sqlstore

import (
	"context"
	"database/sql"
	"strings"

	"cityinit.org/internal/auth"
)

const userColumns = `id, email, password_hash, role, name, organization, phone, address, bio, avatar, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (auth.User, error) {
	var (
		u    auth.User
		role string
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &role, &u.Name, &u.Organization,
		&u.Phone, &u.Address, &u.Bio, &u.Avatar, &u.CreatedAt)
	if err != nil {
		return auth.User{}, err
	}
	u.Role = auth.Role(role)
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

func (s *Store) CreateUser(ctx context.Context, u auth.User) error {
	_, err := s.db.ExecContext(ctx, s.q(`
		insert into users (`+userColumns+`)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`),
		u.ID, strings.ToLower(u.Email), u.PasswordHash, string(u.Role), u.Name, u.Organization,
		u.Phone, u.Address, u.Bio, u.Avatar, u.CreatedAt.UTC())
	if s.unique(err) {
		return auth.ErrAlreadyExists
	}
	return err
}

func (s *Store) FindUser(ctx context.Context, id string) (auth.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, s.q(`select `+userColumns+` from users where id = $1`), id))
	return u, notFound(err, auth.ErrNotFound)
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (auth.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, s.q(`select `+userColumns+` from users where email = $1`), strings.ToLower(email)))
	return u, notFound(err, auth.ErrNotFound)
}

func (s *Store) UpdateUser(ctx context.Context, id string, fn func(*auth.User) error) (auth.User, error) {
	var out auth.User
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		u, err := scanUser(tx.QueryRowContext(ctx, s.q(`select `+userColumns+` from users where id = $1`+s.d.LockSuffix), id))
		if err != nil {
			return notFound(err, auth.ErrNotFound)
		}
		if err := fn(&u); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, s.q(`
			update users set name = $2, organization = $3, phone = $4, address = $5, bio = $6, avatar = $7
			where id = $1`),
			id, u.Name, u.Organization, u.Phone, u.Address, u.Bio, u.Avatar)
		if err != nil {
			return err
		}
		out = u
		return nil
	})
	return out, err
}

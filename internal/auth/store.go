package auth

import "context"

// UserStore persists accounts. Implementations return ErrNotFound for unknown
// ids or emails and ErrAlreadyExists for a duplicate email.
type UserStore interface {
	CreateUser(ctx context.Context, u User) error
	FindUser(ctx context.Context, id string) (User, error)
	FindUserByEmail(ctx context.Context, email string) (User, error)
	UpdateUser(ctx context.Context, id string, fn func(*User) error) (User, error)
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"cityinit.org/internal/ids"
)

// RegisterHook runs after an account has been stored.
type RegisterHook func(ctx context.Context, u User) error

// Service handles registration, login and bearer token authentication.
type Service struct {
	users  UserStore
	tokens *Tokens
	now    func() time.Time
	hooks  []RegisterHook
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithClock overrides time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
			s.tokens.now = fn
		}
	}
}

// OnRegister adds a hook executed for every new account.
func OnRegister(h RegisterHook) ServiceOption {
	return func(s *Service) {
		if h != nil {
			s.hooks = append(s.hooks, h)
		}
	}
}

// NewService constructs Service with optional configuration.
func NewService(users UserStore, tokens *Tokens, opts ...ServiceOption) *Service {
	svc := &Service{
		users:  users,
		tokens: tokens,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Session is a freshly issued token with its owner.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

// Register creates an initiator or NPO account and logs it in.
func (s *Service) Register(ctx context.Context, reg Registration) (Session, error) {
	role, err := ParseRole(reg.Role)
	if err != nil {
		return Session{}, err
	}
	if role == RoleAdmin {
		return Session{}, fmt.Errorf("%w: admin accounts cannot self-register", ErrInvalidInput)
	}
	u, err := s.create(ctx, reg, role)
	if err != nil {
		return Session{}, err
	}
	for _, h := range s.hooks {
		if err := h(ctx, u); err != nil {
			return Session{}, fmt.Errorf("register hook: %w", err)
		}
	}
	return s.issue(u)
}

// CreateAdmin provisions an administrator. Used by operator tooling only.
func (s *Service) CreateAdmin(ctx context.Context, email, password, name string) (User, error) {
	return s.create(ctx, Registration{Email: email, Password: password, Name: name}, RoleAdmin)
}

func (s *Service) create(ctx context.Context, reg Registration, role Role) (User, error) {
	email, err := normalizeEmail(reg.Email)
	if err != nil {
		return User{}, err
	}
	name := strings.TrimSpace(reg.Name)
	if name == "" {
		return User{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	hash, err := HashPassword(reg.Password)
	if err != nil {
		return User{}, err
	}
	u := User{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Name:         name,
		Organization: strings.TrimSpace(reg.Organization),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

// Login checks credentials and issues a token.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Session{}, ErrBadCredentials
	}
	u, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrBadCredentials
		}
		return Session{}, err
	}
	if err := VerifyPassword(u.PasswordHash, password); err != nil {
		return Session{}, ErrBadCredentials
	}
	return s.issue(u)
}

func (s *Service) issue(u User) (Session, error) {
	token, exp, err := s.tokens.Issue(u)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: exp, User: u}, nil
}

// AuthenticateToken resolves a bearer token to a principal backed by a stored account.
func (s *Service) AuthenticateToken(ctx context.Context, token string) (Principal, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return Principal{}, err
	}
	u, err := s.users.FindUser(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Principal{}, ErrInvalidToken
		}
		return Principal{}, err
	}
	return Principal{User: u}, nil
}

// User returns an account by id.
func (s *Service) User(ctx context.Context, id string) (User, error) {
	return s.users.FindUser(ctx, strings.TrimSpace(id))
}

// UpdateProfile edits the caller's profile fields.
func (s *Service) UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (User, error) {
	return s.users.UpdateUser(ctx, id, upd.apply)
}

func normalizeEmail(raw string) (string, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw {
		return "", fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}
	return raw, nil
}

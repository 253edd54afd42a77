package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/Sharath05hk/Minimart/internal/entity"
)

type UserInput struct {
	Email    string   `json:"email"`
	FullName string   `json:"fullName"`
	Password string   `json:"password"`
	Roles    []string `json:"roles"`
}

// UserPatch updates only the fields that are set.
type UserPatch struct {
	Email    *string   `json:"email"`
	FullName *string   `json:"fullName"`
	Password *string   `json:"password"`
	Roles    *[]string `json:"roles"`
}

type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *domain.User `json:"user"`
}

type Users struct {
	repo   UserRepo
	hasher PasswordHasher
	tokens TokenIssuer
}

func NewUsers(repo UserRepo, hasher PasswordHasher, tokens TokenIssuer) *Users {
	return &Users{repo: repo, hasher: hasher, tokens: tokens}
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Create fails with domain.ErrAlreadyExists when the email is taken.
func (uc *Users) Create(ctx context.Context, in UserInput) (*domain.User, error) {
	if strings.TrimSpace(in.Password) == "" {
		return nil, domain.NewValidation("password", "must not be blank")
	}
	roles, err := domain.ParseRoles(in.Roles)
	if err != nil {
		return nil, err
	}
	u := &domain.User{Email: normalizeEmail(in.Email), FullName: in.FullName, Roles: roles}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	if u.PasswordHash, err = uc.hasher.Hash(in.Password); err != nil {
		return nil, err
	}
	if err := uc.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (uc *Users) List(ctx context.Context) ([]domain.User, error) {
	return uc.repo.List(ctx)
}

func (uc *Users) Get(ctx context.Context, id int64) (*domain.User, error) {
	return uc.repo.Get(ctx, id)
}

// Update replaces email, name and roles. The password changes only when given.
func (uc *Users) Update(ctx context.Context, id int64, in UserInput) (*domain.User, error) {
	p := UserPatch{Email: &in.Email, FullName: &in.FullName, Roles: &in.Roles}
	if strings.TrimSpace(in.Password) != "" {
		p.Password = &in.Password
	}
	return uc.Patch(ctx, id, p)
}

func (uc *Users) Patch(ctx context.Context, id int64, in UserPatch) (*domain.User, error) {
	u, err := uc.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Email != nil {
		u.Email = normalizeEmail(*in.Email)
	}
	if in.FullName != nil {
		u.FullName = *in.FullName
	}
	if in.Roles != nil {
		if u.Roles, err = domain.ParseRoles(*in.Roles); err != nil {
			return nil, err
		}
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	if in.Password != nil && strings.TrimSpace(*in.Password) != "" {
		if u.PasswordHash, err = uc.hasher.Hash(*in.Password); err != nil {
			return nil, err
		}
	}
	if err := uc.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (uc *Users) Delete(ctx context.Context, id int64) error {
	return uc.repo.Delete(ctx, id)
}

// Login never tells unknown email apart from a wrong password.
func (uc *Users) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	u, err := uc.repo.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := uc.hasher.Compare(u.PasswordHash, password); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	tok, exp, err := uc.tokens.Issue(u.ID, u.Email, u.RoleNames())
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: tok, ExpiresAt: exp, User: u}, nil
}

package domain

import (
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleCashier Role = "CASHIER"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleManager, RoleCashier:
		return r, nil
	default:
		return "", NewValidation("roles", "unknown role "+s)
	}
}

func ParseRoles(in []string) ([]Role, error) {
	seen := map[Role]bool{}
	out := make([]Role, 0, len(in))
	for _, s := range in {
		r, err := ParseRole(s)
		if err != nil {
			return nil, err
		}
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	return out, nil
}

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullName"`
	PasswordHash string    `json:"-"`
	Roles        []Role    `json:"roles"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (u *User) Validate() error {
	if !strings.Contains(u.Email, "@") {
		return NewValidation("email", "must be an email address")
	}
	if strings.TrimSpace(u.FullName) == "" {
		return NewValidation("fullName", "must not be blank")
	}
	if len(u.Roles) == 0 {
		return NewValidation("roles", "at least one role required")
	}
	return nil
}

func (u *User) RoleNames() []string {
	out := make([]string, len(u.Roles))
	for i, r := range u.Roles {
		out[i] = string(r)
	}
	return out
}

// HasAnyRole reports whether have contains at least one of want.
func HasAnyRole(have []string, want ...Role) bool {
	for _, h := range have {
		for _, w := range want {
			if Role(h) == w {
				return true
			}
		}
	}
	return false
}

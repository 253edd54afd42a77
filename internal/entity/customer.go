package domain

import (
	"strings"
	"time"
)

type Customer struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c *Customer) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return NewValidation("name", "must not be blank")
	}
	if c.Email != "" && !strings.Contains(c.Email, "@") {
		return NewValidation("email", "must be an email address")
	}
	return nil
}

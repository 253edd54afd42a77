package usecase

import (
	"context"

	domain "github.com/Sharath05hk/Minimart/internal/entity"
)

type CustomerInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type Customers struct {
	repo CustomerRepo
}

func NewCustomers(repo CustomerRepo) *Customers {
	return &Customers{repo: repo}
}

func (uc *Customers) List(ctx context.Context) ([]domain.Customer, error) {
	return uc.repo.List(ctx)
}

func (uc *Customers) Get(ctx context.Context, id int64) (*domain.Customer, error) {
	return uc.repo.Get(ctx, id)
}

func (uc *Customers) Create(ctx context.Context, in CustomerInput) (*domain.Customer, error) {
	c := &domain.Customer{Name: in.Name, Email: in.Email, Phone: in.Phone}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := uc.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (uc *Customers) Update(ctx context.Context, id int64, in CustomerInput) (*domain.Customer, error) {
	c, err := uc.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Name, c.Email, c.Phone = in.Name, in.Email, in.Phone
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := uc.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (uc *Customers) Delete(ctx context.Context, id int64) error {
	return uc.repo.Delete(ctx, id)
}

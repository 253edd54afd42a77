package usecase

import (
	"context"

	domain "github.com/Sharath05hk/Minimart/internal/entity"
	"github.com/shopspring/decimal"
)

type ProductInput struct {
	Name     string          `json:"name"`
	SKU      string          `json:"sku"`
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"stock"`
	Category string          `json:"category"`
	Supplier string          `json:"supplier"`
}

type Catalog struct {
	products ProductRepo
	tx       Transactor
}

func NewCatalog(products ProductRepo, tx Transactor) *Catalog {
	return &Catalog{products: products, tx: tx}
}

func (c *Catalog) List(ctx context.Context) ([]domain.Product, error) {
	return c.products.List(ctx)
}

func (c *Catalog) Get(ctx context.Context, id int64) (*domain.Product, error) {
	return c.products.Get(ctx, id)
}

// Create fails with domain.ErrAlreadyExists when the SKU is taken.
func (c *Catalog) Create(ctx context.Context, in ProductInput) (*domain.Product, error) {
	p := &domain.Product{
		Name:     in.Name,
		SKU:      in.SKU,
		Price:    in.Price,
		Stock:    in.Stock,
		Category: in.Category,
		Supplier: in.Supplier,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := c.products.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (c *Catalog) Update(ctx context.Context, id int64, in ProductInput) (*domain.Product, error) {
	var out *domain.Product
	err := c.tx.InTx(ctx, func(s TxStores) error {
		p, err := s.Products.Get(ctx, id)
		if err != nil {
			return err
		}
		p.Name, p.SKU, p.Price, p.Stock = in.Name, in.SKU, in.Price, in.Stock
		p.Category, p.Supplier = in.Category, in.Supplier
		if err := p.Validate(); err != nil {
			return err
		}
		if err := s.Products.Save(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	return out, err
}

// Delete fails with domain.ErrReferenced while order lines point at the product.
func (c *Catalog) Delete(ctx context.Context, id int64) error {
	return c.products.Delete(ctx, id)
}

func (c *Catalog) Restock(ctx context.Context, id int64, qty int) (*domain.Product, error) {
	var out *domain.Product
	err := c.tx.InTx(ctx, func(s TxStores) error {
		p, err := s.Products.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := p.Restock(qty); err != nil {
			return err
		}
		if err := s.Products.Save(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	return out, err
}

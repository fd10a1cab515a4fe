package ports

import (
	"context"

	"github.com/linkloot/affiliate-api/internal/core/domain"
)

// ProductRepository defines persistence operations for products.
type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) (*domain.Product, error)
	FindByID(ctx context.Context, id string) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
	// ListByUser returns the user's products, newest first.
	ListByUser(ctx context.Context, userID string) ([]*domain.Product, error)
}

package ports

import (
	"context"

	"github.com/linkloot/affiliate-api/internal/core/domain"
)

// AddProductInput is the DTO passed from the transport layer to CatalogService.
type AddProductInput struct {
	UserID   string
	Name     string
	URL      string
	ImageURL string
}

// AddProductResult carries the stored product and how the link rewrite went.
type AddProductResult struct {
	Product *domain.Product
	Rewrite RewriteResult
}

// Showcase is the public view of one user's products.
type Showcase struct {
	User     *domain.User
	Products []*domain.Product
}

type CatalogService interface {
	AddProduct(ctx context.Context, input AddProductInput) (*AddProductResult, error)
	DeleteProduct(ctx context.Context, productID, userID string) error
	ListProducts(ctx context.Context, userID string) ([]*domain.Product, error)
	Showcase(ctx context.Context, username string) (*Showcase, error)
}

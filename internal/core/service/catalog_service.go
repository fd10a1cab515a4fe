package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/linkloot/affiliate-api/internal/core/domain"
	"github.com/linkloot/affiliate-api/internal/core/ports"
)

type CatalogService struct {
	products ports.ProductRepository
	accounts ports.AccountRepository
	rewriter ports.LinkRewriter
	logger   zerolog.Logger
}

// NewCatalogService returns a CatalogService. A nil rewriter stores every
// product with its original URL.
func NewCatalogService(
	products ports.ProductRepository,
	accounts ports.AccountRepository,
	rewriter ports.LinkRewriter,
	logger zerolog.Logger,
) *CatalogService {
	return &CatalogService{products: products, accounts: accounts, rewriter: rewriter, logger: logger}
}

// AddProduct stores a product, monetising its URL when the affiliate network
// can. Any rewrite failure, skip or unchanged URL falls back to the original.
func (s *CatalogService) AddProduct(ctx context.Context, in ports.AddProductInput) (*ports.AddProductResult, error) {
	in.URL = strings.TrimSpace(in.URL)
	in.Name = strings.TrimSpace(in.Name)
	if in.URL == "" || in.Name == "" {
		return nil, fmt.Errorf("%w: product name and url are required", domain.ErrInvalidInput)
	}

	if _, err := s.accounts.FindByID(ctx, in.UserID); err != nil {
		return nil, err
	}

	rw := s.rewrite(ctx, in.URL)

	p := &domain.Product{
		UserID:       in.UserID,
		Name:         in.Name,
		OriginalURL:  in.URL,
		AffiliateURL: in.URL,
		ImageURL:     strings.TrimSpace(in.ImageURL),
		CreatedAt:    time.Now().UTC(),
	}
	if rw.Status == ports.StatusSent {
		p.AffiliateURL = rw.URL
		p.IsAffiliated = true
	}

	created, err := s.products.Create(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("add product: %w", err)
	}

	s.logger.Info().
		Str("product_id", created.ID).
		Str("user_id", created.UserID).
		Bool("affiliated", created.IsAffiliated).
		Str("rewrite", string(rw.Status)).
		Msg("product added")

	return &ports.AddProductResult{Product: created, Rewrite: rw}, nil
}

// rewrite normalises the collaborator outcome so that StatusSent always
// means "a different, non-empty URL is available".
func (s *CatalogService) rewrite(ctx context.Context, url string) ports.RewriteResult {
	if s.rewriter == nil {
		return ports.RewriteResult{DeliveryResult: ports.Skipped("affiliate api not configured"), URL: url}
	}

	rw := s.rewriter.Rewrite(ctx, url)
	switch rw.Status {
	case ports.StatusSent:
		if rw.URL == "" || rw.URL == url {
			return ports.RewriteResult{DeliveryResult: ports.Skipped("affiliate api returned the original url"), URL: url}
		}
	case ports.StatusFailed:
		s.logger.Warn().Err(rw.Err).Str("url", url).Msg("affiliate rewrite failed, using original url")
		rw.URL = url
	default:
		rw.URL = url
	}
	return rw
}

// DeleteProduct removes a product owned by userID.
func (s *CatalogService) DeleteProduct(ctx context.Context, productID, userID string) error {
	p, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return err
	}
	if !p.OwnedBy(userID) {
		return domain.ErrNotOwner
	}

	if err := s.products.Delete(ctx, productID); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	s.logger.Info().Str("product_id", productID).Str("user_id", userID).Msg("product deleted")
	return nil
}

func (s *CatalogService) ListProducts(ctx context.Context, userID string) ([]*domain.Product, error) {
	return s.products.ListByUser(ctx, userID)
}

// Showcase looks up a user by username (case-insensitive) and returns their
// products, newest first.
func (s *CatalogService) Showcase(ctx context.Context, username string) (*ports.Showcase, error) {
	username = normalizeUsername(username)
	if username == "" {
		return nil, domain.ErrUserNotFound
	}

	user, err := s.accounts.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	products, err := s.products.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("showcase: %w", err)
	}
	return &ports.Showcase{User: user, Products: products}, nil
}

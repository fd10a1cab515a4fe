package ports

import (
	"context"

	"github.com/linkloot/affiliate-api/internal/core/domain"
)

// AccountRepository persists users. Create must rely on the store's unique
// indexes so a duplicate email or username is rejected by the insert itself.
type AccountRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
}

package ports

import (
	"context"

	"github.com/linkloot/affiliate-api/internal/core/domain"
)

type AccountService interface {
	Register(ctx context.Context, email, password, username string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.User, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

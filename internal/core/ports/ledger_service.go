package ports

import (
	"context"

	"github.com/linkloot/affiliate-api/internal/core/domain"
)

// RedeemResult is returned by RequestRedemption.
type RedeemResult struct {
	Points       int64
	Transaction  *domain.Transaction
	Notification DeliveryResult
}

// CreditInput carries the parameters for a points credit. Reference is
// optional; when set, repeated credits with the same reference are ignored.
type CreditInput struct {
	UserID    string
	Points    int64
	Reason    string
	Reference string
}

// CreditResult reports the recorded transaction, or Duplicate when the
// reference had already been applied.
type CreditResult struct {
	Transaction *domain.Transaction
	Duplicate   bool
}

type LedgerService interface {
	RequestRedemption(ctx context.Context, userID, payoutID string) (*RedeemResult, error)
	CreditPoints(ctx context.Context, input CreditInput) (*CreditResult, error)
	SettleRedemption(ctx context.Context, transactionID string) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, userID string) ([]*domain.Transaction, error)
}

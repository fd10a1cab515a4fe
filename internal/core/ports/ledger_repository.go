package ports

import (
	"context"

	"github.com/linkloot/affiliate-api/internal/core/domain"
)

// LedgerRepository owns every write that touches point balances. Each method
// is atomic: balance changes and the matching transaction record are
// committed together or not at all.
type LedgerRepository interface {
	// MoveToPending zeroes availablePoints, adds tx.Points to pendingPoints and
	// stores tx.PayoutID on the user, but only if availablePoints still equals
	// tx.Points. Returns domain.ErrBalanceChanged when the guard fails.
	MoveToPending(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error)

	// Credit increments availablePoints by tx.Points and appends tx.
	Credit(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error)

	// Settle marks a pending Redeemed transaction completed and removes its
	// points from the owner's pendingPoints.
	Settle(ctx context.Context, transactionID string) (*domain.Transaction, error)

	// ListByUser returns the user's transactions, newest first.
	ListByUser(ctx context.Context, userID string) ([]*domain.Transaction, error)
}

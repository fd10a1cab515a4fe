package handler

import (
	"time"

	"github.com/linkloot/affiliate-api/internal/core/domain"
	"github.com/linkloot/affiliate-api/internal/core/ports"
)

func toUserSummary(u *domain.User) userSummary {
	return userSummary{
		ID:              u.ID,
		Email:           u.Email,
		Username:        u.Username,
		AvailablePoints: u.AvailablePoints,
		PendingPoints:   u.PendingPoints,
	}
}

func toSaleInput(r saleEventRequest) ports.SaleEventInput {
	occurred := r.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now()
	}
	return ports.SaleEventInput{
		Reference:  r.Reference,
		UserID:     r.UserID,
		Points:     r.Points,
		Product:    r.Product,
		OccurredAt: occurred.UTC(),
	}
}

// nonNilProducts and nonNilTransactions keep list responses encoded as [].
func nonNilProducts(ps []*domain.Product) []*domain.Product {
	if ps == nil {
		return []*domain.Product{}
	}
	return ps
}

func nonNilTransactions(txs []*domain.Transaction) []*domain.Transaction {
	if txs == nil {
		return []*domain.Transaction{}
	}
	return txs
}

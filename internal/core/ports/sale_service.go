package ports

import (
	"context"
	"time"
)

// SaleEventInput is a commission postback from the affiliate network.
type SaleEventInput struct {
	Reference  string
	UserID     string
	Points     int64
	Product    string
	OccurredAt time.Time
}

// SaleService applies sale postbacks to the ledger.
type SaleService interface {
	Process(ctx context.Context, event SaleEventInput) error
}

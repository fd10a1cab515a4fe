package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/linkloot/affiliate-api/internal/core/domain"
	"github.com/linkloot/affiliate-api/internal/core/ports"
)

type saleService struct {
	ledger ports.LedgerService
	log    zerolog.Logger
}

// NewSaleService returns a SaleService that credits sale postbacks through the ledger.
func NewSaleService(ledger ports.LedgerService, log zerolog.Logger) ports.SaleService {
	return &saleService{ledger: ledger, log: log}
}

// Process credits the commission for one sale. The sale reference doubles as
// the credit dedup key, so redelivered postbacks are applied once.
func (s *saleService) Process(ctx context.Context, in ports.SaleEventInput) error {
	if in.Reference == "" {
		return fmt.Errorf("process sale: %w: reference is required", domain.ErrInvalidInput)
	}

	reason := "Sale"
	if in.Product != "" {
		reason = "Sale: " + in.Product
	}

	res, err := s.ledger.CreditPoints(ctx, ports.CreditInput{
		UserID:    in.UserID,
		Points:    in.Points,
		Reason:    reason,
		Reference: in.Reference,
	})
	if err != nil {
		return fmt.Errorf("process sale %s: %w", in.Reference, err)
	}

	if res.Duplicate {
		s.log.Debug().Str("reference", in.Reference).Msg("sale already credited")
		return nil
	}

	s.log.Info().
		Str("reference", in.Reference).
		Str("user_id", in.UserID).
		Int64("points", in.Points).
		Time("occurred_at", in.OccurredAt).
		Msg("sale processed")
	return nil
}

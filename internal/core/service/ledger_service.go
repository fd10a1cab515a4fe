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

// LedgerService owns every change to a user's point balances.
type LedgerService struct {
	accounts  ports.AccountRepository
	ledger    ports.LedgerRepository
	notifier  ports.Notifier
	dedup     ports.CreditDedup
	minPoints int64
	now       func() time.Time
	logger    zerolog.Logger
}

// NewLedgerService wires the ledger. notifier and dedup may be nil: a nil
// notifier reports every redemption as skipped, a nil dedup disables
// reference checks. minPoints <= 0 falls back to domain.MinRedeemPoints.
func NewLedgerService(
	accounts ports.AccountRepository,
	ledger ports.LedgerRepository,
	notifier ports.Notifier,
	dedup ports.CreditDedup,
	minPoints int64,
	logger zerolog.Logger,
) *LedgerService {
	if minPoints <= 0 {
		minPoints = domain.MinRedeemPoints
	}
	return &LedgerService{
		accounts:  accounts,
		ledger:    ledger,
		notifier:  notifier,
		dedup:     dedup,
		minPoints: minPoints,
		now:       time.Now,
		logger:    logger,
	}
}

// RequestRedemption moves the user's entire available balance into pending
// and alerts an operator. The notification is best-effort: its outcome is
// reported in the result and never undoes the ledger write.
func (s *LedgerService) RequestRedemption(ctx context.Context, userID, payoutID string) (*ports.RedeemResult, error) {
	payoutID = strings.TrimSpace(payoutID)
	if payoutID == "" {
		return nil, fmt.Errorf("%w: payout id is required", domain.ErrInvalidInput)
	}

	user, err := s.accounts.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user.AvailablePoints < s.minPoints {
		return nil, &domain.BalanceError{Required: s.minPoints, Available: user.AvailablePoints}
	}

	tx := domain.NewRedemption(user.ID, payoutID, user.AvailablePoints, s.now())
	saved, err := s.ledger.MoveToPending(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("request redemption: %w", err)
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Str("transaction_id", saved.ID).
		Int64("points", saved.Points).
		Msg("redemption requested")

	// The ledger write is committed; a client disconnect must not stop the alert.
	delivery := s.notify(context.WithoutCancel(ctx), ports.RedemptionNotice{
		TransactionID: saved.ID,
		UserEmail:     user.Email,
		Points:        saved.Points,
		PayoutID:      payoutID,
		RequestedAt:   saved.CreatedAt,
	})

	return &ports.RedeemResult{
		Points:       saved.Points,
		Transaction:  saved,
		Notification: delivery,
	}, nil
}

func (s *LedgerService) notify(ctx context.Context, notice ports.RedemptionNotice) ports.DeliveryResult {
	if s.notifier == nil {
		return ports.Skipped("notifier not configured")
	}

	res := s.notifier.NotifyRedemption(ctx, notice)
	ev := s.logger.Info()
	if res.Status == ports.StatusFailed {
		ev = s.logger.Error().Err(res.Err)
	}
	ev.Str("transaction_id", notice.TransactionID).
		Str("status", string(res.Status)).
		Str("reason", res.Reason).
		Msg("payout notification")
	return res
}

// CreditPoints appends an Earned transaction and increments the available
// balance atomically. A repeated non-empty reference is reported as a
// duplicate and leaves the ledger untouched.
func (s *LedgerService) CreditPoints(ctx context.Context, in ports.CreditInput) (*ports.CreditResult, error) {
	if in.Points <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if strings.TrimSpace(in.UserID) == "" {
		return nil, domain.ErrUserNotFound
	}

	claimed := false
	if in.Reference != "" && s.dedup != nil {
		fresh, err := s.dedup.Claim(ctx, in.UserID, in.Reference)
		switch {
		case err != nil:
			s.logger.Warn().Err(err).Str("reference", in.Reference).Msg("credit dedup check failed, crediting anyway")
		case !fresh:
			s.logger.Debug().Str("user_id", in.UserID).Str("reference", in.Reference).Msg("duplicate credit skipped")
			return &ports.CreditResult{Duplicate: true}, nil
		default:
			claimed = true
		}
	}

	tx := domain.NewCredit(in.UserID, in.Points, in.Reason, in.Reference, s.now())
	saved, err := s.ledger.Credit(ctx, tx)
	if err != nil {
		if claimed {
			if relErr := s.dedup.Release(ctx, in.UserID, in.Reference); relErr != nil {
				s.logger.Warn().Err(relErr).Str("reference", in.Reference).Msg("failed to release credit dedup key")
			}
		}
		return nil, fmt.Errorf("credit points: %w", err)
	}

	s.logger.Info().
		Str("user_id", in.UserID).
		Str("transaction_id", saved.ID).
		Int64("points", saved.Points).
		Str("reason", saved.Reason).
		Msg("points credited")

	return &ports.CreditResult{Transaction: saved}, nil
}

// SettleRedemption records that an operator has paid out a redemption.
func (s *LedgerService) SettleRedemption(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	if strings.TrimSpace(transactionID) == "" {
		return nil, domain.ErrTransactionNotFound
	}

	tx, err := s.ledger.Settle(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("settle redemption: %w", err)
	}

	s.logger.Info().
		Str("user_id", tx.UserID).
		Str("transaction_id", tx.ID).
		Int64("points", tx.Points).
		Msg("redemption settled")
	return tx, nil
}

func (s *LedgerService) ListTransactions(ctx context.Context, userID string) ([]*domain.Transaction, error) {
	return s.ledger.ListByUser(ctx, userID)
}

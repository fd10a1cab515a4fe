package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/linkloot/affiliate-api/internal/api/metrics"
	"github.com/linkloot/affiliate-api/internal/core/domain"
	"github.com/linkloot/affiliate-api/internal/core/ports"
)

// LedgerHandler serves redemption, transaction history and the admin
// ledger operations.
type LedgerHandler struct {
	ledger        ports.LedgerService
	degradeTxList bool
	log           zerolog.Logger
}

// LedgerOption configures a LedgerHandler.
type LedgerOption func(*LedgerHandler)

// WithDegradedTransactionList makes GET /get_transactions answer 200 with an
// empty list when the query fails, instead of 500.
func WithDegradedTransactionList(enabled bool) LedgerOption {
	return func(h *LedgerHandler) { h.degradeTxList = enabled }
}

func NewLedgerHandler(ledger ports.LedgerService, log zerolog.Logger, opts ...LedgerOption) *LedgerHandler {
	h := &LedgerHandler{ledger: ledger, log: log}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Redeem moves the caller's whole available balance to pending.
//
// @Summary      Request a payout
// @Tags         ledger
// @Accept       json
// @Produce      json
// @Param        body  body      redeemRequest  true  "Redemption"
// @Success      200   {object}  redeemResponse
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /redeem [post]
func (h *LedgerHandler) Redeem(c echo.Context) error {
	var req redeemRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.ledger.RequestRedemption(c.Request().Context(), req.UserID, req.GPayID)
	if err != nil {
		metrics.RedemptionsTotal.WithLabelValues(redemptionResult(err)).Inc()
		return opError("An error occurred during redemption.", err)
	}

	metrics.RedemptionsTotal.WithLabelValues("accepted").Inc()
	metrics.PointsRedeemedTotal.Add(float64(res.Points))
	metrics.NotificationsTotal.WithLabelValues(string(res.Notification.Status)).Inc()

	return c.JSON(http.StatusOK, redeemResponse{
		Message:       fmt.Sprintf("Redemption request for %d points has been sent for approval.", res.Points),
		Points:        res.Points,
		TransactionID: res.Transaction.ID,
		Notification:  string(res.Notification.Status),
	})
}

// GetTransactions lists a user's ledger entries, newest first.
//
// @Summary      List transactions
// @Tags         ledger
// @Produce      json
// @Param        userId  path      string  true  "User ID"
// @Success      200     {array}   domain.Transaction
// @Failure      500     {object}  errorResponse
// @Router       /get_transactions/{userId} [get]
func (h *LedgerHandler) GetTransactions(c echo.Context) error {
	userID := c.Param("userId")
	txs, err := h.ledger.ListTransactions(c.Request().Context(), userID)
	if err != nil {
		if !h.degradeTxList {
			return opError("Could not fetch transactions.", err)
		}
		h.log.Warn().Err(err).Str("user_id", userID).Msg("transaction list failed, returning empty list")
		txs = nil
	}
	return c.JSON(http.StatusOK, nonNilTransactions(txs))
}

// AddPoints credits points manually.
//
// @Summary      Credit points
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      addPointsRequest  true  "Credit"
// @Success      200   {object}  addPointsResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /add_points [post]
func (h *LedgerHandler) AddPoints(c echo.Context) error {
	operator, err := ctxOperator(c)
	if err != nil {
		return err
	}

	var req addPointsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	reason := req.Reason
	if reason == "" {
		reason = "Manual Credit"
	}

	res, err := h.ledger.CreditPoints(c.Request().Context(), ports.CreditInput{
		UserID:    req.UserID,
		Points:    req.Points,
		Reason:    reason,
		Reference: req.Reference,
	})
	if err != nil {
		return opError("An error occurred while adding points.", err)
	}

	if res.Duplicate {
		return c.JSON(http.StatusOK, addPointsResponse{
			Message:   "Points for this reference were already added.",
			Duplicate: true,
		})
	}

	metrics.PointsCreditedTotal.Add(float64(req.Points))
	h.log.Info().Str("operator", operator).Str("user_id", req.UserID).Int64("points", req.Points).Msg("manual credit")

	return c.JSON(http.StatusOK, addPointsResponse{
		Message:     fmt.Sprintf("%d points added successfully!", req.Points),
		Transaction: res.Transaction,
	})
}

// CompleteRedemption marks a paid-out redemption completed.
//
// @Summary      Settle a redemption
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Transaction ID"
// @Success      200  {object}  settleResponse
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /admin/transactions/{id}/complete [post]
func (h *LedgerHandler) CompleteRedemption(c echo.Context) error {
	operator, err := ctxOperator(c)
	if err != nil {
		return err
	}

	tx, err := h.ledger.SettleRedemption(c.Request().Context(), c.Param("id"))
	if err != nil {
		return opError("An error occurred while completing the redemption.", err)
	}

	h.log.Info().Str("operator", operator).Str("transaction_id", tx.ID).Msg("redemption completed")
	return c.JSON(http.StatusOK, settleResponse{
		Message:     fmt.Sprintf("Redemption of %d points marked completed.", tx.Points),
		Transaction: tx,
	})
}

func redemptionResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

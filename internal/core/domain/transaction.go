package domain

import "time"

// TransactionType distinguishes credits from payout requests.
type TransactionType string

const (
	TxEarned   TransactionType = "Earned"
	TxRedeemed TransactionType = "Redeemed"
)

// TransactionStatus is the lifecycle state of a ledger entry.
type TransactionStatus string

const (
	TxPendingApproval TransactionStatus = "pending_approval"
	TxCompleted       TransactionStatus = "completed"
)

// MinRedeemPoints is the smallest balance that may be redeemed.
const MinRedeemPoints int64 = 500

// CanTransitionTo reports whether a transaction may move from s to next.
// The only transition is pending_approval → completed.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	return s == TxPendingApproval && next == TxCompleted
}

// Transaction is an append-only ledger entry.
type Transaction struct {
	ID          string            `json:"id"`
	UserID      string            `json:"userId"`
	Type        TransactionType   `json:"type"`
	Status      TransactionStatus `json:"status"`
	Points      int64             `json:"points"`
	PayoutID    string            `json:"gpayId,omitempty"`
	Reason      string            `json:"reason,omitempty"`
	Reference   string            `json:"reference,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	CompletedAt *time.Time        `json:"completedAt,omitempty"`
}

// NewRedemption builds the pending ledger entry for a payout request.
func NewRedemption(userID, payoutID string, points int64, at time.Time) *Transaction {
	return &Transaction{
		UserID:    userID,
		Type:      TxRedeemed,
		Status:    TxPendingApproval,
		Points:    points,
		PayoutID:  payoutID,
		CreatedAt: at.UTC(),
	}
}

// NewCredit builds a completed Earned entry.
func NewCredit(userID string, points int64, reason, reference string, at time.Time) *Transaction {
	return &Transaction{
		UserID:    userID,
		Type:      TxEarned,
		Status:    TxCompleted,
		Points:    points,
		Reason:    reason,
		Reference: reference,
		CreatedAt: at.UTC(),
	}
}

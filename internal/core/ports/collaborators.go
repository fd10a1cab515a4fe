package ports

import (
	"context"
	"time"
)

// DeliveryStatus is the outcome of a best-effort call to an external collaborator.
type DeliveryStatus string

const (
	StatusSent    DeliveryStatus = "sent"
	StatusSkipped DeliveryStatus = "skipped"
	StatusFailed  DeliveryStatus = "failed"
)

// DeliveryResult records what happened when a collaborator was invoked.
// Err is set only for StatusFailed and wraps domain.ErrUpstreamUnavailable.
type DeliveryResult struct {
	Status DeliveryStatus
	Reason string
	Err    error
}

func Sent() DeliveryResult { return DeliveryResult{Status: StatusSent} }

func Skipped(reason string) DeliveryResult {
	return DeliveryResult{Status: StatusSkipped, Reason: reason}
}

func Failed(err error) DeliveryResult {
	return DeliveryResult{Status: StatusFailed, Reason: err.Error(), Err: err}
}

// RedemptionNotice is the payload of the manual-payout alert.
type RedemptionNotice struct {
	TransactionID string
	UserEmail     string
	Points        int64
	PayoutID      string
	RequestedAt   time.Time
}

// Notifier alerts an operator that a payout must be processed by hand.
type Notifier interface {
	NotifyRedemption(ctx context.Context, notice RedemptionNotice) DeliveryResult
}

// RewriteResult is the outcome of an affiliate rewrite. URL is the
// monetised link when Status is StatusSent.
type RewriteResult struct {
	DeliveryResult
	URL string
}

// LinkRewriter turns a product URL into an affiliate URL.
type LinkRewriter interface {
	Rewrite(ctx context.Context, productURL string) RewriteResult
}

// CreditDedup guards CreditPoints against replayed sale references.
type CreditDedup interface {
	// Claim returns true if the reference had not been seen for this user.
	Claim(ctx context.Context, userID, reference string) (bool, error)
	// Release forgets a claim so a failed credit can be retried.
	Release(ctx context.Context, userID, reference string) error
}

package domain

import "time"

const RoleAdmin = "admin"

// User is an influencer account. Point balances are only ever changed by the
// ledger through atomic store updates.
type User struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	Username        string    `json:"username"`
	PasswordHash    string    `json:"-"`
	AvailablePoints int64     `json:"availablePoints"`
	PendingPoints   int64     `json:"pendingPoints"`
	PayoutID        string    `json:"gpayId,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

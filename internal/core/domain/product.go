package domain

import "time"

// Product is a link posted by a user. Products are immutable once created;
// only the owner may delete them.
type Product struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	Name         string    `json:"name"`
	OriginalURL  string    `json:"originalUrl"`
	AffiliateURL string    `json:"affiliateUrl"`
	ImageURL     string    `json:"imageUrl"`
	IsAffiliated bool      `json:"isAffiliated"`
	CreatedAt    time.Time `json:"createdAt"`
}

// OwnedBy reports whether userID owns the product.
func (p *Product) OwnedBy(userID string) bool {
	return p.UserID == userID
}

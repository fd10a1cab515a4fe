package handler

import (
	"time"

	"github.com/linkloot/affiliate-api/internal/core/domain"
)

// --- Requests ---

type signupRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Username string `json:"username" validate:"required,max=64"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

type addProductRequest struct {
	UserID      string `json:"userId"      validate:"required"`
	ProductName string `json:"productName" validate:"required"`
	ProductURL  string `json:"productUrl"  validate:"required,http_url"`
	ImageURL    string `json:"imageUrl"`
}

type deleteProductRequest struct {
	UserID string `json:"userId" validate:"required"`
}

type redeemRequest struct {
	UserID string `json:"userId" validate:"required"`
	GPayID string `json:"gpayId" validate:"required"`
}

type addPointsRequest struct {
	UserID    string `json:"userId"    validate:"required"`
	Points    int64  `json:"points"    validate:"gt=0"`
	Reason    string `json:"reason"`
	Reference string `json:"reference"`
}

type saleEventRequest struct {
	Reference  string    `json:"reference"   validate:"required"`
	UserID     string    `json:"userId"      validate:"required"`
	Points     int64     `json:"points"      validate:"gt=0"`
	Product    string    `json:"product"`
	OccurredAt time.Time `json:"occurredAt"`
}

// --- Responses ---

type userSummary struct {
	ID              string `json:"id"`
	Email           string `json:"email"`
	Username        string `json:"username"`
	AvailablePoints int64  `json:"availablePoints"`
	PendingPoints   int64  `json:"pendingPoints"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type signupResponse struct {
	Message string      `json:"message"`
	User    userSummary `json:"user"`
}

type loginResponse struct {
	Message string      `json:"message"`
	User    userSummary `json:"user"`
}

type addProductResponse struct {
	Message      string          `json:"message"`
	Product      *domain.Product `json:"product"`
	IsAffiliated bool            `json:"isAffiliated"`
	Rewrite      string          `json:"rewrite"`
}

type redeemResponse struct {
	Message       string `json:"message"`
	Points        int64  `json:"points"`
	TransactionID string `json:"transactionId"`
	Notification  string `json:"notification"`
}

type addPointsResponse struct {
	Message     string              `json:"message"`
	Duplicate   bool                `json:"duplicate,omitempty"`
	Transaction *domain.Transaction `json:"transaction,omitempty"`
}

type settleResponse struct {
	Message     string              `json:"message"`
	Transaction *domain.Transaction `json:"transaction"`
}

type showcaseResponse struct {
	Influencer showcaseInfluencer `json:"influencer"`
	Products   []*domain.Product  `json:"products"`
}

type showcaseInfluencer struct {
	Username string `json:"username"`
}

type acceptedResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count,omitempty"`
}

// errorResponse documents the error envelope for swagger.
type errorResponse struct {
	Error string `json:"error"`
}

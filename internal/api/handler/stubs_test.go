package handler

import (
	"context"
	"net/http/httptest"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/linkloot/affiliate-api/internal/core/domain"
	"github.com/linkloot/affiliate-api/internal/core/ports"
)

type stubAccountService struct {
	registerFn func(ctx context.Context, email, password, username string) (*domain.User, error)
	loginFn    func(ctx context.Context, email, password string) (*domain.User, error)
	getFn      func(ctx context.Context, id string) (*domain.User, error)
}

func (s *stubAccountService) Register(ctx context.Context, email, password, username string) (*domain.User, error) {
	return s.registerFn(ctx, email, password, username)
}

func (s *stubAccountService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubAccountService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.getFn(ctx, id)
}

type stubCatalogService struct {
	addFn      func(ctx context.Context, in ports.AddProductInput) (*ports.AddProductResult, error)
	deleteFn   func(ctx context.Context, productID, userID string) error
	listFn     func(ctx context.Context, userID string) ([]*domain.Product, error)
	showcaseFn func(ctx context.Context, username string) (*ports.Showcase, error)
}

func (s *stubCatalogService) AddProduct(ctx context.Context, in ports.AddProductInput) (*ports.AddProductResult, error) {
	return s.addFn(ctx, in)
}

func (s *stubCatalogService) DeleteProduct(ctx context.Context, productID, userID string) error {
	return s.deleteFn(ctx, productID, userID)
}

func (s *stubCatalogService) ListProducts(ctx context.Context, userID string) ([]*domain.Product, error) {
	return s.listFn(ctx, userID)
}

func (s *stubCatalogService) Showcase(ctx context.Context, username string) (*ports.Showcase, error) {
	return s.showcaseFn(ctx, username)
}

type stubLedgerService struct {
	redeemFn func(ctx context.Context, userID, payoutID string) (*ports.RedeemResult, error)
	creditFn func(ctx context.Context, in ports.CreditInput) (*ports.CreditResult, error)
	settleFn func(ctx context.Context, id string) (*domain.Transaction, error)
	listFn   func(ctx context.Context, userID string) ([]*domain.Transaction, error)
}

func (s *stubLedgerService) RequestRedemption(ctx context.Context, userID, payoutID string) (*ports.RedeemResult, error) {
	return s.redeemFn(ctx, userID, payoutID)
}

func (s *stubLedgerService) CreditPoints(ctx context.Context, in ports.CreditInput) (*ports.CreditResult, error) {
	return s.creditFn(ctx, in)
}

func (s *stubLedgerService) SettleRedemption(ctx context.Context, id string) (*domain.Transaction, error) {
	return s.settleFn(ctx, id)
}

func (s *stubLedgerService) ListTransactions(ctx context.Context, userID string) ([]*domain.Transaction, error) {
	return s.listFn(ctx, userID)
}

type stubDispatcher struct {
	events []ports.SaleEventInput
	err    error
}

func (d *stubDispatcher) Enqueue(e ports.SaleEventInput) error {
	if d.err != nil {
		return d.err
	}
	d.events = append(d.events, e)
	return nil
}

func (d *stubDispatcher) EnqueueBatch(es []ports.SaleEventInput) error {
	if d.err != nil {
		return d.err
	}
	d.events = append(d.events, es...)
	return nil
}

// newContext builds an echo context with the validator installed. body may be empty.
func newContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

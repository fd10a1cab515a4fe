// Package memory is an in-process implementation of the repositories. It
// applies the same guards as the Mongo repositories and backs local runs
// with STORE=memory and the router tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/linkloot/affiliate-api/internal/core/domain"
)

// Store holds every collection behind one mutex, which stands in for a
// store transaction.
type Store struct {
	mu       sync.RWMutex
	users    map[string]*domain.User
	products map[string]*domain.Product
	txs      map[string]*domain.Transaction
}

func NewStore() *Store {
	return &Store{
		users:    make(map[string]*domain.User),
		products: make(map[string]*domain.Product),
		txs:      make(map[string]*domain.Transaction),
	}
}

// Ping always succeeds; it lets the store stand in for a readiness check.
func (s *Store) Ping(context.Context) error { return nil }

func newID() string { return uuid.NewString() }

// ── accounts ──────────────────────────────────────────────────────────────────

type AccountRepository struct{ s *Store }

func NewAccountRepository(s *Store) *AccountRepository { return &AccountRepository{s: s} }

func (r *AccountRepository) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Email == user.Email {
			return nil, domain.ErrEmailTaken
		}
		if u.Username == user.Username {
			return nil, domain.ErrUsernameTaken
		}
	}

	stored := *user
	stored.ID = newID()
	r.s.users[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (r *AccountRepository) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if u, ok := r.s.users[id]; ok {
		out := *u
		return &out, nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *AccountRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.Email == email })
}

func (r *AccountRepository) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	username = strings.ToLower(username)
	return r.find(func(u *domain.User) bool { return u.Username == username })
}

func (r *AccountRepository) find(match func(*domain.User) bool) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if match(u) {
			out := *u
			return &out, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

// ── products ──────────────────────────────────────────────────────────────────

type ProductRepository struct{ s *Store }

func NewProductRepository(s *Store) *ProductRepository { return &ProductRepository{s: s} }

func (r *ProductRepository) Create(_ context.Context, p *domain.Product) (*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored := *p
	stored.ID = newID()
	r.s.products[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (r *ProductRepository) FindByID(_ context.Context, id string) (*domain.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if p, ok := r.s.products[id]; ok {
		out := *p
		return &out, nil
	}
	return nil, domain.ErrProductNotFound
}

func (r *ProductRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[id]; !ok {
		return domain.ErrProductNotFound
	}
	delete(r.s.products, id)
	return nil
}

func (r *ProductRepository) ListByUser(_ context.Context, userID string) ([]*domain.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*domain.Product, 0)
	for _, p := range r.s.products {
		if p.UserID == userID {
			c := *p
			out = append(out, &c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ── ledger ────────────────────────────────────────────────────────────────────

type LedgerRepository struct{ s *Store }

func NewLedgerRepository(s *Store) *LedgerRepository { return &LedgerRepository{s: s} }

func (r *LedgerRepository) MoveToPending(_ context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[tx.UserID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if u.AvailablePoints != tx.Points {
		return nil, domain.ErrBalanceChanged
	}
	u.AvailablePoints = 0
	u.PendingPoints += tx.Points
	u.PayoutID = tx.PayoutID

	return r.appendLocked(tx), nil
}

func (r *LedgerRepository) Credit(_ context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[tx.UserID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u.AvailablePoints += tx.Points

	return r.appendLocked(tx), nil
}

func (r *LedgerRepository) appendLocked(tx *domain.Transaction) *domain.Transaction {
	stored := *tx
	stored.ID = newID()
	r.s.txs[stored.ID] = &stored
	out := stored
	return &out
}

func (r *LedgerRepository) Settle(_ context.Context, id string) (*domain.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	tx, ok := r.s.txs[id]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	if tx.Type != domain.TxRedeemed || !tx.Status.CanTransitionTo(domain.TxCompleted) {
		return nil, domain.ErrNotPending
	}
	u, ok := r.s.users[tx.UserID]
	if !ok || u.PendingPoints < tx.Points {
		return nil, domain.ErrBalanceChanged
	}

	u.PendingPoints -= tx.Points
	now := time.Now().UTC()
	tx.Status = domain.TxCompleted
	tx.CompletedAt = &now

	out := *tx
	return &out, nil
}

func (r *LedgerRepository) ListByUser(_ context.Context, userID string) ([]*domain.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*domain.Transaction, 0)
	for _, tx := range r.s.txs {
		if tx.UserID == userID {
			c := *tx
			out = append(out, &c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

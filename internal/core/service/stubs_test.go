package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/linkloot/affiliate-api/internal/core/domain"
	"github.com/linkloot/affiliate-api/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory store shared by the stub repositories
// ---------------------------------------------------------------------------

type memStore struct {
	mu       sync.Mutex
	seq      int
	users    map[string]*domain.User
	products map[string]*domain.Product
	txs      map[string]*domain.Transaction

	listErr error // if set, ListByUser on the ledger returns this error
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[string]*domain.User),
		products: make(map[string]*domain.Product),
		txs:      make(map[string]*domain.Transaction),
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s_%d", prefix, m.seq)
}

// user returns a copy of the stored user, or nil.
func (m *memStore) user(id string) *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil
	}
	clone := *u
	return &clone
}

func (m *memStore) seedUser(u domain.User) *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == "" {
		u.ID = m.nextID("user")
	}
	m.users[u.ID] = &u
	clone := u
	return &clone
}

func (m *memStore) transactionsOf(userID string) []*domain.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Transaction
	for _, tx := range m.txs {
		if tx.UserID == userID {
			clone := *tx
			out = append(out, &clone)
		}
	}
	return out
}

// --- accounts ---

type stubAccountRepo struct{ *memStore }

func (r stubAccountRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return nil, domain.ErrEmailTaken
		}
		if u.Username == user.Username {
			return nil, domain.ErrUsernameTaken
		}
	}
	clone := *user
	clone.ID = r.nextID("user")
	r.users[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (r stubAccountRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	if u := r.user(id); u != nil {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (r stubAccountRepo) find(match func(*domain.User) bool) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r stubAccountRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.Email == email })
}

func (r stubAccountRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.Username == username })
}

// --- ledger ---

// stubLedgerRepo mirrors the guarded updates of the Mongo repository: every
// method runs under the store mutex, which stands in for a store transaction.
type stubLedgerRepo struct {
	*memStore
	beforeMove func() // runs inside MoveToPending before the guard is checked
}

func (r stubLedgerRepo) MoveToPending(_ context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	if r.beforeMove != nil {
		r.beforeMove()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[tx.UserID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if u.AvailablePoints != tx.Points {
		return nil, domain.ErrBalanceChanged
	}
	u.AvailablePoints = 0
	u.PendingPoints += tx.Points
	u.PayoutID = tx.PayoutID

	clone := *tx
	clone.ID = r.nextID("tx")
	r.txs[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (r stubLedgerRepo) Credit(_ context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[tx.UserID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u.AvailablePoints += tx.Points

	clone := *tx
	clone.ID = r.nextID("tx")
	r.txs[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (r stubLedgerRepo) Settle(_ context.Context, id string) (*domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.txs[id]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	if tx.Type != domain.TxRedeemed || !tx.Status.CanTransitionTo(domain.TxCompleted) {
		return nil, domain.ErrNotPending
	}
	u := r.users[tx.UserID]
	if u == nil || u.PendingPoints < tx.Points {
		return nil, domain.ErrBalanceChanged
	}
	u.PendingPoints -= tx.Points
	tx.Status = domain.TxCompleted
	out := *tx
	return &out, nil
}

func (r stubLedgerRepo) ListByUser(_ context.Context, userID string) ([]*domain.Transaction, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := r.transactionsOf(userID)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// --- products ---

type stubProductRepo struct {
	*memStore
	createErr error
}

func (r stubProductRepo) Create(_ context.Context, p *domain.Product) (*domain.Product, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *p
	clone.ID = r.nextID("product")
	r.products[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (r stubProductRepo) FindByID(_ context.Context, id string) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	clone := *p
	return &clone, nil
}

func (r stubProductRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[id]; !ok {
		return domain.ErrProductNotFound
	}
	delete(r.products, id)
	return nil
}

func (r stubProductRepo) ListByUser(_ context.Context, userID string) ([]*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Product
	for _, p := range r.products {
		if p.UserID == userID {
			clone := *p
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ---------------------------------------------------------------------------
// Collaborator stubs
// ---------------------------------------------------------------------------

type stubNotifier struct {
	result  ports.DeliveryResult
	notices []ports.RedemptionNotice
}

func (n *stubNotifier) NotifyRedemption(_ context.Context, notice ports.RedemptionNotice) ports.DeliveryResult {
	n.notices = append(n.notices, notice)
	return n.result
}

type stubRewriter struct {
	result ports.RewriteResult
	calls  int
}

func (r *stubRewriter) Rewrite(_ context.Context, _ string) ports.RewriteResult {
	r.calls++
	return r.result
}

type stubDedup struct {
	seen     map[string]bool
	claimErr error
	released []string
}

func newStubDedup() *stubDedup { return &stubDedup{seen: make(map[string]bool)} }

func (d *stubDedup) Claim(_ context.Context, userID, reference string) (bool, error) {
	if d.claimErr != nil {
		return false, d.claimErr
	}
	key := userID + ":" + reference
	if d.seen[key] {
		return false, nil
	}
	d.seen[key] = true
	return true, nil
}

func (d *stubDedup) Release(_ context.Context, userID, reference string) error {
	key := userID + ":" + reference
	delete(d.seen, key)
	d.released = append(d.released, key)
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var discardLogger = zerolog.Nop()

var errStoreDown = errors.New("store unavailable")

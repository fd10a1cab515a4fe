package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/linkloot/affiliate-api/internal/core/domain"
	"github.com/linkloot/affiliate-api/internal/core/ports"
)

type ledgerFixture struct {
	store    *memStore
	notifier *stubNotifier
	dedup    *stubDedup
	svc      *LedgerService
}

func newLedgerFixture() *ledgerFixture {
	store := newMemStore()
	notifier := &stubNotifier{result: ports.Sent()}
	dedup := newStubDedup()
	svc := NewLedgerService(stubAccountRepo{store}, stubLedgerRepo{memStore: store}, notifier, dedup, 0, discardLogger)
	return &ledgerFixture{store: store, notifier: notifier, dedup: dedup, svc: svc}
}

func (f *ledgerFixture) seed(available, pending int64) *domain.User {
	return f.store.seedUser(domain.User{
		Email:           "a@x.com",
		Username:        "alice",
		AvailablePoints: available,
		PendingPoints:   pending,
	})
}

// ---------------------------------------------------------------------------
// RequestRedemption
// ---------------------------------------------------------------------------

func TestLedgerService_Redeem_BelowThreshold(t *testing.T) {
	f := newLedgerFixture()
	u := f.seed(499, 0)

	_, err := f.svc.RequestRedemption(context.Background(), u.ID, "upi@bank")
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	stored := f.store.user(u.ID)
	if stored.AvailablePoints != 499 || stored.PendingPoints != 0 {
		t.Errorf("balances changed on rejection: %+v", stored)
	}
	if len(f.store.transactionsOf(u.ID)) != 0 {
		t.Error("no transaction must be recorded on rejection")
	}
	if len(f.notifier.notices) != 0 {
		t.Error("no notification must be sent on rejection")
	}
}

func TestLedgerService_Redeem_ExactlyThreshold(t *testing.T) {
	f := newLedgerFixture()
	u := f.seed(500, 0)

	res, err := f.svc.RequestRedemption(context.Background(), u.ID, "upi@bank")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Points != 500 {
		t.Errorf("expected 500 points redeemed, got %d", res.Points)
	}

	stored := f.store.user(u.ID)
	if stored.AvailablePoints != 0 {
		t.Errorf("expected availablePoints 0, got %d", stored.AvailablePoints)
	}
	if stored.PendingPoints != 500 {
		t.Errorf("expected pendingPoints 500, got %d", stored.PendingPoints)
	}
	if stored.PayoutID != "upi@bank" {
		t.Errorf("expected payout id stored on user, got %q", stored.PayoutID)
	}
}

func TestLedgerService_Redeem_RecordsPendingTransaction(t *testing.T) {
	f := newLedgerFixture()
	u := f.seed(750, 0)

	res, err := f.svc.RequestRedemption(context.Background(), u.ID, "upi@bank")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	txs := f.store.transactionsOf(u.ID)
	if len(txs) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(txs))
	}
	tx := txs[0]
	if tx.Type != domain.TxRedeemed || tx.Status != domain.TxPendingApproval {
		t.Errorf("unexpected type/status: %s/%s", tx.Type, tx.Status)
	}
	if tx.Points != 750 || tx.PayoutID != "upi@bank" {
		t.Errorf("unexpected points/payout: %d/%s", tx.Points, tx.PayoutID)
	}
	if tx.CreatedAt.IsZero() || tx.CreatedAt.Location() != time.UTC {
		t.Errorf("createdAt must be set in UTC, got %v", tx.CreatedAt)
	}
	if res.Transaction.ID != tx.ID {
		t.Errorf("result transaction id %q does not match stored %q", res.Transaction.ID, tx.ID)
	}
}

func TestLedgerService_Redeem_IncrementsExistingPending(t *testing.T) {
	f := newLedgerFixture()
	u := f.seed(600, 250)

	if _, err := f.svc.RequestRedemption(context.Background(), u.ID, "upi@bank"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := f.store.user(u.ID).PendingPoints; got != 850 {
		t.Errorf("pendingPoints must be incremented, expected 850 got %d", got)
	}
}

func TestLedgerService_Redeem_UserNotFound(t *testing.T) {
	f := newLedgerFixture()

	_, err := f.svc.RequestRedemption(context.Background(), "ghost", "upi@bank")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLedgerService_Redeem_RequiresPayoutID(t *testing.T) {
	f := newLedgerFixture()
	u := f.seed(900, 0)

	_, err := f.svc.RequestRedemption(context.Background(), u.ID, "   ")
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if f.store.user(u.ID).AvailablePoints != 900 {
		t.Error("balance must be untouched")
	}
}

func TestLedgerService_Redeem_NotifiesOperator(t *testing.T) {
	f := newLedgerFixture()
	u := f.seed(640, 0)

	res, err := f.svc.RequestRedemption(context.Background(), u.ID, "upi@bank")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.notifier.notices) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(f.notifier.notices))
	}
	n := f.notifier.notices[0]
	if n.UserEmail != "a@x.com" || n.Points != 640 || n.PayoutID != "upi@bank" {
		t.Errorf("unexpected notice: %+v", n)
	}
	if n.TransactionID != res.Transaction.ID {
		t.Errorf("notice must reference the transaction, got %q", n.TransactionID)
	}
	if res.Notification.Status != ports.StatusSent {
		t.Errorf("expected sent, got %s", res.Notification.Status)
	}
}

func TestLedgerService_Redeem_NotificationFailureKeepsLedger(t *testing.T) {
	f := newLedgerFixture()
	f.notifier.result = ports.Failed(errors.New("smtp: connection refused"))
	u := f.seed(500, 0)

	res, err := f.svc.RequestRedemption(context.Background(), u.ID, "upi@bank")
	if err != nil {
		t.Fatalf("notification failure must not fail the redemption: %v", err)
	}
	if res.Notification.Status != ports.StatusFailed || res.Notification.Err == nil {
		t.Errorf("expected failed delivery with error, got %+v", res.Notification)
	}

	stored := f.store.user(u.ID)
	if stored.AvailablePoints != 0 || stored.PendingPoints != 500 {
		t.Errorf("ledger mutation must survive notification failure: %+v", stored)
	}
}

func TestLedgerService_Redeem_NilNotifierIsSkipped(t *testing.T) {
	store := newMemStore()
	svc := NewLedgerService(stubAccountRepo{store}, stubLedgerRepo{memStore: store}, nil, nil, 0, discardLogger)
	u := store.seedUser(domain.User{Email: "a@x.com", Username: "alice", AvailablePoints: 500})

	res, err := svc.RequestRedemption(context.Background(), u.ID, "upi@bank")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Notification.Status != ports.StatusSkipped || res.Notification.Reason == "" {
		t.Errorf("expected skipped with reason, got %+v", res.Notification)
	}
}

func TestLedgerService_Redeem_CustomThreshold(t *testing.T) {
	store := newMemStore()
	svc := NewLedgerService(stubAccountRepo{store}, stubLedgerRepo{memStore: store}, nil, nil, 1000, discardLogger)
	u := store.seedUser(domain.User{Email: "a@x.com", Username: "alice", AvailablePoints: 999})

	if _, err := svc.RequestRedemption(context.Background(), u.ID, "upi@bank"); !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestLedgerService_Redeem_BalanceChangedConcurrently(t *testing.T) {
	store := newMemStore()
	u := store.seedUser(domain.User{Email: "a@x.com", Username: "alice", AvailablePoints: 500})
	ledger := stubLedgerRepo{
		memStore: store,
		// Another credit lands between the read and the guarded write.
		beforeMove: func() {
			store.mu.Lock()
			store.users[u.ID].AvailablePoints += 100
			store.mu.Unlock()
		},
	}
	notifier := &stubNotifier{result: ports.Sent()}
	svc := NewLedgerService(stubAccountRepo{store}, ledger, notifier, nil, 0, discardLogger)

	_, err := svc.RequestRedemption(context.Background(), u.ID, "upi@bank")
	if !errors.Is(err, domain.ErrBalanceChanged) || !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrBalanceChanged (conflict), got %v", err)
	}
	if got := store.user(u.ID); got.AvailablePoints != 600 || got.PendingPoints != 0 {
		t.Errorf("losing redemption must not change balances: %+v", got)
	}
	if len(notifier.notices) != 0 {
		t.Error("losing redemption must not notify")
	}
}

func TestLedgerService_Redeem_ConcurrentRequestsRedeemOnce(t *testing.T) {
	f := newLedgerFixture()
	u := f.seed(800, 0)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.RequestRedemption(context.Background(), u.ID, "upi@bank"); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("expected exactly one successful redemption, got %d", successes)
	}
	stored := f.store.user(u.ID)
	if stored.AvailablePoints != 0 || stored.PendingPoints != 800 {
		t.Errorf("unexpected balances: %+v", stored)
	}
	if n := len(f.store.transactionsOf(u.ID)); n != 1 {
		t.Errorf("expected 1 transaction, got %d", n)
	}
}

func TestLedgerService_TwoRedemptionsSumToPending(t *testing.T) {
	f := newLedgerFixture()
	u := f.seed(0, 0)
	ctx := context.Background()

	for _, credit := range []int64{500, 720} {
		if _, err := f.svc.CreditPoints(ctx, ports.CreditInput{UserID: u.ID, Points: credit, Reason: "test"}); err != nil {
			t.Fatalf("credit: %v", err)
		}
		if _, err := f.svc.RequestRedemption(ctx, u.ID, "upi@bank"); err != nil {
			t.Fatalf("redeem: %v", err)
		}
	}

	var sum int64
	ids := map[string]bool{}
	for _, tx := range f.store.transactionsOf(u.ID) {
		if tx.Type == domain.TxRedeemed {
			sum += tx.Points
			ids[tx.ID] = true
		}
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 distinct redemption records, got %d", len(ids))
	}
	if got := f.store.user(u.ID).PendingPoints; got != sum || sum != 1220 {
		t.Errorf("pendingPoints %d must equal redeemed sum %d (1220)", got, sum)
	}
}

// ---------------------------------------------------------------------------
// CreditPoints
// ---------------------------------------------------------------------------

func TestLedgerService_Credit_IncrementsAvailable(t *testing.T) {
	f := newLedgerFixture()
	u := f.seed(100, 40)

	res, err := f.svc.CreditPoints(context.Background(), ports.CreditInput{UserID: u.ID, Points: 600, Reason: "test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Duplicate {
		t.Error("fresh credit must not be a duplicate")
	}

	stored := f.store.user(u.ID)
	if stored.AvailablePoints != 700 || stored.PendingPoints != 40 {
		t.Errorf("unexpected balances: %+v", stored)
	}
	tx := res.Transaction
	if tx.Type != domain.TxEarned || tx.Status != domain.TxCompleted || tx.Points != 600 || tx.Reason != "test" {
		t.Errorf("unexpected transaction: %+v", tx)
	}
}

func TestLedgerService_Credit_RejectsNonPositive(t *testing.T) {
	f := newLedgerFixture()
	u := f.seed(0, 0)

	for _, pts := range []int64{0, -5} {
		if _, err := f.svc.CreditPoints(context.Background(), ports.CreditInput{UserID: u.ID, Points: pts}); !errors.Is(err, domain.ErrInvalidAmount) {
			t.Errorf("points=%d: expected ErrInvalidAmount, got %v", pts, err)
		}
	}
}

func TestLedgerService_Credit_UnknownUser(t *testing.T) {
	f := newLedgerFixture()

	_, err := f.svc.CreditPoints(context.Background(), ports.CreditInput{UserID: "ghost", Points: 10, Reference: "sale-1"})
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if len(f.dedup.released) != 1 {
		t.Error("dedup claim must be released when the credit fails")
	}
}

func TestLedgerService_Credit_DuplicateReference(t *testing.T) {
	f := newLedgerFixture()
	u := f.seed(0, 0)
	in := ports.CreditInput{UserID: u.ID, Points: 300, Reason: "Sale", Reference: "sale-42"}

	if _, err := f.svc.CreditPoints(context.Background(), in); err != nil {
		t.Fatalf("first credit: %v", err)
	}
	res, err := f.svc.CreditPoints(context.Background(), in)
	if err != nil {
		t.Fatalf("second credit: %v", err)
	}
	if !res.Duplicate {
		t.Error("expected duplicate on replayed reference")
	}
	if got := f.store.user(u.ID).AvailablePoints; got != 300 {
		t.Errorf("duplicate must not credit twice, got %d", got)
	}
}

func TestLedgerService_Credit_DedupErrorStillCredits(t *testing.T) {
	f := newLedgerFixture()
	f.dedup.claimErr = errors.New("redis: connection refused")
	u := f.seed(0, 0)

	if _, err := f.svc.CreditPoints(context.Background(), ports.CreditInput{UserID: u.ID, Points: 50, Reference: "r1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.store.user(u.ID).AvailablePoints; got != 50 {
		t.Errorf("expected 50, got %d", got)
	}
}

func TestLedgerService_Credit_ConcurrentIncrements(t *testing.T) {
	f := newLedgerFixture()
	u := f.seed(0, 0)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.svc.CreditPoints(context.Background(), ports.CreditInput{UserID: u.ID, Points: 25})
		}()
	}
	wg.Wait()

	if got := f.store.user(u.ID).AvailablePoints; got != 500 {
		t.Errorf("expected 500 after 20 concurrent credits, got %d", got)
	}
}

func TestLedgerService_BalancesNeverNegative(t *testing.T) {
	f := newLedgerFixture()
	u := f.seed(0, 0)
	ctx := context.Background()

	ops := []func(){
		func() { _, _ = f.svc.CreditPoints(ctx, ports.CreditInput{UserID: u.ID, Points: 300}) },
		func() { _, _ = f.svc.RequestRedemption(ctx, u.ID, "upi@bank") },
		func() { _, _ = f.svc.CreditPoints(ctx, ports.CreditInput{UserID: u.ID, Points: 450}) },
		func() { _, _ = f.svc.RequestRedemption(ctx, u.ID, "upi@bank") },
		func() { _, _ = f.svc.RequestRedemption(ctx, u.ID, "upi@bank") },
		func() { _, _ = f.svc.CreditPoints(ctx, ports.CreditInput{UserID: u.ID, Points: 1}) },
	}
	for i, op := range ops {
		op()
		got := f.store.user(u.ID)
		if got.AvailablePoints < 0 || got.PendingPoints < 0 {
			t.Fatalf("step %d: negative balance %+v", i, got)
		}
	}

	got := f.store.user(u.ID)
	if got.AvailablePoints != 1 || got.PendingPoints != 750 {
		t.Errorf("unexpected final balances: %+v", got)
	}
}

// ---------------------------------------------------------------------------
// SettleRedemption / ListTransactions
// ---------------------------------------------------------------------------

func TestLedgerService_Settle_CompletesPending(t *testing.T) {
	f := newLedgerFixture()
	u := f.seed(500, 100)

	res, err := f.svc.RequestRedemption(context.Background(), u.ID, "upi@bank")
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}

	tx, err := f.svc.SettleRedemption(context.Background(), res.Transaction.ID)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if tx.Status != domain.TxCompleted {
		t.Errorf("expected completed, got %s", tx.Status)
	}
	if got := f.store.user(u.ID).PendingPoints; got != 100 {
		t.Errorf("expected pendingPoints reduced to 100, got %d", got)
	}

	if _, err := f.svc.SettleRedemption(context.Background(), res.Transaction.ID); !errors.Is(err, domain.ErrNotPending) {
		t.Errorf("second settle must fail with ErrNotPending, got %v", err)
	}
}

func TestLedgerService_Settle_RejectsEarned(t *testing.T) {
	f := newLedgerFixture()
	u := f.seed(0, 0)

	res, err := f.svc.CreditPoints(context.Background(), ports.CreditInput{UserID: u.ID, Points: 10})
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if _, err := f.svc.SettleRedemption(context.Background(), res.Transaction.ID); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected conflict for earned transaction, got %v", err)
	}
}

func TestLedgerService_Settle_NotFound(t *testing.T) {
	f := newLedgerFixture()

	if _, err := f.svc.SettleRedemption(context.Background(), "missing"); !errors.Is(err, domain.ErrTransactionNotFound) {
		t.Errorf("expected ErrTransactionNotFound, got %v", err)
	}
}

func TestLedgerService_ListTransactions_NewestFirst(t *testing.T) {
	f := newLedgerFixture()
	u := f.seed(0, 0)

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	step := 0
	f.svc.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Minute)
	}

	for i := 0; i < 3; i++ {
		if _, err := f.svc.CreditPoints(context.Background(), ports.CreditInput{UserID: u.ID, Points: int64(i + 1)}); err != nil {
			t.Fatalf("credit: %v", err)
		}
	}

	txs, err := f.svc.ListTransactions(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(txs))
	}
	for i := 1; i < len(txs); i++ {
		if txs[i-1].CreatedAt.Before(txs[i].CreatedAt) {
			t.Fatalf("transactions not sorted newest first: %v before %v", txs[i-1].CreatedAt, txs[i].CreatedAt)
		}
	}
	if txs[0].Points != 3 {
		t.Errorf("expected newest credit first, got %d points", txs[0].Points)
	}
}

func TestLedgerService_ListTransactions_PropagatesError(t *testing.T) {
	f := newLedgerFixture()
	f.store.listErr = errStoreDown

	if _, err := f.svc.ListTransactions(context.Background(), "user_1"); !errors.Is(err, errStoreDown) {
		t.Errorf("expected store error, got %v", err)
	}
}

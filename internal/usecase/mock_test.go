//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"socials-billing/internal/domain"
	"socials-billing/internal/domain/model"
	"socials-billing/internal/domain/ports/adapter"
	"socials-billing/internal/domain/ports/repository"
)

// -----------------------------
// Utilities
// -----------------------------

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

var testNow = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func proPlan() *model.Plan {
	p, _ := model.NewPlan("pro", "pro", "Pro", 2900, 29000)
	p.DisplayOrder = 2
	return p
}

// =============================
// Transaction manager
// =============================

type MockTxManager struct {
	mu    sync.Mutex
	Calls int

	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, nil)
}

// =============================
// In-memory store shared by the repository fakes
// =============================

type memStore struct {
	mu       sync.Mutex
	plans    map[string]*model.Plan
	accounts map[string]*model.Account
	subs     map[string]*model.Subscription
	invoices map[string]*model.Invoice
	payments []*model.Payment
	methods  map[string]*model.PaymentMethod
}

func newMemStore() *memStore {
	return &memStore{
		plans:    map[string]*model.Plan{},
		accounts: map[string]*model.Account{},
		subs:     map[string]*model.Subscription{},
		invoices: map[string]*model.Invoice{},
		methods:  map[string]*model.PaymentMethod{},
	}
}

func (s *memStore) invoicesFor(txnID string) []*model.Invoice {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Invoice
	for _, inv := range s.invoices {
		if inv.ProviderTxnID == txnID {
			cp := *inv
			out = append(out, &cp)
		}
	}
	return out
}

func (s *memStore) paymentsFor(txnID string, status model.PaymentStatus) []*model.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Payment
	for _, p := range s.payments {
		if p.ProviderTxnID == txnID && p.Status == status {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out
}

func (s *memStore) subByTxn(txnID string) *model.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		if sub.ProviderTxnID == txnID {
			cp := *sub
			return &cp
		}
	}
	return nil
}

// ---- plans ----

type memPlanRepo struct{ s *memStore }

var _ repository.PlanRepository = (*memPlanRepo)(nil)

func (r *memPlanRepo) Save(ctx context.Context, tx repository.Tx, plan *model.Plan) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *plan
	r.s.plans[plan.ID] = &cp
	return nil
}

func (r *memPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.plans[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memPlanRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Plan
	for _, p := range r.s.plans {
		if p.IsActive {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ---- accounts ----

type memAccountRepo struct{ s *memStore }

var _ repository.AccountRepository = (*memAccountRepo)(nil)

func (r *memAccountRepo) Save(ctx context.Context, tx repository.Tx, a *model.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *a
	r.s.accounts[a.ID] = &cp
	return nil
}

func (r *memAccountRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *memAccountRepo) UpdateSubscriptionPointer(ctx context.Context, tx repository.Tx, accountID, subscriptionID, planID, status string, endsAt *time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[accountID]
	if !ok {
		return domain.ErrNotFound
	}
	a.CurrentSubscriptionID = &subscriptionID
	a.PlanID = &planID
	a.SubscriptionStatus = status
	a.SubscriptionEndsAt = endsAt
	return nil
}

func (r *memAccountRepo) UpdateSubscriptionStatus(ctx context.Context, tx repository.Tx, accountID, status string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[accountID]
	if !ok {
		return domain.ErrNotFound
	}
	a.SubscriptionStatus = status
	return nil
}

// ---- subscriptions ----

type memSubRepo struct {
	s *memStore

	CreateFunc func(ctx context.Context, tx repository.Tx, sub *model.Subscription) error
}

var _ repository.SubscriptionRepository = (*memSubRepo)(nil)

func (r *memSubRepo) Create(ctx context.Context, tx repository.Tx, sub *model.Subscription) error {
	if r.CreateFunc != nil {
		return r.CreateFunc(ctx, tx, sub)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.subs {
		if existing.ProviderTxnID == sub.ProviderTxnID {
			return domain.ErrAlreadyExists
		}
	}
	cp := *sub
	r.s.subs[sub.ID] = &cp
	return nil
}

func (r *memSubRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sub, ok := r.s.subs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *sub
	return &cp, nil
}

func (r *memSubRepo) FindByTxnID(ctx context.Context, tx repository.Tx, txnID string) (*model.Subscription, error) {
	if sub := r.s.subByTxn(txnID); sub != nil {
		return sub, nil
	}
	return nil, domain.ErrNotFound
}

func (r *memSubRepo) FindPendingByTxnID(ctx context.Context, tx repository.Tx, txnID string) (*model.Subscription, error) {
	if sub := r.s.subByTxn(txnID); sub != nil && sub.IsPending() {
		return sub, nil
	}
	return nil, domain.ErrNotFound
}

func (r *memSubRepo) ListByAccount(ctx context.Context, tx repository.Tx, accountID string) ([]*model.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Subscription
	for _, sub := range r.s.subs {
		if sub.AccountID == accountID {
			cp := *sub
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memSubRepo) ListByStatus(ctx context.Context, tx repository.Tx, status model.SubscriptionStatus, limit int) ([]*model.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Subscription
	for _, sub := range r.s.subs {
		if sub.Status == status && len(out) < limit {
			cp := *sub
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memSubRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Subscription
	for _, sub := range r.s.subs {
		if sub.IsPending() && sub.CreatedAt.Before(olderThan) && len(out) < limit {
			cp := *sub
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memSubRepo) TransitionFromPending(ctx context.Context, tx repository.Tx, txnID string, to model.SubscriptionStatus, periodStart, periodEnd *time.Time, now time.Time) (*model.Subscription, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, sub := range r.s.subs {
		if sub.ProviderTxnID != txnID || !sub.IsPending() {
			continue
		}
		sub.Status = to
		sub.CurrentPeriodStart = periodStart
		sub.CurrentPeriodEnd = periodEnd
		sub.UpdatedAt = now
		cp := *sub
		return &cp, true, nil
	}
	return nil, false, nil
}

func (r *memSubRepo) Cancel(ctx context.Context, tx repository.Tx, id, reason string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sub, ok := r.s.subs[id]
	if !ok || !sub.Cancelable() {
		return false, nil
	}
	sub.Status = model.SubscriptionStatusCanceled
	sub.CanceledAt = &at
	sub.CancellationReason = reason
	return true, nil
}

// ---- invoices ----

type memInvoiceRepo struct{ s *memStore }

var _ repository.InvoiceRepository = (*memInvoiceRepo)(nil)

func (r *memInvoiceRepo) Create(ctx context.Context, tx repository.Tx, inv *model.Invoice) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.invoices {
		if existing.ProviderTxnID == inv.ProviderTxnID {
			return domain.ErrAlreadyExists
		}
	}
	cp := *inv
	r.s.invoices[inv.ID] = &cp
	return nil
}

func (r *memInvoiceRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Invoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.invoices[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (r *memInvoiceRepo) FindByTxnID(ctx context.Context, tx repository.Tx, txnID string) (*model.Invoice, error) {
	if invs := r.s.invoicesFor(txnID); len(invs) > 0 {
		return invs[0], nil
	}
	return nil, domain.ErrNotFound
}

func (r *memInvoiceRepo) ListByAccount(ctx context.Context, tx repository.Tx, accountID string, offset, limit int) ([]*model.Invoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []*model.Invoice
	for _, inv := range r.s.invoices {
		if inv.AccountID == accountID {
			cp := *inv
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Number < all[j].Number })
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *memInvoiceRepo) CountByAccount(ctx context.Context, tx repository.Tx, accountID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, inv := range r.s.invoices {
		if inv.AccountID == accountID {
			n++
		}
	}
	return n, nil
}

// ---- payments ----

type memPaymentRepo struct{ s *memStore }

var _ repository.PaymentRepository = (*memPaymentRepo)(nil)

func (r *memPaymentRepo) Create(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p.Status == model.PaymentStatusSucceeded {
		for _, existing := range r.s.payments {
			if existing.ProviderTxnID == p.ProviderTxnID && existing.Status == model.PaymentStatusSucceeded {
				return domain.ErrAlreadyExists
			}
		}
	}
	cp := *p
	r.s.payments = append(r.s.payments, &cp)
	return nil
}

func (r *memPaymentRepo) FindSucceededByTxnID(ctx context.Context, tx repository.Tx, txnID string) (*model.Payment, error) {
	if ps := r.s.paymentsFor(txnID, model.PaymentStatusSucceeded); len(ps) > 0 {
		return ps[0], nil
	}
	return nil, domain.ErrNotFound
}

func (r *memPaymentRepo) ListByTxnID(ctx context.Context, tx repository.Tx, txnID string) ([]*model.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Payment
	for _, p := range r.s.payments {
		if p.ProviderTxnID == txnID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memPaymentRepo) ListByInvoice(ctx context.Context, tx repository.Tx, invoiceID string) ([]*model.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Payment
	for _, p := range r.s.payments {
		if p.InvoiceID != nil && *p.InvoiceID == invoiceID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- payment methods ----

type memPaymentMethodRepo struct{ s *memStore }

var _ repository.PaymentMethodRepository = (*memPaymentMethodRepo)(nil)

func (r *memPaymentMethodRepo) Create(ctx context.Context, tx repository.Tx, pm *model.PaymentMethod) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *pm
	r.s.methods[pm.ID] = &cp
	return nil
}

func (r *memPaymentMethodRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PaymentMethod, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	pm, ok := r.s.methods[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *pm
	return &cp, nil
}

func (r *memPaymentMethodRepo) ListByAccount(ctx context.Context, tx repository.Tx, accountID string) ([]*model.PaymentMethod, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.PaymentMethod
	for _, pm := range r.s.methods {
		if pm.AccountID == accountID {
			cp := *pm
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memPaymentMethodRepo) ClearDefault(ctx context.Context, tx repository.Tx, accountID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, pm := range r.s.methods {
		if pm.AccountID == accountID {
			pm.IsDefault = false
		}
	}
	return nil
}

func (r *memPaymentMethodRepo) SetDefault(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	pm, ok := r.s.methods[id]
	if !ok {
		return false, nil
	}
	pm.IsDefault = true
	return true, nil
}

// =============================
// Adapters
// =============================

type MockGateway struct {
	mu     sync.Mutex
	Pushes []adapter.PushRequest

	PushFunc   func(ctx context.Context, req adapter.PushRequest) (*adapter.ProviderResponse, error)
	VerifyFunc func(ctx context.Context, txnID string) (*adapter.VerifyResult, error)
	RefundFunc func(ctx context.Context, txnID, reason string) (*adapter.RefundResult, error)
}

var _ adapter.PushGateway = (*MockGateway)(nil)

func (m *MockGateway) Name() string { return "mock" }

func (m *MockGateway) Push(ctx context.Context, req adapter.PushRequest) (*adapter.ProviderResponse, error) {
	m.mu.Lock()
	m.Pushes = append(m.Pushes, req)
	m.mu.Unlock()
	if m.PushFunc != nil {
		return m.PushFunc(ctx, req)
	}
	return &adapter.ProviderResponse{StatusCode: 200, Body: []byte(`{"status":"success"}`)}, nil
}

func (m *MockGateway) Verify(ctx context.Context, txnID string) (*adapter.VerifyResult, error) {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, txnID)
	}
	return &adapter.VerifyResult{Status: "pending"}, nil
}

func (m *MockGateway) Refund(ctx context.Context, txnID, reason string) (*adapter.RefundResult, error) {
	if m.RefundFunc != nil {
		return m.RefundFunc(ctx, txnID, reason)
	}
	return &adapter.RefundResult{OK: true}, nil
}

func jsonResponse(code int, body string) func(ctx context.Context, req adapter.PushRequest) (*adapter.ProviderResponse, error) {
	return func(ctx context.Context, req adapter.PushRequest) (*adapter.ProviderResponse, error) {
		return &adapter.ProviderResponse{StatusCode: code, Body: []byte(body)}, nil
	}
}

type MockLocker struct {
	mu       sync.Mutex
	Unlocked []string

	TryLockFunc func(ctx context.Context, key string, ttl time.Duration) (string, error)
}

func (m *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if m.TryLockFunc != nil {
		return m.TryLockFunc(ctx, key, ttl)
	}
	return "token", nil
}

func (m *MockLocker) Unlock(ctx context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Unlocked = append(m.Unlocked, key)
	return nil
}

type MockLimiter struct {
	AllowFunc func(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

func (m *MockLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if m.AllowFunc != nil {
		return m.AllowFunc(ctx, key, limit, window)
	}
	return true, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*model.SubscriptionEvent
}

func (p *recordingPublisher) Publish(ev *model.SubscriptionEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) Events() []*model.SubscriptionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*model.SubscriptionEvent(nil), p.events...)
}

type mapMessages map[string]string

func (m mapMessages) T(key string, args ...interface{}) string {
	if s, ok := m[key]; ok {
		return s
	}
	return key
}

// =============================
// Fixture
// =============================

type fixture struct {
	store    *memStore
	tm       *MockTxManager
	plans    *memPlanRepo
	accounts *memAccountRepo
	subs     *memSubRepo
	invoices *memInvoiceRepo
	payments *memPaymentRepo
	methods  *memPaymentMethodRepo
	gateway  *MockGateway
	pub      *recordingPublisher
	clock    *stepClock
}

// stepClock is a settable clock safe for concurrent readers.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *stepClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func newFixture() *fixture {
	s := newMemStore()
	f := &fixture{
		store:    s,
		tm:       &MockTxManager{},
		plans:    &memPlanRepo{s: s},
		accounts: &memAccountRepo{s: s},
		subs:     &memSubRepo{s: s},
		invoices: &memInvoiceRepo{s: s},
		payments: &memPaymentRepo{s: s},
		methods:  &memPaymentMethodRepo{s: s},
		gateway:  &MockGateway{},
		pub:      &recordingPublisher{},
		clock:    &stepClock{t: testNow},
	}
	_ = f.plans.Save(context.Background(), nil, proPlan())
	_ = f.accounts.Save(context.Background(), nil, &model.Account{ID: "A", Email: "a@example.com", Name: "A", SubscriptionStatus: model.AccountSubscriptionNone})
	return f
}

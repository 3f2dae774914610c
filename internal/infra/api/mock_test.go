package api_test

import (
	"context"
	"time"

	"socials-billing/internal/domain/model"
	"socials-billing/internal/usecase"
)

type mockInitiator struct {
	InitiateFunc func(ctx context.Context, req usecase.InitiateRequest) (*usecase.InitiationResult, error)
	last         usecase.InitiateRequest
}

func (m *mockInitiator) Initiate(ctx context.Context, req usecase.InitiateRequest) (*usecase.InitiationResult, error) {
	m.last = req
	return m.InitiateFunc(ctx, req)
}

type mockReconciler struct {
	ReconcileFunc func(ctx context.Context, payload map[string]any) (*usecase.ReconcileResult, error)
	PollFunc      func(ctx context.Context, txnID, accountID string) (*usecase.StatusView, error)
	VerifyFunc    func(ctx context.Context, txnID, accountID string) (*usecase.ReconcileResult, error)
	lastPayload   map[string]any
}

func (m *mockReconciler) Reconcile(ctx context.Context, payload map[string]any) (*usecase.ReconcileResult, error) {
	m.lastPayload = payload
	return m.ReconcileFunc(ctx, payload)
}
func (m *mockReconciler) PollStatus(ctx context.Context, txnID, accountID string) (*usecase.StatusView, error) {
	return m.PollFunc(ctx, txnID, accountID)
}
func (m *mockReconciler) VerifyAndReconcile(ctx context.Context, txnID, accountID string) (*usecase.ReconcileResult, error) {
	return m.VerifyFunc(ctx, txnID, accountID)
}

// mockLedger implements only the reads and writes the handlers call; the
// embedded interface panics on anything else.
type mockLedger struct {
	usecase.LedgerUseCase
	ListByAccountFunc func(ctx context.Context, accountID string) ([]*model.Subscription, error)
	CancelFunc        func(ctx context.Context, accountID, subID, reason string) (*model.Subscription, error)
	ListInvoicesFunc  func(ctx context.Context, accountID string, page int) (*usecase.InvoicePage, error)
	GetInvoiceFunc    func(ctx context.Context, accountID, invoiceID string) (*usecase.InvoiceDetail, error)
	ListByStatusFunc  func(ctx context.Context, status model.SubscriptionStatus, limit int) ([]*model.Subscription, error)
}

func (m *mockLedger) ListByAccount(ctx context.Context, accountID string) ([]*model.Subscription, error) {
	return m.ListByAccountFunc(ctx, accountID)
}
func (m *mockLedger) Cancel(ctx context.Context, accountID, subID, reason string) (*model.Subscription, error) {
	return m.CancelFunc(ctx, accountID, subID, reason)
}
func (m *mockLedger) ListInvoices(ctx context.Context, accountID string, page int) (*usecase.InvoicePage, error) {
	return m.ListInvoicesFunc(ctx, accountID, page)
}
func (m *mockLedger) GetInvoice(ctx context.Context, accountID, invoiceID string) (*usecase.InvoiceDetail, error) {
	return m.GetInvoiceFunc(ctx, accountID, invoiceID)
}
func (m *mockLedger) ListByStatus(ctx context.Context, status model.SubscriptionStatus, limit int) ([]*model.Subscription, error) {
	return m.ListByStatusFunc(ctx, status, limit)
}

type mockPlans struct {
	plans []*model.Plan
	err   error
}

func (m *mockPlans) List(ctx context.Context) ([]*model.Plan, error) { return m.plans, m.err }

type mockMethods struct {
	ListFunc       func(ctx context.Context, accountID string) ([]*model.PaymentMethod, error)
	AddFunc        func(ctx context.Context, accountID, phone string) (*model.PaymentMethod, error)
	SetDefaultFunc func(ctx context.Context, accountID, methodID string) error
}

func (m *mockMethods) List(ctx context.Context, accountID string) ([]*model.PaymentMethod, error) {
	return m.ListFunc(ctx, accountID)
}
func (m *mockMethods) Add(ctx context.Context, accountID, phone string) (*model.PaymentMethod, error) {
	return m.AddFunc(ctx, accountID, phone)
}
func (m *mockMethods) SetDefault(ctx context.Context, accountID, methodID string) error {
	return m.SetDefaultFunc(ctx, accountID, methodID)
}

type mockRefunds struct {
	RefundFunc func(ctx context.Context, txnID, reason string) (*model.Payment, error)
}

func (m *mockRefunds) Refund(ctx context.Context, txnID, reason string) (*model.Payment, error) {
	return m.RefundFunc(ctx, txnID, reason)
}

type mockLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (m *mockLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	m.keys = append(m.keys, key)
	return m.allow, m.err
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

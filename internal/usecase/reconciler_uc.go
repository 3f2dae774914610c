package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"socials-billing/internal/domain"
	"socials-billing/internal/domain/model"
	"socials-billing/internal/domain/ports/adapter"
	"socials-billing/internal/domain/ports/repository"
)

// Compile-time check
var _ CallbackReconciler = (*reconcilerUC)(nil)

type ReconcileOutcome string

const (
	OutcomeActivated         ReconcileOutcome = "activated"
	OutcomeFailed            ReconcileOutcome = "failed"
	OutcomeStillPending      ReconcileOutcome = "still_pending"
	OutcomeMissingIdentifier ReconcileOutcome = "missing_identifier"
	OutcomeNoMatchingPending ReconcileOutcome = "no_matching_pending"
)

// ReconcileResult reports what one delivery did. Processed=false outcomes carry
// a Reason (ErrUnprocessableCallback or ErrAmbiguousStatus) and are safe for the
// provider to retry.
type ReconcileResult struct {
	Processed      bool
	Outcome        ReconcileOutcome
	TransactionID  string
	SubscriptionID string
	Status         string
	Message        string
	Reason         error
	AmountMismatch bool
}

// StatusView is the client-facing poll answer.
type StatusView struct {
	Status      string
	PlanName    string
	UserMessage string
}

// EventPublisher hands events to the notifier. Publish must not block.
type EventPublisher interface {
	Publish(ev *model.SubscriptionEvent)
}

type CallbackReconciler interface {
	// Reconcile applies one provider callback. The error is reserved for
	// internal failures; every expected outcome is in the result.
	Reconcile(ctx context.Context, payload map[string]any) (*ReconcileResult, error)
	// PollStatus reads the persisted state of txnID for its owning account.
	PollStatus(ctx context.Context, txnID, accountID string) (*StatusView, error)
	// VerifyAndReconcile asks the provider for txnID's status and reconciles
	// the answer. An empty accountID skips the ownership check.
	VerifyAndReconcile(ctx context.Context, txnID, accountID string) (*ReconcileResult, error)
}

type reconcilerUC struct {
	ledger    LedgerUseCase
	plans     repository.PlanRepository
	gateway   adapter.PushGateway
	publisher EventPublisher
	clock     Clock
	msgs      Messages
	log       *zerolog.Logger
}

func NewCallbackReconciler(
	ledger LedgerUseCase,
	plans repository.PlanRepository,
	gateway adapter.PushGateway,
	publisher EventPublisher,
	clock Clock,
	msgs Messages,
	logger *zerolog.Logger,
) *reconcilerUC {
	if clock == nil {
		clock = SystemClock{}
	}
	if msgs == nil {
		msgs = StaticMessages{}
	}
	return &reconcilerUC{
		ledger:    ledger,
		plans:     plans,
		gateway:   gateway,
		publisher: publisher,
		clock:     clock,
		msgs:      msgs,
		log:       logger,
	}
}

func (r *reconcilerUC) Reconcile(ctx context.Context, payload map[string]any) (*ReconcileResult, error) {
	txnID, ok := LookupString(payload, TransactionIDAliases)
	if !ok {
		res := &ReconcileResult{
			Outcome: OutcomeMissingIdentifier,
			Message: r.msgs.T(MsgCallbackMissingID),
			Reason:  domain.ErrUnprocessableCallback,
		}
		r.logSkipped(res, payload)
		return res, nil
	}
	status, _ := LookupString(payload, StatusAliases)
	res := &ReconcileResult{TransactionID: txnID, Status: status}

	pending, err := r.ledger.FindPendingByTransaction(ctx, txnID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("find pending %s: %w", txnID, err)
		}
		r.noMatch(res, payload)
		return res, nil
	}
	res.SubscriptionID = pending.ID

	if amount, ok := LookupAmount(payload, AmountAliases); ok && amount != pending.AmountBilled {
		res.AmountMismatch = true
		if r.log != nil {
			r.log.Warn().Str("transaction_id", txnID).Int64("reported", amount).Int64("billed", pending.AmountBilled).
				Msg("callback amount differs from billed amount")
		}
	}

	switch ClassifyStatus(status) {
	case BucketSuccess:
		act, err := r.ledger.ActivatePending(ctx, txnID)
		if errors.Is(err, domain.ErrNoPendingSubscription) {
			r.noMatch(res, payload)
			return res, nil
		}
		if err != nil {
			return nil, fmt.Errorf("activate %s: %w", txnID, err)
		}
		res.Processed = true
		res.Outcome = OutcomeActivated
		res.SubscriptionID = act.Subscription.ID
		res.Message = r.msgs.T(MsgCallbackActivated)
		if r.log != nil {
			r.log.Info().Str("transaction_id", txnID).Str("subscription_id", act.Subscription.ID).
				Str("invoice", act.Invoice.Number).Msg("subscription activated")
		}
		r.publish(act.Subscription, payload)

	case BucketFailure:
		sub, err := r.ledger.FailPending(ctx, txnID)
		if errors.Is(err, domain.ErrNoPendingSubscription) {
			r.noMatch(res, payload)
			return res, nil
		}
		if err != nil {
			return nil, fmt.Errorf("fail %s: %w", txnID, err)
		}
		res.Processed = true
		res.Outcome = OutcomeFailed
		res.Message = r.msgs.T(MsgCallbackFailed)
		if r.log != nil {
			r.log.Info().Str("transaction_id", txnID).Str("status", status).Msg("subscription payment failed")
		}
		r.publish(sub, payload)

	default:
		res.Outcome = OutcomeStillPending
		res.Message = r.msgs.T(MsgCallbackStillWaiting, status)
		res.Reason = domain.ErrAmbiguousStatus
		r.logSkipped(res, payload)
	}
	return res, nil
}

func (r *reconcilerUC) PollStatus(ctx context.Context, txnID, accountID string) (*StatusView, error) {
	sub, err := r.ledger.FindByTransaction(ctx, txnID)
	if err != nil {
		return nil, err
	}
	if sub.AccountID != accountID {
		return nil, domain.ErrNotFound
	}

	view := &StatusView{PlanName: sub.PlanID}
	if plan, err := r.plans.FindByID(ctx, repository.NoTX, sub.PlanID); err == nil {
		view.PlanName = plan.Label()
	}

	switch sub.Status {
	case model.SubscriptionStatusActive:
		view.Status, view.UserMessage = "success", r.msgs.T(MsgStatusSuccess)
	case model.SubscriptionStatusPending:
		view.Status, view.UserMessage = "pending", r.msgs.T(MsgStatusPending)
	case model.SubscriptionStatusFailed:
		view.Status, view.UserMessage = "failed", r.msgs.T(MsgStatusFailed)
	case model.SubscriptionStatusCanceled:
		view.Status, view.UserMessage = "canceled", r.msgs.T(MsgStatusCanceled)
	default:
		view.Status, view.UserMessage = string(sub.Status), r.msgs.T(MsgStatusUnknown)
	}
	return view, nil
}

func (r *reconcilerUC) VerifyAndReconcile(ctx context.Context, txnID, accountID string) (*ReconcileResult, error) {
	if accountID != "" {
		sub, err := r.ledger.FindByTransaction(ctx, txnID)
		if err != nil {
			return nil, err
		}
		if sub.AccountID != accountID {
			return nil, domain.ErrNotFound
		}
	}
	vr, err := r.gateway.Verify(ctx, txnID)
	if err != nil {
		return nil, fmt.Errorf("%w: verify %s: %v", domain.ErrProviderUnavailable, txnID, err)
	}
	payload := map[string]any{
		"transaction_id": txnID,
		"status":         vr.Status,
	}
	if vr.Amount > 0 {
		payload["amount"] = MajorUnits(vr.Amount).String()
	}
	return r.Reconcile(ctx, payload)
}

func (r *reconcilerUC) noMatch(res *ReconcileResult, payload map[string]any) {
	res.Processed = false
	res.Outcome = OutcomeNoMatchingPending
	res.Message = r.msgs.T(MsgCallbackNoMatch)
	res.Reason = domain.ErrUnprocessableCallback
	r.logSkipped(res, payload)
}

func (r *reconcilerUC) logSkipped(res *ReconcileResult, payload map[string]any) {
	if r.log == nil {
		return
	}
	r.log.Info().Str("transaction_id", res.TransactionID).Str("outcome", string(res.Outcome)).
		Interface("payload", payload).Msg("callback not processed")
}

func (r *reconcilerUC) publish(sub *model.Subscription, payload map[string]any) {
	if r.publisher == nil {
		return
	}
	r.publisher.Publish(model.NewSubscriptionEvent(sub, payload, r.clock.Now()))
}

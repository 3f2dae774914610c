package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"socials-billing/internal/domain"
	"socials-billing/internal/domain/model"
	"socials-billing/internal/domain/ports/adapter"
	"socials-billing/internal/domain/ports/repository"
)

// Compile-time check
var _ PaymentInitiator = (*initiatorUC)(nil)

type InitiateRequest struct {
	AccountID       string
	PlanID          string
	Phone           string
	BillingInterval string
}

// InitiationResult is the typed outcome of a push attempt. Success=false with
// a Failure of ErrProviderUnavailable or ErrProviderRejected is an expected
// business result, not an error; the caller re-prompts the subscriber.
type InitiationResult struct {
	Success          bool
	TransactionID    string
	Amount           int64
	Currency         string
	USSDFallbackCode string
	Reference        string
	Message          string
	Failure          error
}

type InitiatorConfig struct {
	ShortCode       string
	USSDCode        string
	Currency        string
	ProviderTimeout time.Duration
	LockTTL         time.Duration
	RateLimit       int
	RateWindow      time.Duration
}

func (c *InitiatorConfig) withDefaults() {
	if c.ShortCode == "" {
		c.ShortCode = "36174"
	}
	if c.USSDCode == "" {
		c.USSDCode = "*151#"
	}
	if c.Currency == "" {
		c.Currency = "USD"
	}
	if c.ProviderTimeout <= 0 {
		c.ProviderTimeout = 30 * time.Second
	}
	if c.LockTTL <= 0 {
		c.LockTTL = c.ProviderTimeout + 5*time.Second
	}
	if c.RateWindow <= 0 {
		c.RateWindow = time.Minute
	}
}

// Locker serializes initiations for the same account and plan.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type PaymentInitiator interface {
	// Initiate returns an error only for local validation, configuration and
	// persistence failures; provider failures come back in the result.
	Initiate(ctx context.Context, req InitiateRequest) (*InitiationResult, error)
}

type initiatorUC struct {
	plans   repository.PlanRepository
	ledger  LedgerUseCase
	gateway adapter.PushGateway
	refs    *ReferenceGenerator
	clock   Clock
	msgs    Messages
	cfg     InitiatorConfig
	lock    Locker
	limiter RateLimiter
	log     *zerolog.Logger
}

type InitiatorOption func(*initiatorUC)

func WithLocker(l Locker) InitiatorOption           { return func(u *initiatorUC) { u.lock = l } }
func WithRateLimiter(r RateLimiter) InitiatorOption { return func(u *initiatorUC) { u.limiter = r } }
func WithMessages(m Messages) InitiatorOption       { return func(u *initiatorUC) { u.msgs = m } }

func NewPaymentInitiator(
	plans repository.PlanRepository,
	ledger LedgerUseCase,
	gateway adapter.PushGateway,
	clock Clock,
	cfg InitiatorConfig,
	logger *zerolog.Logger,
	opts ...InitiatorOption,
) *initiatorUC {
	if clock == nil {
		clock = SystemClock{}
	}
	cfg.withDefaults()
	u := &initiatorUC{
		plans:   plans,
		ledger:  ledger,
		gateway: gateway,
		refs:    NewReferenceGenerator(clock),
		clock:   clock,
		msgs:    StaticMessages{},
		cfg:     cfg,
		log:     logger,
	}
	for _, o := range opts {
		o(u)
	}
	return u
}

func (u *initiatorUC) Initiate(ctx context.Context, req InitiateRequest) (*InitiationResult, error) {
	if req.AccountID == "" || req.PlanID == "" {
		return nil, fmt.Errorf("%w: account and plan are required", domain.ErrInvalidArgument)
	}
	interval, err := model.ParseBillingInterval(req.BillingInterval)
	if err != nil {
		return nil, err
	}
	plan, err := u.plans.FindByID(ctx, repository.NoTX, req.PlanID)
	if err != nil {
		return nil, err
	}
	amount, err := plan.PriceFor(interval)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(req.Phone) == "" {
		return nil, fmt.Errorf("%w: phone number is required", domain.ErrInvalidPhone)
	}
	msisdn := NormalizePhone(req.Phone)
	if !ValidMSISDN(msisdn) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidPhone, req.Phone)
	}

	if u.limiter != nil && u.cfg.RateLimit > 0 {
		ok, err := u.limiter.Allow(ctx, "rate_limit:checkout:"+req.AccountID, u.cfg.RateLimit, u.cfg.RateWindow)
		if err != nil {
			u.warn(err, "rate limiter unavailable")
		} else if !ok {
			return nil, domain.ErrRateLimited
		}
	}

	if u.lock != nil {
		key := fmt.Sprintf("lock:checkout:%s:%s", req.AccountID, req.PlanID)
		token, err := u.lock.TryLock(ctx, key, u.cfg.LockTTL)
		switch {
		case errors.Is(err, domain.ErrLockHeld):
			return nil, domain.ErrInitiationInProgress
		case err != nil:
			u.warn(err, "initiation lock unavailable")
		default:
			defer func() { _ = u.lock.Unlock(context.WithoutCancel(ctx), key, token) }()
		}
	}

	ref := u.refs.Next(req.AccountID, plan.ID)
	pushCtx, cancel := context.WithTimeout(ctx, u.cfg.ProviderTimeout)
	resp, err := u.gateway.Push(pushCtx, adapter.PushRequest{
		MSISDN:    msisdn,
		ShortCode: u.cfg.ShortCode,
		Amount:    amount,
		Reference: ref,
	})
	cancel()
	if err != nil {
		if u.log != nil {
			u.log.Warn().Err(err).Str("reference", ref).Str("provider", u.gateway.Name()).Msg("push request failed")
		}
		return u.failed(amount, ref, domain.ErrProviderUnavailable, u.msgs.T(MsgPushFailed, u.cfg.USSDCode)), nil
	}

	fields := PushFields(resp)
	if !IsPushSuccess(resp) {
		msg, ok := LookupString(fields, ErrorMessageAliases)
		if !ok {
			msg = u.msgs.T(MsgPushFailed, u.cfg.USSDCode)
		}
		if u.log != nil {
			u.log.Warn().Int("status_code", resp.StatusCode).Str("reference", ref).Str("body", string(resp.Body)).Msg("push rejected by provider")
		}
		return u.failed(amount, ref, domain.ErrProviderRejected, msg), nil
	}

	txnID, ok := LookupString(fields, TransactionIDAliases)
	if !ok {
		txnID = ref
	}

	sub, err := model.NewPendingSubscription(uuid.NewString(), req.AccountID, plan, interval, amount, u.cfg.Currency, msisdn, txnID, ref, u.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := u.ledger.CreatePending(ctx, sub); err != nil {
		if u.log != nil {
			u.log.Error().Err(err).Str("transaction_id", txnID).Str("account_id", req.AccountID).Str("plan_id", plan.ID).
				Int64("amount", amount).Msg("push accepted but pending subscription not recorded")
		}
		return nil, fmt.Errorf("%w: txn %s: %v", domain.ErrPersistenceAfterExternalSuccess, txnID, err)
	}

	return &InitiationResult{
		Success:          true,
		TransactionID:    txnID,
		Amount:           amount,
		Currency:         u.cfg.Currency,
		USSDFallbackCode: u.cfg.USSDCode,
		Reference:        ref,
		Message:          u.msgs.T(MsgPushSent),
	}, nil
}

func (u *initiatorUC) failed(amount int64, ref string, cause error, msg string) *InitiationResult {
	return &InitiationResult{
		Success:          false,
		Amount:           amount,
		Currency:         u.cfg.Currency,
		USSDFallbackCode: u.cfg.USSDCode,
		Reference:        ref,
		Message:          msg,
		Failure:          cause,
	}
}

func (u *initiatorUC) warn(err error, msg string) {
	if u.log != nil {
		u.log.Warn().Err(err).Msg(msg)
	}
}

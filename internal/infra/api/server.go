package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"socials-billing/internal/domain/model"
	"socials-billing/internal/infra/logging"
	"socials-billing/internal/usecase"
)

// PlanLister is the read side of the plan catalogue.
type PlanLister interface {
	List(ctx context.Context) ([]*model.Plan, error)
}

type CallbackLimit struct {
	Limiter usecase.RateLimiter
	Limit   int
	Window  time.Duration
	Key     func(ip string) string
}

type Deps struct {
	Initiator  usecase.PaymentInitiator
	Reconciler usecase.CallbackReconciler
	Ledger     usecase.LedgerUseCase
	Plans      PlanLister
	Methods    usecase.PaymentMethodUseCase
	Refunds    usecase.RefundUseCase
	Auth       *AuthManager
	Callback   CallbackLimit
	Clock      usecase.Clock

	RequestTimeout time.Duration
	Logger         *zerolog.Logger
	Dev            bool // log phone numbers unredacted
}

// Server exposes checkout, callback, status and billing routes.
type Server struct {
	initiator  usecase.PaymentInitiator
	reconciler usecase.CallbackReconciler
	ledger     usecase.LedgerUseCase
	plans      PlanLister
	methods    usecase.PaymentMethodUseCase
	refunds    usecase.RefundUseCase
	auth       *AuthManager
	callback   CallbackLimit
	clock      usecase.Clock
	timeout    time.Duration
	log        *zerolog.Logger
	dev        bool
}

func NewServer(d Deps) *Server {
	if d.Clock == nil {
		d.Clock = usecase.SystemClock{}
	}
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 45 * time.Second
	}
	if d.Callback.Key == nil {
		d.Callback.Key = func(ip string) string { return "rate_limit:callback:" + ip }
	}
	logger := d.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Server{
		initiator:  d.Initiator,
		reconciler: d.Reconciler,
		ledger:     d.Ledger,
		plans:      d.Plans,
		methods:    d.Methods,
		refunds:    d.Refunds,
		auth:       d.Auth,
		callback:   d.Callback,
		clock:      d.Clock,
		timeout:    d.RequestTimeout,
		log:        logger,
		dev:        d.Dev,
	}
}

// Routes builds the router. api/openapi.yaml describes the same contract.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(), Recover(s.log), RequestLog(s.log), Metrics(), Timeout(s.timeout))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/plans", s.listPlans)
		r.With(CallbackRateLimit(s.callback.Limiter, s.callback.Limit, s.callback.Window, s.callback.Key, s.log)).
			Post("/ecocash/callback", s.ecocashCallback)

		r.Group(func(r chi.Router) {
			r.Use(s.auth.RequireAuth)

			r.Post("/ecocash/checkout", s.checkout)
			r.Get("/ecocash/status/{transactionId}", s.paymentStatus)
			r.Post("/ecocash/verify/{transactionId}", s.verifyPayment)

			r.Get("/subscriptions", s.listSubscriptions)
			r.Post("/subscriptions/{id}/cancel", s.cancelSubscription)

			r.Get("/invoices", s.listInvoices)
			r.Get("/invoices/{id}", s.getInvoice)

			r.Get("/payment-methods", s.listPaymentMethods)
			r.Post("/payment-methods", s.addPaymentMethod)
			r.Post("/payment-methods/{id}/default", s.setDefaultPaymentMethod)

			r.Route("/admin", func(r chi.Router) {
				r.Use(RequireRole(RoleAdmin))
				r.Get("/subscriptions", s.adminListSubscriptions)
				r.Post("/refunds", s.adminRefund)
			})
		})
	})
	return r
}

// fail logs server-side failures with request context, then writes the error.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, msg string) {
	if statusFor(err) >= http.StatusInternalServerError {
		l := s.logger(r)
		l.Error().Err(err).Msg(msg)
	}
	writeError(w, r, err)
}

func (s *Server) logger(r *http.Request) *zerolog.Logger {
	return logging.With(r.Context(), s.log)
}

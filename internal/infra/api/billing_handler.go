package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"socials-billing/internal/domain"
	"socials-billing/internal/domain/model"
	"socials-billing/internal/infra/metrics"
)

func (s *Server) listPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.plans.List(r.Context())
	if err != nil {
		s.fail(w, r, err, "list plans failed")
		return
	}
	items := make([]planResponse, 0, len(plans))
	for _, p := range plans {
		items = append(items, toPlan(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	acct, err := accountID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	subs, err := s.ledger.ListByAccount(r.Context(), acct)
	if err != nil {
		s.fail(w, r, err, "list subscriptions failed")
		return
	}
	now := s.clock.Now()
	items := make([]subscriptionResponse, 0, len(subs))
	for _, sub := range subs {
		items = append(items, toSubscription(sub, now))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) cancelSubscription(w http.ResponseWriter, r *http.Request) {
	acct, err := accountID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var id string
	if err := pathParam(r, "id", &id); err != nil {
		writeError(w, r, err)
		return
	}
	var req cancelRequest
	if err := decodeJSON(r, &req); err != nil && r.ContentLength != 0 {
		writeError(w, r, err)
		return
	}
	sub, err := s.ledger.Cancel(r.Context(), acct, id, strings.TrimSpace(req.Reason))
	if err != nil {
		s.fail(w, r, err, "cancel subscription failed")
		return
	}
	l := s.logger(r)
	l.Info().Str("subscription_id", sub.ID).Msg("subscription canceled")
	writeJSON(w, http.StatusOK, toSubscription(sub, s.clock.Now()))
}

func (s *Server) listInvoices(w http.ResponseWriter, r *http.Request) {
	acct, err := accountID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page := 1
	if err := queryParam(r, "page", &page); err != nil {
		writeError(w, r, err)
		return
	}
	if page < 1 {
		page = 1
	}
	res, err := s.ledger.ListInvoices(r.Context(), acct, page)
	if err != nil {
		s.fail(w, r, err, "list invoices failed")
		return
	}
	out := invoicePageResponse{
		Items:    make([]invoiceResponse, 0, len(res.Invoices)),
		Page:     res.Page,
		PageSize: res.PageSize,
		Total:    res.Total,
	}
	for _, inv := range res.Invoices {
		out.Items = append(out.Items, toInvoice(inv))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getInvoice(w http.ResponseWriter, r *http.Request) {
	acct, err := accountID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var id string
	if err := pathParam(r, "id", &id); err != nil {
		writeError(w, r, err)
		return
	}
	detail, err := s.ledger.GetInvoice(r.Context(), acct, id)
	if err != nil {
		s.fail(w, r, err, "get invoice failed")
		return
	}
	out := invoiceDetailResponse{
		invoiceResponse: toInvoice(detail.Invoice),
		Payments:        make([]paymentResponse, 0, len(detail.Payments)),
	}
	for _, p := range detail.Payments {
		out.Payments = append(out.Payments, toPayment(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listPaymentMethods(w http.ResponseWriter, r *http.Request) {
	acct, err := accountID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	methods, err := s.methods.List(r.Context(), acct)
	if err != nil {
		s.fail(w, r, err, "list payment methods failed")
		return
	}
	items := make([]paymentMethodResponse, 0, len(methods))
	for _, m := range methods {
		items = append(items, toPaymentMethod(m))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) addPaymentMethod(w http.ResponseWriter, r *http.Request) {
	acct, err := accountID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req paymentMethodRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	m, err := s.methods.Add(r.Context(), acct, req.PhoneNumber)
	if err != nil {
		s.fail(w, r, err, "add payment method failed")
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentMethod(m))
}

func (s *Server) setDefaultPaymentMethod(w http.ResponseWriter, r *http.Request) {
	acct, err := accountID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var id string
	if err := pathParam(r, "id", &id); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.methods.SetDefault(r.Context(), acct, id); err != nil {
		s.fail(w, r, err, "set default payment method failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// adminListSubscriptions lists subscriptions in one status across accounts,
// newest first. Support uses it to chase stuck pending payments.
func (s *Server) adminListSubscriptions(w http.ResponseWriter, r *http.Request) {
	raw := string(model.SubscriptionStatusPending)
	if err := queryParam(r, "status", &raw); err != nil {
		writeError(w, r, err)
		return
	}
	status, err := model.ParseSubscriptionStatus(raw)
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit := 50
	if err := queryParam(r, "limit", &limit); err != nil {
		writeError(w, r, err)
		return
	}
	if limit < 1 || limit > 500 {
		writeError(w, r, fmt.Errorf("%w: limit must be between 1 and 500", domain.ErrInvalidArgument))
		return
	}
	subs, err := s.ledger.ListByStatus(r.Context(), status, limit)
	if err != nil {
		s.fail(w, r, err, "list subscriptions by status failed")
		return
	}
	now := s.clock.Now()
	items := make([]subscriptionResponse, 0, len(subs))
	for _, sub := range subs {
		items = append(items, toSubscription(sub, now))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) adminRefund(w http.ResponseWriter, r *http.Request) {
	var req refundRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	txnID := strings.TrimSpace(req.TransactionID)
	if txnID == "" {
		writeError(w, r, domain.ErrInvalidArgument)
		return
	}
	p, err := s.refunds.Refund(r.Context(), txnID, strings.TrimSpace(req.Reason))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrProviderRejected):
			metrics.IncRefund("rejected")
		case errors.Is(err, domain.ErrPersistenceAfterExternalSuccess):
			metrics.IncRefund("persistence_failed")
			metrics.IncPersistenceAfterExternalSuccess()
		default:
			metrics.IncRefund("error")
		}
		s.fail(w, r, err, "refund failed")
		return
	}
	metrics.IncRefund("ok")
	writeJSON(w, http.StatusOK, toPayment(p))
}

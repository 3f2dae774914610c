package api

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"socials-billing/internal/domain"
	"socials-billing/internal/infra/logging"
	"socials-billing/internal/infra/metrics"
	"socials-billing/internal/usecase"
)

const msgRecordFailed = "Payment was sent but could not be recorded. Contact support before retrying."

func (s *Server) checkout(w http.ResponseWriter, r *http.Request) {
	acct, err := accountID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		metrics.IncInitiation("invalid")
		writeError(w, r, err)
		return
	}

	res, err := s.initiator.Initiate(r.Context(), usecase.InitiateRequest{
		AccountID:       acct,
		PlanID:          strings.TrimSpace(req.PlanID),
		Phone:           req.PhoneNumber,
		BillingInterval: req.BillingInterval,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRateLimited):
			metrics.IncInitiation("rate_limited")
			metrics.IncGuardRejection("rate_limit")
		case errors.Is(err, domain.ErrInitiationInProgress):
			metrics.IncInitiation("in_progress")
			metrics.IncGuardRejection("lock")
		case errors.Is(err, domain.ErrPersistenceAfterExternalSuccess):
			metrics.IncInitiation("persistence_failed")
			metrics.IncPersistenceAfterExternalSuccess()
			l := s.logger(r)
			l.Error().Err(err).Str("plan_id", req.PlanID).Str("phone", logging.Redact(req.PhoneNumber, s.dev)).
				Msg("checkout accepted by provider but not recorded")
			writeJSON(w, http.StatusInternalServerError, checkoutResponse{Success: false, Message: msgRecordFailed})
			return
		case statusFor(err) == http.StatusBadRequest, statusFor(err) == http.StatusNotFound:
			metrics.IncInitiation("invalid")
		default:
			metrics.IncInitiation("error")
		}
		s.fail(w, r, err, "checkout failed")
		return
	}

	if !res.Success {
		result := "provider_rejected"
		if errors.Is(res.Failure, domain.ErrProviderUnavailable) {
			result = "provider_unavailable"
		}
		metrics.IncInitiation(result)
		writeJSON(w, http.StatusUnprocessableEntity, checkoutResponse{
			Success:  false,
			Message:  res.Message,
			USSDCode: res.USSDFallbackCode,
		})
		return
	}

	metrics.IncInitiation("success")
	l := logging.With(logging.WithTxnID(r.Context(), res.TransactionID), s.log)
	l.Info().Str("plan_id", req.PlanID).Str("reference", res.Reference).Str("phone", logging.Redact(req.PhoneNumber, s.dev)).
		Msg("checkout push sent")
	writeJSON(w, http.StatusOK, toCheckout(res))
}

// ecocashCallback accepts JSON or form-encoded provider notifications.
// Processed deliveries get 200, unactionable ones 202, internal failures 500.
func (s *Server) ecocashCallback(w http.ResponseWriter, r *http.Request) {
	payload, err := callbackPayload(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, callbackResponse{Status: "error", Message: "malformed callback body"})
		return
	}

	start := time.Now()
	res, err := s.reconciler.Reconcile(r.Context(), payload)
	if err != nil {
		metrics.ObserveReconcile("webhook", "error", time.Since(start))
		l := s.logger(r)
		l.Error().Err(err).Msg("callback reconcile failed")
		writeJSON(w, http.StatusInternalServerError, callbackResponse{Status: "error", Message: "internal error"})
		return
	}
	metrics.ObserveReconcile("webhook", string(res.Outcome), time.Since(start))
	if res.AmountMismatch {
		metrics.IncAmountMismatch()
	}

	if !res.Processed {
		writeJSON(w, http.StatusAccepted, callbackResponse{Status: "pending", Message: res.Message})
		return
	}
	writeJSON(w, http.StatusOK, callbackResponse{Status: "success", Message: res.Message})
}

func callbackPayload(r *http.Request) (map[string]any, error) {
	payload := map[string]any{}
	if r.Body == nil {
		return payload, nil
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		return formPayload(r.PostForm), nil
	}
	dec := jsonDecoder(r)
	if err := dec.Decode(&payload); err != nil && !isEOF(err) {
		return nil, err
	}
	return payload, nil
}

func formPayload(v url.Values) map[string]any {
	out := make(map[string]any, len(v))
	for k := range v {
		out[k] = v.Get(k)
	}
	return out
}

func (s *Server) paymentStatus(w http.ResponseWriter, r *http.Request) {
	acct, err := accountID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var txnID string
	if err := pathParam(r, "transactionId", &txnID); err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.reconciler.PollStatus(r.Context(), txnID, acct)
	if err != nil {
		s.statusError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: view.Status, PlanName: view.PlanName, UserMessage: view.UserMessage})
}

// verifyPayment asks the provider directly, for clients whose callback is late.
func (s *Server) verifyPayment(w http.ResponseWriter, r *http.Request) {
	acct, err := accountID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var txnID string
	if err := pathParam(r, "transactionId", &txnID); err != nil {
		writeError(w, r, err)
		return
	}

	start := time.Now()
	res, err := s.reconciler.VerifyAndReconcile(r.Context(), txnID, acct)
	if err != nil {
		metrics.ObserveReconcile("verify", "error", time.Since(start))
		s.statusError(w, r, err)
		return
	}
	metrics.ObserveReconcile("verify", string(res.Outcome), time.Since(start))
	if res.AmountMismatch {
		metrics.IncAmountMismatch()
	}

	view, err := s.reconciler.PollStatus(r.Context(), txnID, acct)
	if err != nil {
		s.statusError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: view.Status, PlanName: view.PlanName, UserMessage: view.UserMessage})
}

func (s *Server) statusError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, statusResponse{Status: "not_found"})
		return
	}
	s.fail(w, r, err, "payment status lookup failed")
}

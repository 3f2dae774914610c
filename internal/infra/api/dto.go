package api

import (
	"encoding/json"
	"time"

	"socials-billing/internal/domain/model"
	"socials-billing/internal/usecase"
)

// money renders minor units as a JSON number in major units.
func money(minor int64) json.Number {
	return json.Number(usecase.MajorUnits(minor).StringFixed(2))
}

type planResponse struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	DisplayName  string         `json:"display_name"`
	Description  string         `json:"description,omitempty"`
	MonthlyPrice json.Number    `json:"monthly_price"`
	AnnualPrice  json.Number    `json:"annual_price"`
	TrialDays    int            `json:"trial_days"`
	Features     map[string]any `json:"features,omitempty"`
}

func toPlan(p *model.Plan) planResponse {
	return planResponse{
		ID:           p.ID,
		Name:         p.Name,
		DisplayName:  p.Label(),
		Description:  p.Description,
		MonthlyPrice: money(p.MonthlyPrice),
		AnnualPrice:  money(p.AnnualPrice),
		TrialDays:    p.TrialDays,
		Features:     p.Features,
	}
}

type checkoutRequest struct {
	PlanID          string `json:"plan_id"`
	BillingInterval string `json:"billing_interval"`
	PhoneNumber     string `json:"phone_number"`
}

type checkoutResponse struct {
	Success       bool        `json:"success"`
	TransactionID string      `json:"transaction_id,omitempty"`
	Amount        json.Number `json:"amount,omitempty"`
	Currency      string      `json:"currency,omitempty"`
	USSDCode      string      `json:"ussd_code,omitempty"`
	Reference     string      `json:"reference,omitempty"`
	Message       string      `json:"message"`
}

func toCheckout(res *usecase.InitiationResult) checkoutResponse {
	return checkoutResponse{
		Success:       res.Success,
		TransactionID: res.TransactionID,
		Amount:        money(res.Amount),
		Currency:      res.Currency,
		USSDCode:      res.USSDFallbackCode,
		Reference:     res.Reference,
		Message:       res.Message,
	}
}

type callbackResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type statusResponse struct {
	Status      string `json:"status"`
	PlanName    string `json:"plan_name,omitempty"`
	UserMessage string `json:"user_message,omitempty"`
}

type subscriptionResponse struct {
	ID                 string      `json:"id"`
	PlanID             string      `json:"plan_id"`
	Status             string      `json:"status"`
	BillingInterval    string      `json:"billing_interval"`
	Amount             json.Number `json:"amount"`
	Currency           string      `json:"currency"`
	TransactionID      string      `json:"transaction_id,omitempty"`
	CurrentPeriodStart *time.Time  `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time  `json:"current_period_end,omitempty"`
	DaysUntilRenewal   int         `json:"days_until_renewal"`
	CanceledAt         *time.Time  `json:"canceled_at,omitempty"`
	CancellationReason string      `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
}

func toSubscription(s *model.Subscription, now time.Time) subscriptionResponse {
	return subscriptionResponse{
		ID:                 s.ID,
		PlanID:             s.PlanID,
		Status:             string(s.Status),
		BillingInterval:    string(s.BillingInterval),
		Amount:             money(s.AmountBilled),
		Currency:           s.Currency,
		TransactionID:      s.ProviderTxnID,
		CurrentPeriodStart: s.CurrentPeriodStart,
		CurrentPeriodEnd:   s.CurrentPeriodEnd,
		DaysUntilRenewal:   s.DaysUntilRenewal(now),
		CanceledAt:         s.CanceledAt,
		CancellationReason: s.CancellationReason,
		CreatedAt:          s.CreatedAt,
	}
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

type invoiceResponse struct {
	ID              string           `json:"id"`
	Number          string           `json:"number"`
	SubscriptionID  string           `json:"subscription_id"`
	Status          string           `json:"status"`
	AmountDue       json.Number      `json:"amount_due"`
	AmountPaid      json.Number      `json:"amount_paid"`
	AmountRemaining json.Number      `json:"amount_remaining"`
	Currency        string           `json:"currency"`
	Lines           []model.LineItem `json:"lines"`
	IssuedAt        time.Time        `json:"issued_at"`
	PaidAt          *time.Time       `json:"paid_at,omitempty"`
	Description     string           `json:"description,omitempty"`
}

func toInvoice(inv *model.Invoice) invoiceResponse {
	return invoiceResponse{
		ID:              inv.ID,
		Number:          inv.Number,
		SubscriptionID:  inv.SubscriptionID,
		Status:          string(inv.Status),
		AmountDue:       money(inv.AmountDue),
		AmountPaid:      money(inv.AmountPaid),
		AmountRemaining: money(inv.AmountRemaining),
		Currency:        inv.Currency,
		Lines:           inv.Lines,
		IssuedAt:        inv.IssuedAt,
		PaidAt:          inv.PaidAt,
		Description:     inv.Description,
	}
}

type invoicePageResponse struct {
	Items    []invoiceResponse `json:"items"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	Total    int               `json:"total"`
}

type paymentResponse struct {
	ID            string      `json:"id"`
	TransactionID string      `json:"transaction_id"`
	Amount        json.Number `json:"amount"`
	Currency      string      `json:"currency"`
	Status        string      `json:"status"`
	Description   string      `json:"description,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}

func toPayment(p *model.Payment) paymentResponse {
	return paymentResponse{
		ID:            p.ID,
		TransactionID: p.ProviderTxnID,
		Amount:        money(p.Amount),
		Currency:      p.Currency,
		Status:        string(p.Status),
		Description:   p.Description,
		CreatedAt:     p.CreatedAt,
	}
}

type invoiceDetailResponse struct {
	invoiceResponse
	Payments []paymentResponse `json:"payments"`
}

type paymentMethodRequest struct {
	PhoneNumber string `json:"phone_number"`
}

type paymentMethodResponse struct {
	ID          string    `json:"id"`
	PhoneNumber string    `json:"phone_number"`
	IsDefault   bool      `json:"is_default"`
	CreatedAt   time.Time `json:"created_at"`
}

func toPaymentMethod(m *model.PaymentMethod) paymentMethodResponse {
	return paymentMethodResponse{ID: m.ID, PhoneNumber: m.PhoneNumber, IsDefault: m.IsDefault, CreatedAt: m.CreatedAt}
}

type refundRequest struct {
	TransactionID string `json:"transaction_id"`
	Reason        string `json:"reason"`
}

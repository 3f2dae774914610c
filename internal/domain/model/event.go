package model

import "time"

// SubscriptionEvent is what the notifier sinks receive after a transition.
type SubscriptionEvent struct {
	SubscriptionID  string          `json:"subscription_id"`
	AccountID       string          `json:"user_id"`
	PlanID          string          `json:"plan_id"`
	Status          string          `json:"status"`
	BillingInterval BillingInterval `json:"billing_interval"`
	Amount          int64           `json:"amount"`
	Currency        string          `json:"currency"`
	ProviderTxnID   string          `json:"transaction_id"`
	ProviderPayload map[string]any  `json:"ecocash_response,omitempty"`
	Timestamp       time.Time       `json:"timestamp"`
}

func NewSubscriptionEvent(sub *Subscription, payload map[string]any, at time.Time) *SubscriptionEvent {
	return &SubscriptionEvent{
		SubscriptionID:  sub.ID,
		AccountID:       sub.AccountID,
		PlanID:          sub.PlanID,
		Status:          string(sub.Status),
		BillingInterval: sub.BillingInterval,
		Amount:          sub.AmountBilled,
		Currency:        sub.Currency,
		ProviderTxnID:   sub.ProviderTxnID,
		ProviderPayload: payload,
		Timestamp:       at.UTC(),
	}
}

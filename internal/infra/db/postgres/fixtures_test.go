//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"socials-billing/internal/domain/model"
)

// seedAccountAndPlan stores account "acct-<suffix>" and plan "pro" (2900/29000).
func seedAccountAndPlan(t *testing.T, suffix string) (*model.Account, *model.Plan) {
	t.Helper()
	ctx := context.Background()
	plan, err := model.NewPlan("pro", "pro", "Pro", 2900, 29000)
	if err != nil {
		t.Fatalf("new plan: %v", err)
	}
	plan.DisplayOrder = 2
	plan.Features = map[string]any{"social_accounts": float64(10)}
	if err := NewPostgresPlanRepo(testPool).Save(ctx, nil, plan); err != nil {
		t.Fatalf("save plan: %v", err)
	}
	acct, err := model.NewAccount("acct-"+suffix, suffix+"@example.com", "Account "+suffix)
	if err != nil {
		t.Fatalf("new account: %v", err)
	}
	if err := NewAccountRepo(testPool).Save(ctx, nil, acct); err != nil {
		t.Fatalf("save account: %v", err)
	}
	return acct, plan
}

func newPending(t *testing.T, acct *model.Account, plan *model.Plan, txnID string, createdAt time.Time) *model.Subscription {
	t.Helper()
	sub, err := model.NewPendingSubscription(uuid.NewString(), acct.ID, plan, model.BillingMonthly, 2900, "USD",
		"263771234567", txnID, txnID, createdAt)
	if err != nil {
		t.Fatalf("new pending: %v", err)
	}
	return sub
}

package ecocash

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"socials-billing/internal/domain/ports/adapter"
)

var _ adapter.PushGateway = (*NoopGateway)(nil)

// NoopGateway accepts every push and remembers it, for local runs without a
// provider. Verify reports success for known transactions.
type NoopGateway struct {
	mu     sync.Mutex
	seq    int64
	pushes map[string]int64 // transaction id -> amount
}

func NewNoopGateway() *NoopGateway {
	return &NoopGateway{pushes: make(map[string]int64)}
}

func (g *NoopGateway) Name() string { return "noop" }

func (g *NoopGateway) Push(ctx context.Context, req adapter.PushRequest) (*adapter.ProviderResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	txn := req.Reference
	if txn == "" {
		txn = fmt.Sprintf("noop-%d", g.seq)
	}
	g.pushes[txn] = req.Amount
	body, _ := json.Marshal(map[string]any{"status": "success", "transactionId": txn})
	return &adapter.ProviderResponse{StatusCode: 200, Body: body}, nil
}

func (g *NoopGateway) Verify(ctx context.Context, transactionID string) (*adapter.VerifyResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	amount, ok := g.pushes[transactionID]
	if !ok {
		return &adapter.VerifyResult{Status: "not_found", Timestamp: time.Now()}, nil
	}
	return &adapter.VerifyResult{Status: "success", Amount: amount, Timestamp: time.Now()}, nil
}

func (g *NoopGateway) Refund(ctx context.Context, transactionID, reason string) (*adapter.RefundResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.pushes[transactionID]; !ok {
		return &adapter.RefundResult{OK: false, Message: "unknown transaction"}, nil
	}
	return &adapter.RefundResult{OK: true, Message: "refunded"}, nil
}

package adapter

import (
	"context"
	"time"
)

// PushRequest asks the provider to prompt the subscriber's handset.
// Amount is in minor units; adapters convert to the provider's wire format.
type PushRequest struct {
	MSISDN    string
	ShortCode string
	Amount    int64
	Reference string
}

// ProviderResponse is the raw push response. Its shape is not contractually
// stable, so interpretation belongs to the caller.
type ProviderResponse struct {
	StatusCode int
	Body       []byte
}

// VerifyResult is the provider's view of a transaction.
type VerifyResult struct {
	Status    string
	Amount    int64 // minor units
	Timestamp time.Time
	Raw       map[string]any
}

type RefundResult struct {
	OK      bool
	Message string
	Raw     map[string]any
}

// PushGateway is the hex port for the mobile-money provider.
type PushGateway interface {
	Name() string
	// Push sends the USSD push. A transport error or timeout is returned as err;
	// any HTTP response, 2xx or not, is returned as *ProviderResponse.
	Push(ctx context.Context, req PushRequest) (*ProviderResponse, error)
	// Verify asks the provider for the current status of a transaction.
	Verify(ctx context.Context, transactionID string) (*VerifyResult, error)
	// Refund requests reversal of a settled transaction.
	Refund(ctx context.Context, transactionID, reason string) (*RefundResult, error)
}

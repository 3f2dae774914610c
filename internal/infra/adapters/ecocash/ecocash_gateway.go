// File: internal/infra/adapters/ecocash/ecocash_gateway.go
package ecocash

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"socials-billing/internal/config"
	"socials-billing/internal/domain/ports/adapter"
	"socials-billing/internal/infra/metrics"
)

var _ adapter.PushGateway = (*Gateway)(nil)

const maxBody = 1 << 20

// Gateway talks to the EcoCash push API. Push returns whatever the provider
// answers; Verify and Refund decode the provider's JSON.
type Gateway struct {
	apiURL  string
	client  *http.Client
	limiter *rate.Limiter
}

func NewGateway(cfg config.EcoCashConfig) (*Gateway, error) {
	u, err := url.Parse(cfg.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid ecocash api url %q", cfg.APIURL)
	}
	base := cfg.APIURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	g := &Gateway{
		apiURL: base,
		client: &http.Client{Timeout: timeout},
	}
	if cfg.RPS > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}
	return g, nil
}

func (g *Gateway) Name() string { return "ecocash" }

// majorUnits renders minor units as a JSON number with two decimals.
func majorUnits(minor int64) json.Number {
	return json.Number(decimal.New(minor, -2).StringFixed(2))
}

func (g *Gateway) Push(ctx context.Context, req adapter.PushRequest) (*adapter.ProviderResponse, error) {
	payload := map[string]any{
		"msisdn":     req.MSISDN,
		"short_code": req.ShortCode,
		"amount":     majorUnits(req.Amount),
	}
	if req.Reference != "" {
		payload["reference"] = req.Reference
	}
	start := time.Now()
	code, body, err := g.post(ctx, g.apiURL, payload)
	observe("push", code, err, start)
	if err != nil {
		return nil, err
	}
	return &adapter.ProviderResponse{StatusCode: code, Body: body}, nil
}

func (g *Gateway) Verify(ctx context.Context, transactionID string) (*adapter.VerifyResult, error) {
	start := time.Now()
	code, body, err := g.post(ctx, g.apiURL+"verify/", map[string]any{"transaction_id": transactionID})
	observe("verify", code, err, start)
	if err != nil {
		return nil, err
	}
	if code < 200 || code > 299 {
		return nil, fmt.Errorf("ecocash verify: http %d", code)
	}
	raw, err := decode(body)
	if err != nil {
		return nil, fmt.Errorf("ecocash verify: %w", err)
	}
	out := &adapter.VerifyResult{Raw: raw}
	if s, ok := raw["status"].(string); ok {
		out.Status = s
	}
	if amt, ok := parseAmount(raw["amount"]); ok {
		out.Amount = amt
	}
	if ts, ok := raw["timestamp"].(string); ok {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			out.Timestamp = t
		}
	}
	return out, nil
}

func (g *Gateway) Refund(ctx context.Context, transactionID, reason string) (*adapter.RefundResult, error) {
	start := time.Now()
	code, body, err := g.post(ctx, g.apiURL+"refund/", map[string]any{
		"transaction_id": transactionID,
		"reason":         reason,
	})
	observe("refund", code, err, start)
	if err != nil {
		return nil, err
	}
	raw, err := decode(body)
	if err != nil {
		return nil, fmt.Errorf("ecocash refund: http %d: %w", code, err)
	}
	out := &adapter.RefundResult{Raw: raw}
	status, _ := raw["status"].(string)
	out.OK = code >= 200 && code <= 299 && strings.EqualFold(status, "success")
	if msg, ok := raw["message"].(string); ok {
		out.Message = msg
	}
	return out, nil
}

func (g *Gateway) post(ctx context.Context, endpoint string, payload any) (int, []byte, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return 0, nil, fmt.Errorf("ecocash rate limit: %w", err)
		}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	resp, err := g.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read ecocash response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func decode(body []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, errors.New("response is not a JSON object")
	}
	return out, nil
}

// parseAmount reads a major-unit amount (number or numeric string) as minor units.
func parseAmount(v any) (int64, bool) {
	var d decimal.Decimal
	var err error
	switch x := v.(type) {
	case json.Number:
		d, err = decimal.NewFromString(x.String())
	case string:
		d, err = decimal.NewFromString(strings.TrimSpace(x))
	case float64:
		d = decimal.NewFromFloat(x)
	default:
		return 0, false
	}
	if err != nil {
		return 0, false
	}
	return d.Shift(2).Round(0).IntPart(), true
}

func observe(op string, code int, err error, start time.Time) {
	result := "ok"
	switch {
	case err != nil:
		result = "transport_error"
	case code < 200 || code > 299:
		result = fmt.Sprintf("http_%d", code)
	}
	metrics.ObserveProviderCall(op, result, time.Since(start))
}

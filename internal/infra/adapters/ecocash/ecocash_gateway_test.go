package ecocash

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socials-billing/internal/config"
	"socials-billing/internal/domain/ports/adapter"
)

func newTestGateway(t *testing.T, h http.HandlerFunc) *Gateway {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	g, err := NewGateway(config.EcoCashConfig{APIURL: srv.URL + "/api/push/", Timeout: 2 * time.Second})
	require.NoError(t, err)
	return g
}

func TestNewGateway_InvalidURL(t *testing.T) {
	_, err := NewGateway(config.EcoCashConfig{APIURL: "not a url"})
	assert.Error(t, err)
}

func TestGateway_Push(t *testing.T) {
	var got map[string]json.RawMessage
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/push/", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		b, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(b, &got))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"success","transactionId":"TXN-1"}`))
	})

	resp, err := g.Push(context.Background(), adapter.PushRequest{
		MSISDN: "263771234567", ShortCode: "36174", Amount: 2900, Reference: "SOCIALS-A-pro-20250101120000",
	})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.JSONEq(t, `{"status":"success","transactionId":"TXN-1"}`, string(resp.Body))

	assert.Equal(t, `"263771234567"`, string(got["msisdn"]))
	assert.Equal(t, `"36174"`, string(got["short_code"]))
	assert.Equal(t, `29.00`, string(got["amount"]), "amount must be a JSON number in major units")
}

func TestGateway_PushNon2xxIsNotAnError(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":"failed","message":"invalid msisdn"}`))
	})
	resp, err := g.Push(context.Background(), adapter.PushRequest{MSISDN: "263771234567", Amount: 100})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGateway_PushTimeout(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := g.Push(ctx, adapter.PushRequest{MSISDN: "263771234567", Amount: 100})
	assert.Error(t, err)
}

func TestGateway_Verify(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/push/verify/", r.URL.Path)
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, "TXN-1", body["transaction_id"])
		_, _ = w.Write([]byte(`{"status":"completed","amount":"29.00","timestamp":"2025-01-01T12:00:00Z"}`))
	})
	vr, err := g.Verify(context.Background(), "TXN-1")
	require.NoError(t, err)
	assert.Equal(t, "completed", vr.Status)
	assert.Equal(t, int64(2900), vr.Amount)
	assert.Equal(t, time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC), vr.Timestamp.UTC())
}

func TestGateway_VerifyErrors(t *testing.T) {
	t.Run("http error", func(t *testing.T) {
		g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
		_, err := g.Verify(context.Background(), "TXN-1")
		assert.Error(t, err)
	})
	t.Run("non json", func(t *testing.T) {
		g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("OK"))
		})
		_, err := g.Verify(context.Background(), "TXN-1")
		assert.Error(t, err)
	})
}

func TestGateway_Refund(t *testing.T) {
	tests := []struct {
		name   string
		code   int
		body   string
		wantOK bool
	}{
		{"success", 200, `{"status":"success","message":"done"}`, true},
		{"declined", 200, `{"status":"failed","message":"window closed"}`, false},
		{"server error", 500, `{"status":"success"}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/push/refund/", r.URL.Path)
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(tt.body))
			})
			res, err := g.Refund(context.Background(), "TXN-1", "duplicate")
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, res.OK)
		})
	}
}

func TestGateway_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success"}`))
	}))
	defer srv.Close()
	g, err := NewGateway(config.EcoCashConfig{APIURL: srv.URL + "/", RPS: 0.001, Burst: 1})
	require.NoError(t, err)

	_, err = g.Push(context.Background(), adapter.PushRequest{Amount: 1})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = g.Push(ctx, adapter.PushRequest{Amount: 1})
	assert.ErrorContains(t, err, "rate limit")
}

func TestParseAmount(t *testing.T) {
	cases := map[any]int64{
		json.Number("29"):    2900,
		json.Number("29.5"):  2950,
		"29.00":              2900,
		float64(0.1):         10,
		json.Number("0.005"): 1,
	}
	for in, want := range cases {
		got, ok := parseAmount(in)
		assert.True(t, ok, "%v", in)
		assert.Equal(t, want, got, "%v", in)
	}
	_, ok := parseAmount(true)
	assert.False(t, ok)
}

func TestNoopGateway(t *testing.T) {
	ctx := context.Background()
	g := NewNoopGateway()
	resp, err := g.Push(ctx, adapter.PushRequest{Amount: 2900, Reference: "REF-1"})
	require.NoError(t, err)
	assert.Contains(t, string(resp.Body), "REF-1")

	vr, err := g.Verify(ctx, "REF-1")
	require.NoError(t, err)
	assert.Equal(t, "success", vr.Status)
	assert.Equal(t, int64(2900), vr.Amount)

	rr, err := g.Refund(ctx, "unknown", "x")
	require.NoError(t, err)
	assert.False(t, rr.OK)
}

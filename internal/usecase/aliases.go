package usecase

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"socials-billing/internal/domain/ports/adapter"
)

// Provider field spellings, in priority order. The first key present with a
// non-empty value wins. To accept a new spelling, add it here.
var (
	TransactionIDAliases = []string{"transactionId", "transaction_id", "ref", "id"}
	StatusAliases        = []string{"status", "Status", "state"}
	AmountAliases        = []string{"amount"}

	// push responses carry their verdict in one of these
	PushStatusAliases   = []string{"status", "Status", "message"}
	ErrorMessageAliases = []string{"message", "error"}
)

// Status vocabularies. This is an open set: the provider can introduce new
// strings, and anything matching neither list is treated as still pending.
var (
	successMarkers = []string{"success", "completed"}
	failureMarkers = []string{"fail", "declined", "error", "unsuccessful"}
)

type StatusBucket string

const (
	BucketSuccess StatusBucket = "success"
	BucketFailure StatusBucket = "failure"
	BucketPending StatusBucket = "pending"
)

// ClassifyStatus buckets a provider status by case-insensitive substring match.
// Failure markers are checked first so "unsuccessful" never activates.
func ClassifyStatus(status string) StatusBucket {
	s := strings.ToLower(strings.TrimSpace(status))
	if s == "" {
		return BucketPending
	}
	for _, m := range failureMarkers {
		if strings.Contains(s, m) {
			return BucketFailure
		}
	}
	for _, m := range successMarkers {
		if strings.Contains(s, m) {
			return BucketSuccess
		}
	}
	return BucketPending
}

// LookupString returns the first alias present in m with a non-empty scalar value.
func LookupString(m map[string]any, aliases []string) (string, bool) {
	for _, k := range aliases {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		if s := scalarString(v); s != "" {
			return s, true
		}
	}
	return "", false
}

// LookupAmount returns the first alias parsed as major units and converted to minor units.
func LookupAmount(m map[string]any, aliases []string) (int64, bool) {
	for _, k := range aliases {
		if v, ok := m[k]; ok && v != nil {
			if minor, ok := ParseMinorUnits(v); ok {
				return minor, true
			}
		}
	}
	return 0, false
}

// ParseMinorUnits converts a provider amount (29, 29.5, "29.00") to cents.
func ParseMinorUnits(v any) (int64, bool) {
	var (
		d   decimal.Decimal
		err error
	)
	switch x := v.(type) {
	case json.Number:
		d, err = decimal.NewFromString(x.String())
	case float64:
		d = decimal.NewFromFloat(x)
	case int:
		d = decimal.NewFromInt(int64(x))
	case int64:
		d = decimal.NewFromInt(x)
	case string:
		d, err = decimal.NewFromString(strings.TrimSpace(x))
	default:
		return 0, false
	}
	if err != nil {
		return 0, false
	}
	return d.Shift(2).Round(0).IntPart(), true
}

// MajorUnits renders minor units as a decimal in major units (2900 -> 29).
func MajorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

func scalarString(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	}
	return ""
}

// IsPushSuccess applies the initiation heuristic: a 2xx response whose status
// field mentions success, or whose flattened text does.
func IsPushSuccess(resp *adapter.ProviderResponse) bool {
	if resp == nil || resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false
	}
	body, ok := decodeBody(resp.Body)
	if !ok {
		return mentionsSuccess(string(resp.Body))
	}
	if m, ok := body.(map[string]any); ok {
		if s, ok := LookupString(m, PushStatusAliases); ok && strings.Contains(strings.ToLower(s), "success") {
			return true
		}
	}
	return mentionsSuccess(flatten(body))
}

// PushFields returns the response body as a map, or nil when it is not a JSON object.
func PushFields(resp *adapter.ProviderResponse) map[string]any {
	if resp == nil {
		return nil
	}
	body, ok := decodeBody(resp.Body)
	if !ok {
		return nil
	}
	m, _ := body.(map[string]any)
	return m
}

func mentionsSuccess(s string) bool {
	s = strings.ToLower(s)
	return strings.Contains(s, "success") || strings.Contains(s, "successfully")
}

func decodeBody(b []byte) (any, bool) {
	dec := json.NewDecoder(strings.NewReader(string(b)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	return v, true
}

// flatten joins every value of a decoded JSON document, nested ones included.
func flatten(v any) string {
	switch x := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, flatten(x[k]))
		}
		return strings.Join(parts, " ")
	case []any:
		parts := make([]string, 0, len(x))
		for _, e := range x {
			parts = append(parts, flatten(e))
		}
		return strings.Join(parts, " ")
	case nil:
		return ""
	default:
		if s := scalarString(x); s != "" {
			return s
		}
		return fmt.Sprint(x)
	}
}

package usecase

import "fmt"

// Messages renders user-facing strings. i18n.Translator satisfies it.
type Messages interface {
	T(key string, args ...interface{}) string
}

const (
	MsgStatusSuccess        = "status.success"
	MsgStatusPending        = "status.pending"
	MsgStatusFailed         = "status.failed"
	MsgStatusCanceled       = "status.canceled"
	MsgStatusUnknown        = "status.unknown"
	MsgPushSent             = "push.sent"
	MsgPushFailed           = "push.failed"
	MsgCallbackActivated    = "callback.activated"
	MsgCallbackFailed       = "callback.payment_failed"
	MsgCallbackMissingID    = "callback.missing_id"
	MsgCallbackNoMatch      = "callback.no_match"
	MsgCallbackStillWaiting = "callback.status_pending"
)

var defaultMessages = map[string]string{
	MsgStatusSuccess:        "Payment successful! Your subscription is now active.",
	MsgStatusPending:        "Waiting for payment confirmation...",
	MsgStatusFailed:         "Payment failed. Please try again.",
	MsgStatusCanceled:       "Subscription was canceled.",
	MsgStatusUnknown:        "Unknown status",
	MsgPushSent:             "USSD push sent to your phone. Please confirm the payment.",
	MsgPushFailed:           "Could not reach EcoCash. Dial %s to pay manually.",
	MsgCallbackActivated:    "Subscription activated",
	MsgCallbackFailed:       "Payment failed",
	MsgCallbackMissingID:    "Missing transaction ID",
	MsgCallbackNoMatch:      "no matching pending subscription",
	MsgCallbackStillWaiting: "Transaction status: %s",
}

// StaticMessages serves the built-in English strings.
type StaticMessages struct{}

func (StaticMessages) T(key string, args ...interface{}) string {
	s, ok := defaultMessages[key]
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(s, args...)
	}
	return s
}

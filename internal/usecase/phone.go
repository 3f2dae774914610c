package usecase

import "strings"

const (
	CountryCode = "263"
	trunkPrefix = "0"
	msisdnLen   = 12
)

// NormalizePhone canonicalizes a subscriber number to 263XXXXXXXXX. It never
// fails: malformed input comes back prefixed and is rejected by ValidMSISDN.
//
//	0777123456    -> 263777123456
//	+263777123456 -> 263777123456
//	263777123456  -> 263777123456
func NormalizePhone(raw string) string {
	phone := strings.TrimSpace(raw)
	phone = strings.TrimPrefix(phone, "+")
	if strings.HasPrefix(phone, trunkPrefix) {
		phone = CountryCode + phone[len(trunkPrefix):]
	}
	if !strings.HasPrefix(phone, CountryCode) {
		phone = CountryCode + phone
	}
	return phone
}

// ValidMSISDN reports whether a normalized number can be sent to the provider.
func ValidMSISDN(s string) bool {
	if len(s) != msisdnLen || !strings.HasPrefix(s, CountryCode) {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

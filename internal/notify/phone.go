package notify

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const defaultPhoneRegion = "IN"

// toE164 formats a phone number to E.164. ok is false when the number cannot
// be parsed or is not a valid number for its region.
func toE164(input, region string) (string, bool) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", false
	}
	if region == "" {
		region = defaultPhoneRegion
	}

	number, err := phonenumbers.Parse(trimmed, region)
	if err != nil {
		return "", false
	}
	if !phonenumbers.IsValidNumber(number) {
		return "", false
	}
	return phonenumbers.Format(number, phonenumbers.E164), true
}

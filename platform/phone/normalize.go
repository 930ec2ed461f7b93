// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used when the caller has no configured region.
const DefaultRegion = "US"

// NormalizeE164In formats a phone number to E.164, parsing national numbers
// against region. If parsing fails, it returns the trimmed input.
func NormalizeE164In(input, region string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := parseValid(trimmed, region)
	if err != nil {
		return trimmed
	}
	return phonenumbers.Format(number, phonenumbers.E164)
}

// WhatsAppJID converts a number to the gateway's chat id (digits only, no plus).
func WhatsAppJID(input, region string) (string, bool) {
	number, err := parseValid(strings.TrimSpace(input), region)
	if err != nil {
		return "", false
	}
	return strings.TrimPrefix(phonenumbers.Format(number, phonenumbers.E164), "+"), true
}

func parseValid(input, region string) (*phonenumbers.PhoneNumber, error) {
	if region == "" {
		region = DefaultRegion
	}
	number, err := phonenumbers.Parse(input, region)
	if err != nil {
		return nil, err
	}
	if !phonenumbers.IsValidNumber(number) {
		return nil, phonenumbers.ErrNotANumber
	}
	return number, nil
}

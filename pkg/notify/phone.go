package notify

import (
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// NormalizePhone converts a phone number to E.164. Numbers written without an
// international prefix are read as national numbers of region, an ISO 3166-1
// alpha-2 code such as "BR".
func NormalizePhone(raw, region string) (string, error) {
	number, err := phonenumbers.Parse(raw, strings.ToUpper(strings.TrimSpace(region)))
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrInvalidPhone, raw, err)
	}

	if !phonenumbers.IsPossibleNumber(number) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPhone, raw)
	}

	return phonenumbers.Format(number, phonenumbers.E164), nil
}

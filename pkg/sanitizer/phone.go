package sanitizer

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is tried first for numbers written without a country code.
const DefaultRegion = "VN"

var supportedRegions = []string{DefaultRegion}

// NormalizePhone formats phone as E.164. Numbers that do not parse as a valid
// number of a supported region are returned trimmed and otherwise unchanged.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)

	if phone == "" {
		return ""
	}

	for _, region := range supportedRegions {
		parsedNumber, err := phonenumbers.Parse(phone, region)
		if err == nil && phonenumbers.IsValidNumber(parsedNumber) {
			return phonenumbers.Format(parsedNumber, phonenumbers.E164)
		}
	}
	return phone
}

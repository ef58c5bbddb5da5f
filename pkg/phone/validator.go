package phone

import (
	"fmt"

	"github.com/nyaruka/phonenumbers"
)

// ValidationResult contains the result of phone number validation.
type ValidationResult struct {
	IsValid        bool   `json:"is_valid"`
	E164Format     string `json:"e164_format"`
	NationalFormat string `json:"national_format"`
	CountryCode    string `json:"country_code"`
}

// Validate parses a phone number and reports whether it is usable as an
// SMS destination. countryCode defaults to US when empty.
func Validate(phone, countryCode string) (*ValidationResult, error) {
	if phone == "" {
		return nil, fmt.Errorf("phone number cannot be empty")
	}

	if countryCode == "" {
		countryCode = "US"
	}

	parsed, err := phonenumbers.Parse(phone, countryCode)
	if err != nil {
		return nil, fmt.Errorf("failed to parse phone number: %w", err)
	}

	return &ValidationResult{
		IsValid:        phonenumbers.IsValidNumber(parsed),
		E164Format:     phonenumbers.Format(parsed, phonenumbers.E164),
		NationalFormat: phonenumbers.Format(parsed, phonenumbers.NATIONAL),
		CountryCode:    phonenumbers.GetRegionCodeForNumber(parsed),
	}, nil
}

// ToE164 normalizes a phone number to E.164, the format the SMS provider
// requires. Returns an error when the number is not valid.
func ToE164(phone, countryCode string) (string, error) {
	res, err := Validate(phone, countryCode)
	if err != nil {
		return "", err
	}
	if !res.IsValid {
		return "", fmt.Errorf("invalid phone number: %s", phone)
	}
	return res.E164Format, nil
}

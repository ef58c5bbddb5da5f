package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		phone       string
		countryCode string
		wantValid   bool
		wantE164    string
		wantError   bool
	}{
		{
			name:        "Valid US number with country code",
			phone:       "+1 (202) 456-1111",
			countryCode: "US",
			wantValid:   true,
			wantE164:    "+12024561111",
		},
		{
			name:      "Valid US number without explicit region",
			phone:     "(202) 456-1111",
			wantValid: true,
			wantE164:  "+12024561111",
		},
		{
			name:        "Valid UK mobile",
			phone:       "+44 7911 123456",
			countryCode: "GB",
			wantValid:   true,
			wantE164:    "+447911123456",
		},
		{
			name:      "Too short to be valid",
			phone:     "12345",
			wantValid: false,
		},
		{
			name:      "Empty input is an error",
			phone:     "",
			wantError: true,
		},
		{
			name:      "Garbage input is an error",
			phone:     "not-a-number",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Validate(tt.phone, tt.countryCode)
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, res.IsValid)
			if tt.wantValid {
				assert.Equal(t, tt.wantE164, res.E164Format)
			}
		})
	}
}

func TestToE164(t *testing.T) {
	t.Run("Success - Normalizes a national format number", func(t *testing.T) {
		e164, err := ToE164("(303) 555-0175", "")
		require.NoError(t, err)
		assert.Equal(t, "+13035550175", e164)
	})

	t.Run("Failure - Invalid number is rejected", func(t *testing.T) {
		_, err := ToE164("12345", "US")
		assert.Error(t, err)
	})
}

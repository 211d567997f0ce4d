package phonenum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantCC  string
		wantLoc string
	}{
		{"local with trunk zero", "0812345678", "66", "812345678"},
		{"plus thai", "+66812345678", "66", "812345678"},
		{"bare thai", "66812345678", "66", "812345678"},
		{"double zero prefix", "0066812345678", "66", "812345678"},
		{"uk", "+447911123456", "44", "7911123456"},
		{"uae longest prefix", "+971501234567", "971", "501234567"},
		{"spaces and dashes", "081-234 5678", "66", "812345678"},
		{"german", "+4915112345678", "49", "15112345678"},
		{"unknown prefix falls back to default region", "23456789", "66", "23456789"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCC, got.CountryCode)
			assert.Equal(t, tt.wantLoc, got.Local)
		})
	}
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "call me", "12345", "+12345678901234567890"} {
		t.Run(input, func(t *testing.T) {
			_, err := Normalize(input)
			assert.Error(t, err)
		})
	}
}

func TestE164(t *testing.T) {
	n, err := Normalize("0812345678")
	require.NoError(t, err)
	assert.Equal(t, "66812345678", n.E164())
	assert.Equal(t, "+66812345678", n.String())
}

package cli

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockwatch/internal/domain/alert"
	"stockwatch/pkg/errors"
)

const testUser = "3f1c2b9e-8d7a-4c5b-9e6f-1a2b3c4d5e6f"

func TestCheck_SymbolInput(t *testing.T) {
	tests := []struct {
		name  string
		in    symbolInput
		field string
	}{
		{"valid", symbolInput{UserID: testUser, Symbol: "AAPL"}, ""},
		{"missing user", symbolInput{Symbol: "AAPL"}, "userid"},
		{"bad user", symbolInput{UserID: "nope", Symbol: "AAPL"}, "userid"},
		{"missing symbol", symbolInput{UserID: testUser}, "symbol"},
		{"long symbol", symbolInput{UserID: testUser, Symbol: "ABCDEFGHIJKLMNOP"}, "symbol"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := check(tt.in)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrInvalidInput))

			var verr *errors.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestTrackInput_Threshold(t *testing.T) {
	in := trackInput{symbolInput: symbolInput{UserID: testUser, Symbol: "MSFT"}}
	require.NoError(t, check(in))
	assert.False(t, in.threshold().Valid)

	in.Threshold = "-7.5"
	require.NoError(t, check(in))
	assert.True(t, in.threshold().Decimal.Equal(decimal.NewFromFloat(-7.5)))

	in.Threshold = "seven"
	assert.Error(t, check(in))
}

func TestCreateAlertInput(t *testing.T) {
	in := createAlertInput{
		symbolInput: symbolInput{UserID: testUser, Symbol: "NVDA"},
		Type:        "PRICE_SPIKE",
		Threshold:   "10",
	}
	require.NoError(t, check(in))
	assert.Equal(t, alert.TypePriceSpike, in.alertType())

	in.Type = "PRICE_CRASH"
	err := check(in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oneof")
}

func TestAlertInput_IDs(t *testing.T) {
	in := alertInput{UserID: testUser, AlertID: "6ba7b810-9dad-11d1-80b4-00c04fd430c8"}
	require.NoError(t, check(in))

	alertID, userID := in.ids()
	assert.Equal(t, in.AlertID, alertID.String())
	assert.Equal(t, testUser, userID.String())
}

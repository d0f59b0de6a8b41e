package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerformanceFieldsValidateAmounts(t *testing.T) {
	tests := []struct {
		name   string
		fields PerformanceFields
		want   error
	}{
		{"zero", PerformanceFields{}, nil},
		{"two places", PerformanceFields{Deposit: RequireAmount("1200.50")}, nil},
		{"trailing zeros", PerformanceFields{Deposit: RequireAmount("3.1000")}, nil},
		{"largest", PerformanceFields{Fund: RequireAmount("999999999999999999.99")}, nil},
		{"negative", PerformanceFields{Loan: RequireAmount("-0.01")}, ErrNegativeAmount},
		{"three places", PerformanceFields{Wealth: RequireAmount("0.005")}, ErrInvalidAmount},
		{"too large", PerformanceFields{Gold: RequireAmount("1e18")}, ErrInvalidAmount},
		{"negative credit card", PerformanceFields{CreditCard: -1}, ErrNegativeCount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fields.Validate()
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, IsValidationError(err))
		})
	}
}

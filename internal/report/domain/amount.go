package domain

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// AmountScale is the number of decimal places an amount may carry.
const AmountScale = 2

// maxAmount is the exclusive upper bound that fits numeric(20,2).
var maxAmount = decimal.New(1, 18)

// Amount is a money value with at most two decimal places.
// Sqlite keeps it in a text column so values beyond float precision read
// back exactly. The other dialects use a fixed-point numeric column.
type Amount struct {
	decimal.Decimal
}

func NewAmount(d decimal.Decimal) Amount {
	return Amount{Decimal: d}
}

// RequireAmount parses v and panics when it is not a decimal literal.
func RequireAmount(v string) Amount {
	return Amount{Decimal: decimal.RequireFromString(v)}
}

func (Amount) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	switch db.Dialector.Name() {
	case "sqlite":
		return "text"
	case "mysql":
		return "decimal(20,2)"
	default:
		return "numeric(20,2)"
	}
}

// validate rejects negative values. It also rejects values that would not
// survive numeric(20,2): more than two decimal places, or 10^18 and above.
func (a Amount) validate() error {
	if a.IsNegative() {
		return ErrNegativeAmount
	}
	if !a.Equal(a.Truncate(AmountScale)) || a.GreaterThanOrEqual(maxAmount) {
		return ErrInvalidAmount
	}
	return nil
}

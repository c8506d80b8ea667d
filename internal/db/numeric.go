package db

import (
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Decimal converts a scanned NUMERIC into a decimal. NULL and NaN map to zero and false.
func Decimal(n pgtype.Numeric) (decimal.Decimal, bool) {
	if !n.Valid || n.NaN || n.Int == nil {
		return decimal.Zero, false
	}
	return decimal.NewFromBigInt(n.Int, n.Exp), true
}

// Numeric converts a decimal for use as a NUMERIC query argument.
func Numeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

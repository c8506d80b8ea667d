package db

import (
	"math/big"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestDecimalRoundTrip(t *testing.T) {
	d, ok := Decimal(pgtype.Numeric{Int: big.NewInt(1250), Exp: -2, Valid: true})
	require.True(t, ok)
	require.True(t, d.Equal(decimal.RequireFromString("12.5")))

	back := Numeric(d)
	again, ok := Decimal(back)
	require.True(t, ok)
	require.True(t, again.Equal(d))

	_, ok = Decimal(pgtype.Numeric{})
	require.False(t, ok)
	_, ok = Decimal(pgtype.Numeric{NaN: true, Valid: true})
	require.False(t, ok)
}

package ledger

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/rice-ledger/internal/calc"
	"github.com/josh-kwaku/rice-ledger/internal/domain"
)

const Currency = money.INR

// FormatMoney renders d with the currency symbol and thousands grouping.
func FormatMoney(d decimal.Decimal) string {
	cur := currency()
	return cur.Formatter().Format(minorUnits(d, cur))
}

// FormatCell renders a stored value for display. Number cells get grouping
// and two decimals; blank cells and other kinds are returned as stored.
func FormatCell(f domain.Field, v string) string {
	if v == "" || !f.Numeric() {
		return v
	}
	cur := currency()
	plain := money.NewFormatter(cur.Fraction, cur.Decimal, cur.Thousand, "", "1")
	return plain.Format(minorUnits(calc.ParseAmount(v), cur))
}

func currency() *money.Currency {
	return money.New(0, Currency).Currency()
}

func minorUnits(d decimal.Decimal, cur *money.Currency) int64 {
	return d.Round(int32(cur.Fraction)).Shift(int32(cur.Fraction)).IntPart()
}

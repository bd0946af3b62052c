package calc

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Leading number of a cell value: "2%" reads as 2 and "12.5 qtl" as 12.5.
var leadingNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

const maxExponent = 18

// parseNumber reads the leading number of s. Blank or non-numeric input is
// zero.
func parseNumber(s string) decimal.Decimal {
	m := leadingNumber.FindString(strings.TrimSpace(s))
	if m == "" {
		return decimal.Zero
	}
	m = strings.TrimPrefix(m, "+")
	mantissa, exp, hasExp := strings.Cut(strings.ToLower(m), "e")
	mantissa = strings.TrimSuffix(mantissa, ".")
	if strings.HasPrefix(mantissa, ".") {
		mantissa = "0" + mantissa
	} else if strings.HasPrefix(mantissa, "-.") {
		mantissa = "-0" + mantissa[1:]
	}

	d, err := decimal.NewFromString(mantissa)
	if err != nil {
		return decimal.Zero
	}
	if hasExp {
		e, err := decimal.NewFromString(exp)
		if err != nil || e.Abs().GreaterThan(decimal.NewFromInt(maxExponent)) {
			return decimal.Zero
		}
		d = d.Shift(int32(e.IntPart()))
	}
	return d
}

// ParseAmount exposes the lenient number parse for aggregate sums.
func ParseAmount(s string) decimal.Decimal {
	return parseNumber(s)
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

package render

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// CurrencyCode prefixes every displayed amount.
const CurrencyCode = "KES"

var amountPrinter = message.NewPrinter(language.English)

// FormatKES renders an amount the way the results view shows it: currency code,
// thousands grouped, at most two fractional digits and no trailing zeros.
// 15000 -> "KES 15,000", 1234.5 -> "KES 1,234.5".
func FormatKES(amount float64) string {
	d := decimal.NewFromFloat(amount).Round(2)

	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}

	out := sign + amountPrinter.Sprintf("%d", d.IntPart())
	if _, frac, ok := strings.Cut(d.String(), "."); ok {
		out += "." + frac
	}
	return CurrencyCode + " " + out
}

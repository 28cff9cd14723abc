package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

const nairaSign = "₦"

var naira = currency.MustParseISO("NGN")

// FormatNaira renders an amount with Naira sign, thousands grouping and two decimals.
// Digits come from the decimal itself so large amounts keep every kobo.
func FormatNaira(amount decimal.Decimal) string {
	amount = amount.Round(2)
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}
	whole, frac, _ := strings.Cut(amount.StringFixed(2), ".")
	return sign + nairaSign + groupThousands(whole) + "." + frac
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	b.WriteString(digits[:head])
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

func receiptNumber(p Payment) string {
	return fmt.Sprintf("RCT-%d-%06d", p.Date.Year(), p.ID)
}

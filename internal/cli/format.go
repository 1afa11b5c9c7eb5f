// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatEuro formats an amount the Spanish way with two decimals.
// e.g., 1234.5 -> "1.234,50 €", -120 -> "-120,00 €"
func FormatEuro(d decimal.Decimal) string {
	return FormatAmount(d) + " €"
}

// FormatAmount is FormatEuro without the currency sign.
func FormatAmount(d decimal.Decimal) string {
	neg := d.IsNegative()
	s := d.Abs().StringFixed(2)

	intPart, frac, _ := strings.Cut(s, ".")
	n, err := strconv.ParseInt(intPart, 10, 64)
	if err == nil {
		intPart = groupThousands(n, '.')
	}

	out := intPart + "," + frac
	if neg {
		return "-" + out
	}
	return out
}

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}
	return groupThousands(n, ',')
}

func groupThousands(n int64, sep byte) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(sep)
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// FormatPercent formats a 0-100 value with two decimals.
func FormatPercent(pct float64) string {
	return fmt.Sprintf("%.2f%%", pct)
}

// FormatSignedEuro prefixes positive amounts with "+".
func FormatSignedEuro(d decimal.Decimal) string {
	if d.IsPositive() {
		return "+" + FormatEuro(d)
	}
	return FormatEuro(d)
}

// FormatWeekday returns a 3-letter Spanish day abbreviation from a weekday number.
func FormatWeekday(weekday int) string {
	days := []string{"dom", "lun", "mar", "mié", "jue", "vie", "sáb"}
	if weekday >= 0 && weekday < 7 {
		return days[weekday]
	}
	return "???"
}

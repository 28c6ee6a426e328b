package common

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
)

// compactUnits are the suffixes used by FormatCurrency and FormatNumber.
var compactUnits = []struct {
	threshold float64
	suffix    string
}{
	{1e12, "T"},
	{1e9, "B"},
	{1e6, "M"},
	{1e3, "K"},
}

// currency resolves an ISO code (any case) to a go-money currency, USD when unknown.
func currency(code string) *money.Currency {
	if cur := money.GetCurrency(strings.ToUpper(code)); cur != nil {
		return cur
	}
	return money.GetCurrency(money.USD)
}

// FormatMoney formats a float as a full USD amount: $1,234.56
func FormatMoney(v float64) string {
	return FormatMoneyIn(v, money.USD)
}

// FormatMoneyIn formats a float in the given currency using its symbol,
// separators and minor-unit precision (JPY has none: "¥1,235").
func FormatMoneyIn(v float64, code string) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	cur := currency(code)
	minor := int64(math.Round(v * math.Pow10(cur.Fraction)))
	return money.New(minor, cur.Code).Display()
}

// FormatCurrency formats a value compactly in USD: $1.23K, $4.56M, $7.89B, $1.00T,
// or $12.34 below one thousand. NaN and Inf print as $0.00.
func FormatCurrency(v float64) string {
	return FormatCurrencyIn(v, money.USD)
}

// FormatCurrencyIn is FormatCurrency with the symbol of the given currency.
func FormatCurrencyIn(v float64, code string) string {
	sym := currency(code).Grapheme
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sym + "0.00"
	}
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	for _, u := range compactUnits {
		if v >= u.threshold {
			return fmt.Sprintf("%s%s%.2f%s", sign, sym, v/u.threshold, u.suffix)
		}
	}
	return fmt.Sprintf("%s%s%.2f", sign, sym, v)
}

// FormatNumber formats large numbers compactly (1234567 -> 1.23M). Values
// below one thousand keep up to three decimals. NaN and Inf print as 0.
func FormatNumber(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	for _, u := range compactUnits {
		if v >= u.threshold {
			return fmt.Sprintf("%s%.2f%s", sign, v/u.threshold, u.suffix)
		}
	}
	return sign + strconv.FormatFloat(math.Round(v*1000)/1000, 'f', -1, 64)
}

// FormatPercentage formats a percentage with a sign: +2.34%, -1.50%.
func FormatPercentage(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0.00%"
	}
	if v >= 0 {
		return fmt.Sprintf("+%.2f%%", v)
	}
	return fmt.Sprintf("%.2f%%", v)
}

// FormatDate formats an RFC 3339 timestamp as "Jul 18, 2025".
func FormatDate(s string) string {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return "Invalid Date"
	}
	return t.Format("Jan 2, 2006")
}

// ChangeClass maps a price change to the CSS class used by the pages.
func ChangeClass(v float64) string {
	switch {
	case math.IsNaN(v):
		return "flat"
	case v >= 0:
		return "up"
	default:
		return "down"
	}
}

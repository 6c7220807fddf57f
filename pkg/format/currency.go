// Package format renders amounts for human-readable output.
package format

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var symbols = map[string]string{
	"USD": "$",
	"BRL": "R$",
	"EUR": "€",
}

var printer = message.NewPrinter(language.English)

// Symbol returns the display symbol for an ISO currency code. Unknown codes
// are returned as "CODE ".
func Symbol(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return symbols["USD"]
	}
	if s, ok := symbols[code]; ok {
		return s
	}
	return code + " "
}

// CurrencyIn formats amount with the symbol of code and thousands separators
// (e.g., "R$1,234.56", "-$10.00").
func CurrencyIn(amount float64, code string) string {
	formatted := printer.Sprintf("%.2f", math.Abs(amount))
	if amount < 0 && formatted != "0.00" {
		return "-" + Symbol(code) + formatted
	}
	return Symbol(code) + formatted
}

// BTC formats an amount of bitcoin with satoshi precision (e.g., "0.01234567 BTC").
func BTC(amount float64) string {
	return fmt.Sprintf("%.8f BTC", amount)
}

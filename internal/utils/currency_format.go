package utils

import "github.com/shopspring/decimal"

// MoneyPrecision is the number of decimal places used when presenting amounts.
const MoneyPrecision = 2

// FormatMoney renders an amount with fixed two-place precision, e.g. 12.3 -> "12.30".
func FormatMoney(amount decimal.Decimal) string {
	return amount.StringFixed(MoneyPrecision)
}

package validation

import (
	"math"
	"regexp"
)

var currencyCodePattern = regexp.MustCompile(`^[A-Z]{3}$`)

// ValidCurrencyCode checks the ISO 4217 shape of a currency code.
func ValidCurrencyCode(code string) bool {
	return currencyCodePattern.MatchString(code)
}

// ValidAmount checks that an amount is a finite positive number.
func ValidAmount(amount float64) bool {
	return !math.IsNaN(amount) && !math.IsInf(amount, 0) && amount > 0
}

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ValidDate checks the YYYY-MM-DD shape used by rate history queries.
func ValidDate(s string) bool {
	return datePattern.MatchString(s)
}

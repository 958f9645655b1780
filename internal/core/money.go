// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts coming back from
// the language model and the ledger, and for formatting them for display.
package core

import (
	"regexp"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used for display when no currency is configured.
const DefaultCurrency = money.INR

// amountPattern splits an amount into an optional sign, an optional currency
// prefix such as "₹", "Rs." or "USD", one numeric token and an optional
// currency suffix. Anything else around the number fails to match.
var amountPattern = regexp.MustCompile(
	`^(-?)\s*(?:[A-Za-z]{1,3}\.?|[^\w\s.,()+\-]{1,3})?\s*(-?)\s*([\d.,]+)\s*(?:[A-Za-z]{1,3}|[^\w\s.,()+\-]{1,3}|/-)?$`)

var (
	plainNumber   = regexp.MustCompile(`^(\d+(\.\d*)?|\.\d+)$`)
	groupedNumber = regexp.MustCompile(`^\d{1,3}(,\d{2,3})*,\d{3}(\.\d+)?$`)
	decimalComma  = regexp.MustCompile(`^\d+,\d+$`)
)

// ParseAmount converts an amount string into a decimal.
//
// The string must hold exactly one number, optionally wrapped in a currency
// symbol or code. Commas are thousands separators when they group digits in
// threes (or Indian lakh groups); a single comma otherwise is a decimal comma.
// A minus sign or accounting parentheses make the value negative so callers
// can reject it.
//
// Examples:
//
//	ParseAmount("150")           -> 150
//	ParseAmount("₹1,234.50")     -> 1234.50
//	ParseAmount("12,5")          -> 12.5
//	ParseAmount("-150.00")       -> -150
//	ParseAmount("450 (2 items)") -> ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	m := amountPattern.FindStringSubmatch(s)
	if m == nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if m[1] != "" || m[2] != "" {
		if neg || (m[1] != "" && m[2] != "") {
			return decimal.Zero, ErrInvalidAmount
		}
		neg = true
	}

	num := m[3]
	switch {
	case plainNumber.MatchString(num):
	case groupedNumber.MatchString(num):
		num = strings.ReplaceAll(num, ",", "")
	case decimalComma.MatchString(num):
		num = strings.Replace(num, ",", ".", 1)
	default:
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.HasPrefix(num, ".") {
		num = "0" + num
	}
	num = strings.TrimSuffix(num, ".")

	d, err := decimal.NewFromString(num)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}

// FormatAmount renders an amount with the currency's symbol and grouping,
// e.g. "₹1,234.50". Unknown currency codes fall back to the default.
func FormatAmount(d decimal.Decimal, currency string) string {
	if money.GetCurrency(currency) == nil {
		currency = DefaultCurrency
	}
	c := money.GetCurrency(currency)
	minor := d.Shift(int32(c.Fraction)).Round(0).IntPart()
	return money.New(minor, currency).Display()
}

// IsKnownCurrency reports whether code is an ISO 4217 code known to go-money.
func IsKnownCurrency(code string) bool {
	return money.GetCurrency(code) != nil
}

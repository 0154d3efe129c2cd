package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatINR formats an amount with Indian digit grouping.
// Example: 1234567.5 -> "₹12,34,567.50"
func FormatINR(amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}

	fixed := amount.StringFixed(2)
	integer, fraction, _ := strings.Cut(fixed, ".")

	// last three digits, then groups of two
	if len(integer) > 3 {
		head := integer[:len(integer)-3]
		tail := integer[len(integer)-3:]

		var groups []string
		for len(head) > 2 {
			groups = append([]string{head[len(head)-2:]}, groups...)
			head = head[:len(head)-2]
		}
		if head != "" {
			groups = append([]string{head}, groups...)
		}
		integer = strings.Join(append(groups, tail), ",")
	}

	return sign + "₹" + integer + "." + fraction
}

package circuit

import "github.com/shopspring/decimal"

// Dec is the shortest decimal that round-trips v. Tabulated values and
// inputs are decimal figures, so products and limit comparisons done on Dec
// values land exactly on the boundary a regulation table states.
func Dec(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

// Num formats a figure for diagnostics and reports, rounded to three decimal
// places with trailing zeros dropped.
func Num(v float64) string {
	return Dec(v).Round(3).String()
}

// Fixed formats v with exactly places decimal places.
func Fixed(v float64, places int32) string {
	return Dec(v).StringFixed(places)
}

package domain

import "math"

// Round2 rounds a monetary amount to two decimals. Every derived total goes
// through here so float accumulation never leaks into stored values.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

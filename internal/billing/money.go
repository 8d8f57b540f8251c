package billing

import "math"

// RoundMoney rounds a monetary value half-up to two decimal places.
// Bill amounts are 2-decimal currency; rounding happens exactly once,
// when the bill total is computed.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// BillAmount computes the charge for a period: liters times rate,
// rounded to the cent.
func BillAmount(totalLiters, pricePerLiter float64) float64 {
	return RoundMoney(totalLiters * pricePerLiter)
}

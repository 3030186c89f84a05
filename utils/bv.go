package utils

import "github.com/shopspring/decimal"

// TotalBV is quantity × bv computed in decimal, so 3 × 0.1 is 0.3 and
// 3 × 0.125 keeps all three places.
func TotalBV(quantity int, bv float64) float64 {
	return decimal.NewFromInt(int64(quantity)).
		Mul(decimal.NewFromFloat(bv)).
		InexactFloat64()
}

func SumBV(values ...float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total.InexactFloat64()
}

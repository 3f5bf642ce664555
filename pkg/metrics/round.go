package metrics

import (
	"math"
	"strconv"
)

// Round rounds x to the given number of decimal places using the exact
// binary value of x, with ties going to the even digit. 2.675 rounds to 2.67
// because its float64 value is slightly below the midpoint.
func Round(x float64, places int) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', places, 64), 64)
	if err != nil {
		return x
	}
	if r == 0 {
		// drop negative zero
		return 0
	}
	return r
}

// Round2 rounds x to two decimal places.
func Round2(x float64) float64 {
	return Round(x, 2)
}

// MsToSeconds converts milliseconds to seconds without rounding.
func MsToSeconds(ms float64) float64 {
	return ms / 1000
}

// Percent returns part/whole*100, or 0 when whole is 0.
func Percent(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return part / whole * 100
}

// Rate returns round(part/whole*100, 2), or 0 when whole is 0.
func Rate(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return Round2(float64(part) / float64(whole) * 100)
}

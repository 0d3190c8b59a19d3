package nutrition

import (
	"math"
	"strconv"
	"strings"
)

// snapDigits is how many significant digits are kept before the half is
// decided. Float products such as 1.005*1 or 3.6*1.5 differ from their
// decimal value only past the 15th significant digit.
const snapDigits = 15

// exactLimit bounds magnitudes that keep at least three decimals after
// snapping to snapDigits.
const exactLimit = 1e11

// integralLimit is where float64 stops representing fractions.
const integralLimit = 1 << 53

// Round2 rounds x to 2 decimal places, half away from zero.
//
// x is first snapped to 15 significant digits, so a value within about one
// part in 1e15 of a half counts as the half: 1.00499999999999989 (the float
// nearest 1.005) rounds to 1.01, while 0.0049999999 rounds to 0.
func Round2(x float64) float64 {
	if x == 0 || math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	abs := math.Abs(x)
	if abs >= integralLimit {
		return x
	}
	if abs >= exactLimit {
		return math.Copysign(math.Floor(abs*100+0.5)/100, x)
	}

	snapped, err := strconv.ParseFloat(strconv.FormatFloat(abs, 'g', snapDigits, 64), 64)
	if err != nil {
		return math.Copysign(math.Floor(abs*100+0.5)/100, x)
	}
	s := strconv.FormatFloat(snapped, 'f', -1, 64)
	whole, frac, _ := strings.Cut(s, ".")
	frac += "000"

	cents, err := strconv.ParseFloat(whole+frac[:2], 64)
	if err != nil {
		return math.Copysign(math.Floor(abs*100+0.5)/100, x)
	}
	if frac[2] >= '5' {
		cents++
	}
	if cents == 0 {
		return 0
	}
	return math.Copysign(cents/100, x)
}

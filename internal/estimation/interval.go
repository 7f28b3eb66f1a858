package estimation

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

// clopperPearson returns the exact two-sided (1-alpha) binomial confidence
// interval for the success probability after ones successes in shots trials.
func clopperPearson(ones, shots int, alpha float64) (lo, hi float64) {
	lo, hi = 0, 1
	if ones > 0 {
		lo = distuv.Beta{Alpha: float64(ones), Beta: float64(shots - ones + 1)}.Quantile(alpha / 2)
	}
	if ones < shots {
		hi = distuv.Beta{Alpha: float64(ones + 1), Beta: float64(shots - ones)}.Quantile(1 - alpha/2)
	}
	return lo, hi
}

// invertAmplified maps a confidence interval on the amplified one-probability
// p = (1 - cos(K*theta))/2 back to an interval on theta, given that K*theta
// is known to lie in half-circle m, where cos is monotone. On even
// half-circles p increases with theta, on odd ones it decreases.
func invertAmplified(pLo, pHi float64, scale, half int) (thetaLo, thetaHi float64) {
	base := float64(half) * math.Pi
	k := float64(scale)
	if half%2 == 0 {
		thetaLo = (base + math.Acos(clamp(1-2*pLo, -1, 1))) / k
		thetaHi = (base + math.Acos(clamp(1-2*pHi, -1, 1))) / k
	} else {
		thetaLo = (base + math.Acos(clamp(2*pHi-1, -1, 1))) / k
		thetaHi = (base + math.Acos(clamp(2*pLo-1, -1, 1))) / k
	}
	return thetaLo, thetaHi
}

package stats

import (
	"math"

	"stocksense/internal/common"
)

// SafetyFactor returns z, the inverse standard normal CDF evaluated at
// serviceLevel. Fails for service levels outside the open interval (0, 1).
func SafetyFactor(serviceLevel float64) (float64, error) {
	if serviceLevel <= 0 || serviceLevel >= 1 || math.IsNaN(serviceLevel) {
		return 0, common.DomainErrorf("service level %v outside (0,1)", serviceLevel)
	}
	return math.Sqrt2 * math.Erfinv(2*serviceLevel-1), nil
}

// LeadTimeDemandStdDev combines demand and lead-time variance under the
// compound-variance formula:
//
//	sigma_LTD = sqrt(LT * sigma_d^2 + mu_d^2 * sigma_LT^2)
func LeadTimeDemandStdDev(demandStdDev, leadTimeMean, leadTimeStdDev, demandMean float64) float64 {
	return math.Sqrt(leadTimeMean*demandStdDev*demandStdDev + demandMean*demandMean*leadTimeStdDev*leadTimeStdDev)
}

// BandStdDev derives a demand standard deviation from a two-sided forecast
// band with the given coverage probability: (upper - lower) / (2 * z).
func BandStdDev(lowerBound, upperBound, confidence float64) (float64, error) {
	if upperBound < lowerBound {
		return 0, common.DomainErrorf("band upper bound %v below lower bound %v", upperBound, lowerBound)
	}
	// z for a two-sided band covering `confidence` of the mass.
	z, err := SafetyFactor((1 + confidence) / 2)
	if err != nil {
		return 0, err
	}
	if z == 0 {
		return 0, common.DomainErrorf("band confidence %v yields zero z-score", confidence)
	}
	return (upperBound - lowerBound) / (2 * z), nil
}

// MAPE returns the mean absolute percentage error of forecast against actual.
// Zero-actual points are skipped; an all-zero actual series yields zero.
func MAPE(actual, forecast []float64) (float64, error) {
	if len(actual) != len(forecast) {
		return 0, common.DomainErrorf("series length mismatch: %d vs %d", len(actual), len(forecast))
	}
	var sum float64
	n := 0
	for i := range actual {
		if actual[i] == 0 {
			continue
		}
		sum += math.Abs(actual[i]-forecast[i]) / math.Abs(actual[i])
		n++
	}
	if n == 0 {
		return 0, nil
	}
	return sum / float64(n), nil
}

// Mean returns the arithmetic mean of xs, zero for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// StdDev returns the population standard deviation of xs.
func StdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	mean := Mean(xs)
	var sum float64
	for _, x := range xs {
		d := x - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)))
}

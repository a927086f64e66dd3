package stats

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"stocksense/internal/common"
)

func TestSafetyFactor_KnownQuantiles(t *testing.T) {
	z50, err := SafetyFactor(0.5)
	assert.NoError(t, err)
	assert.InDelta(t, 0.0, z50, 1e-9)

	z95, err := SafetyFactor(0.95)
	assert.NoError(t, err)
	assert.InDelta(t, 1.6449, z95, 1e-3)

	z99, err := SafetyFactor(0.99)
	assert.NoError(t, err)
	assert.InDelta(t, 2.3263, z99, 1e-3)
}

func TestSafetyFactor_Monotone(t *testing.T) {
	prev := math.Inf(-1)
	for p := 0.01; p < 1.0; p += 0.01 {
		z, err := SafetyFactor(p)
		assert.NoError(t, err)
		assert.Greater(t, z, prev, "safety factor must increase with service level, p=%v", p)
		prev = z
	}
}

func TestSafetyFactor_OutsideDomain(t *testing.T) {
	for _, p := range []float64{0, 1, -0.2, 1.5, math.NaN()} {
		_, err := SafetyFactor(p)
		assert.Error(t, err)
		assert.True(t, errors.Is(err, common.ErrDomain))
	}
}

func TestLeadTimeDemandStdDev(t *testing.T) {
	// Deterministic lead time: collapses to sigma_d * sqrt(LT).
	sigma := LeadTimeDemandStdDev(5, 7, 0, 20)
	assert.InDelta(t, 5*math.Sqrt(7), sigma, 1e-9)

	// Compound case from the standard formula.
	sigma = LeadTimeDemandStdDev(5, 7, 1, 20)
	assert.InDelta(t, math.Sqrt(7*25+400*1), sigma, 1e-9)
}

func TestBandStdDev(t *testing.T) {
	// A 95% band spans 2*1.96 sigma.
	sigma, err := BandStdDev(80, 120, 0.95)
	assert.NoError(t, err)
	assert.InDelta(t, 40/(2*1.95996), sigma, 1e-3)

	_, err = BandStdDev(120, 80, 0.95)
	assert.Error(t, err)
}

func TestMAPE(t *testing.T) {
	mape, err := MAPE([]float64{100, 200}, []float64{90, 220})
	assert.NoError(t, err)
	assert.InDelta(t, (0.1+0.1)/2, mape, 1e-9)

	// Zero actuals are skipped.
	mape, err = MAPE([]float64{0, 100}, []float64{50, 110})
	assert.NoError(t, err)
	assert.InDelta(t, 0.1, mape, 1e-9)

	_, err = MAPE([]float64{1}, []float64{1, 2})
	assert.Error(t, err)
}

func TestMeanStdDev(t *testing.T) {
	xs := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	assert.InDelta(t, 5.0, Mean(xs), 1e-9)
	assert.InDelta(t, 2.0, StdDev(xs), 1e-9)
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 0.0, StdDev(nil))
}

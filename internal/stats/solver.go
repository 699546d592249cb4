package stats

import (
	"fmt"
	"math"

	apperrors "mdacli/internal/errors"
	"mdacli/pkg/contracts/domain"
)

// Solver reverse-solves the tolerance band that would achieve a target
// yield, assuming the item's measured values are normally distributed with
// the observed sample mean and deviation.
type Solver struct {
	minYield   float64
	maxYield   float64
	minSamples int
}

// NewSolver creates a solver with the given yield domain and
// low-confidence threshold. Zero values select the defaults
// (0.80..0.9973, 30 samples).
func NewSolver(minYield, maxYield float64, minSamples int) *Solver {
	if minYield <= 0 {
		minYield = 0.80
	}
	if maxYield <= 0 {
		maxYield = 0.9973
	}
	if minSamples <= 0 {
		minSamples = 30
	}
	return &Solver{minYield: minYield, maxYield: maxYield, minSamples: minSamples}
}

// ValidateYield checks the target yield against the configured domain.
func (s *Solver) ValidateYield(targetYield float64) error {
	if targetYield < s.minYield || targetYield > s.maxYield {
		return apperrors.NewInvalidParameterError(
			fmt.Sprintf("target yield %v outside supported domain [%v, %v]", targetYield, s.minYield, s.maxYield))
	}
	return nil
}

// SuggestTolerance solves the symmetric +/-z*sigma band around the sample
// mean that contains targetYield of the distribution's mass. The band
// characterizes the process, not the nominal, so it is centered on the
// mean; the design-centered asymmetric pair accounting for the process
// offset is reported alongside it.
//
// It fails with an invalid-parameter error outside the yield domain and
// with an insufficient-data error when the deviation is undefined; a small
// but workable sample is annotated as low confidence instead of rejected.
func (s *Solver) SuggestTolerance(itemName string, records []domain.MeasurementRecord, targetYield float64) (domain.ToleranceSuggestion, error) {
	if err := s.ValidateYield(targetYield); err != nil {
		return domain.ToleranceSuggestion{}, err
	}

	evaluated := Evaluated(records)
	if len(evaluated) < 2 {
		return domain.ToleranceSuggestion{}, apperrors.NewInsufficientDataError(
			"at least two evaluated samples are required to estimate deviation").
			WithContext("item", itemName).
			WithContext("sample_count", len(evaluated))
	}

	values := measuredValues(evaluated)
	m := mean(values)
	sd := sampleStdDev(values, m)
	if sd < zeroStdEpsilon {
		return domain.ToleranceSuggestion{}, apperrors.NewInsufficientDataError(
			"standard deviation is zero; tolerance band is undefined").
			WithContext("item", itemName)
	}

	z := InverseNormalCDF(0.5 + targetYield/2)

	spec, _ := dominantSpec(evaluated)
	offset := m - spec.design

	return domain.ToleranceSuggestion{
		ItemName:           itemName,
		TargetYield:        targetYield,
		ZScore:             z,
		SuggestedTolerance: z * sd,
		Offset:             offset,
		UpperTolerance:     z*sd + offset,
		LowerTolerance:     -(z*sd - offset),
		SymmetricBound:     z*sd + math.Abs(offset),
		Mean:               m,
		StdDev:             sd,
		SampleCount:        len(evaluated),
		LowConfidence:      len(evaluated) < s.minSamples,
	}, nil
}

// Acklam's rational approximation coefficients for the inverse standard
// normal CDF. Absolute error stays under 1.15e-9 over the open unit
// interval, orders of magnitude tighter than the solver needs.
var (
	invNormA = [6]float64{
		-3.969683028665376e+01, 2.209460984245205e+02,
		-2.759285104469687e+02, 1.383577518672690e+02,
		-3.066479806614716e+01, 2.506628277459239e+00,
	}
	invNormB = [5]float64{
		-5.447609879822406e+01, 1.615858368580409e+02,
		-1.556989798598866e+02, 6.680131188771972e+01,
		-1.328068155288572e+01,
	}
	invNormC = [6]float64{
		-7.784894002430293e-03, -3.223964580411365e-01,
		-2.400758277161838e+00, -2.549732539343734e+00,
		4.374664141464968e+00, 2.938163982698783e+00,
	}
	invNormD = [4]float64{
		7.784695709041462e-03, 3.224671290700398e-01,
		2.445134137142996e+00, 3.754408661907416e+00,
	}
)

// invNormLow/invNormHigh split the unit interval into the tail and central
// regions of the approximation.
const (
	invNormLow  = 0.02425
	invNormHigh = 1 - invNormLow
)

// InverseNormalCDF returns the z-score whose standard normal cumulative
// probability is p. It returns +/-Inf at the closed endpoints and NaN
// outside [0, 1].
func InverseNormalCDF(p float64) float64 {
	switch {
	case math.IsNaN(p) || p < 0 || p > 1:
		return math.NaN()
	case p == 0:
		return math.Inf(-1)
	case p == 1:
		return math.Inf(1)
	}

	switch {
	case p < invNormLow:
		q := math.Sqrt(-2 * math.Log(p))
		return (((((invNormC[0]*q+invNormC[1])*q+invNormC[2])*q+invNormC[3])*q+invNormC[4])*q + invNormC[5]) /
			((((invNormD[0]*q+invNormD[1])*q+invNormD[2])*q+invNormD[3])*q + 1)
	case p <= invNormHigh:
		q := p - 0.5
		r := q * q
		return (((((invNormA[0]*r+invNormA[1])*r+invNormA[2])*r+invNormA[3])*r+invNormA[4])*r + invNormA[5]) * q /
			(((((invNormB[0]*r+invNormB[1])*r+invNormB[2])*r+invNormB[3])*r+invNormB[4])*r + 1)
	default:
		q := math.Sqrt(-2 * math.Log(1-p))
		return -(((((invNormC[0]*q+invNormC[1])*q+invNormC[2])*q+invNormC[3])*q+invNormC[4])*q + invNormC[5]) /
			((((invNormD[0]*q+invNormD[1])*q+invNormD[2])*q+invNormD[3])*q + 1)
	}
}

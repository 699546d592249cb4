// Package stats computes per-item process statistics and reverse-solves
// tolerance bands for target yields. Every function here is a pure function
// of the accumulated records of a single item; nothing depends on other
// items or on session state.
//
// Standard deviations are sample deviations (divisor N-1) throughout, so
// CPK and suggested tolerances stay mutually consistent.
package stats

import (
	"math"

	"mdacli/pkg/contracts/domain"
)

// zeroStdEpsilon guards divisions by a vanishing process spread.
const zeroStdEpsilon = 1e-9

// Engine computes ItemStatistics from accumulated records.
type Engine struct {
	// minSamples is the sample count below which capability figures are
	// annotated as low confidence.
	minSamples int
}

// NewEngine creates a statistics engine. minSamples <= 0 selects the
// conventional threshold of 30.
func NewEngine(minSamples int) *Engine {
	if minSamples <= 0 {
		minSamples = 30
	}
	return &Engine{minSamples: minSamples}
}

// Compute derives the statistics for one item's series. NotEvaluated
// records are excluded from every figure but counted for audit.
func (e *Engine) Compute(itemName string, records []domain.MeasurementRecord) domain.ItemStatistics {
	stats := domain.ItemStatistics{ItemName: itemName}

	evaluated := Evaluated(records)
	stats.SkippedCount = len(records) - len(evaluated)
	stats.SampleCount = len(evaluated)
	if stats.SampleCount == 0 {
		return stats
	}

	for _, r := range evaluated {
		if r.Result == domain.ResultFail {
			stats.NGCount++
		}
	}
	stats.FailRate = float64(stats.NGCount) / float64(stats.SampleCount)
	stats.FailRateValid = true

	values := measuredValues(evaluated)
	stats.Mean = mean(values)
	stats.StdDev = sampleStdDev(values, stats.Mean)
	stats.Min, stats.Max = minMax(values)
	stats.LowConfidence = stats.SampleCount < e.minSamples

	spec, diverged := dominantSpec(evaluated)
	stats.DesignValue = spec.design
	stats.UpperTolerance = spec.upper
	stats.LowerTolerance = spec.lower
	stats.ToleranceDiverged = diverged

	usl := spec.design + spec.upper
	lsl := spec.design + spec.lower
	if stats.SampleCount >= 2 &&
		stats.StdDev > zeroStdEpsilon &&
		math.Abs(usl-lsl) > zeroStdEpsilon {
		cpu := (usl - stats.Mean) / (3 * stats.StdDev)
		cpl := (stats.Mean - lsl) / (3 * stats.StdDev)
		stats.CPK = math.Min(cpu, cpl)
		stats.CPKValid = true
	}

	return stats
}

// Evaluated filters out NotEvaluated records.
func Evaluated(records []domain.MeasurementRecord) []domain.MeasurementRecord {
	out := make([]domain.MeasurementRecord, 0, len(records))
	for _, r := range records {
		if r.Result != domain.ResultNotEvaluated {
			out = append(out, r)
		}
	}
	return out
}

type specTriple struct {
	design, upper, lower float64
}

// dominantSpec picks the most frequent (design, upper, lower) combination
// across the series. All records of one item are expected to share their
// specification; when they diverge the winner is reported with a flag,
// never an average. The first-seen triple wins frequency ties so the
// result is deterministic under accumulation order.
func dominantSpec(records []domain.MeasurementRecord) (specTriple, bool) {
	counts := make(map[specTriple]int)
	var order []specTriple
	for _, r := range records {
		t := specTriple{r.DesignValue, r.UpperTolerance, r.LowerTolerance}
		if counts[t] == 0 {
			order = append(order, t)
		}
		counts[t]++
	}

	best := order[0]
	for _, t := range order[1:] {
		if counts[t] > counts[best] {
			best = t
		}
	}
	return best, len(order) > 1
}

func measuredValues(records []domain.MeasurementRecord) []float64 {
	values := make([]float64, len(records))
	for i, r := range records {
		values[i] = r.MeasuredValue
	}
	return values
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// sampleStdDev is the N-1 deviation; it is zero for fewer than two values.
func sampleStdDev(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}

func minMax(values []float64) (lo, hi float64) {
	lo, hi = values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

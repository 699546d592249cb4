package domain

// ItemStatistics is the derived summary for one item's accumulated series.
// It is always reconstructible from the records alone; the session store
// caches it but never treats it as the source of truth.
//
// StdDev is the sample standard deviation (divisor N-1). The same choice is
// applied in CPK and in the tolerance solver so the two stay consistent.
type ItemStatistics struct {
	ItemName    string `json:"item_name"`
	SampleCount int    `json:"sample_count"`
	// SkippedCount counts NotEvaluated records, excluded from every other
	// figure but kept for audit.
	SkippedCount int     `json:"skipped_count"`
	NGCount      int     `json:"ng_count"`
	FailRate     float64 `json:"fail_rate"`
	// FailRateValid is false when SampleCount is zero and FailRate is N/A.
	FailRateValid bool    `json:"fail_rate_valid"`
	Mean          float64 `json:"mean"`
	StdDev        float64 `json:"std_dev"`
	Min           float64 `json:"min"`
	Max           float64 `json:"max"`
	CPK           float64 `json:"cpk"`
	// CPKValid is false when CPK is undefined: fewer than two samples, zero
	// standard deviation, or a degenerate specification (USL == LSL).
	CPKValid bool `json:"cpk_valid"`
	// Specification triple the CPK was computed against: the most frequent
	// (design, upper, lower) combination across the series.
	DesignValue    float64 `json:"design_value"`
	UpperTolerance float64 `json:"upper_tolerance"`
	LowerTolerance float64 `json:"lower_tolerance"`
	// ToleranceDiverged is set when records of the same item disagree on the
	// specification triple. The most frequent pair wins; nothing is averaged.
	ToleranceDiverged bool `json:"tolerance_diverged"`
	// LowConfidence is set when SampleCount is below the configured minimum
	// for statistically meaningful capability figures.
	LowConfidence bool `json:"low_confidence"`
}

// ToleranceSuggestion is the reverse-solved tolerance band for a requested
// yield, characterizing the observed process (centered on the mean, not the
// design value). Computed on demand, never persisted.
type ToleranceSuggestion struct {
	ItemName    string  `json:"item_name"`
	TargetYield float64 `json:"target_yield"`
	ZScore      float64 `json:"z_score"`
	// SuggestedTolerance is the symmetric +/- band around the mean.
	SuggestedTolerance float64 `json:"suggested_tolerance"`
	// Offset is mean minus design value. UpperTolerance and LowerTolerance
	// are the design-centered asymmetric band accounting for that offset.
	Offset         float64 `json:"offset"`
	UpperTolerance float64 `json:"upper_tolerance"`
	LowerTolerance float64 `json:"lower_tolerance"`
	// SymmetricBound is the design-centered symmetric band wide enough to
	// cover the offset process: z*sigma + |offset|.
	SymmetricBound float64 `json:"symmetric_bound"`
	Mean           float64 `json:"mean"`
	StdDev         float64 `json:"std_dev"`
	SampleCount    int     `json:"sample_count"`
	// LowConfidence annotates a statistically weak suggestion. It never
	// blocks the computation.
	LowConfidence bool `json:"low_confidence"`
}

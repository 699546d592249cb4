package domain

import (
	"time"
)

// ResultStatus is the pass/fail judgement assigned to a record at
// normalization time. It is never recomputed afterwards.
type ResultStatus string

const (
	ResultPass         ResultStatus = "pass"
	ResultFail         ResultStatus = "fail"
	ResultNotEvaluated ResultStatus = "not_evaluated"
)

// MeasurementRecord is one measured unit of one inspected item. Records are
// created by the normalizer and are immutable once merged into a session.
type MeasurementRecord struct {
	ItemName       string       `json:"item_name" validate:"required"`
	ChipIndex      int          `json:"chip_index"`
	MeasuredValue  float64      `json:"measured_value"`
	DesignValue    float64      `json:"design_value"`
	UpperTolerance float64      `json:"upper_tolerance"`
	LowerTolerance float64      `json:"lower_tolerance"`
	MeasuredAt     *time.Time   `json:"measured_at,omitempty"`
	SourceBatchID  int64        `json:"source_batch_id"`
	SourceFile     string       `json:"source_file,omitempty"`
	Result         ResultStatus `json:"result"`
}

// USL returns the upper specification limit (design value plus upper offset).
func (r MeasurementRecord) USL() float64 {
	return r.DesignValue + r.UpperTolerance
}

// LSL returns the lower specification limit. LowerTolerance is conventionally
// a non-positive offset.
func (r MeasurementRecord) LSL() float64 {
	return r.DesignValue + r.LowerTolerance
}

// ImportBatch records the metadata of one folder import operation. Batches
// are never mutated after creation; they are retained for traceability and
// for accumulation-mode semantics.
type ImportBatch struct {
	BatchID    int64     `json:"batch_id"`
	SourcePath string    `json:"source_path"`
	FileCount  int       `json:"file_count"`
	ImportedAt time.Time `json:"imported_at"`
}

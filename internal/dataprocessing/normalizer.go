package dataprocessing

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	apperrors "mdacli/internal/errors"
	"mdacli/pkg/contracts/domain"
)

// designEpsilon is the threshold under which a design value counts as the
// zero sentinel meaning "not under tolerance evaluation".
const designEpsilon = 1e-6

// FileContext carries the batch/file provenance attached to every record
// normalized from one report.
type FileContext struct {
	BatchID    int64
	SourceFile string
	// MeasuredAt is the per-file timestamp from the report preamble, used
	// when a row carries no timestamp of its own. Nil means arrival order
	// is the only ordering key.
	MeasuredAt *time.Time
}

// Normalizer converts raw report rows into typed measurement records and
// fixes each record's judgement. A bad row fails alone; it never aborts
// the remaining rows of its file.
type Normalizer struct{}

// NewNormalizer creates a Normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// NormalizeRow produces exactly one record from one raw row, or a
// row-level parse error.
func (n *Normalizer) NormalizeRow(columns ColumnMap, row RawRow, fctx FileContext) (domain.MeasurementRecord, error) {
	cell := func(f Field) string {
		idx, ok := columns[f]
		if !ok || idx >= len(row.Cells) {
			return ""
		}
		return strings.TrimSpace(row.Cells[idx])
	}

	measured, err := parseStrictFloat(cell(FieldMeasured))
	if err != nil {
		return domain.MeasurementRecord{}, rowError(row, "invalid measured value", err)
	}

	design, err := parseStrictFloat(cell(FieldDesign))
	if err != nil {
		return domain.MeasurementRecord{}, rowError(row, "invalid design value", err)
	}

	upper, lower, err := resolveTolerances(columns, cell, design)
	if err != nil {
		return domain.MeasurementRecord{}, rowError(row, "invalid tolerance", err)
	}

	record := domain.MeasurementRecord{
		ItemName:       resolveItemName(cell),
		ChipIndex:      resolveChipIndex(cell(FieldIndex), row.Line),
		MeasuredValue:  measured,
		DesignValue:    design,
		UpperTolerance: upper,
		LowerTolerance: lower,
		SourceBatchID:  fctx.BatchID,
		SourceFile:     fctx.SourceFile,
		Result:         classify(measured, design, upper, lower),
	}

	// Timestamp resolution order: per-row column, per-file preamble
	// timestamp, none.
	if ts, ok := ParseReportTime(cell(FieldTimestamp)); ok {
		record.MeasuredAt = &ts
	} else if fctx.MeasuredAt != nil {
		record.MeasuredAt = fctx.MeasuredAt
	}

	return record, nil
}

// NormalizeReport runs every row of a parsed report, returning the records
// that normalized cleanly plus the per-row failures.
func (n *Normalizer) NormalizeReport(report *Report, fctx FileContext) ([]domain.MeasurementRecord, []domain.RowFailure) {
	if fctx.MeasuredAt == nil {
		fctx.MeasuredAt = report.MeasuredAt
	}

	records := make([]domain.MeasurementRecord, 0, len(report.Rows))
	var failures []domain.RowFailure
	for _, row := range report.Rows {
		record, err := n.NormalizeRow(report.Columns, row, fctx)
		if err != nil {
			failures = append(failures, domain.RowFailure{
				Path:   report.Path,
				Row:    row.Line,
				Reason: err.Error(),
			})
			continue
		}
		records = append(records, record)
	}
	return records, failures
}

// classify fixes a record's judgement from its numeric fields alone. It is
// applied exactly once, at normalization time.
func classify(measured, design, upper, lower float64) domain.ResultStatus {
	if math.Abs(design) < designEpsilon {
		return domain.ResultNotEvaluated
	}
	if measured < design+lower || measured > design+upper {
		return domain.ResultFail
	}
	return domain.ResultPass
}

// resolveTolerances yields the offset pair, either directly from tolerance
// columns or derived from USL/LSL columns. Absent or blank cells default
// to a zero offset.
func resolveTolerances(columns ColumnMap, cell func(Field) string, design float64) (upper, lower float64, err error) {
	if columns.Has(FieldUpper) || columns.Has(FieldLower) {
		upper, err = parseOptionalFloat(cell(FieldUpper))
		if err != nil {
			return 0, 0, err
		}
		lower, err = parseOptionalFloat(cell(FieldLower))
		if err != nil {
			return 0, 0, err
		}
		return upper, lower, nil
	}

	if columns.Has(FieldUSL) || columns.Has(FieldLSL) {
		usl, err := parseOptionalFloat(cell(FieldUSL))
		if err != nil {
			return 0, 0, err
		}
		lsl, err := parseOptionalFloat(cell(FieldLSL))
		if err != nil {
			return 0, 0, err
		}
		if cell(FieldUSL) != "" {
			upper = usl - design
		}
		if cell(FieldLSL) != "" {
			lower = lsl - design
		}
		return upper, lower, nil
	}

	return 0, 0, nil
}

func resolveItemName(cell func(Field) string) string {
	if name := cell(FieldItemName); name != "" {
		return name
	}
	// Reports without an item column identify characteristics by index.
	return "No." + cell(FieldIndex)
}

// resolveChipIndex parses the unit index. Some layouts use alphanumeric
// indices ("A1"); those fall back to the row position so ordering stays
// stable without failing the row.
func resolveChipIndex(s string, line int) int {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return line
}

// parseStrictFloat enforces the strict numeric grammar for required
// fields: the trimmed cell must be a complete floating point literal.
func parseStrictFloat(s string) (float64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty numeric field")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	return v, nil
}

// parseOptionalFloat treats blank as a zero offset but still rejects
// non-numeric garbage.
func parseOptionalFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return parseStrictFloat(s)
}

func rowError(row RawRow, message string, cause error) error {
	return apperrors.NewRecordParseError(message, cause).WithContext("row", row.Line)
}

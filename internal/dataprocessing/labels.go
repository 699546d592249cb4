package dataprocessing

import (
	"strings"
)

// Field identifies one logical column of a measurement report.
type Field string

const (
	FieldIndex     Field = "index"
	FieldItemName  Field = "item_name"
	FieldMeasured  Field = "measured_value"
	FieldDesign    Field = "design_value"
	FieldUpper     Field = "upper_tolerance"
	FieldLower     Field = "lower_tolerance"
	FieldUSL       Field = "usl"
	FieldLSL       Field = "lsl"
	FieldTimestamp Field = "timestamp"
	FieldUnit      Field = "unit"
)

// ColumnMap maps logical fields to their column position in a report.
type ColumnMap map[Field]int

// Has reports whether the field was located in the header row.
func (m ColumnMap) Has(f Field) bool {
	_, ok := m[f]
	return ok
}

// fieldVocabulary is the known label vocabulary per logical field.
// Labels are matched after normalization (lower case, collapsed
// whitespace), so "Measured Value" and "measured  value" both hit.
// The CJK entries come from Keyence instrument report layouts.
var fieldVocabulary = map[Field][]string{
	FieldIndex:     {"no", "no.", "index", "編號", "番号"},
	FieldItemName:  {"item", "item name", "project", "measurement item", "測量專案", "測定項目", "項目"},
	FieldMeasured:  {"measured value", "measured", "actual value", "actual", "實測值", "測定値", "実測値"},
	FieldDesign:    {"design value", "design", "nominal value", "nominal", "設計值", "設計値"},
	FieldUpper:     {"upper tolerance", "upper tol", "+tol", "上限公差", "上公差"},
	FieldLower:     {"lower tolerance", "lower tol", "-tol", "下限公差", "下公差"},
	FieldUSL:       {"usl", "upper limit", "上限"},
	FieldLSL:       {"lsl", "lower limit", "下限"},
	FieldTimestamp: {"time", "timestamp", "datetime", "measured at", "測量時間", "日時"},
	FieldUnit:      {"unit", "單位", "単位"},
}

// lookup is fieldVocabulary inverted for O(1) token resolution.
var lookup = func() map[string]Field {
	m := make(map[string]Field)
	for field, labels := range fieldVocabulary {
		for _, label := range labels {
			m[label] = field
		}
	}
	return m
}()

// normalizeToken canonicalizes a header cell before vocabulary lookup.
func normalizeToken(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), " ")
}

// ResolveColumns matches one row of header tokens against the label
// vocabulary and returns the field-to-position mapping. It is a pure
// function and independent of the file format that produced the tokens.
//
// A row qualifies as the header when the index, measured-value and
// design-value fields are all present. Tolerance fields (offset pair or
// direct USL/LSL) are optional at detection time; rows without them
// normalize with zero offsets.
func ResolveColumns(tokens []string) (ColumnMap, bool) {
	m := make(ColumnMap)
	for i, token := range tokens {
		field, ok := lookup[normalizeToken(token)]
		if !ok {
			continue
		}
		// First occurrence wins; instrument reports sometimes repeat a
		// label in trailing summary columns.
		if _, seen := m[field]; !seen {
			m[field] = i
		}
	}

	if m.Has(FieldIndex) && m.Has(FieldMeasured) && m.Has(FieldDesign) {
		return m, true
	}
	return nil, false
}

// Package dataprocessing turns raw measurement-instrument reports into
// typed measurement records.
//
// A report file carries an instrument-metadata preamble of variable length,
// then a header row with recognizable field labels, then one data row per
// inspected unit. Column order differs between instrument firmware
// versions, so the parser locates fields by label vocabulary instead of by
// position. Delimited text and Excel workbooks are supported through one
// row-source abstraction selected by file extension; both yield the same
// raw-row shape downstream.
//
// The normalizer converts raw rows into domain.MeasurementRecord values and
// fixes each record's pass/fail judgement at that point. Row-level failures
// never abort the remaining rows of the same file.
package dataprocessing

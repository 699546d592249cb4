package dataprocessing

import (
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	apperrors "mdacli/internal/errors"
)

// RawRow is one data row of a report, paired with its one-based line
// position for row-level failure reporting.
type RawRow struct {
	Line  int
	Cells []string
}

// Report is the parsed shape of one report file: the resolved column
// layout, the ordered data rows, and the per-file measurement timestamp
// when the preamble carried one.
type Report struct {
	Path       string
	Columns    ColumnMap
	Rows       []RawRow
	MeasuredAt *time.Time
}

// Parser locates the header row of heterogeneous instrument reports and
// extracts their data rows. Everything above the header is treated as
// instrument preamble, mined only for the measurement timestamp.
type Parser struct {
	logger *slog.Logger
	// scanWindow bounds how many leading rows may precede the header
	// before the file is declared malformed.
	scanWindow int
}

// NewParser creates a parser with the given header scan window.
func NewParser(logger *slog.Logger, scanWindow int) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	if scanWindow <= 0 {
		scanWindow = 60
	}
	return &Parser{logger: logger, scanWindow: scanWindow}
}

// timestampLabels mark the preamble line carrying the measurement time.
var timestampLabels = []string{
	"測量日期及時間",
	"measurement date",
	"measured at",
}

// ParseFile reads one report file and returns its data rows. It fails with
// a malformed-report error when no header row is found inside the scan
// window; the caller decides whether to skip the file or abort the batch.
func (p *Parser) ParseFile(path string) (*Report, error) {
	source, err := OpenRowSource(path)
	if err != nil {
		return nil, err
	}
	defer source.Close()

	report := &Report{Path: path}
	line := 0

	// Preamble scan: find the header row, picking up the measurement
	// timestamp on the way.
	for report.Columns == nil {
		cells, err := source.Next()
		if err == io.EOF {
			return nil, apperrors.NewMalformedReportError("header not found", nil).
				WithContext("path", path)
		}
		if err != nil {
			return nil, apperrors.NewIOError("failed to read report row", err).
				WithContext("path", path)
		}
		line++
		if line > p.scanWindow {
			return nil, apperrors.NewMalformedReportError("header not found", nil).
				WithContext("path", path).
				WithContext("scan_window", p.scanWindow)
		}

		if report.MeasuredAt == nil {
			if ts, ok := extractPreambleTime(cells); ok {
				report.MeasuredAt = &ts
			}
		}

		if columns, ok := ResolveColumns(cells); ok {
			report.Columns = columns
			p.logger.Debug("header row located",
				slog.String("path", path),
				slog.Int("line", line),
				slog.Int("columns", len(columns)))
		}
	}

	for {
		cells, err := source.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.NewIOError("failed to read report row", err).
				WithContext("path", path)
		}
		line++
		if isBlankRow(cells) {
			continue
		}
		report.Rows = append(report.Rows, RawRow{Line: line, Cells: cells})
	}

	return report, nil
}

func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// extractPreambleTime recognizes a timestamp-bearing preamble line. The
// value usually sits in the cell after the label, but single-cell lines
// (PDF-derived text exports) carry label and value together.
func extractPreambleTime(cells []string) (time.Time, bool) {
	for i, cell := range cells {
		lowered := strings.ToLower(strings.TrimSpace(cell))
		for _, label := range timestampLabels {
			if !strings.Contains(lowered, label) && !strings.Contains(cell, label) {
				continue
			}
			if i+1 < len(cells) {
				if ts, ok := ParseReportTime(cells[i+1]); ok {
					return ts, true
				}
			}
			if ts, ok := ParseReportTime(cell); ok {
				return ts, true
			}
		}
	}
	return time.Time{}, false
}

// keyenceMeridiem matches the instrument's localized 12-hour form, for
// example "2023/01/01 下午 01:23:45".
var keyenceMeridiem = regexp.MustCompile(`(\d+)/(\d+)/(\d+)\s+(上午|下午)\s*(\d+):(\d+):(\d+)`)

// reportTimeLayouts are tried in order for 24-hour timestamps.
var reportTimeLayouts = []string{
	"2006/01/02 15:04:05",
	"2006-01-02 15:04:05",
	"2006/1/2 15:04:05",
	"2006/01/02 15:04",
	"2006-01-02T15:04:05",
}

// ParseReportTime parses the timestamp formats observed in instrument
// reports, including the localized AM/PM form.
func ParseReportTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if m := keyenceMeridiem.FindStringSubmatch(s); m != nil {
		year, month, day := atoi(m[1]), atoi(m[2]), atoi(m[3])
		hour, minute, second := atoi(m[5]), atoi(m[6]), atoi(m[7])
		if m[4] == "下午" && hour < 12 {
			hour += 12
		} else if m[4] == "上午" && hour == 12 {
			hour = 0
		}
		return time.Date(year, time.Month(month), day, hour, minute, second, 0, time.Local), true
	}

	for _, layout := range reportTimeLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}

package dataprocessing

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "mdacli/internal/errors"
)

func writeReport(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const sampleReport = `Part Report,XR-5000
Serial Number,A-0042
測量日期及時間,2023/01/01 下午 01:23:45

No,Item,Measured Value,Design Value,Upper Tolerance,Lower Tolerance
1,Gap-A,100.2,100,5,-5
2,Gap-B,49.9,50,0.5,-0.5
3,Ref-Mark,12.01,0,0,0
`

func TestParseFileLocatesHeaderAfterPreamble(t *testing.T) {
	path := writeReport(t, "report.csv", sampleReport)

	parser := NewParser(nil, 60)
	report, err := parser.ParseFile(path)
	require.NoError(t, err)

	assert.Len(t, report.Rows, 3)
	assert.Equal(t, 0, report.Columns[FieldIndex])
	assert.Equal(t, 2, report.Columns[FieldMeasured])
	assert.Equal(t, 3, report.Columns[FieldDesign])

	// First data row sits right after the header.
	assert.Equal(t, []string{"1", "Gap-A", "100.2", "100", "5", "-5"}, report.Rows[0].Cells)
}

func TestParseFileExtractsPreambleTimestamp(t *testing.T) {
	path := writeReport(t, "report.csv", sampleReport)

	report, err := NewParser(nil, 60).ParseFile(path)
	require.NoError(t, err)

	require.NotNil(t, report.MeasuredAt)
	want := time.Date(2023, 1, 1, 13, 23, 45, 0, time.Local)
	assert.True(t, report.MeasuredAt.Equal(want), "got %v", report.MeasuredAt)
}

func TestParseFileHeaderNotFound(t *testing.T) {
	path := writeReport(t, "noise.csv", "just,instrument,noise\nmore,noise\n")

	_, err := NewParser(nil, 60).ParseFile(path)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeMalformedReport))
}

func TestParseFileScanWindowBounds(t *testing.T) {
	content := ""
	for i := 0; i < 10; i++ {
		content += "preamble,line\n"
	}
	content += "No,Measured Value,Design Value\n1,1.0,1.0\n"
	path := writeReport(t, "deep.csv", content)

	// Header on line 11 is out of reach for a 5-line window.
	_, err := NewParser(nil, 5).ParseFile(path)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeMalformedReport))

	report, err := NewParser(nil, 60).ParseFile(path)
	require.NoError(t, err)
	assert.Len(t, report.Rows, 1)
}

func TestParseFileSkipsBlankRows(t *testing.T) {
	path := writeReport(t, "gaps.csv", "No,Measured Value,Design Value\n1,1.0,1.0\n,,\n2,2.0,2.0\n")

	report, err := NewParser(nil, 60).ParseFile(path)
	require.NoError(t, err)
	assert.Len(t, report.Rows, 2)
}

func TestParseFileTabDelimited(t *testing.T) {
	path := writeReport(t, "report.txt", "No\tMeasured Value\tDesign Value\n1\t9.99\t10\n")

	report, err := NewParser(nil, 60).ParseFile(path)
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, "9.99", report.Rows[0].Cells[1])
}

func TestParseReportTime(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
		ok    bool
	}{
		{"keyence afternoon", "2023/01/01 下午 01:23:45", time.Date(2023, 1, 1, 13, 23, 45, 0, time.Local), true},
		{"keyence morning midnight", "2023/1/2 上午 12:05:00", time.Date(2023, 1, 2, 0, 5, 0, 0, time.Local), true},
		{"slash 24h", "2024/12/31 23:59:59", time.Date(2024, 12, 31, 23, 59, 59, 0, time.Local), true},
		{"dash 24h", "2024-06-01 08:00:00", time.Date(2024, 6, 1, 8, 0, 0, 0, time.Local), true},
		{"garbage", "not a time", time.Time{}, false},
		{"empty", "", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseReportTime(tt.input)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.True(t, got.Equal(tt.want), "got %v want %v", got, tt.want)
			}
		})
	}
}

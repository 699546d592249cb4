package dataprocessing

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/traditionalchinese"

	apperrors "mdacli/internal/errors"
)

// RowSource yields the raw rows of one report file in order. Both concrete
// sources (delimited text and Excel workbooks) produce the same row shape
// so everything downstream of the parser is format agnostic.
type RowSource interface {
	// Next returns the next row's cells, or io.EOF after the last row.
	Next() ([]string, error)
	Close() error
}

// OpenRowSource selects the concrete source by file extension.
func OpenRowSource(path string) (RowSource, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xls", ".xlsm":
		return openExcelSource(path)
	default:
		return openDelimitedSource(path)
	}
}

// delimitedSource reads comma- or tab-separated report text. Instrument
// exports arrive in several encodings (UTF-8 with or without BOM, Big5,
// Shift-JIS), so the whole file is decoded up front; report files are
// small enough that this never matters.
type delimitedSource struct {
	reader *csv.Reader
}

func openDelimitedSource(path string) (*delimitedSource, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewIOError("failed to read report file", err).
			WithContext("path", path)
	}

	decoded := decodeReportBytes(raw)

	r := csv.NewReader(strings.NewReader(decoded))
	r.Comma = sniffDelimiter(decoded)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	return &delimitedSource{reader: r}, nil
}

func (s *delimitedSource) Next() ([]string, error) {
	for {
		row, err := s.reader.Read()
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			// Preamble lines occasionally contain stray quotes the CSV
			// grammar rejects; skip the line rather than fail the file.
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				continue
			}
			return nil, err
		}
		return row, nil
	}
}

func (s *delimitedSource) Close() error { return nil }

// sniffDelimiter picks tab when the leading content carries more tabs than
// commas; some instrument firmware exports .txt reports tab separated.
func sniffDelimiter(content string) rune {
	head := content
	if len(head) > 4096 {
		head = head[:4096]
	}
	if strings.Count(head, "\t") > strings.Count(head, ",") {
		return '\t'
	}
	return ','
}

// decodeReportBytes converts raw report bytes to UTF-8, trying the
// encodings observed in the field in order.
func decodeReportBytes(raw []byte) string {
	raw = bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF})
	if utf8.Valid(raw) {
		return string(raw)
	}

	decoders := []encoding.Encoding{
		traditionalchinese.Big5, // also covers CP950 report exports
		japanese.ShiftJIS,
	}
	for _, enc := range decoders {
		decoded, err := enc.NewDecoder().Bytes(raw)
		if err == nil && utf8.Valid(decoded) {
			return string(decoded)
		}
	}

	// Last resort: hand the bytes through and let label matching fail
	// naturally, which surfaces as a malformed report.
	return string(raw)
}

// excelSource streams rows from the first populated sheet of a workbook.
type excelSource struct {
	file *excelize.File
	rows *excelize.Rows
}

func openExcelSource(path string) (*excelSource, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.NewIOError("failed to open workbook", err).
			WithContext("path", path)
	}

	for _, name := range f.GetSheetList() {
		rows, err := f.Rows(name)
		if err != nil {
			continue
		}
		if rows.Next() {
			// Rewind by reopening; the peeked row must not be lost.
			rows.Close()
			rows, err = f.Rows(name)
			if err != nil {
				continue
			}
			return &excelSource{file: f, rows: rows}, nil
		}
		rows.Close()
	}

	f.Close()
	return nil, apperrors.NewMalformedReportError("workbook has no populated sheet", nil).
		WithContext("path", path)
}

func (s *excelSource) Next() ([]string, error) {
	if !s.rows.Next() {
		if err := s.rows.Error(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	return s.rows.Columns()
}

func (s *excelSource) Close() error {
	s.rows.Close()
	return s.file.Close()
}

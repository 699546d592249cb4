// Package exporter writes the per-item statistics report as a flat
// delimited table, re-derivable deterministically from a session snapshot.
package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"mdacli/pkg/contracts/domain"
)

// naValue marks undefined figures in the exported table, matching what
// operators see in the statistics view.
const naValue = "---"

// StatisticsHeader is the column layout of the exported report.
var StatisticsHeader = []string{
	"Item",
	"SampleCount",
	"NGCount",
	"FailRate(%)",
	"Mean",
	"StdDev",
	"CPK",
	"SuggestedTolerance",
	"TargetYield",
}

// CSVWriter exports statistics reports as CSV.
type CSVWriter struct {
	logger *slog.Logger
	// bomPrefix adds a UTF-8 BOM so spreadsheet tools pick the right
	// encoding for CJK item names.
	bomPrefix bool
}

// NewCSVWriter creates a CSV writer. The BOM prefix is on by default.
func NewCSVWriter(logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{logger: logger, bomPrefix: true}
}

// WriteStatistics writes one row per measurement item. suggestions maps
// item name to its tolerance suggestion at the selected target yield;
// items without an entry (insufficient data) export the N/A marker.
func (w *CSVWriter) WriteStatistics(path string, snapshot []domain.ItemStatistics, suggestions map[string]domain.ToleranceSuggestion, targetYield float64) error {
	w.logger.Info("writing statistics report",
		slog.String("path", path),
		slog.Int("item_count", len(snapshot)),
		slog.Float64("target_yield", targetYield))

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	if w.bomPrefix {
		if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(StatisticsHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, stats := range snapshot {
		row := statisticsRow(stats, suggestions, targetYield)
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for %s: %w", stats.ItemName, err)
		}
	}

	return writer.Error()
}

func statisticsRow(stats domain.ItemStatistics, suggestions map[string]domain.ToleranceSuggestion, targetYield float64) []string {
	failRate := naValue
	if stats.FailRateValid {
		failRate = fmt.Sprintf("%.2f", stats.FailRate*100)
	}

	cpk := naValue
	if stats.CPKValid {
		cpk = fmt.Sprintf("%.3f", stats.CPK)
	}

	suggested := naValue
	if s, ok := suggestions[stats.ItemName]; ok {
		suggested = fmt.Sprintf("%.4f", s.SuggestedTolerance)
	}

	return []string{
		stats.ItemName,
		strconv.Itoa(stats.SampleCount),
		strconv.Itoa(stats.NGCount),
		failRate,
		fmt.Sprintf("%.4f", stats.Mean),
		fmt.Sprintf("%.4f", stats.StdDev),
		cpk,
		suggested,
		fmt.Sprintf("%.4f", targetYield),
	}
}

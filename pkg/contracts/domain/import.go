package domain

import "time"

// FileFailure describes one report file that contributed no records.
type FileFailure struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// RowFailure describes one unparseable row inside an otherwise valid file.
type RowFailure struct {
	Path   string `json:"path"`
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ImportResult aggregates the outcome of one folder import. Row- and
// file-level failures are collected here instead of aborting the batch;
// only a total I/O failure is reported as an error by the importer.
type ImportResult struct {
	BatchID        int64         `json:"batch_id"`
	SourcePath     string        `json:"source_path"`
	FilesProcessed int           `json:"files_processed"`
	FilesFailed    int           `json:"files_failed"`
	RecordsMerged  int           `json:"records_merged"`
	RowsFailed     int           `json:"rows_failed"`
	FileFailures   []FileFailure `json:"file_failures,omitempty"`
	RowFailures    []RowFailure  `json:"row_failures,omitempty"`
	// Canceled is set when the import stopped between files on context
	// cancellation. Files merged before that point stay merged.
	Canceled bool          `json:"canceled"`
	Duration time.Duration `json:"duration"`
}

// Progress is one import progress event, published per file so a
// presentation layer can track a long-running batch without polling.
type Progress struct {
	BatchID   int64  `json:"batch_id"`
	FileIndex int    `json:"file_index"`
	Total     int    `json:"total"`
	Path      string `json:"path"`
	SizeBytes int64  `json:"size_bytes"`
}

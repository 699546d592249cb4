// Package importer is the batch loader: it discovers report files in a
// user-selected folder, runs parse+normalize for each file on a bounded
// worker pool, and merges the results into the session store one file at a
// time so a cancellation never leaves a partially merged file behind.
package importer

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"mdacli/internal/dataprocessing"
	"mdacli/internal/session"
	"mdacli/pkg/contracts/domain"
)

// Options tunes one Importer.
type Options struct {
	// Workers bounds the parse/normalize pool. Zero selects 4.
	Workers int
	// HeaderScanWindow bounds the parser's preamble scan. Zero selects 60.
	HeaderScanWindow int
	// MaxFailureDetails caps the failure lists kept on an ImportResult;
	// the counts stay exact regardless. Zero selects 50.
	MaxFailureDetails int
	// OnProgress, when set, receives one event per file as work starts.
	// It is called from worker goroutines and must not block.
	OnProgress func(domain.Progress)
	// Metrics, when set, receives operational counters.
	Metrics *Metrics
}

// Importer loads folders of measurement reports into a session store.
type Importer struct {
	store      *session.Store
	parser     *dataprocessing.Parser
	normalizer *dataprocessing.Normalizer
	logger     *slog.Logger
	opts       Options
}

// New creates an Importer bound to one session store.
func New(store *session.Store, logger *slog.Logger, opts Options) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.MaxFailureDetails <= 0 {
		opts.MaxFailureDetails = 50
	}
	return &Importer{
		store:      store,
		parser:     dataprocessing.NewParser(logger, opts.HeaderScanWindow),
		normalizer: dataprocessing.NewNormalizer(),
		logger:     logger,
		opts:       opts,
	}
}

// fileOutcome is the parse+normalize result of one file, produced on a
// worker and merged sequentially afterwards.
type fileOutcome struct {
	records     []domain.MeasurementRecord
	rowFailures []domain.RowFailure
	failure     *domain.FileFailure
	skipped     bool
}

// ImportFolder ingests every report file of a folder as one batch.
//
// Row- and file-level problems are collected into the ImportResult and
// never abort the batch; only a total I/O failure (missing or unreadable
// folder) returns an error. Cancellation is honored between files: files
// fully processed before the context fired stay merged, the rest are
// skipped and the result is marked canceled.
func (im *Importer) ImportFolder(ctx context.Context, dir string) (*domain.ImportResult, error) {
	started := time.Now()

	files, err := DiscoverReportFiles(dir)
	if err != nil {
		return nil, err
	}

	batch := im.store.BeginBatch(dir, len(files))
	logger := im.logger.With(slog.Int64("batch_id", batch.BatchID), slog.String("path", dir))
	logger.InfoContext(ctx, "starting folder import", slog.Int("file_count", len(files)))

	outcomes := make([]fileOutcome, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(im.opts.Workers)
	for i, file := range files {
		g.Go(func() error {
			// Cancellation boundary: a file either runs to completion or
			// is not started at all.
			if gctx.Err() != nil {
				outcomes[i].skipped = true
				return nil
			}

			if im.opts.OnProgress != nil {
				im.opts.OnProgress(domain.Progress{
					BatchID:   batch.BatchID,
					FileIndex: i + 1,
					Total:     len(files),
					Path:      file.Path,
					SizeBytes: file.Size,
				})
			}

			outcomes[i] = im.processFile(gctx, file)
			return nil
		})
	}
	g.Wait()

	result := &domain.ImportResult{
		BatchID:    batch.BatchID,
		SourcePath: dir,
		Canceled:   ctx.Err() != nil,
	}

	// Merge sequentially in discovery order. Each file is one Merge call,
	// so readers see whole files or nothing.
	for _, outcome := range outcomes {
		if outcome.skipped {
			continue
		}
		if outcome.failure != nil {
			result.FilesFailed++
			if len(result.FileFailures) < im.opts.MaxFailureDetails {
				result.FileFailures = append(result.FileFailures, *outcome.failure)
			}
			continue
		}
		result.FilesProcessed++
		result.RecordsMerged += im.store.Merge(batch, outcome.records)
		result.RowsFailed += len(outcome.rowFailures)
		for _, rf := range outcome.rowFailures {
			if len(result.RowFailures) < im.opts.MaxFailureDetails {
				result.RowFailures = append(result.RowFailures, rf)
			}
		}
	}

	result.Duration = time.Since(started)
	im.record(result)

	logger.InfoContext(ctx, "folder import finished",
		slog.Int("files_processed", result.FilesProcessed),
		slog.Int("files_failed", result.FilesFailed),
		slog.Int("records_merged", result.RecordsMerged),
		slog.Int("rows_failed", result.RowsFailed),
		slog.Bool("canceled", result.Canceled),
		slog.Duration("duration", result.Duration))

	return result, nil
}

// processFile parses and normalizes one report. Failures are returned as
// data, never as errors, so one bad file cannot sink the batch.
func (im *Importer) processFile(ctx context.Context, file FileInfo) fileOutcome {
	report, err := im.parser.ParseFile(file.Path)
	if err != nil {
		im.logger.WarnContext(ctx, "report file skipped",
			slog.String("path", file.Path),
			slog.String("error", err.Error()))
		return fileOutcome{failure: &domain.FileFailure{Path: file.Path, Reason: err.Error()}}
	}

	records, rowFailures := im.normalizer.NormalizeReport(report, dataprocessing.FileContext{
		SourceFile: file.Name,
	})
	for _, rf := range rowFailures {
		im.logger.WarnContext(ctx, "report row skipped",
			slog.String("path", rf.Path),
			slog.Int("row", rf.Row),
			slog.String("reason", rf.Reason))
	}

	return fileOutcome{records: records, rowFailures: rowFailures}
}

func (im *Importer) record(result *domain.ImportResult) {
	m := im.opts.Metrics
	if m == nil {
		return
	}
	m.FilesProcessed.Add(float64(result.FilesProcessed))
	m.FilesFailed.Add(float64(result.FilesFailed))
	m.RecordsMerged.Add(float64(result.RecordsMerged))
	m.RowsFailed.Add(float64(result.RowsFailed))
	m.ImportDuration.Observe(result.Duration.Seconds())
}

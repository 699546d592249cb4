// Package services exposes the analysis engine's query surface to
// downstream consumers (CLI, HTTP transport, exports). Consumers read from
// the session through this layer and never write into it except by
// triggering imports or a reset.
package services

import (
	"context"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"mdacli/internal/config"
	apperrors "mdacli/internal/errors"
	"mdacli/internal/exporter"
	"mdacli/internal/importer"
	"mdacli/internal/session"
	"mdacli/internal/stats"
	"mdacli/pkg/contracts/domain"
)

// AnalysisService is the query surface over one analysis session.
type AnalysisService struct {
	store    *session.Store
	importer *importer.Importer
	solver   *stats.Solver
	writer   *exporter.CSVWriter
	logger   *slog.Logger
	validate *validator.Validate

	defaultTargetYield float64
}

// NewAnalysisService wires a session store, importer and solver into one
// service.
func NewAnalysisService(cfg *config.Config, store *session.Store, imp *importer.Importer, logger *slog.Logger) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisService{
		store:    store,
		importer: imp,
		solver: stats.NewSolver(
			cfg.Analysis.MinTargetYield,
			cfg.Analysis.MaxTargetYield,
			cfg.Analysis.MinSamples,
		),
		writer:             exporter.NewCSVWriter(logger),
		logger:             logger.With(slog.String("component", "analysis_service")),
		validate:           validator.New(),
		defaultTargetYield: cfg.Analysis.DefaultTargetYield,
	}
}

// DefaultTargetYield is the yield used when the caller does not pick one.
func (s *AnalysisService) DefaultTargetYield() float64 {
	return s.defaultTargetYield
}

// ImportFolder ingests one folder as a new batch. Repeated calls
// accumulate; Reset starts over.
func (s *AnalysisService) ImportFolder(ctx context.Context, path string) (*domain.ImportResult, error) {
	if path == "" {
		return nil, apperrors.NewInvalidParameterError("import path must not be empty")
	}
	return s.importer.ImportFolder(ctx, path)
}

// Reset clears the session for a fresh, non-accumulating analysis.
func (s *AnalysisService) Reset(ctx context.Context) {
	s.logger.InfoContext(ctx, "resetting analysis session")
	s.store.Reset()
}

// ListItems returns all accumulated item names in natural order.
func (s *AnalysisService) ListItems(ctx context.Context) []string {
	return s.store.ListItems()
}

// GetStatistics returns the derived statistics of one item.
func (s *AnalysisService) GetStatistics(ctx context.Context, itemName string) (domain.ItemStatistics, error) {
	return s.store.GetStatistics(itemName)
}

// GetRecords returns one item's records for histogram/trend rendering.
func (s *AnalysisService) GetRecords(ctx context.Context, itemName string) ([]domain.MeasurementRecord, error) {
	return s.store.GetRecords(itemName)
}

// Batches returns the import batches of this session.
func (s *AnalysisService) Batches(ctx context.Context) []domain.ImportBatch {
	return s.store.Batches()
}

// toleranceRequest carries the solver parameters through validation. The
// structural bounds come from the open yield interval; the configured
// domain is enforced by the solver itself.
type toleranceRequest struct {
	ItemName    string  `validate:"required"`
	TargetYield float64 `validate:"gt=0,lt=1"`
}

// SuggestTolerance reverse-solves the tolerance band for one item at the
// given target yield. A non-positive yield selects the configured default.
func (s *AnalysisService) SuggestTolerance(ctx context.Context, itemName string, targetYield float64) (domain.ToleranceSuggestion, error) {
	if targetYield == 0 {
		targetYield = s.defaultTargetYield
	}

	req := toleranceRequest{ItemName: itemName, TargetYield: targetYield}
	if err := s.validate.Struct(req); err != nil {
		return domain.ToleranceSuggestion{}, apperrors.NewInvalidParameterError(err.Error())
	}

	records, err := s.store.GetRecords(itemName)
	if err != nil {
		return domain.ToleranceSuggestion{}, err
	}
	return s.solver.SuggestTolerance(itemName, records, targetYield)
}

// ExportStatistics writes the statistics report for the current session
// state, including suggested tolerances at the given yield. Items whose
// suggestion is undefined export as N/A rather than failing the report.
func (s *AnalysisService) ExportStatistics(ctx context.Context, path string, targetYield float64) error {
	if targetYield == 0 {
		targetYield = s.defaultTargetYield
	}
	if err := s.solver.ValidateYield(targetYield); err != nil {
		return err
	}

	snapshot := s.store.Snapshot()
	suggestions := make(map[string]domain.ToleranceSuggestion, len(snapshot))
	for _, item := range snapshot {
		records, err := s.store.GetRecords(item.ItemName)
		if err != nil {
			continue
		}
		suggestion, err := s.solver.SuggestTolerance(item.ItemName, records, targetYield)
		if err != nil {
			// Insufficient data is expected for thin series; anything else
			// still only blanks the column, never the report.
			if !apperrors.IsType(err, apperrors.ErrTypeInsufficientData) {
				s.logger.WarnContext(ctx, "tolerance suggestion unavailable",
					slog.String("item", item.ItemName),
					slog.String("error", err.Error()))
			}
			continue
		}
		suggestions[item.ItemName] = suggestion
	}

	return s.writer.WriteStatistics(path, snapshot, suggestions, targetYield)
}

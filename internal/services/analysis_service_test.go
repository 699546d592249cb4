package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mdacli/internal/config"
	apperrors "mdacli/internal/errors"
	"mdacli/internal/importer"
	"mdacli/internal/session"
	"mdacli/internal/stats"
)

const sampleReport = `No.,Item,Measured,Design,Upper Tol,Lower Tol
1,Gap-A,98,100,5,-5
2,Gap-A,99,100,5,-5
3,Gap-A,100,100,5,-5
4,Gap-A,101,100,5,-5
5,Gap-A,102,100,5,-5
6,Gap-A,103,100,5,-5
7,Gap-A,97,100,5,-5
8,Gap-A,100,100,5,-5
9,Gap-A,104,100,5,-5
10,Gap-A,100,100,5,-5
11,Thin-B,50.1,50,2,-2
`

func newTestService(t *testing.T) *AnalysisService {
	t.Helper()
	cfg := config.Default()
	store := session.NewStore(stats.NewEngine(cfg.Analysis.MinSamples), nil)
	imp := importer.New(store, nil, importer.Options{})
	return NewAnalysisService(cfg, store, imp, nil)
}

func importSample(t *testing.T, svc *AnalysisService) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "run.csv"), []byte(sampleReport), 0o644))
	result, err := svc.ImportFolder(context.Background(), dir)
	require.NoError(t, err)
	require.Equal(t, 11, result.RecordsMerged)
}

func TestImportFolderEmptyPath(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.ImportFolder(context.Background(), "")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeInvalidParameter))
}

func TestQuerySurface(t *testing.T) {
	svc := newTestService(t)
	importSample(t, svc)
	ctx := context.Background()

	assert.Equal(t, []string{"Gap-A", "Thin-B"}, svc.ListItems(ctx))

	stats, err := svc.GetStatistics(ctx, "Gap-A")
	require.NoError(t, err)
	assert.Equal(t, 10, stats.SampleCount)
	assert.InDelta(t, 100.4, stats.Mean, 1e-9)

	records, err := svc.GetRecords(ctx, "Gap-A")
	require.NoError(t, err)
	assert.Len(t, records, 10)

	_, err = svc.GetStatistics(ctx, "nope")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))

	assert.Len(t, svc.Batches(ctx), 1)
}

func TestReset(t *testing.T) {
	svc := newTestService(t)
	importSample(t, svc)
	ctx := context.Background()

	svc.Reset(ctx)
	assert.Empty(t, svc.ListItems(ctx))
}

func TestSuggestTolerance(t *testing.T) {
	svc := newTestService(t)
	importSample(t, svc)
	ctx := context.Background()

	t.Run("zero yield selects the default", func(t *testing.T) {
		suggestion, err := svc.SuggestTolerance(ctx, "Gap-A", 0)
		require.NoError(t, err)
		assert.InDelta(t, svc.DefaultTargetYield(), suggestion.TargetYield, 1e-12)
		assert.InDelta(t, 1.6449, suggestion.ZScore, 1e-3)
	})

	t.Run("explicit yield", func(t *testing.T) {
		suggestion, err := svc.SuggestTolerance(ctx, "Gap-A", 0.9973)
		require.NoError(t, err)
		assert.InDelta(t, 3.0, suggestion.ZScore, 1e-3)
	})

	t.Run("out of domain yield", func(t *testing.T) {
		_, err := svc.SuggestTolerance(ctx, "Gap-A", 0.5)
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeInvalidParameter))
	})

	t.Run("structurally invalid yield", func(t *testing.T) {
		_, err := svc.SuggestTolerance(ctx, "Gap-A", 1.5)
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeInvalidParameter))
	})

	t.Run("missing item name", func(t *testing.T) {
		_, err := svc.SuggestTolerance(ctx, "", 0.90)
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeInvalidParameter))
	})

	t.Run("unknown item", func(t *testing.T) {
		_, err := svc.SuggestTolerance(ctx, "nope", 0.90)
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))
	})

	t.Run("single-sample item", func(t *testing.T) {
		_, err := svc.SuggestTolerance(ctx, "Thin-B", 0.90)
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeInsufficientData))
	})
}

func TestExportStatistics(t *testing.T) {
	svc := newTestService(t)
	importSample(t, svc)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "stats.csv")
	require.NoError(t, svc.ExportStatistics(ctx, path, 0.90))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(raw)

	// Gap-A gets a suggestion; the single-sample item exports N/A markers
	// instead of failing the report.
	assert.Contains(t, content, "Gap-A")
	assert.Contains(t, content, "Thin-B")
	assert.True(t, strings.Contains(content, "---"))

	t.Run("out of domain yield is rejected upfront", func(t *testing.T) {
		err := svc.ExportStatistics(ctx, filepath.Join(t.TempDir(), "x.csv"), 0.5)
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeInvalidParameter))
	})
}

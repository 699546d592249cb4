package importer

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "mdacli/internal/errors"
	"mdacli/internal/session"
	"mdacli/internal/stats"
	"mdacli/pkg/contracts/domain"
)

const goodReport = `Measurement Data Analyzer
測量日期及時間,2023/01/01 上午 09:15:30

No.,Item,Measured,Design,Upper Tol,Lower Tol
1,Gap-A,100.2,100,5,-5
2,Gap-A,99.1,100,5,-5
3,Width-B,50.5,50,2,-2
`

const reportWithBadRow = `No.,Item,Measured,Design,Upper Tol,Lower Tol
1,Gap-A,101.0,100,5,-5
2,Gap-A,not-a-number,100,5,-5
3,Gap-A,99.5,100,5,-5
`

func writeFolder(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func newTestImporter(opts Options) (*Importer, *session.Store) {
	store := session.NewStore(stats.NewEngine(30), nil)
	return New(store, nil, opts), store
}

func TestImportFolder(t *testing.T) {
	dir := writeFolder(t, map[string]string{
		"run1.csv": goodReport,
		"run2.csv": goodReport,
	})
	imp, store := newTestImporter(Options{})

	result, err := imp.ImportFolder(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 2, result.FilesProcessed)
	assert.Equal(t, 0, result.FilesFailed)
	assert.Equal(t, 6, result.RecordsMerged)
	assert.Equal(t, 0, result.RowsFailed)
	assert.False(t, result.Canceled)

	assert.Equal(t, []string{"Gap-A", "Width-B"}, store.ListItems())
	gapStats, err := store.GetStatistics("Gap-A")
	require.NoError(t, err)
	assert.Equal(t, 4, gapStats.SampleCount)
}

func TestImportFolderMalformedFileSkipped(t *testing.T) {
	dir := writeFolder(t, map[string]string{
		"good.csv": goodReport,
		"junk.csv": "this file has\nno recognizable header\nat all\n",
	})
	imp, store := newTestImporter(Options{})

	result, err := imp.ImportFolder(context.Background(), dir)
	require.NoError(t, err)

	// The malformed file fails alone; its sibling still merges.
	assert.Equal(t, 1, result.FilesProcessed)
	assert.Equal(t, 1, result.FilesFailed)
	require.Len(t, result.FileFailures, 1)
	assert.Contains(t, result.FileFailures[0].Path, "junk.csv")
	assert.Equal(t, 3, result.RecordsMerged)

	gapStats, err := store.GetStatistics("Gap-A")
	require.NoError(t, err)
	assert.Equal(t, 2, gapStats.SampleCount)
}

func TestImportFolderBadRowsCounted(t *testing.T) {
	dir := writeFolder(t, map[string]string{"run.csv": reportWithBadRow})
	imp, store := newTestImporter(Options{})

	result, err := imp.ImportFolder(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 1, result.FilesProcessed)
	assert.Equal(t, 2, result.RecordsMerged)
	assert.Equal(t, 1, result.RowsFailed)
	require.Len(t, result.RowFailures, 1)
	assert.Equal(t, 3, result.RowFailures[0].Row)

	gapStats, err := store.GetStatistics("Gap-A")
	require.NoError(t, err)
	assert.Equal(t, 2, gapStats.SampleCount)
}

func TestImportFolderAccumulatesOnReimport(t *testing.T) {
	dir := writeFolder(t, map[string]string{"run.csv": goodReport})
	imp, store := newTestImporter(Options{})

	first, err := imp.ImportFolder(context.Background(), dir)
	require.NoError(t, err)
	second, err := imp.ImportFolder(context.Background(), dir)
	require.NoError(t, err)

	// Append-only accumulation: the same folder twice doubles the series.
	assert.Greater(t, second.BatchID, first.BatchID)
	gapStats, err := store.GetStatistics("Gap-A")
	require.NoError(t, err)
	assert.Equal(t, 4, gapStats.SampleCount)
	assert.Len(t, store.Batches(), 2)
}

func TestImportFolderMissingDir(t *testing.T) {
	imp, _ := newTestImporter(Options{})

	_, err := imp.ImportFolder(context.Background(), filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeIO))
}

func TestImportFolderEmptyDir(t *testing.T) {
	imp, _ := newTestImporter(Options{})

	result, err := imp.ImportFolder(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 0, result.FilesProcessed)
	assert.Equal(t, 0, result.RecordsMerged)
}

func TestImportFolderProgressEvents(t *testing.T) {
	dir := writeFolder(t, map[string]string{
		"a.csv": goodReport,
		"b.csv": goodReport,
		"c.csv": goodReport,
	})

	var mu sync.Mutex
	var events []domain.Progress
	imp, _ := newTestImporter(Options{
		Workers: 1,
		OnProgress: func(p domain.Progress) {
			mu.Lock()
			events = append(events, p)
			mu.Unlock()
		},
	})

	result, err := imp.ImportFolder(context.Background(), dir)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 3)
	for _, e := range events {
		assert.Equal(t, result.BatchID, e.BatchID)
		assert.Equal(t, 3, e.Total)
		assert.Positive(t, e.SizeBytes)
	}
	// A single worker reports files in discovery order.
	assert.Contains(t, events[0].Path, "a.csv")
	assert.Equal(t, 1, events[0].FileIndex)
}

func TestImportFolderCanceledContext(t *testing.T) {
	dir := writeFolder(t, map[string]string{
		"a.csv": goodReport,
		"b.csv": goodReport,
	})
	imp, store := newTestImporter(Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := imp.ImportFolder(ctx, dir)
	require.NoError(t, err)

	// Nothing was started after cancellation, so nothing merged.
	assert.True(t, result.Canceled)
	assert.Equal(t, 0, result.FilesProcessed)
	assert.Equal(t, 0, result.RecordsMerged)
	assert.Empty(t, store.ListItems())
}

func TestImportFolderFailureDetailCap(t *testing.T) {
	dir := writeFolder(t, map[string]string{
		"bad1.csv": "garbage\n",
		"bad2.csv": "garbage\n",
		"bad3.csv": "garbage\n",
	})
	imp, _ := newTestImporter(Options{MaxFailureDetails: 2})

	result, err := imp.ImportFolder(context.Background(), dir)
	require.NoError(t, err)

	// Counts stay exact even when the detail list is capped.
	assert.Equal(t, 3, result.FilesFailed)
	assert.Len(t, result.FileFailures, 2)
}

func TestDiscoverReportFiles(t *testing.T) {
	dir := writeFolder(t, map[string]string{
		"b.csv":      "x",
		"a.txt":      "x",
		"notes.md":   "x",
		"sheet.xlsx": "x",
	})
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	files, err := DiscoverReportFiles(dir)
	require.NoError(t, err)

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	// Non-report extensions and subdirectories are ignored; order is by name.
	assert.Equal(t, []string{"a.txt", "b.csv", "sheet.xlsx"}, names)
}

package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mdacli/internal/config"
	"mdacli/internal/importer"
	"mdacli/internal/services"
	"mdacli/internal/session"
	"mdacli/internal/stats"
	v1 "mdacli/pkg/contracts/api/v1"
	"mdacli/pkg/contracts/domain"
)

const handlerReport = `No.,Item,Measured,Design,Upper Tol,Lower Tol
1,Gap-A,100.2,100,5,-5
2,Gap-A,99.1,100,5,-5
3,Gap-A,101.4,100,5,-5
`

type capturingPublisher struct {
	mu      sync.Mutex
	results []*domain.ImportResult
	resets  int
}

func (p *capturingPublisher) PublishResult(r *domain.ImportResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results = append(p.results, r)
}

func (p *capturingPublisher) PublishReset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resets++
}

func newTestServer(t *testing.T) (*httptest.Server, *capturingPublisher, string) {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "run.csv"), []byte(handlerReport), 0o644))

	cfg := config.Default()
	store := session.NewStore(stats.NewEngine(cfg.Analysis.MinSamples), nil)
	imp := importer.New(store, nil, importer.Options{})
	svc := services.NewAnalysisService(cfg, store, imp, nil)

	publisher := &capturingPublisher{}
	handler := NewAnalysisHandler(svc, publisher, nil)

	ts := httptest.NewServer(handler.Routes())
	t.Cleanup(ts.Close)
	return ts, publisher, dir
}

func importVia(t *testing.T, ts *httptest.Server, path string) *http.Response {
	t.Helper()
	body, err := json.Marshal(v1.ImportRequest{Path: path})
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+"/import", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestImportEndpoint(t *testing.T) {
	ts, publisher, dir := newTestServer(t)

	resp := importVia(t, ts, dir)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result domain.ImportResult
	decodeJSON(t, resp, &result)
	assert.Equal(t, 1, result.FilesProcessed)
	assert.Equal(t, 3, result.RecordsMerged)

	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	assert.Len(t, publisher.results, 1)
}

func TestImportEndpointValidation(t *testing.T) {
	ts, _, _ := newTestServer(t)

	t.Run("missing path", func(t *testing.T) {
		resp := importVia(t, ts, "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("malformed body", func(t *testing.T) {
		resp, err := http.Post(ts.URL+"/import", "application/json", bytes.NewReader([]byte("{")))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("missing folder", func(t *testing.T) {
		resp := importVia(t, ts, filepath.Join(t.TempDir(), "nope"))
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})
}

func TestListItemsEndpoint(t *testing.T) {
	ts, _, dir := newTestServer(t)

	resp, err := http.Get(ts.URL + "/items")
	require.NoError(t, err)
	defer resp.Body.Close()
	var empty v1.ItemListResponse
	decodeJSON(t, resp, &empty)
	assert.Equal(t, 0, empty.Count)

	importVia(t, ts, dir)

	resp, err = http.Get(ts.URL + "/items")
	require.NoError(t, err)
	defer resp.Body.Close()
	var listed v1.ItemListResponse
	decodeJSON(t, resp, &listed)
	assert.Equal(t, []string{"Gap-A"}, listed.Items)
	assert.Equal(t, 1, listed.Count)
}

func TestStatisticsEndpoint(t *testing.T) {
	ts, _, dir := newTestServer(t)
	importVia(t, ts, dir)

	resp, err := http.Get(ts.URL + "/items/Gap-A/statistics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats domain.ItemStatistics
	decodeJSON(t, resp, &stats)
	assert.Equal(t, "Gap-A", stats.ItemName)
	assert.Equal(t, 3, stats.SampleCount)

	t.Run("unknown item", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/items/nope/statistics")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestRecordsEndpoint(t *testing.T) {
	ts, _, dir := newTestServer(t)
	importVia(t, ts, dir)

	resp, err := http.Get(ts.URL + "/items/Gap-A/records")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var records v1.RecordsResponse
	decodeJSON(t, resp, &records)
	assert.Equal(t, "Gap-A", records.ItemName)
	assert.Equal(t, 3, records.Count)
	assert.Len(t, records.Records, 3)
}

func TestToleranceEndpoint(t *testing.T) {
	ts, _, dir := newTestServer(t)
	importVia(t, ts, dir)

	t.Run("default yield", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/items/Gap-A/tolerance")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var suggestion domain.ToleranceSuggestion
		decodeJSON(t, resp, &suggestion)
		assert.InDelta(t, 0.90, suggestion.TargetYield, 1e-12)
	})

	t.Run("explicit yield", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/items/Gap-A/tolerance?target_yield=0.9973")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var suggestion domain.ToleranceSuggestion
		decodeJSON(t, resp, &suggestion)
		assert.InDelta(t, 3.0, suggestion.ZScore, 1e-3)
	})

	t.Run("non-numeric yield", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/items/Gap-A/tolerance?target_yield=abc")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("out of domain yield", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/items/Gap-A/tolerance?target_yield=0.5")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestBatchesEndpoint(t *testing.T) {
	ts, _, dir := newTestServer(t)
	importVia(t, ts, dir)
	importVia(t, ts, dir)

	resp, err := http.Get(ts.URL + "/batches")
	require.NoError(t, err)
	defer resp.Body.Close()

	var batches []domain.ImportBatch
	decodeJSON(t, resp, &batches)
	assert.Len(t, batches, 2)
}

func TestResetEndpoint(t *testing.T) {
	ts, publisher, dir := newTestServer(t)
	importVia(t, ts, dir)

	resp, err := http.Post(ts.URL+"/reset", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	itemsResp, err := http.Get(ts.URL + "/items")
	require.NoError(t, err)
	defer itemsResp.Body.Close()
	var listed v1.ItemListResponse
	decodeJSON(t, itemsResp, &listed)
	assert.Equal(t, 0, listed.Count)

	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	assert.Equal(t, 1, publisher.resets)
}

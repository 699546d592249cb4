// Package http exposes the analysis engine's query surface over HTTP for
// presentation layers. Handlers read from the service and never mutate
// session state except by triggering imports or a reset.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "mdacli/internal/errors"
	v1 "mdacli/pkg/contracts/api/v1"
	"mdacli/pkg/contracts/domain"
)

// AnalysisServiceInterface is the slice of the service the handlers need.
type AnalysisServiceInterface interface {
	ImportFolder(ctx context.Context, path string) (*domain.ImportResult, error)
	Reset(ctx context.Context)
	ListItems(ctx context.Context) []string
	GetStatistics(ctx context.Context, itemName string) (domain.ItemStatistics, error)
	GetRecords(ctx context.Context, itemName string) ([]domain.MeasurementRecord, error)
	SuggestTolerance(ctx context.Context, itemName string, targetYield float64) (domain.ToleranceSuggestion, error)
	Batches(ctx context.Context) []domain.ImportBatch
	DefaultTargetYield() float64
}

// ProgressPublisher receives session lifecycle announcements for push
// clients. Nil-safe no-op when the server runs without the hub.
type ProgressPublisher interface {
	PublishResult(*domain.ImportResult)
	PublishReset()
}

// AnalysisHandler handles the analysis API routes.
type AnalysisHandler struct {
	service   AnalysisServiceInterface
	publisher ProgressPublisher
	logger    *slog.Logger

	// ImportLimiter, when set, wraps the import endpoint only; reads stay
	// unthrottled.
	ImportLimiter func(http.Handler) http.Handler
}

// NewAnalysisHandler creates an analysis handler. publisher may be nil.
func NewAnalysisHandler(service AnalysisServiceInterface, publisher ProgressPublisher, logger *slog.Logger) *AnalysisHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisHandler{
		service:   service,
		publisher: publisher,
		logger:    logger.With(slog.String("component", "analysis_handler")),
	}
}

// Routes returns the analysis routes.
func (h *AnalysisHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/items", h.ListItems)
	r.Route("/items/{item}", func(r chi.Router) {
		r.Use(h.ItemCtx)
		r.Get("/statistics", h.GetStatistics)
		r.Get("/records", h.GetRecords)
		r.Get("/tolerance", h.SuggestTolerance)
	})
	r.Get("/batches", h.GetBatches)
	if h.ImportLimiter != nil {
		r.With(h.ImportLimiter).Post("/import", h.ImportFolder)
	} else {
		r.Post("/import", h.ImportFolder)
	}
	r.Post("/reset", h.Reset)

	return r
}

type itemCtxKey struct{}

// ItemCtx validates the item parameter and loads it into the context.
func (h *AnalysisHandler) ItemCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		item := chi.URLParam(r, "item")
		if item == "" {
			apierrors.WriteError(w, apierrors.ErrValidation("item", "Item name is required"))
			return
		}
		ctx := context.WithValue(r.Context(), itemCtxKey{}, item)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func itemFromContext(ctx context.Context) string {
	item, _ := ctx.Value(itemCtxKey{}).(string)
	return item
}

// ListItems returns all accumulated item names in natural order.
func (h *AnalysisHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items := h.service.ListItems(r.Context())
	render.JSON(w, r, v1.ItemListResponse{Items: items, Count: len(items)})
}

// GetStatistics returns the derived statistics of one item.
func (h *AnalysisHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetStatistics(r.Context(), itemFromContext(r.Context()))
	if err != nil {
		apierrors.WriteError(w, apierrors.FromAppError(err))
		return
	}
	render.JSON(w, r, stats)
}

// GetRecords returns one item's records for histogram/trend rendering.
func (h *AnalysisHandler) GetRecords(w http.ResponseWriter, r *http.Request) {
	item := itemFromContext(r.Context())
	records, err := h.service.GetRecords(r.Context(), item)
	if err != nil {
		apierrors.WriteError(w, apierrors.FromAppError(err))
		return
	}
	render.JSON(w, r, v1.RecordsResponse{ItemName: item, Records: records, Count: len(records)})
}

// SuggestTolerance reverse-solves a tolerance band. The target yield comes
// from the query string; absent means the configured default.
func (h *AnalysisHandler) SuggestTolerance(w http.ResponseWriter, r *http.Request) {
	item := itemFromContext(r.Context())

	targetYield := h.service.DefaultTargetYield()
	if raw := r.URL.Query().Get("target_yield"); raw != "" {
		parsed, ok := parseFloatParam(raw)
		if !ok {
			apierrors.WriteError(w, apierrors.ErrValidation("target_yield", "must be a number"))
			return
		}
		targetYield = parsed
	}

	suggestion, err := h.service.SuggestTolerance(r.Context(), item, targetYield)
	if err != nil {
		apierrors.WriteError(w, apierrors.FromAppError(err))
		return
	}
	render.JSON(w, r, suggestion)
}

// GetBatches returns the import batches of this session.
func (h *AnalysisHandler) GetBatches(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Batches(r.Context()))
}

// ImportFolder ingests one folder as a new batch. Partial failures come
// back inside the result; only a total I/O failure is an error response.
func (h *AnalysisHandler) ImportFolder(w http.ResponseWriter, r *http.Request) {
	var req v1.ImportRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		apierrors.WriteError(w, apierrors.InvalidRequestWithError(err))
		return
	}
	if req.Path == "" {
		apierrors.WriteError(w, apierrors.ErrValidation("path", "Import path is required"))
		return
	}

	result, err := h.service.ImportFolder(r.Context(), req.Path)
	if err != nil {
		apierrors.WriteError(w, apierrors.FromAppError(err))
		return
	}

	if h.publisher != nil {
		h.publisher.PublishResult(result)
	}
	render.JSON(w, r, result)
}

// Reset clears the session for a fresh analysis.
func (h *AnalysisHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.service.Reset(r.Context())
	if h.publisher != nil {
		h.publisher.PublishReset()
	}
	render.JSON(w, r, v1.ResetResponse{Success: true})
}

func parseFloatParam(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil
}

package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/dmikhr/catalog-imagery/internal/core/domain"
	"github.com/dmikhr/catalog-imagery/internal/core/port"
	"github.com/dmikhr/catalog-imagery/pkg/locator"
)

// POST /v1/images/{imageId}/remove-background  body {provider?} (200, 400, 404, 409, 500)
// POST /v1/images/remove-background            body {items} per-item outcomes (200, 400)
// GET  /v1/products/{sku}/images               merged image list (200, 404)
// POST /v1/products/{sku}/images               register upload record (201, 400)

type ImagesHandler struct {
	resolver port.ImageResolver
	remover  port.BackgroundRemover
}

func RegisterImages(
	mux *http.ServeMux,
	resolver port.ImageResolver,
	remover port.BackgroundRemover,
) {
	h := ImagesHandler{resolver, remover}
	mux.HandleFunc("POST /v1/images/{imageId}/remove-background", h.RemoveBackground)
	mux.HandleFunc("POST /v1/images/remove-background", h.RemoveBackgroundBatch)
}

func (h ImagesHandler) RemoveBackground(w http.ResponseWriter, r *http.Request) {
	const op = "ImagesHandler.RemoveBackground"
	log := slog.With("op", op)

	var req RemoveRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "")
		log.Warn("failed to parse JSON", "err", err)
		return
	}

	token := r.PathValue("imageId")
	res := h.removeOne(r.Context(), token, req.Provider)
	if res.failStatus != 0 {
		writeError(w, res.failStatus, res.failCode, res.failDetail)
		log.Warn("removal failed", "imageId", token, "code", res.failCode)
		return
	}

	writeJSON(w, http.StatusOK, RemoveResponse{
		Success:          true,
		ImageID:          res.imageID,
		ProcessedLocator: res.processedLocator,
		ProviderUsed:     res.providerUsed,
	})
	log.Info("background removed",
		"imageId", token, "provider", res.providerUsed)
}

// RemoveBackgroundBatch processes items sequentially and reports every
// per-item outcome together: there is no batch-level atomicity.
func (h ImagesHandler) RemoveBackgroundBatch(w http.ResponseWriter, r *http.Request) {
	const op = "ImagesHandler.RemoveBackgroundBatch"
	log := slog.With("op", op)

	var req BatchRemoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "")
		log.Warn("failed to parse JSON", "err", err)
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "empty_batch", "")
		return
	}

	results := make([]BatchRemoveResult, 0, len(req.Items))
	for _, item := range req.Items {
		res := h.removeOne(r.Context(), item.ImageID, item.Provider)
		out := BatchRemoveResult{ImageID: item.ImageID}
		if res.failStatus != 0 {
			out.Error = res.failCode
		} else {
			out.Success = true
			out.ProcessedLocator = res.processedLocator
			out.ProviderUsed = res.providerUsed
		}
		results = append(results, out)
	}

	writeJSON(w, http.StatusOK, BatchRemoveResponse{Results: results})
	log.Info("batch processed", "nItems", len(results))
}

type removalResult struct {
	imageID          int64
	processedLocator string
	providerUsed     string

	failStatus int
	failCode   string
	failDetail string
}

func (h ImagesHandler) removeOne(
	ctx context.Context, token, providerHint string,
) removalResult {
	loc, err := locator.Parse(token)
	if err != nil {
		return removalResult{
			failStatus: http.StatusBadRequest,
			failCode:   "malformed_locator",
		}
	}

	img, err := h.resolver.Resolve(ctx, loc)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return removalResult{
				failStatus: http.StatusNotFound,
				failCode:   "not_found",
			}
		}
		return removalResult{
			failStatus: http.StatusInternalServerError,
			failCode:   "internal_error",
		}
	}

	outcome, err := h.remover.RemoveBackground(ctx, img, providerHint)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidTransition):
			return removalResult{
				failStatus: http.StatusConflict,
				failCode:   "already_completed",
			}
		case errors.Is(err, domain.ErrAllProvidersFailed):
			return removalResult{
				failStatus: http.StatusInternalServerError,
				failCode:   "processing_failed",
				failDetail: err.Error(),
			}
		default:
			return removalResult{
				failStatus: http.StatusInternalServerError,
				failCode:   "internal_error",
			}
		}
	}

	var imageID int64
	if img.Record != nil {
		imageID = img.Record.ID
	}
	return removalResult{
		imageID:          imageID,
		processedLocator: outcome.ProcessedLocator,
		providerUsed:     outcome.Provider,
	}
}

type ProductsHandler struct {
	merger    port.ImageMerger
	registrar port.ImageRegistrar
}

func RegisterProducts(
	mux *http.ServeMux,
	merger port.ImageMerger,
	registrar port.ImageRegistrar,
) {
	h := ProductsHandler{merger, registrar}
	mux.HandleFunc("GET /v1/products/{sku}/images", h.ProductImages)
	mux.HandleFunc("POST /v1/products/{sku}/images", h.RegisterImage)
}

func (h ProductsHandler) ProductImages(w http.ResponseWriter, r *http.Request) {
	const op = "ProductsHandler.ProductImages"
	log := slog.With("op", op)

	sku := r.PathValue("sku")
	views, err := h.merger.MergedImages(r.Context(), sku)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		log.Error("failed to merge images", "sku", sku, "err", err)
		return
	}

	out := ImagesResponse{Images: make([]ImageView, 0, len(views))}
	for _, v := range views {
		out.Images = append(out.Images, toImageView(v))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h ProductsHandler) RegisterImage(w http.ResponseWriter, r *http.Request) {
	const op = "ProductsHandler.RegisterImage"
	log := slog.With("op", op)

	var req RegisterImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
		req.OriginalLocator == "" {
		writeError(w, http.StatusBadRequest, "invalid_json", "")
		return
	}

	sku := r.PathValue("sku")
	rec, err := h.registrar.RegisterImage(r.Context(), sku, req.OriginalLocator)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		log.Error("failed to register image", "sku", sku, "err", err)
		return
	}

	writeJSON(w, http.StatusCreated, toImageRecord(rec))
	log.Info("image registered", "sku", sku, "imageId", rec.ID)
}

func decodeOptionalJSON(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response body", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, ErrorResponse{Error: code, Detail: detail})
}

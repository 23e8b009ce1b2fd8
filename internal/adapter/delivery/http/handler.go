package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/vadimbarashkov/short-links/internal/entity"
	"github.com/vadimbarashkov/short-links/internal/stats"
	"github.com/vadimbarashkov/short-links/internal/usecase"
	"github.com/vadimbarashkov/short-links/internal/validation"
	"github.com/vadimbarashkov/short-links/pkg/response"
)

func handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "pong")
}

type urlUseCase interface {
	ShortenURL(ctx context.Context, in usecase.ShortenInput) (*entity.URL, error)
	ResolveShortCode(ctx context.Context, shortCode string) (*entity.URL, error)
	DeleteURL(ctx context.Context, id string) error
	ListURLs(ctx context.Context) ([]stats.URLStats, error)
	GetStats(ctx context.Context) (*stats.Report, error)
	ShortURL(shortCode string) string
}

type urlHandler struct {
	useCase         urlUseCase
	validator       *validation.Validator
	defaultValidity int
}

func newURLHandler(useCase urlUseCase, validator *validation.Validator, defaultValidity int) *urlHandler {
	return &urlHandler{
		useCase:         useCase,
		validator:       validator,
		defaultValidity: defaultValidity,
	}
}

func (h *urlHandler) shortenURL(w http.ResponseWriter, r *http.Request) {
	var req urlRequest

	if err := render.DecodeJSON(r.Body, &req); err != nil {
		if errors.Is(err, io.EOF) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.EmptyRequestBodyResponse)
			return
		}

		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.InvalidRequestBodyResponse)
		return
	}

	if err := h.validator.Struct(req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.ValidationErrorResponse(err))
		return
	}

	validity := h.defaultValidity
	if req.ValidityMinutes != nil {
		validity = *req.ValidityMinutes
	}

	url, err := h.useCase.ShortenURL(r.Context(), usecase.ShortenInput{
		OriginalURL:     req.OriginalURL,
		ShortCode:       req.ShortCode,
		ValidityMinutes: validity,
	})
	if err != nil {
		h.renderError(w, r, "http.urlHandler.shortenURL", err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.SuccessResponse(
		http.StatusCreated,
		"Short URL created.",
		toURLResponse(url, h.useCase.ShortURL(url.ShortCode)),
	))
}

func (h *urlHandler) resolveShortCode(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")

	url, err := h.useCase.ResolveShortCode(r.Context(), shortCode)
	if err != nil {
		h.renderError(w, r, "http.urlHandler.resolveShortCode", err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response.SuccessResponse(
		http.StatusOK,
		"Short URL resolved.",
		toURLResponse(url, h.useCase.ShortURL(url.ShortCode)),
	))
}

func (h *urlHandler) redirect(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")

	url, err := h.useCase.ResolveShortCode(r.Context(), shortCode)
	if err != nil {
		h.renderError(w, r, "http.urlHandler.redirect", err)
		return
	}

	http.Redirect(w, r, url.OriginalURL, http.StatusFound)
}

func (h *urlHandler) deleteURL(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.useCase.DeleteURL(r.Context(), id); err != nil {
		h.renderError(w, r, "http.urlHandler.deleteURL", err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response.SuccessResponse(http.StatusOK, "Short URL deleted."))
}

func (h *urlHandler) listURLs(w http.ResponseWriter, r *http.Request) {
	list, err := h.useCase.ListURLs(r.Context())
	if err != nil {
		h.renderError(w, r, "http.urlHandler.listURLs", err)
		return
	}

	data := make([]urlStatsResponse, 0, len(list))
	for _, s := range list {
		data = append(data, toURLStatsResponse(s, h.useCase.ShortURL(s.URL.ShortCode)))
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response.SuccessResponse(http.StatusOK, "Short URLs listed.", data))
}

func (h *urlHandler) getStats(w http.ResponseWriter, r *http.Request) {
	report, err := h.useCase.GetStats(r.Context())
	if err != nil {
		h.renderError(w, r, "http.urlHandler.getStats", err)
		return
	}

	data := statsResponse{
		TotalURLs:     report.Summary.TotalURLs,
		ActiveURLs:    report.Summary.ActiveURLs,
		ExpiredURLs:   report.Summary.ExpiredURLs,
		TotalClicks:   report.Summary.TotalClicks,
		AverageClicks: report.Summary.AverageClicks,
		URLs:          make([]urlStatsResponse, 0, len(report.URLs)),
	}
	for _, s := range report.URLs {
		data.URLs = append(data.URLs, toURLStatsResponse(s, h.useCase.ShortURL(s.URL.ShortCode)))
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response.SuccessResponse(http.StatusOK, "Statistics collected.", data))
}

// renderError writes the envelope matching err and logs server-side failures.
func (h *urlHandler) renderError(w http.ResponseWriter, r *http.Request, op string, err error) {
	resp := errorResponse(err)

	if resp.StatusCode >= http.StatusInternalServerError {
		httplog.LogEntrySetField(r.Context(), "op", slog.StringValue(op))
		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))
	}

	render.Status(r, resp.StatusCode)
	render.JSON(w, r, resp)
}

func errorResponse(err error) response.Response {
	switch {
	case errors.Is(err, entity.ErrInvalidURL):
		return response.ErrorResponse(http.StatusBadRequest, "URL must be absolute with a scheme and a host.")
	case errors.Is(err, entity.ErrInvalidShortCode):
		return response.ErrorResponse(http.StatusBadRequest, "Short code must be 3-10 letters or digits.")
	case errors.Is(err, entity.ErrInvalidValidityPeriod):
		return response.ErrorResponse(http.StatusBadRequest, "Validity must be between 1 and 10080 minutes.")
	case errors.Is(err, entity.ErrQuotaExceeded):
		return response.ErrorResponse(http.StatusTooManyRequests, "Active URL limit reached. Wait for a URL to expire or delete one.")
	case errors.Is(err, entity.ErrCodeInUse):
		return response.ErrorResponse(http.StatusConflict, "Short code is already in use.")
	case errors.Is(err, entity.ErrURLNotFound):
		return response.ResourceNotFoundResponse
	case errors.Is(err, entity.ErrURLExpired):
		return response.ErrorResponse(http.StatusGone, "Short URL has expired.")
	case errors.Is(err, entity.ErrCodeSpaceExhausted):
		return response.ErrorResponse(http.StatusServiceUnavailable, "Could not allocate a short code. Please try again.")
	case errors.Is(err, entity.ErrStorageUnavailable):
		return response.ErrorResponse(http.StatusServiceUnavailable, "Storage is temporarily unavailable. Please try again later.")
	default:
		return response.ServerErrorResponse
	}
}

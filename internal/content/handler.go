package content

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/notiongate/notiongate/internal/notion"
	"github.com/notiongate/notiongate/internal/platform/httpx"
	"github.com/notiongate/notiongate/internal/shared"
)

// Handler serves the content API.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers content routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/api/content", h.handleContent)
}

type contentResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Title   string         `json:"title,omitempty"`
	Page    *notion.Page   `json:"page,omitempty"`
	Blocks  []notion.Block `json:"blocks,omitempty"`
}

func (h *Handler) handleContent(w http.ResponseWriter, r *http.Request) {
	pageID := r.URL.Query().Get("pageId")
	if pageID == "" {
		httpx.Fail(w, http.StatusBadRequest, "Page ID is required")
		return
	}
	doc, err := h.service.Get(r.Context(), pageID)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidInput) {
			httpx.Fail(w, http.StatusBadRequest, "Invalid page ID")
			return
		}
		if !errors.Is(err, shared.ErrNotFound) {
			h.logger.Error("fetch content", slog.String("page_id", pageID), slog.Any("error", err))
		}
		httpx.RespondError(w, err, "Error fetching content")
		return
	}
	httpx.JSON(w, http.StatusOK, contentResponse{Success: true, Title: doc.Title, Page: &doc.Page, Blocks: doc.Blocks})
}

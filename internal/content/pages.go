package content

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/notiongate/notiongate/internal/shared"
	"github.com/notiongate/notiongate/internal/view"
)

// SessionChecker reports whether a request carries a live session.
type SessionChecker interface {
	IsSessionValid(ctx context.Context, token string) bool
}

// PageHandler renders the HTML pages of the site.
type PageHandler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	sessions  SessionChecker
	tokenOf   func(*http.Request) string
}

// NewPageHandler constructs a PageHandler. tokenOf extracts the session
// token from a request.
func NewPageHandler(logger *slog.Logger, service *Service, templates *view.Engine, sessions SessionChecker, tokenOf func(*http.Request) string) *PageHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PageHandler{logger: logger, service: service, templates: templates, sessions: sessions, tokenOf: tokenOf}
}

// MountRoutes registers page routes on provided router.
func (h *PageHandler) MountRoutes(r chi.Router) {
	r.Get("/", h.showHome)
	r.Get("/get-access", h.showGetAccess)
	r.Get("/dashboard", h.showDashboard)
	r.Get("/p/{pageID}", h.showPage)
}

// showHome is public: signed-in visitors see the default page, everyone
// else the login form.
func (h *PageHandler) showHome(w http.ResponseWriter, r *http.Request) {
	if h.sessions.IsSessionValid(r.Context(), h.tokenOf(r)) {
		h.renderDocument(w, r, h.service.DefaultPageID())
		return
	}
	h.render(w, r, http.StatusOK, "pages/login.html", view.TemplateData{Title: "Sign in", CurrentPath: r.URL.Path})
}

func (h *PageHandler) showGetAccess(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "pages/get-access.html", view.TemplateData{Title: "Get access", CurrentPath: r.URL.Path})
}

func (h *PageHandler) showDashboard(w http.ResponseWriter, r *http.Request) {
	h.renderDocument(w, r, h.service.DefaultPageID())
}

func (h *PageHandler) showPage(w http.ResponseWriter, r *http.Request) {
	h.renderDocument(w, r, chi.URLParam(r, "pageID"))
}

func (h *PageHandler) renderDocument(w http.ResponseWriter, r *http.Request, pageID string) {
	doc, err := h.service.Get(r.Context(), pageID)
	if err != nil {
		status, title, message := http.StatusBadGateway, "Content unavailable", "The page could not be loaded. Try again shortly."
		if errors.Is(err, shared.ErrNotFound) || errors.Is(err, shared.ErrInvalidInput) {
			status, title, message = http.StatusNotFound, "Not found", "This page does not exist."
		} else {
			h.logger.Error("render content", slog.String("page_id", pageID), slog.Any("error", err))
		}
		h.render(w, r, status, "pages/error.html", view.TemplateData{Title: title, CurrentPath: r.URL.Path, Authenticated: true, Data: message})
		return
	}
	h.render(w, r, http.StatusOK, "pages/content.html", view.TemplateData{Title: doc.Title, CurrentPath: r.URL.Path, Authenticated: true, Data: doc})
}

func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, status int, name string, data view.TemplateData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.Render(w, name, data); err != nil {
		h.logger.Error("render page", slog.String("template", name), slog.Any("error", err))
	}
}

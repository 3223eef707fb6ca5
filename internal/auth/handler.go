package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/notiongate/notiongate/internal/platform/httpx"
	"github.com/notiongate/notiongate/internal/shared"
)

// Handler wires the JSON endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	cookies   *CookieManager
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, cookies *CookieManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		cookies:   cookies,
		validator: validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/api/auth", h.handleLogin)
	r.Get("/api/auth/check", h.handleCheck)
	r.Post("/api/auth/logout", h.handleLogout)
	r.Post("/api/signup", h.handleSignup)
	r.Post("/api/refresh", h.handleRefresh)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type signupRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"required,email"`
}

type refreshResponse struct {
	Success         bool   `json:"success"`
	Message         string `json:"message"`
	NewSessionToken string `json:"newSessionToken,omitempty"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Invalid request")
		return
	}
	req.Email = NormalizeEmail(req.Email)
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	result, err := h.service.Login(r.Context(), LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			httpx.Fail(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		h.logger.Error("login", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "Server error")
		return
	}

	h.cookies.SetSession(w, result.Session)
	h.cookies.SetRefresh(w, result.Refresh)
	httpx.OK(w, "Login successful")
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Invalid request")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = NormalizeEmail(req.Email)
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Name and a valid email are required")
		return
	}

	if err := h.service.Signup(r.Context(), SignupInput{Name: req.Name, Email: req.Email}); err != nil {
		if errors.Is(err, shared.ErrConflict) {
			httpx.Fail(w, http.StatusConflict, "An account with this email already exists")
			return
		}
		if !errors.Is(err, shared.ErrInvalidInput) {
			h.logger.Error("signup", slog.Any("error", err))
		}
		httpx.RespondError(w, err, "Server error during signup")
		return
	}
	httpx.OK(w, "User created successfully")
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	token := ReadCookie(r, RefreshCookieName)
	if token == "" {
		httpx.JSON(w, http.StatusUnauthorized, refreshResponse{Message: "No refresh token provided"})
		return
	}
	result, err := h.service.Refresh(r.Context(), token, r.UserAgent())
	if err != nil {
		if errors.Is(err, shared.ErrUnauthorized) {
			httpx.JSON(w, http.StatusUnauthorized, refreshResponse{Message: "Invalid refresh token"})
			return
		}
		h.logger.Error("refresh", slog.Any("error", err))
		httpx.JSON(w, http.StatusInternalServerError, refreshResponse{Message: "Server error"})
		return
	}
	h.cookies.SetSession(w, result.Session)
	httpx.JSON(w, http.StatusOK, refreshResponse{
		Success:         true,
		Message:         "Session renewed",
		NewSessionToken: result.Session.Value,
	})
}

func (h *Handler) handleCheck(w http.ResponseWriter, r *http.Request) {
	token := ReadCookie(r, SessionCookieName)
	if token == "" {
		httpx.JSON(w, http.StatusOK, httpx.Envelope{Message: "No session token found"})
		return
	}
	if !h.service.IsSessionValid(r.Context(), token) {
		httpx.JSON(w, http.StatusOK, httpx.Envelope{Message: "Session invalid"})
		return
	}
	httpx.OK(w, "Session valid")
}

// handleLogout only clears the cookies; stored tokens stay valid until they
// expire.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.cookies.Clear(w)
	httpx.OK(w, "Logged out successfully")
}

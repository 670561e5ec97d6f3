package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/getsentry/sentry-go"

	"medicare-pro/internal/httpx"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyRequest struct {
	AccessToken string `json:"accessToken"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var body registerRequest
	if err := httpx.DecodeJSON(w, r, &body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if _, err := h.service.Register(r.Context(), body.Name, body.Email, body.Password); err != nil {
		var validationErr ValidationError
		switch {
		case errors.As(err, &validationErr):
			httpx.WriteError(w, http.StatusBadRequest, validationErr.Message)
		case errors.Is(err, ErrEmailTaken):
			httpx.WriteError(w, http.StatusBadRequest, "Email already exists")
		default:
			sentry.CaptureException(err)
			httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	httpx.WriteSuccess(w, http.StatusCreated, map[string]any{"message": "Patient registered successfully"})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if err := httpx.DecodeJSON(w, r, &body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	pair, err := h.service.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		var validationErr ValidationError
		switch {
		case errors.As(err, &validationErr):
			httpx.WriteError(w, http.StatusBadRequest, validationErr.Message)
		case errors.Is(err, ErrNotFound):
			httpx.WriteError(w, http.StatusNotFound, "Patient not found")
		case errors.Is(err, ErrInvalidCredentials):
			httpx.WriteError(w, http.StatusUnauthorized, "Invalid email or password")
		default:
			sentry.CaptureException(err)
			httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, map[string]any{
		"message":      "Login successful",
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

// Verify checks the access token in the body, or in the Authorization header when the
// body has none.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var body verifyRequest
	if err := httpx.DecodeJSON(w, r, &body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	token := strings.TrimSpace(body.AccessToken)
	if token == "" {
		token, _ = bearerToken(r.Header.Get("Authorization"))
	}

	p, err := h.service.Verify(r.Context(), token)
	if err != nil {
		writeAuthError(w, err, accessMessages)
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, map[string]any{"patient": p.Public()})
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var body refreshRequest
	if err := httpx.DecodeJSON(w, r, &body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	pair, err := h.service.Refresh(r.Context(), strings.TrimSpace(body.RefreshToken))
	if err != nil {
		writeAuthError(w, err, refreshMessages)
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, map[string]any{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var body refreshRequest
	if err := httpx.DecodeJSON(w, r, &body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if err := h.service.Logout(r.Context(), strings.TrimSpace(body.RefreshToken)); err != nil {
		writeAuthError(w, err, refreshMessages)
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, map[string]any{"message": "Logged out"})
}

package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"telecom-relay/internal/config"
	"telecom-relay/internal/service"
	"telecom-relay/internal/util"

	"go.uber.org/zap"
)

// WebHandler manages the browser access gate: a shared password,
// verified once, exchanged for a session cookie.
type WebHandler struct {
	web        *service.WebAuthService
	cookieName string
	cookieTTL  time.Duration
	secure     bool
	logger     *zap.Logger
}

// NewWebHandler creates a new web access handler. A nil service leaves
// the gate open.
func NewWebHandler(web *service.WebAuthService, cfg config.WebConfig, logger *zap.Logger) *WebHandler {
	return &WebHandler{
		web:        web,
		cookieName: cfg.CookieName,
		cookieTTL:  cfg.SessionTTL,
		secure:     cfg.CookieSecure,
		logger:     logger,
	}
}

// Login handles web access login
// @Summary Exchange the access password for a session cookie
// @Accept json
// @Produce json
// @Success 200 {object} Response
// @Failure 401 {object} Response
// @Router /web/login [post]
func (h *WebHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !h.web.Enabled() {
		respondWithJSON(w, h.logger, http.StatusOK, successResponse(nil, "Access gate is disabled"))
		return
	}

	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	id, err := h.web.Login(ctx, req.Password)
	if err != nil {
		statusCode := getStatusCode(err)
		respondWithError(w, h.logger, statusCode, err, "Access denied")
		return
	}

	http.SetCookie(w, h.sessionCookie(id, h.cookieTTL))
	respondWithJSON(w, h.logger, http.StatusOK, successResponse(nil, "Access granted"))
}

// Logout handles web access logout
// @Summary Drop the web session and expire the cookie
// @Produce json
// @Success 200 {object} Response
// @Router /web/logout [post]
func (h *WebHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if cookie, err := r.Cookie(h.cookieName); err == nil {
		if err := h.web.Logout(ctx, cookie.Value); err != nil {
			h.logger.Warn("web session delete failed", util.ErrorField(err))
		}
	}

	http.SetCookie(w, h.sessionCookie("", -time.Second))
	respondWithJSON(w, h.logger, http.StatusOK, successResponse(nil, "Logged out"))
}

// Gate rejects requests without a valid web session cookie. With no
// access password configured every request passes.
func (h *WebHandler) Gate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.web.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(h.cookieName)
		if err != nil || !h.web.Validate(r.Context(), cookie.Value) {
			respondWithError(w, h.logger, http.StatusUnauthorized,
				errors.New("access password required"), "Access denied")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (h *WebHandler) sessionCookie(id string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     h.cookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

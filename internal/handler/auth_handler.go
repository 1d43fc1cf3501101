package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"telecom-relay/internal/service"
	"telecom-relay/internal/util"

	"go.uber.org/zap"
)

// AuthHandler handles HTTP requests for carrier authentication
type AuthHandler struct {
	auth   *service.AuthService
	logger *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth *service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		auth:   auth,
		logger: logger,
	}
}

// loginRequest is the body for POST /api/login.
type loginRequest struct {
	Phonenum string `json:"phonenum"`
	Password string `json:"password"`
}

// Login handles carrier login
// @Summary Log an account into the carrier
// @Accept json
// @Produce json
// @Success 200 {object} Response
// @Failure 400 {object} Response
// @Failure 401 {object} Response
// @Failure 429 {object} Response
// @Router /api/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	result, err := h.auth.Login(ctx, util.SanitizeInput(req.Phonenum), req.Password, r.RemoteAddr)
	if err != nil {
		statusCode := getStatusCode(err)
		respondWithError(w, h.logger, statusCode, err, "Login failed")
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, successResponse(result, "Login successful"))
	h.logger.Info("Login via HTTP",
		util.Phonenum(result.Phonenum),
		util.Duration("duration", time.Since(startTime)),
		util.String("method", "Login"),
	)
}

// Logout handles carrier logout
// @Summary Drop the carrier session for an account
// @Accept json
// @Produce json
// @Success 200 {object} Response
// @Router /api/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Phonenum string `json:"phonenum"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, err, "Invalid request body")
		return
	}
	req.Phonenum = util.SanitizeInput(req.Phonenum)
	if req.Phonenum == "" {
		respondWithError(w, h.logger, http.StatusBadRequest, errors.New("phonenum is required"), "Phone number is required")
		return
	}

	if err := h.auth.Logout(ctx, req.Phonenum); err != nil {
		respondWithError(w, h.logger, http.StatusInternalServerError, err, "Logout failed")
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, successResponse(nil, "Logout successful"))
	h.logger.Info("Logout via HTTP",
		util.Phonenum(req.Phonenum),
		util.String("method", "Logout"),
	)
}

// Session handles session inspection
// @Summary Get the live session record for an account
// @Produce json
// @Param phonenum query string true "Account phone number"
// @Success 200 {object} Response
// @Failure 401 {object} Response
// @Router /api/session [get]
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	phone := util.SanitizeInput(r.URL.Query().Get("phonenum"))
	if phone == "" {
		respondWithError(w, h.logger, http.StatusBadRequest, errors.New("phonenum is required"), "Phone number is required")
		return
	}

	record, err := h.auth.Session(ctx, phone)
	if err != nil {
		statusCode := getStatusCode(err)
		respondWithError(w, h.logger, statusCode, err, "No live session")
		return
	}

	// The carrier token never leaves the relay.
	sanitized := *record
	sanitized.Token = ""

	respondWithJSON(w, h.logger, http.StatusOK, successResponse(&sanitized, "Session retrieved successfully"))
}

// CleanSessions handles expired session cleanup
// @Summary Remove expired session records
// @Produce json
// @Success 200 {object} Response
// @Router /api/sessions/clean [post]
func (h *AuthHandler) CleanSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	removed, err := h.auth.CleanExpiredSessions(ctx)
	if err != nil {
		respondWithError(w, h.logger, http.StatusInternalServerError, err, "Failed to clean sessions")
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, successResponse(map[string]int{"removed": removed}, "Expired sessions removed"))
	h.logger.Info("Sessions cleaned via HTTP",
		util.Int("removed", removed),
		util.Duration("duration", time.Since(startTime)),
		util.String("method", "CleanSessions"),
	)
}

// SessionStats handles session statistics
// @Summary Get session store statistics
// @Produce json
// @Success 200 {object} Response
// @Router /api/sessions/stats [get]
func (h *AuthHandler) SessionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.auth.SessionStats(r.Context())
	if err != nil {
		respondWithError(w, h.logger, http.StatusInternalServerError, err, "Failed to get session stats")
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, successResponse(stats, "Session stats retrieved successfully"))
}

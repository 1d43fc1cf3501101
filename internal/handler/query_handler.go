package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"telecom-relay/internal/notify"
	"telecom-relay/internal/service"
	"telecom-relay/internal/util"

	"go.uber.org/zap"
)

// QueryHandler handles HTTP requests for usage queries
type QueryHandler struct {
	queries *service.QueryService
	logger  *zap.Logger
}

// NewQueryHandler creates a new query handler
func NewQueryHandler(queries *service.QueryService, logger *zap.Logger) *QueryHandler {
	return &QueryHandler{
		queries: queries,
		logger:  logger,
	}
}

// queryResponse is the envelope for the JSON query surface.
type queryResponse struct {
	Success  bool        `json:"success"`
	Phonenum string      `json:"phonenum,omitempty"`
	Cached   bool        `json:"cached"`
	Data     interface{} `json:"data,omitempty"`
	Error    string      `json:"error,omitempty"`
}

// queryParams reads the shared query-surface parameters.
func queryParams(r *http.Request) (phone string, refresh bool) {
	q := r.URL.Query()
	phone = util.SanitizeInput(q.Get("phonenum"))
	refresh = q.Get("refresh") == "true" || q.Get("forceRefresh") == "true"
	return phone, refresh
}

// Query handles the basic text report
// @Summary Query usage as formatted text
// @Produce plain
// @Param phonenum query string false "Account phone number"
// @Param refresh query bool false "Bypass the cache"
// @Success 200 {string} string
// @Router /query [get]
func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	h.serveText(w, r, false)
}

// Enhanced handles the enhanced text report
// @Summary Query usage as enhanced formatted text
// @Produce plain
// @Router /enhanced [get]
func (h *QueryHandler) Enhanced(w http.ResponseWriter, r *http.Request) {
	h.serveText(w, r, true)
}

func (h *QueryHandler) serveText(w http.ResponseWriter, r *http.Request, enhanced bool) {
	ctx := r.Context()
	startTime := time.Now()

	phone, refresh := queryParams(r)
	result, err := h.queries.Query(ctx, phone, refresh)
	if err != nil {
		statusCode := getStatusCode(err)
		respondWithError(w, h.logger, statusCode, err, "Failed to query usage")
		return
	}

	text := result.Data.FormattedText
	if enhanced {
		text = result.Data.EnhancedText
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Cached", boolHeader(result.Cached))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(text)); err != nil {
		h.logger.Error("Failed to write text response", util.ErrorField(err))
	}

	h.logger.Info("Usage queried via HTTP",
		util.Phonenum(result.Phonenum),
		util.Bool("cached", result.Cached),
		util.Bool("enhanced", enhanced),
		util.Duration("duration", time.Since(startTime)),
		util.String("method", "Query"),
	)
}

// JSON handles the raw bundle query
// @Summary Query usage as JSON
// @Produce json
// @Success 200 {object} queryResponse
// @Router /json [get]
func (h *QueryHandler) JSON(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	phone, refresh := queryParams(r)
	result, err := h.queries.Query(ctx, phone, refresh)
	if err != nil {
		statusCode := getStatusCode(err)
		h.logger.Warn("HTTP error response",
			util.ErrorField(err),
			util.Int("status_code", statusCode),
		)
		respondWithJSON(w, h.logger, statusCode, queryResponse{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, queryResponse{
		Success:  true,
		Phonenum: result.Phonenum,
		Cached:   result.Cached,
		Data:     result.Data,
	})
	h.logger.Debug("Usage queried as JSON via HTTP",
		util.Phonenum(result.Phonenum),
		util.Bool("cached", result.Cached),
		util.Duration("duration", time.Since(startTime)),
		util.String("method", "JSON"),
	)
}

// ClearCache handles cache eviction
// @Summary Clear all cached query results
// @Produce json
// @Success 200 {object} Response
// @Router /clear-cache [post]
func (h *QueryHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	count, err := h.queries.ClearCache(ctx)
	if err != nil {
		respondWithError(w, h.logger, http.StatusInternalServerError, err, "Failed to clear cache")
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, successResponse(map[string]int{"cleared": count}, "Cache cleared successfully"))
	h.logger.Info("Cache cleared via HTTP",
		util.Int("cleared", count),
		util.Duration("duration", time.Since(startTime)),
		util.String("method", "ClearCache"),
	)
}

// Status handles the aggregated status report
// @Summary Get service status
// @Produce json
// @Success 200 {object} service.StatusReport
// @Router /status [get]
func (h *QueryHandler) Status(w http.ResponseWriter, r *http.Request) {
	report := h.queries.Status(r.Context())
	respondWithJSON(w, h.logger, http.StatusOK, report)
}

// notifyRequest is the body for POST /api/notify.
type notifyRequest struct {
	Platform string `json:"platform"`
	Phonenum string `json:"phonenum"`
	ChatID   string `json:"chatId"`
	Enhanced bool   `json:"enhanced"`
	Markdown bool   `json:"markdown"`
}

// Notify handles notification forwarding
// @Summary Send a usage report to a notification platform
// @Accept json
// @Produce json
// @Success 200 {object} Response
// @Router /api/notify [post]
func (h *QueryHandler) Notify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	var req notifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, err, "Invalid request body")
		return
	}
	req.Phonenum = util.SanitizeInput(req.Phonenum)

	platform := notify.Platform(req.Platform)
	if platform == "" {
		platform = notify.PlatformBoth
	}
	switch platform {
	case notify.PlatformDingTalk, notify.PlatformTelegram, notify.PlatformBoth:
	default:
		respondWithError(w, h.logger, http.StatusBadRequest, errors.New("unknown platform"), "Platform must be dingtalk, telegram or both")
		return
	}

	results, err := h.queries.Notify(ctx, platform, req.Phonenum, req.ChatID, req.Enhanced, req.Markdown)
	if err != nil {
		statusCode := getStatusCode(err)
		respondWithError(w, h.logger, statusCode, err, "Failed to send notification")
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, successResponse(results, "Notification dispatched"))
	h.logger.Info("Notification sent via HTTP",
		util.String("platform", string(platform)),
		util.Int("results", len(results)),
		util.Duration("duration", time.Since(startTime)),
		util.String("method", "Notify"),
	)
}

func boolHeader(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

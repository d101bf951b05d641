package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/wfunc/remi-scorer/internal/errors"
	"github.com/wfunc/remi-scorer/internal/middleware"
	"github.com/wfunc/remi-scorer/internal/models"
	"github.com/wfunc/remi-scorer/internal/service"
)

// SessionHandler session and score ledger endpoints
type SessionHandler struct {
	sessions *service.SessionService
	scores   *service.ScoreService
}

// NewSessionHandler creates the session handler
func NewSessionHandler(sessions *service.SessionService, scores *service.ScoreService) *SessionHandler {
	return &SessionHandler{sessions: sessions, scores: scores}
}

// List returns every session, legacy free-standing ones included
// @Summary List sessions
// @Tags Sessions
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	sessions, err := h.sessions.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"sessions": sessions,
		"message":  "sessions listed",
	})
}

// Get returns one session
// @Summary Get a session
// @Tags Sessions
// @Produce json
// @Param sessionId path string true "session id"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} ErrorBody
// @Router /api/sessions/{sessionId} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	session, err := h.sessions.Get(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": session,
		"message": "session found",
	})
}

// AddScoreRequest body of POST /api/sessions/{sessionId}/scores
type AddScoreRequest struct {
	Scores         *models.Scores `json:"scores"`
	AtuPlayerIndex *int           `json:"atuPlayerIndex"`
	DeviceID       string         `json:"deviceId"`
}

// AddScore appends one round to the session's ledger
// @Summary Append a round score
// @Tags Sessions
// @Accept json
// @Produce json
// @Param sessionId path string true "session id"
// @Param request body AddScoreRequest true "round scores"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorBody
// @Failure 403 {object} ErrorBody
// @Router /api/sessions/{sessionId}/scores [post]
func (h *SessionHandler) AddScore(c *gin.Context) {
	var req AddScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.New(apperrors.ErrInvalidParam, err.Error()))
		return
	}

	if req.Scores == nil {
		respondError(c, apperrors.New(apperrors.ErrMissingScores))
		return
	}

	session, err := h.scores.AppendRound(c.Request.Context(), service.AppendRoundInput{
		SessionID:      c.Param("sessionId"),
		DeviceID:       h.deviceID(c, req.DeviceID),
		Scores:         *req.Scores,
		AtuPlayerIndex: req.AtuPlayerIndex,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"currentRound": len(session.GameScores),
		"finalScores":  session.FinalScores,
		"message":      "score added",
	})
}

// EditLastScore replaces the newest round in the ledger
// @Summary Amend the last round score
// @Tags Sessions
// @Accept json
// @Produce json
// @Param sessionId path string true "session id"
// @Param request body AddScoreRequest true "replacement scores"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorBody
// @Failure 403 {object} ErrorBody
// @Router /api/sessions/{sessionId}/scores/last [put]
func (h *SessionHandler) EditLastScore(c *gin.Context) {
	var req AddScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.New(apperrors.ErrInvalidParam, err.Error()))
		return
	}

	if req.Scores == nil {
		respondError(c, apperrors.New(apperrors.ErrMissingScores))
		return
	}

	session, err := h.scores.AmendLastRound(c.Request.Context(), service.AmendRoundInput{
		SessionID:      c.Param("sessionId"),
		DeviceID:       h.deviceID(c, req.DeviceID),
		Scores:         *req.Scores,
		AtuPlayerIndex: req.AtuPlayerIndex,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"finalScores": session.FinalScores,
		"message":     "score updated",
	})
}

// EndRequest body of POST /api/sessions/{sessionId}/end
type EndRequest struct {
	DeviceID string `json:"deviceId"`
}

// End closes a session
// @Summary End a session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param sessionId path string true "session id"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} ErrorBody
// @Failure 409 {object} ErrorBody
// @Router /api/sessions/{sessionId}/end [post]
func (h *SessionHandler) End(c *gin.Context) {
	var req EndRequest
	// body is optional, the device usually arrives in the header
	_ = c.ShouldBindJSON(&req)

	_, err := h.sessions.End(c.Request.Context(), c.Param("sessionId"), h.deviceID(c, req.DeviceID))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "session ended",
	})
}

// deviceID resolves the device, header first, then body, then the
// unknown sentinel
func (h *SessionHandler) deviceID(c *gin.Context, bodyDevice string) string {
	if id := middleware.GetDeviceID(c); id != "" {
		return id
	}
	if bodyDevice != "" {
		return bodyDevice
	}
	return models.CreatorUnknown
}

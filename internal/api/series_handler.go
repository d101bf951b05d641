package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/wfunc/remi-scorer/internal/errors"
	"github.com/wfunc/remi-scorer/internal/middleware"
	"github.com/wfunc/remi-scorer/internal/models"
	"github.com/wfunc/remi-scorer/internal/service"
)

// SeriesHandler series endpoints
type SeriesHandler struct {
	series   *service.SeriesService
	sessions *service.SessionService
}

// NewSeriesHandler creates the series handler
func NewSeriesHandler(series *service.SeriesService, sessions *service.SessionService) *SeriesHandler {
	return &SeriesHandler{series: series, sessions: sessions}
}

// CreateSeriesRequest body of POST /api/series/create
type CreateSeriesRequest struct {
	Password string         `json:"password"`
	Players  models.Players `json:"players"`
	DeviceID string         `json:"deviceId"`
}

// Create creates a series
// @Summary Create a series
// @Tags Series
// @Accept json
// @Produce json
// @Param request body CreateSeriesRequest true "series data"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} ErrorBody
// @Router /api/series/create [post]
func (h *SeriesHandler) Create(c *gin.Context) {
	var req CreateSeriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.New(apperrors.ErrInvalidParam, err.Error()))
		return
	}

	deviceID := middleware.GetDeviceID(c)
	if deviceID == "" {
		deviceID = req.DeviceID
	}

	series, err := h.series.Create(c.Request.Context(), service.CreateSeriesInput{
		Password: req.Password,
		Players:  req.Players,
		DeviceID: deviceID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	// sessionId carries the series id, older clients expect that key
	c.JSON(http.StatusCreated, gin.H{
		"success":   true,
		"sessionId": series.SeriesID,
		"message":   "series created",
	})
}

// LoginRequest body of POST /api/series/login-with-role
type LoginRequest struct {
	SeriesID string `json:"seriesId"`
	Password string `json:"password"`
	DeviceID string `json:"deviceId"`
}

// Login authenticates into a series and grants a role
// @Summary Log in to a series
// @Tags Series
// @Accept json
// @Produce json
// @Param request body LoginRequest true "credentials"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} ErrorBody
// @Router /api/series/login-with-role [post]
func (h *SeriesHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.New(apperrors.ErrInvalidParam, err.Error()))
		return
	}

	deviceID := middleware.GetDeviceID(c)
	if deviceID == "" {
		deviceID = req.DeviceID
	}

	result, err := h.series.Authenticate(c.Request.Context(), service.LoginInput{
		SeriesID: req.SeriesID,
		Password: req.Password,
		DeviceID: deviceID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": gin.H{
			"sessionId": result.Series.SeriesID,
			"players":   result.Series.Players,
			"createdAt": result.Series.CreatedAt,
		},
		"role":  result.Role,
		"token": nil,
	})
}

// List returns every series
// @Summary List series
// @Tags Series
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/series [get]
func (h *SeriesHandler) List(c *gin.Context) {
	series, err := h.series.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"series":  series,
		"message": "series listed",
	})
}

// ListRecent returns the device's recently accessed series
// @Summary List recent series for a device
// @Tags Series
// @Produce json
// @Param X-Device-ID header string true "device id"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorBody
// @Router /api/series/recent-series [get]
func (h *SeriesHandler) ListRecent(c *gin.Context) {
	deviceID := middleware.GetDeviceID(c)

	recent, err := h.series.ListRecent(c.Request.Context(), deviceID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"recentSeries": recent,
		"message":      "recent series listed",
	})
}

// Get returns one series
// @Summary Get a series
// @Tags Series
// @Produce json
// @Param seriesId path string true "series id"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} ErrorBody
// @Router /api/series/{seriesId} [get]
func (h *SeriesHandler) Get(c *gin.Context) {
	series, err := h.series.Get(c.Request.Context(), c.Param("seriesId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"series":  series,
		"message": "series found",
	})
}

// Exists reports whether a series id is taken
// @Summary Check whether a series exists
// @Tags Series
// @Produce json
// @Param seriesId path string true "series id"
// @Success 200 {object} map[string]interface{}
// @Router /api/series/{seriesId}/exists [get]
func (h *SeriesHandler) Exists(c *gin.Context) {
	exists, err := h.series.Exists(c.Request.Context(), c.Param("seriesId"))
	if err != nil {
		respondError(c, err)
		return
	}

	message := "series does not exist"
	if exists {
		message = "series exists"
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"exists":  exists,
		"message": message,
	})
}

// ListSessions returns a series' sessions newest first
// @Summary List sessions of a series
// @Tags Series
// @Produce json
// @Param seriesId path string true "series id"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} ErrorBody
// @Router /api/series/{seriesId}/sessions [get]
func (h *SeriesHandler) ListSessions(c *gin.Context) {
	sessions, err := h.series.ListSessions(c.Request.Context(), c.Param("seriesId"))
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

// CreateSessionRequest body of POST /api/series/{seriesId}/sessions
type CreateSessionRequest struct {
	Players  *models.Players `json:"players"`
	DeviceID string          `json:"deviceId"`
}

// CreateSession starts the next session of a series
// @Summary Create a session in a series
// @Tags Series
// @Accept json
// @Produce json
// @Param seriesId path string true "series id"
// @Param request body CreateSessionRequest false "session data"
// @Success 201 {object} map[string]interface{}
// @Failure 403 {object} ErrorBody
// @Failure 409 {object} ErrorBody
// @Router /api/series/{seriesId}/sessions [post]
func (h *SeriesHandler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	// body is optional, players default to the series roster
	_ = c.ShouldBindJSON(&req)

	deviceID := middleware.GetDeviceID(c)
	if deviceID == "" {
		deviceID = req.DeviceID
	}
	if deviceID == "" {
		deviceID = models.CreatorUnknown
	}

	session, err := h.sessions.Create(c.Request.Context(), service.CreateSessionInput{
		SeriesID: c.Param("seriesId"),
		DeviceID: deviceID,
		Players:  req.Players,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"session": session,
		"message": "session created",
	})
}

// UpdateSessionRequest body of PUT /api/series/{seriesId}/sessions/{sessionId}
type UpdateSessionRequest struct {
	Players  *models.Players `json:"players"`
	Status   *string         `json:"status"`
	DeviceID string          `json:"deviceId"`
}

// UpdateSession patches a session's players or status
// @Summary Update a session
// @Tags Series
// @Accept json
// @Produce json
// @Param seriesId path string true "series id"
// @Param sessionId path string true "session id"
// @Param request body UpdateSessionRequest true "fields to update"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} ErrorBody
// @Failure 404 {object} ErrorBody
// @Router /api/series/{seriesId}/sessions/{sessionId} [put]
func (h *SeriesHandler) UpdateSession(c *gin.Context) {
	var req UpdateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.New(apperrors.ErrInvalidParam, err.Error()))
		return
	}

	deviceID := middleware.GetDeviceID(c)
	if deviceID == "" {
		deviceID = req.DeviceID
	}
	if deviceID == "" {
		deviceID = models.CreatorUnknown
	}

	session, err := h.sessions.Update(
		c.Request.Context(),
		c.Param("seriesId"),
		c.Param("sessionId"),
		deviceID,
		service.SessionPatch{Players: req.Players, Status: req.Status},
	)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": session,
		"message": "session updated",
	})
}

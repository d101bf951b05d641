package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/wfunc/remi-scorer/internal/errors"
	"github.com/wfunc/remi-scorer/internal/logger"
	"go.uber.org/zap"
)

// ErrorBody API error envelope
type ErrorBody struct {
	Success bool   `json:"success"`
	Code    int    `json:"code,omitempty"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// respondError maps an error onto its HTTP status and envelope.
// Foreign errors answer 500 without leaking their text.
func respondError(c *gin.Context, err error) {
	appErr, ok := err.(*apperrors.AppError)
	if !ok {
		logger.LogError(err, "unhandled error",
			zap.String("path", c.Request.URL.Path))
		c.JSON(http.StatusInternalServerError, ErrorBody{
			Success: false,
			Message: "internal server error",
		})
		return
	}

	status := appErr.HTTPStatus()
	if status >= 500 {
		logger.LogError(appErr, "request failed",
			zap.String("path", c.Request.URL.Path))
	}

	c.JSON(status, ErrorBody{
		Success: false,
		Code:    int(appErr.Code),
		Message: appErr.Message,
		Details: appErr.Details,
	})
}

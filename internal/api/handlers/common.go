package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"theranotes-go/internal/apperr"
	"theranotes-go/internal/pipeline"
)

type APIError struct {
	Code    apperr.Code `json:"code"`
	Message string      `json:"message"`
	Stage   string      `json:"stage,omitempty"`
}

// writeError sends the safe form of err and attaches the full error to the
// gin context for the request logger.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)
	status := apperr.HTTPStatus(err)

	body := APIError{Code: apperr.CodeInternal, Message: apperr.SafeMessage(err)}
	var se *pipeline.StageError
	var ae *apperr.AppError
	switch {
	case errors.As(err, &se):
		body.Stage = se.Stage
		body.Code = apperr.CodeUpstream
		if se.Status == http.StatusGatewayTimeout {
			body.Code = apperr.CodeTimeout
		}
	case errors.As(err, &ae):
		body.Code = ae.Code
	}
	c.AbortWithStatusJSON(status, body)
}

func bindTranscript(c *gin.Context, op string) (string, bool) {
	var req struct {
		Transcript *string `json:"transcript"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Transcript == nil {
		writeError(c, apperr.E(apperr.CodeInvalidArgument, op, "request body must be JSON with a \"transcript\" field", err))
		return "", false
	}
	return *req.Transcript, true
}

// isTooLarge reports whether reading the body hit http.MaxBytesReader.
func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large")
}

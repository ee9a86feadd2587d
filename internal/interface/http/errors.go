package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/user-account-service/internal/domain/apperr"
	"github.com/oksasatya/user-account-service/pkg/response"
)

// StatusFor maps an error kind to its HTTP status.
func StatusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindInvalidData:
		return http.StatusBadRequest
	case apperr.KindNotActive:
		return http.StatusUnprocessableEntity
	case apperr.KindNotAllowed:
		return http.StatusForbidden
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError sends err as an API error. Internal details stay in the log.
func writeError(c *gin.Context, logger *logrus.Logger, err error) {
	status := StatusFor(err)
	kind := apperr.KindOf(err).String()
	msg := apperr.MessageOf(err)
	if status == http.StatusInternalServerError {
		if logger != nil {
			logger.WithError(err).WithField("request_id", c.GetString("request_id")).Error("request failed")
		}
		msg = "internal error"
	}
	response.Error[any](c, status, msg, gin.H{"kind": kind})
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/artesanato/internal/application"
	repo "github.com/oksasatya/artesanato/internal/domain/repository"
	"github.com/oksasatya/artesanato/internal/interface/middleware"
	"github.com/oksasatya/artesanato/pkg/response"
)

// writeError maps service errors onto HTTP statuses. Anything unrecognised is
// logged and reported as a 500 without leaking the cause.
func writeError(c *gin.Context, logger *logrus.Logger, err error) {
	switch {
	case application.IsRuleViolation(err):
		response.Error[any](c, http.StatusBadRequest, err.Error(), nil)
	case application.IsAuthError(err):
		response.Error[any](c, http.StatusUnauthorized, err.Error(), nil)
	case errors.Is(err, application.ErrForbidden):
		response.Error[any](c, http.StatusForbidden, err.Error(), nil)
	case errors.Is(err, repo.ErrNotFound):
		response.Error[any](c, http.StatusNotFound, "not found", nil)
	case errors.Is(err, application.ErrPhotoStorageDisabled):
		response.Error[any](c, http.StatusServiceUnavailable, err.Error(), nil)
	default:
		if logger != nil {
			logger.WithError(err).
				WithField("request_id", c.GetString("request_id")).
				WithField("path", c.FullPath()).
				Error("request failed")
		}
		response.Error[any](c, http.StatusInternalServerError, "internal server error", nil)
	}
}

// callerIs reports whether the authenticated user is userID.
func callerIs(c *gin.Context, userID string) bool {
	return c.GetString(middleware.CtxUserIDKey) == userID
}

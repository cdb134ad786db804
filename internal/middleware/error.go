package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	apperrors "finmanager/internal/errors"
	"finmanager/internal/logger"
)

// ErrorHandler returns a Gin middleware that converts errors attached with
// c.Error into JSON error responses. AppErrors keep their code and message;
// anything else is logged and reported as INTERNAL_ERROR. Handlers that have
// already written a body are left alone.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		writeError(c, c.Errors.Last().Err)
	}
}

// NoRoute answers unknown paths with a NOT_FOUND error body.
func NoRoute() gin.HandlerFunc {
	return func(c *gin.Context) {
		writeError(c, apperrors.WithMessage(apperrors.ErrNotFound, "Route not found"))
	}
}

func writeError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Internal != nil {
			logger.Get().Errorw("app error",
				"code", appErr.Code,
				"message", appErr.Message,
				"internal", appErr.Internal.Error(),
				"path", c.Request.URL.Path,
				"request_id", RequestID(c),
			)
		}
		c.AbortWithStatusJSON(appErr.StatusCode, gin.H{
			"error": gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
			},
		})
		return
	}

	logger.Get().Errorw("unexpected error",
		"error", err.Error(),
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
		"request_id", RequestID(c),
	)
	c.AbortWithStatusJSON(apperrors.ErrInternalServer.StatusCode, gin.H{
		"error": gin.H{
			"code":    apperrors.ErrInternalServer.Code,
			"message": apperrors.ErrInternalServer.Message,
		},
	})
}

package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/collabd/internal/access"
	"github.com/fyrsmithlabs/collabd/internal/objectstore"
)

// errorStatus maps the store and gate error taxonomy onto an HTTP status
// and a stable machine code for the error envelope.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, access.ErrUnauthenticated):
		return http.StatusUnauthorized, "UNAUTHENTICATED"
	case errors.Is(err, access.ErrPermissionDenied):
		return http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, access.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, objectstore.ErrConflictingCreate):
		return http.StatusConflict, "ALREADY_EXISTS"
	case errors.Is(err, objectstore.ErrInvalidRequest),
		errors.Is(err, objectstore.ErrUnknownObjectType):
		return http.StatusBadRequest, "INVALID_ARGUMENT"
	case errors.Is(err, objectstore.ErrTimeout):
		return http.StatusGatewayTimeout, "TIMEOUT"
	case errors.Is(err, objectstore.ErrBackendUnavailable),
		errors.Is(err, objectstore.ErrProvisioningFailure):
		return http.StatusServiceUnavailable, "UNAVAILABLE"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

// writeError renders err as the standard error envelope. Unclassified
// errors are logged and answered with a generic message so storage
// internals never reach clients.
func (s *Server) writeError(c echo.Context, err error) error {
	status, code := errorStatus(err)

	message := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error(c.Request().Context(), "request failed",
			zap.String("path", c.Path()),
			zap.Error(err))
		message = "internal error"
	}

	return c.JSON(status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

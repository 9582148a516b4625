package callerapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/specbench/workbench/pkg/apperrors"
)

// errorResponse is the uniform error body shape for every failed
// caller operation.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeError(c *gin.Context, status int, kind, message string) {
	c.JSON(status, errorResponse{Error: kind, Message: message})
}

// statusFor maps a domain error to its (HTTP status, taxonomy kind),
// independent of which caller surface triggered it.
func statusFor(err error) (int, string) {
	switch {
	case errors.As(err, new(*apperrors.ValidationError)):
		return http.StatusBadRequest, "ValidationError"
	case errors.As(err, new(*apperrors.MissingParameter)):
		return http.StatusBadRequest, "ValidationError"
	case errors.Is(err, apperrors.ErrPermissionDenied):
		return http.StatusForbidden, "PermissionDenied"
	case errors.Is(err, apperrors.ErrUnknownProject),
		errors.Is(err, apperrors.ErrUnknownSession),
		errors.Is(err, apperrors.ErrUnknownConflict),
		errors.Is(err, apperrors.ErrUnknownAgent),
		errors.Is(err, apperrors.ErrUnknownUser):
		return http.StatusNotFound, "UnknownEntity"
	case errors.Is(err, apperrors.ErrProjectBlocked):
		return http.StatusConflict, "ProjectBlocked"
	case errors.Is(err, apperrors.ErrInvalidResolution):
		return http.StatusBadRequest, "InvalidResolution"
	case errors.Is(err, apperrors.ErrSessionEnded):
		return http.StatusGone, "SessionEnded"
	case errors.Is(err, apperrors.ErrUnsupportedFormat):
		return http.StatusBadRequest, "UnsupportedFormat"
	case errors.Is(err, apperrors.ErrDeadlineExceeded):
		return http.StatusGatewayTimeout, "DeadlineExceeded"
	case errors.Is(err, apperrors.ErrLlmTimeout), errors.Is(err, apperrors.ErrLlmRateLimited), errors.Is(err, apperrors.ErrLlmUnavailable):
		return http.StatusServiceUnavailable, "LlmUnavailable"
	case errors.Is(err, apperrors.ErrLlmInvalidResp), errors.Is(err, apperrors.ErrLlmProviderError):
		return http.StatusBadGateway, "LlmProviderError"
	case errors.As(err, new(*apperrors.InternalError)):
		return http.StatusInternalServerError, "Internal"
	default:
		return http.StatusInternalServerError, "Internal"
	}
}

func respondErr(c *gin.Context, err error) {
	status, kind := statusFor(err)
	writeError(c, status, kind, err.Error())
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/lakegate/lakegate/internal/logger"
	"github.com/lakegate/lakegate/pkg/api/middleware"
	"github.com/lakegate/lakegate/pkg/share/models"
	"github.com/lakegate/lakegate/pkg/share/service"
)

// principalFrom resolves the authenticated caller from JWT claims.
// Returns false and writes a 401 problem when the route was reached
// without the JWTAuth middleware having stored claims.
func principalFrom(w http.ResponseWriter, r *http.Request) (service.Principal, bool) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		Unauthorized(w, "authentication required")
		return service.Principal{}, false
	}
	return service.Principal{
		Username: claims.Username,
		Groups:   claims.Groups,
	}, true
}

// writeServiceError maps domain errors to problem responses.
//
// Lock acquisition failures map to 423 so callers know the condition is
// transient and the request can be retried as-is.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, models.ErrUnauthorized):
		Forbidden(w, err.Error())
	case errors.Is(err, models.ErrShareNotFound),
		errors.Is(err, models.ErrShareItemNotFound),
		errors.Is(err, models.ErrDataFilterNotFound),
		errors.Is(err, models.ErrDatasetNotFound),
		errors.Is(err, models.ErrEnvironmentNotFound),
		errors.Is(err, models.ErrGroupNotFound):
		NotFound(w, err.Error())
	case errors.Is(err, models.ErrShareAlreadyExists),
		errors.Is(err, models.ErrDuplicateDataFilter),
		errors.Is(err, models.ErrInvalidTransition):
		Conflict(w, err.Error())
	case errors.Is(err, models.ErrAcquireLockFailure):
		Locked(w, err.Error())
	case errors.Is(err, models.ErrShareItemsNotFound),
		errors.Is(err, models.ErrSameAccountShare),
		errors.Is(err, models.ErrProcessorNotFound):
		BadRequest(w, err.Error())
	default:
		logger.ErrorCtx(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			logger.KeyError, err,
		)
		InternalServerError(w, "internal error")
	}
}

package utils

import (
	"errors"
	"math"
	"net/http"

	"github.com/hilthontt/civicreport/internal/application/submission"
	"github.com/hilthontt/civicreport/internal/domain"
	"github.com/hilthontt/civicreport/internal/infrastructure/json"
	"github.com/hilthontt/civicreport/internal/infrastructure/logging"
)

// WriteDomainError maps the domain's sentinel errors onto HTTP statuses.
// Anything unrecognised is logged and answered with a 500.
func WriteDomainError(w http.ResponseWriter, r *http.Request, logger logging.Logger, err error) {
	var limited *submission.RateLimitedError
	switch {
	case errors.As(err, &limited):
		json.WriteRateLimitError(w, int(math.Ceil(limited.RetryAfter.Seconds())), err.Error())
	case errors.Is(err, domain.ErrRateLimited):
		json.WriteRateLimitError(w, 0, err.Error())
	case errors.Is(err, domain.ErrForbidden), errors.Is(err, domain.ErrNotAssignee):
		json.WriteForbiddenError(w, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		json.WriteUnauthorizedError(w, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		json.WriteNotFoundError(w, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrReportAlreadyExists):
		json.WriteConflictError(w, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		json.WriteValidationError(w, err)
	default:
		logger.Error(logging.RequestResponse, logging.ExternalService, "request failed", map[logging.ExtraKey]any{
			logging.Method:       r.Method,
			logging.Path:         r.URL.Path,
			logging.ErrorMessage: err.Error(),
		})
		json.WriteInternalError(w, err)
	}
}

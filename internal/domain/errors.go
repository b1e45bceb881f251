package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = fmt.Errorf("%w: role not permitted", ErrUnauthorized)
	ErrNotAssignee  = fmt.Errorf("%w: report is not assigned to this supervisor", ErrUnauthorized)

	ErrNotFound           = errors.New("not found")
	ErrReportNotFound     = fmt.Errorf("report %w", ErrNotFound)
	ErrUserNotFound       = fmt.Errorf("user %w", ErrNotFound)
	ErrDepartmentNotFound = fmt.Errorf("department %w", ErrNotFound)

	ErrInvalidTransition = errors.New("invalid status transition")
	ErrEnrichmentFailed  = errors.New("enrichment failed")

	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidCategory   = fmt.Errorf("%w: unknown issue type", ErrInvalidInput)
	ErrInvalidStatus     = fmt.Errorf("%w: unknown status", ErrInvalidInput)
	ErrInvalidReport     = fmt.Errorf("%w: report", ErrInvalidInput)
	ErrMalformedPriority = errors.New("malformed priority label")

	ErrRateLimited         = errors.New("submission limit reached")
	ErrReportAlreadyExists = errors.New("report already exists")

	// ErrPreconditionFailed is returned by repositories when a guarded
	// mutation finds the report but the guard does not hold.
	ErrPreconditionFailed = errors.New("precondition failed")
)

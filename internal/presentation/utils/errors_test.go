package utils

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hilthontt/civicreport/internal/application/submission"
	"github.com/hilthontt/civicreport/internal/domain"
	"github.com/hilthontt/civicreport/internal/infrastructure/logging"
	"github.com/stretchr/testify/assert"
)

func TestWriteDomainError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"forbidden", domain.ErrForbidden, http.StatusForbidden},
		{"not assignee", domain.ErrNotAssignee, http.StatusForbidden},
		{"unauthorized", domain.ErrUnauthorized, http.StatusUnauthorized},
		{"report missing", domain.ErrReportNotFound, http.StatusNotFound},
		{"wrapped user missing", fmt.Errorf("failed to get worker: %w", domain.ErrUserNotFound), http.StatusNotFound},
		{"transition", domain.ErrInvalidTransition, http.StatusConflict},
		{"category", domain.ErrInvalidCategory, http.StatusBadRequest},
		{"rate limited", domain.ErrRateLimited, http.StatusTooManyRequests},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteDomainError(rec, httptest.NewRequest(http.MethodGet, "/api/reports", nil), logging.NewNopLogger(), tt.err)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestWriteDomainErrorRetryAfter(t *testing.T) {
	rec := httptest.NewRecorder()
	err := &submission.RateLimitedError{RetryAfter: 90*time.Minute + 500*time.Millisecond, Limit: 10}

	WriteDomainError(rec, httptest.NewRequest(http.MethodPost, "/api/reports", nil), logging.NewNopLogger(), err)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "5401", rec.Header().Get("Retry-After"))
}

package activity

import (
	"net/http"
	"strconv"
	"time"

	"github.com/hilthontt/civicreport/internal/domain"
	"github.com/hilthontt/civicreport/internal/infrastructure/json"
	"github.com/hilthontt/civicreport/internal/infrastructure/logging"
	"github.com/hilthontt/civicreport/internal/presentation/auth"
	"github.com/hilthontt/civicreport/internal/presentation/utils"
)

const (
	defaultLimit = 50
	maxLimit     = 500
	defaultRange = 7 * 24 * time.Hour
)

type Handler struct {
	repo   domain.ActivityRepository
	logger logging.Logger
	now    func() time.Time
}

func NewHandler(repo domain.ActivityRepository, logger logging.Logger, now func() time.Time) *Handler {
	if now == nil {
		now = time.Now
	}
	return &Handler{repo: repo, logger: logger, now: now}
}

// ListActivityHandler godoc
// @Summary      Query the activity log
// @Description  Filters by reportId, or by eventType within [from, to] (RFC 3339, default last 7 days). Without filters returns the most recent entries.
// @Tags         activity
// @Produce      json
// @Param        reportId  query string false "Report ID"
// @Param        eventType query string false "Event type" Enums(report_created,status_changed,report_assigned,worker_assigned,report_classified,note_added,report_overdue)
// @Param        from      query string false "Range start (RFC 3339)"
// @Param        to        query string false "Range end (RFC 3339)"
// @Param        limit     query int    false "Maximum entries" default(50)
// @Success      200 {object} activityResponse
// @Failure      400 {object} json.ErrorResponse
// @Failure      403 {object} json.ErrorResponse
// @Security     BearerAuth
// @Router       /activity [get]
func (h *Handler) ListActivityHandler(w http.ResponseWriter, r *http.Request) {
	if err := auth.SessionFrom(r.Context()).Require(domain.RoleAdmin); err != nil {
		utils.WriteDomainError(w, r, h.logger, err)
		return
	}

	q := r.URL.Query()
	limit := defaultLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxLimit {
			json.WriteBadRequestError(w, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	var (
		logs []domain.ActivityLog
		err  error
	)
	switch {
	case q.Get("reportId") != "":
		logs, err = h.repo.GetByReportID(r.Context(), q.Get("reportId"), limit)
	case q.Get("eventType") != "":
		from, to, rangeErr := h.parseRange(q.Get("from"), q.Get("to"))
		if rangeErr != nil {
			json.WriteBadRequestError(w, rangeErr.Error())
			return
		}
		logs, err = h.repo.GetByEventType(r.Context(), domain.ActivityType(q.Get("eventType")), from, to)
		if len(logs) > limit {
			logs = logs[:limit]
		}
	default:
		logs, err = h.repo.Recent(r.Context(), limit)
	}
	if err != nil {
		utils.WriteDomainError(w, r, h.logger, err)
		return
	}

	json.Write(w, http.StatusOK, activityResponse{Activity: logs})
}

func (h *Handler) parseRange(rawFrom, rawTo string) (time.Time, time.Time, error) {
	to := h.now().UTC()
	if rawTo != "" {
		t, err := time.Parse(time.RFC3339, rawTo)
		if err != nil {
			return time.Time{}, time.Time{}, errInvalidTime("to")
		}
		to = t
	}
	from := to.Add(-defaultRange)
	if rawFrom != "" {
		t, err := time.Parse(time.RFC3339, rawFrom)
		if err != nil {
			return time.Time{}, time.Time{}, errInvalidTime("from")
		}
		from = t
	}
	if from.After(to) {
		return time.Time{}, time.Time{}, errRange
	}
	return from, to, nil
}

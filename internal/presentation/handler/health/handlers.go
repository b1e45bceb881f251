package health

import (
	"context"
	"net/http"
	"time"

	"github.com/hilthontt/civicreport/internal/infrastructure/json"
)

// Check reports whether one backing service is reachable.
type Check func(ctx context.Context) error

type Handler struct {
	checks map[string]Check
	now    func() time.Time
}

func NewHandler(checks map[string]Check) *Handler {
	return &Handler{checks: checks, now: time.Now}
}

// GetHealth godoc
// @Summary      Liveness probe
// @Tags         health
// @Produce      json
// @Success      200 {object} healthResponse
// @Router       /health [get]
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	json.Write(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: h.now().UTC(),
	})
}

// GetReadiness godoc
// @Summary      Readiness probe
// @Description  Runs every dependency check; any failure answers 503.
// @Tags         health
// @Produce      json
// @Success      200 {object} healthResponse
// @Failure      503 {object} healthResponse
// @Router       /ready [get]
func (h *Handler) GetReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.now().UTC(),
		Checks:    make(map[string]string, len(h.checks)),
	}
	status := http.StatusOK
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	json.Write(w, status, resp)
}

package departments

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hilthontt/civicreport/internal/application/assignment"
	"github.com/hilthontt/civicreport/internal/domain"
	"github.com/hilthontt/civicreport/internal/infrastructure/json"
	"github.com/hilthontt/civicreport/internal/infrastructure/logging"
	"github.com/hilthontt/civicreport/internal/presentation/auth"
	"github.com/hilthontt/civicreport/internal/presentation/utils"
)

type Handler struct {
	assignment assignment.UseCase
	logger     logging.Logger
}

func NewHandler(assignment assignment.UseCase, logger logging.Logger) *Handler {
	return &Handler{assignment: assignment, logger: logger}
}

// ListDepartmentsHandler godoc
// @Summary      List departments
// @Description  Every routable department with its supervisor and the issue types it handles.
// @Tags         departments
// @Produce      json
// @Success      200 {object} listDepartmentsResponse
// @Security     BearerAuth
// @Router       /departments [get]
func (h *Handler) ListDepartmentsHandler(w http.ResponseWriter, r *http.Request) {
	departments, err := h.assignment.ListDepartments(r.Context())
	if err != nil {
		utils.WriteDomainError(w, r, h.logger, err)
		return
	}
	json.Write(w, http.StatusOK, listDepartmentsResponse{Departments: departments})
}

// ResolveHandler godoc
// @Summary      Preview routing for an issue type
// @Tags         departments
// @Produce      json
// @Param        issueType path string true "Issue type"
// @Success      200 {object} resolveResponse
// @Failure      400 {object} json.ErrorResponse
// @Security     BearerAuth
// @Router       /departments/resolve/{issueType} [get]
func (h *Handler) ResolveHandler(w http.ResponseWriter, r *http.Request) {
	issueType, err := domain.ParseIssueType(chi.URLParam(r, "issueType"))
	if err != nil {
		json.WriteValidationError(w, err)
		return
	}

	res, err := h.assignment.ResolveDepartment(r.Context(), issueType)
	if err != nil {
		utils.WriteDomainError(w, r, h.logger, err)
		return
	}
	json.Write(w, http.StatusOK, resolveResponse{
		IssueType:    string(issueType),
		Dept:         res.Dept,
		SupervisorID: res.SupervisorID,
	})
}

// ListWorkersHandler godoc
// @Summary      List field workers
// @Tags         departments
// @Produce      json
// @Success      200 {object} listWorkersResponse
// @Failure      403 {object} json.ErrorResponse
// @Security     BearerAuth
// @Router       /workers [get]
func (h *Handler) ListWorkersHandler(w http.ResponseWriter, r *http.Request) {
	workers, err := h.assignment.ListWorkers(r.Context(), auth.SessionFrom(r.Context()))
	if err != nil {
		utils.WriteDomainError(w, r, h.logger, err)
		return
	}
	json.Write(w, http.StatusOK, listWorkersResponse{Workers: workers})
}

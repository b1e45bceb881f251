package departments

import (
	"github.com/hilthontt/civicreport/internal/application/assignment"
	"github.com/hilthontt/civicreport/internal/domain"
)

type listDepartmentsResponse struct {
	Departments []assignment.DepartmentView `json:"departments"`
}

type resolveResponse struct {
	IssueType    string  `json:"issueType" example:"road_pothole"`
	Dept         string  `json:"dept" example:"roads"`
	SupervisorID *string `json:"supervisorId" example:"sup-1"`
}

type listWorkersResponse struct {
	Workers []domain.User `json:"workers"`
}

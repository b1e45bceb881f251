package reports

import (
	"github.com/hilthontt/civicreport/internal/application/projection"
	"github.com/hilthontt/civicreport/internal/domain"
)

type locationRequest struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90" example:"6.5244"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180" example:"3.3792"`
}

type submitReportRequest struct {
	IssueType   string           `json:"issueType" validate:"required,issue_type" example:"road_pothole"`
	Description string           `json:"description" validate:"max=2000" example:"Deep pothole in front of the market"`
	CustomIssue string           `json:"customIssue" validate:"max=120" example:""`
	Location    *locationRequest `json:"location"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required,report_status" example:"acknowledged"`
	Note   string `json:"note" validate:"max=1000" example:"Crew scheduled for Monday"`
}

type addNoteRequest struct {
	Note string `json:"note" validate:"required,max=1000" example:"Called the reporter for details"`
}

type classifyRequest struct {
	Classification string `json:"classification" validate:"required,max=120" example:"Road surface"`
	Note           string `json:"note" validate:"max=1000" example:""`
}

type reassignRequest struct {
	Dept         string `json:"dept" validate:"required,department" example:"roads"`
	SupervisorID string `json:"supervisorId" example:"sup-1"`
	Note         string `json:"note" validate:"max=1000" example:""`
}

type assignWorkerRequest struct {
	WorkerID string `json:"workerId" validate:"required" example:"worker-7"`
	Note     string `json:"note" validate:"max=1000" example:""`
}

type reportResponse struct {
	Report *domain.Report `json:"report"`
}

type listResponse struct {
	Reports []domain.Report  `json:"reports"`
	Stats   projection.Stats `json:"stats"`
}

type historyResponse struct {
	ReportID string                `json:"reportId"`
	History  []domain.HistoryEntry `json:"history"`
}

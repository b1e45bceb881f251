package reports

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/hilthontt/civicreport/internal/application/assignment"
	"github.com/hilthontt/civicreport/internal/application/lifecycle"
	"github.com/hilthontt/civicreport/internal/application/projection"
	"github.com/hilthontt/civicreport/internal/application/submission"
	"github.com/hilthontt/civicreport/internal/domain"
	"github.com/hilthontt/civicreport/internal/infrastructure/json"
	"github.com/hilthontt/civicreport/internal/infrastructure/logging"
	"github.com/hilthontt/civicreport/internal/infrastructure/media"
	"github.com/hilthontt/civicreport/internal/infrastructure/validate"
	"github.com/hilthontt/civicreport/internal/infrastructure/ws"
	"github.com/hilthontt/civicreport/internal/presentation/auth"
	"github.com/hilthontt/civicreport/internal/presentation/utils"
)

const defaultMaxUploadBytes = 20 << 20

type Handler struct {
	submission     submission.UseCase
	projection     projection.UseCase
	lifecycle      lifecycle.UseCase
	assignment     assignment.UseCase
	upgrader       websocket.Upgrader
	logger         logging.Logger
	maxUploadBytes int64
}

func NewHandler(
	submission submission.UseCase,
	projection projection.UseCase,
	lifecycle lifecycle.UseCase,
	assignment assignment.UseCase,
	logger logging.Logger,
	maxUploadBytes int64,
	checkOrigin func(r *http.Request) bool,
) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &Handler{
		submission:     submission,
		projection:     projection,
		lifecycle:      lifecycle,
		assignment:     assignment,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
	}
}

// SubmitReportHandler godoc
// @Summary      Submit a report
// @Description  Accepts multipart/form-data (fields issueType, description, customIssue, latitude, longitude; files image, audio) or a JSON body without media.
// @Tags         reports
// @Accept       multipart/form-data,json
// @Produce      json
// @Param        request body submitReportRequest false "JSON submission"
// @Success      201 {object} reportResponse
// @Failure      400 {object} json.ErrorResponse
// @Failure      401 {object} json.ErrorResponse
// @Failure      429 {object} json.ErrorResponse
// @Failure      500 {object} json.ErrorResponse
// @Security     BearerAuth
// @Router       /reports [post]
func (h *Handler) SubmitReportHandler(w http.ResponseWriter, r *http.Request) {
	var (
		in  submission.Input
		err error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		in, err = h.readMultipart(w, r)
	} else {
		in, err = readJSONSubmission(r)
	}
	if err != nil {
		json.WriteValidationError(w, err)
		return
	}
	in.ClientIP = clientIP(r)

	report, err := h.submission.Submit(r.Context(), auth.SessionFrom(r.Context()), in)
	if err != nil {
		utils.WriteDomainError(w, r, h.logger, err)
		return
	}

	json.Write(w, http.StatusCreated, reportResponse{Report: report})
}

func readJSONSubmission(r *http.Request) (submission.Input, error) {
	var req submitReportRequest
	if err := json.Read(r, &req); err != nil {
		return submission.Input{}, err
	}
	if err := validate.Struct(req); err != nil {
		return submission.Input{}, err
	}

	in := submission.Input{
		IssueType:   req.IssueType,
		Description: req.Description,
		CustomIssue: req.CustomIssue,
	}
	if req.Location != nil {
		in.Location = &domain.Location{Latitude: req.Location.Latitude, Longitude: req.Location.Longitude}
	}
	return in, nil
}

func (h *Handler) readMultipart(w http.ResponseWriter, r *http.Request) (submission.Input, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		return submission.Input{}, fmt.Errorf("invalid multipart body: %w", err)
	}

	req := submitReportRequest{
		IssueType:   r.FormValue("issueType"),
		Description: r.FormValue("description"),
		CustomIssue: r.FormValue("customIssue"),
	}

	lat, lng := strings.TrimSpace(r.FormValue("latitude")), strings.TrimSpace(r.FormValue("longitude"))
	if lat != "" || lng != "" {
		latitude, err := strconv.ParseFloat(lat, 64)
		if err != nil {
			return submission.Input{}, errors.New("latitude must be a number")
		}
		longitude, err := strconv.ParseFloat(lng, 64)
		if err != nil {
			return submission.Input{}, errors.New("longitude must be a number")
		}
		req.Location = &locationRequest{Latitude: latitude, Longitude: longitude}
	}
	if err := validate.Struct(req); err != nil {
		return submission.Input{}, err
	}

	in := submission.Input{
		IssueType:   req.IssueType,
		Description: req.Description,
		CustomIssue: req.CustomIssue,
	}
	if req.Location != nil {
		in.Location = &domain.Location{Latitude: req.Location.Latitude, Longitude: req.Location.Longitude}
	}

	var err error
	if in.Image, err = formMedia(r, "image", domain.MediaImage); err != nil {
		return submission.Input{}, err
	}
	if in.Audio, err = formMedia(r, "audio", domain.MediaAudio); err != nil {
		return submission.Input{}, err
	}
	return in, nil
}

func formMedia(r *http.Request, field string, kind domain.MediaKind) (*domain.Media, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("invalid %s upload: %w", field, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s upload: %w", field, err)
	}
	ct := contentType(header, data)
	if err := media.CheckType(kind, ct); err != nil {
		return nil, err
	}
	return &domain.Media{
		Kind:        kind,
		Filename:    header.Filename,
		ContentType: ct,
		Data:        data,
	}, nil
}

// contentType trusts the part header unless the client sent none or the
// generic octet-stream, in which case the bytes are sniffed.
func contentType(header *multipart.FileHeader, data []byte) string {
	if ct := header.Header.Get("Content-Type"); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	return http.DetectContentType(data)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ListReportsHandler godoc
// @Summary      List visible reports
// @Description  Returns the caller's scoped view, newest first, with aggregate stats.
// @Tags         reports
// @Produce      json
// @Success      200 {object} listResponse
// @Failure      401 {object} json.ErrorResponse
// @Security     BearerAuth
// @Router       /reports [get]
func (h *Handler) ListReportsHandler(w http.ResponseWriter, r *http.Request) {
	view, err := h.projection.List(r.Context(), auth.SessionFrom(r.Context()))
	if err != nil {
		utils.WriteDomainError(w, r, h.logger, err)
		return
	}
	json.Write(w, http.StatusOK, listResponse{Reports: view.Reports, Stats: view.Stats})
}

// StatsHandler godoc
// @Summary      Report statistics
// @Tags         reports
// @Produce      json
// @Param        days query int false "Days of daily counts" default(30)
// @Success      200 {object} projection.StatsView
// @Failure      400 {object} json.ErrorResponse
// @Security     BearerAuth
// @Router       /reports/stats [get]
func (h *Handler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	days := projection.DefaultChartDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 365 {
			json.WriteBadRequestError(w, "days must be between 1 and 365")
			return
		}
		days = n
	}

	stats, err := h.projection.Stats(r.Context(), auth.SessionFrom(r.Context()), days)
	if err != nil {
		utils.WriteDomainError(w, r, h.logger, err)
		return
	}
	json.Write(w, http.StatusOK, stats)
}

// GetReportHandler godoc
// @Summary      Get one report
// @Tags         reports
// @Produce      json
// @Param        reportId path string true "Report ID"
// @Success      200 {object} reportResponse
// @Failure      404 {object} json.ErrorResponse
// @Security     BearerAuth
// @Router       /reports/{reportId} [get]
func (h *Handler) GetReportHandler(w http.ResponseWriter, r *http.Request) {
	report, err := h.projection.Get(r.Context(), auth.SessionFrom(r.Context()), chi.URLParam(r, "reportId"))
	if err != nil {
		utils.WriteDomainError(w, r, h.logger, err)
		return
	}
	json.Write(w, http.StatusOK, reportResponse{Report: report})
}

// HistoryHandler godoc
// @Summary      Audit history of a report
// @Tags         reports
// @Produce      json
// @Param        reportId path string true "Report ID"
// @Success      200 {object} historyResponse
// @Failure      404 {object} json.ErrorResponse
// @Security     BearerAuth
// @Router       /reports/{reportId}/history [get]
func (h *Handler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	reportID := chi.URLParam(r, "reportId")
	history, err := h.lifecycle.History(r.Context(), auth.SessionFrom(r.Context()), reportID)
	if err != nil {
		utils.WriteDomainError(w, r, h.logger, err)
		return
	}
	json.Write(w, http.StatusOK, historyResponse{ReportID: reportID, History: history})
}

// UpdateStatusHandler godoc
// @Summary      Move a report along its lifecycle
// @Description  Only forward (or same-state) transitions are accepted.
// @Tags         reports
// @Accept       json
// @Produce      json
// @Param        reportId path string true "Report ID"
// @Param        request body updateStatusRequest true "New status"
// @Success      200 {object} reportResponse
// @Failure      400 {object} json.ErrorResponse
// @Failure      403 {object} json.ErrorResponse
// @Failure      404 {object} json.ErrorResponse
// @Failure      409 {object} json.ErrorResponse "Backward transition"
// @Security     BearerAuth
// @Router       /reports/{reportId}/status [post]
func (h *Handler) UpdateStatusHandler(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if !readValid(w, r, &req) {
		return
	}
	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		json.WriteValidationError(w, err)
		return
	}

	report, err := h.lifecycle.UpdateStatus(r.Context(), auth.SessionFrom(r.Context()), chi.URLParam(r, "reportId"), status, req.Note)
	h.writeReport(w, r, report, err)
}

// AddNoteHandler godoc
// @Summary      Append a note to a report
// @Tags         reports
// @Accept       json
// @Produce      json
// @Param        reportId path string true "Report ID"
// @Param        request body addNoteRequest true "Note"
// @Success      200 {object} reportResponse
// @Failure      400 {object} json.ErrorResponse
// @Failure      403 {object} json.ErrorResponse
// @Failure      404 {object} json.ErrorResponse
// @Security     BearerAuth
// @Router       /reports/{reportId}/notes [post]
func (h *Handler) AddNoteHandler(w http.ResponseWriter, r *http.Request) {
	var req addNoteRequest
	if !readValid(w, r, &req) {
		return
	}
	report, err := h.lifecycle.AddNote(r.Context(), auth.SessionFrom(r.Context()), chi.URLParam(r, "reportId"), req.Note)
	h.writeReport(w, r, report, err)
}

// ClassifyHandler godoc
// @Summary      Set the staff classification of a report
// @Tags         reports
// @Accept       json
// @Produce      json
// @Param        reportId path string true "Report ID"
// @Param        request body classifyRequest true "Classification"
// @Success      200 {object} reportResponse
// @Failure      400 {object} json.ErrorResponse
// @Failure      403 {object} json.ErrorResponse
// @Failure      404 {object} json.ErrorResponse
// @Security     BearerAuth
// @Router       /reports/{reportId}/classification [post]
func (h *Handler) ClassifyHandler(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if !readValid(w, r, &req) {
		return
	}
	report, err := h.lifecycle.Classify(r.Context(), auth.SessionFrom(r.Context()), chi.URLParam(r, "reportId"), req.Classification, req.Note)
	h.writeReport(w, r, report, err)
}

// ReassignHandler godoc
// @Summary      Reassign a report to a department and supervisor
// @Tags         reports
// @Accept       json
// @Produce      json
// @Param        reportId path string true "Report ID"
// @Param        request body reassignRequest true "Assignment"
// @Success      200 {object} reportResponse
// @Failure      400 {object} json.ErrorResponse
// @Failure      403 {object} json.ErrorResponse
// @Failure      404 {object} json.ErrorResponse
// @Security     BearerAuth
// @Router       /reports/{reportId}/assignment [post]
func (h *Handler) ReassignHandler(w http.ResponseWriter, r *http.Request) {
	var req reassignRequest
	if !readValid(w, r, &req) {
		return
	}
	report, err := h.assignment.Reassign(r.Context(), auth.SessionFrom(r.Context()), chi.URLParam(r, "reportId"), req.Dept, req.SupervisorID, req.Note)
	h.writeReport(w, r, report, err)
}

// AssignWorkerHandler godoc
// @Summary      Assign a worker to a report
// @Description  Only the report's supervisor may assign a worker.
// @Tags         reports
// @Accept       json
// @Produce      json
// @Param        reportId path string true "Report ID"
// @Param        request body assignWorkerRequest true "Worker"
// @Success      200 {object} reportResponse
// @Failure      400 {object} json.ErrorResponse
// @Failure      403 {object} json.ErrorResponse
// @Failure      404 {object} json.ErrorResponse
// @Security     BearerAuth
// @Router       /reports/{reportId}/worker [post]
func (h *Handler) AssignWorkerHandler(w http.ResponseWriter, r *http.Request) {
	var req assignWorkerRequest
	if !readValid(w, r, &req) {
		return
	}
	report, err := h.assignment.AssignWorker(r.Context(), auth.SessionFrom(r.Context()), chi.URLParam(r, "reportId"), req.WorkerID, req.Note)
	h.writeReport(w, r, report, err)
}

// LiveReportsHandler godoc
// @Summary      Live view of visible reports
// @Description  Upgrades to a websocket that receives a view.snapshot frame with the full scoped view and stats on every change.
// @Tags         reports
// @Param        token query string false "Bearer token for clients that cannot set headers"
// @Success      101 {string} string "Switching Protocols"
// @Failure      401 {object} json.ErrorResponse
// @Security     BearerAuth
// @Router       /reports/live [get]
func (h *Handler) LiveReportsHandler(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFrom(r.Context())

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	sub, err := h.projection.Subscribe(ctx, session)
	if err != nil {
		cancel()
		utils.WriteDomainError(w, r, h.logger, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		cancel()
		sub.Close()
		h.logger.Warn(logging.Realtime, logging.Subscription, "websocket upgrade failed", map[logging.ExtraKey]any{
			logging.UserID:       session.UserID,
			logging.ErrorMessage: err.Error(),
		})
		return
	}

	client := ws.NewStreamClient(conn, ws.ViewSnapshot, sub.Updates(), func() {
		sub.Close()
		cancel()
	})
	client.Serve()
}

func (h *Handler) writeReport(w http.ResponseWriter, r *http.Request, report *domain.Report, err error) {
	if err != nil {
		utils.WriteDomainError(w, r, h.logger, err)
		return
	}
	json.Write(w, http.StatusOK, reportResponse{Report: report})
}

func readValid(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := json.Read(r, req); err != nil {
		json.WriteValidationError(w, err)
		return false
	}
	if err := validate.Struct(req); err != nil {
		json.WriteValidationError(w, err)
		return false
	}
	return true
}

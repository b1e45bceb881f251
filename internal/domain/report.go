package domain

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Location struct {
	Latitude  float64 `bson:"latitude" json:"latitude"`
	Longitude float64 `bson:"longitude" json:"longitude"`
}

func (l Location) Valid() bool {
	return l.Latitude >= -90 && l.Latitude <= 90 && l.Longitude >= -180 && l.Longitude <= 180
}

type Report struct {
	ID          string    `bson:"_id" json:"id"`
	ReporterID  string    `bson:"reporterId" json:"reporterId"`
	Description string    `bson:"description" json:"description"`
	IssueType   IssueType `bson:"issueType" json:"issueType"`
	IssueLabel  string    `bson:"issueLabel" json:"issueLabel"`
	CustomIssue string    `bson:"customIssue" json:"customIssue"`
	ImageURL    *string   `bson:"imageUrl" json:"imageUrl"`
	AudioURL    *string   `bson:"audioUrl" json:"audioUrl"`
	Location    *Location `bson:"location" json:"location"`

	Status             Status   `bson:"status" json:"status"`
	AssignedDept       string   `bson:"assignedDept" json:"assignedDept"`
	AssignedTo         *string  `bson:"assignedTo" json:"assignedTo"`
	AssignedToWorker   *string  `bson:"assignedToWorker" json:"assignedToWorker"`
	AssignedWorkerName string   `bson:"assignedWorkerName,omitempty" json:"assignedWorkerName,omitempty"`
	Priority           Priority `bson:"priority" json:"priority"`
	Classification     string   `bson:"classification,omitempty" json:"classification,omitempty"`
	ClassificationNote string   `bson:"classificationNote,omitempty" json:"classificationNote,omitempty"`

	StatusHistory []HistoryEntry `bson:"statusHistory" json:"statusHistory"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// NewReportParams holds the already-enriched values of a submission.
type NewReportParams struct {
	ReporterID   string
	Description  string
	IssueType    IssueType
	CustomIssue  string
	ImageURL     *string
	AudioURL     *string
	Location     *Location
	AssignedDept string
	AssignedTo   *string
	Priority     Priority
}

func NewReport(p NewReportParams) (*Report, error) {
	if p.ReporterID == "" {
		return nil, ErrUnauthorized
	}
	category, ok := LookupCategory(p.IssueType)
	if !ok || category.Key == IssueDefault {
		return nil, ErrInvalidCategory
	}

	description := strings.TrimSpace(p.Description)
	custom := ""
	label := category.Label
	if category.Key == IssueOthers {
		custom = strings.TrimSpace(p.CustomIssue)
		if custom == "" {
			custom = description
		}
		if custom == "" {
			return nil, ErrInvalidReport
		}
		label = "Other"
		if c := strings.TrimSpace(p.CustomIssue); c != "" {
			label = c
		}
	}

	if p.Location != nil && !p.Location.Valid() {
		return nil, ErrInvalidReport
	}

	priority := p.Priority
	if !priority.Valid() {
		priority = PriorityNotSpecified
	}
	dept := p.AssignedDept
	if dept == "" {
		dept = category.Department
	}

	return &Report{
		ID:            uuid.NewString(),
		ReporterID:    p.ReporterID,
		Description:   description,
		IssueType:     category.Key,
		IssueLabel:    label,
		CustomIssue:   custom,
		ImageURL:      p.ImageURL,
		AudioURL:      p.AudioURL,
		Location:      p.Location,
		Status:        StatusSubmitted,
		AssignedDept:  dept,
		AssignedTo:    p.AssignedTo,
		Priority:      priority,
		StatusHistory: []HistoryEntry{},
	}, nil
}

func (r *Report) IsOpen() bool {
	return r.Status.IsOpen()
}

func (r *Report) IsAssignedTo(supervisorID string) bool {
	return r.AssignedTo != nil && *r.AssignedTo == supervisorID
}

// ResolvedAt returns the time of the first transition into resolved.
func (r *Report) ResolvedAt() (time.Time, bool) {
	for _, e := range r.StatusHistory {
		if e.Kind == EntryStatus && e.Status == StatusResolved {
			return e.ChangedAt, true
		}
	}
	return time.Time{}, false
}

// Clone returns a deep copy so callers can hand reports across goroutines.
func (r *Report) Clone() *Report {
	if r == nil {
		return nil
	}
	c := *r
	c.ImageURL = cloneString(r.ImageURL)
	c.AudioURL = cloneString(r.AudioURL)
	c.AssignedTo = cloneString(r.AssignedTo)
	c.AssignedToWorker = cloneString(r.AssignedToWorker)
	if r.Location != nil {
		loc := *r.Location
		c.Location = &loc
	}
	c.StatusHistory = make([]HistoryEntry, len(r.StatusHistory))
	copy(c.StatusHistory, r.StatusHistory)
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// SortNewestFirst orders reports by creation time descending, ties by id.
func SortNewestFirst(reports []Report) {
	sort.SliceStable(reports, func(i, j int) bool {
		if reports[i].CreatedAt.Equal(reports[j].CreatedAt) {
			return reports[i].ID > reports[j].ID
		}
		return reports[i].CreatedAt.After(reports[j].CreatedAt)
	})
}

type ReportRepository interface {
	Create(ctx context.Context, report *Report) error
	GetByID(ctx context.Context, id string) (*Report, error)
	Mutate(ctx context.Context, id string, m Mutation) (*Report, error)
	List(ctx context.Context, scope Scope) ([]Report, error)
}

// ReportChange is one document change delivered by a ChangeFeed. Report
// holds the full document after the change.
type ReportChange struct {
	ReportID string
	Report   *Report
}

type ChangeFeed interface {
	Watch(ctx context.Context) (<-chan ReportChange, error)
}

package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReportDefaults(t *testing.T) {
	r, err := NewReport(NewReportParams{
		ReporterID:  "citizen-1",
		Description: "  pothole by the school  ",
		IssueType:   IssueRoadPothole,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, r.ID)
	assert.Equal(t, StatusSubmitted, r.Status)
	assert.Equal(t, "roads", r.AssignedDept)
	assert.Equal(t, PriorityNotSpecified, r.Priority)
	assert.Equal(t, "pothole by the school", r.Description)
	assert.Equal(t, "Pothole / Road Damage", r.IssueLabel)
	assert.Empty(t, r.CustomIssue)
	assert.NotNil(t, r.StatusHistory)
}

func TestNewReportOthers(t *testing.T) {
	r, err := NewReport(NewReportParams{
		ReporterID:  "citizen-1",
		IssueType:   IssueOthers,
		CustomIssue: "Broken bench",
	})
	require.NoError(t, err)
	assert.Equal(t, "Broken bench", r.CustomIssue)
	assert.Equal(t, "Broken bench", r.IssueLabel)
	assert.Equal(t, DeptOthers, r.AssignedDept)

	r, err = NewReport(NewReportParams{
		ReporterID:  "citizen-1",
		IssueType:   IssueOthers,
		Description: "Stray dogs near the market",
	})
	require.NoError(t, err)
	assert.Equal(t, "Stray dogs near the market", r.CustomIssue)
	assert.Equal(t, "Other", r.IssueLabel)

	_, err = NewReport(NewReportParams{ReporterID: "citizen-1", IssueType: IssueOthers})
	assert.ErrorIs(t, err, ErrInvalidReport)
}

func TestNewReportRejects(t *testing.T) {
	_, err := NewReport(NewReportParams{IssueType: IssueWater})
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = NewReport(NewReportParams{ReporterID: "c", IssueType: IssueDefault})
	assert.ErrorIs(t, err, ErrInvalidCategory)

	_, err = NewReport(NewReportParams{
		ReporterID: "c",
		IssueType:  IssueWater,
		Location:   &Location{Latitude: 91, Longitude: 0},
	})
	assert.ErrorIs(t, err, ErrInvalidReport)
}

func TestCloneIsDeep(t *testing.T) {
	r := &Report{
		ID:            "r1",
		AssignedTo:    StringPtr("sup-1"),
		Location:      &Location{Latitude: 1, Longitude: 2},
		StatusHistory: []HistoryEntry{{ID: "e1"}},
	}
	c := r.Clone()

	*c.AssignedTo = "sup-2"
	c.Location.Latitude = 9
	c.StatusHistory[0].ID = "changed"

	assert.Equal(t, "sup-1", *r.AssignedTo)
	assert.Equal(t, float64(1), r.Location.Latitude)
	assert.Equal(t, "e1", r.StatusHistory[0].ID)
	assert.Nil(t, (*Report)(nil).Clone())
}

func TestResolvedAtUsesFirstResolution(t *testing.T) {
	first := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	r := &Report{StatusHistory: []HistoryEntry{
		NewNoteEntry("sup", first.Add(-time.Hour), "looking"),
		NewStatusEntry(StatusResolved, "sup", first, ""),
		NewStatusEntry(StatusResolved, "sup", first.Add(time.Hour), "again"),
	}}

	at, ok := r.ResolvedAt()
	require.True(t, ok)
	assert.True(t, first.Equal(at))

	_, ok = (&Report{}).ResolvedAt()
	assert.False(t, ok)
}

func TestSortNewestFirst(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	reports := []Report{
		{ID: "a", CreatedAt: base},
		{ID: "c", CreatedAt: base.Add(time.Hour)},
		{ID: "b", CreatedAt: base},
	}
	SortNewestFirst(reports)
	assert.Equal(t, []string{"c", "b", "a"}, []string{reports[0].ID, reports[1].ID, reports[2].ID})
}

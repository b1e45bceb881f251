package projection

import (
	"testing"
	"time"

	"github.com/hilthontt/civicreport/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var statsNow = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

func reportAt(id string, status domain.Status, created time.Time) domain.Report {
	return domain.Report{ID: id, Status: status, CreatedAt: created, UpdatedAt: created}
}

func TestComputeOverdueBoundary(t *testing.T) {
	reports := []domain.Report{
		reportAt("fresh", domain.StatusSubmitted, statsNow.Add(-47*time.Hour-59*time.Minute)),
		reportAt("stale", domain.StatusAcknowledged, statsNow.Add(-48*time.Hour-time.Minute)),
		reportAt("done", domain.StatusResolved, statsNow.Add(-100*time.Hour)),
	}

	stats := Compute(reports, statsNow)

	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Open)
	assert.Equal(t, 1, stats.Overdue)
	assert.Equal(t, 1, stats.Acknowledged)
	assert.Equal(t, 0, stats.InProgress)
}

func TestComputeCounts(t *testing.T) {
	created := statsNow.Add(-30 * time.Hour)
	resolved := reportAt("r1", domain.StatusResolved, created)
	resolved.StatusHistory = []domain.HistoryEntry{
		domain.NewStatusEntry(domain.StatusAcknowledged, "sup", created.Add(2*time.Hour), ""),
		domain.NewStatusEntry(domain.StatusResolved, "sup", created.Add(10*time.Hour), ""),
	}
	quick := reportAt("r2", domain.StatusResolved, statsNow.Add(-6*time.Hour))
	quick.StatusHistory = []domain.HistoryEntry{
		domain.NewStatusEntry(domain.StatusResolved, "sup", statsNow.Add(-1*time.Hour), ""),
	}

	reports := []domain.Report{
		resolved,
		quick,
		reportAt("r3", domain.StatusInProgress, statsNow.Add(-time.Hour)),
		reportAt("r4", domain.StatusSubmitted, statsNow.Add(-8*24*time.Hour)),
		reportAt("r5", domain.Status("archived"), statsNow.Add(-2*time.Hour)),
	}

	stats := Compute(reports, statsNow)

	assert.Equal(t, 3, stats.Today)
	assert.Equal(t, 4, stats.Last7Days)
	assert.Equal(t, 2, stats.ResolvedCount)
	assert.Equal(t, 7.5, stats.AvgResolutionHours)
	assert.Equal(t, 1, stats.InProgress)
	assert.Equal(t, 2, stats.ByStatus[string(domain.StatusResolved)])
	assert.Equal(t, 1, stats.ByStatus[string(domain.StatusSubmitted)])
	assert.Equal(t, 0, stats.ByStatus[string(domain.StatusAcknowledged)])
	assert.Equal(t, 1, stats.ByStatus[unknownStatus])
}

func TestComputeEmpty(t *testing.T) {
	stats := Compute(nil, statsNow)

	assert.Zero(t, stats.Total)
	assert.Zero(t, stats.AvgResolutionHours)
	assert.Len(t, stats.ByStatus, len(domain.Statuses()))
}

func TestDailyCounts(t *testing.T) {
	reports := []domain.Report{
		reportAt("a", domain.StatusSubmitted, statsNow.Add(-time.Hour)),
		reportAt("b", domain.StatusSubmitted, statsNow.Add(-2*time.Hour)),
		reportAt("c", domain.StatusSubmitted, statsNow.AddDate(0, 0, -2)),
		reportAt("d", domain.StatusSubmitted, statsNow.AddDate(0, 0, -10)),
		reportAt("future", domain.StatusSubmitted, statsNow.Add(time.Hour)),
	}

	daily := DailyCounts(reports, statsNow, 7)

	require.Len(t, daily, 7)
	assert.Equal(t, "2026-03-04", daily[0].Date)
	assert.Equal(t, "2026-03-10", daily[6].Date)
	assert.Equal(t, 2, daily[6].Count)
	assert.Equal(t, 1, daily[4].Count)

	total := 0
	for _, d := range daily {
		total += d.Count
	}
	assert.Equal(t, 3, total)

	assert.Empty(t, DailyCounts(reports, statsNow, 0))
}

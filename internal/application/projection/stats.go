package projection

import (
	"math"
	"time"

	"github.com/hilthontt/civicreport/internal/domain"
)

// OverdueAfter is how long a report may stay open before it counts as
// overdue.
const OverdueAfter = 48 * time.Hour

const unknownStatus = "unknown"

type Stats struct {
	Total              int            `json:"total"`
	Open               int            `json:"open"`
	Overdue            int            `json:"overdue"`
	Today              int            `json:"today"`
	Last7Days          int            `json:"last7Days"`
	Acknowledged       int            `json:"acknowledged"`
	InProgress         int            `json:"inProgress"`
	ByStatus           map[string]int `json:"byStatus"`
	ResolvedCount      int            `json:"resolvedCount"`
	AvgResolutionHours float64        `json:"avgResolutionHours"`
}

type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Compute aggregates a view. It only reads its arguments.
func Compute(reports []domain.Report, now time.Time) Stats {
	stats := Stats{
		Total:    len(reports),
		ByStatus: make(map[string]int, 5),
	}
	for _, s := range domain.Statuses() {
		stats.ByStatus[string(s)] = 0
	}

	todayStart := midnight(now)
	weekAgo := now.Add(-7 * 24 * time.Hour)
	overdueBefore := now.Add(-OverdueAfter)

	var resolvedHours float64
	for i := range reports {
		r := &reports[i]

		if r.Status.Valid() {
			stats.ByStatus[string(r.Status)]++
		} else {
			stats.ByStatus[unknownStatus]++
		}
		switch r.Status {
		case domain.StatusAcknowledged:
			stats.Acknowledged++
		case domain.StatusInProgress:
			stats.InProgress++
		}

		if r.IsOpen() {
			stats.Open++
			if r.CreatedAt.Before(overdueBefore) {
				stats.Overdue++
			}
		}
		if !r.CreatedAt.Before(todayStart) {
			stats.Today++
		}
		if !r.CreatedAt.Before(weekAgo) {
			stats.Last7Days++
		}

		if at, ok := r.ResolvedAt(); ok && !at.Before(r.CreatedAt) {
			stats.ResolvedCount++
			resolvedHours += at.Sub(r.CreatedAt).Hours()
		}
	}

	if stats.ResolvedCount > 0 {
		stats.AvgResolutionHours = math.Round(resolvedHours/float64(stats.ResolvedCount)*10) / 10
	}
	return stats
}

// DailyCounts buckets submissions per calendar day for the last days
// days, today included, oldest first.
func DailyCounts(reports []domain.Report, now time.Time, days int) []DailyCount {
	if days <= 0 {
		return []DailyCount{}
	}
	start := midnight(now).AddDate(0, 0, -(days - 1))

	out := make([]DailyCount, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		key := start.AddDate(0, 0, i).Format(time.DateOnly)
		out[i] = DailyCount{Date: key}
		index[key] = i
	}

	for i := range reports {
		created := reports[i].CreatedAt.In(now.Location())
		if created.Before(start) || created.After(now) {
			continue
		}
		if idx, ok := index[created.Format(time.DateOnly)]; ok {
			out[idx].Count++
		}
	}
	return out
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

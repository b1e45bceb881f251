package memory

import (
	"context"
	"testing"
	"time"

	"github.com/hilthontt/civicreport/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityStore(t *testing.T) {
	store := NewActivityStore()
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	logs := []domain.ActivityLog{
		{ID: "1", ReportID: "r1", EventType: domain.ActivityReportCreated, Timestamp: base},
		{ID: "2", ReportID: "r1", EventType: domain.ActivityStatusChanged, Timestamp: base.Add(time.Hour)},
		{ID: "3", ReportID: "r2", EventType: domain.ActivityStatusChanged, Timestamp: base.Add(2 * time.Hour)},
	}
	for i := range logs {
		require.NoError(t, store.Log(ctx, &logs[i]))
	}
	assert.ErrorIs(t, store.Log(ctx, nil), domain.ErrInvalidInput)

	byReport, err := store.GetByReportID(ctx, "r1", 0)
	require.NoError(t, err)
	require.Len(t, byReport, 2)
	assert.Equal(t, "2", byReport[0].ID)

	byType, err := store.GetByEventType(ctx, domain.ActivityStatusChanged, base, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.Equal(t, "2", byType[0].ID)

	recent, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "2"}, []string{recent[0].ID, recent[1].ID})

	require.NoError(t, store.DeleteOlderThan(ctx, base.Add(90*time.Minute)))
	left, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "3", left[0].ID)
}

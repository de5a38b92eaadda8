package core_test

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/rueidis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tribelabs/tribe/internal/worker/core"
	"go.uber.org/zap"
)

func setupTest(t *testing.T) (*core.Monitor, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)

	monitor := core.NewMonitor(client, zap.NewNop())

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return monitor, cleanup
}

func TestReportAndGetStatuses(t *testing.T) {
	t.Parallel()

	monitor, cleanup := setupTest(t)
	defer cleanup()

	ctx := t.Context()

	err := monitor.ReportStatus(ctx, core.Status{
		WorkerID:    "worker-1",
		WorkerType:  "digest",
		SubType:     "daily",
		CurrentTask: "Sweeping due jobs",
		Processed:   12,
		IsHealthy:   true,
	})
	require.NoError(t, err)

	statuses, err := monitor.GetAllStatuses(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 1)

	assert.Equal(t, "worker-1", statuses[0].WorkerID)
	assert.Equal(t, "digest", statuses[0].WorkerType)
	assert.Equal(t, "daily", statuses[0].SubType)
	assert.Equal(t, 12, statuses[0].Processed)
	assert.True(t, statuses[0].IsHealthy)
	assert.False(t, statuses[0].IsStale())
}

func TestGetAllStatusesEmpty(t *testing.T) {
	t.Parallel()

	monitor, cleanup := setupTest(t)
	defer cleanup()

	statuses, err := monitor.GetAllStatuses(t.Context())
	require.NoError(t, err)
	assert.Empty(t, statuses)
}

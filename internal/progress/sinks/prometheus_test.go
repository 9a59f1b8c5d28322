package sinks

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/vaultdl/internal/progress"
	"github.com/JakeFAU/vaultdl/internal/vault"
)

func sampleRun(runID uuid.UUID, start time.Time) []progress.Event {
	return []progress.Event{
		{RunID: runID, TS: start, Stage: progress.StageRunStart, Total: 3},
		{
			RunID: runID,
			TS:    start.Add(time.Second),
			Stage: progress.StageTaskDone,
			Key:   "notes/a.md",
			State: vault.StateSaved,
			Bytes: 1024,
			Dur:   200 * time.Millisecond,
		},
		{
			RunID: runID,
			TS:    start.Add(2 * time.Second),
			Stage: progress.StageTaskDone,
			Key:   "img/b.png",
			State: vault.StateExcluded,
		},
		{
			RunID: runID,
			TS:    start.Add(3 * time.Second),
			Stage: progress.StageTaskDone,
			Key:   "c.pdf",
			State: vault.StateFailed,
			Kind:  vault.KindNetwork,
			Dur:   time.Second,
			Note:  "GET c.pdf: HTTP 500",
		},
		{RunID: runID, TS: start.Add(4 * time.Second), Stage: progress.StageRunDone, Dur: 4 * time.Second},
	}
}

func TestPrometheusSinkRecordsMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	start := time.Unix(1_700_000_000, 0).UTC()
	require.NoError(t, sink.Consume(context.Background(), sampleRun(uuid.New(), start)))

	require.Equal(t, 3.0, testutil.ToFloat64(sink.tasksPlanned))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.tasksDone.WithLabelValues("saved", "none")))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.tasksDone.WithLabelValues("excluded", "none")))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.tasksDone.WithLabelValues("failed", "network")))
	require.Equal(t, 1024.0, testutil.ToFloat64(sink.bytesWritten))
	require.Equal(t, 4.0, testutil.ToFloat64(sink.runDuration))
	require.Equal(t, float64(start.Add(4*time.Second).Unix()), testutil.ToFloat64(sink.lastRunFinish))
	require.Equal(t, 2, testutil.CollectAndCount(sink.taskDuration))

	expected := `
# HELP vaultdl_bytes_written_total Bytes written to the destination tree.
# TYPE vaultdl_bytes_written_total counter
vaultdl_bytes_written_total 1024
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "vaultdl_bytes_written_total"))
	require.NoError(t, sink.Close(context.Background()))
}

func TestPrometheusSinkDuplicateRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := NewPrometheusSink(reg)
	require.NoError(t, err)
	_, err = NewPrometheusSink(reg)
	require.Error(t, err)
}

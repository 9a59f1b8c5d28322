package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogSinkLevels(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	sink := NewLogSink(zap.New(core))

	require.NoError(t, sink.Consume(context.Background(), sampleRun(uuid.New(), time.Now())))
	require.NoError(t, sink.Close(context.Background()))

	require.Equal(t, 2, logs.FilterMessage("task finished").Len())
	warn := logs.FilterMessage("task did not complete").All()
	require.Len(t, warn, 1)
	require.Equal(t, zapcore.WarnLevel, warn[0].Level)
	require.Equal(t, "c.pdf", warn[0].ContextMap()["key"])
	require.Equal(t, "network", warn[0].ContextMap()["kind"])
	require.Equal(t, 1, logs.FilterMessage("download started").Len())
	require.Equal(t, 1, logs.FilterMessage("download finished").Len())
}

func TestLogSinkNilLogger(t *testing.T) {
	t.Parallel()

	sink := NewLogSink(nil)
	require.NoError(t, sink.Consume(context.Background(), sampleRun(uuid.New(), time.Now())))
}

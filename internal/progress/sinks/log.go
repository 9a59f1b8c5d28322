package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/vaultdl/internal/progress"
	"github.com/JakeFAU/vaultdl/internal/vault"
)

// LogSink writes progress events as structured logs. Saved and excluded
// tasks log at debug so a normal run only surfaces problems.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch using structured fields.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		switch evt.Stage {
		case progress.StageRunStart:
			s.logger.Info("download started", zap.Stringer("run_id", evt.RunID), zap.Int("tasks", evt.Total))
		case progress.StageRunDone:
			s.logger.Info("download finished", zap.Stringer("run_id", evt.RunID), zap.Duration("dur", evt.Dur))
		case progress.StageTaskDone:
			s.logTask(evt)
		}
	}
	return nil
}

func (s *LogSink) logTask(evt progress.Event) {
	fields := []zap.Field{
		zap.String("key", evt.Key),
		zap.String("state", string(evt.State)),
		zap.Int64("bytes", evt.Bytes),
		zap.Duration("dur", evt.Dur),
	}
	switch evt.State {
	case vault.StateSaved, vault.StateExcluded:
		s.logger.Debug("task finished", fields...)
	default:
		fields = append(fields, zap.String("kind", string(evt.Kind)), zap.String("note", evt.Note))
		s.logger.Warn("task did not complete", fields...)
	}
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}

// Package errlog provides the append-only error log written during a run.
//
// Each entry is a single line of the form "[YYYY-MM-DD HH:MM:SS] message". The
// log is a dedicated zap core with a console encoder stripped down to the time
// and message, writing through a locked syncer so concurrent workers never
// interleave lines.
package errlog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultPath is where the log lives when no override is configured.
const DefaultPath = "error_logs/error_log.txt"

const timeLayout = "[2006-01-02 15:04:05]"

// Log appends timestamped messages.
type Log struct {
	logger *zap.Logger
	closer io.Closer
}

// Open creates the parent directory if needed and opens path for appending.
func Open(path string, opts ...zap.Option) (*Log, error) {
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create error log dir: %w", err)
	}
	// #nosec G304 -- the path comes from operator configuration.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open error log %s: %w", path, err)
	}
	l := New(f, opts...)
	l.closer = f
	return l, nil
}

// New writes entries to w. Tests pass a bytes.Buffer.
func New(w io.Writer, opts ...zap.Option) *Log {
	encCfg := zapcore.EncoderConfig{
		TimeKey:          "ts",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeTime:       zapcore.TimeEncoderOfLayout(timeLayout),
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: " ",
	}
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(zapcore.AddSync(w)),
		zapcore.DebugLevel,
	)
	return &Log{logger: zap.New(core, opts...)}
}

// Record appends one line.
func (l *Log) Record(msg string) {
	if l == nil {
		return
	}
	l.logger.Info(msg)
}

// Close flushes and closes the underlying file, if any.
func (l *Log) Close() error {
	if l == nil {
		return nil
	}
	syncErr := l.logger.Sync()
	if l.closer == nil {
		return syncErr
	}
	return errors.Join(syncErr, l.closer.Close())
}

package errlog

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func (c fixedClock) NewTicker(d time.Duration) *time.Ticker { return time.NewTicker(d) }

func TestRecordFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	clock := fixedClock{now: time.Date(2024, 3, 9, 7, 5, 2, 0, time.Local)}
	l := New(&buf, zap.WithClock(clock))

	l.Record("Failed to download notes/a.md")
	l.Record(fmt.Sprintf("Conflict for %q", "img/b.png"))

	assert.Equal(t,
		"[2024-03-09 07:05:02] Failed to download notes/a.md\n"+
			"[2024-03-09 07:05:02] Conflict for \"img/b.png\"\n",
		buf.String())
	require.NoError(t, l.Close())
}

func TestOpenAppends(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "error_logs", "error_log.txt")

	first, err := Open(path)
	require.NoError(t, err)
	first.Record("first run")
	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err)
	second.Record("second run")
	require.NoError(t, second.Close())

	// #nosec G304 -- test reads from the controlled temp directory.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	line := regexp.MustCompile(`^\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\] (first|second) run$`)
	for _, l := range lines {
		assert.Regexp(t, line, l)
	}
}

func TestConcurrentRecordsDoNotInterleave(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "log.txt")
	l, err := Open(path)
	require.NoError(t, err)

	const writers, perWriter = 16, 50
	var wg sync.WaitGroup
	for w := range writers {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := range perWriter {
				l.Record(fmt.Sprintf("writer %02d message %03d %s", w, i, strings.Repeat("x", 200)))
			}
		}(w)
	}
	wg.Wait()
	require.NoError(t, l.Close())

	// #nosec G304 -- test reads from the controlled temp directory.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, writers*perWriter)
	line := regexp.MustCompile(`^\[[^\]]+\] writer \d{2} message \d{3} x{200}$`)
	for _, l := range lines {
		require.Regexp(t, line, l)
	}
}

func TestNilLogIsSafe(t *testing.T) {
	t.Parallel()

	var l *Log
	l.Record("ignored")
	assert.NoError(t, l.Close())
	assert.NotPanics(t, func() { l.Record("ignored") })
}

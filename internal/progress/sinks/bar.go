package sinks

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	prettyprogress "github.com/jedib0t/go-pretty/v6/progress"

	"github.com/JakeFAU/vaultdl/internal/progress"
	"github.com/JakeFAU/vaultdl/internal/vault"
)

// BarSink renders a single progress bar over all manifest entries.
type BarSink struct {
	mu      sync.Mutex
	pw      prettyprogress.Writer
	tracker *prettyprogress.Tracker
	label   string
	failed  int
	done    chan struct{}
}

// NewBarSink renders to out, usually stderr.
func NewBarSink(out io.Writer, label string) *BarSink {
	pw := prettyprogress.NewWriter()
	pw.SetOutputWriter(out)
	pw.SetAutoStop(false)
	pw.SetTrackerLength(30)
	pw.SetUpdateFrequency(100 * time.Millisecond)
	pw.SetStyle(prettyprogress.StyleDefault)
	pw.Style().Visibility.ETA = true
	pw.Style().Visibility.Value = true
	pw.Style().Visibility.Percentage = true
	return &BarSink{pw: pw, label: label}
}

// Consume advances the bar.
func (s *BarSink) Consume(_ context.Context, batch []progress.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, evt := range batch {
		switch evt.Stage {
		case progress.StageRunStart:
			s.start(evt.Total)
		case progress.StageTaskDone:
			if s.tracker == nil {
				continue
			}
			if evt.State != vault.StateSaved && evt.State != vault.StateExcluded {
				s.failed++
				s.tracker.UpdateMessage(fmt.Sprintf("%s (%d failed)", s.label, s.failed))
			}
			s.tracker.Increment(1)
		case progress.StageRunDone:
			if s.tracker != nil {
				s.tracker.MarkAsDone()
			}
		}
	}
	return nil
}

func (s *BarSink) start(total int) {
	if s.tracker != nil {
		return
	}
	s.tracker = &prettyprogress.Tracker{
		Message: s.label,
		Total:   int64(total),
		Units:   prettyprogress.UnitsDefault,
	}
	s.pw.AppendTracker(s.tracker)
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		s.pw.Render()
	}()
}

func (s *BarSink) counted() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tracker == nil {
		return 0
	}
	return s.tracker.Value()
}

// Close stops rendering and waits for the final frame.
func (s *BarSink) Close(ctx context.Context) error {
	s.mu.Lock()
	tracker, done := s.tracker, s.done
	s.mu.Unlock()
	if tracker == nil {
		return nil
	}
	tracker.MarkAsDone()
	// Stop is a no-op until Render has installed its context, so repeat it.
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		s.pw.Stop()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return fmt.Errorf("progress bar stop: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

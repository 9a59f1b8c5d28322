package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JakeFAU/vaultdl/internal/vault"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageRunStart Stage = "RUN_START"
	StageTaskDone Stage = "TASK_DONE"
	StageRunDone  Stage = "RUN_DONE"
)

// Event captures a single milestone of a run.
type Event struct {
	// RunID identifies the run; every event of a run shares it.
	RunID uuid.UUID
	// TS is the UTC timestamp recorded by the emitter.
	TS    time.Time
	Stage Stage
	// Total is the task count, set on RUN_START.
	Total int
	// Key, State and Kind describe a finished task.
	Key   string
	State vault.State
	Kind  vault.FailureKind
	Bytes int64
	Dur   time.Duration
	// Note carries low-volume context such as the error text.
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == uuid.Nil {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart:
		if e.Total < 0 {
			return errors.New("run start requires a non-negative total")
		}
	case StageRunDone:
	case StageTaskDone:
		if e.Key == "" {
			return errors.New("task done requires key")
		}
		if !e.State.Terminal() {
			return fmt.Errorf("task done requires a terminal state, got %q", e.State)
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// FromOutcome converts a task outcome into a TASK_DONE event.
func FromOutcome(runID uuid.UUID, ts time.Time, o vault.Outcome) Event {
	evt := Event{
		RunID: runID,
		TS:    ts,
		Stage: StageTaskDone,
		Key:   o.Key,
		State: o.State,
		Kind:  o.Kind,
		Bytes: o.Bytes,
		Dur:   o.Duration,
	}
	if o.Err != nil {
		evt.Note = o.Err.Error()
	}
	return evt
}

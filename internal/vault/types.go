package vault

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// SiteInfo identifies the remote vault backend for the rest of a run.
type SiteInfo struct {
	UID  string `json:"uid"`
	Host string `json:"host"`
}

// Validate ensures both identifying fields are present.
func (s SiteInfo) Validate() error {
	if strings.TrimSpace(s.UID) == "" {
		return fmt.Errorf("site info missing uid: %w", ErrParse)
	}
	if strings.TrimSpace(s.Host) == "" {
		return fmt.Errorf("site info missing host: %w", ErrParse)
	}
	return nil
}

// Endpoints builds backend URLs for a site.
type Endpoints struct {
	Scheme string
	Site   SiteInfo
}

func (e Endpoints) scheme() string {
	if e.Scheme == "" {
		return "https"
	}
	return e.Scheme
}

// ManifestURL returns the cache endpoint listing every file in the vault.
func (e Endpoints) ManifestURL() string {
	return fmt.Sprintf("%s://%s/cache/%s", e.scheme(), e.Site.Host, url.PathEscape(e.Site.UID))
}

// AccessURL returns the download URL for a manifest key. Each segment is
// escaped on its own so that '/' keeps separating segments while '?', '#' and
// '%' stay part of the path.
func (e Endpoints) AccessURL(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return fmt.Sprintf("%s://%s/access/%s/%s", e.scheme(), e.Site.Host, url.PathEscape(e.Site.UID), strings.Join(parts, "/"))
}

// Task is one manifest key scheduled for download.
type Task struct {
	Key   string
	Index int
}

// State is the lifecycle position of a Task.
type State string

// Task states. Saved, Excluded, Skipped and Failed are terminal.
const (
	StatePending  State = "pending"
	StateFetching State = "fetching"
	StateSaved    State = "saved"
	StateExcluded State = "excluded"
	StateSkipped  State = "skipped"
	StateFailed   State = "failed"
)

// Terminal reports whether no further transitions follow s.
func (s State) Terminal() bool {
	switch s {
	case StateSaved, StateExcluded, StateSkipped, StateFailed:
		return true
	default:
		return false
	}
}

// FailureKind narrows a skipped or failed outcome.
type FailureKind string

// Failure kinds recorded on outcomes.
const (
	KindNone     FailureKind = ""
	KindNetwork  FailureKind = "network"
	KindIO       FailureKind = "io"
	KindConflict FailureKind = "conflict"
)

// Outcome is the terminal result of a single Task.
type Outcome struct {
	Key      string
	State    State
	Kind     FailureKind
	Path     string
	Bytes    int64
	Duration time.Duration
	Err      error
}

// Summary aggregates outcomes across a run.
type Summary struct {
	Total         int
	Saved         int
	Excluded      int
	Skipped       int
	FailedNetwork int
	FailedIO      int
	Remaining     int
	Bytes         int64
}

// Add folds an outcome into the summary.
func (s *Summary) Add(o Outcome) {
	switch o.State {
	case StateSaved:
		s.Saved++
		s.Bytes += o.Bytes
	case StateExcluded:
		s.Excluded++
	case StateSkipped:
		s.Skipped++
	case StateFailed:
		if o.Kind == KindIO {
			s.FailedIO++
		} else {
			s.FailedNetwork++
		}
	}
}

// Finished counts tasks that reached a terminal state.
func (s Summary) Finished() int {
	return s.Saved + s.Excluded + s.Skipped + s.FailedNetwork + s.FailedIO
}

// Failed counts tasks that were skipped or failed.
func (s Summary) Failed() int {
	return s.Skipped + s.FailedNetwork + s.FailedIO
}

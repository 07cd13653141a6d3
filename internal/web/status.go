package web

import (
	"time"

	"sailperf/internal/fusion"
	"sailperf/internal/ingest"
)

// Status assembles the reporting snapshot served by /api/status.
type Status struct {
	start   time.Time
	state   *fusion.State
	sources func() []ingest.WorkerSnapshot
	info    map[string]any
}

// NewStatus reports on state. sources may be nil.
func NewStatus(state *fusion.State, sources func() []ingest.WorkerSnapshot) *Status {
	return &Status{start: time.Now().UTC(), state: state, sources: sources, info: map[string]any{}}
}

// SetInfo attaches static, UI-friendly configuration details. It must be
// called before the server starts.
func (s *Status) SetInfo(info map[string]any) {
	if info != nil {
		s.info = info
	}
}

type StatusSnapshot struct {
	Service   string                  `json:"service"`
	NowUTC    string                  `json:"now_utc"`
	UptimeSec int64                   `json:"uptime_sec"`
	Info      map[string]any          `json:"info"`
	Sources   []ingest.WorkerSnapshot `json:"sources"`
	Fusion    *fusion.Snapshot        `json:"fusion,omitempty"`
}

func (s *Status) Snapshot(nowUTC time.Time) StatusSnapshot {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	snap := StatusSnapshot{
		Service:   "sailperf",
		NowUTC:    nowUTC.UTC().Format(time.RFC3339Nano),
		UptimeSec: int64(nowUTC.Sub(s.start).Seconds()),
		Info:      s.info,
		Sources:   []ingest.WorkerSnapshot{},
	}
	if s.sources != nil {
		snap.Sources = s.sources()
	}
	if s.state != nil {
		fs := s.state.Snapshot()
		snap.Fusion = &fs
	}
	return snap
}
